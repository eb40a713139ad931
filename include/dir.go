package include

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Extensions lists the file types Dir loads as templates.
var Extensions = []string{".tmpl", ".md", ".txt", ".html"}

// DefaultPollInterval is how often Watch rescans when fsnotify is unavailable.
const DefaultPollInterval = time.Second

// Dir serves templates from a directory tree. A template's name is its
// front-matter name, or else its path relative to the root without the
// extension, using forward slashes ("footer", "letters/welcome").
// It is safe for concurrent use.
type Dir struct {
	root         string
	logger       *slog.Logger
	pollInterval time.Duration

	mu   sync.RWMutex
	docs map[string]*Document
}

// DirOption configures a Dir.
type DirOption func(*Dir)

// WithLogger sets the logger for reload and watch events.
func WithLogger(l *slog.Logger) DirOption {
	return func(d *Dir) { d.logger = l }
}

// WithPollInterval sets the rescan interval of the polling fallback.
func WithPollInterval(interval time.Duration) DirOption {
	return func(d *Dir) { d.pollInterval = interval }
}

// OpenDir loads every template under root.
func OpenDir(root string, opts ...DirOption) (*Dir, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat template dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("template dir %s is not a directory", root)
	}

	d := &Dir{
		root:         root,
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if err := d.Reload(); err != nil {
		return nil, err
	}
	return d, nil
}

// Root returns the directory being served.
func (d *Dir) Root() string {
	return d.root
}

// Lookup returns the body of the named template.
func (d *Dir) Lookup(name string) (string, bool) {
	doc, ok := d.Document(name)
	if !ok {
		return "", false
	}
	return doc.Body, true
}

// Document returns the named template with its front matter.
func (d *Dir) Document(name string) (*Document, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	doc, ok := d.docs[name]
	return doc, ok
}

// Names returns the loaded template names, sorted.
func (d *Dir) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.docs))
	for name := range d.docs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reload rescans the directory and atomically replaces the loaded set.
// Files that fail to parse are skipped and logged; a later file claiming
// an already-loaded name is skipped too.
func (d *Dir) Reload() error {
	docs := make(map[string]*Document)
	err := filepath.WalkDir(d.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if path != d.root && strings.HasPrefix(entry.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !isTemplateFile(path) {
			return nil
		}

		doc, err := d.load(path)
		if err != nil {
			d.logger.Warn("skipping template",
				slog.String("path", path),
				slog.Any("error", err))
			return nil
		}
		if prev, dup := docs[doc.Name]; dup {
			d.logger.Warn("duplicate template name",
				slog.String("name", doc.Name),
				slog.String("path", path),
				slog.String("kept", prev.Path))
			return nil
		}
		docs[doc.Name] = doc
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan template dir: %w", err)
	}

	d.mu.Lock()
	d.docs = docs
	d.mu.Unlock()

	d.logger.Debug("templates loaded",
		slog.String("root", d.root),
		slog.Int("count", len(docs)))
	return nil
}

func (d *Dir) load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}
	doc.Path = path
	if doc.Name == "" {
		rel, err := filepath.Rel(d.root, path)
		if err != nil {
			return nil, fmt.Errorf("relative path: %w", err)
		}
		doc.Name = filepath.ToSlash(strings.TrimSuffix(rel, filepath.Ext(rel)))
	}
	return doc, nil
}

func isTemplateFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// WatchOption configures Watch.
type WatchOption func(*watchConfig)

type watchConfig struct {
	onReload func()
}

// WithReloadHook calls fn after every successful reload triggered by Watch.
// fn runs on the watch goroutine.
func WithReloadHook(fn func()) WatchOption {
	return func(c *watchConfig) { c.onReload = fn }
}

// Watch reloads the directory whenever its contents change, until ctx is
// cancelled. It uses fsnotify when available and falls back to polling.
// The watcher is registered before Watch returns; the returned channel is
// closed once the background goroutine has exited.
func (d *Dir) Watch(ctx context.Context, opts ...WatchOption) <-chan struct{} {
	done := make(chan struct{})
	var cfg watchConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		if err = d.addTree(watcher); err != nil {
			watcher.Close()
		}
	}
	if err != nil {
		d.logger.Debug("fsnotify unavailable, polling template dir",
			slog.String("root", d.root),
			slog.Any("error", err))
		snapshot := d.fingerprint()
		go func() {
			defer close(done)
			d.watchPolling(ctx, snapshot, cfg)
		}()
		return done
	}

	go func() {
		defer close(done)
		defer watcher.Close()
		d.watchEvents(ctx, watcher, cfg)
	}()
	return done
}

// addTree watches root and every non-hidden subdirectory; fsnotify is not
// recursive.
func (d *Dir) addTree(watcher *fsnotify.Watcher) error {
	return filepath.WalkDir(d.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() {
			return nil
		}
		if path != d.root && strings.HasPrefix(entry.Name(), ".") {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

func (d *Dir) watchEvents(ctx context.Context, watcher *fsnotify.Watcher, cfg watchConfig) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := d.addTree(watcher); err != nil {
						d.logger.Warn("watch new directory", slog.String("path", event.Name), slog.Any("error", err))
					}
				}
			}
			if !isTemplateFile(event.Name) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) {
				continue
			}
			d.reload(event.Name, cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			d.logger.Warn("template watcher error", slog.Any("error", err))
		}
	}
}

func (d *Dir) watchPolling(ctx context.Context, last map[string]fileStamp, cfg watchConfig) {
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			current := d.fingerprint()
			if sameStamps(last, current) {
				continue
			}
			last = current
			d.reload(d.root, cfg)
		}
	}
}

func (d *Dir) reload(trigger string, cfg watchConfig) {
	if err := d.Reload(); err != nil {
		d.logger.Warn("template reload failed",
			slog.String("trigger", trigger),
			slog.Any("error", err))
		return
	}
	d.logger.Info("templates reloaded", slog.String("trigger", trigger))
	if cfg.onReload != nil {
		cfg.onReload()
	}
}

// fileStamp identifies one version of a template file.
type fileStamp struct {
	size    int64
	modTime time.Time
}

func (d *Dir) fingerprint() map[string]fileStamp {
	stamps := make(map[string]fileStamp)
	_ = filepath.WalkDir(d.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if entry.IsDir() {
			if path != d.root && strings.HasPrefix(entry.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !isTemplateFile(path) {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return nil
		}
		stamps[path] = fileStamp{size: info.Size(), modTime: info.ModTime()}
		return nil
	})
	return stamps
}

func sameStamps(a, b map[string]fileStamp) bool {
	if len(a) != len(b) {
		return false
	}
	for path, s := range a {
		if t, ok := b[path]; !ok || t.size != s.size || !t.modTime.Equal(s.modTime) {
			return false
		}
	}
	return true
}
