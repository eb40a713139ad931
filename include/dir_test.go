package include

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/randalmurphal/docgen/template"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestOpenDir(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "footer.tmpl"), "Regards,\n{{user.name}}\n")
	writeFile(t, filepath.Join(root, "letters", "welcome.md"), "---\nname: welcome\ndescription: Welcome letter\n---\nDear {{record.name}}")
	writeFile(t, filepath.Join(root, "letters", "notice.txt"), "Notice")
	writeFile(t, filepath.Join(root, "notes.json"), `{"ignored": true}`)
	writeFile(t, filepath.Join(root, ".drafts", "draft.tmpl"), "hidden")
	writeFile(t, filepath.Join(root, "broken.tmpl"), "---\nname: broken\n")

	dir, err := OpenDir(root, WithLogger(quietLogger()))
	require.NoError(t, err)

	assert.Equal(t, []string{"footer", "letters/notice", "welcome"}, dir.Names())

	body, ok := dir.Lookup("footer")
	require.True(t, ok)
	assert.Equal(t, "Regards,\n{{user.name}}", body)

	doc, ok := dir.Document("welcome")
	require.True(t, ok)
	assert.Equal(t, "Welcome letter", doc.Description)
	assert.Equal(t, filepath.Join(root, "letters", "welcome.md"), doc.Path)

	_, ok = dir.Lookup("broken")
	assert.False(t, ok)
	_, ok = dir.Lookup("draft")
	assert.False(t, ok)
}

func TestOpenDir_Errors(t *testing.T) {
	_, err := OpenDir(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "file.tmpl")
	writeFile(t, file, "x")
	_, err = OpenDir(file)
	assert.Error(t, err)
}

func TestDir_DuplicateNames(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.tmpl"), "---\nname: shared\n---\nfirst")
	writeFile(t, filepath.Join(root, "b.tmpl"), "---\nname: shared\n---\nsecond")

	dir, err := OpenDir(root, WithLogger(quietLogger()))
	require.NoError(t, err)

	body, ok := dir.Lookup("shared")
	require.True(t, ok)
	assert.Equal(t, "first", body)
}

func TestDir_AsEngineSource(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "header.tmpl"), "{{organization.name}}")
	writeFile(t, filepath.Join(root, "partials", "signature.tmpl"), "{{user.name}}, Registered Manager")

	dir, err := OpenDir(root, WithLogger(quietLogger()))
	require.NoError(t, err)

	engine := template.NewEngine(template.WithIncludes(dir), template.WithLogger(quietLogger()))
	out, err := engine.Process(`{{> header}} / {{> "partials/signature"}}`, &template.Context{
		Organization: map[string]any{"name": "Oak House"},
		User:         map[string]any{"name": "Sam Patel"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Oak House / Sam Patel, Registered Manager", out)
}

func TestDir_Watch(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "footer.tmpl"), "v1")
	writeFile(t, filepath.Join(root, "letters", "existing.tmpl"), "kept")

	dir, err := OpenDir(root, WithLogger(quietLogger()), WithPollInterval(20*time.Millisecond))
	require.NoError(t, err)

	var reloads atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := dir.Watch(ctx, WithReloadHook(func() { reloads.Add(1) }))
	defer func() {
		cancel()
		<-done
	}()

	writeFile(t, filepath.Join(root, "footer.tmpl"), "v2")
	assert.Eventually(t, func() bool {
		body, _ := dir.Lookup("footer")
		return body == "v2"
	}, 5*time.Second, 20*time.Millisecond)

	writeFile(t, filepath.Join(root, "letters", "new.tmpl"), "added")
	assert.Eventually(t, func() bool {
		_, ok := dir.Lookup("letters/new")
		return ok
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, os.Remove(filepath.Join(root, "footer.tmpl")))
	assert.Eventually(t, func() bool {
		_, ok := dir.Lookup("footer")
		return !ok
	}, 5*time.Second, 20*time.Millisecond)
	assert.GreaterOrEqual(t, reloads.Load(), int32(3))
}

func TestDir_WatchPolling(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "footer.tmpl"), "v1")

	dir, err := OpenDir(root, WithLogger(quietLogger()), WithPollInterval(10*time.Millisecond))
	require.NoError(t, err)

	var reloads atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	// The baseline must predate the write below.
	baseline := dir.fingerprint()
	require.Len(t, baseline, 1)
	go func() {
		defer close(done)
		dir.watchPolling(ctx, baseline, watchConfig{onReload: func() { reloads.Add(1) }})
	}()
	defer func() {
		cancel()
		<-done
	}()

	// Sizes differ so the change is visible even with coarse mtimes.
	writeFile(t, filepath.Join(root, "footer.tmpl"), "version two")
	assert.Eventually(t, func() bool {
		body, _ := dir.Lookup("footer")
		return body == "version two"
	}, 5*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return reloads.Load() >= 1 }, 5*time.Second, 10*time.Millisecond)
}

func TestSameStamps(t *testing.T) {
	now := time.Now()
	a := map[string]fileStamp{"x": {size: 1, modTime: now}}

	assert.True(t, sameStamps(a, map[string]fileStamp{"x": {size: 1, modTime: now}}))
	assert.False(t, sameStamps(a, map[string]fileStamp{"x": {size: 2, modTime: now}}))
	assert.False(t, sameStamps(a, map[string]fileStamp{"y": {size: 1, modTime: now}}))
	assert.False(t, sameStamps(a, map[string]fileStamp{}))
}
