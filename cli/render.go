package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/randalmurphal/docgen/include"
	"github.com/randalmurphal/docgen/template"
)

// renderFlags are the flags of the render command.
type renderFlags struct {
	data   string
	sets   []string
	now    string
	strict bool
	outDir string
	ext    string
	watch  bool
}

func newRenderCommand(a *app) *cobra.Command {
	f := &renderFlags{}

	cmd := &cobra.Command{
		Use:   "render [flags] <template>...",
		Short: "Render templates against a data file",
		Long: `Render one or more templates. Each argument is a template file, "-" for
stdin, or the name of a template in the include directory.

With several templates, renders run concurrently (config "workers") and
results are printed in argument order, or written to --out.`,
		Example: `  docgen render -d resident.yaml letters/welcome.tmpl
  docgen render -t templates -d home.json --out build welcome certificate
  docgen render --set name=Oak -`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runRender(cmd, args, f)
		},
	}

	cmd.Flags().StringVarP(&f.data, "data", "d", "", "data file (.yaml, .json, .toml)")
	cmd.Flags().StringArrayVar(&f.sets, "set", nil, "set a variable (key=value, repeatable)")
	cmd.Flags().StringVar(&f.now, "now", "", "pin the render date (RFC 3339 or YYYY-MM-DD)")
	cmd.Flags().BoolVar(&f.strict, "strict", false, "fail on unresolved variables")
	cmd.Flags().StringVarP(&f.outDir, "out", "o", "", "write each result to <out>/<name><ext> instead of stdout")
	cmd.Flags().StringVar(&f.ext, "ext", ".txt", "file extension used with --out")
	cmd.Flags().BoolVarP(&f.watch, "watch", "w", false, "re-render whenever the include directory changes (requires --out)")
	return cmd
}

func (a *app) runRender(cmd *cobra.Command, args []string, f *renderFlags) error {
	data := &template.Context{}
	if f.data != "" {
		loaded, err := loadData(f.data)
		if err != nil {
			return err
		}
		data = loaded
	}
	if err := applySets(data, f.sets); err != nil {
		return err
	}
	if f.now != "" {
		now, err := parseNow(f.now)
		if err != nil {
			return err
		}
		data.Now = now
	}

	watch := f.watch || a.cfg.Watch
	if watch && (a.dir == nil || f.outDir == "") {
		return fmt.Errorf("--watch requires a template directory and --out")
	}

	render := func(ctx context.Context) error {
		jobs := make([]job, len(args))
		for i, arg := range args {
			j, err := a.resolveTemplate(arg, cmd.InOrStdin())
			if err != nil {
				return err
			}
			jobs[i] = j
		}
		results, err := a.renderAll(ctx, jobs, data, f.strict)
		if err != nil {
			return err
		}
		return writeResults(cmd.OutOrStdout(), jobs, results, f.outDir, f.ext)
	}

	if err := render(cmd.Context()); err != nil {
		return err
	}
	if !watch {
		return nil
	}
	return a.watchAndRender(cmd.Context(), render)
}

// renderAll renders jobs concurrently, bounded by the configured workers.
// Results are in job order. The first failure cancels the rest.
func (a *app) renderAll(ctx context.Context, jobs []job, data *template.Context, strict bool) ([]string, error) {
	results := make([]string, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	if a.cfg.Workers > 0 {
		g.SetLimit(a.cfg.Workers)
	}

	for i, j := range jobs {
		i, j := i, j
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			opts, err := j.doc.Options(a.cfg.Engine)
			if err != nil {
				return fmt.Errorf("%s: %w", j.name, err)
			}
			if strict {
				opts.StrictMode = true
			}
			out, err := a.engine.Process(j.doc.Body, data, &opts)
			if err != nil {
				return fmt.Errorf("render %s: %w", j.name, err)
			}
			results[i] = out
			a.logger.Debug("rendered template",
				slog.String("template", j.name),
				slog.Int("bytes", len(out)))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func writeResults(w io.Writer, jobs []job, results []string, outDir, ext string) error {
	if outDir == "" {
		for _, out := range results {
			if _, err := fmt.Fprintln(w, out); err != nil {
				return err
			}
		}
		return nil
	}

	for i, j := range jobs {
		path := filepath.Join(outDir, filepath.FromSlash(j.name)+ext)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
		if err := os.WriteFile(path, []byte(results[i]+"\n"), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Fprintln(w, path)
	}
	return nil
}

// watchAndRender re-renders after every include-directory reload until
// ctx is cancelled. Render failures are logged and do not stop watching.
func (a *app) watchAndRender(ctx context.Context, render func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	reloaded := make(chan struct{}, 1)
	done := a.dir.Watch(ctx, include.WithReloadHook(func() {
		select {
		case reloaded <- struct{}{}:
		default:
		}
	}))
	a.logger.Info("watching templates", slog.String("dir", a.dir.Root()))

	for {
		select {
		case <-ctx.Done():
			<-done
			return nil
		case <-reloaded:
			if err := render(ctx); err != nil {
				a.logger.Warn("re-render failed", slog.Any("error", err))
			}
		}
	}
}
