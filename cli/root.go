package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/docgen/config"
	"github.com/randalmurphal/docgen/include"
	"github.com/randalmurphal/docgen/template"
)

var (
	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
)

// app is the state shared by every subcommand of one invocation.
type app struct {
	// Persistent flags
	configPath  string
	templateDir string
	logLevel    string
	logFormat   string

	cfg    config.Config
	logger *slog.Logger
	engine *template.Engine
	dir    *include.Dir
}

// NewRootCommand builds the docgen command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "docgen",
		Short: "docgen renders care-home documents from templates",
		Long: `docgen renders policies, certificates, letters and notices from templates
and structured data (YAML, JSON or TOML).

Configuration can be provided via a config file (--config), DOCGEN_*
environment variables, or flags. Flags take precedence over the
environment, which takes precedence over the file.`,
		Version:       fmt.Sprintf("%s (%s)", Version, Commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (.toml, .yaml, .json)")
	root.PersistentFlags().StringVarP(&a.templateDir, "template-dir", "t", "", "directory of include templates")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log format: text or json")

	root.AddCommand(
		newRenderCommand(a),
		newValidateCommand(a),
		newFunctionsCommand(a),
		newSchemaCommand(),
	)
	return root
}

// Execute runs the CLI with os.Args and exits non-zero on failure.
// This is called by main.main().
func Execute(ctx context.Context) {
	root := NewRootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// setup resolves configuration (file, then env, then flags) and builds
// the logger, include directory and engine.
func (a *app) setup(cmd *cobra.Command) error {
	cfg := config.Default()
	if a.configPath != "" {
		loaded, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	cfg.LoadFromEnv()

	flags := cmd.Flags()
	if flags.Changed("template-dir") {
		cfg.TemplateDir = a.templateDir
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	a.cfg = cfg
	a.logger = cfg.Logger(cmd.ErrOrStderr())

	opts := []template.EngineOption{template.WithLogger(a.logger)}
	if cfg.TemplateDir != "" {
		dir, err := include.OpenDir(cfg.TemplateDir, include.WithLogger(a.logger))
		if err != nil {
			return err
		}
		a.dir = dir
		opts = append(opts, template.WithIncludes(dir))
	}
	a.engine = template.NewEngine(opts...)
	return nil
}
