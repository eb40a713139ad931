// Package config loads docgen settings from TOML, YAML or JSON files and
// DOCGEN_* environment variables.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/randalmurphal/docgen/template"
)

// EnvPrefix prefixes every environment variable LoadFromEnv reads.
const EnvPrefix = "DOCGEN_"

// Log formats accepted by Config.LogFormat.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config holds settings for the docgen CLI and for hosts embedding the engine.
type Config struct {
	// --- Engine ---

	// Engine holds the default processing options. Template front matter
	// may override them per document.
	Engine template.Options `json:"engine" yaml:"engine" toml:"engine"`

	// --- Templates ---

	// TemplateDir is the include directory. Relative paths in a config
	// file are resolved against the file's directory.
	// Optional; without it includes are left unexpanded.
	TemplateDir string `json:"template_dir" yaml:"template_dir" toml:"template_dir"`

	// Watch reloads TemplateDir when its files change.
	Watch bool `json:"watch" yaml:"watch" toml:"watch"`

	// --- Logging ---

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level" yaml:"log_level" toml:"log_level"`

	// LogFormat is "text" or "json".
	LogFormat string `json:"log_format" yaml:"log_format" toml:"log_format"`

	// --- Batch ---

	// Workers bounds concurrent renders in batch mode. 0 means unbounded.
	Workers int `json:"workers" yaml:"workers" toml:"workers"`
}

// Default returns a Config with the engine defaults, info-level text logs
// and four batch workers.
func Default() Config {
	return Config{
		Engine:    template.DefaultOptions(),
		LogLevel:  "info",
		LogFormat: LogFormatText,
		Workers:   4,
	}
}

// Load reads a config file on top of Default. The format is chosen by
// extension: .toml, .yaml/.yml or .json. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		md, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return cfg, fmt.Errorf("parse %s: unknown keys %s", path, strings.Join(keys, ", "))
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config format %q", ext)
	}

	if cfg.TemplateDir != "" && !filepath.IsAbs(cfg.TemplateDir) {
		cfg.TemplateDir = filepath.Join(filepath.Dir(path), cfg.TemplateDir)
	}
	return cfg, nil
}

// LoadFromEnv populates config fields from environment variables.
// Environment variables use the DOCGEN_ prefix and take precedence over
// existing values. Unparseable numbers and booleans are ignored.
//
// Supported variables:
//   - DOCGEN_TEMPLATE_DIR: include directory
//   - DOCGEN_WATCH: reload templates on change (true/false)
//   - DOCGEN_LOG_LEVEL: debug, info, warn, error
//   - DOCGEN_LOG_FORMAT: text or json
//   - DOCGEN_WORKERS: batch render concurrency
//   - DOCGEN_STRICT_MODE: fail on unresolved variables
//   - DOCGEN_ALLOW_UNSAFE_CONTENT: skip sanitization
//   - DOCGEN_SANITIZE_OUTPUT: strip script-like content (default true)
//   - DOCGEN_PRESERVE_WHITESPACE: skip whitespace normalization
//   - DOCGEN_LOCALE: BCP 47 locale (e.g., "en-GB")
//   - DOCGEN_TIMEZONE: IANA timezone (e.g., "Europe/London")
//   - DOCGEN_MAX_DEPTH, DOCGEN_MAX_ITERATIONS, DOCGEN_MAX_OUTPUT_BYTES: render limits
func (c *Config) LoadFromEnv() {
	if v := getenv("TEMPLATE_DIR"); v != "" {
		c.TemplateDir = v
	}
	envBool("WATCH", &c.Watch)
	if v := getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := getenv("LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	envInt("WORKERS", &c.Workers)

	envBool("STRICT_MODE", &c.Engine.StrictMode)
	envBool("ALLOW_UNSAFE_CONTENT", &c.Engine.AllowUnsafeContent)
	var sanitize bool
	if envBool("SANITIZE_OUTPUT", &sanitize) {
		c.Engine.SanitizeOutput = template.Bool(sanitize)
	}
	envBool("PRESERVE_WHITESPACE", &c.Engine.PreserveWhitespace)
	if v := getenv("LOCALE"); v != "" {
		c.Engine.Locale = v
	}
	if v := getenv("TIMEZONE"); v != "" {
		c.Engine.Timezone = v
	}
	envInt("MAX_DEPTH", &c.Engine.MaxDepth)
	envInt("MAX_ITERATIONS", &c.Engine.MaxIterations)
	envInt("MAX_OUTPUT_BYTES", &c.Engine.MaxOutputBytes)
}

func getenv(name string) string {
	return os.Getenv(EnvPrefix + name)
}

// envBool sets dst and reports whether the variable held a valid boolean.
func envBool(name string, dst *bool) bool {
	v := getenv(name)
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false
	}
	*dst = b
	return true
}

func envInt(name string, dst *int) {
	if v := getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// FromEnv creates a Config from environment variables with defaults.
func FromEnv() Config {
	cfg := Default()
	cfg.LoadFromEnv()
	return cfg
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if _, err := c.level(); err != nil {
		return err
	}
	if c.LogFormat != LogFormatText && c.LogFormat != LogFormatJSON {
		return fmt.Errorf("log_format must be %q or %q, got %q", LogFormatText, LogFormatJSON, c.LogFormat)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	if c.Watch && c.TemplateDir == "" {
		return fmt.Errorf("watch requires template_dir")
	}
	return nil
}

func (c *Config) level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return level, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

// Logger builds a slog logger writing to w with the configured level and
// format. An invalid level falls back to info.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, err := c.level()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
