package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/randalmurphal/docgen/include"
	"github.com/randalmurphal/docgen/template"
)

// loadData reads a render context from a YAML, JSON or TOML file.
// The top-level keys are organization, user, record, variables and now.
func loadData(path string) (*template.Context, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read data: %w", err)
	}

	ctx := &template.Context{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, ctx)
	case ".json":
		err = json.Unmarshal(data, ctx)
	case ".toml":
		_, err = toml.Decode(string(data), ctx)
	default:
		return nil, fmt.Errorf("unsupported data format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return ctx, nil
}

// applySets adds key=value pairs to the context variables.
func applySets(ctx *template.Context, sets []string) error {
	for _, kv := range sets {
		key, value, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return fmt.Errorf("--set %q: expected key=value", kv)
		}
		if ctx.Variables == nil {
			ctx.Variables = make(map[string]any)
		}
		ctx.Variables[key] = value
	}
	return nil
}

// parseNow reads the --now flag: RFC 3339 or a plain date.
func parseNow(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("--now %q: expected RFC 3339 or YYYY-MM-DD", s)
}

// job is one template to render or validate.
type job struct {
	name string
	doc  *include.Document
}

// resolveTemplate loads arg as a file, "-" for stdin, or a template name
// from the include directory.
func (a *app) resolveTemplate(arg string, stdin io.Reader) (job, error) {
	if arg == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return job{}, fmt.Errorf("read stdin: %w", err)
		}
		doc, err := include.Parse(data)
		if err != nil {
			return job{}, fmt.Errorf("stdin: %w", err)
		}
		return job{name: nameOr(doc.Name, "stdin"), doc: doc}, nil
	}

	data, err := os.ReadFile(arg)
	switch {
	case err == nil:
		doc, err := include.Parse(data)
		if err != nil {
			return job{}, fmt.Errorf("%s: %w", arg, err)
		}
		doc.Path = arg
		base := filepath.Base(arg)
		return job{name: nameOr(doc.Name, strings.TrimSuffix(base, filepath.Ext(base))), doc: doc}, nil
	case !errors.Is(err, fs.ErrNotExist):
		return job{}, fmt.Errorf("read template: %w", err)
	}

	if a.dir != nil {
		if doc, ok := a.dir.Document(arg); ok {
			return job{name: doc.Name, doc: doc}, nil
		}
	}
	return job{}, fmt.Errorf("template %q not found", arg)
}

func nameOr(name, fallback string) string {
	if name != "" {
		return name
	}
	return fallback
}
