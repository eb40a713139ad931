// Package docgen renders care-home documents (policies, certificates,
// letters, notices) from templates and structured data.
//
// Each subpackage can be used independently:
//
//   - template: the engine: context, resolver, rewrite pipeline, functions, validator
//   - include: named-include sources, including a hot-reloaded template directory
//   - config: settings from TOML/YAML/JSON files and DOCGEN_* environment variables
//   - cli: the docgen command line (cmd/docgen)
//
// # Quick Start
//
// Rendering:
//
//	import "github.com/randalmurphal/docgen/template"
//	engine := template.NewEngine()
//	out, _ := engine.Process("Welcome to {{organization.name}}", &template.Context{
//		Organization: map[string]any{"name": "Oak House"},
//	}, nil)
//
// Includes from a directory:
//
//	import "github.com/randalmurphal/docgen/include"
//	dir, _ := include.OpenDir("templates")
//	engine := template.NewEngine(template.WithIncludes(dir))
//
// Command line:
//
//	docgen render -t templates -d resident.yaml letters/welcome
//	docgen validate -t templates --all
//
// # Design Philosophy
//
// docgen follows these principles:
//
//   - A render never fails on bad data; only strict mode and render budgets abort
//   - Renders are pure: the caller's context is never mutated
//   - Sensible defaults with full configurability
//   - Interfaces for extensibility, concrete types for simplicity
package docgen
