package template

import (
	"fmt"
	"log/slog"
	"time"
)

// Source supplies named templates to the includes pass.
// include.Map and include.Dir implement it.
type Source interface {
	Lookup(name string) (string, bool)
}

// Engine renders document templates.
// An Engine is safe for concurrent use; the registry is its only shared state.
type Engine struct {
	registry *Registry
	logger   *slog.Logger
	clock    func() time.Time
	source   Source
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithRegistry makes the engine use r instead of a private registry.
func WithRegistry(r *Registry) EngineOption {
	return func(e *Engine) { e.registry = r }
}

// WithLogger sets the logger for degraded constructs.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithClock sets the clock used for system date values.
func WithClock(clock func() time.Time) EngineOption {
	return func(e *Engine) { e.clock = clock }
}

// WithIncludes enables {{> name}} expansion from src.
func WithIncludes(src Source) EngineOption {
	return func(e *Engine) { e.source = src }
}

// NewEngine creates an engine with the built-in functions registered.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		e.registry = NewRegistry()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Process renders content against data.
// A nil opts uses DefaultOptions. The only failures are strict-mode
// unresolved variables (ErrUnresolved), exhausted render budgets
// (ErrLimitExceeded), invalid options, and an empty template.
func (e *Engine) Process(content string, data *Context, opts *Options) (string, error) {
	if content == "" {
		return "", ErrEmpty
	}
	o := DefaultOptions()
	if opts != nil {
		o = *opts
	}
	o = o.withDefaults()
	if err := o.Validate(); err != nil {
		return "", err
	}

	r := &render{
		opts:   o,
		funcs:  e.registry.snapshot(),
		logger: e.logger,
		source: e.source,
	}
	out, err := r.run(content, buildScope(data, &o, e.clock), 0)
	if err != nil {
		return "", fmt.Errorf("process template: %w", err)
	}
	return postProcess(unprotect(out), &o), nil
}

// Validate statically checks content. It never executes the template.
func (e *Engine) Validate(content string, expected []string) ValidationResult {
	return validate(content, expected, e.registry)
}

// RegisterFunction adds or replaces a template function.
func (e *Engine) RegisterFunction(fn Function) {
	if e.registry.Register(fn) {
		e.logger.Debug("replacing template function", slog.String("name", fn.Name))
	}
}

// Functions lists the registered functions sorted by name.
func (e *Engine) Functions() []Function {
	return e.registry.List()
}

// Registry returns the engine's function registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}
