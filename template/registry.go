package template

import (
	"sort"
	"sync"
)

// Handler implements a template function. Args are already resolved:
// string literals arrive as string, numeric literals as float64, paths
// as their resolved value (nil when unresolved).
type Handler func(args []any, scope *Scope) (any, error)

// Function describes a registered template function.
type Function struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Examples    []string `json:"examples,omitempty"`
	Handler     Handler  `json:"-"`
}

// Registry maps function names to handlers.
// It is safe for concurrent use; renders read an immutable snapshot.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Function
}

// NewRegistry returns a registry with the built-in functions registered.
func NewRegistry() *Registry {
	r := NewEmptyRegistry()
	for _, fn := range builtins() {
		r.funcs[fn.Name] = fn
	}
	return r
}

// NewEmptyRegistry returns a registry with no functions.
func NewEmptyRegistry() *Registry {
	return &Registry{funcs: make(map[string]Function)}
}

// Register adds fn, replacing any function with the same name.
// It reports whether a function was replaced.
func (r *Registry) Register(fn Function) (replaced bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// TODO: decide with product whether duplicate names should be rejected.
	_, replaced = r.funcs[fn.Name]
	r.funcs[fn.Name] = fn
	return replaced
}

// Lookup returns the function registered under name.
func (r *Registry) Lookup(name string) (Function, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fn, ok := r.funcs[name]
	return fn, ok
}

// Has checks if a function is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// List returns all registered functions sorted by name.
func (r *Registry) List() []Function {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]Function, 0, len(r.funcs))
	for _, fn := range r.funcs {
		list = append(list, fn)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// snapshot copies the table so a render sees one consistent set.
func (r *Registry) snapshot() map[string]Function {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := make(map[string]Function, len(r.funcs))
	for name, fn := range r.funcs {
		snap[name] = fn
	}
	return snap
}
