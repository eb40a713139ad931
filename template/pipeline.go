package template

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// pass is one stage of the rewrite pipeline.
type pass struct {
	name  string
	apply func(r *render, text string, scope *Scope, depth int) (string, error)
}

// pipeline returns the passes in order: loops before conditionals so loop
// locals are visible to nested constructs, conditionals before functions
// and variables so untaken branches are never evaluated, functions before
// variables so a call is never read as a path.
func pipeline() []pass {
	return []pass{
		{name: "includes", apply: (*render).includes},
		{name: "loops", apply: (*render).loops},
		{name: "conditionals", apply: (*render).conditionals},
		{name: "functions", apply: (*render).functions},
		{name: "variables", apply: (*render).variables},
	}
}

// reservedWords never resolve as variables.
var reservedWords = map[string]bool{
	"else": true,
}

var errUnknownFunction = errors.New("unknown function")

// render holds the state of one Process call.
type render struct {
	opts       Options
	funcs      map[string]Function
	logger     *slog.Logger
	source     Source
	iterations int
}

// outcome is what a single construct rewrites to. A non-empty reason
// means the construct degraded and the reason is logged.
type outcome struct {
	text   string
	reason string
	level  slog.Level
	attrs  []any
}

func emit(text string) outcome {
	return outcome{text: text}
}

// degrade replaces the construct with empty text and logs a warning.
func degrade(reason string, attrs ...any) outcome {
	return outcome{reason: reason, level: slog.LevelWarn, attrs: attrs}
}

// keep leaves the construct verbatim and logs at debug.
func keep(original, reason string, attrs ...any) outcome {
	return outcome{text: original, reason: reason, level: slog.LevelDebug, attrs: attrs}
}

// settle logs a degraded outcome and returns its text.
func (r *render) settle(passName string, o outcome) string {
	if o.reason != "" {
		attrs := append([]any{slog.String("pass", passName)}, o.attrs...)
		r.logger.Log(context.Background(), o.level, o.reason, attrs...)
	}
	return o.text
}

// run applies every pass to text.
func (r *render) run(text string, scope *Scope, depth int) (string, error) {
	for _, p := range pipeline() {
		var err error
		if text, err = p.apply(r, text, scope, depth); err != nil {
			return "", err
		}
		if len(text) > r.opts.MaxOutputBytes {
			return "", &Error{Op: p.name, Err: fmt.Errorf("%w: output exceeds %d bytes", ErrLimitExceeded, r.opts.MaxOutputBytes)}
		}
	}
	return text, nil
}

func (r *render) includes(text string, _ *Scope, _ int) (string, error) {
	if r.source == nil {
		return text, nil
	}
	return r.expandIncludes(text, 0)
}

// expandIncludes splices include bodies into text recursively. The
// running size is checked after every splice so a fan-out of includes
// fails before it is fully built.
func (r *render) expandIncludes(text string, depth int) (string, error) {
	matches := includePattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text, nil
	}

	var out strings.Builder
	last := 0
	for _, m := range matches {
		out.WriteString(text[last:m[0]])
		last = m[1]

		name := text[m[2]:m[3]]
		body, ok := r.source.Lookup(name)
		if !ok {
			out.WriteString(r.settle("includes", degrade("unknown include", slog.String("name", name))))
			continue
		}
		if depth+1 > r.opts.MaxDepth {
			return "", &Error{Op: "includes", Path: name, Err: fmt.Errorf("%w: include depth %d", ErrLimitExceeded, r.opts.MaxDepth)}
		}
		expanded, err := r.expandIncludes(body, depth+1)
		if err != nil {
			return "", err
		}
		out.WriteString(expanded)
		if out.Len() > r.opts.MaxOutputBytes {
			return "", &Error{Op: "includes", Path: name, Err: fmt.Errorf("%w: output exceeds %d bytes", ErrLimitExceeded, r.opts.MaxOutputBytes)}
		}
	}
	out.WriteString(text[last:])
	return out.String(), nil
}

func (r *render) loops(text string, scope *Scope, depth int) (string, error) {
	var out strings.Builder
	for {
		b, ok := findBlock(text, tagEachOpen, tagEachClose)
		if !ok {
			out.WriteString(text)
			return out.String(), nil
		}
		out.WriteString(text[:b.start])
		o, err := r.expandLoop(b, scope, depth)
		if err != nil {
			return "", err
		}
		out.WriteString(r.settle("loops", o))
		text = text[b.end:]
	}
}

// expandLoop renders the body once per element through the whole
// pipeline, with a derived scope holding the loop locals.
func (r *render) expandLoop(b block, scope *Scope, depth int) (outcome, error) {
	path, alias, ok := parseEachArgs(b.args)
	if !ok {
		return degrade("malformed loop", slog.String("args", b.args)), nil
	}
	v, found := scope.Resolve(path)
	if !found {
		return degrade("loop target not found", slog.String("path", path)), nil
	}
	items, ok := sequence(v)
	if !ok {
		return degrade("loop target is not a list", slog.String("path", path), slog.String("type", fmt.Sprintf("%T", v))), nil
	}
	if len(items) > 0 && depth+1 > r.opts.MaxDepth {
		return outcome{}, &Error{Op: "loops", Path: path, Err: fmt.Errorf("%w: loop depth %d", ErrLimitExceeded, r.opts.MaxDepth)}
	}

	var out strings.Builder
	last := len(items) - 1
	for i, item := range items {
		r.iterations++
		if r.iterations > r.opts.MaxIterations {
			return outcome{}, &Error{Op: "loops", Path: path, Err: fmt.Errorf("%w: %d iterations", ErrLimitExceeded, r.opts.MaxIterations)}
		}
		child := scope.child(map[string]any{
			alias:            item,
			alias + "_index": i,
			alias + "_first": i == 0,
			alias + "_last":  i == last,
		})
		s, err := r.run(b.body, child, depth+1)
		if err != nil {
			return outcome{}, err
		}
		out.WriteString(s)
		if out.Len() > r.opts.MaxOutputBytes {
			return outcome{}, &Error{Op: "loops", Path: path, Err: fmt.Errorf("%w: output exceeds %d bytes", ErrLimitExceeded, r.opts.MaxOutputBytes)}
		}
	}
	return emit(out.String()), nil
}

func (r *render) conditionals(text string, scope *Scope, _ int) (string, error) {
	var out strings.Builder
	for {
		b, ok := findBlock(text, tagIfOpen, tagIfClose)
		if !ok {
			out.WriteString(text)
			return out.String(), nil
		}
		out.WriteString(text[:b.start])
		// The chosen branch is rescanned so nested conditionals resolve.
		text = r.settle("conditionals", r.selectBranch(b, scope)) + text[b.end:]
	}
}

func (r *render) selectBranch(b block, scope *Scope) outcome {
	ok, err := evalCondition(b.args, scope)
	if err != nil {
		return degrade("condition evaluation failed", slog.String("condition", b.args), slog.Any("error", err))
	}
	switch {
	case ok:
		return emit(b.body)
	case b.hasElse:
		return emit(b.alt)
	}
	return emit("")
}

// evalCondition supports "a == b", "a != b", "path" and "!path".
func evalCondition(expr string, scope *Scope) (bool, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return false, errors.New("empty condition")
	}
	if lhs, op, rhs, ok := splitComparison(expr); ok {
		a, err := operand(lhs, scope)
		if err != nil {
			return false, err
		}
		b, err := operand(rhs, scope)
		if err != nil {
			return false, err
		}
		eq := looseEqual(a, b)
		if op == "!=" {
			return !eq, nil
		}
		return eq, nil
	}

	negate := false
	if strings.HasPrefix(expr, "!") {
		negate = true
		expr = strings.TrimSpace(expr[1:])
	}
	v, err := operand(expr, scope)
	if err != nil {
		return false, err
	}
	return truthy(v) != negate, nil
}

// splitComparison finds a top-level == or != outside quotes.
// "===" and "!==" are read as their loose forms.
func splitComparison(expr string) (lhs, op, rhs string, ok bool) {
	inQuote := byte(0)
	for i := 0; i+1 < len(expr); i++ {
		ch := expr[i]
		switch {
		case inQuote != 0:
			if ch == '\\' {
				i++
			} else if ch == inQuote {
				inQuote = 0
			}
		case ch == '"' || ch == '\'':
			inQuote = ch
		case (ch == '=' || ch == '!') && expr[i+1] == '=':
			op = expr[i : i+2]
			end := i + 2
			if end < len(expr) && expr[end] == '=' {
				end++
			}
			lhs = strings.TrimSpace(expr[:i])
			rhs = strings.TrimSpace(expr[end:])
			if lhs == "" || rhs == "" {
				return "", "", "", false
			}
			return lhs, op, rhs, true
		}
	}
	return "", "", "", false
}

// operand evaluates one side of a condition. Quoted text and numbers are
// literals; anything else must be a path. Unresolved paths are nil.
func operand(tok string, scope *Scope) (any, error) {
	if v, ok := literal(tok); ok {
		return v, nil
	}
	if !pathPattern.MatchString(tok) {
		return nil, fmt.Errorf("unsupported operand %q", tok)
	}
	v, _ := scope.Resolve(tok)
	return v, nil
}

func (r *render) functions(text string, scope *Scope, _ int) (string, error) {
	return functionPattern.ReplaceAllStringFunc(text, func(m string) string {
		c, ok := parseCall(functionPattern.FindStringSubmatch(m)[1])
		if !ok {
			return m
		}
		v, err := r.invoke(c, scope)
		switch {
		case errors.Is(err, errUnknownFunction):
			return r.settle("functions", keep(m, "unknown function", slog.String("call", m)))
		case err != nil:
			return r.settle("functions", degrade("function failed", slog.String("call", m), slog.Any("error", err)))
		}
		return protect(stringify(v))
	}), nil
}

// invoke evaluates arguments, innermost calls first, then the handler.
func (r *render) invoke(c call, scope *Scope) (any, error) {
	fn, ok := r.funcs[c.name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errUnknownFunction, c.name)
	}
	args := make([]any, 0, len(c.args))
	for _, arg := range c.args {
		v, err := r.argument(arg, scope)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return safeCall(fn, args, scope)
}

func (r *render) argument(arg string, scope *Scope) (any, error) {
	if v, ok := literal(arg); ok {
		return v, nil
	}
	if nested, ok := parseCall(arg); ok {
		return r.invoke(nested, scope)
	}
	v, _ := scope.Resolve(arg)
	return v, nil
}

// safeCall runs a handler, turning a panic into an error.
func safeCall(fn Function, args []any, scope *Scope) (v any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %s panicked: %v", ErrFunction, fn.Name, p)
		}
	}()
	return fn.Handler(args, scope)
}

func (r *render) variables(text string, scope *Scope, _ int) (string, error) {
	var failed error
	out := variablePattern.ReplaceAllStringFunc(text, func(m string) string {
		path := variablePattern.FindStringSubmatch(m)[1]
		if failed != nil || reservedWords[path] {
			return m
		}
		v, ok := scope.Resolve(path)
		if !ok {
			if r.opts.StrictMode {
				failed = &Error{Op: "variables", Path: path, Err: ErrUnresolved}
				return m
			}
			return ""
		}
		return protect(stringify(v))
	})
	return out, failed
}
