package template

import (
	"fmt"
	"strings"
)

// ValidationResult reports the static checks of Validate.
type ValidationResult struct {
	Valid             bool     `json:"valid" yaml:"valid"`
	Errors            []string `json:"errors" yaml:"errors"`
	Warnings          []string `json:"warnings" yaml:"warnings"`
	Variables         []string `json:"variables" yaml:"variables"`
	ExpectedVariables []string `json:"expected_variables" yaml:"expected_variables"`
}

// validator accumulates findings for one template.
type validator struct {
	registry *Registry
	result   ValidationResult
	seen     map[string]bool
	unknown  map[string]bool
	// open holds the blocks enclosing the current tag.
	open []openBlock
}

type openBlock struct {
	kind   tagKind
	args   string
	at     int
	locals map[string]bool
}

// validate scans content without evaluating anything.
func validate(content string, expected []string, registry *Registry) ValidationResult {
	v := &validator{
		registry: registry,
		seen:     make(map[string]bool),
		unknown:  make(map[string]bool),
		result: ValidationResult{
			Errors:            []string{},
			Warnings:          []string{},
			Variables:         []string{},
			ExpectedVariables: append([]string{}, expected...),
		},
	}

	v.checkDelimiters(content)
	v.checkBlocks(content)

	for _, name := range expected {
		if !v.references(name) {
			v.warn("expected variable %q is not used in the template", name)
		}
	}
	v.result.Valid = len(v.result.Errors) == 0
	return v.result
}

func (v *validator) errorf(format string, args ...any) {
	v.result.Errors = append(v.result.Errors, fmt.Sprintf(format, args...))
}

func (v *validator) warn(format string, args ...any) {
	v.result.Warnings = append(v.result.Warnings, fmt.Sprintf(format, args...))
}

// checkDelimiters reports "{{" and "}}" left over once every tag is removed.
func (v *validator) checkDelimiters(content string) {
	rest := tagPattern.ReplaceAllStringFunc(content, func(m string) string {
		return strings.Repeat(" ", len(m))
	})
	if i := strings.Index(rest, "{{"); i >= 0 {
		v.errorf("unclosed tag at offset %d", i)
	}
	if i := strings.Index(rest, "}}"); i >= 0 {
		v.errorf("unexpected }} at offset %d", i)
	}
}

// checkBlocks matches block tags with a stack and collects references.
// Loop locals hide inputs of the same name only inside their loop.
func (v *validator) checkBlocks(content string) {
	for _, t := range scanTags(content) {
		switch t.kind {
		case tagEachOpen:
			locals := make(map[string]bool)
			path, alias, ok := parseEachArgs(t.args)
			if !ok {
				v.errorf("{{#each}} at offset %d needs a list path", t.start)
			} else {
				v.addPath(path)
				for _, suffix := range []string{"", "_index", "_first", "_last"} {
					locals[alias+suffix] = true
				}
			}
			v.open = append(v.open, openBlock{kind: tagEachOpen, args: t.args, at: t.start, locals: locals})
		case tagIfOpen:
			if t.args == "" {
				v.errorf("{{#if}} at offset %d needs a condition", t.start)
			} else {
				v.collectCondition(t.args)
			}
			v.open = append(v.open, openBlock{kind: tagIfOpen, args: t.args, at: t.start})
		case tagElse:
			if len(v.open) == 0 || v.open[len(v.open)-1].kind != tagIfOpen {
				v.errorf("{{#else}} at offset %d is outside an {{#if}}", t.start)
			}
		case tagEachClose, tagIfClose:
			want := tagEachOpen
			name := "each"
			if t.kind == tagIfClose {
				want, name = tagIfOpen, "if"
			}
			if len(v.open) == 0 {
				v.errorf("{{/%s}} at offset %d has no opening tag", name, t.start)
				continue
			}
			top := v.open[len(v.open)-1]
			if top.kind != want {
				v.errorf("{{/%s}} at offset %d closes a block opened at offset %d", name, t.start, top.at)
			}
			v.open = v.open[:len(v.open)-1]
		default:
			v.collectExpression(content[t.start:t.end])
		}
	}

	for _, o := range v.open {
		name := "each"
		if o.kind == tagIfOpen {
			name = "if"
		}
		v.errorf("{{#%s %s}} at offset %d is never closed", name, o.args, o.at)
	}
}

// collectExpression handles a non-block tag: include, call, or variable.
func (v *validator) collectExpression(tagText string) {
	if includePattern.MatchString(tagText) {
		return
	}
	if m := functionPattern.FindStringSubmatch(tagText); m != nil {
		if c, ok := parseCall(m[1]); ok {
			v.collectCall(c)
			return
		}
	}
	if m := variablePattern.FindStringSubmatch(tagText); m != nil && !reservedWords[m[1]] {
		v.addPath(m[1])
	}
}

func (v *validator) collectCall(c call) {
	if !v.registry.Has(c.name) && !v.unknown[c.name] {
		v.unknown[c.name] = true
		v.warn("unknown function %q", c.name)
	}
	for _, arg := range c.args {
		if _, ok := literal(arg); ok {
			continue
		}
		if nested, ok := parseCall(arg); ok {
			v.collectCall(nested)
			continue
		}
		if pathPattern.MatchString(arg) {
			v.addPath(arg)
		}
	}
}

func (v *validator) collectCondition(expr string) {
	operands := []string{expr}
	if lhs, _, rhs, ok := splitComparison(expr); ok {
		operands = []string{lhs, rhs}
	}
	for _, op := range operands {
		op = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(op), "!"))
		if _, ok := literal(op); ok {
			continue
		}
		if pathPattern.MatchString(op) {
			v.addPath(op)
		}
	}
}

// addPath records an input path. Paths rooted at an enclosing loop's
// locals are not inputs.
func (v *validator) addPath(path string) {
	root, _, _ := strings.Cut(path, ".")
	for _, b := range v.open {
		if b.locals[root] {
			return
		}
	}
	if v.seen[path] {
		return
	}
	v.seen[path] = true
	v.result.Variables = append(v.result.Variables, path)
}

// references reports whether name or a path below it is used.
func (v *validator) references(name string) bool {
	for _, path := range v.result.Variables {
		if path == name || strings.HasPrefix(path, name+".") {
			return true
		}
	}
	return false
}
