package template

import (
	"regexp"
	"strconv"
	"strings"
)

// tagPattern matches any {{...}} tag. Inner text is trimmed by the caller.
var tagPattern = regexp.MustCompile(`(?s)\{\{(.*?)\}\}`)

var (
	// {{#each items}} or {{#each items as x}}
	eachArgsPattern = regexp.MustCompile(`^(\S+)(?:\s+as\s+([A-Za-z_]\w*))?$`)
	// {{name(args)}}
	callPattern = regexp.MustCompile(`^([A-Za-z_]\w*)\s*\((.*)\)$`)
	// {{> name}} or {{> "name"}}
	includePattern = regexp.MustCompile(`\{\{\s*>\s*"?([\w./-]+)"?\s*\}\}`)
	// {{organization.name}}, {{staff.0.role}}
	variablePattern = regexp.MustCompile(`\{\{\s*([A-Za-z_]\w*(?:\.\w+)*)\s*\}\}`)
	// {{upper(name)}}; the call body is parsed by parseCall
	functionPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_]\w*\s*\(.*?\))\s*\}\}`)
	// a bare dotted path
	pathPattern = regexp.MustCompile(`^[A-Za-z_]\w*(?:\.\w+)*$`)
	// 42, -3.5, .5, 1e3
	numberPattern = regexp.MustCompile(`^[-+]?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?$`)
)

// defaultAlias names the loop element when a loop has no "as" clause.
const defaultAlias = "item"

// tagKind classifies a {{...}} tag.
type tagKind int

const (
	tagOther tagKind = iota
	tagEachOpen
	tagEachClose
	tagIfOpen
	tagIfClose
	tagElse
)

// tag is one {{...}} occurrence in a template.
type tag struct {
	kind       tagKind
	start, end int    // byte span of the whole tag
	args       string // text after #each / #if
}

// scanTags finds and classifies every tag in text.
func scanTags(text string) []tag {
	locs := tagPattern.FindAllStringSubmatchIndex(text, -1)
	tags := make([]tag, 0, len(locs))
	for _, loc := range locs {
		inner := strings.TrimSpace(text[loc[2]:loc[3]])
		t := tag{start: loc[0], end: loc[1]}
		t.kind, t.args = classify(inner)
		tags = append(tags, t)
	}
	return tags
}

func classify(inner string) (tagKind, string) {
	switch {
	case inner == "/each":
		return tagEachClose, ""
	case inner == "/if":
		return tagIfClose, ""
	case inner == "#else" || inner == "else":
		return tagElse, ""
	case keyword(inner, "#each"):
		return tagEachOpen, strings.TrimSpace(inner[len("#each"):])
	case keyword(inner, "#if"):
		return tagIfOpen, strings.TrimSpace(inner[len("#if"):])
	}
	return tagOther, ""
}

// keyword reports whether s is kw alone or kw followed by whitespace.
func keyword(s, kw string) bool {
	if !strings.HasPrefix(s, kw) {
		return false
	}
	rest := s[len(kw):]
	return rest == "" || rest[0] == ' ' || rest[0] == '\t' || rest[0] == '\n'
}

// block is a matched #each or #if construct.
type block struct {
	start, end int // whole block, open tag through close tag
	args       string
	body       string // if-branch or loop body
	alt        string // else-branch
	hasElse    bool
}

// findBlock returns the first well-formed block opened by open and closed
// by close. Opens without a matching close are skipped and stay literal.
func findBlock(text string, open, close tagKind) (block, bool) {
	tags := scanTags(text)
	for i, first := range tags {
		if first.kind != open {
			continue
		}
		depth := 0
		elseAt := -1
		for j := i; j < len(tags); j++ {
			t := tags[j]
			switch t.kind {
			case open:
				depth++
			case close:
				depth--
			case tagElse:
				if open == tagIfOpen && depth == 1 && elseAt < 0 {
					elseAt = j
				}
			}
			if depth != 0 {
				continue
			}
			b := block{start: first.start, end: t.end, args: first.args}
			if elseAt >= 0 {
				b.body = text[first.end:tags[elseAt].start]
				b.alt = text[tags[elseAt].end:t.start]
				b.hasElse = true
			} else {
				b.body = text[first.end:t.start]
			}
			return b, true
		}
	}
	return block{}, false
}

// parseEachArgs splits "items as x" into path and alias.
func parseEachArgs(args string) (path, alias string, ok bool) {
	m := eachArgsPattern.FindStringSubmatch(strings.TrimSpace(args))
	if m == nil {
		return "", "", false
	}
	alias = m[2]
	if alias == "" {
		alias = defaultAlias
	}
	return m[1], alias, true
}

// splitArguments splits a call's argument list on top-level commas,
// respecting quoted strings and nested parentheses.
func splitArguments(args string) []string {
	if strings.TrimSpace(args) == "" {
		return nil
	}
	var parts []string
	var current strings.Builder
	inQuote := false
	quoteChar := byte(0)
	depth := 0

	for i := 0; i < len(args); i++ {
		ch := args[i]
		switch {
		case inQuote:
			current.WriteByte(ch)
			if ch == '\\' && i+1 < len(args) {
				i++
				current.WriteByte(args[i])
				continue
			}
			if ch == quoteChar {
				inQuote = false
			}
		case ch == '"' || ch == '\'':
			inQuote = true
			quoteChar = ch
			current.WriteByte(ch)
		case ch == '(':
			depth++
			current.WriteByte(ch)
		case ch == ')':
			depth--
			current.WriteByte(ch)
		case ch == ',' && depth == 0:
			parts = append(parts, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteByte(ch)
		}
	}
	parts = append(parts, strings.TrimSpace(current.String()))
	return parts
}

// isQuotedString checks if a string is wrapped in matching quotes.
func isQuotedString(s string) bool {
	if len(s) < 2 {
		return false
	}
	return (strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`)) ||
		(strings.HasPrefix(s, `'`) && strings.HasSuffix(s, `'`))
}

// unquote strips the quotes of a literal and resolves \" \' and \\ escapes.
func unquote(s string) string {
	quote := s[0]
	inner := s[1 : len(s)-1]
	if !strings.Contains(inner, `\`) {
		return inner
	}
	var b strings.Builder
	for i := 0; i < len(inner); i++ {
		if inner[i] == '\\' && i+1 < len(inner) && (inner[i+1] == quote || inner[i+1] == '\\') {
			i++
		}
		b.WriteByte(inner[i])
	}
	return b.String()
}

// isNumber checks if a string is a decimal numeric literal.
func isNumber(s string) bool {
	return numberPattern.MatchString(s)
}

// literal interprets a token as a constant. ok is false for paths.
func literal(tok string) (any, bool) {
	switch {
	case isQuotedString(tok):
		return unquote(tok), true
	case isNumber(tok):
		f, _ := strconv.ParseFloat(tok, 64)
		return f, true
	case tok == "true":
		return true, true
	case tok == "false":
		return false, true
	case tok == "null" || tok == "nil":
		return nil, true
	}
	return nil, false
}

// call is a parsed function call.
type call struct {
	name string
	args []string
}

// parseCall parses "name(a, b)".
func parseCall(expr string) (call, bool) {
	m := callPattern.FindStringSubmatch(strings.TrimSpace(expr))
	if m == nil {
		return call{}, false
	}
	return call{name: m[1], args: splitArguments(m[2])}, true
}

// protectedBrace stands in for "{" inside substituted values so later
// passes never read data as template syntax.
const protectedBrace = "\uE000"

func protect(s string) string {
	return strings.ReplaceAll(s, "{", protectedBrace)
}

func unprotect(s string) string {
	return strings.ReplaceAll(s, protectedBrace, "{")
}
