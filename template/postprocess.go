package template

import (
	"regexp"
	"strings"
)

var (
	horizontalSpacePattern = regexp.MustCompile(`[ \t]+`)
	blankLinesPattern      = regexp.MustCompile(`\n(?:[ \t]*\n){2,}`)

	// unsafeElementPatterns remove whole elements including their content.
	unsafeElementPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`),
		regexp.MustCompile(`(?is)<iframe\b[^>]*>.*?</iframe\s*>`),
		regexp.MustCompile(`(?is)<object\b[^>]*>.*?</object\s*>`),
		regexp.MustCompile(`(?is)<embed\b[^>]*>.*?</embed\s*>`),
	}
	unsafeTagPattern     = regexp.MustCompile(`(?i)</?(?:script|iframe|object|embed)\b[^>]*>`)
	htmlTagPattern       = regexp.MustCompile(`<[A-Za-z][^>]*>`)
	eventHandlerPattern  = regexp.MustCompile(`(?i)\s+on[a-z]+\s*=\s*(?:"[^"]*"|'[^']*'|[^\s>]+)`)
	javascriptURIPattern = regexp.MustCompile(`(?i)javascript\s*:`)
)

// postProcess applies whitespace normalization and sanitization as opts allow.
func postProcess(text string, opts *Options) string {
	if !opts.PreserveWhitespace {
		text = normalizeWhitespace(text)
	}
	if opts.ShouldSanitize() {
		text = sanitize(text)
	}
	return text
}

// normalizeWhitespace collapses runs of spaces and tabs, keeps at most one
// blank line between paragraphs, and trims the result.
func normalizeWhitespace(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = horizontalSpacePattern.ReplaceAllString(text, " ")
	text = blankLinesPattern.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// sanitize strips script-like elements, inline event handlers and
// javascript: URLs.
func sanitize(text string) string {
	for _, p := range unsafeElementPatterns {
		text = p.ReplaceAllString(text, "")
	}
	text = unsafeTagPattern.ReplaceAllString(text, "")
	text = htmlTagPattern.ReplaceAllStringFunc(text, func(tag string) string {
		return eventHandlerPattern.ReplaceAllString(tag, "")
	})
	return javascriptURIPattern.ReplaceAllString(text, "")
}
