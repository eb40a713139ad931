package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeWhitespace(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"collapse spaces and tabs", "a  \t b", "a b"},
		{"crlf", "a\r\nb", "a\nb"},
		{"paragraph break kept", "a\n\nb", "a\n\nb"},
		{"blank lines capped", "a\n\n\n\n\nb", "a\n\nb"},
		{"blank lines with spaces", "a\n  \n\t\n \nb", "a\n\nb"},
		{"trimmed", "  \n a \n ", "a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeWhitespace(tt.in))
		})
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"script element", "<p>Hi</p><script>alert(1)</script>", "<p>Hi</p>"},
		{"multiline script", "a<SCRIPT type=\"x\">\nalert(1)\n</SCRIPT >b", "ab"},
		{"iframe", `<iframe src="x"></iframe>after`, "after"},
		{"object and embed", `<object data="x"><embed src="y"></embed></object>ok`, "ok"},
		{"stray tag", "a</script>b<embed src=x>", "ab"},
		{"event handler", `<img src=x onerror=alert(1)>`, "<img src=x>"},
		{"quoted handler", `<a href="/x" onclick="go()">link</a>`, `<a href="/x">link</a>`},
		{"javascript url", `<a href="javascript:alert(1)">x</a>`, `<a href="alert(1)">x</a>`},
		{"handler-like text outside tags", "the onset=early stage", "the onset=early stage"},
		{"plain text", "Fees are £950 per week", "Fees are £950 per week"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitize(tt.in))
		})
	}
}

func TestPostProcess_Options(t *testing.T) {
	in := "  <b onclick=\"x()\">Hi</b>   there  "

	opts := DefaultOptions()
	assert.Equal(t, "<b>Hi</b> there", postProcess(in, &opts))

	opts.PreserveWhitespace = true
	assert.Equal(t, "  <b>Hi</b>   there  ", postProcess(in, &opts))

	opts.AllowUnsafeContent = true
	assert.Equal(t, in, postProcess(in, &opts))

	opts = DefaultOptions()
	opts.SanitizeOutput = Bool(false)
	assert.Equal(t, "<b onclick=\"x()\">Hi</b> there", postProcess(in, &opts))
}
