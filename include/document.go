package include

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/randalmurphal/docgen/template"
)

// ErrFrontMatter is returned when a document opens front matter but never
// closes it, or the front matter is not valid YAML.
var ErrFrontMatter = errors.New("invalid front matter")

// Names is a list of variable paths. In YAML it may be written as a
// sequence or as a comma-separated string.
type Names []string

// UnmarshalYAML implements yaml.Unmarshaler to handle both string and array formats.
func (n *Names) UnmarshalYAML(value *yaml.Node) error {
	var arr []string
	if err := value.Decode(&arr); err == nil {
		*n = arr
		return nil
	}

	var str string
	if err := value.Decode(&str); err == nil {
		parts := strings.Split(str, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		*n = result
		return nil
	}

	return errors.New("required must be a string or array")
}

// Document is a template file: optional YAML front matter between "---"
// lines, followed by the template body.
type Document struct {
	// Front matter fields
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Required    Names  `yaml:"required,omitempty" json:"required,omitempty"`

	// options overrides processing options for this document only.
	options yaml.Node

	// Body is the template text after the front matter, without leading
	// or trailing line breaks.
	Body string `yaml:"-" json:"body"`

	// Path is the file the document was loaded from, if any.
	Path string `yaml:"-" json:"path,omitempty"`
}

// frontMatter is the decoded header; options stay raw so they can be
// applied on top of caller defaults.
type frontMatter struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Required    Names     `yaml:"required"`
	Options     yaml.Node `yaml:"options"`
}

// Parse splits data into front matter and body. A document that does not
// start with "---" is all body.
func Parse(data []byte) (*Document, error) {
	if !bytes.HasPrefix(data, []byte("---")) {
		return &Document{Body: trimBody(string(data))}, nil
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), len(data)+1)
	var headerLines []string
	var bodyLines []string
	inHeader := false
	foundEnd := false

	lineNum := 0
	for scanner.Scan() {
		line := scanner.Text()
		lineNum++

		if lineNum == 1 && strings.TrimRight(line, " \t\r") == "---" {
			inHeader = true
			continue
		}
		if lineNum == 1 {
			// "---" starts a longer line: not front matter.
			return &Document{Body: trimBody(string(data))}, nil
		}

		if inHeader && strings.TrimRight(line, " \t\r") == "---" {
			inHeader = false
			foundEnd = true
			continue
		}

		if inHeader {
			headerLines = append(headerLines, line)
		} else if foundEnd {
			bodyLines = append(bodyLines, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan document: %w", err)
	}
	if !foundEnd {
		return nil, fmt.Errorf("%w: missing closing ---", ErrFrontMatter)
	}

	var fm frontMatter
	if err := yaml.Unmarshal([]byte(strings.Join(headerLines, "\n")), &fm); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFrontMatter, err)
	}

	return &Document{
		Name:        fm.Name,
		Description: fm.Description,
		Required:    fm.Required,
		options:     fm.Options,
		Body:        trimBody(strings.Join(bodyLines, "\n")),
	}, nil
}

// trimBody drops leading and trailing blank lines but keeps indentation.
func trimBody(s string) string {
	return strings.Trim(s, "\r\n")
}

// Options returns base with the document's front-matter options applied.
// Fields the document does not mention keep their base value.
func (d *Document) Options(base template.Options) (template.Options, error) {
	if d.options.Kind == 0 {
		return base, nil
	}
	opts := base
	if base.SanitizeOutput != nil {
		// Decoding writes through a non-nil pointer; keep base untouched.
		opts.SanitizeOutput = template.Bool(*base.SanitizeOutput)
	}
	if err := d.options.Decode(&opts); err != nil {
		return base, fmt.Errorf("%w: options: %w", ErrFrontMatter, err)
	}
	if err := opts.Validate(); err != nil {
		return base, err
	}
	return opts, nil
}

// Validate statically checks the body and that every required variable
// is referenced.
func (d *Document) Validate(engine *template.Engine) template.ValidationResult {
	return engine.Validate(d.Body, d.Required)
}
