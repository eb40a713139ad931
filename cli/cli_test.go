package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/randalmurphal/docgen/template"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// execute runs the CLI in-process and returns stdout and stderr.
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const welcomeTemplate = `---
name: welcome
required: [organization.name, record.name]
---
Dear {{record.name}}, welcome to {{organization.name}} on {{formatDate(currentDate, "D MMMM YYYY")}}.`

func TestRender_DataFormats(t *testing.T) {
	dir := t.TempDir()
	tmpl := writeFile(t, filepath.Join(dir, "welcome.tmpl"), welcomeTemplate)

	tests := []struct {
		name string
		file string
		data string
	}{
		{"yaml", "data.yaml", "organization:\n  name: Oak House\nrecord:\n  name: Mary Jones\n"},
		{"json", "data.json", `{"organization": {"name": "Oak House"}, "record": {"name": "Mary Jones"}}`},
		{"toml", "data.toml", "[organization]\nname = \"Oak House\"\n\n[record]\nname = \"Mary Jones\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := writeFile(t, filepath.Join(t.TempDir(), tt.file), tt.data)
			out, _, err := execute(t, "", "render", "-d", data, "--now", "2025-01-06", tmpl)
			require.NoError(t, err)
			assert.Equal(t, "Dear Mary Jones, welcome to Oak House on 6 January 2025.\n", out)
		})
	}
}

func TestRender_StdinAndSet(t *testing.T) {
	out, _, err := execute(t, "Hello {{name}} from {{ward}}", "render", "--set", "name=Oak", "--set", "ward=East Wing", "-")
	require.NoError(t, err)
	assert.Equal(t, "Hello Oak from East Wing\n", out)
}

func TestRender_Strict(t *testing.T) {
	_, _, err := execute(t, "Hello {{missing}}", "render", "--strict", "-")
	require.Error(t, err)
	assert.True(t, template.IsUnresolved(err))

	out, _, err := execute(t, "Hello {{missing}}", "render", "-")
	require.NoError(t, err)
	assert.Equal(t, "Hello\n", out)
}

func TestRender_FrontMatterOptions(t *testing.T) {
	tmpl := writeFile(t, filepath.Join(t.TempDir(), "strict.tmpl"), "---\noptions:\n  strict_mode: true\n---\n{{missing}}")

	_, _, err := execute(t, "", "render", tmpl)
	assert.True(t, template.IsUnresolved(err))
}

func TestRender_BatchToOutDir(t *testing.T) {
	root := t.TempDir()
	templates := filepath.Join(root, "templates")
	writeFile(t, filepath.Join(templates, "header.tmpl"), "{{organization.name}}")
	writeFile(t, filepath.Join(templates, "letters", "welcome.tmpl"), "{{> header}}: welcome {{record.name}}")
	writeFile(t, filepath.Join(templates, "letters", "notice.tmpl"), "{{> header}}: notice")
	data := writeFile(t, filepath.Join(root, "data.yaml"), "organization:\n  name: Oak House\nrecord:\n  name: Mary\n")
	outDir := filepath.Join(root, "build")

	out, _, err := execute(t, "", "render", "-t", templates, "-d", data, "-o", outDir, "letters/welcome", "letters/notice")
	require.NoError(t, err)

	welcome := filepath.Join(outDir, "letters", "welcome.txt")
	notice := filepath.Join(outDir, "letters", "notice.txt")
	assert.Equal(t, welcome+"\n"+notice+"\n", out)

	got, err := os.ReadFile(welcome)
	require.NoError(t, err)
	assert.Equal(t, "Oak House: welcome Mary\n", string(got))

	got, err = os.ReadFile(notice)
	require.NoError(t, err)
	assert.Equal(t, "Oak House: notice\n", string(got))
}

func TestRender_ConcurrentOrder(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, filepath.Join(dir, "docgen.toml"), "workers = 2\n")

	args := []string{"render", "--config", cfg}
	var want strings.Builder
	for i := 0; i < 8; i++ {
		args = append(args, writeFile(t, filepath.Join(dir, fmt.Sprintf("t%d.tmpl", i)), fmt.Sprintf("doc {{n}} #%d", i)))
		fmt.Fprintf(&want, "doc 7 #%d\n", i)
	}
	args = append(args, "--set", "n=7")

	out, _, err := execute(t, "", args...)
	require.NoError(t, err)
	assert.Equal(t, want.String(), out)
}

func TestRender_Errors(t *testing.T) {
	dir := t.TempDir()
	badConfig := writeFile(t, filepath.Join(dir, "bad.toml"), "log_level = \"loud\"\n")
	badData := writeFile(t, filepath.Join(dir, "data.csv"), "a,b")

	tests := []struct {
		name    string
		stdin   string
		args    []string
		wantErr string
	}{
		{"missing template", "", []string{"render", "nope"}, `template "nope" not found`},
		{"no args", "", []string{"render"}, "requires at least 1 arg"},
		{"bad set", "x", []string{"render", "--set", "novalue", "-"}, "expected key=value"},
		{"bad now", "x", []string{"render", "--now", "tomorrow", "-"}, "--now"},
		{"bad data format", "x", []string{"render", "-d", badData, "-"}, "unsupported data format"},
		{"invalid config", "x", []string{"render", "--config", badConfig, "-"}, "invalid config"},
		{"watch without dir", "x", []string{"render", "--watch", "-"}, "--watch requires"},
		{"missing template dir", "x", []string{"render", "-t", filepath.Join(dir, "missing"), "-"}, "template dir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.stdin, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, filepath.Join(dir, "welcome.tmpl"), welcomeTemplate)
	bad := writeFile(t, filepath.Join(dir, "broken.tmpl"), "{{#if a}}never closed")

	out, _, err := execute(t, "", "validate", "--expect", "record.room", good)
	require.NoError(t, err)
	assert.Contains(t, out, "welcome: ok")
	assert.Contains(t, out, `warning: expected variable "record.room" is not used in the template`)
	assert.Contains(t, out, "variables: [record.name organization.name currentDate]")

	out, _, err = execute(t, "", "validate", good, bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 templates failed validation")
	assert.Contains(t, out, "broken: invalid")
	assert.Contains(t, out, "error: {{#if a}} at offset 0 is never closed")
}

func TestValidate_AllJSON(t *testing.T) {
	templates := t.TempDir()
	writeFile(t, filepath.Join(templates, "welcome.tmpl"), welcomeTemplate)
	writeFile(t, filepath.Join(templates, "footer.tmpl"), "{{shout(user.name)}}")

	out, _, err := execute(t, "", "validate", "-t", templates, "--all", "--json")
	require.NoError(t, err)

	var reports []validateReport
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 2)
	assert.Equal(t, "footer", reports[0].Template)
	assert.Equal(t, []string{`unknown function "shout"`}, reports[0].Warnings)
	assert.Equal(t, "welcome", reports[1].Template)
	assert.True(t, reports[1].Valid)
	assert.Equal(t, []string{"organization.name", "record.name"}, reports[1].ExpectedVariables)
}

func TestValidate_Errors(t *testing.T) {
	_, _, err := execute(t, "", "validate")
	assert.ErrorContains(t, err, "no templates given")

	_, _, err = execute(t, "", "validate", "--all")
	assert.ErrorContains(t, err, "--all requires a template directory")
}

func TestFunctions(t *testing.T) {
	out, _, err := execute(t, "", "functions")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "formatCurrency")
	assert.Contains(t, out, `{{formatDate(currentDate, "DD/MM/YYYY")}}`)

	out, _, err = execute(t, "", "functions", "--json")
	require.NoError(t, err)
	var fns []template.Function
	require.NoError(t, json.Unmarshal([]byte(out), &fns))
	assert.Len(t, fns, len(template.NewRegistry().List()))
	assert.Equal(t, "calculateAge", fns[0].Name)
}

func TestSchema(t *testing.T) {
	out, _, err := execute(t, "", "schema", "options")
	require.NoError(t, err)
	assert.Contains(t, out, `"strict_mode"`)

	out, _, err = execute(t, "", "schema", "validation")
	require.NoError(t, err)
	assert.Contains(t, out, `"expected_variables"`)

	_, _, err = execute(t, "", "schema", "bogus")
	assert.ErrorContains(t, err, "unknown schema")
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "", "--version")
	require.NoError(t, err)
	assert.Contains(t, out, Version)
}
