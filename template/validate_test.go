package template

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestValidate_References(t *testing.T) {
	content := `{{#if organization.registered}}{{organization.name}}{{/if}}
{{#each staff as s}}{{s.name}} {{shout(s.role)}} {{#if !s_last}},{{/if}}{{/each}}
{{#each rooms}}{{item.number}}{{/each}}
{{title}} {{formatDate(record.reviewDate, "D MMMM YYYY")}} {{shout(title)}}
{{> footer}}`

	got := validate(content, []string{"organization", "title", "manager"}, NewRegistry())

	want := ValidationResult{
		Valid:             true,
		Errors:            []string{},
		Warnings:          []string{`unknown function "shout"`, `expected variable "manager" is not used in the template`},
		Variables:         []string{"organization.registered", "organization.name", "staff", "rooms", "title", "record.reviewDate"},
		ExpectedVariables: []string{"organization", "title", "manager"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("validate() mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{"each without path", "{{#each}}x{{/each}}", []string{"{{#each}} at offset 0 needs a list path"}},
		{"if without condition", "{{#if}}x{{/if}}", []string{"{{#if}} at offset 0 needs a condition"}},
		{"close without open", "a {{/if}}", []string{"{{/if}} at offset 2 has no opening tag"}},
		{"crossed blocks", "{{#if a}}{{/each}}", []string{"{{/each}} at offset 9 closes a block opened at offset 0"}},
		{"never closed", "{{#each xs}}", []string{"{{#each xs}} at offset 0 is never closed"}},
		{"stray else", "{{#else}}", []string{"{{#else}} at offset 0 is outside an {{#if}}"}},
		{"unclosed tag", "Hello {{name", []string{"unclosed tag at offset 6"}},
		{"stray close", "Hello name}}", []string{"unexpected }} at offset 10"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := validate(tt.content, nil, NewRegistry())
			assert.False(t, got.Valid)
			if diff := cmp.Diff(tt.want, got.Errors); diff != "" {
				t.Errorf("errors mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidate_Clean(t *testing.T) {
	got := validate("Plain text", nil, NewRegistry())
	assert.True(t, got.Valid)
	assert.NotNil(t, got.Errors)
	assert.NotNil(t, got.Warnings)
	assert.NotNil(t, got.Variables)
	assert.NotNil(t, got.ExpectedVariables)
	assert.Empty(t, got.Variables)
}

func TestEngine_ValidateUsesRegistry(t *testing.T) {
	engine := newTestEngine()
	engine.RegisterFunction(Function{Name: "shout", Handler: stringFunc("shout", func(s string) string { return s + "!" })})

	got := engine.Validate("{{shout(name)}}", []string{"name"})
	assert.True(t, got.Valid)
	assert.Empty(t, got.Warnings)
	assert.Equal(t, []string{"name"}, got.Variables)
}

func TestValidate_LoopLocalsAreScoped(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{"name reused after loop", "{{#each staff as name}}{{name.first}}{{/each}} Dear {{name}}", []string{"staff", "name"}},
		{"name used before loop", "{{item}} {{#each rooms}}{{item.number}}{{/each}}", []string{"item", "rooms"}},
		{"nested loop over local", "{{#each rows as r}}{{#each r as c}}{{c}}{{r_index}}{{/each}}{{/each}}", []string{"rows"}},
		{"index outside loop", "{{#each rows as r}}{{/each}}{{r_index}}", []string{"rows", "r_index"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := validate(tt.content, nil, NewRegistry())
			assert.True(t, got.Valid)
			assert.Equal(t, tt.want, got.Variables)
		})
	}

	got := validate("{{#each staff as name}}{{name}}{{/each}} Dear {{name}}", []string{"name"}, NewRegistry())
	assert.Empty(t, got.Warnings)
}
