// Package template renders care-home documents (policies, certificates,
// notices) from templates and structured data.
//
// Rendering is a fixed pipeline of text-rewriting passes:
// includes, loops, conditionals, functions, variables. Loops re-run the
// whole pipeline on their body for each element. Whitespace normalization
// and sanitization run once on the result.
//
// # Syntax
//
// Variables use double braces and dotted paths:
//
//	Dear {{user.name}}, welcome to {{organization.name}}.
//
// Conditionals compare two operands or test one for truthiness:
//
//	{{#if record.status == "active"}}Active{{#else}}Archived{{/if}}
//	{{#if organization.registered}}Registered with the CQC{{/if}}
//
// Loops bind each element to an alias (default "item"), plus
// alias_index, alias_first and alias_last:
//
//	{{#each staff as s}}{{s.name}}{{#if !s_last}}, {{/if}}{{/each}}
//
// Functions take string, number and path arguments:
//
//	{{formatDate(currentDate, "DD/MM/YYYY")}}
//	{{formatCurrency(record.weeklyFee)}}
//
// Includes expand named templates from a Source:
//
//	{{> footer}}
//
// # Errors
//
// Only strict-mode unresolved variables (ErrUnresolved) and exhausted
// render budgets (ErrLimitExceeded) fail a render. A loop over a non-list,
// a condition that cannot be evaluated, or a failing function renders as
// empty text; an unknown function is left verbatim. These are logged.
//
// # Example
//
//	engine := template.NewEngine()
//	out, err := engine.Process("Hello {{name}}", &template.Context{
//		Variables: map[string]any{"name": "Oak House"},
//	}, nil)
//	// out: "Hello Oak House"
package template
