// Package cli implements the docgen command line: render, validate,
// functions and schema.
//
// Configuration is resolved in order: config file (--config), DOCGEN_*
// environment variables, then flags.
package cli
