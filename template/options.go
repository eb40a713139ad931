package template

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
)

// Default limits applied by DefaultOptions.
const (
	DefaultMaxDepth       = 16
	DefaultMaxIterations  = 10000
	DefaultMaxOutputBytes = 8 << 20
	DefaultLocale         = "en-GB"
	DefaultTimezone       = "Europe/London"
)

// Options controls a single Process call.
// The zero value is usable: zero limits, locale and timezone take their
// defaults and sanitization stays on.
type Options struct {
	// StrictMode makes an unresolved variable fail the whole render.
	// When false, unresolved variables render as empty strings.
	StrictMode bool `json:"strict_mode" yaml:"strict_mode" toml:"strict_mode" jsonschema:"description=Fail the render on unresolved variables"`

	// AllowUnsafeContent skips output sanitization.
	AllowUnsafeContent bool `json:"allow_unsafe_content" yaml:"allow_unsafe_content" toml:"allow_unsafe_content"`

	// PreserveWhitespace skips whitespace normalization.
	PreserveWhitespace bool `json:"preserve_whitespace" yaml:"preserve_whitespace" toml:"preserve_whitespace"`

	// SanitizeOutput strips script-like content from the result.
	// nil means on. Ignored when AllowUnsafeContent is set.
	SanitizeOutput *bool `json:"sanitize_output,omitempty" yaml:"sanitize_output,omitempty" toml:"sanitize_output,omitempty" jsonschema:"default=true"`

	// Locale is a BCP 47 tag used by currency and case functions.
	Locale string `json:"locale" yaml:"locale" toml:"locale" jsonschema:"example=en-GB"`

	// Timezone is an IANA zone name used for system date values.
	Timezone string `json:"timezone" yaml:"timezone" toml:"timezone" jsonschema:"example=Europe/London"`

	// MaxDepth bounds nested loop and include expansion. 0 means default.
	MaxDepth int `json:"max_depth" yaml:"max_depth" toml:"max_depth" jsonschema:"minimum=0"`

	// MaxIterations bounds the total loop iterations of one render. 0 means default.
	MaxIterations int `json:"max_iterations" yaml:"max_iterations" toml:"max_iterations" jsonschema:"minimum=0"`

	// MaxOutputBytes bounds the expanded text size. 0 means default.
	MaxOutputBytes int `json:"max_output_bytes" yaml:"max_output_bytes" toml:"max_output_bytes" jsonschema:"minimum=0"`
}

// DefaultOptions returns Options with sanitization on and the default
// locale, timezone and limits.
func DefaultOptions() Options {
	return Options{
		Locale:         DefaultLocale,
		Timezone:       DefaultTimezone,
		MaxDepth:       DefaultMaxDepth,
		MaxIterations:  DefaultMaxIterations,
		MaxOutputBytes: DefaultMaxOutputBytes,
	}
}

// Validate checks limits, locale and timezone.
func (o *Options) Validate() error {
	if o.MaxDepth < 0 {
		return fmt.Errorf("%w: max_depth must be >= 0, got %d", ErrInvalidOptions, o.MaxDepth)
	}
	if o.MaxIterations < 0 {
		return fmt.Errorf("%w: max_iterations must be >= 0, got %d", ErrInvalidOptions, o.MaxIterations)
	}
	if o.MaxOutputBytes < 0 {
		return fmt.Errorf("%w: max_output_bytes must be >= 0, got %d", ErrInvalidOptions, o.MaxOutputBytes)
	}
	if o.Locale != "" {
		if _, err := language.Parse(o.Locale); err != nil {
			return fmt.Errorf("%w: locale %q: %w", ErrInvalidOptions, o.Locale, err)
		}
	}
	if o.Timezone != "" {
		if _, err := time.LoadLocation(o.Timezone); err != nil {
			return fmt.Errorf("%w: timezone %q: %w", ErrInvalidOptions, o.Timezone, err)
		}
	}
	return nil
}

// withDefaults fills zero limits, locale and timezone.
func (o Options) withDefaults() Options {
	if o.MaxDepth == 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.MaxIterations == 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.MaxOutputBytes == 0 {
		o.MaxOutputBytes = DefaultMaxOutputBytes
	}
	if o.Locale == "" {
		o.Locale = DefaultLocale
	}
	if o.Timezone == "" {
		o.Timezone = DefaultTimezone
	}
	return o
}

// ShouldSanitize reports whether the post-processor strips unsafe content.
func (o *Options) ShouldSanitize() bool {
	if o.AllowUnsafeContent {
		return false
	}
	return o.SanitizeOutput == nil || *o.SanitizeOutput
}

// Bool returns a pointer to v, for setting SanitizeOutput.
func Bool(v bool) *bool {
	return &v
}
