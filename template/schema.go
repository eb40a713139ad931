package template

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// OptionsSchema returns the JSON Schema of Options, for hosts that accept
// processing options over an API.
func OptionsSchema() ([]byte, error) {
	return reflectSchema(&Options{}, "Template processing options")
}

// ValidationResultSchema returns the JSON Schema of ValidationResult.
func ValidationResultSchema() ([]byte, error) {
	return reflectSchema(&ValidationResult{}, "Template validation result")
}

func reflectSchema(v any, title string) ([]byte, error) {
	r := &jsonschema.Reflector{
		DoNotReference:            true,
		AllowAdditionalProperties: false,
	}
	s := r.Reflect(v)
	s.Title = title
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return b, nil
}
