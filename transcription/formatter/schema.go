package formatter

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/invopop/jsonschema"
)

// Schema returns the JSON Schema of the response document.
func Schema() ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference:            true,
		AllowAdditionalProperties: true,
	}
	s := r.Reflect(&Response{})
	s.Title = "Listen response"

	// utterances is omitted when not requested.
	if results, ok := s.Properties.Get("results"); ok && results != nil {
		results.Required = slices.DeleteFunc(results.Required, func(name string) bool {
			return name == "utterances"
		})
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal response schema: %w", err)
	}
	return data, nil
}
