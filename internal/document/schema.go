package document

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// extractionSchema is the least a payload must satisfy to count as a
// document: a JSON object naming its template. Sections are not constrained
// here; missing or mistyped sections are absorbed by Decode.
const extractionSchema = `{
  "type": "object",
  "properties": {
    "template":   {"type": "string", "minLength": 1},
    "templateId": {"type": "string", "minLength": 1}
  },
  "anyOf": [
    {"required": ["template"]},
    {"required": ["templateId"]}
  ]
}`

var compiledSchema = jsonschema.MustCompileString("extraction.json", extractionSchema)

func validatePayload(payload []byte) error {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if dec.More() {
		return fmt.Errorf("invalid JSON: trailing data after document")
	}
	if err := compiledSchema.Validate(v); err != nil {
		return fmt.Errorf("payload does not match schema: %w", err)
	}
	return nil
}
