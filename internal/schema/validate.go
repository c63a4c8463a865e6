package schema

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Validate checks that doc (the composer's own output) is itself a
// structurally valid JSON Schema document. It never validates a
// chart's values.yaml against the composed schema — that remains a
// Non-goal — it only guards against the composer emitting a fragment
// that no JSON Schema consumer could load.
func Validate(doc map[string]interface{}) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling composed schema: %w", err)
	}

	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("decoding composed schema: %w", err)
	}

	c := jsonschema.NewCompiler()

	const resourceURL = "helmschema://composed-schema.json"

	if err := c.AddResource(resourceURL, decoded); err != nil {
		return fmt.Errorf("composed schema is not well-formed: %w", err)
	}

	if _, err := c.Compile(resourceURL); err != nil {
		return fmt.Errorf("composed schema failed meta-schema validation: %w", err)
	}

	return nil
}
