package ai

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ValidateExpectedFields checks that an AI reply carries every field an
// `expected_fields` clause named (spec.md §4.4), the way dsl.Validate
// checks a flow document: build a JSON-Schema "required" document on the
// fly and run it through jsonschema.
func ValidateExpectedFields(reply any, expectedFields []string) error {
	if len(expectedFields) == 0 {
		return nil
	}
	obj, ok := reply.(map[string]any)
	if !ok {
		return fmt.Errorf("expected_fields requires an object reply, got %T", reply)
	}

	schemaDoc := map[string]any{
		"type":     "object",
		"required": expectedFields,
	}
	schemaBytes, err := json.Marshal(schemaDoc)
	if err != nil {
		return err
	}
	schema, err := jsonschema.CompileString("expected_fields-"+strconv.Itoa(len(expectedFields)), string(schemaBytes))
	if err != nil {
		return fmt.Errorf("compile expected_fields schema: %w", err)
	}
	if err := schema.Validate(obj); err != nil {
		return fmt.Errorf("ai reply missing expected fields: %w", err)
	}
	return nil
}
