package extract

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// DefaultSchema describes the shape DefaultInstructions asks for. It is the
// diagnostic schema used when no prompt file supplies its own.
const DefaultSchema = `{
  "type": "object",
  "required": ["title", "doc_type", "date", "parties", "identifiers", "amounts", "summary", "key_points", "language"],
  "properties": {
    "title": {"type": "string"},
    "doc_type": {"type": "string"},
    "date": {"type": ["string", "null"]},
    "parties": {"type": "array", "items": {"type": "string"}},
    "identifiers": {"type": "object", "additionalProperties": {"type": "string"}},
    "amounts": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["label", "value"],
        "properties": {
          "label": {"type": "string"},
          "value": {"type": "number"},
          "currency": {"type": ["string", "null"]}
        }
      }
    },
    "summary": {"type": "string"},
    "key_points": {"type": "array", "items": {"type": "string"}},
    "language": {"type": "string"}
  }
}`

// CompileSchema compiles a JSON Schema source for diagnostic validation of
// captured output. Validation results are logged only; they never decide
// whether output is persisted.
func CompileSchema(schemaJSON string) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", strings.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}

	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	return schema, nil
}
