package aiextract

import (
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// replySchema is the strict output contract. Author is deliberately loose:
// models sometimes emit an object there and it is dropped rather than
// failing the whole reply.
const replySchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["title", "ingredients", "instructions"],
  "properties": {
    "title": {"type": "string"},
    "author": {},
    "ingredients": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["ingredients"],
        "properties": {
          "groupName": {"type": ["string", "null"]},
          "ingredients": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["amount", "units", "ingredient"],
              "properties": {
                "amount": {"type": "string"},
                "units": {"type": "string"},
                "ingredient": {"type": "string"}
              }
            }
          }
        }
      }
    },
    "instructions": {
      "type": "array",
      "items": {
        "oneOf": [
          {"type": "string"},
          {
            "type": "object",
            "properties": {
              "title": {"type": ["string", "null"]},
              "detail": {"type": ["string", "null"]},
              "text": {"type": ["string", "null"]},
              "timeMinutes": {"type": ["number", "null"]},
              "ingredients": {"type": ["array", "null"], "items": {"type": "string"}},
              "tips": {"type": ["string", "null"]}
            }
          }
        ]
      }
    }
  }
}`

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("reply.json", strings.NewReader(replySchema)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	return compiler.Compile("reply.json")
})

// validateReply checks a decoded reply against the output contract.
func validateReply(v any) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("reply does not match schema: %w", err)
	}
	return nil
}
