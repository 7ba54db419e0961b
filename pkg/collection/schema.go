package collection

import (
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// shapeSchema describes only the fields collmock reads. Anything else in a
// document is ignored.
const shapeSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "info": {
      "type": "object",
      "properties": {
        "schema": { "type": "string" }
      }
    },
    "item": { "$ref": "#/$defs/items" },
    "variable": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": { "key": { "type": "string" } }
      }
    }
  },
  "$defs": {
    "items": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "name": { "type": "string" },
          "request": {
            "type": ["object", "string", "null"],
            "properties": {
              "method": { "type": "string" },
              "url": {
                "type": ["object", "string"],
                "properties": {
                  "raw": { "type": "string" },
                  "path": {
                    "type": ["array", "string"],
                    "items": { "type": ["string", "number", "object"] }
                  }
                }
              }
            }
          },
          "response": {
            "type": "array",
            "items": { "type": "object" }
          },
          "item": { "$ref": "#/$defs/items" }
        }
      }
    }
  }
}`

var compiledShape = compileShape()

func compileShape() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("collection-shape.json", strings.NewReader(shapeSchema)); err != nil {
		panic(err)
	}
	return compiler.MustCompile("collection-shape.json")
}

// validateShape checks a decoded JSON value against the collection shape.
func validateShape(v any) error {
	return compiledShape.Validate(v)
}
