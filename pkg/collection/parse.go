package collection

import (
	"encoding/json"
	"strings"
)

// Parse decodes raw text into a Document. It fails with ErrInvalidJSON when
// the text is not JSON and with ErrUnrecognizedSchema when the JSON does not
// have the shape of a collection. It does not check info.schema.
func Parse(data []byte) (*Document, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{
			Kind:    KindInvalidJSON,
			Message: "failed to parse JSON",
			Cause:   err,
		}
	}

	if err := validateShape(raw); err != nil {
		return nil, &ParseError{
			Kind:    KindUnrecognizedSchema,
			Message: "document does not have the shape of a collection",
			Cause:   err,
		}
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{
			Kind:    KindUnrecognizedSchema,
			Message: "failed to decode collection",
			Cause:   err,
		}
	}
	return &doc, nil
}

// IsRecognizedSchema reports whether doc declares a Postman collection schema.
func IsRecognizedSchema(doc *Document) bool {
	return doc != nil && strings.HasPrefix(doc.Info.Schema, SchemaPrefix)
}

// Load parses data and rejects documents with an unrecognized schema.
// source names the document in error messages.
func Load(source string, data []byte) (*Document, error) {
	doc, err := Parse(data)
	if err != nil {
		if pe, ok := err.(*ParseError); ok {
			pe.Source = source
		}
		return nil, err
	}

	if !IsRecognizedSchema(doc) {
		return nil, &ParseError{
			Kind:    KindUnrecognizedSchema,
			Source:  source,
			Message: "info.schema " + quoteOrMissing(doc.Info.Schema) + " is not a Postman collection schema",
		}
	}
	return doc, nil
}

func quoteOrMissing(s string) string {
	if s == "" {
		return "(missing)"
	}
	return `"` + s + `"`
}
