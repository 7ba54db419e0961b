// Package collection decodes Postman Collection v2.x documents.
//
// Decoding happens in two steps. The raw text is first checked against a
// minimal JSON Schema describing the shape collmock relies on, then decoded
// into typed values. Documents whose info.schema does not start with
// SchemaPrefix are rejected with ErrUnrecognizedSchema.
//
//	doc, err := collection.Load("users.json", data)
//	if errors.Is(err, collection.ErrInvalidJSON) {
//	    // skip and warn
//	}
//	routes := collection.ExtractRoutes(doc)
package collection
