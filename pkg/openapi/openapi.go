// Package openapi describes the generated endpoints as an OpenAPI 3 document.
package openapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/getmockd/collmock/pkg/dataset"
	"github.com/getmockd/collmock/pkg/resolver"
)

// Version is the OpenAPI version of generated documents.
const Version = "3.0.3"

// describable lists the methods a path item can hold.
var describable = map[string]bool{
	http.MethodGet:     true,
	http.MethodPut:     true,
	http.MethodPost:    true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
	http.MethodHead:    true,
	http.MethodPatch:   true,
	http.MethodTrace:   true,
	http.MethodConnect: true,
}

// Describe returns a document with one path per served endpoint and one
// operation per method. The stored body is the 200 example. Routes whose path
// contains braces cannot be expressed as literal OpenAPI paths and are left
// out.
func Describe(ctx context.Context, snap *dataset.Snapshot, title string) (*openapi3.T, error) {
	doc := &openapi3.T{
		OpenAPI: Version,
		Info: &openapi3.Info{
			Title:   title,
			Version: "1.0.0",
		},
		Paths: openapi3.NewPaths(),
	}
	if snap.PassID != "" {
		doc.Info.Description = "Generated by rebuild pass " + snap.PassID + "."
	}

	tags := make(map[string]bool)
	for _, stub := range snap.Stubs {
		if strings.ContainsAny(stub.Path, "{}") {
			continue
		}
		table, ok := snap.Record(stub.Collection)
		if !ok {
			continue
		}

		item := &openapi3.PathItem{}
		for _, method := range stub.Methods {
			if !describable[method] {
				continue
			}
			body, ok := table.Lookup(stub.Route, method)
			if !ok {
				continue
			}
			op, err := operation(stub, method, body)
			if err != nil {
				return nil, err
			}
			item.SetOperation(method, op)
		}
		if len(item.Operations()) == 0 {
			continue
		}
		doc.Paths.Set(stub.Path, item)
		tags[stub.Collection] = true
	}

	names := make([]string, 0, len(tags))
	for name := range tags {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		doc.Tags = append(doc.Tags, &openapi3.Tag{Name: name})
	}

	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}
	return doc, nil
}

func operation(stub dataset.Stub, method string, body json.RawMessage) (*openapi3.Operation, error) {
	var example any
	if err := json.Unmarshal(body, &example); err != nil {
		return nil, fmt.Errorf("%s %s: decoding stored body: %w", method, stub.Path, err)
	}

	ok := openapi3.NewResponse().
		WithDescription("Recorded response.").
		WithContent(openapi3.Content{
			"application/json": &openapi3.MediaType{Example: example},
		})

	return &openapi3.Operation{
		Tags:        []string{stub.Collection},
		Summary:     method + " " + stub.Path,
		OperationID: strings.ToLower(method) + "-" + stub.Name(),
		Responses: openapi3.NewResponses(
			openapi3.WithStatus(http.StatusOK, &openapi3.ResponseRef{Value: ok}),
			openapi3.WithStatus(http.StatusNotFound, &openapi3.ResponseRef{Value: notFound()}),
		),
	}, nil
}

func notFound() *openapi3.Response {
	schema := openapi3.NewObjectSchema().
		WithProperty("error", openapi3.NewStringSchema())
	return openapi3.NewResponse().
		WithDescription("No mock for this method and path.").
		WithContent(openapi3.Content{
			"application/json": &openapi3.MediaType{
				Schema:  schema.NewRef(),
				Example: map[string]any{"error": resolver.NotFoundMessage},
			},
		})
}
