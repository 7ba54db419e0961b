// Package routetable builds the canonical route → method → response mapping
// of one collection.
//
// Merge rule: within an item the first saved response is the canonical
// example; across items the last item declaring a (route, method) pair wins.
package routetable

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/getmockd/collmock/pkg/collection"
	"github.com/getmockd/collmock/pkg/logging"
)

// IndexName is the stub name of the root route.
const IndexName = "index"

// Route is a path-segment identity joined with "/". The empty route is the root.
type Route string

// FileName flattens the route into a single file-safe name.
func (r Route) FileName() string {
	if r == "" {
		return IndexName
	}
	return strings.ReplaceAll(string(r), "/", "-")
}

// Body is a stored response: the parsed JSON body, or the raw text encoded as
// a JSON string when the body was not JSON.
type Body = json.RawMessage

// Table maps route → uppercase method → response body.
type Table map[Route]map[string]Body

// Set stores body for route and method, replacing any previous value.
func (t Table) Set(route Route, method string, body Body) {
	methods, ok := t[route]
	if !ok {
		methods = make(map[string]Body)
		t[route] = methods
	}
	methods[method] = body
}

// Lookup returns the body stored for route and method.
func (t Table) Lookup(route Route, method string) (Body, bool) {
	methods, ok := t[route]
	if !ok {
		return nil, false
	}
	body, ok := methods[method]
	return body, ok
}

// Routes returns the routes of the table in sorted order.
func (t Table) Routes() []Route {
	routes := make([]Route, 0, len(t))
	for r := range t {
		routes = append(routes, r)
	}
	sort.Slice(routes, func(i, j int) bool { return routes[i] < routes[j] })
	return routes
}

// Methods returns the methods stored for route in sorted order.
func (t Table) Methods(route Route) []string {
	methods := make([]string, 0, len(t[route]))
	for m := range t[route] {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	return methods
}

// Pairs returns the number of (route, method) entries.
func (t Table) Pairs() int {
	n := 0
	for _, methods := range t {
		n += len(methods)
	}
	return n
}

// Warning describes an item that contributed nothing to the table.
type Warning struct {
	Item   string
	Reason string
}

// ReasonMissingRequestOrResponse marks items without a request or saved responses.
const ReasonMissingRequestOrResponse = "missing request or responses"

// Build creates the table of an accepted collection document. Items without a
// request or without any saved response are skipped and reported.
func Build(doc *collection.Document, logger *slog.Logger) (Table, []Warning) {
	logger = logging.OrNop(logger)
	table := make(Table)
	var warnings []Warning

	collection.Walk(doc, func(item collection.Item) {
		if item.Request == nil || len(item.Responses) == 0 {
			w := Warning{Item: item.Name, Reason: ReasonMissingRequestOrResponse}
			warnings = append(warnings, w)
			logger.Warn("skipping item", "item", item.Name, "reason", w.Reason)
			return
		}

		route := Route(doc.RoutePath(item.Request))
		method := strings.ToUpper(item.Request.Method)
		if method == "" {
			method = "GET"
		}
		table.Set(route, method, ParseBody(item.Responses[0].Text()))
	})

	return table, warnings
}

// ParseBody returns text as JSON when it parses, otherwise as a JSON string.
func ParseBody(text string) Body {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(text)); err == nil && buf.Len() > 0 {
		return Body(buf.Bytes())
	}
	encoded, _ := json.Marshal(text)
	return Body(encoded)
}

// IsEmpty reports whether body is null, false, zero or an empty string.
// Such bodies are never served.
func IsEmpty(body Body) bool {
	trimmed := strings.TrimSpace(string(body))
	switch trimmed {
	case "", "null", "false", `""`:
		return true
	}
	if trimmed[0] != '-' && (trimmed[0] < '0' || trimmed[0] > '9') {
		return false
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	return err == nil && f == 0
}
