package collection

import (
	"net/url"
	"strings"
)

// Walk calls fn for every request item in document order, descending into
// folders depth-first. Folders themselves are not passed to fn.
func Walk(doc *Document, fn func(Item)) {
	if doc == nil {
		return
	}
	walkItems(doc.Items, fn)
}

func walkItems(items []Item, fn func(Item)) {
	for _, item := range items {
		if item.IsFolder() {
			walkItems(item.Items, fn)
			continue
		}
		fn(item)
	}
}

// ExtractRoutes returns the distinct routes of doc in first-seen order.
// Only items whose URL declares its path as an array contribute.
func ExtractRoutes(doc *Document) []string {
	vars := doc.VariableMap()
	seen := make(map[string]bool)
	var routes []string

	Walk(doc, func(item Item) {
		if item.Request == nil || !item.Request.URL.Path.IsArray {
			return
		}
		route := joinSegments(item.Request.URL.Path.Segments, vars)
		if seen[route] {
			return
		}
		seen[route] = true
		routes = append(routes, route)
	})
	return routes
}

// RoutePath returns the route of a request: its path segments joined with
// "/", or the path of its raw URL when no segments are declared.
func (d *Document) RoutePath(req *Request) string {
	vars := d.VariableMap()
	if req.URL.Path.Segments != nil {
		return joinSegments(req.URL.Path.Segments, vars)
	}
	return rawPath(Substitute(req.URL.Raw, vars))
}

// VariableMap returns the collection variables keyed by name.
func (d *Document) VariableMap() map[string]string {
	if d == nil || len(d.Variables) == 0 {
		return nil
	}
	vars := make(map[string]string, len(d.Variables))
	for _, v := range d.Variables {
		vars[v.Key] = v.Text()
	}
	return vars
}

// maxSubstitutionDepth bounds how many times a value produced by a
// substitution is itself substituted.
const maxSubstitutionDepth = 8

// Substitute replaces {{name}} references with their values, scanning left to
// right. Values may refer to other variables; those are resolved up to
// maxSubstitutionDepth levels deep. Unknown names are left as written.
func Substitute(s string, vars map[string]string) string {
	for range maxSubstitutionDepth {
		next, changed := substituteOnce(s, vars)
		if !changed {
			return next
		}
		s = next
	}
	return s
}

func substituteOnce(s string, vars map[string]string) (string, bool) {
	if len(vars) == 0 || !strings.Contains(s, "{{") {
		return s, false
	}

	var b strings.Builder
	changed := false
	for {
		start := strings.Index(s, "{{")
		if start < 0 {
			break
		}
		end := strings.Index(s[start+2:], "}}")
		if end < 0 {
			break
		}
		end += start + 2

		name := s[start+2 : end]
		value, ok := vars[name]
		b.WriteString(s[:start])
		if ok {
			b.WriteString(value)
			changed = true
		} else {
			b.WriteString(s[start : end+2])
		}
		s = s[end+2:]
	}
	b.WriteString(s)
	return b.String(), changed
}

func joinSegments(segments []string, vars map[string]string) string {
	parts := make([]string, len(segments))
	for i, seg := range segments {
		parts[i] = Substitute(seg, vars)
	}
	return strings.Join(parts, "/")
}

// rawPath extracts the path of a raw Postman URL without its leading slash.
// An unresolved {{host}} prefix is dropped.
func rawPath(raw string) string {
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "{{") {
		if end := strings.Index(raw, "}}"); end >= 0 {
			raw = raw[end+2:]
		}
	}
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw = raw[:i]
	}

	path := raw
	if strings.Contains(raw, "://") {
		parsed, err := url.Parse(raw)
		if err != nil {
			return ""
		}
		path = parsed.Path
	}
	return strings.Trim(path, "/")
}
