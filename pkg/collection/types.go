package collection

import (
	"bytes"
	"encoding/json"
	"strings"
)

// SchemaPrefix is the schema URI prefix of recognized collection documents.
const SchemaPrefix = "https://schema.getpostman.com/json/collection/"

// Document is a Postman Collection v2.x.
type Document struct {
	Info      Info       `json:"info"`
	Items     []Item     `json:"item"`
	Variables []Variable `json:"variable,omitempty"`
}

// Info contains collection metadata.
type Info struct {
	PostmanID string `json:"_postman_id,omitempty"`
	Name      string `json:"name"`
	Schema    string `json:"schema"`
}

// Item is a request exemplar, or a folder when Items is set.
type Item struct {
	Name      string     `json:"name"`
	Request   *Request   `json:"request,omitempty"`
	Responses []Response `json:"response,omitempty"`
	Items     []Item     `json:"item,omitempty"`
}

// IsFolder reports whether the item groups nested items.
func (i Item) IsFolder() bool {
	return len(i.Items) > 0 && i.Request == nil
}

// Request describes the method and URL of an item.
type Request struct {
	Method string `json:"method"`
	URL    URL    `json:"url"`
}

// UnmarshalJSON accepts both the object form and the bare URL string form,
// in which case the method defaults to GET.
func (r *Request) UnmarshalJSON(data []byte) error {
	if isJSONString(data) {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		*r = Request{Method: "GET", URL: URL{Raw: raw}}
		return nil
	}

	type plain Request
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = Request(p)
	return nil
}

// URL is a request URL in Postman format.
type URL struct {
	Raw  string `json:"raw,omitempty"`
	Path Path   `json:"path,omitempty"`
}

// UnmarshalJSON accepts both the object form and a bare URL string.
func (u *URL) UnmarshalJSON(data []byte) error {
	if isJSONString(data) {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		*u = URL{Raw: raw}
		return nil
	}

	type plain URL
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*u = URL(p)
	return nil
}

// Path holds the URL path segments. IsArray is true only when the document
// declared the path as a JSON array.
type Path struct {
	Segments []string
	IsArray  bool
}

// UnmarshalJSON decodes a path given as an array of segments, where each
// segment is a string, a number or a {"value": ...} object, or as a single
// string.
func (p *Path) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*p = Path{}
		return nil
	}

	if isJSONString(trimmed) {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		s = strings.TrimPrefix(s, "/")
		if s == "" {
			*p = Path{}
			return nil
		}
		*p = Path{Segments: strings.Split(s, "/")}
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return err
	}
	segments := make([]string, 0, len(raw))
	for _, r := range raw {
		if isJSONString(r) {
			var s string
			if err := json.Unmarshal(r, &s); err != nil {
				return err
			}
			segments = append(segments, s)
			continue
		}
		trimmedSeg := bytes.TrimSpace(r)
		if len(trimmedSeg) == 0 || trimmedSeg[0] != '{' {
			// Numbers and other scalars join as written.
			segments = append(segments, rawText(trimmedSeg))
			continue
		}
		var obj struct {
			Value json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal(trimmedSeg, &obj); err != nil {
			return err
		}
		segments = append(segments, rawText(obj.Value))
	}
	*p = Path{Segments: segments, IsArray: true}
	return nil
}

// MarshalJSON writes the path back as an array of strings.
func (p Path) MarshalJSON() ([]byte, error) {
	if p.Segments == nil {
		return []byte("null"), nil
	}
	return json.Marshal(p.Segments)
}

// Response is a saved example response.
type Response struct {
	Name   string          `json:"name,omitempty"`
	Status string          `json:"status,omitempty"`
	Code   int             `json:"code,omitempty"`
	Body   json.RawMessage `json:"body,omitempty"`
}

// Text returns the response body as text. Postman stores bodies as strings;
// a body given as inline JSON is returned as its raw encoding.
func (r Response) Text() string {
	return rawText(r.Body)
}

// Variable is a collection variable. Values may be any JSON scalar.
type Variable struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value,omitempty"`
}

// Text returns the variable value as text.
func (v Variable) Text() string {
	return rawText(v.Value)
}

func rawText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if isJSONString(raw) {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return string(raw)
}

func isJSONString(data []byte) bool {
	data = bytes.TrimSpace(data)
	return len(data) > 0 && data[0] == '"'
}
