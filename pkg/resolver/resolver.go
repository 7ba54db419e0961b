// Package resolver answers mock requests from the materialized dataset.
//
// Lookups are exact: the mount prefix and query string are stripped from the
// request path and the remainder must equal a stored route; the method must
// equal a stored uppercase method. Unknown collections, routes and methods are
// all reported as ErrNotFound.
package resolver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/getmockd/collmock/pkg/dataset"
	"github.com/getmockd/collmock/pkg/httputil"
	"github.com/getmockd/collmock/pkg/logging"
	"github.com/getmockd/collmock/pkg/metrics"
	"github.com/getmockd/collmock/pkg/routetable"
)

// NotFoundMessage is the error message of every miss.
const NotFoundMessage = "Mock not found"

// ErrNotFound is returned when no stored response matches a request.
var ErrNotFound = errors.New("mock not found")

// CORS headers set on every response.
const (
	AllowOrigin  = "*"
	AllowMethods = "GET, POST, PUT, DELETE, OPTIONS"
	AllowHeaders = "Content-Type"
)

// Source provides the table of a collection.
type Source interface {
	Record(collectionID string) (routetable.Table, bool)
}

var (
	_ Source = (*dataset.Store)(nil)
	_ Source = (*dataset.DiskSource)(nil)
)

// Resolver looks up stored responses.
type Resolver struct {
	source  Source
	mount   string
	metrics *metrics.Metrics
	log     *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMetrics counts resolution outcomes in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// WithLogger sets the logger used for per-request debug output.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.log = l }
}

// New creates a resolver reading from source. mount is the prefix under which
// the mock API is served, e.g. "/api".
func New(source Source, mount string, opts ...Option) *Resolver {
	r := &Resolver{
		source: source,
		mount:  dataset.NormalizeMount(mount),
		log:    logging.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = logging.OrNop(r.log)
	return r
}

// Mount returns the normalized mount prefix.
func (r *Resolver) Mount() string {
	return r.mount
}

// RouteOf strips the mount prefix and any query string from path.
func (r *Resolver) RouteOf(path string) routetable.Route {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	switch {
	case path == r.mount:
		return ""
	case strings.HasPrefix(path, r.mount+"/"):
		return routetable.Route(path[len(r.mount)+1:])
	}
	return routetable.Route(strings.TrimPrefix(path, "/"))
}

// Resolve returns the stored response of collectionID for path and method.
func (r *Resolver) Resolve(collectionID, path, method string) (routetable.Body, error) {
	table, ok := r.source.Record(collectionID)
	if !ok {
		return nil, ErrNotFound
	}
	body, ok := table.Lookup(r.RouteOf(path), method)
	if !ok || routetable.IsEmpty(body) {
		return nil, ErrNotFound
	}
	return body, nil
}

// Handler returns the request handler of an endpoint owned by collectionID.
func (r *Resolver) Handler(collectionID string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.ServeCollection(w, req, collectionID)
	})
}

// ServeCollection answers req from the record of collectionID.
func (r *Resolver) ServeCollection(w http.ResponseWriter, req *http.Request, collectionID string) {
	if Preflight(w, req) {
		r.metrics.ObserveResolve(metrics.OutcomePreflight)
		return
	}

	body, err := r.Resolve(collectionID, req.URL.Path, req.Method)
	if err != nil {
		r.metrics.ObserveResolve(metrics.OutcomeMiss)
		r.log.Debug("mock not found", "collection", collectionID, "method", req.Method, "path", req.URL.Path)
		httputil.WriteNotFound(w, NotFoundMessage)
		return
	}

	r.metrics.ObserveResolve(metrics.OutcomeHit)
	httputil.WriteRawJSON(w, http.StatusOK, body)
}

// NotFound answers a request that matched no endpoint.
func (r *Resolver) NotFound(w http.ResponseWriter, req *http.Request) {
	if Preflight(w, req) {
		r.metrics.ObserveResolve(metrics.OutcomePreflight)
		return
	}
	r.metrics.ObserveResolve(metrics.OutcomeMiss)
	httputil.WriteNotFound(w, NotFoundMessage)
}

// SetCORS sets the permissive cross-origin headers.
func SetCORS(h http.Header) {
	h.Set("Access-Control-Allow-Origin", AllowOrigin)
	h.Set("Access-Control-Allow-Methods", AllowMethods)
	h.Set("Access-Control-Allow-Headers", AllowHeaders)
}

// Preflight sets the CORS headers and, for OPTIONS requests, writes an empty
// 200 response. It reports whether the request was answered.
func Preflight(w http.ResponseWriter, req *http.Request) bool {
	SetCORS(w.Header())
	if req.Method != http.MethodOptions {
		return false
	}
	httputil.WriteEmpty(w, http.StatusOK)
	return true
}
