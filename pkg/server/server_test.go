package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/collmock/pkg/dataset"
	"github.com/getmockd/collmock/pkg/metrics"
	"github.com/getmockd/collmock/pkg/resolver"
	"github.com/getmockd/collmock/pkg/routetable"
)

func snapshot() *dataset.Snapshot {
	users := routetable.Table{}
	users.Set("users/1", "GET", routetable.Body(`{"id":1,"name":"Ana"}`))
	users.Set("", "GET", routetable.Body(`{"ok":true}`))
	orders := routetable.Table{}
	orders.Set("orders", "POST", routetable.Body(`{"id":9}`))

	stub := func(route routetable.Route, coll string, methods ...string) dataset.Stub {
		return dataset.Stub{Route: route, Collection: coll, Path: dataset.MountPath("/api", route), Methods: methods}
	}
	return &dataset.Snapshot{
		PassID: "pass-1",
		Tables: map[string]routetable.Table{"users": users, "orders": orders},
		Stubs: []dataset.Stub{
			stub("", "users", "GET"),
			stub("orders", "orders", "POST"),
			stub("users/1", "users", "GET"),
		},
	}
}

func newServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	store := dataset.NewStore()
	snap := snapshot()
	store.Publish(snap)
	s := New(DefaultOptions(), resolver.New(store, "/api"), opts...)
	s.Update(snap)
	return s
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestServer_Endpoints(t *testing.T) {
	t.Parallel()
	h := newServer(t).Handler()

	tests := []struct {
		name   string
		method string
		target string
		status int
		body   string
	}{
		{"hit", http.MethodGet, "/api/users/1", http.StatusOK, `{"id":1,"name":"Ana"}`},
		{"query string", http.MethodGet, "/api/users/1?verbose=1", http.StatusOK, `{"id":1,"name":"Ana"}`},
		{"other collection", http.MethodPost, "/api/orders", http.StatusOK, `{"id":9}`},
		{"index", http.MethodGet, "/api", http.StatusOK, `{"ok":true}`},
		{"index with slash", http.MethodGet, "/api/", http.StatusOK, `{"ok":true}`},
		{"unknown route", http.MethodGet, "/api/users/2", http.StatusNotFound, `{"error":"Mock not found"}`},
		{"unknown method", http.MethodDelete, "/api/users/1", http.StatusNotFound, `{"error":"Mock not found"}`},
		{"method of other collection", http.MethodGet, "/api/orders", http.StatusNotFound, `{"error":"Mock not found"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := do(t, h, tt.method, tt.target)
			assert.Equal(t, tt.status, rec.Code)
			assert.JSONEq(t, tt.body, rec.Body.String())
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, resolver.AllowOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestServer_Preflight(t *testing.T) {
	t.Parallel()
	h := newServer(t).Handler()

	for _, target := range []string{"/api/users/1", "/api/nothing/here"} {
		rec := do(t, h, http.MethodOptions, target)
		assert.Equal(t, http.StatusOK, rec.Code, target)
		assert.Empty(t, rec.Body.String(), target)
		assert.Equal(t, resolver.AllowMethods, rec.Header().Get("Access-Control-Allow-Methods"), target)
		assert.Equal(t, resolver.AllowHeaders, rec.Header().Get("Access-Control-Allow-Headers"), target)
	}
}

func TestServer_Update(t *testing.T) {
	t.Parallel()
	s := newServer(t)
	assert.Equal(t, 3, s.Endpoints())

	s.Update(&dataset.Snapshot{Tables: map[string]routetable.Table{}})
	assert.Equal(t, 0, s.Endpoints())

	rec := do(t, s.Handler(), http.MethodGet, "/api/users/1")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_OutsideMount(t *testing.T) {
	t.Parallel()
	rec := do(t, newServer(t).Handler(), http.MethodGet, "/users/1")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"not found"}`, rec.Body.String())
}

func TestServer_EmptyMount(t *testing.T) {
	t.Parallel()
	store := dataset.NewStore()
	snap := snapshot()
	store.Publish(snap)
	s := New(DefaultOptions(), resolver.New(store, ""))
	s.Update(snap)

	rec := do(t, s.Handler(), http.MethodGet, "/users/1")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s.Handler(), http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestServer_Healthz(t *testing.T) {
	t.Parallel()
	s := newServer(t, WithState(func() string { return "rebuilding" }))

	rec := do(t, s.Handler(), http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)

	var got health
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, health{Status: "ok", State: "rebuilding", Collections: 2, Endpoints: 3}, got)
}

func TestServer_Metrics(t *testing.T) {
	t.Parallel()
	m := metrics.New()
	store := dataset.NewStore()
	snap := snapshot()
	store.Publish(snap)
	s := New(DefaultOptions(), resolver.New(store, "/api", resolver.WithMetrics(m)), WithMetrics(m))
	s.Update(snap)

	do(t, s.Handler(), http.MethodGet, "/api/users/1")
	rec := do(t, s.Handler(), http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "collmock_resolutions_total")
}

func TestServer_WithoutMetrics(t *testing.T) {
	t.Parallel()
	rec := do(t, newServer(t).Handler(), http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Serve(t *testing.T) {
	t.Parallel()
	s := newServer(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/api/users/1")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"id":1,"name":"Ana"}`, string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestOptions_AddFlags(t *testing.T) {
	t.Parallel()
	var o Options
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	o.AddFlags(fs)
	require.NoError(t, fs.Parse([]string{"--listen", "127.0.0.1:9000", "--write-timeout", "3s"}))

	assert.Equal(t, "127.0.0.1:9000", o.ListenAddress)
	assert.Equal(t, 3*time.Second, o.WriteTimeout)
	assert.Equal(t, DefaultOptions().ReadTimeout, o.ReadTimeout)
	assert.True(t, strings.HasPrefix(fs.Lookup("listen").Usage, "Mock API"))
}
