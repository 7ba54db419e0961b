package resolver

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/collmock/pkg/dataset"
	"github.com/getmockd/collmock/pkg/routetable"
)

func newStore() *dataset.Store {
	users := routetable.Table{}
	users.Set("users/1", "GET", routetable.Body(`{"id":1,"name":"Ana"}`))
	users.Set("users/1", "DELETE", routetable.Body(`null`))
	users.Set("", "GET", routetable.Body(`"welcome"`))
	users.Set("status", "GET", routetable.Body(`""`))

	s := dataset.NewStore()
	s.Publish(&dataset.Snapshot{Tables: map[string]routetable.Table{"users": users}})
	return s
}

func TestResolve(t *testing.T) {
	t.Parallel()
	r := New(newStore(), "/api")

	tests := []struct {
		name       string
		collection string
		path       string
		method     string
		want       string
	}{
		{"hit", "users", "/api/users/1", "GET", `{"id":1,"name":"Ana"}`},
		{"query string stripped", "users", "/api/users/1?expand=true", "GET", `{"id":1,"name":"Ana"}`},
		{"root with slash", "users", "/api/", "GET", `"welcome"`},
		{"root without slash", "users", "/api", "GET", `"welcome"`},
		{"unknown collection", "orders", "/api/users/1", "GET", ""},
		{"unknown route", "users", "/api/users/2", "GET", ""},
		{"unknown method", "users", "/api/users/1", "POST", ""},
		{"lowercase method", "users", "/api/users/1", "get", ""},
		{"null body", "users", "/api/users/1", "DELETE", ""},
		{"empty string body", "users", "/api/status", "GET", ""},
		{"trailing slash is a different route", "users", "/api/users/1/", "GET", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			body, err := r.Resolve(tt.collection, tt.path, tt.method)
			if tt.want == "" {
				assert.True(t, errors.Is(err, ErrNotFound))
				assert.Nil(t, body)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(body))
		})
	}
}

func TestRouteOf(t *testing.T) {
	t.Parallel()

	r := New(newStore(), "api/")
	assert.Equal(t, "/api", r.Mount())
	assert.Equal(t, routetable.Route("users/1"), r.RouteOf("/api/users/1?x=1"))
	assert.Equal(t, routetable.Route(""), r.RouteOf("/api"))
	assert.Equal(t, routetable.Route("apiary"), r.RouteOf("/apiary"))

	root := New(newStore(), "")
	assert.Equal(t, routetable.Route("users/1"), root.RouteOf("/users/1"))
}

func assertCORS(t *testing.T, h http.Header) {
	t.Helper()
	assert.Equal(t, "*", h.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, PUT, DELETE, OPTIONS", h.Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type", h.Get("Access-Control-Allow-Headers"))
}

func TestHandler(t *testing.T) {
	t.Parallel()
	r := New(newStore(), "/api")

	t.Run("hit", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		r.Handler("users").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/1", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.JSONEq(t, `{"id":1,"name":"Ana"}`, rec.Body.String())
		assertCORS(t, rec.Header())
	})

	t.Run("miss", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		r.Handler("users").ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/users/1", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"error":"Mock not found"}`, rec.Body.String())
		assertCORS(t, rec.Header())
	})

	t.Run("options without record", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		r.Handler("deleted").ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/users/1", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Body.String())
		assertCORS(t, rec.Header())
	})

	t.Run("not found handler", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		r.NotFound(rec, httptest.NewRequest(http.MethodGet, "/api/nothing", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"error":"Mock not found"}`, rec.Body.String())
		assertCORS(t, rec.Header())
	})
}
