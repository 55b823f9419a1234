package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveBookLookup(t *testing.T) {
	hits := testutil.ToFloat64(BookCacheLookups.WithLabelValues("hit"))
	misses := testutil.ToFloat64(BookCacheLookups.WithLabelValues("miss"))

	ObserveBookLookup(true)
	ObserveBookLookup(false)
	ObserveBookLookup(false)

	assert.Equal(t, hits+1, testutil.ToFloat64(BookCacheLookups.WithLabelValues("hit")))
	assert.Equal(t, misses+2, testutil.ToFloat64(BookCacheLookups.WithLabelValues("miss")))
}

func TestMiddlewareAndHandler(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/api/things/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Handle("/metrics", Handler())

	req := httptest.NewRequest(http.MethodGet, "/api/things/42", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusTeapot, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.True(t, strings.Contains(body, `route="/api/things/{id}"`), "route pattern label missing")
	assert.Contains(t, body, `status="418"`)
}
