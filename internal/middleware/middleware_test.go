package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/sakif/pollboard/internal/metrics"
)

func newRouter(mw ...func(http.Handler) http.Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(mw...)
	r.Get("/api/polls/{pollID}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not_found"}`))
	})
	r.Get("/ok", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("fine"))
	})
	return r
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	rec := httptest.NewRecorder()
	newRouter(Logger(logger)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/polls/abc123", nil))

	line := buf.String()
	assert.Contains(t, line, "request completed")
	assert.Contains(t, line, "level=WARN")
	assert.Contains(t, line, "status=404")
	assert.Contains(t, line, "route=/api/polls/{pollID}")
	assert.Contains(t, line, "bytes=21")
}

func TestLogger_DefaultStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	newRouter(Logger(logger)).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))

	assert.True(t, strings.Contains(buf.String(), "status=200"))
	assert.Contains(t, buf.String(), "level=INFO")
}

func TestMetrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	router := newRouter(Metrics(m))

	for _, id := range []string{"a", "b", "c"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/polls/"+id, nil))
	}
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))

	assert.Equal(t, 3.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/api/polls/{pollID}", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/ok", "200")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.HTTPDuration))
}

func TestMetrics_NilIsPassThrough(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(Metrics(nil)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))

	assert.Equal(t, "fine", rec.Body.String())
}
