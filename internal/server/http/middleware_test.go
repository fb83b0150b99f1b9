package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"

	"github.com/helixir/paperbot/internal/observability"
)

func TestCorrelationIDMiddleware(t *testing.T) {
	var captured string
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(correlationIDMiddleware)
	r.Get("/test", func(w http.ResponseWriter, r *http.Request) {
		captured = observability.RequestIDFromContext(r.Context())
	})

	t.Run("uses the inbound header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("X-Correlation-ID", "abc-123")
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, "abc-123", captured)
		assert.Equal(t, "abc-123", rr.Header().Get("X-Correlation-ID"))
	})

	t.Run("falls back to the chi request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.NotEmpty(t, captured)
		assert.Equal(t, captured, rr.Header().Get("X-Correlation-ID"))
	})

	t.Run("generates one without chi", func(t *testing.T) {
		h := correlationIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			captured = observability.RequestIDFromContext(r.Context())
		}))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Len(t, captured, 16)
	})
}

func TestJSONContentTypeMiddleware(t *testing.T) {
	h := jsonContentTypeMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
}
