package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hpungsan/pathfinder/internal/config"
)

func TestBearerAuth(t *testing.T) {
	h, _ := setupTest(t, func(cfg *config.Config) { cfg.HTTPAPIKey = "s3cret" })

	rec := do(t, h, http.MethodGet, "/api/realms", nil)
	requireErrorCode(t, rec, http.StatusUnauthorized, "UNAUTHORIZED")
	require.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")

	rec = do(t, h, http.MethodGet, "/api/realms", nil, "Authorization", "Bearer wrong")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodGet, "/realms", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code, "pages are protected too")

	rec = do(t, h, http.MethodGet, "/api/realms", nil, "Authorization", "Bearer s3cret")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code, "health is open")
}

func TestBearerAuth_Disabled(t *testing.T) {
	called := false
	handler := BearerAuth("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.True(t, called)
}

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Len(t, seen, 8)
	require.Equal(t, seen, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "upstream-1")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, "upstream-1", seen)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", strings.Repeat("x", 65))
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.Len(t, seen, 8, "oversized incoming IDs are replaced")
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Recovery(zap.New(core)))
	r.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	})

	rec := do(t, r, http.MethodGet, "/boom", nil)
	requireErrorCode(t, rec, http.StatusInternalServerError, "INTERNAL")
	require.NotContains(t, rec.Body.String(), "kaboom")

	require.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}

func TestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	handler := RequestID(Logger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	})))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/pot", nil))

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, int64(http.StatusTeapot), fields["status"])
	require.Equal(t, "/pot", fields["path"])
	require.Equal(t, int64(len("short and stout")), fields["bytes"])
	require.NotEmpty(t, fields["request_id"])
}

func TestSecurityHeaders(t *testing.T) {
	h, _ := setupTest(t, nil)
	rec := do(t, h, http.MethodGet, "/health", nil)
	require.Contains(t, rec.Header().Get("Content-Security-Policy"), "script-src 'none'")
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}
