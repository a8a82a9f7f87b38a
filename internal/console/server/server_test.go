package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/phishguard-console/internal/console/handler"
	"github.com/xela07ax/phishguard-console/internal/domain"
	"github.com/xela07ax/phishguard-console/internal/infra"
	"go.uber.org/zap"
)

type stubService struct{}

func (stubService) Snapshot(_ context.Context) domain.StatsSnapshot {
	return domain.StatsSnapshot{Status: domain.StatusOperational, TotalURLs: 10}
}

type stubPinger struct{}

func (stubPinger) Ping(_ context.Context) error { return nil }

func testConfig() *infra.Config {
	return &infra.Config{
		Server: infra.ServerConfig{
			Host: "127.0.0.1", Port: 8000,
			RateLimitRPS: 1000, RateLimitBurst: 1000,
			MaxBodyBytes: 1 << 20,
			CORSOrigins:  []string{"*"},
		},
		Watch: infra.WatchConfig{Interval: 30 * time.Second},
	}
}

func newTestServer(t *testing.T, cfg *infra.Config) *ConsoleServer {
	t.Helper()
	h := handler.NewStatsHandler(stubService{}, stubPinger{}, zap.NewNop())
	return NewConsoleServer(cfg, zap.NewNop(), h, prometheus.NewRegistry(), NewMetrics(nil))
}

func TestServerRoutes(t *testing.T) {
	srv := newTestServer(t, testConfig())

	cases := []struct {
		path string
		code int
	}{
		{"/api/stats", http.StatusOK},
		{"/health", http.StatusOK},
		{"/metrics", http.StatusOK},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
		assert.Equal(t, tc.code, rec.Code, tc.path)
	}
}

func TestServerServesLandingPage(t *testing.T) {
	srv := newTestServer(t, testConfig())

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "PhishGuard")
}

func TestServerServesStaticAssets(t *testing.T) {
	srv := newTestServer(t, testConfig())

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/stats.js", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "DatabaseStats")
}

func TestServerDebugRoutesDisabledByDefault(t *testing.T) {
	srv := newTestServer(t, testConfig())

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServerDebugRoutesEnabledByFlag(t *testing.T) {
	cfg := testConfig()
	cfg.Server.DebugRoutes = true
	srv := newTestServer(t, cfg)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTracingMiddleware(t *testing.T) {
	srv := newTestServer(t, testConfig())

	// свой заголовок пробрасывается обратно
	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req.Header.Set("X-Trace-ID", "trace-from-proxy")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, "trace-from-proxy", rec.Header().Get("X-Trace-ID"))

	// без заголовка генерируется валидный uuid
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	_, err := uuid.Parse(rec.Header().Get("X-Trace-ID"))
	assert.NoError(t, err)
}

func TestCORSAllowAll(t *testing.T) {
	srv := newTestServer(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req.Header.Set("Origin", "https://dashboard.example.com")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSRestrictedOrigins(t *testing.T) {
	cfg := testConfig()
	cfg.Server.CORSOrigins = []string{"https://allowed.example.com"}
	srv := newTestServer(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req.Header.Set("Origin", "https://allowed.example.com")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, "https://allowed.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, testConfig())

	req := httptest.NewRequest(http.MethodOptions, "/api/stats", nil)
	req.Header.Set("Origin", "https://dashboard.example.com")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "GET")
}

func TestRateLimitRejects(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RateLimitRPS = 1
	cfg.Server.RateLimitBurst = 1
	srv := newTestServer(t, cfg)

	first := httptest.NewRecorder()
	srv.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	require.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	srv.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "1", second.Header().Get("Retry-After"))
	assert.True(t, strings.Contains(second.Body.String(), "rate_limit_exceeded"))
}

func TestTraceIDFallback(t *testing.T) {
	assert.Equal(t, "00000000-0000-0000-0000-000000000000", TraceID(context.Background()))
}
