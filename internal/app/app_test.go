package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VaishakhVipin/stattwin/internal/config"
	customMiddleware "github.com/VaishakhVipin/stattwin/internal/middleware"
	"github.com/VaishakhVipin/stattwin/internal/shared/testutil"
	api "github.com/VaishakhVipin/stattwin/pkg/contracts/api/v1"
)

// testConfig returns a configuration rooted in a temporary directory with
// the player fixture written to the data directory.
func testConfig(t *testing.T, withData bool) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.BaseDir = t.TempDir()
	cfg.Server.Port = 0
	cfg.Server.ShutdownTimeout = 5 * time.Second
	cfg.Telemetry.EnableTracing = false
	cfg.RateLimit.Burst = 1000

	if withData {
		testutil.WriteFile(t, filepath.Join(cfg.Paths.BaseDir, cfg.Paths.DataDir), cfg.Data.Source, testutil.PlayersCSV)
	}
	return cfg
}

func newTestApp(t *testing.T, withData bool) *Application {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	app, err := New(testConfig(t, withData), logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = app.OTelProviders.Shutdown(context.Background())
	})
	return app
}

func serve(app *Application, method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

func TestNew(t *testing.T) {
	app := newTestApp(t, true)

	require.NotNil(t, app.Services)
	assert.NotNil(t, app.Router)
	assert.NotNil(t, app.Server)
	assert.NotNil(t, app.RateLimiter)
	assert.DirExists(t, app.Paths.CacheDir)

	health := app.Services.Similarity.DatasetHealth()
	require.NotNil(t, health)
	assert.Equal(t, 5, health.Rows)
	assert.Equal(t, 2, health.Leagues)
}

func TestApplication_Routes(t *testing.T) {
	app := newTestApp(t, true)

	tests := []struct {
		name           string
		method         string
		target         string
		body           string
		expectedStatus int
	}{
		{name: "health", method: http.MethodGet, target: "/api/health", expectedStatus: http.StatusOK},
		{name: "ready", method: http.MethodGet, target: "/api/health/ready", expectedStatus: http.StatusOK},
		{name: "live", method: http.MethodGet, target: "/api/health/live", expectedStatus: http.StatusOK},
		{name: "version", method: http.MethodGet, target: "/api/version", expectedStatus: http.StatusOK},
		{name: "leagues", method: http.MethodGet, target: "/api/v1/leagues?major=true", expectedStatus: http.StatusOK},
		{name: "league hierarchy", method: http.MethodGet, target: "/api/v1/leagues/hierarchy", expectedStatus: http.StatusOK},
		{name: "unknown league", method: http.MethodGet, target: "/api/v1/leagues/999999", expectedStatus: http.StatusNotFound},
		{name: "similar", method: http.MethodPost, target: "/api/v1/similar", body: `{"player_id":"pA","top_k":2}`, expectedStatus: http.StatusOK},
		{name: "similar unknown player", method: http.MethodPost, target: "/api/v1/similar", body: `{"player_id":"zz"}`, expectedStatus: http.StatusNotFound},
		{name: "player similar", method: http.MethodGet, target: "/api/v1/players/pB/similar?top_k=3", expectedStatus: http.StatusOK},
		{name: "rank all", method: http.MethodPost, target: "/api/v1/rank-all", body: `{"top_k":1}`, expectedStatus: http.StatusOK},
		{name: "filter", method: http.MethodPost, target: "/api/v1/filter", body: `{"filters":{"positions":["FW"]}}`, expectedStatus: http.StatusOK},
		{name: "report", method: http.MethodGet, target: "/api/v1/report", expectedStatus: http.StatusOK},
		{name: "reload", method: http.MethodPost, target: "/api/v1/dataset/reload", expectedStatus: http.StatusOK},
		{name: "metrics", method: http.MethodGet, target: "/metrics", expectedStatus: http.StatusOK},
		{name: "unknown route", method: http.MethodGet, target: "/api/v1/unknown", expectedStatus: http.StatusNotFound},
		{name: "wrong method", method: http.MethodGet, target: "/api/v1/similar", expectedStatus: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(app, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.expectedStatus, rec.Code, rec.Body.String())
			assert.NotEmpty(t, rec.Header().Get(customMiddleware.RequestIDHeader))
		})
	}
}

func TestApplication_SimilarResponse(t *testing.T) {
	app := newTestApp(t, true)

	rec := serve(app, http.MethodPost, "/api/v1/similar", `{"player_id":"pA","top_k":2}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp api.SimilarResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "pA", resp.Query.PlayerID)
	assert.Equal(t, "cosine", resp.Metric)
	require.Len(t, resp.Matches, 2)
	for _, m := range resp.Matches {
		assert.NotEqual(t, 0, m.Index)
	}
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestApplication_NotFoundProblem(t *testing.T) {
	app := newTestApp(t, true)

	rec := serve(app, http.MethodGet, "/api/v1/unknown", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	var problem map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, "/errors/not-found", problem["type"])
	assert.NotEmpty(t, problem["trace_id"])
}

func TestApplication_WithoutDataset(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	app, err := New(testConfig(t, false), logger)
	require.NoError(t, err)
	defer app.OTelProviders.Shutdown(context.Background())

	assert.True(t, logs.ContainsMessage("Dataset not loaded"))
	assert.Nil(t, app.Services.Similarity.DatasetHealth())
	assert.Equal(t, http.StatusServiceUnavailable, serve(app, http.MethodGet, "/api/health/ready", "").Code)
	assert.Equal(t, http.StatusOK, serve(app, http.MethodGet, "/api/health/live", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable,
		serve(app, http.MethodPost, "/api/v1/similar", `{"player_id":"pA"}`).Code)
	assert.Equal(t, http.StatusOK, serve(app, http.MethodGet, "/api/v1/leagues", "").Code)
}

func TestApplication_RateLimit(t *testing.T) {
	cfg := testConfig(t, true)
	cfg.RateLimit.RPS = 0.001
	cfg.RateLimit.Burst = 2
	app, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer app.OTelProviders.Shutdown(context.Background())

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, serve(app, http.MethodGet, "/api/health", "").Code)
	}
	rec := serve(app, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestApplication_StartStop(t *testing.T) {
	app := newTestApp(t, true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, app.Start(ctx, cancel))
	time.Sleep(50 * time.Millisecond)
	assert.NoError(t, app.Stop(context.Background()))
}

func TestPerformStartupHealthCheck(t *testing.T) {
	assert.NoError(t, newTestApp(t, true).performStartupHealthCheck(context.Background()))

	err := newTestApp(t, false).performStartupHealthCheck(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no dataset loaded")
}
