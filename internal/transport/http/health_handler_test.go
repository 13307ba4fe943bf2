package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VaishakhVipin/stattwin/internal/services"
	api "github.com/VaishakhVipin/stattwin/pkg/contracts/api/v1"
)

func TestHealthHandler_HealthCheck(t *testing.T) {
	mockService := new(MockHealthService)
	mockService.On("HealthCheck").Return(api.HealthResponse{
		Status:    services.StatusOK,
		Version:   "1.0.0",
		Timestamp: time.Now(),
		Dataset:   &api.DatasetHealth{Source: "players.csv", Rows: 12},
	})

	rec := httptest.NewRecorder()
	NewHealthHandler(mockService, nil).HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp api.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, services.StatusOK, resp.Status)
	require.NotNil(t, resp.Dataset)
	assert.Equal(t, 12, resp.Dataset.Rows)
	mockService.AssertExpectations(t)
}

func TestHealthHandler_ReadinessCheck(t *testing.T) {
	tests := []struct {
		name           string
		status         string
		expectedStatus int
	}{
		{name: "ready", status: services.StatusReady, expectedStatus: http.StatusOK},
		{name: "not ready", status: services.StatusNotReady, expectedStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockHealthService)
			mockService.On("ReadinessCheck").Return(api.HealthResponse{Status: tt.status})

			rec := httptest.NewRecorder()
			NewHealthHandler(mockService, nil).ReadinessCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health/ready", nil))

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.status)
		})
	}
}

func TestHealthHandler_LivenessAndVersion(t *testing.T) {
	mockService := new(MockHealthService)
	mockService.On("LivenessCheck").Return(api.HealthResponse{Status: services.StatusAlive})
	mockService.On("Version").Return(map[string]any{"version": "1.0.0", "api_version": "v1"})
	h := NewHealthHandler(mockService, nil)

	rec := httptest.NewRecorder()
	h.LivenessCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), services.StatusAlive)

	rec = httptest.NewRecorder()
	h.Version(rec, httptest.NewRequest(http.MethodGet, "/api/version", nil))
	var info map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "v1", info["api_version"])
	mockService.AssertExpectations(t)
}
