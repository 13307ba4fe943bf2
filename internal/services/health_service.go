package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/VaishakhVipin/stattwin/internal/infrastructure"
	"github.com/VaishakhVipin/stattwin/pkg/contracts"
	api "github.com/VaishakhVipin/stattwin/pkg/contracts/api/v1"
)

// Health states reported by HealthService.
const (
	StatusOK       = "ok"
	StatusReady    = "ready"
	StatusNotReady = "not_ready"
	StatusAlive    = "alive"
)

// DatasetReporter reports the loaded dataset, or nil when none is loaded.
type DatasetReporter interface {
	DatasetHealth() *api.DatasetHealth
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	datasets  DatasetReporter
	startTime time.Time
	logger    *slog.Logger
}

// NewHealthService creates a health service. datasets may be nil, in which
// case the service is never ready.
func NewHealthService(version string, datasets DatasetReporter, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   version,
		datasets:  datasets,
		startTime: time.Now(),
		logger:    logger.With(slog.String("component", "health_service")),
	}
}

// HealthCheck returns overall health status with the dataset summary and
// runtime statistics.
func (hs *HealthService) HealthCheck(ctx context.Context) api.HealthResponse {
	status := api.HealthResponse{
		Status:    StatusOK,
		Version:   hs.version,
		Timestamp: time.Now().UTC(),
		Dataset:   hs.dataset(),
		Runtime:   infrastructure.ReadRuntimeStats(hs.startTime),
	}
	hs.logger.DebugContext(ctx, "health check",
		slog.String("status", status.Status),
		slog.Bool("dataset_loaded", status.Dataset != nil),
	)
	return status
}

// ReadinessCheck reports ready once a non-empty dataset is loaded.
func (hs *HealthService) ReadinessCheck(ctx context.Context) api.HealthResponse {
	status := api.HealthResponse{
		Status:    StatusReady,
		Version:   hs.version,
		Timestamp: time.Now().UTC(),
		Dataset:   hs.dataset(),
	}
	if status.Dataset == nil || status.Dataset.Rows == 0 {
		status.Status = StatusNotReady
		hs.logger.WarnContext(ctx, "readiness check failed: no dataset loaded")
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) api.HealthResponse {
	return api.HealthResponse{
		Status:    StatusAlive,
		Version:   hs.version,
		Timestamp: time.Now().UTC(),
		Runtime: map[string]any{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]any {
	info := contracts.GetVersionInfo()
	return map[string]any{
		"version":      hs.version,
		"api_version":  info.APIVersion,
		"build_time":   info.BuildTime,
		"git_commit":   info.GitCommit,
		"go_version":   runtime.Version(),
		"os":           runtime.GOOS,
		"arch":         runtime.GOARCH,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}
}

func (hs *HealthService) dataset() *api.DatasetHealth {
	if hs.datasets == nil {
		return nil
	}
	return hs.datasets.DatasetHealth()
}
