package http

import (
	"context"

	"github.com/VaishakhVipin/stattwin/internal/services"
	api "github.com/VaishakhVipin/stattwin/pkg/contracts/api/v1"
)

// SimilarityServiceInterface defines the interface for similarity operations
type SimilarityServiceInterface interface {
	Similar(ctx context.Context, req api.SimilarRequest) (*api.SimilarResponse, error)
	RankAll(ctx context.Context, req api.RankAllRequest) (*api.RankAllResponse, error)
	Filter(ctx context.Context, req api.FilterRequest) (*api.FilterResponse, error)
	Report(ctx context.Context) (*api.ReportResponse, error)
	Reload(ctx context.Context) (*services.Dataset, error)
}

// LeagueServiceInterface defines the interface for league catalogue lookups
type LeagueServiceInterface interface {
	List(ctx context.Context, q services.LeagueQuery) (*api.LeaguesResponse, error)
	Get(ctx context.Context, id int) (*api.League, error)
	Hierarchy(ctx context.Context) *api.HierarchyResponse
}

// HealthServiceInterface defines the interface for health checks
type HealthServiceInterface interface {
	HealthCheck(ctx context.Context) api.HealthResponse
	ReadinessCheck(ctx context.Context) api.HealthResponse
	LivenessCheck(ctx context.Context) api.HealthResponse
	Version() map[string]any
}
