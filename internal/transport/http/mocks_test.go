package http

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/VaishakhVipin/stattwin/internal/services"
	api "github.com/VaishakhVipin/stattwin/pkg/contracts/api/v1"
)

// MockSimilarityService is a mock implementation of SimilarityServiceInterface
type MockSimilarityService struct {
	mock.Mock
}

func (m *MockSimilarityService) Similar(ctx context.Context, req api.SimilarRequest) (*api.SimilarResponse, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.SimilarResponse), args.Error(1)
}

func (m *MockSimilarityService) RankAll(ctx context.Context, req api.RankAllRequest) (*api.RankAllResponse, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.RankAllResponse), args.Error(1)
}

func (m *MockSimilarityService) Filter(ctx context.Context, req api.FilterRequest) (*api.FilterResponse, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.FilterResponse), args.Error(1)
}

func (m *MockSimilarityService) Report(ctx context.Context) (*api.ReportResponse, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.ReportResponse), args.Error(1)
}

func (m *MockSimilarityService) Reload(ctx context.Context) (*services.Dataset, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.Dataset), args.Error(1)
}

// MockLeagueService is a mock implementation of LeagueServiceInterface
type MockLeagueService struct {
	mock.Mock
}

func (m *MockLeagueService) List(ctx context.Context, q services.LeagueQuery) (*api.LeaguesResponse, error) {
	args := m.Called(q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.LeaguesResponse), args.Error(1)
}

func (m *MockLeagueService) Get(ctx context.Context, id int) (*api.League, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.League), args.Error(1)
}

func (m *MockLeagueService) Hierarchy(ctx context.Context) *api.HierarchyResponse {
	args := m.Called()
	return args.Get(0).(*api.HierarchyResponse)
}

// MockHealthService is a mock implementation of HealthServiceInterface
type MockHealthService struct {
	mock.Mock
}

func (m *MockHealthService) HealthCheck(ctx context.Context) api.HealthResponse {
	return m.Called().Get(0).(api.HealthResponse)
}

func (m *MockHealthService) ReadinessCheck(ctx context.Context) api.HealthResponse {
	return m.Called().Get(0).(api.HealthResponse)
}

func (m *MockHealthService) LivenessCheck(ctx context.Context) api.HealthResponse {
	return m.Called().Get(0).(api.HealthResponse)
}

func (m *MockHealthService) Version() map[string]any {
	return m.Called().Get(0).(map[string]any)
}
