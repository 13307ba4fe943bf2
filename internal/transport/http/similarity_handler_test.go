package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	apierrors "github.com/VaishakhVipin/stattwin/internal/errors"
	"github.com/VaishakhVipin/stattwin/internal/services"
	"github.com/VaishakhVipin/stattwin/internal/similarity"
	"github.com/VaishakhVipin/stattwin/internal/table"
	api "github.com/VaishakhVipin/stattwin/pkg/contracts/api/v1"
)

type SimilarityHandlerTestSuite struct {
	suite.Suite
	service *MockSimilarityService
	router  chi.Router
}

func (s *SimilarityHandlerTestSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.service = new(MockSimilarityService)
	handler := NewSimilarityHandler(s.service, nil, logger, apierrors.NewErrorHandler(logger, false))

	s.router = chi.NewRouter()
	s.router.Mount("/api/v1", handler.Routes())
}

func (s *SimilarityHandlerTestSuite) TearDownTest() {
	s.service.AssertExpectations(s.T())
}

func (s *SimilarityHandlerTestSuite) do(method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *SimilarityHandlerTestSuite) decode(rec *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func sampleSimilar() *api.SimilarResponse {
	return &api.SimilarResponse{
		Query:    api.QueryRef{Index: 0, PlayerID: "pA"},
		Metric:   "cosine",
		Features: []string{"xg_per90"},
		Count:    1,
		Matches:  []api.Match{{Rank: 1, Index: 2, Score: 0.97}},
	}
}

func (s *SimilarityHandlerTestSuite) TestSimilar() {
	expected := api.SimilarRequest{PlayerID: "pA", TopK: 5, Metric: "cosine"}
	s.service.On("Similar", expected).Return(sampleSimilar(), nil)

	rec := s.do(http.MethodPost, "/api/v1/similar", `{"player_id":"pA","top_k":5,"metric":"cosine"}`)

	s.Equal(http.StatusOK, rec.Code)
	var resp api.SimilarResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal("pA", resp.Query.PlayerID)
	s.Require().Len(resp.Matches, 1)
	s.Equal(2, resp.Matches[0].Index)
}

func (s *SimilarityHandlerTestSuite) TestSimilarByIndex() {
	idx := 3
	s.service.On("Similar", api.SimilarRequest{Index: &idx}).Return(sampleSimilar(), nil)

	rec := s.do(http.MethodPost, "/api/v1/similar", `{"index":3}`)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *SimilarityHandlerTestSuite) TestSimilarValidation() {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{name: "no query", body: `{"top_k":5}`, field: "player_id"},
		{name: "bad metric", body: `{"player_id":"pA","metric":"manhattan"}`, field: "metric"},
		{name: "top_k too large", body: `{"player_id":"pA","top_k":5000}`, field: "top_k"},
		{name: "bad position weight", body: `{"player_id":"pA","weights":{"position":"QB"}}`, field: "weights.position"},
		{name: "age out of bounds", body: `{"player_id":"pA","filters":{"age_range":{"min":-1,"max":20}}}`, field: "filters.age_range.min"},
		{name: "empty season", body: `{"player_id":"pA","filters":{"seasons":[""]}}`, field: "filters.seasons[0]"},
		{name: "empty position", body: `{"player_id":"pA","filters":{"positions":[""]}}`, field: "filters.positions[0]"},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			rec := s.do(http.MethodPost, "/api/v1/similar", tt.body)
			s.Equal(http.StatusBadRequest, rec.Code)

			body := s.decode(rec)
			s.Equal(apierrors.TypeValidation, body["type"])
			details, ok := body["details"].([]any)
			s.Require().True(ok)
			s.Require().NotEmpty(details)
			s.Equal(tt.field, details[0].(map[string]any)["field"])
		})
	}
	s.service.AssertNotCalled(s.T(), "Similar", mock.Anything)
}

func (s *SimilarityHandlerTestSuite) TestSimilarBadBody() {
	rec := s.do(http.MethodPost, "/api/v1/similar", `{"player_id":`)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("INVALID_JSON", s.decode(rec)["error_code"])
}

func (s *SimilarityHandlerTestSuite) TestSimilarContentType() {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/similar", strings.NewReader(`player_id=pA`))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Equal(http.StatusUnsupportedMediaType, rec.Code)
}

func (s *SimilarityHandlerTestSuite) TestSimilarServiceErrors() {
	tests := []struct {
		name   string
		err    error
		status int
		typ    string
	}{
		{
			name:   "unknown player",
			err:    apierrors.NewLookupError(`id "zz" not found in column "player_id"`, similarity.ErrQueryNotFound),
			status: http.StatusNotFound,
			typ:    apierrors.TypeQueryNotFound,
		},
		{
			name:   "no dataset",
			err:    fmt.Errorf("%w: %w", apierrors.ErrServiceUnavailable, services.ErrNoDataset),
			status: http.StatusServiceUnavailable,
			typ:    apierrors.TypeServiceDown,
		},
		{
			name:   "unknown feature",
			err:    apierrors.NewConfigError("feature column missing", similarity.ErrNoFeatures),
			status: http.StatusBadRequest,
			typ:    apierrors.TypeConfig,
		},
		{
			name:   "unexpected",
			err:    errors.New("boom"),
			status: http.StatusInternalServerError,
			typ:    apierrors.TypeInternal,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()
			s.service.On("Similar", mock.Anything).Return(nil, tt.err).Once()

			rec := s.do(http.MethodPost, "/api/v1/similar", `{"player_id":"zz"}`)
			s.Equal(tt.status, rec.Code)
			s.Equal(tt.typ, s.decode(rec)["type"])
			s.service.AssertExpectations(s.T())
		})
	}
}

func (s *SimilarityHandlerTestSuite) TestPlayerSimilar() {
	expected := api.SimilarRequest{
		PlayerID:     "pA",
		Metric:       "euclidean",
		TopK:         4,
		Features:     []string{"xg_per90", "xa_per90"},
		SamePosition: true,
		Weights:      &api.WeightsRequest{Position: "FW"},
	}
	s.service.On("Similar", expected).Return(sampleSimilar(), nil)

	rec := s.do(http.MethodGet,
		"/api/v1/players/pA/similar?top_k=4&metric=Euclidean&same_position=true&position=FW&features=xg_per90,%20xa_per90", "")
	s.Equal(http.StatusOK, rec.Code)
}

func (s *SimilarityHandlerTestSuite) TestPlayerSimilarBadParams() {
	for _, target := range []string{
		"/api/v1/players/pA/similar?top_k=abc",
		"/api/v1/players/pA/similar?top_k=0",
		"/api/v1/players/pA/similar?metric=manhattan",
		"/api/v1/players/pA/similar?same_position=maybe",
		"/api/v1/players/pA/similar?position=QB",
	} {
		rec := s.do(http.MethodGet, target, "")
		s.Equal(http.StatusBadRequest, rec.Code, target)
	}
	s.service.AssertNotCalled(s.T(), "Similar", mock.Anything)
}

func (s *SimilarityHandlerTestSuite) TestRankAll() {
	s.service.On("RankAll", api.RankAllRequest{TopK: 2}).Return(&api.RankAllResponse{
		Metric:  "cosine",
		Count:   2,
		Keys:    []string{"pA", "pB"},
		Results: map[string][]api.Match{"pA": {{Rank: 1, Index: 1}}, "pB": {{Rank: 1, Index: 0}}},
	}, nil)

	rec := s.do(http.MethodPost, "/api/v1/rank-all", `{"top_k":2}`)
	s.Equal(http.StatusOK, rec.Code)

	var resp api.RankAllResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal([]string{"pA", "pB"}, resp.Keys)
	s.Len(resp.Results["pA"], 1)
}

func (s *SimilarityHandlerTestSuite) TestFilter() {
	expected := api.FilterRequest{
		Filters: api.FilterSpec{Leagues: []string{"EPL"}, AgeRange: &api.AgeRange{Min: 18, Max: 25}},
		Limit:   10,
	}
	s.service.On("Filter", expected).Return(&api.FilterResponse{
		Total:   1,
		Count:   1,
		Columns: []string{"name"},
		Rows:    []map[string]any{{"name": "Alpha"}},
	}, nil)

	rec := s.do(http.MethodPost, "/api/v1/filter", `{"filters":{"leagues":["EPL"],"age_range":{"min":18,"max":25}},"limit":10}`)
	s.Equal(http.StatusOK, rec.Code)
	s.Equal(float64(1), s.decode(rec)["total"])
}

func (s *SimilarityHandlerTestSuite) TestFilterRawValues() {
	tests := []struct {
		name    string
		body    string
		filters api.FilterSpec
	}{
		{
			name:    "inverted age range",
			body:    `{"filters":{"age_range":{"min":30,"max":20}}}`,
			filters: api.FilterSpec{AgeRange: &api.AgeRange{Min: 30, Max: 20}},
		},
		{
			name:    "calendar year season",
			body:    `{"filters":{"seasons":["2024"]}}`,
			filters: api.FilterSpec{Seasons: []string{"2024"}},
		},
		{
			name:    "multi position value",
			body:    `{"filters":{"positions":["FW,MF"]}}`,
			filters: api.FilterSpec{Positions: []string{"FW,MF"}},
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.service.On("Filter", api.FilterRequest{Filters: tt.filters}).Return(&api.FilterResponse{
				Columns: []string{"name"},
				Rows:    []map[string]any{},
			}, nil).Once()

			rec := s.do(http.MethodPost, "/api/v1/filter", tt.body)
			s.Equal(http.StatusOK, rec.Code, rec.Body.String())
		})
	}
}

func (s *SimilarityHandlerTestSuite) TestFilterInvertedRangeIssue() {
	expected := api.FilterRequest{Filters: api.FilterSpec{AgeRange: &api.AgeRange{Min: 30, Max: 20}}}
	s.service.On("Filter", expected).Return(&api.FilterResponse{
		Columns: []string{"name"},
		Rows:    []map[string]any{},
		Issues:  &api.FilterIssues{InvalidValues: []string{"age_range: lo>hi"}},
	}, nil)

	rec := s.do(http.MethodPost, "/api/v1/filter", `{"filters":{"age_range":{"min":30,"max":20}}}`)
	s.Require().Equal(http.StatusOK, rec.Code)

	issues, ok := s.decode(rec)["issues"].(map[string]any)
	s.Require().True(ok)
	s.Equal([]any{"age_range: lo>hi"}, issues["invalid_values"])
}

func (s *SimilarityHandlerTestSuite) TestReport() {
	s.service.On("Report").Return(&api.ReportResponse{Source: "players.csv", Rows: 5}, nil)

	rec := s.do(http.MethodGet, "/api/v1/report", "")
	s.Equal(http.StatusOK, rec.Code)
	body := s.decode(rec)
	s.Equal("players.csv", body["source"])
	s.Equal(float64(5), body["rows"])
}

func (s *SimilarityHandlerTestSuite) TestReload() {
	col := table.NewNumeric("minutes", []float64{900, 1800})
	tbl, err := table.New(col)
	s.Require().NoError(err)
	s.service.On("Reload").Return(&services.Dataset{Source: "players.csv", LoadedAt: time.Now(), Table: tbl}, nil)

	rec := s.do(http.MethodPost, "/api/v1/dataset/reload", "")
	s.Equal(http.StatusOK, rec.Code)
	body := s.decode(rec)
	s.Equal("reloaded", body["status"])
	s.Equal(float64(2), body["rows"])
}

func (s *SimilarityHandlerTestSuite) TestReloadWithoutSource() {
	s.service.On("Reload").Return(nil, apierrors.NewConfigError("no dataset source configured", services.ErrEmptySource))

	rec := s.do(http.MethodPost, "/api/v1/dataset/reload", "")
	s.Equal(http.StatusBadRequest, rec.Code)
}

func TestSimilarityHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(SimilarityHandlerTestSuite))
}
