package services

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/VaishakhVipin/stattwin/internal/config"
	"github.com/VaishakhVipin/stattwin/internal/dataset"
	apierrors "github.com/VaishakhVipin/stattwin/internal/errors"
	"github.com/VaishakhVipin/stattwin/internal/infrastructure"
	"github.com/VaishakhVipin/stattwin/internal/league"
	"github.com/VaishakhVipin/stattwin/internal/preprocess"
	"github.com/VaishakhVipin/stattwin/internal/table"
	api "github.com/VaishakhVipin/stattwin/pkg/contracts/api/v1"
)

var playerHeader = []string{"player_id", "name", "position", "age", "league", "season",
	"minutes", "shots", "shots_on_target", "passes_completed", "passes_attempted",
	"tackles", "interceptions"}

func rawPlayers(t *testing.T) *table.Table {
	t.Helper()
	tbl, err := table.FromRows(playerHeader, [][]any{
		{"pA", "Alpha", "FW", 24, "EPL", "2023-2024", 900, 30, 15, 200, 250, 10, 5},
		{"pB", "Bravo", "FW", 26, "EPL", "2023-2024", 900, 28, 14, 190, 240, 11, 5},
		{"pC", "Charlie", "DF", 30, "EPL", "2023-2024", 900, 5, 1, 600, 700, 60, 40},
		{"pD", "Delta", "MF", 22, "LaLiga", "2023-2024", 900, 12, 5, 500, 560, 30, 25},
		{"pE", "Echo", "FW", 25, "EPL", "2022-2023", 900, 29, 15, 195, 245, 10, 6},
	})
	require.NoError(t, err)
	return tbl
}

func testRegistry() *league.Registry {
	return league.New(
		league.League{ID: 7, Name: "EPL", Country: "England", CountryCode: "ENG", Tier: league.TierFirst, Major: true},
		league.League{ID: 9, Name: "LaLiga", Country: "Spain", CountryCode: "ESP", Tier: league.TierFirst, Major: true},
	)
}

func newTestService(t *testing.T, opts ...SimilarityOption) *SimilarityService {
	t.Helper()
	pipeline, err := preprocess.NewPipeline(preprocess.DefaultConfig(), nil)
	require.NoError(t, err)
	ranking := config.Default().Ranking
	ranking.MaxTopK = 3
	ranking.Workers = 2
	return NewSimilarityService(pipeline, testRegistry(), ranking, nil, opts...)
}

func loadedService(t *testing.T) *SimilarityService {
	t.Helper()
	s := newTestService(t)
	_, err := s.Load(context.Background(), rawPlayers(t), "fixture")
	require.NoError(t, err)
	return s
}

func TestSimilarityService_NoDataset(t *testing.T) {
	s := newTestService(t)

	_, err := s.Current()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoDataset))

	var apiErr *apierrors.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)

	_, err = s.Similar(context.Background(), api.SimilarRequest{PlayerID: "pA"})
	assert.ErrorIs(t, err, ErrNoDataset)
	assert.Nil(t, s.DatasetHealth())
}

func TestSimilarityService_Load(t *testing.T) {
	s := newTestService(t)

	ds, err := s.Load(context.Background(), rawPlayers(t), "fixture")
	require.NoError(t, err)
	assert.Equal(t, "fixture", ds.Source)
	assert.Equal(t, 5, ds.Table.Len())
	assert.Contains(t, ds.Artifacts.NormalizedColumns, "shots_per90_z")
	assert.False(t, ds.LoadedAt.IsZero())

	current, err := s.Current()
	require.NoError(t, err)
	assert.Same(t, ds, current)

	health := s.DatasetHealth()
	require.NotNil(t, health)
	assert.Equal(t, 5, health.Rows)
	assert.Equal(t, 2, health.Leagues)
}

func TestSimilarityService_Similar(t *testing.T) {
	s := loadedService(t)
	ctx := context.Background()

	t.Run("filtered by league season and age", func(t *testing.T) {
		resp, err := s.Similar(ctx, api.SimilarRequest{
			PlayerID: "pA",
			TopK:     1,
			Filters: &api.FilterSpec{
				AgeRange: &api.AgeRange{Min: 20, Max: 28},
				Leagues:  []string{"EPL"},
				Seasons:  []string{"2023-2024"},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, "pA", resp.Query.PlayerID)
		assert.Equal(t, "Alpha", resp.Query.Name)
		assert.Equal(t, "cosine", resp.Metric)
		require.Equal(t, 1, resp.Count)
		assert.Equal(t, 1, resp.Matches[0].Rank)
		assert.Equal(t, "pB", resp.Matches[0].Fields["player_id"])
	})

	t.Run("league ids resolve through the registry", func(t *testing.T) {
		resp, err := s.Similar(ctx, api.SimilarRequest{
			PlayerID: "pA",
			Filters:  &api.FilterSpec{LeagueIDs: []int{9}},
		})
		require.NoError(t, err)
		require.Equal(t, 1, resp.Count)
		assert.Equal(t, "pD", resp.Matches[0].Fields["player_id"])
	})

	t.Run("top k clamped to maximum", func(t *testing.T) {
		resp, err := s.Similar(ctx, api.SimilarRequest{PlayerID: "pA", TopK: 50})
		require.NoError(t, err)
		assert.Equal(t, 3, resp.Count)
	})

	t.Run("by index", func(t *testing.T) {
		idx := 3
		resp, err := s.Similar(ctx, api.SimilarRequest{Index: &idx, Metric: "euclidean", TopK: 2})
		require.NoError(t, err)
		assert.Equal(t, 3, resp.Query.Index)
		assert.Equal(t, "pD", resp.Query.PlayerID)
		assert.Equal(t, "euclidean", resp.Metric)
		for _, m := range resp.Matches {
			assert.NotEqual(t, 3, m.Index)
		}
	})

	t.Run("unknown player", func(t *testing.T) {
		_, err := s.Similar(ctx, api.SimilarRequest{PlayerID: "nobody"})
		require.Error(t, err)
		assert.True(t, apierrors.IsType(err, apierrors.ErrTypeLookup))
	})

	t.Run("unknown metric", func(t *testing.T) {
		_, err := s.Similar(ctx, api.SimilarRequest{PlayerID: "pA", Metric: "manhattan"})
		require.Error(t, err)
		assert.True(t, apierrors.IsType(err, apierrors.ErrTypeConfig))
	})

	t.Run("unknown league id", func(t *testing.T) {
		_, err := s.Similar(ctx, api.SimilarRequest{
			PlayerID: "pA",
			Filters:  &api.FilterSpec{LeagueIDs: []int{404}},
		})
		require.Error(t, err)
		assert.True(t, apierrors.IsType(err, apierrors.ErrTypeNotFound))
	})
}

func TestSimilarityService_RankAll(t *testing.T) {
	s := loadedService(t)

	resp, err := s.RankAll(context.Background(), api.RankAllRequest{TopK: 2})
	require.NoError(t, err)
	assert.Equal(t, "cosine", resp.Metric)
	assert.Equal(t, 5, resp.Count)
	assert.Equal(t, []string{"pA", "pB", "pC", "pD", "pE"}, resp.Keys)
	for _, key := range resp.Keys {
		matches := resp.Results[key]
		require.Len(t, matches, 2, key)
		assert.NotEqual(t, key, matches[0].Fields["player_id"])
		assert.GreaterOrEqual(t, matches[0].Score, matches[1].Score)
	}
}

func TestSimilarityService_Filter(t *testing.T) {
	s := loadedService(t)
	ctx := context.Background()

	resp, err := s.Filter(ctx, api.FilterRequest{
		Filters: api.FilterSpec{Leagues: []string{"EPL"}},
		Limit:   2,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, resp.Total)
	assert.Equal(t, 2, resp.Count)
	assert.Len(t, resp.Rows, 2)
	assert.Equal(t, []string{"player_id", "name", "position", "league", "season"}, resp.Columns)
	for _, row := range resp.Rows {
		assert.Equal(t, "EPL", row["league"])
	}
	assert.Nil(t, resp.Issues)

	resp, err = s.Filter(ctx, api.FilterRequest{
		Filters: api.FilterSpec{Continents: []string{"Europe"}},
		Columns: []string{"name", "age", "missing"},
	})
	require.NoError(t, err)
	assert.Equal(t, 5, resp.Total, "absent continent column does not constrain")
	assert.Equal(t, []string{"name", "age"}, resp.Columns)
	require.NotNil(t, resp.Issues)
	assert.Equal(t, []string{"continent"}, resp.Issues.MissingColumns)

	resp, err = s.Filter(ctx, api.FilterRequest{
		Filters: api.FilterSpec{AgeRange: &api.AgeRange{Min: 30, Max: 20}, Seasons: []string{"2024"}},
	})
	require.NoError(t, err, "inverted range is a diagnostic")
	assert.Equal(t, 0, resp.Total)
	require.NotNil(t, resp.Issues)
	assert.Equal(t, []string{"age_range: lo>hi"}, resp.Issues.InvalidValues)
}

func TestSimilarityService_Report(t *testing.T) {
	s := loadedService(t)

	report, err := s.Report(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fixture", report.Source)
	assert.Equal(t, 5, report.Rows)
	assert.Contains(t, report.Per90Columns, "shots_per90")
	assert.Contains(t, report.DerivedColumns, "def_actions")
	assert.Equal(t, 0, report.Cleaning.DroppedRows)
	require.NotNil(t, report.Scaler)
	assert.Equal(t, "standard", report.Scaler.Method)
	assert.Equal(t, len(report.NormalizedColumns), len(report.Scaler.Columns))
}

func TestSimilarityService_LoadFileUsesCache(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "players.csv")
	writer := dataset.NewWriter(nil)
	require.NoError(t, writer.WriteFile(path, rawPlayers(t)))

	s := newTestService(t, WithCache(dataset.NewMemoryCache(), time.Hour))
	ctx := context.Background()

	ds, err := s.LoadFile(ctx, path, "")
	require.NoError(t, err)
	assert.Equal(t, path, ds.Source)
	assert.Equal(t, 5, ds.Table.Len())

	require.NoError(t, writer.WriteFile(path, rawPlayers(t).Take([]int{0, 1, 2})))

	ds, err = s.LoadFile(ctx, path, "")
	require.NoError(t, err)
	assert.Equal(t, 5, ds.Table.Len(), "fresh cache entry is reused")

	ds, err = s.Reload(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Table.Len())
}

func TestSimilarityService_LoadFileErrors(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	_, err := s.LoadFile(ctx, "", "")
	assert.ErrorIs(t, err, ErrEmptySource)

	_, err = s.LoadFile(ctx, "players.parquet", "")
	assert.True(t, apierrors.IsType(err, apierrors.ErrTypeParsing))

	_, err = s.LoadFile(ctx, filepath.Join(t.TempDir(), "absent.csv"), "")
	assert.True(t, apierrors.IsType(err, apierrors.ErrTypeStorage))

	_, err = s.Reload(ctx)
	assert.ErrorIs(t, err, ErrEmptySource)
}

func TestSimilarityService_RecordsMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	metrics, err := infrastructure.CreateBusinessMetrics(mp.Meter("test"))
	require.NoError(t, err)

	s := newTestService(t, WithMetrics(metrics))
	ctx := context.Background()
	_, err = s.Load(ctx, rawPlayers(t), "fixture")
	require.NoError(t, err)
	_, err = s.Similar(ctx, api.SimilarRequest{PlayerID: "pA"})
	require.NoError(t, err)
	_, err = s.RankAll(ctx, api.RankAllRequest{})
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if s, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range s.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(1), sums["pipeline_runs_total"])
	assert.Equal(t, int64(6), sums["similarity_queries_total"], "one direct query plus one per row of the batch")
	assert.Equal(t, int64(1), sums["similarity_batch_runs_total"])
}
