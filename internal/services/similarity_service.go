package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/VaishakhVipin/stattwin/internal/config"
	"github.com/VaishakhVipin/stattwin/internal/dataset"
	apierrors "github.com/VaishakhVipin/stattwin/internal/errors"
	"github.com/VaishakhVipin/stattwin/internal/filter"
	"github.com/VaishakhVipin/stattwin/internal/infrastructure"
	"github.com/VaishakhVipin/stattwin/internal/league"
	"github.com/VaishakhVipin/stattwin/internal/preprocess"
	"github.com/VaishakhVipin/stattwin/internal/similarity"
	"github.com/VaishakhVipin/stattwin/internal/table"
	"github.com/VaishakhVipin/stattwin/internal/weights"
	api "github.com/VaishakhVipin/stattwin/pkg/contracts/api/v1"
)

// DefaultFilterLimit caps filter responses when the request sets no limit.
const DefaultFilterLimit = 100

// NameColumn is reported alongside the query player when present.
const NameColumn = "name"

// Dataset is one processed player table and what preprocessing produced
// along the way. It is never modified after it is published.
type Dataset struct {
	Source    string
	LoadedAt  time.Time
	Table     *table.Table
	Artifacts preprocess.Artifacts
	Report    preprocess.Report
}

// SimilarityService answers similarity, ranking and filter requests against
// the currently loaded dataset.
type SimilarityService struct {
	mu      sync.RWMutex
	dataset *Dataset
	source  string
	sheet   string

	pipeline *preprocess.Pipeline
	ranker   *similarity.Ranker
	registry *league.Registry
	ranking  config.RankingConfig
	cache    *dataset.MemoryCache
	maxAge   time.Duration
	metrics  *infrastructure.BusinessMetrics
	logger   *slog.Logger
	tracer   trace.Tracer
}

// SimilarityOption customises a SimilarityService.
type SimilarityOption func(*SimilarityService)

// WithMetrics records pipeline runs, dataset loads and queries.
func WithMetrics(m *infrastructure.BusinessMetrics) SimilarityOption {
	return func(s *SimilarityService) { s.metrics = m }
}

// WithCache reuses raw file payloads younger than maxAge across reloads.
func WithCache(c *dataset.MemoryCache, maxAge time.Duration) SimilarityOption {
	return func(s *SimilarityService) {
		if c != nil {
			s.cache = c
		}
		s.maxAge = maxAge
	}
}

// NewSimilarityService creates a service with no dataset loaded. A nil
// registry selects the built-in league set.
func NewSimilarityService(pipeline *preprocess.Pipeline, registry *league.Registry, ranking config.RankingConfig, logger *slog.Logger, opts ...SimilarityOption) *SimilarityService {
	if logger == nil {
		logger = slog.Default()
	}
	if registry == nil {
		registry = league.Default()
	}
	s := &SimilarityService{
		pipeline: pipeline,
		registry: registry,
		ranking:  ranking,
		cache:    dataset.NewMemoryCache(),
		logger:   logger.With(slog.String("component", "similarity_service")),
		tracer:   otel.Tracer("stattwin.services"),
	}
	for _, opt := range opts {
		opt(s)
	}

	var rankerOpts []similarity.Option
	if s.metrics != nil {
		rankerOpts = append(rankerOpts, similarity.WithRecorder(s.metrics))
	}
	s.ranker = similarity.NewRanker(logger, rankerOpts...)
	return s
}

// Load preprocesses raw and publishes the result as the current dataset.
func (s *SimilarityService) Load(ctx context.Context, raw *table.Table, source string) (*Dataset, error) {
	start := time.Now()
	out, artifacts, report, err := s.pipeline.Run(ctx, raw)
	s.metrics.RecordPipelineRun(ctx, time.Since(start), report.Cleaning.DroppedRows, err)
	if err != nil {
		s.logger.ErrorContext(ctx, "preprocessing failed",
			slog.String("source", source),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("preprocess %s: %w", source, err)
	}

	ds := &Dataset{
		Source:    source,
		LoadedAt:  time.Now().UTC(),
		Table:     out,
		Artifacts: artifacts,
		Report:    report,
	}
	s.mu.Lock()
	s.dataset = ds
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "dataset loaded",
		slog.String("source", source),
		slog.Int("raw_rows", raw.Len()),
		slog.Int("rows", out.Len()),
		slog.Int("features", len(artifacts.NormalizedColumns)),
		slog.Duration("duration", time.Since(start)),
	)
	return ds, nil
}

// LoadFile reads a CSV, JSON or XLSX file and loads it. sheet selects the
// XLSX worksheet; empty means the first non-empty one. The raw file is
// served from the cache while it is fresh.
func (s *SimilarityService) LoadFile(ctx context.Context, path, sheet string) (*Dataset, error) {
	ctx, span := s.tracer.Start(ctx, "services.load_file",
		trace.WithAttributes(attribute.String("path", path)))
	defer span.End()

	raw, format, err := s.readFile(ctx, path, sheet)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		return nil, err
	}
	s.metrics.RecordDatasetLoad(ctx, format.String(), raw.Len())

	ds, err := s.Load(ctx, raw, path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		return nil, err
	}
	s.mu.Lock()
	s.source, s.sheet = path, sheet
	s.mu.Unlock()
	return ds, nil
}

// Reload drops the cached payload of the last loaded file and loads it again.
func (s *SimilarityService) Reload(ctx context.Context) (*Dataset, error) {
	s.mu.RLock()
	path, sheet := s.source, s.sheet
	s.mu.RUnlock()
	if path == "" {
		return nil, apierrors.NewConfigError("nothing to reload", ErrEmptySource)
	}
	s.cache.Invalidate(path)
	return s.LoadFile(ctx, path, sheet)
}

func (s *SimilarityService) readFile(ctx context.Context, path, sheet string) (*table.Table, dataset.Format, error) {
	if path == "" {
		return nil, "", apierrors.NewConfigError("dataset source required", ErrEmptySource)
	}
	format, err := dataset.FormatFromPath(path)
	if err != nil {
		return nil, "", apierrors.NewParsingError(path, err)
	}
	fetch := func(context.Context) ([]byte, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, apierrors.NewStorageError("read "+path, err)
		}
		return data, nil
	}

	if format == dataset.FormatXLSX && sheet != "" {
		data, err := s.cache.GetOrFetch(ctx, path, fetch, s.maxAge)
		if err != nil {
			return nil, format, err
		}
		t, err := dataset.ReadXLSX(bytes.NewReader(data), sheet)
		return t, format, err
	}
	t, err := dataset.LoadCached(ctx, s.cache, path, format, fetch, s.maxAge)
	return t, format, err
}

// Current returns the loaded dataset.
func (s *SimilarityService) Current() (*Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dataset == nil {
		return nil, fmt.Errorf("%w: %w", apierrors.ErrServiceUnavailable, ErrNoDataset)
	}
	return s.dataset, nil
}

// Similar ranks the players most similar to the requested one.
func (s *SimilarityService) Similar(ctx context.Context, req api.SimilarRequest) (*api.SimilarResponse, error) {
	ds, err := s.Current()
	if err != nil {
		return nil, err
	}
	q, err := s.buildQuery(req.Metric, req.TopK, req.Features, req.Weights, req.Filters, req.SamePosition)
	if err != nil {
		return nil, err
	}
	if req.Index != nil {
		q.Index = req.Index
	} else {
		q.ID = req.PlayerID
	}
	if req.ReturnColumns != nil {
		q.ReturnColumns = req.ReturnColumns
	}

	res, err := s.ranker.Similar(ctx, ds.Table, q)
	if err != nil {
		return nil, err
	}
	return &api.SimilarResponse{
		Query:    s.queryRef(ds.Table, res.QueryIndex),
		Metric:   res.Metric.String(),
		Features: res.Features,
		Count:    res.Len(),
		Matches:  toMatches(res),
	}, nil
}

// RankAll ranks every player of the dataset against the rest.
func (s *SimilarityService) RankAll(ctx context.Context, req api.RankAllRequest) (*api.RankAllResponse, error) {
	ds, err := s.Current()
	if err != nil {
		return nil, err
	}
	q, err := s.buildQuery(req.Metric, req.TopK, req.Features, req.Weights, req.Filters, req.SamePosition)
	if err != nil {
		return nil, err
	}

	batch, err := s.ranker.RankAll(ctx, ds.Table, q, s.ranking.Workers)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordBatch(ctx, q.Metric)

	resp := &api.RankAllResponse{
		Metric:  q.Metric.String(),
		Count:   len(batch.Keys),
		Keys:    batch.Keys,
		Results: make(map[string][]api.Match, len(batch.Keys)),
	}
	for _, key := range batch.Keys {
		res, _ := batch.Get(key)
		resp.Results[key] = toMatches(res)
	}
	return resp, nil
}

// Filter returns the players matching the request filters.
func (s *SimilarityService) Filter(ctx context.Context, req api.FilterRequest) (*api.FilterResponse, error) {
	ds, err := s.Current()
	if err != nil {
		return nil, err
	}
	spec, err := s.filterSpec(req.Filters)
	if err != nil {
		return nil, err
	}

	filtered, issues := filter.ApplyWithReport(ds.Table, spec)

	columns := req.Columns
	if len(columns) == 0 {
		columns = s.returnColumns()
	}
	present := presentColumns(filtered, columns)
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultFilterLimit
	}
	n := min(limit, filtered.Len())

	view := filtered.Select(present...)
	rows := make([]map[string]any, n)
	for i := 0; i < n; i++ {
		rows[i] = view.Row(i)
	}

	resp := &api.FilterResponse{
		Total:   filtered.Len(),
		Count:   n,
		Columns: present,
		Rows:    rows,
	}
	if !issues.Empty() {
		resp.Issues = &api.FilterIssues{
			MissingColumns: issues.MissingColumns,
			InvalidValues:  issues.InvalidValues,
		}
		s.logger.DebugContext(ctx, "filter issues",
			slog.Any("missing_columns", issues.MissingColumns),
			slog.Any("invalid_values", issues.InvalidValues),
		)
	}
	return resp, nil
}

// Report describes the loaded dataset and its preprocessing diagnostics.
func (s *SimilarityService) Report(ctx context.Context) (*api.ReportResponse, error) {
	ds, err := s.Current()
	if err != nil {
		return nil, err
	}

	out := &api.ReportResponse{
		Source:            ds.Source,
		LoadedAt:          ds.LoadedAt,
		Rows:              ds.Table.Len(),
		Columns:           ds.Table.Width(),
		Per90Columns:      ds.Artifacts.Per90Columns,
		DerivedColumns:    ds.Artifacts.DerivedColumns,
		NormalizedColumns: ds.Artifacts.NormalizedColumns,
		Cleaning: api.CleaningReport{
			DroppedRows:    ds.Report.Cleaning.DroppedRows,
			ImputedNumeric: ds.Report.Cleaning.ImputedNumeric,
			ImputedText:    ds.Report.Cleaning.ImputedText,
		},
		Validation: api.DataQualityReport{
			NegativeExposure: ds.Report.Validation.NegativeExposure,
			MissingCounts:    ds.Report.Validation.MissingCounts,
		},
	}
	if len(ds.Report.Validation.OutOfRange) > 0 {
		out.Validation.OutOfRange = make(map[string]api.RangeViolation, len(ds.Report.Validation.OutOfRange))
		for col, v := range ds.Report.Validation.OutOfRange {
			out.Validation.OutOfRange[col] = api.RangeViolation{Below0: v.Below0, Above100: v.Above100}
		}
	}
	if sc := ds.Artifacts.Scaler; sc != nil {
		out.Scaler = &api.ScalerDescription{Method: string(sc.Method), Columns: sc.Columns}
	}
	return out, nil
}

// DatasetHealth summarises the loaded dataset, or returns nil before the
// first load.
func (s *SimilarityService) DatasetHealth() *api.DatasetHealth {
	ds, err := s.Current()
	if err != nil {
		return nil
	}
	leagues := 0
	if col, ok := ds.Table.Column(filter.LeagueColumn); ok {
		seen := make(map[string]struct{})
		for i := 0; i < col.Len(); i++ {
			if !col.IsMissing(i) {
				seen[col.Str(i)] = struct{}{}
			}
		}
		leagues = len(seen)
	}
	return &api.DatasetHealth{
		Source:   ds.Source,
		Rows:     ds.Table.Len(),
		Leagues:  leagues,
		LoadedAt: ds.LoadedAt,
	}
}

// buildQuery applies the request on top of the configured ranking defaults.
// TopK is clamped to the configured maximum.
func (s *SimilarityService) buildQuery(metric string, topK int, features []string, w *api.WeightsRequest, f *api.FilterSpec, samePosition bool) (similarity.Query, error) {
	q := s.ranking.Query()
	if q.Metric == "" {
		q.Metric = similarity.Cosine
	}
	if metric != "" {
		m, err := similarity.ParseMetric(metric)
		if err != nil {
			return q, apierrors.NewConfigError(fmt.Sprintf("metric %q", metric), err)
		}
		q.Metric = m
	}
	if topK > 0 {
		q.TopK = topK
	}
	if s.ranking.MaxTopK > 0 && q.TopK > s.ranking.MaxTopK {
		q.TopK = s.ranking.MaxTopK
	}
	q.Features = features
	q.SamePosition = samePosition
	if w != nil {
		cfg := weights.ForPosition(w.Position)
		cfg.ColumnWeights = w.ColumnWeights
		q.Weights = &cfg
	}
	if f != nil {
		spec, err := s.filterSpec(*f)
		if err != nil {
			return q, err
		}
		q.Filters = &spec
	}
	return q, nil
}

// filterSpec converts an API filter, resolving league ids through the
// registry. An unknown league id is an error rather than a silently widened
// filter.
func (s *SimilarityService) filterSpec(f api.FilterSpec) (filter.Spec, error) {
	spec := filter.Spec{
		Continents: f.Continents,
		Positions:  f.Positions,
		Seasons:    f.Seasons,
	}
	if f.AgeRange != nil {
		spec.AgeRange = &filter.Range{Min: f.AgeRange.Min, Max: f.AgeRange.Max}
	}

	leagues := append([]string(nil), f.Leagues...)
	for _, id := range f.LeagueIDs {
		if _, ok := s.registry.Lookup(id); !ok {
			return filter.Spec{}, apierrors.NewNotFoundError(fmt.Sprintf("league %d", id)).
				WithContext("league_id", id)
		}
	}
	leagues = append(leagues, s.registry.Names(f.LeagueIDs)...)
	if len(leagues) > 0 {
		spec.Leagues = leagues
	}
	return spec, nil
}

func (s *SimilarityService) returnColumns() []string {
	if len(s.ranking.ReturnColumns) > 0 {
		return s.ranking.ReturnColumns
	}
	return similarity.DefaultReturnColumns
}

func (s *SimilarityService) queryRef(t *table.Table, qi int) api.QueryRef {
	ref := api.QueryRef{Index: qi}
	idColumn := s.ranking.IDColumn
	if idColumn == "" {
		idColumn = similarity.DefaultIDColumn
	}
	if t.Has(idColumn) {
		ref.PlayerID = t.Str(qi, idColumn)
	}
	if t.Has(NameColumn) {
		ref.Name = t.Str(qi, NameColumn)
	}
	return ref
}

func toMatches(res *similarity.Result) []api.Match {
	out := make([]api.Match, res.Len())
	for i, m := range res.Matches {
		out[i] = api.Match{
			Rank:   i + 1,
			Index:  m.Index,
			Score:  m.Score,
			Fields: m.Fields,
		}
	}
	return out
}

func presentColumns(t *table.Table, columns []string) []string {
	out := make([]string, 0, len(columns))
	for _, c := range columns {
		if t.Has(c) {
			out = append(out, c)
		}
	}
	return out
}
