// Package similarity ranks player rows by weighted cosine or euclidean
// similarity to a query row.
//
// A Ranker is stateless apart from its logger, tracer and metrics recorder
// and may be shared between goroutines. Tables passed to it are never
// modified.
package similarity

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	apierrors "github.com/VaishakhVipin/stattwin/internal/errors"
	"github.com/VaishakhVipin/stattwin/internal/filter"
	"github.com/VaishakhVipin/stattwin/internal/position"
	"github.com/VaishakhVipin/stattwin/internal/table"
)

// Recorder receives one observation per ranked query.
type Recorder interface {
	RecordQuery(ctx context.Context, metric Metric, candidates int, elapsed time.Duration, err error)
}

type nopRecorder struct{}

func (nopRecorder) RecordQuery(context.Context, Metric, int, time.Duration, error) {}

// Ranker runs similarity queries.
type Ranker struct {
	logger   *slog.Logger
	tracer   trace.Tracer
	recorder Recorder
}

// Option customises a Ranker.
type Option func(*Ranker)

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(rk *Ranker) {
		if r != nil {
			rk.recorder = r
		}
	}
}

// NewRanker creates a ranker.
func NewRanker(logger *slog.Logger, opts ...Option) *Ranker {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Ranker{
		logger:   logger.With(slog.String("component", "similarity")),
		tracer:   otel.Tracer("stattwin.similarity"),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// prepared holds the per-table state shared by every query of a run: the
// resolved features and the weighted, sanitised feature matrix over all rows.
type prepared struct {
	t        *table.Table
	q        Query
	features []string
	matrix   *mat.Dense
	filtered []bool
	tags     [][]position.Group
}

func (r *Ranker) prepare(t *table.Table, q Query) (*prepared, error) {
	if !q.Metric.IsValid() {
		return nil, apierrors.NewConfigError(fmt.Sprintf("metric %q", q.Metric), ErrUnsupportedMetric)
	}

	features, err := resolveFeatures(t, q.Features)
	if err != nil {
		return nil, err
	}

	w := q.resolver().Resolve(features)
	if len(w) != len(features) {
		return nil, apierrors.NewConfigError(
			fmt.Sprintf("resolver returned %d weights for %d features", len(w), len(features)), nil)
	}

	n, d := t.Len(), len(features)
	data := make([]float64, n*d)
	for j, name := range features {
		col, _ := t.Column(name)
		for i := 0; i < n; i++ {
			data[i*d+j] = finiteOrZero(finiteOrZero(col.Float(i)) * w[j])
		}
	}

	p := &prepared{t: t, q: q, features: features}
	if n > 0 {
		p.matrix = mat.NewDense(n, d, data)
	}

	if q.Filters != nil {
		p.filtered = filter.Mask(t, *q.Filters)
	}
	if q.SamePosition {
		if col, ok := t.Column(q.PositionColumn); ok {
			p.tags = make([][]position.Group, n)
			for i := 0; i < n; i++ {
				p.tags[i] = position.Parse(col.Str(i))
			}
		}
	}
	return p, nil
}

func resolveFeatures(t *table.Table, explicit []string) ([]string, error) {
	if len(explicit) > 0 {
		for _, f := range explicit {
			col, ok := t.Column(f)
			if !ok {
				return nil, apierrors.NewConfigError(fmt.Sprintf("feature column %q not found", f), ErrNoFeatures)
			}
			if !col.IsNumeric() {
				return nil, apierrors.NewConfigError(fmt.Sprintf("feature column %q is not numeric", f), ErrNoFeatures)
			}
		}
		return append([]string(nil), explicit...), nil
	}

	var features []string
	for _, name := range t.NumericNames() {
		if strings.HasSuffix(name, FeatureSuffix) {
			features = append(features, name)
		}
	}
	if len(features) == 0 {
		return nil, apierrors.NewConfigError("expected numeric *"+FeatureSuffix+" columns", ErrNoFeatures)
	}
	return features, nil
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// resolveQuery returns the query row index.
func resolveQuery(t *table.Table, q Query) (int, error) {
	if q.Index != nil {
		i := *q.Index
		if i < 0 || i >= t.Len() {
			return 0, apierrors.NewLookupError(fmt.Sprintf("row index %d out of range [0, %d)", i, t.Len()), ErrQueryNotFound).
				WithContext("index", i)
		}
		return i, nil
	}
	if q.ID == "" {
		return 0, apierrors.NewConfigError("query has neither index nor id", ErrNoQuery)
	}
	col, ok := t.Column(q.IDColumn)
	if ok {
		for i := 0; i < t.Len(); i++ {
			if !col.IsMissing(i) && col.Str(i) == q.ID {
				return i, nil
			}
		}
	}
	return 0, apierrors.NewLookupError(fmt.Sprintf("id %q not found in column %q", q.ID, q.IDColumn), ErrQueryNotFound).
		WithContext("id", q.ID).
		WithContext("column", q.IDColumn)
}

// candidates returns the ascending row indices eligible for query row qi.
// The query row is always included.
func (p *prepared) candidates(ctx context.Context, logger *slog.Logger, qi int) []int {
	var queryTags []position.Group
	restrict := p.tags != nil
	if restrict {
		queryTags = p.tags[qi]
		if len(queryTags) == 0 {
			logger.WarnContext(ctx, "query position has no recognized tags, position restriction skipped",
				slog.Int("query_index", qi),
				slog.String("position", p.t.Str(qi, p.q.PositionColumn)),
			)
			restrict = false
		}
	}

	rows := make([]int, 0, p.t.Len())
	for i := 0; i < p.t.Len(); i++ {
		if i != qi {
			if p.filtered != nil && !p.filtered[i] {
				continue
			}
			if restrict && !position.Overlaps(queryTags, p.tags[i]) {
				continue
			}
		}
		rows = append(rows, i)
	}
	return rows
}

// score ranks rows against query row qi. scores[k] belongs to rows[k].
func (p *prepared) score(rows []int, qi int) []float64 {
	query := p.matrix.RawRowView(qi)
	scores := make([]float64, len(rows))

	switch p.q.Metric {
	case Euclidean:
		for k, row := range rows {
			scores[k] = 1 / (1 + floats.Distance(p.matrix.RawRowView(row), query, 2))
		}
	default:
		qnorm := floats.Norm(query, 2) + epsilon
		for k, row := range rows {
			v := p.matrix.RawRowView(row)
			scores[k] = floats.Dot(v, query) / ((floats.Norm(v, 2) + epsilon) * qnorm)
		}
	}

	for k, row := range rows {
		if row == qi {
			scores[k] = math.Inf(-1)
		}
	}
	return scores
}

func (p *prepared) rank(ctx context.Context, logger *slog.Logger, qi int) *Result {
	rows := p.candidates(ctx, logger, qi)
	scores := p.score(rows, qi)

	k := p.q.TopK
	if available := len(rows) - 1; k > available {
		k = available
	}
	best := topK(scores, k)

	matchRows := make([]int, len(best))
	matchScores := make([]float64, len(best))
	for i, pos := range best {
		matchRows[i] = rows[pos]
		matchScores[i] = scores[pos]
	}
	return newResult(p.t, p.q, qi, p.features, matchRows, matchScores)
}

// Similar returns the rows most similar to the query row, best first. It
// fails with a config error when no features resolve or the metric is
// unknown, and with a lookup error when the query row cannot be found.
func (r *Ranker) Similar(ctx context.Context, t *table.Table, q Query) (*Result, error) {
	q = q.withDefaults()
	ctx, span := r.tracer.Start(ctx, "similarity.similar",
		trace.WithAttributes(
			attribute.String("metric", q.Metric.String()),
			attribute.Int("top_k", q.TopK),
			attribute.Int("rows", t.Len()),
		))
	defer span.End()
	start := time.Now()

	res, err := r.similar(ctx, t, q)
	candidates := 0
	if res != nil {
		candidates = res.Len()
	}
	r.recorder.RecordQuery(ctx, q.Metric, candidates, time.Since(start), err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger.WarnContext(ctx, "similarity query failed",
			slog.String("id", q.ID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	r.logger.DebugContext(ctx, "similarity query complete",
		slog.Int("query_index", res.QueryIndex),
		slog.Int("matches", res.Len()),
		slog.String("metric", q.Metric.String()),
		slog.Duration("duration", time.Since(start)),
	)
	return res, nil
}

func (r *Ranker) similar(ctx context.Context, t *table.Table, q Query) (*Result, error) {
	qi, err := resolveQuery(t, q)
	if err != nil {
		return nil, err
	}
	p, err := r.prepare(t, q)
	if err != nil {
		return nil, err
	}
	return p.rank(ctx, r.logger, qi), nil
}

// RankAll runs the query against every row of t and keys results by the id
// column value, or by row index when the id column is absent. Query.Index
// and Query.ID are ignored. workers bounds concurrent queries; values below 2
// run sequentially. The cost is quadratic in the number of rows.
func (r *Ranker) RankAll(ctx context.Context, t *table.Table, q Query, workers int) (*BatchResult, error) {
	q = q.withDefaults()
	q.Index, q.ID = nil, ""

	ctx, span := r.tracer.Start(ctx, "similarity.rank_all",
		trace.WithAttributes(
			attribute.String("metric", q.Metric.String()),
			attribute.Int("rows", t.Len()),
			attribute.Int("workers", workers),
		))
	defer span.End()
	start := time.Now()

	p, err := r.prepare(t, q)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	n := t.Len()
	results := make([]*Result, n)

	g, gctx := errgroup.WithContext(ctx)
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			qstart := time.Now()
			results[i] = p.rank(gctx, r.logger, i)
			r.recorder.RecordQuery(gctx, q.Metric, results[i].Len(), time.Since(qstart), nil)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	batch := &BatchResult{Results: make(map[string]*Result, n)}
	idCol, hasID := t.Column(q.IDColumn)
	for i, res := range results {
		key := strconv.Itoa(i)
		if hasID {
			key = idCol.Str(i)
		}
		if _, seen := batch.Results[key]; !seen {
			batch.Keys = append(batch.Keys, key)
		}
		batch.Results[key] = res
	}

	r.logger.InfoContext(ctx, "batch ranking complete",
		slog.Int("queries", n),
		slog.Int("keys", len(batch.Keys)),
		slog.Int("workers", workers),
		slog.Duration("duration", time.Since(start)),
	)
	return batch, nil
}
