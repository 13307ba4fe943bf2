package preprocess

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apierrors "github.com/VaishakhVipin/stattwin/internal/errors"
	"github.com/VaishakhVipin/stattwin/internal/table"
)

// Artifacts bundles the fitted scaler and the names of every derived column.
type Artifacts struct {
	Scaler            *Scaler  `json:"scaler,omitempty" yaml:"scaler,omitempty"`
	NormalizedColumns []string `json:"normalized_columns" yaml:"normalized_columns"`
	Per90Columns      []string `json:"per90_columns" yaml:"per90_columns"`
	DerivedColumns    []string `json:"derived_columns" yaml:"derived_columns"`
}

// Report holds the cleaning and validation diagnostics of a run.
type Report struct {
	Cleaning   CleanReport      `json:"cleaning" yaml:"cleaning"`
	Validation ValidationReport `json:"validation" yaml:"validation"`
}

// Pipeline runs clean, per-90, feature engineering, scaling and validation in
// order over an input table.
type Pipeline struct {
	cfg    Config
	logger *slog.Logger
	tracer trace.Tracer
}

// NewPipeline validates cfg and returns a pipeline.
func NewPipeline(cfg Config, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, apierrors.NewConfigError("preprocessing config rejected", err)
	}
	return &Pipeline{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "preprocess")),
		tracer: otel.Tracer("stattwin.preprocess"),
	}, nil
}

// Config returns the configuration the pipeline runs with.
func (p *Pipeline) Config() Config { return p.cfg }

// Run transforms raw into a table of normalized features. The input table is
// not modified.
func (p *Pipeline) Run(ctx context.Context, raw *table.Table) (*table.Table, Artifacts, Report, error) {
	ctx, span := p.tracer.Start(ctx, "preprocess.run",
		trace.WithAttributes(
			attribute.Int("rows", raw.Len()),
			attribute.Int("columns", raw.Width()),
		))
	defer span.End()

	start := time.Now()
	p.logger.InfoContext(ctx, "starting preprocessing",
		slog.Int("rows", raw.Len()),
		slog.Int("columns", raw.Width()),
		slog.String("scale", string(p.cfg.Scale)),
	)

	if err := ctx.Err(); err != nil {
		return nil, Artifacts{}, Report{}, err
	}

	cleaned, cleanReport := Clean(raw, p.cfg)
	p.logger.DebugContext(ctx, "cleaning complete",
		slog.Int("dropped_rows", cleanReport.DroppedRows),
		slog.Int("imputed_numeric", len(cleanReport.ImputedNumeric)),
		slog.Int("imputed_text", len(cleanReport.ImputedText)),
	)

	withRates, per90Cols := Per90(cleaned, p.cfg)
	if len(per90Cols) == 0 && !cleaned.Has(p.cfg.ExposureColumn) {
		p.logger.WarnContext(ctx, "exposure column absent, per-90 rates skipped",
			slog.String("column", p.cfg.ExposureColumn))
	}

	engineered, derived := EngineerFeatures(withRates, p.cfg)

	normalized, zCols, scaler, err := Normalize(engineered, p.cfg, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "normalize failed")
		if apierrors.IsType(err, apierrors.ErrTypeConfig) {
			return nil, Artifacts{}, Report{}, err
		}
		return nil, Artifacts{}, Report{}, apierrors.NewConfigError("normalize", err)
	}

	report := Report{
		Cleaning:   cleanReport,
		Validation: Validate(normalized, p.cfg),
	}
	artifacts := Artifacts{
		Scaler:            scaler,
		NormalizedColumns: zCols,
		Per90Columns:      per90Cols,
		DerivedColumns:    derived,
	}

	if report.Validation.NegativeExposure > 0 || len(report.Validation.OutOfRange) > 0 {
		p.logger.WarnContext(ctx, "data quality issues found",
			slog.Int("negative_exposure", report.Validation.NegativeExposure),
			slog.Int("out_of_range_columns", len(report.Validation.OutOfRange)),
		)
	}

	span.SetAttributes(
		attribute.Int("rows_out", normalized.Len()),
		attribute.Int("normalized_columns", len(zCols)),
	)
	p.logger.InfoContext(ctx, "preprocessing complete",
		slog.Int("rows", normalized.Len()),
		slog.Int("per90_columns", len(per90Cols)),
		slog.Int("derived_columns", len(derived)),
		slog.Int("normalized_columns", len(zCols)),
		slog.Duration("duration", time.Since(start)),
	)

	return normalized, artifacts, report, nil
}
