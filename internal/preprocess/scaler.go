package preprocess

import (
	"errors"
	"fmt"
	"math"

	apierrors "github.com/VaishakhVipin/stattwin/internal/errors"
	"github.com/VaishakhVipin/stattwin/internal/table"
)

// ErrUnknownScale is the cause of the CONFIG error Normalize returns for a
// method other than standard or robust.
var ErrUnknownScale = errors.New("unknown scaling method")

// Scaler is a fitted column-wise transform mapping each column to
// (x - center) / scale. Fit and Transform are separate so a scaler fitted on
// one table can be applied to rows that arrive later.
type Scaler struct {
	Method  ScaleMethod `json:"method" yaml:"method"`
	Columns []string    `json:"columns" yaml:"columns"`
	Centers []float64   `json:"centers" yaml:"centers"`
	Scales  []float64   `json:"scales" yaml:"scales"`
}

// NewScaler returns an unfitted scaler for the given method. An empty method
// means standard.
func NewScaler(method ScaleMethod) *Scaler {
	if method == "" {
		method = ScaleStandard
	}
	return &Scaler{Method: method}
}

func (m ScaleMethod) valid() bool {
	return m == "" || m == ScaleStandard || m == ScaleRobust
}

// Fit computes centers and scales for the named columns. Missing values are
// filled with the column mean (standard) or median (robust) before fitting.
// A zero spread yields a scale of 1.
func (s *Scaler) Fit(t *table.Table, cols []string) error {
	if !s.Method.valid() {
		return apierrors.NewConfigError(fmt.Sprintf("scale %q", s.Method), ErrUnknownScale)
	}
	s.Columns = nil
	s.Centers = nil
	s.Scales = nil

	for _, name := range cols {
		col, ok := t.Column(name)
		if !ok {
			return fmt.Errorf("scaler fit: column %q not found", name)
		}
		values := col.Floats()

		var fill float64
		if s.Method == ScaleRobust {
			fill = median(values)
		} else {
			fill = mean(values)
		}
		filled := fillMissing(values, fill)

		var center, scale float64
		if s.Method == ScaleRobust {
			center = median(filled)
			scale = quantile(filled, 0.75) - quantile(filled, 0.25)
		} else {
			center, scale = meanStd(filled)
		}
		if math.IsNaN(center) {
			center = 0
		}
		if scale == 0 || math.IsNaN(scale) {
			scale = 1
		}

		s.Columns = append(s.Columns, name)
		s.Centers = append(s.Centers, center)
		s.Scales = append(s.Scales, scale)
	}
	return nil
}

// Transform appends a <col>_z column for every fitted column. Cells missing in
// the input stay missing in the output.
func (s *Scaler) Transform(t *table.Table) (*table.Table, []string, error) {
	created := make([]string, 0, len(s.Columns))
	cols := make([]*table.Column, 0, len(s.Columns))
	for j, name := range s.Columns {
		col, ok := t.Column(name)
		if !ok {
			return nil, nil, fmt.Errorf("scaler transform: column %q not found", name)
		}
		out := make([]float64, t.Len())
		for i := range out {
			v := col.Float(i)
			if math.IsNaN(v) {
				out[i] = math.NaN()
				continue
			}
			out[i] = (v - s.Centers[j]) / s.Scales[j]
		}
		zname := name + NormalizedSuffix
		cols = append(cols, table.NewNumeric(zname, out))
		created = append(created, zname)
	}
	if len(cols) == 0 {
		return t, created, nil
	}
	return t.WithColumns(cols...), created, nil
}

// FitTransform fits the scaler on cols and transforms the same table.
func (s *Scaler) FitTransform(t *table.Table, cols []string) (*table.Table, []string, error) {
	if err := s.Fit(t, cols); err != nil {
		return nil, nil, err
	}
	return s.Transform(t)
}

// ScaleTargets resolves the columns Normalize scales: an explicit list, the
// configured list, or every numeric column outside the identity columns and
// the exposure column. Requested columns absent from the table are dropped.
func ScaleTargets(t *table.Table, cfg Config, cols []string) []string {
	if cols == nil {
		cols = cfg.ScaleColumns
	}
	if len(cols) == 0 {
		return t.NumericNames(cfg.excluded()...)
	}
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		if t.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// Normalize fits a scaler of the configured method and appends normalized
// columns. When no target resolves the input is returned with a nil scaler.
func Normalize(t *table.Table, cfg Config, cols []string) (*table.Table, []string, *Scaler, error) {
	if !cfg.Scale.valid() {
		return nil, nil, nil, apierrors.NewConfigError(fmt.Sprintf("scale %q", cfg.Scale), ErrUnknownScale)
	}
	targets := ScaleTargets(t, cfg, cols)
	if len(targets) == 0 {
		return t, nil, nil, nil
	}
	scaler := NewScaler(cfg.Scale)
	out, created, err := scaler.FitTransform(t, targets)
	if err != nil {
		return nil, nil, nil, err
	}
	return out, created, scaler, nil
}

func fillMissing(values []float64, fill float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			out[i] = fill
		} else {
			out[i] = v
		}
	}
	return out
}
