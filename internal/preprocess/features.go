package preprocess

import (
	"math"

	"github.com/VaishakhVipin/stattwin/internal/table"
)

// EngineerFeatures derives the configured ratio and composite columns and
// returns the names it created. A ratio or composite whose source columns are
// not all present is skipped.
func EngineerFeatures(t *table.Table, cfg Config) (*table.Table, []string) {
	var (
		created []string
		cols    []*table.Column
	)

	for _, spec := range cfg.Ratios {
		num, okNum := t.Column(spec.Numerator)
		den, okDen := t.Column(spec.Denominator)
		if !okNum || !okDen {
			continue
		}
		values := make([]float64, t.Len())
		for i := range values {
			values[i] = safeDivide(num.Float(i), den.Float(i))
			if spec.Multiplier != nil {
				values[i] *= *spec.Multiplier
			}
		}
		cols = append(cols, table.NewNumeric(spec.Output, values))
		created = append(created, spec.Output)
	}

	for _, spec := range cfg.Composites {
		sources := make([]*table.Column, 0, len(spec.Columns))
		for _, name := range spec.Columns {
			if c, ok := t.Column(name); ok {
				sources = append(sources, c)
			}
		}
		if len(sources) != len(spec.Columns) || len(sources) == 0 {
			continue
		}
		values := make([]float64, t.Len())
		for i := range values {
			sum := 0.0
			for _, c := range sources {
				sum += c.Float(i)
			}
			if math.IsInf(sum, 0) {
				sum = math.NaN()
			}
			values[i] = sum
		}
		cols = append(cols, table.NewNumeric(spec.Output, values))
		created = append(created, spec.Output)
	}

	if len(cols) == 0 {
		return t, created
	}
	return t.WithColumns(cols...), created
}
