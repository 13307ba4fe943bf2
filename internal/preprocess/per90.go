package preprocess

import (
	"math"

	"github.com/VaishakhVipin/stattwin/internal/table"
)

// ExposureUnit is the number of exposure minutes a rate is expressed over.
const ExposureUnit = 90.0

// Per90 adds a <col>_per90 rate column for every target column and returns
// the names it created. Targets default to the numeric stat columns. Rows with
// zero or missing exposure get a missing rate. The table is returned
// unchanged when the exposure column is absent.
func Per90(t *table.Table, cfg Config) (*table.Table, []string) {
	exposure, ok := t.Column(cfg.ExposureColumn)
	if !ok {
		return t, nil
	}

	targets := cfg.Per90Columns
	if len(targets) == 0 {
		targets = numericTargets(t, cfg)
	}

	minutes := exposure.Floats()
	var (
		created []string
		cols    []*table.Column
	)
	for _, name := range targets {
		if name == cfg.ExposureColumn {
			continue
		}
		src, ok := t.Column(name)
		if !ok {
			continue
		}
		rates := make([]float64, t.Len())
		for i := range rates {
			rates[i] = safeDivide(src.Float(i), minutes[i]) * ExposureUnit
		}
		out := name + Per90Suffix
		cols = append(cols, table.NewNumeric(out, rates))
		created = append(created, out)
	}
	if len(cols) == 0 {
		return t, created
	}
	return t.WithColumns(cols...), created
}

// safeDivide returns a/b, or NaN when b is zero or either side is missing.
func safeDivide(a, b float64) float64 {
	if b == 0 || math.IsNaN(a) || math.IsNaN(b) {
		return math.NaN()
	}
	r := a / b
	if math.IsInf(r, 0) {
		return math.NaN()
	}
	return r
}
