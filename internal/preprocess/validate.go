package preprocess

import (
	"strings"

	"github.com/VaishakhVipin/stattwin/internal/table"
)

// RangeViolation counts percentage values outside [0, 100].
type RangeViolation struct {
	Below0   int `json:"lt0" yaml:"lt0"`
	Above100 int `json:"gt100" yaml:"gt100"`
}

// ValidationReport is an advisory data-quality report. Producing it never
// fails and never blocks the pipeline.
type ValidationReport struct {
	NegativeExposure int                       `json:"invalid_minutes,omitempty" yaml:"invalid_minutes,omitempty"`
	OutOfRange       map[string]RangeViolation `json:"out_of_range,omitempty" yaml:"out_of_range,omitempty"`
	MissingCounts    map[string]int            `json:"missing_counts" yaml:"missing_counts"`
}

// HasIssues reports whether negative exposure, an out-of-range percentage
// or any missing value was found.
func (r ValidationReport) HasIssues() bool {
	return r.NegativeExposure > 0 || len(r.OutOfRange) > 0 || len(r.MissingCounts) > 0
}

// Validate inspects a transformed table for negative exposure, out-of-range
// percentage columns and missing values.
func Validate(t *table.Table, cfg Config) ValidationReport {
	report := ValidationReport{
		OutOfRange:    make(map[string]RangeViolation),
		MissingCounts: make(map[string]int),
	}

	if exposure, ok := t.Column(cfg.ExposureColumn); ok {
		for i := 0; i < t.Len(); i++ {
			if !exposure.IsMissing(i) && exposure.Float(i) < 0 {
				report.NegativeExposure++
			}
		}
	}

	for _, col := range t.Columns() {
		if isPercentColumn(col.Name(), cfg.PercentColumns) {
			var v RangeViolation
			for i := 0; i < col.Len(); i++ {
				if col.IsMissing(i) {
					continue
				}
				x := col.Float(i)
				if x < 0 {
					v.Below0++
				} else if x > 100 {
					v.Above100++
				}
			}
			if v.Below0 > 0 || v.Above100 > 0 {
				report.OutOfRange[col.Name()] = v
			}
		}

		if missing := col.MissingCount(); missing > 0 {
			report.MissingCounts[col.Name()] = missing
		}
	}

	return report
}

func isPercentColumn(name string, known []string) bool {
	if strings.HasSuffix(name, PercentSuffix) {
		return true
	}
	for _, k := range known {
		if k == name {
			return true
		}
	}
	return false
}
