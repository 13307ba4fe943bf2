package preprocess

import (
	"math"

	"github.com/VaishakhVipin/stattwin/internal/table"
)

// CleanReport summarises what Clean changed.
type CleanReport struct {
	DroppedRows    int                `json:"dropped_rows" yaml:"dropped_rows"`
	ImputedNumeric map[string]float64 `json:"imputed_numeric" yaml:"imputed_numeric"`
	ImputedText    []string           `json:"imputed_text" yaml:"imputed_text"`
	NumericColumns []string           `json:"numeric_columns" yaml:"numeric_columns"`
}

// numericTargets resolves the columns the cleaner treats as numeric stats:
// the configured list, or every numeric column outside the identity columns
// and the exposure column.
func numericTargets(t *table.Table, cfg Config) []string {
	if len(cfg.NumericColumns) > 0 {
		return append([]string(nil), cfg.NumericColumns...)
	}
	return t.NumericNames(cfg.excluded()...)
}

// Clean drops sparse rows, imputes missing values and clips outliers. Columns
// named in the configuration but absent from the table are skipped.
func Clean(t *table.Table, cfg Config) (*table.Table, CleanReport) {
	report := CleanReport{ImputedNumeric: make(map[string]float64)}
	out := t

	if cfg.DropRowThreshold != nil && out.Width() > 0 {
		keep := make([]bool, out.Len())
		width := float64(out.Width())
		for i := range keep {
			frac := float64(out.RowMissing(i)) / width
			keep[i] = frac <= *cfg.DropRowThreshold
			if !keep[i] {
				report.DroppedRows++
			}
		}
		if report.DroppedRows > 0 {
			out = out.Filter(keep)
		}
	}

	numeric := numericTargets(out, cfg)
	report.NumericColumns = numeric

	for _, name := range numeric {
		col, ok := out.Column(name)
		if !ok || col.MissingCount() == 0 {
			continue
		}
		values := col.Floats()
		var fill float64
		switch cfg.NumericStrategy {
		case NumericMean:
			fill = mean(values)
		case NumericZero:
			fill = 0
		default:
			fill = median(values)
		}
		if math.IsNaN(fill) {
			continue
		}
		for i, v := range values {
			if math.IsNaN(v) {
				values[i] = fill
			}
		}
		out = out.WithColumns(table.NewNumeric(name, values))
		report.ImputedNumeric[name] = fill
	}

	out, report = imputeText(out, cfg, numeric, report)
	out = clipOutliers(out, cfg, numeric)

	return out, report
}

func imputeText(t *table.Table, cfg Config, numeric []string, report CleanReport) (*table.Table, CleanReport) {
	if cfg.TextStrategy != TextMode && cfg.TextStrategy != TextDrop {
		return t, report
	}
	isNumeric := make(map[string]bool, len(numeric))
	for _, n := range numeric {
		isNumeric[n] = true
	}

	out := t
	for _, name := range t.Names() {
		col, _ := out.Column(name)
		if col.IsNumeric() || isNumeric[name] || col.MissingCount() == 0 {
			continue
		}
		values, null := col.Strings()

		if cfg.TextStrategy == TextDrop {
			keep := make([]bool, len(null))
			for i, missing := range null {
				keep[i] = !missing
			}
			report.DroppedRows += col.MissingCount()
			out = out.Filter(keep)
			continue
		}

		fill, ok := mode(values, null)
		if !ok {
			continue
		}
		for i := range values {
			if null[i] {
				values[i] = fill
				null[i] = false
			}
		}
		out = out.WithColumns(table.NewText(name, values, null))
		report.ImputedText = append(report.ImputedText, name)
	}
	return out, report
}

func clipOutliers(t *table.Table, cfg Config, numeric []string) *table.Table {
	if cfg.Outlier != OutlierIQR && cfg.Outlier != OutlierWinsorize {
		return t
	}
	out := t
	for _, name := range numeric {
		col, ok := out.Column(name)
		if !ok || !col.IsNumeric() {
			continue
		}
		values := col.Floats()

		var lower, upper float64
		if cfg.Outlier == OutlierIQR {
			q1 := quantile(values, 0.25)
			q3 := quantile(values, 0.75)
			iqr := q3 - q1
			if math.IsNaN(iqr) || iqr == 0 {
				continue
			}
			lower, upper = q1-1.5*iqr, q3+1.5*iqr
		} else {
			lower = quantile(values, cfg.WinsorLower)
			upper = quantile(values, cfg.WinsorUpper)
			if math.IsNaN(lower) || math.IsNaN(upper) {
				continue
			}
		}
		out = out.WithColumns(table.NewNumeric(name, clip(values, lower, upper)))
	}
	return out
}
