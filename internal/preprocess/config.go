package preprocess

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// OutlierMethod selects how extreme values are controlled during cleaning.
type OutlierMethod string

const (
	OutlierIQR       OutlierMethod = "iqr"
	OutlierWinsorize OutlierMethod = "winsorize"
	OutlierNone      OutlierMethod = "none"
)

// NumericStrategy selects the fill value for missing numeric cells.
type NumericStrategy string

const (
	NumericMedian NumericStrategy = "median"
	NumericMean   NumericStrategy = "mean"
	NumericZero   NumericStrategy = "zero"
)

// TextStrategy selects how missing text cells are handled.
type TextStrategy string

const (
	TextMode TextStrategy = "mode"
	TextDrop TextStrategy = "drop"
	TextKeep TextStrategy = "keep"
)

// ScaleMethod selects the normalization transform.
type ScaleMethod string

const (
	ScaleStandard ScaleMethod = "standard"
	ScaleRobust   ScaleMethod = "robust"
)

// Suffixes appended to derived column names.
const (
	Per90Suffix      = "_per90"
	NormalizedSuffix = "_z"
	PercentSuffix    = "_pct"
)

// RatioSpec derives Output = Numerator / Denominator, optionally scaled by
// Multiplier.
type RatioSpec struct {
	Numerator   string   `yaml:"numerator" json:"numerator" validate:"required"`
	Denominator string   `yaml:"denominator" json:"denominator" validate:"required"`
	Output      string   `yaml:"output" json:"output" validate:"required"`
	Multiplier  *float64 `yaml:"multiplier,omitempty" json:"multiplier,omitempty"`
}

// CompositeSpec derives Output as the sum of Columns. It is only computed when
// every source column is present.
type CompositeSpec struct {
	Output  string   `yaml:"output" json:"output" validate:"required"`
	Columns []string `yaml:"columns" json:"columns" validate:"min=1,dive,required"`
}

// Config describes a preprocessing run. It carries no row data and may be
// reused across runs.
type Config struct {
	IDColumns      []string `yaml:"id_columns" json:"id_columns"`
	NumericColumns []string `yaml:"numeric_columns" json:"numeric_columns"`
	ExposureColumn string   `yaml:"exposure_column" json:"exposure_column" validate:"required"`
	Per90Columns   []string `yaml:"per90_columns" json:"per90_columns"`

	Ratios     []RatioSpec     `yaml:"ratios" json:"ratios" validate:"dive"`
	Composites []CompositeSpec `yaml:"composites" json:"composites" validate:"dive"`

	Outlier     OutlierMethod `yaml:"outlier" json:"outlier" validate:"oneof=iqr winsorize none"`
	WinsorLower float64       `yaml:"winsor_lower" json:"winsor_lower" validate:"gte=0,lte=1"`
	WinsorUpper float64       `yaml:"winsor_upper" json:"winsor_upper" validate:"gte=0,lte=1,gtfield=WinsorLower"`

	NumericStrategy NumericStrategy `yaml:"numeric_strategy" json:"numeric_strategy" validate:"oneof=median mean zero"`
	TextStrategy    TextStrategy    `yaml:"text_strategy" json:"text_strategy" validate:"oneof=mode drop keep"`
	// DropRowThreshold drops rows whose missing fraction exceeds it. nil
	// disables the row drop.
	DropRowThreshold *float64 `yaml:"drop_row_threshold" json:"drop_row_threshold" validate:"omitempty,gte=0,lte=1"`

	Scale        ScaleMethod `yaml:"scale" json:"scale" validate:"oneof=standard robust"`
	ScaleColumns []string    `yaml:"scale_columns" json:"scale_columns"`

	// PercentColumns are checked for the [0, 100] range in addition to any
	// column ending in PercentSuffix.
	PercentColumns []string `yaml:"percent_columns" json:"percent_columns"`
}

// DefaultIDColumns are the identity and metadata columns of a player-season
// table.
var DefaultIDColumns = []string{"player_id", "name", "position", "age", "league", "continent", "season"}

// DefaultRatios returns the standard ratio features.
func DefaultRatios() []RatioSpec {
	hundred := 100.0
	return []RatioSpec{
		{Numerator: "shots_on_target", Denominator: "shots", Output: "sot_ratio"},
		{Numerator: "passes_completed", Denominator: "passes_attempted", Output: "pass_completion", Multiplier: &hundred},
		{Numerator: "tackles_won", Denominator: "tackles", Output: "tackles_win_ratio"},
		{Numerator: "aerials_won", Denominator: "aerials_contested", Output: "aerial_win_ratio"},
	}
}

// DefaultComposites returns the standard composite features.
func DefaultComposites() []CompositeSpec {
	return []CompositeSpec{
		{Output: "def_actions", Columns: []string{"tackles", "interceptions"}},
	}
}

// DefaultConfig returns the configuration used when nothing is specified.
func DefaultConfig() Config {
	threshold := 0.6
	return Config{
		IDColumns:        append([]string(nil), DefaultIDColumns...),
		ExposureColumn:   "minutes",
		Ratios:           DefaultRatios(),
		Composites:       DefaultComposites(),
		Outlier:          OutlierIQR,
		WinsorLower:      0.01,
		WinsorUpper:      0.99,
		NumericStrategy:  NumericMedian,
		TextStrategy:     TextMode,
		DropRowThreshold: &threshold,
		Scale:            ScaleStandard,
		PercentColumns:   []string{"pass_completion"},
	}
}

var validate = validator.New()

// Validate checks the configuration for unusable values.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid preprocessing config: %w", err)
	}
	return nil
}

func (c Config) isIdentity(name string) bool {
	for _, id := range c.IDColumns {
		if id == name {
			return true
		}
	}
	return false
}

// excluded returns the identity columns plus the exposure column.
func (c Config) excluded() []string {
	out := make([]string, 0, len(c.IDColumns)+1)
	out = append(out, c.IDColumns...)
	return append(out, c.ExposureColumn)
}
