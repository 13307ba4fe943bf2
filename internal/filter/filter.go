// Package filter restricts a player table to the rows matching an age range
// and league, continent, position and season inclusion sets.
package filter

import (
	"math"
	"sort"

	"github.com/VaishakhVipin/stattwin/internal/table"
)

// Columns each predicate reads.
const (
	AgeColumn       = "age"
	LeagueColumn    = "league"
	ContinentColumn = "continent"
	PositionColumn  = "position"
	SeasonColumn    = "season"
)

// Range is an inclusive numeric interval.
type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Contains reports whether v lies in [Min, Max]. Missing values never match.
func (r Range) Contains(v float64) bool {
	return !math.IsNaN(v) && v >= r.Min && v <= r.Max
}

// Spec describes which rows to keep. A nil field is unspecified. An empty
// inclusion set matches every row.
type Spec struct {
	AgeRange   *Range   `json:"age_range,omitempty" yaml:"age_range,omitempty"`
	Leagues    []string `json:"leagues,omitempty" yaml:"leagues,omitempty"`
	Continents []string `json:"continents,omitempty" yaml:"continents,omitempty"`
	Positions  []string `json:"positions,omitempty" yaml:"positions,omitempty"`
	Seasons    []string `json:"seasons,omitempty" yaml:"seasons,omitempty"`
}

// IsZero reports whether the spec constrains nothing.
func (s Spec) IsZero() bool {
	return s.AgeRange == nil && len(s.Leagues) == 0 && len(s.Continents) == 0 &&
		len(s.Positions) == 0 && len(s.Seasons) == 0
}

// Issues lists problems with a spec relative to a table. Issues are
// diagnostics; Apply still runs, skipping what it cannot evaluate.
type Issues struct {
	MissingColumns []string `json:"missing_columns" yaml:"missing_columns"`
	InvalidValues  []string `json:"invalid_values" yaml:"invalid_values"`
}

// Empty reports whether no issue was found.
func (i Issues) Empty() bool {
	return len(i.MissingColumns) == 0 && len(i.InvalidValues) == 0
}

// Mask returns one entry per row, true where the row satisfies every
// specified predicate. Predicates whose column is absent are skipped.
func Mask(t *table.Table, spec Spec) []bool {
	mask := make([]bool, t.Len())
	for i := range mask {
		mask[i] = true
	}
	if spec.AgeRange != nil {
		andRange(mask, t, AgeColumn, *spec.AgeRange)
	}
	andIn(mask, t, LeagueColumn, spec.Leagues)
	andIn(mask, t, ContinentColumn, spec.Continents)
	andIn(mask, t, PositionColumn, spec.Positions)
	andIn(mask, t, SeasonColumn, spec.Seasons)
	return mask
}

// Apply returns the rows of t satisfying spec. t is not modified.
func Apply(t *table.Table, spec Spec) *table.Table {
	if spec.IsZero() {
		return t
	}
	return t.Filter(Mask(t, spec))
}

// ApplyWithReport validates spec against t and applies it.
func ApplyWithReport(t *table.Table, spec Spec) (*table.Table, Issues) {
	return Apply(t, spec), Validate(t, spec)
}

// ByAge keeps rows whose age lies in r.
func ByAge(t *table.Table, r Range) *table.Table {
	return Apply(t, Spec{AgeRange: &r})
}

// ByLeague keeps rows whose league is listed.
func ByLeague(t *table.Table, leagues []string) *table.Table {
	return Apply(t, Spec{Leagues: leagues})
}

// ByContinent keeps rows whose continent is listed.
func ByContinent(t *table.Table, continents []string) *table.Table {
	return Apply(t, Spec{Continents: continents})
}

// ByPosition keeps rows whose position value is listed exactly.
func ByPosition(t *table.Table, positions []string) *table.Table {
	return Apply(t, Spec{Positions: positions})
}

// BySeason keeps rows whose season is listed.
func BySeason(t *table.Table, seasons []string) *table.Table {
	return Apply(t, Spec{Seasons: seasons})
}

// Validate reports predicates referencing absent columns and an age range
// whose lower bound exceeds its upper bound. It never fails.
func Validate(t *table.Table, spec Spec) Issues {
	issues := Issues{MissingColumns: []string{}, InvalidValues: []string{}}
	seen := make(map[string]bool)
	need := func(specified bool, col string) {
		if specified && !t.Has(col) && !seen[col] {
			seen[col] = true
			issues.MissingColumns = append(issues.MissingColumns, col)
		}
	}

	need(spec.AgeRange != nil, AgeColumn)
	need(spec.Leagues != nil, LeagueColumn)
	need(spec.Continents != nil, ContinentColumn)
	need(spec.Positions != nil, PositionColumn)
	need(spec.Seasons != nil, SeasonColumn)
	sort.Strings(issues.MissingColumns)

	if spec.AgeRange != nil && spec.AgeRange.Min > spec.AgeRange.Max {
		issues.InvalidValues = append(issues.InvalidValues, "age_range: lo>hi")
	}
	return issues
}

func andRange(mask []bool, t *table.Table, name string, r Range) {
	col, ok := t.Column(name)
	if !ok {
		return
	}
	for i := range mask {
		if mask[i] && !r.Contains(col.Float(i)) {
			mask[i] = false
		}
	}
}

func andIn(mask []bool, t *table.Table, name string, values []string) {
	if len(values) == 0 {
		return
	}
	col, ok := t.Column(name)
	if !ok {
		return
	}
	allowed := make(map[string]struct{}, len(values))
	for _, v := range values {
		allowed[v] = struct{}{}
	}
	for i := range mask {
		if !mask[i] {
			continue
		}
		if col.IsMissing(i) {
			mask[i] = false
			continue
		}
		if _, ok := allowed[col.Str(i)]; !ok {
			mask[i] = false
		}
	}
}
