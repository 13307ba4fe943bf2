package similarity

import (
	"errors"
	"strings"

	"github.com/VaishakhVipin/stattwin/internal/filter"
	"github.com/VaishakhVipin/stattwin/internal/weights"
)

// Metric selects the similarity function.
type Metric string

const (
	Cosine    Metric = "cosine"
	Euclidean Metric = "euclidean"
)

// String returns the string representation of the metric
func (m Metric) String() string { return string(m) }

// IsValid checks if the metric is supported
func (m Metric) IsValid() bool {
	return m == Cosine || m == Euclidean
}

// ParseMetric normalises a metric name. An empty name selects Cosine.
func ParseMetric(s string) (Metric, error) {
	m := Metric(strings.ToLower(strings.TrimSpace(s)))
	if m == "" {
		return Cosine, nil
	}
	if !m.IsValid() {
		return "", ErrUnsupportedMetric
	}
	return m, nil
}

const (
	DefaultTopK           = 10
	DefaultIDColumn       = "player_id"
	DefaultPositionColumn = "position"
	FeatureSuffix         = "_z"

	// epsilon is added to row norms before cosine normalisation.
	epsilon = 1e-9
)

// DefaultReturnColumns are passed through to results when present.
var DefaultReturnColumns = []string{"player_id", "name", "position", "league", "season"}

var (
	ErrNoFeatures        = errors.New("no feature columns provided or found")
	ErrUnsupportedMetric = errors.New("metric must be cosine or euclidean")
	ErrQueryNotFound     = errors.New("query not found")
	ErrNoQuery           = errors.New("query index or id required")
)

// Query describes one similarity search.
type Query struct {
	// Index selects the query row directly and takes precedence over ID.
	Index    *int   `json:"index,omitempty" yaml:"index,omitempty"`
	ID       string `json:"id,omitempty" yaml:"id,omitempty"`
	IDColumn string `json:"id_column,omitempty" yaml:"id_column,omitempty"`

	// Features defaults to every numeric column ending in FeatureSuffix.
	Features []string `json:"features,omitempty" yaml:"features,omitempty"`

	// Weights configures a ConfigResolver. Resolver, when set, wins over
	// Weights. With neither, all features weigh 1.
	Weights  *weights.Config  `json:"weights,omitempty" yaml:"weights,omitempty"`
	Resolver weights.Resolver `json:"-" yaml:"-"`

	Metric Metric `json:"metric,omitempty" yaml:"metric,omitempty"`
	// TopK of zero selects DefaultTopK. A negative TopK yields no matches.
	TopK int `json:"top_k,omitempty" yaml:"top_k,omitempty"`

	Filters        *filter.Spec `json:"filters,omitempty" yaml:"filters,omitempty"`
	SamePosition   bool         `json:"same_position,omitempty" yaml:"same_position,omitempty"`
	PositionColumn string       `json:"position_column,omitempty" yaml:"position_column,omitempty"`

	// ReturnColumns defaults to DefaultReturnColumns. Absent columns are
	// skipped.
	ReturnColumns []string `json:"return_columns,omitempty" yaml:"return_columns,omitempty"`
}

// ByID returns a query for the row whose id column holds id.
func ByID(id string) Query {
	return Query{ID: id}
}

// ByIndex returns a query for row i.
func ByIndex(i int) Query {
	return Query{Index: &i}
}

func (q Query) withDefaults() Query {
	if q.IDColumn == "" {
		q.IDColumn = DefaultIDColumn
	}
	if q.PositionColumn == "" {
		q.PositionColumn = DefaultPositionColumn
	}
	if q.Metric == "" {
		q.Metric = Cosine
	}
	if q.TopK == 0 {
		q.TopK = DefaultTopK
	}
	return q
}

func (q Query) resolver() weights.Resolver {
	if q.Resolver != nil {
		return q.Resolver
	}
	if q.Weights != nil {
		return weights.NewResolver(*q.Weights)
	}
	return weights.Uniform(1)
}
