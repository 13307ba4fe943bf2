package similarity

import (
	"github.com/VaishakhVipin/stattwin/internal/table"
)

// Match is one ranked row.
type Match struct {
	Index  int            `json:"index"`
	Score  float64        `json:"score"`
	Fields map[string]any `json:"fields,omitempty"`
}

// Result is the ranked neighbourhood of one query row.
type Result struct {
	QueryIndex int      `json:"query_index"`
	Metric     Metric   `json:"metric"`
	Features   []string `json:"features"`
	Columns    []string `json:"columns"`
	Matches    []Match  `json:"matches"`

	passthrough *table.Table
}

// Len returns the number of matches.
func (r *Result) Len() int { return len(r.Matches) }

// Indices returns the row index of every match, best first.
func (r *Result) Indices() []int {
	out := make([]int, len(r.Matches))
	for i, m := range r.Matches {
		out[i] = m.Index
	}
	return out
}

// Field returns the passthrough value of column for match i as a string.
func (r *Result) Field(i int, column string) string {
	if r.passthrough == nil {
		return ""
	}
	return r.passthrough.Str(i, column)
}

// Table renders the result as a table with index, score and the passthrough
// columns.
func (r *Result) Table() *table.Table {
	index := make([]float64, len(r.Matches))
	score := make([]float64, len(r.Matches))
	for i, m := range r.Matches {
		index[i] = float64(m.Index)
		score[i] = m.Score
	}
	cols := []*table.Column{
		table.NewNumeric("index", index),
		table.NewNumeric("score", score),
	}
	if r.passthrough != nil {
		for _, c := range r.passthrough.Columns() {
			if c.Name() == "index" || c.Name() == "score" {
				continue
			}
			cols = append(cols, c)
		}
	}
	out, err := table.New(cols...)
	if err != nil {
		return table.Empty()
	}
	return out
}

func newResult(t *table.Table, q Query, queryIndex int, features []string, rows []int, scores []float64) *Result {
	columns := q.ReturnColumns
	if columns == nil {
		columns = DefaultReturnColumns
	}
	present := make([]string, 0, len(columns))
	for _, c := range columns {
		if t.Has(c) {
			present = append(present, c)
		}
	}

	res := &Result{
		QueryIndex: queryIndex,
		Metric:     q.Metric,
		Features:   features,
		Columns:    present,
		Matches:    make([]Match, len(rows)),
	}
	res.passthrough = t.Select(present...).Take(rows)

	for i, row := range rows {
		m := Match{Index: row, Score: scores[i]}
		if len(present) > 0 {
			m.Fields = make(map[string]any, len(present))
			for _, c := range present {
				col, _ := res.passthrough.Column(c)
				m.Fields[c] = col.Value(i)
			}
		}
		res.Matches[i] = m
	}
	return res
}

// BatchResult holds one Result per query key. Keys keep table order; a
// repeated id keeps its first position and the last row's result.
type BatchResult struct {
	Keys    []string           `json:"keys"`
	Results map[string]*Result `json:"results"`
}

// Get returns the result for key.
func (b *BatchResult) Get(key string) (*Result, bool) {
	r, ok := b.Results[key]
	return r, ok
}
