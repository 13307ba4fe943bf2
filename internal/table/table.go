// Package table provides the immutable column-oriented data model shared by
// the preprocessing, filtering and ranking packages.
//
// A Table is an ordered set of equal-length named columns. Rows are addressed
// by integer position only. Every operation that changes the shape or content
// of a table returns a new Table; columns are never written after they are
// built, so tables may share columns and may be read from many goroutines.
package table

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Table is an immutable collection of named columns.
type Table struct {
	cols  []*Column
	index map[string]int
	rows  int
}

// New builds a table from columns. All columns must have the same length and
// distinct names.
func New(cols ...*Column) (*Table, error) {
	t := &Table{index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if c == nil {
			return nil, fmt.Errorf("column %d is nil", i)
		}
		if _, dup := t.index[c.Name()]; dup {
			return nil, fmt.Errorf("duplicate column %q", c.Name())
		}
		if i == 0 {
			t.rows = c.Len()
		} else if c.Len() != t.rows {
			return nil, fmt.Errorf("column %q has %d rows, expected %d", c.Name(), c.Len(), t.rows)
		}
		t.index[c.Name()] = i
		t.cols = append(t.cols, c)
	}
	return t, nil
}

// Empty returns a table with no columns and no rows.
func Empty() *Table {
	return &Table{index: map[string]int{}}
}

// FromRows builds a table from row-major values. A column becomes numeric
// when every non-nil value is a Go number, otherwise it is text. nil and NaN
// values are missing.
func FromRows(header []string, rows [][]any) (*Table, error) {
	for i, row := range rows {
		if len(row) != len(header) {
			return nil, fmt.Errorf("row %d has %d values, expected %d", i, len(row), len(header))
		}
	}

	cols := make([]*Column, len(header))
	for j, name := range header {
		numeric := true
		for _, row := range rows {
			if row[j] == nil {
				continue
			}
			if _, ok := toFloat(row[j]); !ok {
				numeric = false
				break
			}
		}

		if numeric {
			values := make([]float64, len(rows))
			for i, row := range rows {
				values[i] = math.NaN()
				if row[j] != nil {
					values[i], _ = toFloat(row[j])
				}
			}
			cols[j] = &Column{name: name, kind: Numeric, nums: values}
			continue
		}

		values := make([]string, len(rows))
		null := make([]bool, len(rows))
		for i, row := range rows {
			if row[j] == nil {
				null[i] = true
				continue
			}
			values[i] = fmt.Sprint(row[j])
		}
		cols[j] = &Column{name: name, kind: Text, strs: values, null: null}
	}
	return New(cols...)
}

// FromRecords builds a table from string records such as CSV rows. A column
// is numeric when every non-missing cell parses as a float. Empty cells and
// the common pandas null tokens are missing.
func FromRecords(header []string, records [][]string) (*Table, error) {
	for i, rec := range records {
		if len(rec) != len(header) {
			return nil, fmt.Errorf("record %d has %d fields, expected %d", i, len(rec), len(header))
		}
	}

	cols := make([]*Column, len(header))
	for j, name := range header {
		numeric := true
		for _, rec := range records {
			cell := strings.TrimSpace(rec[j])
			if isNullToken(cell) {
				continue
			}
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				numeric = false
				break
			}
		}

		if numeric {
			values := make([]float64, len(records))
			for i, rec := range records {
				cell := strings.TrimSpace(rec[j])
				if isNullToken(cell) {
					values[i] = math.NaN()
					continue
				}
				values[i], _ = strconv.ParseFloat(cell, 64)
			}
			cols[j] = &Column{name: name, kind: Numeric, nums: values}
			continue
		}

		values := make([]string, len(records))
		null := make([]bool, len(records))
		for i, rec := range records {
			cell := strings.TrimSpace(rec[j])
			if cell == "" {
				null[i] = true
				continue
			}
			values[i] = cell
		}
		cols[j] = &Column{name: name, kind: Text, strs: values, null: null}
	}
	return New(cols...)
}

func isNullToken(s string) bool {
	switch strings.ToLower(s) {
	case "", "na", "nan", "null", "none", "n/a":
		return true
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	default:
		return 0, false
	}
}

// Len returns the number of rows.
func (t *Table) Len() int { return t.rows }

// Width returns the number of columns.
func (t *Table) Width() int { return len(t.cols) }

// Has reports whether a column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the named column.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.cols[i], true
}

// Columns returns the columns in order. The slice is a copy.
func (t *Table) Columns() []*Column {
	out := make([]*Column, len(t.cols))
	copy(out, t.cols)
	return out
}

// Names returns the column names in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name()
	}
	return names
}

// NumericNames returns numeric column names in order, skipping any listed in
// exclude.
func (t *Table) NumericNames(exclude ...string) []string {
	skip := make(map[string]struct{}, len(exclude))
	for _, e := range exclude {
		skip[e] = struct{}{}
	}
	var names []string
	for _, c := range t.cols {
		if !c.IsNumeric() {
			continue
		}
		if _, ok := skip[c.Name()]; ok {
			continue
		}
		names = append(names, c.Name())
	}
	return names
}

// Float returns the numeric value at row of the named column, NaN when the
// column is absent.
func (t *Table) Float(row int, name string) float64 {
	c, ok := t.Column(name)
	if !ok {
		return math.NaN()
	}
	return c.Float(row)
}

// Str returns the string value at row of the named column, "" when the column
// is absent or the value is missing.
func (t *Table) Str(row int, name string) string {
	c, ok := t.Column(name)
	if !ok {
		return ""
	}
	return c.Str(row)
}

// RowMissing returns the number of missing cells in row.
func (t *Table) RowMissing(row int) int {
	count := 0
	for _, c := range t.cols {
		if c.IsMissing(row) {
			count++
		}
	}
	return count
}

// WithColumns returns a new table with the columns appended, replacing any
// existing column of the same name in place. It panics if a column length
// differs from the table length, which is a programming error inside the
// pipeline.
func (t *Table) WithColumns(cols ...*Column) *Table {
	out := &Table{
		cols:  make([]*Column, len(t.cols), len(t.cols)+len(cols)),
		index: make(map[string]int, len(t.cols)+len(cols)),
		rows:  t.rows,
	}
	copy(out.cols, t.cols)
	for k, v := range t.index {
		out.index[k] = v
	}
	if len(t.cols) == 0 && len(cols) > 0 {
		out.rows = cols[0].Len()
	}
	for _, c := range cols {
		if c.Len() != out.rows {
			panic(fmt.Sprintf("table: column %q has %d rows, expected %d", c.Name(), c.Len(), out.rows))
		}
		if i, ok := out.index[c.Name()]; ok {
			out.cols[i] = c
			continue
		}
		out.index[c.Name()] = len(out.cols)
		out.cols = append(out.cols, c)
	}
	return out
}

// Select returns a table with only the named columns that exist, in the given
// order.
func (t *Table) Select(names ...string) *Table {
	var cols []*Column
	for _, n := range names {
		if c, ok := t.Column(n); ok {
			cols = append(cols, c)
		}
	}
	out, _ := New(cols...)
	if len(cols) == 0 {
		out.rows = t.rows
	}
	return out
}

// Drop returns a table without the named columns.
func (t *Table) Drop(names ...string) *Table {
	skip := make(map[string]struct{}, len(names))
	for _, n := range names {
		skip[n] = struct{}{}
	}
	var keep []*Column
	for _, c := range t.cols {
		if _, ok := skip[c.Name()]; !ok {
			keep = append(keep, c)
		}
	}
	out, _ := New(keep...)
	if len(keep) == 0 {
		out.rows = t.rows
	}
	return out
}

// Take returns a table holding the given rows in the given order.
func (t *Table) Take(rows []int) *Table {
	out := &Table{
		cols:  make([]*Column, len(t.cols)),
		index: make(map[string]int, len(t.cols)),
		rows:  len(rows),
	}
	for i, c := range t.cols {
		out.cols[i] = c.Take(rows)
		out.index[c.Name()] = i
	}
	return out
}

// Filter returns the rows whose mask entry is true. The mask must have one
// entry per row.
func (t *Table) Filter(mask []bool) *Table {
	rows := make([]int, 0, len(mask))
	for i, keep := range mask {
		if keep {
			rows = append(rows, i)
		}
	}
	return t.Take(rows)
}

// Records renders the table as a header plus string records, with missing
// values as empty strings.
func (t *Table) Records() ([]string, [][]string) {
	header := t.Names()
	records := make([][]string, t.rows)
	for i := 0; i < t.rows; i++ {
		rec := make([]string, len(t.cols))
		for j, c := range t.cols {
			rec[j] = c.Str(i)
		}
		records[i] = rec
	}
	return header, records
}

// Row returns row i as a map from column name to value, with nil for
// missing entries.
func (t *Table) Row(i int) map[string]any {
	row := make(map[string]any, len(t.cols))
	for _, c := range t.cols {
		row[c.Name()] = c.Value(i)
	}
	return row
}
