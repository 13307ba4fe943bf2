package table

import (
	"math"
	"strconv"
)

// Kind identifies how a column stores its values.
type Kind int

const (
	Numeric Kind = iota
	Text
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Text:
		return "text"
	default:
		return "unknown"
	}
}

// Column is an immutable named vector. Numeric columns mark missing entries
// with NaN; text columns carry an explicit null mask.
type Column struct {
	name string
	kind Kind
	nums []float64
	strs []string
	null []bool
}

// NewNumeric builds a numeric column. The values are copied.
func NewNumeric(name string, values []float64) *Column {
	nums := make([]float64, len(values))
	copy(nums, values)
	return &Column{name: name, kind: Numeric, nums: nums}
}

// NewText builds a text column. A nil null mask means no value is missing.
func NewText(name string, values []string, null []bool) *Column {
	strs := make([]string, len(values))
	copy(strs, values)
	mask := make([]bool, len(values))
	if null != nil {
		copy(mask, null)
	}
	return &Column{name: name, kind: Text, strs: strs, null: mask}
}

func (c *Column) Name() string { return c.name }
func (c *Column) Kind() Kind   { return c.kind }

// Len returns the number of rows in the column.
func (c *Column) Len() int {
	if c.kind == Numeric {
		return len(c.nums)
	}
	return len(c.strs)
}

// IsNumeric reports whether the column stores float64 values.
func (c *Column) IsNumeric() bool { return c.kind == Numeric }

// IsMissing reports whether row i holds no value.
func (c *Column) IsMissing(i int) bool {
	if c.kind == Numeric {
		return math.IsNaN(c.nums[i])
	}
	return c.null[i]
}

// Float returns row i as a number. Text columns parse the stored string and
// return NaN when it is missing or not numeric.
func (c *Column) Float(i int) float64 {
	if c.kind == Numeric {
		return c.nums[i]
	}
	if c.null[i] {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(c.strs[i], 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// Str returns row i as a string. Missing values return "".
func (c *Column) Str(i int) string {
	if c.IsMissing(i) {
		return ""
	}
	if c.kind == Numeric {
		return strconv.FormatFloat(c.nums[i], 'f', -1, 64)
	}
	return c.strs[i]
}

// Value returns row i as float64 or string, or nil when missing.
func (c *Column) Value(i int) any {
	if c.IsMissing(i) {
		return nil
	}
	if c.kind == Numeric {
		return c.nums[i]
	}
	return c.strs[i]
}

// Floats returns a copy of the numeric values. Text columns are parsed.
func (c *Column) Floats() []float64 {
	out := make([]float64, c.Len())
	if c.kind == Numeric {
		copy(out, c.nums)
		return out
	}
	for i := range out {
		out[i] = c.Float(i)
	}
	return out
}

// Strings returns a copy of the values rendered as strings together with the
// null mask.
func (c *Column) Strings() ([]string, []bool) {
	n := c.Len()
	strs := make([]string, n)
	null := make([]bool, n)
	for i := 0; i < n; i++ {
		strs[i] = c.Str(i)
		null[i] = c.IsMissing(i)
	}
	return strs, null
}

// MissingCount returns the number of missing rows.
func (c *Column) MissingCount() int {
	count := 0
	for i := 0; i < c.Len(); i++ {
		if c.IsMissing(i) {
			count++
		}
	}
	return count
}

// Rename returns the same data under a different name.
func (c *Column) Rename(name string) *Column {
	out := *c
	out.name = name
	return &out
}

// Take returns a new column holding rows in the given order.
func (c *Column) Take(rows []int) *Column {
	if c.kind == Numeric {
		nums := make([]float64, len(rows))
		for i, r := range rows {
			nums[i] = c.nums[r]
		}
		return &Column{name: c.name, kind: Numeric, nums: nums}
	}
	strs := make([]string, len(rows))
	null := make([]bool, len(rows))
	for i, r := range rows {
		strs[i] = c.strs[r]
		null[i] = c.null[r]
	}
	return &Column{name: c.name, kind: Text, strs: strs, null: null}
}
