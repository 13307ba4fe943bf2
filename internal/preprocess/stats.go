package preprocess

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// present returns the non-missing values of xs in a new slice.
func present(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, v := range xs {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// quantile returns the p-quantile of the non-missing values using linear
// interpolation between closest ranks at position p*(n-1). It returns NaN when
// no value is present.
func quantile(xs []float64, p float64) float64 {
	sorted := present(xs)
	if len(sorted) == 0 {
		return math.NaN()
	}
	sort.Float64s(sorted)
	return quantileSorted(sorted, p)
}

func quantileSorted(sorted []float64, p float64) float64 {
	n := len(sorted)
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	index := p * float64(n-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))
	if lower == upper {
		return sorted[lower]
	}

	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

func median(xs []float64) float64 {
	return quantile(xs, 0.5)
}

func mean(xs []float64) float64 {
	vals := present(xs)
	if len(vals) == 0 {
		return math.NaN()
	}
	return stat.Mean(vals, nil)
}

// meanStd returns the mean and population standard deviation of the
// non-missing values.
func meanStd(xs []float64) (float64, float64) {
	vals := present(xs)
	if len(vals) == 0 {
		return math.NaN(), math.NaN()
	}
	return stat.PopMeanStdDev(vals, nil)
}

// mode returns the most frequent value. Ties resolve to the smallest value.
func mode(values []string, null []bool) (string, bool) {
	counts := make(map[string]int)
	order := make([]string, 0)
	for i, v := range values {
		if null[i] {
			continue
		}
		if _, seen := counts[v]; !seen {
			order = append(order, v)
		}
		counts[v]++
	}
	if len(order) == 0 {
		return "", false
	}
	best := order[0]
	for _, v := range order[1:] {
		if counts[v] > counts[best] || (counts[v] == counts[best] && v < best) {
			best = v
		}
	}
	return best, true
}

func clip(xs []float64, lower, upper float64) []float64 {
	out := make([]float64, len(xs))
	for i, v := range xs {
		switch {
		case math.IsNaN(v):
			out[i] = v
		case v < lower:
			out[i] = lower
		case v > upper:
			out[i] = upper
		default:
			out[i] = v
		}
	}
	return out
}
