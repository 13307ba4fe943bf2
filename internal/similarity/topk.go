package similarity

import "sort"

// topK returns the positions of the k best scores, best first. Higher scores
// rank first and equal scores rank by ascending position. Selection is an
// in-place quickselect with a median-of-three pivot, after which only the k
// selected positions are sorted.
func topK(scores []float64, k int) []int {
	if k > len(scores) {
		k = len(scores)
	}
	if k <= 0 {
		return nil
	}
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}

	before := func(a, b int) bool {
		if scores[a] != scores[b] {
			return scores[a] > scores[b]
		}
		return a < b
	}

	target := k - 1
	lo, hi := 0, len(idx)-1
	for lo < hi {
		p := partition(idx, lo, hi, before)
		switch {
		case p == target:
			lo = hi
		case target < p:
			hi = p - 1
		default:
			lo = p + 1
		}
	}

	top := idx[:k]
	sort.Slice(top, func(i, j int) bool { return before(top[i], top[j]) })
	return top
}

func partition(idx []int, lo, hi int, before func(a, b int) bool) int {
	mid := lo + (hi-lo)/2
	if before(idx[mid], idx[lo]) {
		idx[lo], idx[mid] = idx[mid], idx[lo]
	}
	if before(idx[hi], idx[lo]) {
		idx[lo], idx[hi] = idx[hi], idx[lo]
	}
	if before(idx[mid], idx[hi]) {
		idx[mid], idx[hi] = idx[hi], idx[mid]
	}

	pivot := idx[hi]
	store := lo
	for i := lo; i < hi; i++ {
		if before(idx[i], pivot) {
			idx[i], idx[store] = idx[store], idx[i]
			store++
		}
	}
	idx[store], idx[hi] = idx[hi], idx[store]
	return store
}
