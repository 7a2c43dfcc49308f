package genetic

import (
	"math/rand"
	"sort"
)

// Repair returns a valid number set built from set: exactly pick unique numbers in
// [1, poolSize], sorted ascending. Out-of-range and duplicate numbers are dropped,
// excess numbers are removed at random and missing numbers are drawn uniformly.
// The input is not modified. A nil rng makes trimming and padding deterministic.
func Repair(set []int, poolSize, pick int, rng *rand.Rand) []int {
	return RepairWeighted(set, poolSize, pick, nil, rng)
}

// RepairWeighted is Repair with padding biased by weights (indexed by number).
// Numbers with no positive weight are only used once every weighted number is taken.
func RepairWeighted(set []int, poolSize, pick int, weights []float64, rng *rand.Rand) []int {
	if pick <= 0 || poolSize <= 0 {
		return []int{}
	}
	if pick > poolSize {
		pick = poolSize
	}

	used := make([]bool, poolSize+1)
	out := make([]int, 0, pick)
	for _, n := range set {
		if n < 1 || n > poolSize || used[n] {
			continue
		}
		used[n] = true
		out = append(out, n)
	}

	if len(out) > pick {
		if rng != nil {
			rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
		}
		out = out[:pick]
	}

	if len(out) < pick {
		out = pad(out, used, poolSize, pick, weights, rng)
	}

	sort.Ints(out)
	return out
}

// pad fills out up to pick numbers, first by weighted draws and then from
// whatever valid numbers remain
func pad(out []int, used []bool, poolSize, pick int, weights []float64, rng *rand.Rand) []int {
	unused := make([]int, 0, poolSize-len(out))
	for n := 1; n <= poolSize; n++ {
		if !used[n] {
			unused = append(unused, n)
		}
	}

	if rng != nil && weights != nil {
		for len(out) < pick {
			idx := weightedIndex(unused, weights, rng)
			if idx < 0 {
				break
			}
			out = append(out, unused[idx])
			unused = append(unused[:idx], unused[idx+1:]...)
		}
	}

	// Fallback fill regardless of weighting
	if rng != nil {
		rng.Shuffle(len(unused), func(i, j int) { unused[i], unused[j] = unused[j], unused[i] })
	}
	for _, n := range unused {
		if len(out) == pick {
			break
		}
		out = append(out, n)
	}
	return out
}

// weightedIndex picks an index of candidates with probability proportional to its
// weight. Returns -1 when no candidate has a positive weight.
func weightedIndex(candidates []int, weights []float64, rng *rand.Rand) int {
	var total float64
	for _, n := range candidates {
		total += weightOf(n, weights)
	}
	if total <= 0 {
		return -1
	}

	target := rng.Float64() * total
	for i, n := range candidates {
		target -= weightOf(n, weights)
		if target < 0 {
			return i
		}
	}
	// Rounding left a sliver; take the last weighted candidate
	for i := len(candidates) - 1; i >= 0; i-- {
		if weightOf(candidates[i], weights) > 0 {
			return i
		}
	}
	return -1
}

func weightOf(n int, weights []float64) float64 {
	if n < 0 || n >= len(weights) || weights[n] < 0 {
		return 0
	}
	return weights[n]
}

// isValid reports whether set is sorted, unique, in range and of size pick
func isValid(set []int, poolSize, pick int) bool {
	if len(set) != pick {
		return false
	}
	for i, n := range set {
		if n < 1 || n > poolSize {
			return false
		}
		if i > 0 && set[i-1] >= n {
			return false
		}
	}
	return true
}
