package correlation

import (
	"math/rand"
	"sort"
)

type weighted struct {
	number int
	weight float64
}

// sortWeighted orders by weight descending, ties broken by number ascending
func sortWeighted(items []weighted) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].weight != items[j].weight {
			return items[i].weight > items[j].weight
		}
		return items[i].number < items[j].number
	})
}

// TopCorrelated returns up to topN numbers correlated with target, strongest first.
// Numbers without a retained correlation to target are not returned.
func TopCorrelated(target int, m *Map, poolSize, topN int) []int {
	if topN <= 0 || m.Len() == 0 {
		return nil
	}

	candidates := make([]weighted, 0, poolSize)
	for n := 1; n <= poolSize; n++ {
		if n == target {
			continue
		}
		if c := m.Lookup(target, n); c > 0 {
			candidates = append(candidates, weighted{number: n, weight: c})
		}
	}
	sortWeighted(candidates)

	if len(candidates) > topN {
		candidates = candidates[:topN]
	}
	out := make([]int, len(candidates))
	for i, c := range candidates {
		out[i] = c.number
	}
	return out
}

// SelectCorrelatedSet picks count numbers that co-occur most with baseNumbers.
//
// Each base number contributes 1/(rank+1) to every number in its correlation ranking.
// The highest accumulated weights win; base and excluded numbers are never picked.
// Slots left open by sparse correlation data are filled at random from unused numbers
// (in ascending order when rng is nil). The result is sorted ascending.
func SelectCorrelatedSet(baseNumbers []int, m *Map, count, poolSize int, excluded []int, rng *rand.Rand) []int {
	if count <= 0 {
		return []int{}
	}

	used := make(map[int]bool, len(baseNumbers)+len(excluded))
	for _, n := range baseNumbers {
		used[n] = true
	}
	for _, n := range excluded {
		used[n] = true
	}

	weights := make(map[int]float64)
	for _, base := range baseNumbers {
		for rank, n := range TopCorrelated(base, m, poolSize, poolSize) {
			if used[n] {
				continue
			}
			weights[n] += 1.0 / float64(rank+1)
		}
	}

	ranked := make([]weighted, 0, len(weights))
	for n, w := range weights {
		ranked = append(ranked, weighted{number: n, weight: w})
	}
	sortWeighted(ranked)

	selected := make([]int, 0, count)
	chosen := make(map[int]bool, count)
	for _, r := range ranked {
		if len(selected) == count {
			break
		}
		selected = append(selected, r.number)
		chosen[r.number] = true
	}

	if len(selected) < count {
		var unused []int
		for n := 1; n <= poolSize; n++ {
			if !used[n] && !chosen[n] {
				unused = append(unused, n)
			}
		}
		if rng != nil {
			rng.Shuffle(len(unused), func(i, j int) { unused[i], unused[j] = unused[j], unused[i] })
		}
		for _, n := range unused {
			if len(selected) == count {
				break
			}
			selected = append(selected, n)
		}
	}

	sort.Ints(selected)
	return selected
}

// SetCorrelationScore returns the mean correlation over all pairs in numbers (0 for fewer than 2)
func SetCorrelationScore(numbers []int, m *Map) float64 {
	if len(numbers) < 2 {
		return 0
	}

	var sum float64
	pairs := 0
	for i := 0; i < len(numbers); i++ {
		for j := i + 1; j < len(numbers); j++ {
			sum += m.Lookup(numbers[i], numbers[j])
			pairs++
		}
	}
	return sum / float64(pairs)
}

// MeanCorrelation returns the mean correlation of number against each reference number,
// skipping number itself. Returns 0 when there is nothing to compare with.
func MeanCorrelation(number int, reference []int, m *Map) float64 {
	var sum float64
	n := 0
	for _, r := range reference {
		if r == number {
			continue
		}
		sum += m.Lookup(number, r)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// StrongestPartnersMean returns the mean of number's k strongest correlations.
// Missing partners count as 0 so sparse numbers are not inflated.
func StrongestPartnersMean(number int, m *Map, poolSize, k int) float64 {
	if k <= 0 {
		return 0
	}
	var sum float64
	for _, n := range TopCorrelated(number, m, poolSize, k) {
		sum += m.Lookup(number, n)
	}
	return sum / float64(k)
}
