package correlation

import (
	"sort"

	"github.com/aristath/lottolab/internal/domain"
)

// PairKey identifies an unordered pair in canonical order (A < B)
type PairKey struct {
	A int
	B int
}

// NewPairKey returns the canonical key for the pair (a, b)
func NewPairKey(a, b int) PairKey {
	if a > b {
		a, b = b, a
	}
	return PairKey{A: a, B: b}
}

// Map is a sparse, symmetric correlation map.
// Only pairs above the significance threshold are stored; absent pairs read as 0.
type Map struct {
	pairs     map[PairKey]float64
	poolSize  int
	threshold float64
	max       float64
}

func newMap(poolSize int, threshold float64) *Map {
	return &Map{
		pairs:     make(map[PairKey]float64),
		poolSize:  poolSize,
		threshold: threshold,
	}
}

// FromEntries rebuilds a map from its entries (used when decoding cached maps)
func FromEntries(poolSize int, threshold float64, entries []domain.CorrelationEntry) *Map {
	m := newMap(poolSize, threshold)
	for _, e := range entries {
		m.set(e.NumberA, e.NumberB, e.Correlation)
	}
	return m
}

func (m *Map) set(a, b int, value float64) {
	if a == b {
		return
	}
	m.pairs[NewPairKey(a, b)] = value
	if value > m.max {
		m.max = value
	}
}

// Lookup returns the correlation between a and b; lookup(a,b) == lookup(b,a).
// A nil map, identical numbers and absent pairs all return 0.
func (m *Map) Lookup(a, b int) float64 {
	if m == nil || a == b {
		return 0
	}
	return m.pairs[NewPairKey(a, b)]
}

// Len returns the number of retained pairs
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.pairs)
}

// PoolSize returns the pool size the map was built for
func (m *Map) PoolSize() int {
	if m == nil {
		return 0
	}
	return m.poolSize
}

// Threshold returns the significance threshold used to build the map
func (m *Map) Threshold() float64 {
	if m == nil {
		return 0
	}
	return m.threshold
}

// Max returns the strongest retained correlation (0 for an empty map)
func (m *Map) Max() float64 {
	if m == nil {
		return 0
	}
	return m.max
}

// Entries returns all retained pairs ordered by (NumberA, NumberB)
func (m *Map) Entries() []domain.CorrelationEntry {
	if m == nil {
		return nil
	}
	entries := make([]domain.CorrelationEntry, 0, len(m.pairs))
	for key, value := range m.pairs {
		entries = append(entries, domain.CorrelationEntry{NumberA: key.A, NumberB: key.B, Correlation: value})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].NumberA != entries[j].NumberA {
			return entries[i].NumberA < entries[j].NumberA
		}
		return entries[i].NumberB < entries[j].NumberB
	})
	return entries
}

// Equal reports whether two maps hold the same pairs and values
func (m *Map) Equal(other *Map) bool {
	if m.Len() != other.Len() || m.PoolSize() != other.PoolSize() {
		return false
	}
	if m == nil {
		return true
	}
	for key, value := range m.pairs {
		if other.pairs[key] != value {
			return false
		}
	}
	return true
}
