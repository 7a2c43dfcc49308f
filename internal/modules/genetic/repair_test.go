package genetic

import (
	"math/rand"
	"testing"

	"github.com/aristath/lottolab/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestRepair(t *testing.T) {
	tests := []struct {
		name string
		set  []int
		want []int
	}{
		{"already valid", []int{5, 1, 3}, []int{1, 3, 5}},
		{"duplicates padded", []int{2, 2, 2}, []int{1, 2, 3}},
		{"out of range dropped", []int{0, 4, 99}, []int{1, 2, 4}},
		{"excess trimmed", []int{1, 2, 3, 4, 5}, []int{1, 2, 3}},
		{"empty", nil, []int{1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Repair(tt.set, 10, 3, nil))
		})
	}
}

func TestRepair_DoesNotModifyInput(t *testing.T) {
	set := []int{9, 9, 1}
	Repair(set, 10, 3, rand.New(rand.NewSource(1)))
	assert.Equal(t, []int{9, 9, 1}, set)
}

func TestRepair_InvariantHolds(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 500; i++ {
		poolSize := 5 + rng.Intn(60)
		pick := 1 + rng.Intn(poolSize)

		raw := make([]int, rng.Intn(pick*2+1))
		for j := range raw {
			raw[j] = rng.Intn(poolSize+10) - 5
		}

		got := Repair(raw, poolSize, pick, rng)
		assert.NoError(t, domain.ValidateNumberSet(got, poolSize, pick), "raw=%v", raw)
		assert.True(t, isValid(got, poolSize, pick))
	}
}

func TestRepairWeighted_PrefersWeightedNumbers(t *testing.T) {
	weights := make([]float64, 21)
	weights[17] = 1
	weights[18] = 1

	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 50; i++ {
		got := RepairWeighted([]int{1}, 20, 3, weights, rng)
		assert.Equal(t, []int{1, 17, 18}, got)
	}
}

func TestRepairWeighted_FallsBackWhenWeightsRunOut(t *testing.T) {
	weights := make([]float64, 6)
	weights[5] = 3

	got := RepairWeighted([]int{1}, 5, 4, weights, rand.New(rand.NewSource(4)))
	assert.Len(t, got, 4)
	assert.Contains(t, got, 1)
	assert.Contains(t, got, 5)
}

func TestRepair_PickAbovePoolIsCapped(t *testing.T) {
	assert.Equal(t, []int{1, 2, 3}, Repair([]int{3}, 3, 5, nil))
	assert.Empty(t, Repair([]int{1}, 0, 3, nil))
}
