package optimize

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenetic_ElitismNeverWorsensBestCost(t *testing.T) {
	tc := threeCitySymmetric(t)
	nn := NewNearestNeighborOptimizer()
	seed, _, err := nn.Run(context.Background(), tc)
	require.NoError(t, err)

	params := DefaultGeneticParams()
	params.Seed = 42
	params.MaxGenerations = 30

	genetic := NewGeneticOptimizer(params)
	_, metrics, err := genetic.Run(context.Background(), tc, seed, time.Time{})
	require.NoError(t, err)

	for i := 1; i < len(metrics.CostHistory); i++ {
		assert.LessOrEqual(t, metrics.CostHistory[i], metrics.CostHistory[i-1]+1e-9,
			"best-of-generation cost must be monotonically non-increasing")
	}
}

func TestGenetic_DeterministicGivenSeed(t *testing.T) {
	tc := threeCitySymmetric(t)
	nn := NewNearestNeighborOptimizer()
	seed, _, err := nn.Run(context.Background(), tc)
	require.NoError(t, err)

	params := DefaultGeneticParams()
	params.Seed = 7
	params.MaxGenerations = 15

	runOnce := func() []int {
		genetic := NewGeneticOptimizer(params)
		order, _, err := genetic.Run(context.Background(), tc, seed, time.Time{})
		require.NoError(t, err)
		return order
	}

	first := runOnce()
	second := runOnce()
	assert.Equal(t, first, second, "identical seed must reproduce byte-identical results")
}

func TestGenetic_PreservesPermutation(t *testing.T) {
	tc := threeCitySymmetric(t)
	nn := NewNearestNeighborOptimizer()
	seed, _, err := nn.Run(context.Background(), tc)
	require.NoError(t, err)

	params := DefaultGeneticParams()
	params.Seed = 3
	params.PopulationSize = 10
	params.EliteSize = 2
	params.MaxGenerations = 10

	genetic := NewGeneticOptimizer(params)
	order, _, err := genetic.Run(context.Background(), tc, seed, time.Time{})
	require.NoError(t, err)

	seen := make(map[int]bool)
	for _, k := range order {
		assert.False(t, seen[k])
		seen[k] = true
	}
	assert.Len(t, order, len(seed))
}

func TestGenetic_CancellationReturnsPromptly(t *testing.T) {
	tc := threeCitySymmetric(t)
	nn := NewNearestNeighborOptimizer()
	seed, _, err := nn.Run(context.Background(), tc)
	require.NoError(t, err)

	params := DefaultGeneticParams()
	params.Seed = 1

	genetic := NewGeneticOptimizer(params)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err = genetic.Run(ctx, tc, seed, time.Time{})
	assert.Error(t, err)
}
