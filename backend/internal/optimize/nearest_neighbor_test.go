package optimize

import (
	"context"
	"testing"

	"github.com/katalvlaran/lvlath/matrix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/fieldroute/backend/internal/domain"
	"github.com/pageza/fieldroute/backend/internal/routing"
)

// buildTestMatrix constructs a DistanceMatrix from a plain cost grid, for
// algorithm tests that don't care about real geography.
func buildTestMatrix(t *testing.T, grid [][]float64) *routing.DistanceMatrix {
	t.Helper()
	n := len(grid)
	km, err := matrix.NewDense(n, n)
	require.NoError(t, err)
	seconds, err := matrix.NewDense(n, n)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			require.NoError(t, km.Set(i, j, grid[i][j]))
			require.NoError(t, seconds.Set(i, j, grid[i][j]*60))
		}
	}
	locs := make([]domain.Coordinate, n)
	m, err := routing.NewDistanceMatrix(locs, km, seconds)
	require.NoError(t, err)
	return m
}

func jobsOfLen(n int) []domain.ServiceJob {
	jobs := make([]domain.ServiceJob, n)
	for i := range jobs {
		jobs[i] = domain.ServiceJob{EstimatedDuration: 0}
	}
	return jobs
}

// threeCitySymmetric returns the P7 scenario: start=0, jobs A=1, B=2, C=3
// on a symmetric grid where the optimal tour is 0->1->2->3->0.
func threeCitySymmetric(t *testing.T) *tourContext {
	grid := [][]float64{
		{0, 1, 3, 1}, // start -> A=1, B=3, C=1
		{1, 0, 1, 3}, // A -> start, B, C
		{3, 1, 0, 1}, // B
		{1, 3, 1, 0}, // C
	}
	m := buildTestMatrix(t, grid)
	return &tourContext{
		matrix:    m,
		jobs:      jobsOfLen(3),
		objective: ObjectiveMinimizeDistance,
		startIdx:  0,
		jobIdx:    []int{1, 2, 3},
		endIdx:    0,
	}
}

func TestNearestNeighbor_ThreeCityOptimum(t *testing.T) {
	tc := threeCitySymmetric(t)
	nn := NewNearestNeighborOptimizer()

	order, metrics, err := nn.Run(context.Background(), tc)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1, 2}, order, "nearest neighbor should hop to the closest unvisited job each step")
	assert.Equal(t, metrics.InitialCost, metrics.FinalCost, "NN reports no improvement phase")
}

func TestNearestNeighbor_TieBreaksByLowerMatrixIndex(t *testing.T) {
	grid := [][]float64{
		{0, 2, 2},
		{2, 0, 5},
		{2, 5, 0},
	}
	m := buildTestMatrix(t, grid)
	tc := &tourContext{
		matrix:    m,
		jobs:      jobsOfLen(2),
		objective: ObjectiveMinimizeDistance,
		startIdx:  0,
		jobIdx:    []int{1, 2},
		endIdx:    0,
	}

	nn := NewNearestNeighborOptimizer()
	order, _, err := nn.Run(context.Background(), tc)
	require.NoError(t, err)

	assert.Equal(t, 0, order[0], "equal-cost tie resolves to the lower matrix index (job 1)")
}

func TestNearestNeighbor_CancellationReturnsPromptly(t *testing.T) {
	tc := threeCitySymmetric(t)
	nn := NewNearestNeighborOptimizer()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := nn.Run(ctx, tc)
	assert.Error(t, err)
}
