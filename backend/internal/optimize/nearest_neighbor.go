package optimize

import (
	"context"
)

// NearestNeighborOptimizer produces a tour deterministically by always
// stepping to the nearest (by objective) unvisited job (spec §4.5, C6).
// Grounded on the teacher's own greedy TSP construction
// (scheduling_service.go's nearestNeighborTSP), generalized to the
// objective-aware edge cost shared by every algorithm in this package.
type NearestNeighborOptimizer struct{}

// NewNearestNeighborOptimizer constructs a NearestNeighborOptimizer.
func NewNearestNeighborOptimizer() *NearestNeighborOptimizer {
	return &NearestNeighborOptimizer{}
}

// Run builds ctx's seed tour: repeatedly pick the unvisited job minimizing
// edgeCost from the current location, breaking ties by the lower matrix
// index (spec §4.5). O(N²). Reports initialCost == finalCost since there
// is no improvement phase.
func (o *NearestNeighborOptimizer) Run(ctx context.Context, tc *tourContext) ([]int, Metrics, error) {
	n := len(tc.jobIdx)
	order := make([]int, 0, n)
	visited := make([]bool, n)
	current := tc.startIdx
	evaluations := 0

	for len(order) < n {
		if err := ctx.Err(); err != nil {
			return order, Metrics{}, err
		}

		best := -1
		bestCost := 0.0
		for k := 0; k < n; k++ {
			if visited[k] {
				continue
			}
			evaluations++
			c := tc.edgeCost(current, tc.jobIdx[k])
			if best == -1 || c < bestCost || (c == bestCost && tc.jobIdx[k] < tc.jobIdx[best]) {
				best = k
				bestCost = c
			}
		}

		visited[best] = true
		order = append(order, best)
		current = tc.jobIdx[best]
	}

	cost := tc.tourCost(order)
	return order, Metrics{
		InitialCost: cost,
		FinalCost:   cost,
		Evaluations: evaluations,
		CostHistory: []float64{cost},
	}, nil
}
