package optimize

import (
	"context"
	"time"
)

// TwoOptOptimizer runs first-improvement 2-opt local search from a seed
// tour (spec §4.6, C7). Never increases cost (P8): every accepted swap
// strictly improves it by more than epsilon.
type TwoOptOptimizer struct {
	MaxPasses int
}

// NewTwoOptOptimizer constructs a TwoOptOptimizer bounded by maxPasses
// (spec §6 config: "twoOpt.maxIterations=1000").
func NewTwoOptOptimizer(maxPasses int) *TwoOptOptimizer {
	if maxPasses <= 0 {
		maxPasses = 1000
	}
	return &TwoOptOptimizer{MaxPasses: maxPasses}
}

// Run improves a copy of seed (the copy is returned; seed is untouched) until
// no pass finds an improving swap, MaxPasses is exhausted, or deadline
// elapses (spec §4.6: "Maximum 1000 passes or maxOptimizationTimeSeconds,
// whichever first").
func (o *TwoOptOptimizer) Run(ctx context.Context, tc *tourContext, seed []int, deadline time.Time) ([]int, Metrics, error) {
	order := make([]int, len(seed))
	copy(order, seed)

	initialCost := tc.tourCost(order)
	cost := initialCost
	history := []float64{cost}
	evaluations := 0
	pass := 0

	for pass = 0; pass < o.MaxPasses; pass++ {
		if err := ctx.Err(); err != nil {
			return order, metricsFor(initialCost, cost, evaluations, history), err
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			break
		}

		improved := false
		n := len(order)
		for i := 0; i < n-1 && !improved; i++ {
			for j := i + 1; j < n; j++ {
				evaluations++
				delta := o.swapDelta(tc, order, i, j)
				if delta < -epsilon {
					reverse(order, i, j)
					cost += delta
					history = append(history, cost)
					improved = true
					break
				}
			}
		}

		if !improved {
			break
		}
	}

	return order, metricsFor(initialCost, cost, evaluations, history), nil
}

// swapDelta computes the cost delta of reversing order[i..j], looking only
// at the (up to) four affected edges (spec §4.6).
func (o *TwoOptOptimizer) swapDelta(tc *tourContext, order []int, i, j int) float64 {
	n := len(order)

	prevIdx := tc.startIdx
	if i > 0 {
		prevIdx = tc.jobIdx[order[i-1]]
	}
	aIdx := tc.jobIdx[order[i]]
	bIdx := tc.jobIdx[order[j]]
	nextIdx := tc.endIdx
	if j < n-1 {
		nextIdx = tc.jobIdx[order[j+1]]
	}

	if i == j {
		return 0
	}

	oldCost := tc.edgeCost(prevIdx, aIdx)
	newCost := tc.edgeCost(prevIdx, bIdx)
	if j > i {
		// Interior edges of the segment reverse direction; since the
		// matrix may be asymmetric we must re-sum every interior edge,
		// not just assume symmetry.
		oldCost += segmentCost(tc, order, i, j)
		newCost += segmentCostReversed(tc, order, i, j)
	}
	oldCost += tc.edgeCost(bIdx, nextIdx)
	newCost += tc.edgeCost(aIdx, nextIdx)

	return newCost - oldCost
}

// segmentCost sums the edges strictly inside order[i..j] in forward order.
func segmentCost(tc *tourContext, order []int, i, j int) float64 {
	sum := 0.0
	for k := i; k < j; k++ {
		sum += tc.edgeCost(tc.jobIdx[order[k]], tc.jobIdx[order[k+1]])
	}
	return sum
}

// segmentCostReversed sums the same edges as segmentCost but traversed in
// reverse, i.e. the cost after reversal of order[i..j].
func segmentCostReversed(tc *tourContext, order []int, i, j int) float64 {
	sum := 0.0
	for k := j; k > i; k-- {
		sum += tc.edgeCost(tc.jobIdx[order[k]], tc.jobIdx[order[k-1]])
	}
	return sum
}

// reverse reverses order[i..j] in place.
func reverse(order []int, i, j int) {
	for i < j {
		order[i], order[j] = order[j], order[i]
		i++
		j--
	}
}

func metricsFor(initial, final float64, evaluations int, history []float64) Metrics {
	improvement := 0.0
	if initial != 0 {
		improvement = (initial - final) / initial * 100
	}
	return Metrics{
		InitialCost:    initial,
		FinalCost:      final,
		ImprovementPct: improvement,
		Evaluations:    evaluations,
		CostHistory:    history,
	}
}
