package optimize

import (
	"github.com/pageza/fieldroute/backend/internal/domain"
	"github.com/pageza/fieldroute/backend/internal/routing"
)

// epsilon is the minimum improvement 2-opt requires before accepting a swap
// (spec §4.6: "ε=1e-9").
const epsilon = 1e-9

// tourContext bundles everything an algorithm needs to score a tour: the
// distance matrix, the matrix index of every location in visiting order
// (start, then one per job, then end), and the objective to minimize.
//
// startIdx is the start depot's matrix index, jobIdx[k] is the matrix index
// of jobs[k], endIdx is the end depot's matrix index — jobs are permuted
// independently via a tour (a permutation of 0..N-1 indexing into jobs).
type tourContext struct {
	matrix    *routing.DistanceMatrix
	jobs      []domain.ServiceJob
	objective Objective

	startIdx int
	jobIdx   []int // jobIdx[k] = matrix row/col for jobs[k]
	endIdx   int
}

// edgeCost returns the scalar cost of traveling from matrix index i to j
// under ctx's objective (spec §4.5 step 2, §9c).
func (ctx *tourContext) edgeCost(i, j int) float64 {
	switch ctx.objective {
	case ObjectiveMinimizeTime:
		return ctx.matrix.Duration(i, j)
	case ObjectiveMaximizeRevenue:
		// Revenue is attached to the destination job, not the edge, so it
		// can't be folded into a per-edge cost; edgeCost deliberately returns
		// plain distance here and tourCost subtracts Σrevenue once over the
		// whole tour instead (spec §9c: "cost = −Σ revenue"). This means a
		// step-by-step selector keyed off edgeCost alone (NearestNeighbor)
		// does not itself chase revenue for this objective; harmless since
		// availableAlgorithms restricts MaximizeRevenue to Genetic, which
		// scores candidates via tourCost and does see the revenue term.
		return ctx.matrix.Distance(i, j)
	default: // MinimizeDistance, BalanceWorkload
		return ctx.matrix.Distance(i, j)
	}
}

// tourCost sums edge costs across a full tour (start -> jobs[order...] ->
// end) plus, for MaximizeRevenue, the negated revenue of every visited job.
func (ctx *tourContext) tourCost(order []int) float64 {
	if len(order) == 0 {
		return ctx.edgeCost(ctx.startIdx, ctx.endIdx)
	}

	cost := ctx.edgeCost(ctx.startIdx, ctx.jobIdx[order[0]])
	for k := 0; k < len(order)-1; k++ {
		cost += ctx.edgeCost(ctx.jobIdx[order[k]], ctx.jobIdx[order[k+1]])
	}
	cost += ctx.edgeCost(ctx.jobIdx[order[len(order)-1]], ctx.endIdx)

	if ctx.objective == ObjectiveMaximizeRevenue {
		for _, k := range order {
			cost -= ctx.jobs[k].EstimatedRevenue
		}
	}
	return cost
}
