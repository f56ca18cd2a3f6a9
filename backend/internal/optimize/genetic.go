package optimize

import (
	"context"
	"math/rand"
	"time"
)

// GeneticParams configures the population-based search (spec §4.7, §6
// config "genetic.*"). Defaults mirror the spec's fixed defaults.
type GeneticParams struct {
	PopulationSize   int
	EliteSize        int
	MutationRate     float64
	CrossoverRate    float64
	TournamentSize   int
	MaxGenerations   int
	StallGenerations int
	Seed             int64
}

// DefaultGeneticParams returns the spec's fixed defaults (spec §4.7).
func DefaultGeneticParams() GeneticParams {
	return GeneticParams{
		PopulationSize:   50,
		EliteSize:        5,
		MutationRate:     0.02,
		CrossoverRate:    0.8,
		TournamentSize:   3,
		MaxGenerations:   100,
		StallGenerations: 20,
	}
}

// GeneticOptimizer is a population-based metaheuristic over job
// permutations, using tournament selection, order crossover (OX), swap
// mutation and elitism (spec §4.7, C8). Grounded in idiom (not API) on
// lvlath's deterministic-seed RNG convention (builder/sequence_primitives.go:
// rand.New(rand.NewSource(seed))).
type GeneticOptimizer struct {
	Params GeneticParams
}

// NewGeneticOptimizer constructs a GeneticOptimizer with the given params.
func NewGeneticOptimizer(params GeneticParams) *GeneticOptimizer {
	return &GeneticOptimizer{Params: params}
}

// Run searches for a low-cost permutation of jobs starting from seed (the
// NearestNeighbor tour is always included in generation 0, per spec §4.7:
// "include one NearestNeighbor seed in the initial population").
func (o *GeneticOptimizer) Run(ctx context.Context, tc *tourContext, nnSeed []int, deadline time.Time) ([]int, Metrics, error) {
	p := o.Params
	n := len(nnSeed)

	seed := p.Seed
	if seed == 0 {
		seed = 1
	}
	rng := rand.New(rand.NewSource(seed))

	population := o.seedPopulation(n, nnSeed, rng)
	costs := make([]float64, p.PopulationSize)
	for i, ind := range population {
		costs[i] = tc.tourCost(ind)
	}

	initialCost := bestOf(costs)
	bestCost := initialCost
	history := []float64{bestCost}
	evaluations := p.PopulationSize
	stall := 0
	generation := 0

	for generation = 0; generation < p.MaxGenerations; generation++ {
		if err := ctx.Err(); err != nil {
			return bestIndividual(population, costs), metricsFor(initialCost, bestCost, evaluations, history), err
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			break
		}
		if stall >= p.StallGenerations {
			break
		}

		nextPop, nextCosts, evalDelta := o.nextGeneration(tc, population, costs, rng)
		evaluations += evalDelta
		population, costs = nextPop, nextCosts

		genBest := bestOf(costs)
		if genBest < bestCost-epsilon {
			bestCost = genBest
			stall = 0
		} else {
			stall++
		}
		history = append(history, bestCost)
	}

	best := bestIndividual(population, costs)
	return best, metricsFor(initialCost, bestCost, evaluations, history), nil
}

// seedPopulation builds generation 0: the NN seed plus random shuffles of
// it, all sharing the same start/end semantics (only job order varies).
func (o *GeneticOptimizer) seedPopulation(n int, nnSeed []int, rng *rand.Rand) [][]int {
	pop := make([][]int, o.Params.PopulationSize)
	pop[0] = append([]int(nil), nnSeed...)
	for i := 1; i < o.Params.PopulationSize; i++ {
		shuffled := append([]int(nil), nnSeed...)
		rng.Shuffle(n, func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		pop[i] = shuffled
	}
	return pop
}

// nextGeneration produces one generation: elitism carries the top
// EliteSize individuals unchanged, the rest are filled by
// tournament-selected parents bred via OX crossover and swap mutation
// (spec §4.7).
func (o *GeneticOptimizer) nextGeneration(tc *tourContext, population [][]int, costs []float64, rng *rand.Rand) ([][]int, []float64, int) {
	p := o.Params
	n := len(population)
	evaluations := 0

	order := rankByCost(population, costs)
	next := make([][]int, 0, n)
	for _, idx := range order[:min(p.EliteSize, n)] {
		next = append(next, population[idx])
	}

	for len(next) < n {
		parentA := o.tournamentSelect(population, costs, rng)
		parentB := o.tournamentSelect(population, costs, rng)

		var child []int
		if rng.Float64() < p.CrossoverRate {
			child = orderCrossover(parentA, parentB, rng)
		} else {
			child = append([]int(nil), parentA...)
		}

		if rng.Float64() < p.MutationRate {
			mutateSwap(child, rng)
		}

		next = append(next, child)
	}

	nextCosts := make([]float64, len(next))
	for i, ind := range next {
		nextCosts[i] = tc.tourCost(ind)
		evaluations++
	}

	return next, nextCosts, evaluations
}

// tournamentSelect picks TournamentSize individuals uniformly at random
// and returns the lowest-cost one (spec §4.7 step 1, glossary).
func (o *GeneticOptimizer) tournamentSelect(population [][]int, costs []float64, rng *rand.Rand) []int {
	k := o.Params.TournamentSize
	if k > len(population) {
		k = len(population)
	}
	bestIdx := rng.Intn(len(population))
	for i := 1; i < k; i++ {
		cand := rng.Intn(len(population))
		if costs[cand] < costs[bestIdx] {
			bestIdx = cand
		}
	}
	return population[bestIdx]
}

// orderCrossover implements OX (spec §4.7 step 2): copy a segment from
// parent A, fill the remainder from parent B's order, skipping duplicates.
func orderCrossover(a, b []int, rng *rand.Rand) []int {
	n := len(a)
	child := make([]int, n)
	for i := range child {
		child[i] = -1
	}

	c1 := rng.Intn(n)
	c2 := rng.Intn(n)
	if c1 > c2 {
		c1, c2 = c2, c1
	}

	present := make(map[int]bool, n)
	for i := c1; i <= c2; i++ {
		child[i] = a[i]
		present[a[i]] = true
	}

	pos := (c2 + 1) % n
	for _, gene := range b {
		if present[gene] {
			continue
		}
		child[pos] = gene
		pos = (pos + 1) % n
	}

	return child
}

// mutateSwap swaps two random indices in place (spec §4.7 step 3).
func mutateSwap(individual []int, rng *rand.Rand) {
	if len(individual) < 2 {
		return
	}
	i := rng.Intn(len(individual))
	j := rng.Intn(len(individual))
	individual[i], individual[j] = individual[j], individual[i]
}

func rankByCost(population [][]int, costs []float64) []int {
	idx := make([]int, len(population))
	for i := range idx {
		idx[i] = i
	}
	for i := 1; i < len(idx); i++ {
		for j := i; j > 0 && costs[idx[j]] < costs[idx[j-1]]; j-- {
			idx[j], idx[j-1] = idx[j-1], idx[j]
		}
	}
	return idx
}

func bestOf(costs []float64) float64 {
	best := costs[0]
	for _, c := range costs[1:] {
		if c < best {
			best = c
		}
	}
	return best
}

func bestIndividual(population [][]int, costs []float64) []int {
	bestIdx := 0
	for i, c := range costs {
		if c < costs[bestIdx] {
			bestIdx = i
		}
	}
	return population[bestIdx]
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
