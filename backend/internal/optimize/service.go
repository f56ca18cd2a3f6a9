package optimize

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/pageza/fieldroute/backend/internal/domain"
	"github.com/pageza/fieldroute/backend/internal/routing"
)

// CostModel prices a finished tour (spec §4.8 step 6).
type CostModel struct {
	CostPerKm   float64
	CostPerHour float64
}

// DefaultCostModel returns the spec's fixed defaults (spec §6:
// "defaultCostPerKm: 0.50, defaultCostPerHour: 25.0").
func DefaultCostModel() CostModel {
	return CostModel{CostPerKm: 0.50, CostPerHour: 25.0}
}

// AlgorithmSummary is one entry of a compareAlgorithms report. Savings is the
// percentage this algorithm's final cost undercuts the worst-performing
// algorithm in the same comparison, mirroring the teacher's RouteOptimization
// DTO's own Savings field.
type AlgorithmSummary struct {
	Algorithm Algorithm
	Result    OptimizationResult
	Savings   float64
}

// OptimizationService dispatches one of the three tour-search algorithms,
// wires constraint validation, and assembles the final OptimizationResult
// (spec §4.8, C9).
type OptimizationService struct {
	matrixProvider *routing.DistanceMatrixProvider
	validator      *ConstraintValidator
	costModel      CostModel
	geneticParams  GeneticParams
	twoOptPasses   int
	logger         *log.Logger
}

// NewOptimizationService wires C9 around a matrix provider, cost model and
// genetic/2-opt tuning knobs.
func NewOptimizationService(matrixProvider *routing.DistanceMatrixProvider, costModel CostModel, geneticParams GeneticParams, twoOptPasses int, logger *log.Logger) *OptimizationService {
	if logger == nil {
		logger = log.New(log.Writer(), "optimize: ", log.LstdFlags)
	}
	return &OptimizationService{
		matrixProvider: matrixProvider,
		validator:      NewConstraintValidator(),
		costModel:      costModel,
		geneticParams:  geneticParams,
		twoOptPasses:   twoOptPasses,
		logger:         logger,
	}
}

// availableAlgorithms is the static support table (spec §4.8:
// "availableAlgorithms(objective)").
func availableAlgorithms(objective Objective) []Algorithm {
	switch objective {
	case ObjectiveMaximizeRevenue:
		return []Algorithm{AlgorithmGenetic}
	case ObjectiveBalanceWorkload:
		return []Algorithm{AlgorithmTwoOpt, AlgorithmGenetic}
	default: // MinimizeDistance, MinimizeTime
		return []Algorithm{AlgorithmNearestNeighbor, AlgorithmTwoOpt, AlgorithmGenetic}
	}
}

// AvailableAlgorithms exposes availableAlgorithms to callers.
func (s *OptimizationService) AvailableAlgorithms(objective Objective) []Algorithm {
	return availableAlgorithms(objective)
}

// Optimize runs the full pipeline for a single algorithm (spec §4.8
// "optimize(params, algorithm)"): validate, build matrix, run the
// algorithm, validate constraints, compute arrivals and totals.
func (s *OptimizationService) Optimize(ctx context.Context, params OptimizationParameters, algorithm Algorithm) (OptimizationResult, error) {
	start := time.Now()

	if err := params.validate(); err != nil {
		return OptimizationResult{}, err
	}

	deadline := start.Add(time.Duration(params.MaxOptimizationTimeSeconds) * time.Second)
	callCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	matrix, source, err := s.resolveMatrix(callCtx, params)
	if err != nil {
		return OptimizationResult{}, fmt.Errorf("%w: %s", ErrMatrixBuildFailure, err)
	}

	tc := buildTourContext(matrix, params)

	order, metrics, outcome, err := s.runAlgorithm(callCtx, tc, algorithm, deadline, params.RNGSeed)
	if err != nil && outcome == OutcomeFailed {
		return OptimizationResult{
			Algorithm:        algorithm,
			OptimizationTime: time.Since(start),
			Outcome:          OutcomeFailed,
			Violations:       []string{fmt.Sprintf("OptimizationFailed:%s", err)},
		}, fmt.Errorf("%w: %s", ErrOptimizationFailed, err)
	}

	metrics.MatrixSource = source

	stops := s.buildStops(tc, order, params)
	violations := s.validator.ValidateTour(params.Technician, stops, params.RespectTimeWindows, params.ValidateSkills)

	totalDistance, totalDuration := tourTotals(stops)
	totalCost := s.costModel.CostPerKm*totalDistance + s.costModel.CostPerHour*totalDuration.Hours()

	isOptimal := outcome == OutcomeCompleted && len(violations) == 0

	result := OptimizationResult{
		Stops:            stops,
		TotalDistanceKm:  totalDistance,
		TotalDuration:    totalDuration,
		TotalCost:        totalCost,
		Algorithm:        algorithm,
		OptimizationTime: time.Since(start),
		Iterations:       len(metrics.CostHistory),
		IsOptimal:        isOptimal,
		Violations:       violations,
		Metrics:          metrics,
		Outcome:          outcome,
	}

	return result, nil
}

// runAlgorithm dispatches to the selected tour-search strategy, always
// computing the NearestNeighbor seed first since 2-opt and genetic both
// start from it (spec §4.6, §4.7).
func (s *OptimizationService) runAlgorithm(ctx context.Context, tc *tourContext, algorithm Algorithm, deadline time.Time, rngSeed int64) ([]int, Metrics, Outcome, error) {
	nn := NewNearestNeighborOptimizer()
	seed, nnMetrics, err := nn.Run(ctx, tc)
	if err != nil {
		return seed, nnMetrics, outcomeForErr(ctx, err), err
	}

	switch algorithm {
	case AlgorithmNearestNeighbor:
		return seed, nnMetrics, OutcomeCompleted, nil

	case AlgorithmTwoOpt:
		twoOpt := NewTwoOptOptimizer(s.twoOptPasses)
		order, metrics, err := twoOpt.Run(ctx, tc, seed, deadline)
		if err != nil {
			return order, metrics, outcomeForErr(ctx, err), err
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return order, metrics, OutcomeTimedOut, nil
		}
		return order, metrics, OutcomeCompleted, nil

	case AlgorithmGenetic:
		geneticParams := s.geneticParams
		if rngSeed != 0 {
			geneticParams.Seed = rngSeed
		}
		genetic := NewGeneticOptimizer(geneticParams)
		order, metrics, err := genetic.Run(ctx, tc, seed, deadline)
		if err != nil {
			return order, metrics, outcomeForErr(ctx, err), err
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return order, metrics, OutcomeTimedOut, nil
		}
		return order, metrics, OutcomeCompleted, nil

	default:
		return seed, nnMetrics, OutcomeFailed, fmt.Errorf("unknown algorithm %q", algorithm)
	}
}

func outcomeForErr(ctx context.Context, err error) Outcome {
	if ctx.Err() == context.DeadlineExceeded {
		return OutcomeTimedOut
	}
	if ctx.Err() == context.Canceled {
		return OutcomeCancelled
	}
	return OutcomeFailed
}

// resolveMatrix builds (or reuses) the DistanceMatrix for this call (spec
// §4.8 step 2).
func (s *OptimizationService) resolveMatrix(ctx context.Context, params OptimizationParameters) (*routing.DistanceMatrix, routing.MatrixQuality, error) {
	if params.PrecomputedMatrix != nil {
		return params.PrecomputedMatrix, routing.QualityRoad, nil
	}

	locations := make([]domain.Coordinate, 0, len(params.Jobs)+2)
	locations = append(locations, params.resolvedStart())
	for _, j := range params.Jobs {
		c, err := j.Coordinate()
		if err != nil {
			return nil, "", err
		}
		locations = append(locations, c)
	}
	locations = append(locations, params.resolvedEnd())

	quality := params.MatrixQuality
	if quality == "" {
		quality = routing.QualityRoad
	}

	return s.matrixProvider.Build(ctx, locations, quality)
}

// buildTourContext maps OptimizationParameters onto the matrix-index space
// algorithms operate in: index 0 is start, 1..N are jobs, N+1 is end.
func buildTourContext(matrix *routing.DistanceMatrix, params OptimizationParameters) *tourContext {
	jobIdx := make([]int, len(params.Jobs))
	for k := range params.Jobs {
		jobIdx[k] = k + 1
	}
	return &tourContext{
		matrix:    matrix,
		jobs:      params.Jobs,
		objective: params.Objective,
		startIdx:  0,
		jobIdx:    jobIdx,
		endIdx:    len(params.Jobs) + 1,
	}
}

// buildStops computes per-stop arrivals/departures forward from
// params.StartTime using matrix durations plus job service times (spec
// §4.8 step 4, P5).
func (s *OptimizationService) buildStops(tc *tourContext, order []int, params OptimizationParameters) []OptimizedStop {
	stops := make([]OptimizedStop, len(order))
	current := tc.startIdx
	arrival := params.StartTime

	for seq, jobPos := range order {
		job := params.Jobs[jobPos]
		jobMatrixIdx := tc.jobIdx[jobPos]

		distanceKm := tc.matrix.Distance(current, jobMatrixIdx)
		travelSeconds := tc.matrix.Duration(current, jobMatrixIdx)
		travelTime := time.Duration(travelSeconds) * time.Second

		stopArrival := arrival.Add(travelTime)
		stopDeparture := stopArrival.Add(job.EstimatedDuration)

		stops[seq] = OptimizedStop{
			Job:                    job,
			SequenceOrder:          seq,
			DistanceFromPreviousKm: distanceKm,
			TravelTimeFromPrevious: travelTime,
			EstimatedArrival:       stopArrival,
			EstimatedDeparture:     stopDeparture,
		}

		current = jobMatrixIdx
		arrival = stopDeparture
	}

	return stops
}

// tourTotals sums distance and (travel + service) duration across every
// stop (spec §4.8 step 6, P3, P4): the start->first-stop leg and each
// stop-to-stop leg, plus service time. The final leg from the last stop to
// the end location is not a stop and is not included in either total.
func tourTotals(stops []OptimizedStop) (float64, time.Duration) {
	var distance float64
	var duration time.Duration
	for _, s := range stops {
		distance += s.DistanceFromPreviousKm
		duration += s.TravelTimeFromPrevious + s.Job.EstimatedDuration
	}
	return distance, duration
}

// CompareAlgorithms runs every requested algorithm against the same
// parameters and returns per-algorithm summaries plus the index of the
// best result by objective cost (spec §4.8: "compareAlgorithms").
func (s *OptimizationService) CompareAlgorithms(ctx context.Context, params OptimizationParameters, algorithms []Algorithm) ([]AlgorithmSummary, int, error) {
	summaries := make([]AlgorithmSummary, 0, len(algorithms))
	for _, alg := range algorithms {
		result, err := s.Optimize(ctx, params, alg)
		if err != nil {
			return nil, -1, err
		}
		summaries = append(summaries, AlgorithmSummary{Algorithm: alg, Result: result})
	}

	bestIdx := 0
	worstCost := summaries[0].Result.Metrics.FinalCost
	for i, summary := range summaries {
		if summary.Result.Metrics.FinalCost < summaries[bestIdx].Result.Metrics.FinalCost {
			bestIdx = i
		}
		if summary.Result.Metrics.FinalCost > worstCost {
			worstCost = summary.Result.Metrics.FinalCost
		}
	}
	for i := range summaries {
		if worstCost > 0 {
			summaries[i].Savings = (worstCost - summaries[i].Result.Metrics.FinalCost) / worstCost * 100
		}
	}

	return summaries, bestIdx, nil
}
