// Package optimize implements the route optimization core: constraint
// validation and the three interchangeable tour-search algorithms
// (nearest-neighbor construction, 2-opt local search, genetic search)
// dispatched by OptimizationService.
package optimize

import (
	"errors"
	"fmt"
	"time"

	"github.com/pageza/fieldroute/backend/internal/domain"
	"github.com/pageza/fieldroute/backend/internal/routing"
)

// Objective selects the scalar cost an algorithm minimizes (spec §3, §9c).
type Objective string

const (
	ObjectiveMinimizeDistance Objective = "minimize_distance"
	ObjectiveMinimizeTime     Objective = "minimize_time"
	ObjectiveBalanceWorkload  Objective = "balance_workload"
	ObjectiveMaximizeRevenue  Objective = "maximize_revenue"
)

// Algorithm tags the tour-search strategy a caller selects or a result was
// produced by (spec §9: "tagged variant {NearestNeighbor, TwoOpt,
// Genetic}").
type Algorithm string

const (
	AlgorithmNearestNeighbor Algorithm = "nearest_neighbor"
	AlgorithmTwoOpt          Algorithm = "two_opt"
	AlgorithmGenetic         Algorithm = "genetic"
)

// Outcome is the terminal state of an optimize call (spec §5, §7).
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeTimedOut  Outcome = "timed_out"
	OutcomeCancelled Outcome = "cancelled"
)

// Error kinds (spec §7). Constraint violations are never errors: they are
// always strings attached to the result.
var (
	ErrInvalidParameters = errors.New("optimize: invalid parameters")
	ErrRoutingUnavailable = routing.ErrRoutingUnavailable
	ErrMatrixBuildFailure = errors.New("optimize: matrix build failure")
	ErrOptimizationFailed = errors.New("optimize: optimization failed")
	ErrTimedOut           = errors.New("optimize: timed out")
	ErrCancelled          = errors.New("optimize: cancelled")
)

// maxJobsPerCall bounds a single optimization call (spec §7: "N>100").
const maxJobsPerCall = 100

// OptimizationParameters is the caller-supplied input to OptimizationService
// (spec §3).
type OptimizationParameters struct {
	Jobs      []domain.ServiceJob
	Technician domain.Technician

	Objective                  Objective
	MaxOptimizationTimeSeconds int
	RespectTimeWindows         bool
	ValidateSkills             bool

	StartLocation *domain.Coordinate
	EndLocation   *domain.Coordinate

	StartTime time.Time
	EndTime   time.Time

	// PrecomputedMatrix, when set, is used instead of building one via C4.
	PrecomputedMatrix *routing.DistanceMatrix

	// MatrixQuality selects Road vs Geodesic when no PrecomputedMatrix is
	// supplied.
	MatrixQuality routing.MatrixQuality

	// RNGSeed makes genetic search reproducible (spec §4.7, P10): when
	// non-zero it replaces the service's configured GeneticParams.Seed for
	// this call. Zero keeps the configured seed. The algorithm never seeds
	// itself from the wall clock.
	RNGSeed int64
}

// resolvedStart returns the configured StartLocation, defaulting to the
// technician's home (spec §3).
func (p OptimizationParameters) resolvedStart() domain.Coordinate {
	if p.StartLocation != nil {
		return *p.StartLocation
	}
	return p.Technician.Home
}

// resolvedEnd returns the configured EndLocation, defaulting to the
// resolved start (spec §3).
func (p OptimizationParameters) resolvedEnd() domain.Coordinate {
	if p.EndLocation != nil {
		return *p.EndLocation
	}
	return p.resolvedStart()
}

// validate checks the hard preconditions that make a call fail fast with
// ErrInvalidParameters (spec §4.8 step 1, §7).
func (p OptimizationParameters) validate() error {
	if len(p.Jobs) == 0 {
		return fmt.Errorf("%w: empty job list", ErrInvalidParameters)
	}
	if len(p.Jobs) > maxJobsPerCall {
		return fmt.Errorf("%w: %d jobs exceeds max %d", ErrInvalidParameters, len(p.Jobs), maxJobsPerCall)
	}
	if p.MaxOptimizationTimeSeconds < 1 {
		return fmt.Errorf("%w: maxOptimizationTimeSeconds must be >=1", ErrInvalidParameters)
	}
	if !p.Technician.Employable() {
		return fmt.Errorf("%w: technician is not employable", ErrInvalidParameters)
	}
	for _, j := range p.Jobs {
		if err := j.Validate(); err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidParameters, err)
		}
	}
	return nil
}

// OptimizedStop is one visited job in the result tour (spec §3).
type OptimizedStop struct {
	Job                     domain.ServiceJob
	SequenceOrder           int
	DistanceFromPreviousKm  float64
	TravelTimeFromPrevious  time.Duration
	EstimatedArrival        time.Time
	EstimatedDeparture      time.Time
	Violations              []string
}

// Metrics carries the algorithm's internal search statistics (spec §3,
// §4.8 step 3).
type Metrics struct {
	InitialCost float64
	FinalCost   float64
	ImprovementPct float64
	Evaluations int
	CostHistory []float64
	MatrixSource routing.MatrixQuality
}

// OptimizationResult is the full output of an optimize call (spec §3).
type OptimizationResult struct {
	Stops []OptimizedStop

	TotalDistanceKm float64
	TotalDuration   time.Duration
	TotalCost       float64

	Algorithm       Algorithm
	OptimizationTime time.Duration
	Iterations      int
	IsOptimal       bool

	Violations []string
	Metrics    Metrics
	Outcome    Outcome
}
