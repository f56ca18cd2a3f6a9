package optimize_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/fieldroute/backend/internal/domain"
	"github.com/pageza/fieldroute/backend/internal/optimize"
)

func makeTech() domain.Technician {
	return domain.Technician{
		EmployeeID:         uuid.New(),
		Status:             domain.TechnicianActive,
		CurrentlyAvailable: true,
		Skills:             []string{"Electrical"},
		WorkingHours: []domain.WorkingHours{
			{Weekday: time.Monday, Start: 8 * time.Hour, End: 17 * time.Hour},
		},
	}
}

func makeStop(t *testing.T, priority domain.JobPriority, requiredSkills []string) optimize.OptimizedStop {
	monday := time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC)
	job := domain.ServiceJob{
		JobNumber:         uuid.New(),
		RequiredSkills:    requiredSkills,
		Priority:          priority,
		ScheduledDate:     monday,
		EstimatedDuration: time.Hour,
	}
	return optimize.OptimizedStop{
		Job:                job,
		EstimatedArrival:   monday,
		EstimatedDeparture: monday.Add(time.Hour),
	}
}

func TestConstraintValidator_SkillMismatch(t *testing.T) {
	v := optimize.NewConstraintValidator()
	tech := makeTech()
	stop := makeStop(t, domain.PriorityMedium, []string{"Plumbing"})

	violations := v.ValidateStop(tech, stop, false, true)
	assert.Contains(t, violations, "Skill:"+stop.Job.JobNumber.String())
}

func TestConstraintValidator_TimeWindow(t *testing.T) {
	v := optimize.NewConstraintValidator()
	tech := makeTech()
	stop := makeStop(t, domain.PriorityMedium, nil)
	stop.Job.HasPreferredWindow = true
	stop.Job.PreferredWindow = time.Hour
	stop.Job.ScheduledDate = stop.EstimatedArrival.Add(-3 * time.Hour) // window closed long before arrival

	violations := v.ValidateStop(tech, stop, true, false)
	assert.Contains(t, violations, "TimeWindow:"+stop.Job.JobNumber.String())
}

func TestConstraintValidator_EmergencyOverride(t *testing.T) {
	v := optimize.NewConstraintValidator()
	tech := makeTech()
	tech.CurrentlyAvailable = false
	tech.CanTakeEmergencyJobs = true

	emergencyStop := makeStop(t, domain.PriorityEmergency, nil)
	violations := v.ValidateStop(tech, emergencyStop, false, false)
	for _, viol := range violations {
		assert.NotContains(t, viol, "Availability")
	}

	highStop := makeStop(t, domain.PriorityHigh, nil)
	violations = v.ValidateStop(tech, highStop, false, false)
	assert.Contains(t, violations, "Availability:"+tech.EmployeeID.String())
}

func TestConstraintValidator_CapacityPerDay(t *testing.T) {
	v := optimize.NewConstraintValidator()
	tech := makeTech()
	tech.MaxConcurrentJobs = 1

	stopA := makeStop(t, domain.PriorityMedium, nil)
	stopB := makeStop(t, domain.PriorityMedium, nil)

	violations := v.ValidateCapacity(tech, []optimize.OptimizedStop{stopA, stopB})
	assert.Len(t, violations, 1)
	assert.Contains(t, violations[0], "Capacity:")
}

func makeStopOnDay(t *testing.T, dayOffset int) optimize.OptimizedStop {
	day := time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC).AddDate(0, 0, dayOffset)
	job := domain.ServiceJob{
		JobNumber:         uuid.New(),
		Priority:          domain.PriorityMedium,
		ScheduledDate:     day,
		EstimatedDuration: time.Hour,
	}
	return optimize.OptimizedStop{
		Job:                job,
		EstimatedArrival:   day,
		EstimatedDeparture: day.Add(time.Hour),
	}
}

// P10/§5 determinism: when capacity is exceeded on two or more distinct
// days, the aggregated violation order must be stable across repeated calls
// with the same input, not dependent on Go's randomized map iteration.
func TestConstraintValidator_CapacityAcrossMultipleDaysIsDeterministic(t *testing.T) {
	v := optimize.NewConstraintValidator()
	tech := makeTech()
	tech.MaxConcurrentJobs = 1

	stops := []optimize.OptimizedStop{
		makeStopOnDay(t, 2), makeStopOnDay(t, 2),
		makeStopOnDay(t, 0), makeStopOnDay(t, 0),
		makeStopOnDay(t, 1), makeStopOnDay(t, 1),
	}

	first := v.ValidateCapacity(tech, stops)
	require.Len(t, first, 3)

	for i := 0; i < 20; i++ {
		again := v.ValidateCapacity(tech, stops)
		assert.Equal(t, first, again, "violation order must be stable across repeated calls")
	}

	expectedOrder := []string{
		"Capacity:" + stops[3].Job.JobNumber.String(), // day offset 0 (earliest), second stop over the 1-job limit
		"Capacity:" + stops[5].Job.JobNumber.String(), // day offset 1
		"Capacity:" + stops[1].Job.JobNumber.String(), // day offset 2
	}
	assert.Equal(t, expectedOrder, first)
}
