package optimize

import (
	"fmt"
	"sort"
	"time"

	"github.com/pageza/fieldroute/backend/internal/domain"
)

// Violation codes (spec §4.4): rendered as "{code}:{jobNumber}" (or
// "{code}:{technicianId}" for the one technician-scoped check).
const (
	violationSkill       = "Skill"
	violationTimeWindow  = "TimeWindow"
	violationWorkingHours = "WorkingHours"
	violationAvailability = "Availability"
	violationCapacity     = "Capacity"
)

// ConstraintValidator checks feasibility of a final tour against a
// technician's skills, working hours, time windows, availability and
// per-day capacity (spec §4.4, C5). Stateless: safe for concurrent use.
type ConstraintValidator struct{}

// NewConstraintValidator constructs a ConstraintValidator.
func NewConstraintValidator() *ConstraintValidator {
	return &ConstraintValidator{}
}

// ValidateStop returns the violation strings for a single stop, given the
// flags from OptimizationParameters.
func (v *ConstraintValidator) ValidateStop(tech domain.Technician, stop OptimizedStop, respectTimeWindows, validateSkills bool) []string {
	var violations []string

	if validateSkills && !tech.HasSkills(stop.Job.RequiredSkills) {
		violations = append(violations, fmt.Sprintf("%s:%s", violationSkill, stop.Job.JobNumber))
	}

	if respectTimeWindows && stop.Job.HasPreferredWindow {
		windowStart := stop.Job.ScheduledDate
		windowEnd := stop.Job.WindowEnd()
		if stop.EstimatedArrival.Before(windowStart) || stop.EstimatedArrival.After(windowEnd) {
			violations = append(violations, fmt.Sprintf("%s:%s", violationTimeWindow, stop.Job.JobNumber))
		}
	}

	if !tech.WithinWorkingHours(stop.EstimatedArrival, stop.EstimatedDeparture) {
		violations = append(violations, fmt.Sprintf("%s:%s", violationWorkingHours, stop.Job.JobNumber))
	}

	if !v.availabilityOK(tech, stop.Job.Priority) {
		violations = append(violations, fmt.Sprintf("%s:%s", violationAvailability, tech.EmployeeID))
	}

	return violations
}

// availabilityOK applies the Emergency-bypass rule (spec §3, §4.4).
func (v *ConstraintValidator) availabilityOK(tech domain.Technician, priority domain.JobPriority) bool {
	if tech.Status != domain.TechnicianActive {
		return false
	}
	if tech.CurrentlyAvailable {
		return true
	}
	return priority == domain.PriorityEmergency && tech.CanTakeEmergencyJobs
}

// ValidateCapacity checks the per-calendar-day job count against
// technician.MaxConcurrentJobs (spec §4.4: "Capacity"). Returns one
// violation for each job beyond the limit on its day, in tour order within
// a day and with days in ascending date order.
func (v *ConstraintValidator) ValidateCapacity(tech domain.Technician, stops []OptimizedStop) []string {
	if tech.MaxConcurrentJobs <= 0 {
		return nil
	}

	byDay := make(map[string][]OptimizedStop)
	var days []string
	for _, s := range stops {
		day := dayKey(s.Job.ScheduledDate)
		if _, seen := byDay[day]; !seen {
			days = append(days, day)
		}
		byDay[day] = append(byDay[day], s)
	}
	sort.Strings(days)

	var violations []string
	for _, day := range days {
		daily := byDay[day]
		if len(daily) > tech.MaxConcurrentJobs {
			for _, s := range daily[tech.MaxConcurrentJobs:] {
				violations = append(violations, fmt.Sprintf("%s:%s", violationCapacity, s.Job.JobNumber))
			}
		}
	}
	return violations
}

// ValidateTour runs every per-stop check plus the per-route capacity check
// and returns the full aggregated violation list, also populating each
// stop's own Violations field in place.
func (v *ConstraintValidator) ValidateTour(tech domain.Technician, stops []OptimizedStop, respectTimeWindows, validateSkills bool) []string {
	var all []string
	for i := range stops {
		stopViolations := v.ValidateStop(tech, stops[i], respectTimeWindows, validateSkills)
		stops[i].Violations = stopViolations
		all = append(all, stopViolations...)
	}
	all = append(all, v.ValidateCapacity(tech, stops)...)
	return all
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
