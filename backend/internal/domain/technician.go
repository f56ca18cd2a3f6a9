package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TechnicianStatus is the employment/operational status of a Technician.
type TechnicianStatus string

const (
	TechnicianActive     TechnicianStatus = "active"
	TechnicianInactive   TechnicianStatus = "inactive"
	TechnicianOnLeave    TechnicianStatus = "on_leave"
	TechnicianTerminated TechnicianStatus = "terminated"
)

// WorkingHours is one working-hour interval for a single weekday, expressed
// as offsets from midnight. Crossing midnight is not supported (spec §4.4).
type WorkingHours struct {
	Weekday time.Weekday  `json:"weekday"`
	Start   time.Duration `json:"start"`
	End     time.Duration `json:"end"`
}

// covers reports whether the [from, to] time-of-day span on this weekday's
// interval falls entirely within [Start, End].
func (w WorkingHours) covers(from, to time.Duration) bool {
	return from >= w.Start && to <= w.End && from <= to
}

// Technician is a field-service worker schedulable against the job backlog.
// Uniquely identified by (EmployeeID, TenantID).
type Technician struct {
	EmployeeID   uuid.UUID      `json:"employee_id"`
	TenantID     uuid.UUID      `json:"tenant_id"`
	FullName     string         `json:"full_name"`
	Contact      string         `json:"contact"`
	HourlyRate   float64        `json:"hourly_rate"`
	Home         Coordinate     `json:"home"`
	WorkingHours []WorkingHours `json:"working_hours"`
	Skills       []string       `json:"skills"`
	Status       TechnicianStatus `json:"status"`

	CurrentlyAvailable   bool       `json:"currently_available"`
	CanTakeEmergencyJobs bool       `json:"can_take_emergency_jobs"`
	MaxConcurrentJobs    int        `json:"max_concurrent_jobs"`
	ExpectedAvailableAt  *time.Time `json:"expected_available_at,omitempty"`
}

// HasSkill reports whether the technician holds the given skill tag,
// compared case-insensitively per spec §4.4.
func (t Technician) HasSkill(skill string) bool {
	for _, s := range t.Skills {
		if strings.EqualFold(s, skill) {
			return true
		}
	}
	return false
}

// HasSkills reports whether the technician's skill set is a superset of required.
func (t Technician) HasSkills(required []string) bool {
	for _, r := range required {
		if !t.HasSkill(r) {
			return false
		}
	}
	return true
}

// Routable reports whether the technician may be assigned jobs of the given
// priority right now. A technician is routable only if Status is Active AND
// CurrentlyAvailable, except Emergency-priority jobs bypass the availability
// flag when CanTakeEmergencyJobs is set (spec §3).
func (t Technician) Routable(priority JobPriority) bool {
	if t.Status != TechnicianActive {
		return false
	}
	if t.CurrentlyAvailable {
		return true
	}
	return priority == PriorityEmergency && t.CanTakeEmergencyJobs
}

// Employable reports whether the technician could ever be dispatched at
// all, independent of any particular job's priority: Active and either
// currently available or able to take emergency overrides. This is the hard
// precondition a call is rejected on (spec §7); per-job, per-priority
// availability is a soft constraint left to ConstraintValidator.ValidateStop,
// which emits an "Availability" violation instead of failing the call.
func (t Technician) Employable() bool {
	return t.Status == TechnicianActive && (t.CurrentlyAvailable || t.CanTakeEmergencyJobs)
}

// WorkingIntervalFor returns the working-hours interval covering weekday, if any.
func (t Technician) WorkingIntervalFor(weekday time.Weekday) (WorkingHours, bool) {
	for _, w := range t.WorkingHours {
		if w.Weekday == weekday {
			return w, true
		}
	}
	return WorkingHours{}, false
}

// WithinWorkingHours reports whether [arrival, departure] falls within a
// single working interval for arrival's weekday, never crossing midnight.
func (t Technician) WithinWorkingHours(arrival, departure time.Time) bool {
	if arrival.Weekday() != departure.Weekday() {
		return false
	}
	interval, ok := t.WorkingIntervalFor(arrival.Weekday())
	if !ok {
		return false
	}
	from := timeOfDay(arrival)
	to := timeOfDay(departure)
	return interval.covers(from, to)
}

func timeOfDay(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second
}
