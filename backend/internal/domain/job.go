package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// JobPriority ranks a ServiceJob for scheduling and tie-breaking.
type JobPriority string

const (
	PriorityLow       JobPriority = "low"
	PriorityMedium    JobPriority = "medium"
	PriorityHigh      JobPriority = "high"
	PriorityEmergency JobPriority = "emergency"
)

// JobStatus is the lifecycle state of a ServiceJob.
type JobStatus string

const (
	JobScheduled  JobStatus = "scheduled"
	JobInProgress JobStatus = "in_progress"
	JobCompleted  JobStatus = "completed"
	JobCancelled  JobStatus = "cancelled"
)

// ErrJobMissingCoordinate is returned when a job without a geocoded address
// is handed to the optimization core (spec §3: "jobs without coordinates are
// rejected at validation").
var ErrJobMissingCoordinate = errors.New("domain: job has no coordinate")

// ServiceJob is a unit of work requested at a customer property. Uniquely
// identified by (JobNumber, TenantID).
type ServiceJob struct {
	JobNumber uuid.UUID `json:"job_number"`
	TenantID  uuid.UUID `json:"tenant_id"`

	Address           Address       `json:"address"`
	RequiredSkills    []string      `json:"required_skills"`
	Priority          JobPriority   `json:"priority"`
	ScheduledDate     time.Time     `json:"scheduled_date"`
	PreferredWindow   time.Duration `json:"preferred_window,omitempty"`
	HasPreferredWindow bool         `json:"has_preferred_window"`
	EstimatedDuration time.Duration `json:"estimated_duration"`
	Status            JobStatus     `json:"status"`
	EstimatedRevenue  float64       `json:"estimated_revenue"`
}

// Coordinate returns the job's geocoded location, or an error if the
// address was never geocoded. The optimization core must reject jobs
// without one before they enter routing.
func (j ServiceJob) Coordinate() (Coordinate, error) {
	if j.Address.Coordinate == nil {
		return Coordinate{}, ErrJobMissingCoordinate
	}
	return *j.Address.Coordinate, nil
}

// Validate checks the structural invariants a ServiceJob must hold to enter
// optimization: present coordinate and a positive estimated duration.
func (j ServiceJob) Validate() error {
	if _, err := j.Coordinate(); err != nil {
		return err
	}
	if j.EstimatedDuration <= 0 {
		return errors.New("domain: job estimated duration must be positive")
	}
	return nil
}

// WindowEnd returns the end of the preferred time window, i.e.
// ScheduledDate + PreferredWindow. Only meaningful when HasPreferredWindow.
func (j ServiceJob) WindowEnd() time.Time {
	return j.ScheduledDate.Add(j.PreferredWindow)
}
