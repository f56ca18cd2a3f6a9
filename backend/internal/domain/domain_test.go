package domain_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/fieldroute/backend/internal/domain"
)

func TestNewCoordinate_RangeValidation(t *testing.T) {
	tests := []struct {
		name    string
		lat     float64
		lon     float64
		wantErr bool
	}{
		{"valid", 40.75, -74.0, false},
		{"lat too high", 91, 0, true},
		{"lat too low", -91, 0, true},
		{"lon too high", 0, 181, true},
		{"lon too low", 0, -181, true},
		{"boundary ok", 90, 180, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := domain.NewCoordinate(tt.lat, tt.lon)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidCoordinate)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHaversineKm_KnownDistance(t *testing.T) {
	a := domain.Coordinate{Latitude: 40.75, Longitude: -74.0}
	b := domain.Coordinate{Latitude: 40.71, Longitude: -74.0}
	got := domain.HaversineKm(a, b)
	assert.InDelta(t, 4.45, got, 0.1)
}

func TestCoordinate_Rounded(t *testing.T) {
	c := domain.Coordinate{Latitude: 40.7128001, Longitude: -74.0060009}
	r := c.Rounded()
	assert.InDelta(t, 40.712800, r.Latitude, 1e-6)
	assert.InDelta(t, -74.006001, r.Longitude, 1e-6)
}

func TestTechnician_Routable(t *testing.T) {
	base := domain.Technician{
		Status:               domain.TechnicianActive,
		CurrentlyAvailable:   false,
		CanTakeEmergencyJobs: true,
	}

	assert.True(t, base.Routable(domain.PriorityEmergency), "emergency bypasses availability when allowed")
	assert.False(t, base.Routable(domain.PriorityHigh), "non-emergency blocked while unavailable")

	base.CurrentlyAvailable = true
	assert.True(t, base.Routable(domain.PriorityHigh))

	base.Status = domain.TechnicianInactive
	assert.False(t, base.Routable(domain.PriorityEmergency), "inactive technician is never routable")
}

func TestTechnician_HasSkills_CaseInsensitive(t *testing.T) {
	tech := domain.Technician{Skills: []string{"Electrical", "HVAC"}}
	assert.True(t, tech.HasSkills([]string{"electrical"}))
	assert.False(t, tech.HasSkills([]string{"Plumbing"}))
}

func TestTechnician_WithinWorkingHours(t *testing.T) {
	tech := domain.Technician{
		WorkingHours: []domain.WorkingHours{
			{Weekday: time.Monday, Start: 8 * time.Hour, End: 17 * time.Hour},
		},
	}
	monday := time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC) // a Monday
	require.Equal(t, time.Monday, monday.Weekday())

	arrival := monday
	departure := monday.Add(2 * time.Hour)
	assert.True(t, tech.WithinWorkingHours(arrival, departure))

	lateDeparture := monday.Add(9 * time.Hour) // 18:00, past end
	assert.False(t, tech.WithinWorkingHours(arrival, lateDeparture))

	crossMidnight := monday.Add(16 * time.Hour)
	assert.False(t, tech.WithinWorkingHours(arrival, crossMidnight))
}

func TestServiceJob_Validate_RequiresCoordinate(t *testing.T) {
	job := domain.ServiceJob{
		JobNumber:         uuid.New(),
		Address:           domain.Address{Street: "1 Main St"},
		EstimatedDuration: time.Hour,
	}
	err := job.Validate()
	assert.ErrorIs(t, err, domain.ErrJobMissingCoordinate)

	coord := domain.Coordinate{Latitude: 1, Longitude: 1}
	job.Address.Coordinate = &coord
	assert.NoError(t, job.Validate())
}
