package models

import "time"

// WorkingHours describes when a mechanic accepts new work. An empty Days set
// means the mechanic is on duty at any time.
type WorkingHours struct {
	Start string `json:"start,omitempty"` // "08:00"
	End   string `json:"end,omitempty"`   // "18:00"
	Days  []int  `json:"days,omitempty"`  // 0=Sunday .. 6=Saturday
}

// WithinWorkingHours reports whether t falls inside the working window.
func (w WorkingHours) WithinWorkingHours(t time.Time) bool {
	if len(w.Days) == 0 {
		return true
	}
	day := int(t.Weekday())
	found := false
	for _, d := range w.Days {
		if d == day {
			found = true
			break
		}
	}
	if !found {
		return false
	}
	if w.Start == "" || w.End == "" {
		return true
	}
	clock := t.Format("15:04")
	return clock >= w.Start && clock <= w.End
}

// MechanicAvailability is a mechanic's standing dispatch profile. It is
// mutable by its owning mechanic only; CurrentActiveJobs is mutated solely by
// the lifecycle service through the registry's reserve/release operations.
type MechanicAvailability struct {
	MechanicID        string       `json:"mechanic_id" db:"mechanic_id"`
	IsAvailable       bool         `json:"is_available" db:"is_available"`
	MaxConcurrentJobs int          `json:"max_concurrent_jobs" db:"max_concurrent_jobs"`
	CurrentActiveJobs int          `json:"current_active_jobs" db:"current_active_jobs"`
	BaseLocation      Address      `json:"base_location"`
	ServiceRadiusKm   float64      `json:"service_radius_km" db:"service_radius_km"`
	Specializations   []string     `json:"specializations" db:"specializations"`
	HourlyRate        float64      `json:"hourly_rate" db:"hourly_rate"`
	EmergencyService  bool         `json:"emergency_service" db:"emergency_service"`
	WorkingHours      WorkingHours `json:"working_hours"`
	Rating            *float64     `json:"rating,omitempty" db:"rating"`
	UpdatedAt         time.Time    `json:"updated_at" db:"updated_at"`
}

// HasSpecializations reports whether every required specialization is present.
// An empty requirement set matches any mechanic.
func (m *MechanicAvailability) HasSpecializations(required []string) bool {
	for _, want := range required {
		found := false
		for _, have := range m.Specializations {
			if have == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// UpsertAvailabilityRequest is the body a mechanic submits to replace their
// availability profile wholesale.
type UpsertAvailabilityRequest struct {
	IsAvailable       bool         `json:"is_available"`
	MaxConcurrentJobs int          `json:"max_concurrent_jobs" validate:"required,min=1,max=20"`
	BaseLocation      Address      `json:"base_location" validate:"required"`
	ServiceRadiusKm   float64      `json:"service_radius_km" validate:"required,gt=0,lte=500"`
	Specializations   []string     `json:"specializations"`
	HourlyRate        float64      `json:"hourly_rate" validate:"gte=0"`
	EmergencyService  bool         `json:"emergency_service"`
	WorkingHours      WorkingHours `json:"working_hours"`
}
