package models

import (
	"database/sql"
	"time"
)

// RequestStatus is the lifecycle state of a repair request.
type RequestStatus string

const (
	StatusPending        RequestStatus = "pending"
	StatusClaimed        RequestStatus = "claimed"
	StatusDiagnosed      RequestStatus = "diagnosed"
	StatusQuoted         RequestStatus = "quoted"
	StatusApproved       RequestStatus = "approved"
	StatusInProgress     RequestStatus = "in_progress"
	StatusPartsRequested RequestStatus = "parts_requested"
	StatusPartsReceived  RequestStatus = "parts_received"
	StatusCompleted      RequestStatus = "completed"
	StatusCancelled      RequestStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are valid from s.
func (s RequestStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Urgency is how quickly the owner needs a mechanic on site.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// Request is a repair request created by a car owner. MechanicID is null
// exactly while the request is pending; once set it never reverts except on
// cancellation.
type Request struct {
	ID             string         `json:"id" db:"id"`
	CarID          string         `json:"car_id" db:"car_id"`
	OwnerID        string         `json:"owner_id" db:"owner_id"`
	MechanicID     sql.NullString `json:"mechanic_id,omitempty" db:"mechanic_id"`
	Location       Coordinates    `json:"location"`
	Specialization string         `json:"specialization,omitempty" db:"specialization"`
	Description    string         `json:"description,omitempty" db:"description"`
	Urgency        Urgency        `json:"urgency" db:"urgency"`
	Status         RequestStatus  `json:"status" db:"status"`
	SlotReleased   bool           `json:"-" db:"slot_released"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" db:"updated_at"`
}

// CreateRequestRequest is the body a car owner submits to open a request.
type CreateRequestRequest struct {
	CarID          string      `json:"car_id" validate:"required"`
	Location       Coordinates `json:"location" validate:"required"`
	Specialization string      `json:"specialization,omitempty"`
	Description    string      `json:"description,omitempty" validate:"max=2000"`
	Urgency        Urgency     `json:"urgency" validate:"required,oneof=low medium high"`
}

// TransitionRequest is the body for advancing a request's status.
type TransitionRequest struct {
	Status RequestStatus `json:"status" validate:"required,oneof=claimed diagnosed quoted approved in_progress parts_requested parts_received completed cancelled"`
}
