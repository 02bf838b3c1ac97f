package models

import "errors"

var (
	// ErrNotFound is returned when a referenced request or mechanic does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidCoordinates is returned when a latitude/longitude pair is out of
	// range or is the reserved (0,0) unknown sentinel.
	ErrInvalidCoordinates = errors.New("invalid coordinates")

	// ErrInvalidState is returned when caller-supplied availability data violates
	// an invariant, e.g. current_active_jobs exceeding max_concurrent_jobs.
	ErrInvalidState = errors.New("availability state is invalid")

	// ErrAlreadyClaimed is returned when a claim loses the race for a pending
	// request. The caller should move on to a different request, not retry.
	ErrAlreadyClaimed = errors.New("request has already been claimed")

	// ErrCapacityExceeded is returned when a mechanic is already at their
	// max_concurrent_jobs bound.
	ErrCapacityExceeded = errors.New("mechanic is at full capacity")

	// ErrInvalidTransition is returned when the requested status edge is not in
	// the allowed-transition table.
	ErrInvalidTransition = errors.New("status transition is not allowed")

	// ErrForbidden is returned when the acting user is neither the assigned
	// mechanic nor (for cancellation) the request owner.
	ErrForbidden = errors.New("actor is not allowed to perform this transition")
)
