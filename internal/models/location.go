package models

import "fmt"

// LocationErrorKind classifies failures from the platform location and
// geocoding collaborators. PermissionDenied is terminal and never retried;
// the transient kinds are retried up to the configured attempt count.
type LocationErrorKind string

const (
	LocPermissionDenied    LocationErrorKind = "PERMISSION_DENIED"
	LocPositionUnavailable LocationErrorKind = "POSITION_UNAVAILABLE"
	LocTimeout             LocationErrorKind = "TIMEOUT"
	LocNetworkError        LocationErrorKind = "NETWORK_ERROR"
	LocServiceUnavailable  LocationErrorKind = "SERVICE_UNAVAILABLE"
)

// Retriable reports whether the kind is a transient condition worth retrying.
func (k LocationErrorKind) Retriable() bool {
	switch k {
	case LocTimeout, LocNetworkError, LocPositionUnavailable:
		return true
	}
	return false
}

// LocationError is a typed failure from the location subsystem, carrying
// enough structure for the caller to decide retry vs. abort.
type LocationError struct {
	Kind    LocationErrorKind `json:"kind"`
	Message string            `json:"message"`
}

func (e *LocationError) Error() string {
	return fmt.Sprintf("location: %s: %s", e.Kind, e.Message)
}

// PermissionStatus mirrors the platform's location permission state.
type PermissionStatus string

const (
	PermissionGranted     PermissionStatus = "granted"
	PermissionDenied      PermissionStatus = "denied"
	PermissionPrompt      PermissionStatus = "prompt"
	PermissionUnavailable PermissionStatus = "unavailable"
)

// RequestLocationConfig controls the position acquisition attempt loop.
type RequestLocationConfig struct {
	EnableHighAccuracy bool `json:"enable_high_accuracy"`
	TimeoutMs          int  `json:"timeout_ms" validate:"omitempty,min=100"`
	RetryAttempts      int  `json:"retry_attempts" validate:"omitempty,min=0,max=10"`
	RetryDelayMs       int  `json:"retry_delay_ms" validate:"omitempty,min=0"`
}

// LocationSearchResult is one forward-geocoding suggestion. Callers are
// expected to debounce input by at least 500ms before issuing a search; the
// service itself only caps the result count.
type LocationSearchResult struct {
	Label       string      `json:"label"`
	Address     Address     `json:"address"`
	Coordinates Coordinates `json:"coordinates"`
	Relevance   float64     `json:"relevance,omitempty"`
}

// SearchAddressesRequest is the query body for address search.
type SearchAddressesRequest struct {
	Query string       `json:"query" validate:"required,min=3"`
	Bias  *Coordinates `json:"bias,omitempty"`
}
