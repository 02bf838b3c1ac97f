package models

// MatchFactors breaks a compatibility score down into its weighted inputs.
// Each factor is on a 0..100 scale before weighting.
type MatchFactors struct {
	Proximity      float64 `json:"proximity"`
	Availability   float64 `json:"availability"`
	Specialization float64 `json:"specialization"`
	Rating         float64 `json:"rating"`
	Price          float64 `json:"price"`
}

// LocationBasedRequestMatch is a computed, ephemeral ranking of one mechanic
// for one request. It is never persisted as a source of truth.
type LocationBasedRequestMatch struct {
	RequestID          string       `json:"request_id"`
	MechanicID         string       `json:"mechanic_id"`
	DistanceKm         float64      `json:"distance_km"`
	TravelMinutesEst   float64      `json:"travel_minutes_est"`
	CompatibilityScore int          `json:"compatibility_score"`
	Factors            MatchFactors `json:"factors"`
}

// MatchRequest asks for a ranked mechanic list for an existing request.
type MatchRequest struct {
	RequestID   string  `json:"request_id" validate:"required"`
	MaxRadiusKm float64 `json:"max_radius_km,omitempty" validate:"omitempty,gt=0,lte=500"`
}
