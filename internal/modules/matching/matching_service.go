package matching

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"carcare-dispatch/internal/models"
	"carcare-dispatch/internal/modules/availability"
	"carcare-dispatch/pkg/geo"
)

// Scoring weights. They are deliberate design constants, not physics: they
// must stay stable so ranking output is reproducible in tests, and they can
// be overridden once at startup from config.
const (
	WeightProximity      = 0.30
	WeightAvailability   = 0.20
	WeightSpecialization = 0.20
	WeightRating         = 0.15
	WeightPrice          = 0.15

	// SpecializationPartialCredit applies when a mechanic lacks the request's
	// implied specialization; generalists still get considered.
	SpecializationPartialCredit = 40.0

	// RatingColdStart is the neutral rating score for mechanics without any
	// reviews yet.
	RatingColdStart = 70.0

	// HighUrgencyPenalty is subtracted from the final score of non-emergency
	// mechanics when the request is high urgency.
	HighUrgencyPenalty = 20

	// AvgTravelSpeedKmh feeds the travel time estimate. Urban average.
	AvgTravelSpeedKmh = 30.0
)

// Notifier receives the ranked mechanic ids after a match run. Delivery
// mechanics are outside the core; the call must not block dispatch.
type Notifier interface {
	AnnounceMatches(ctx context.Context, ann models.MatchAnnouncement)
}

// ServiceInterface is the matching engine contract.
type ServiceInterface interface {
	// Rank scores each candidate for the request and returns them in
	// descending compatibility order. Pure: same inputs, same output.
	Rank(request *models.Request, candidates []*models.MechanicAvailability) []models.LocationBasedRequestMatch
	// MatchForRequest runs the full pipeline: find candidates, rank them and
	// hand the ranked ids to the notification collaborator.
	MatchForRequest(ctx context.Context, request *models.Request, maxRadiusKm float64) ([]models.LocationBasedRequestMatch, error)
}

// Service implements the matching engine.
type Service struct {
	registry availability.ServiceInterface
	notifier Notifier
}

// NewService creates a matching engine bound to an availability registry.
func NewService(registry availability.ServiceInterface, notifier Notifier) *Service {
	return &Service{registry: registry, notifier: notifier}
}

// Rank computes a LocationBasedRequestMatch per candidate. Ties on the final
// score break by shorter distance, then by mechanic id, so two invocations
// over the same inputs always produce identical output.
func (s *Service) Rank(request *models.Request, candidates []*models.MechanicAvailability) []models.LocationBasedRequestMatch {
	if len(candidates) == 0 {
		return []models.LocationBasedRequestMatch{}
	}

	minRate, maxRate := rateBounds(candidates)

	matches := make([]models.LocationBasedRequestMatch, 0, len(candidates))
	for _, m := range candidates {
		distance := geo.DistanceKm(request.Location, m.BaseLocation.Coordinates)

		factors := models.MatchFactors{
			Proximity:      proximityScore(distance, m.ServiceRadiusKm),
			Availability:   availabilityScore(m),
			Specialization: specializationScore(request.Specialization, m),
			Rating:         ratingScore(m.Rating),
			Price:          priceScore(m.HourlyRate, minRate, maxRate),
		}

		score := WeightProximity*factors.Proximity +
			WeightAvailability*factors.Availability +
			WeightSpecialization*factors.Specialization +
			WeightRating*factors.Rating +
			WeightPrice*factors.Price
		rounded := int(math.Round(score))

		if request.Urgency == models.UrgencyHigh && !m.EmergencyService {
			rounded -= HighUrgencyPenalty
		}
		if rounded < 0 {
			rounded = 0
		}
		if rounded > 100 {
			rounded = 100
		}

		matches = append(matches, models.LocationBasedRequestMatch{
			RequestID:          request.ID,
			MechanicID:         m.MechanicID,
			DistanceKm:         distance,
			TravelMinutesEst:   distance / AvgTravelSpeedKmh * 60,
			CompatibilityScore: rounded,
			Factors:            factors,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].CompatibilityScore != matches[j].CompatibilityScore {
			return matches[i].CompatibilityScore > matches[j].CompatibilityScore
		}
		if matches[i].DistanceKm != matches[j].DistanceKm {
			return matches[i].DistanceKm < matches[j].DistanceKm
		}
		return matches[i].MechanicID < matches[j].MechanicID
	})
	return matches
}

// MatchForRequest queries the registry, ranks the result and announces the
// ranked ids. The announcement is fire-and-forget so the caller never blocks
// on notification delivery.
func (s *Service) MatchForRequest(ctx context.Context, request *models.Request, maxRadiusKm float64) ([]models.LocationBasedRequestMatch, error) {
	var required []string
	if request.Specialization != "" {
		required = []string{request.Specialization}
	}

	candidates, err := s.registry.FindCandidates(ctx, request.Location, maxRadiusKm, required)
	if err != nil {
		return nil, fmt.Errorf("service.MatchForRequest: %w", err)
	}

	matches := s.Rank(request, candidates)

	if s.notifier != nil && len(matches) > 0 {
		ids := make([]string, len(matches))
		for i, m := range matches {
			ids[i] = m.MechanicID
		}
		go s.notifier.AnnounceMatches(context.WithoutCancel(ctx), models.MatchAnnouncement{
			RequestID:         request.ID,
			RankedMechanicIDs: ids,
			Urgency:           request.Urgency,
			Timestamp:         time.Now().UTC(),
		})
	}
	return matches, nil
}

// proximityScore decays linearly from 100 at the mechanic's door to 0 at the
// edge of their service radius.
func proximityScore(distanceKm, serviceRadiusKm float64) float64 {
	if serviceRadiusKm <= 0 {
		return 0
	}
	score := 100 - (distanceKm/serviceRadiusKm)*100
	if score < 0 {
		return 0
	}
	return score
}

func availabilityScore(m *models.MechanicAvailability) float64 {
	if m.MaxConcurrentJobs <= 0 {
		return 0
	}
	return 100 * (1 - float64(m.CurrentActiveJobs)/float64(m.MaxConcurrentJobs))
}

// specializationScore gives full credit when the request implies no particular
// specialization or the mechanic covers it, partial credit otherwise.
func specializationScore(required string, m *models.MechanicAvailability) float64 {
	if required == "" {
		return 100
	}
	for _, s := range m.Specializations {
		if s == required {
			return 100
		}
	}
	return SpecializationPartialCredit
}

func ratingScore(rating *float64) float64 {
	if rating == nil {
		return RatingColdStart
	}
	return *rating / 5 * 100
}

// priceScore gives the cheapest candidate in the batch 100 and scales down
// linearly toward the batch's most expensive rate.
func priceScore(rate, minRate, maxRate float64) float64 {
	if maxRate <= minRate {
		return 100
	}
	return 100 * (maxRate - rate) / (maxRate - minRate)
}

func rateBounds(candidates []*models.MechanicAvailability) (min, max float64) {
	min, max = candidates[0].HourlyRate, candidates[0].HourlyRate
	for _, m := range candidates[1:] {
		if m.HourlyRate < min {
			min = m.HourlyRate
		}
		if m.HourlyRate > max {
			max = m.HourlyRate
		}
	}
	return min, max
}
