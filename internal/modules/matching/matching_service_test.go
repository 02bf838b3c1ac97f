package matching

import (
	"context"
	"reflect"
	"testing"
	"time"

	"carcare-dispatch/internal/models"
)

type fakeRegistry struct {
	candidates []*models.MechanicAvailability
	gotOrigin  models.Coordinates
	gotRadius  float64
	gotSpecs   []string
}

func (f *fakeRegistry) Upsert(ctx context.Context, mechanicID string, req models.UpsertAvailabilityRequest) (*models.MechanicAvailability, error) {
	return nil, nil
}

func (f *fakeRegistry) GetByMechanicID(ctx context.Context, mechanicID string) (*models.MechanicAvailability, error) {
	return nil, models.ErrNotFound
}

func (f *fakeRegistry) FindCandidates(ctx context.Context, origin models.Coordinates, maxRadiusKm float64, requiredSpecializations []string) ([]*models.MechanicAvailability, error) {
	f.gotOrigin = origin
	f.gotRadius = maxRadiusKm
	f.gotSpecs = requiredSpecializations
	return f.candidates, nil
}

func (f *fakeRegistry) ReserveSlot(ctx context.Context, mechanicID string) error { return nil }
func (f *fakeRegistry) ReleaseSlot(ctx context.Context, mechanicID string) error { return nil }

type fakeNotifier struct {
	announced chan models.MatchAnnouncement
}

func (f *fakeNotifier) AnnounceMatches(ctx context.Context, ann models.MatchAnnouncement) {
	f.announced <- ann
}

func mechanicAt(id string, lat, lng float64) *models.MechanicAvailability {
	return &models.MechanicAvailability{
		MechanicID:        id,
		IsAvailable:       true,
		MaxConcurrentJobs: 2,
		BaseLocation: models.Address{
			Coordinates: models.Coordinates{Lat: lat, Lng: lng},
		},
		ServiceRadiusKm: 10,
		HourlyRate:      40,
	}
}

func testRequest(urgency models.Urgency, specialization string) *models.Request {
	return &models.Request{
		ID:             "req-1",
		OwnerID:        "owner-1",
		Location:       models.Coordinates{Lat: 5.6037, Lng: -0.1870},
		Specialization: specialization,
		Urgency:        urgency,
		Status:         models.StatusPending,
	}
}

func TestRankEmptyCandidates(t *testing.T) {
	svc := NewService(&fakeRegistry{}, nil)
	got := svc.Rank(testRequest(models.UrgencyMedium, ""), nil)
	if got == nil || len(got) != 0 {
		t.Fatalf("Rank(nil candidates) = %v, want empty non-nil slice", got)
	}
}

func TestRankScoreComposition(t *testing.T) {
	// A single idle mechanic at the request's door, no required specialization,
	// no reviews yet: 0.30*100 + 0.20*100 + 0.20*100 + 0.15*70 + 0.15*100 = 95.5.
	req := testRequest(models.UrgencyMedium, "")
	m := mechanicAt("mech-1", req.Location.Lat, req.Location.Lng)

	svc := NewService(&fakeRegistry{}, nil)
	got := svc.Rank(req, []*models.MechanicAvailability{m})
	if len(got) != 1 {
		t.Fatalf("Rank returned %d matches, want 1", len(got))
	}
	if got[0].CompatibilityScore != 96 {
		t.Errorf("CompatibilityScore = %d, want 96", got[0].CompatibilityScore)
	}
	if got[0].DistanceKm != 0 {
		t.Errorf("DistanceKm = %v, want 0", got[0].DistanceKm)
	}
	if got[0].Factors.Rating != RatingColdStart {
		t.Errorf("Factors.Rating = %v, want cold start %v", got[0].Factors.Rating, RatingColdStart)
	}
}

func TestRankHighUrgencyPenalty(t *testing.T) {
	req := testRequest(models.UrgencyHigh, "")
	regular := mechanicAt("regular", req.Location.Lat, req.Location.Lng)
	emergency := mechanicAt("emergency", req.Location.Lat, req.Location.Lng)
	emergency.EmergencyService = true

	svc := NewService(&fakeRegistry{}, nil)
	got := svc.Rank(req, []*models.MechanicAvailability{regular, emergency})

	if got[0].MechanicID != "emergency" {
		t.Fatalf("top match = %q, want the emergency mechanic", got[0].MechanicID)
	}
	if diff := got[0].CompatibilityScore - got[1].CompatibilityScore; diff != HighUrgencyPenalty {
		t.Errorf("score gap = %d, want the %d point urgency penalty", diff, HighUrgencyPenalty)
	}
}

func TestRankSpecializationPartialCredit(t *testing.T) {
	req := testRequest(models.UrgencyMedium, "transmission")
	specialist := mechanicAt("specialist", req.Location.Lat, req.Location.Lng)
	specialist.Specializations = []string{"transmission"}
	generalist := mechanicAt("generalist", req.Location.Lat, req.Location.Lng)

	svc := NewService(&fakeRegistry{}, nil)
	got := svc.Rank(req, []*models.MechanicAvailability{generalist, specialist})

	if got[0].MechanicID != "specialist" {
		t.Fatalf("top match = %q, want specialist", got[0].MechanicID)
	}
	if got[1].Factors.Specialization != SpecializationPartialCredit {
		t.Errorf("generalist specialization factor = %v, want %v",
			got[1].Factors.Specialization, SpecializationPartialCredit)
	}
}

func TestRankTieBreaks(t *testing.T) {
	req := testRequest(models.UrgencyMedium, "")

	// Both mechanics sit beyond their service radius so proximity clamps to 0
	// for each; every other factor is identical, forcing a score tie.
	near := mechanicAt("z-near", 5.72, -0.1870)
	far := mechanicAt("a-far", 5.75, -0.1870)

	svc := NewService(&fakeRegistry{}, nil)
	got := svc.Rank(req, []*models.MechanicAvailability{far, near})
	if got[0].CompatibilityScore != got[1].CompatibilityScore {
		t.Fatalf("scores differ (%d vs %d), tie expected", got[0].CompatibilityScore, got[1].CompatibilityScore)
	}
	if got[0].MechanicID != "z-near" {
		t.Errorf("score tie should break by distance; top = %q, want z-near", got[0].MechanicID)
	}

	// Same coordinates entirely: only the id orders them.
	twinA := mechanicAt("twin-a", 5.72, -0.1870)
	twinB := mechanicAt("twin-b", 5.72, -0.1870)
	got = svc.Rank(req, []*models.MechanicAvailability{twinB, twinA})
	if got[0].MechanicID != "twin-a" {
		t.Errorf("distance tie should break by id; top = %q, want twin-a", got[0].MechanicID)
	}
}

func TestRankIsDeterministic(t *testing.T) {
	req := testRequest(models.UrgencyHigh, "engine")
	rating := 4.5
	candidates := []*models.MechanicAvailability{
		mechanicAt("a", 5.6100, -0.1870),
		mechanicAt("b", 5.6200, -0.1900),
		mechanicAt("c", 5.6037, -0.1870),
	}
	candidates[0].Specializations = []string{"engine"}
	candidates[1].Rating = &rating
	candidates[2].HourlyRate = 25

	svc := NewService(&fakeRegistry{}, nil)
	first := svc.Rank(req, candidates)
	second := svc.Rank(req, candidates)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("two Rank runs over the same input differ:\n%v\n%v", first, second)
	}
}

func TestRankTravelEstimate(t *testing.T) {
	req := testRequest(models.UrgencyMedium, "")
	m := mechanicAt("mech-1", 5.6100, -0.1870)

	svc := NewService(&fakeRegistry{}, nil)
	got := svc.Rank(req, []*models.MechanicAvailability{m})

	wantMinutes := got[0].DistanceKm / AvgTravelSpeedKmh * 60
	if got[0].TravelMinutesEst != wantMinutes {
		t.Errorf("TravelMinutesEst = %v, want %v", got[0].TravelMinutesEst, wantMinutes)
	}
	if got[0].DistanceKm <= 0 || got[0].DistanceKm > 2 {
		t.Errorf("DistanceKm = %v, want roughly 0.7km", got[0].DistanceKm)
	}
}

func TestMatchForRequestAnnouncesRankedIDs(t *testing.T) {
	req := testRequest(models.UrgencyHigh, "engine")
	specialist := mechanicAt("specialist", req.Location.Lat, req.Location.Lng)
	specialist.Specializations = []string{"engine"}
	specialist.EmergencyService = true
	generalist := mechanicAt("generalist", req.Location.Lat, req.Location.Lng)

	registry := &fakeRegistry{candidates: []*models.MechanicAvailability{generalist, specialist}}
	notifier := &fakeNotifier{announced: make(chan models.MatchAnnouncement, 1)}
	svc := NewService(registry, notifier)

	got, err := svc.MatchForRequest(context.Background(), req, 25)
	if err != nil {
		t.Fatalf("MatchForRequest: %v", err)
	}
	if len(got) != 2 || got[0].MechanicID != "specialist" {
		t.Fatalf("matches = %v, want specialist ranked first of 2", got)
	}
	if !reflect.DeepEqual(registry.gotSpecs, []string{"engine"}) {
		t.Errorf("registry queried with specs %v, want [engine]", registry.gotSpecs)
	}
	if registry.gotRadius != 25 {
		t.Errorf("registry queried with radius %v, want 25", registry.gotRadius)
	}

	select {
	case ann := <-notifier.announced:
		if !reflect.DeepEqual(ann.RankedMechanicIDs, []string{"specialist", "generalist"}) {
			t.Errorf("announced ids = %v, want ranked order", ann.RankedMechanicIDs)
		}
		if ann.Urgency != models.UrgencyHigh {
			t.Errorf("announced urgency = %q, want high", ann.Urgency)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no match announcement received")
	}
}

func TestMatchForRequestNoCandidatesNoAnnouncement(t *testing.T) {
	registry := &fakeRegistry{}
	notifier := &fakeNotifier{announced: make(chan models.MatchAnnouncement, 1)}
	svc := NewService(registry, notifier)

	got, err := svc.MatchForRequest(context.Background(), testRequest(models.UrgencyLow, ""), 25)
	if err != nil {
		t.Fatalf("MatchForRequest: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("matches = %v, want none", got)
	}

	select {
	case ann := <-notifier.announced:
		t.Fatalf("unexpected announcement %v for an empty match set", ann)
	case <-time.After(50 * time.Millisecond):
	}
}
