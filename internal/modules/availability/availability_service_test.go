package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"carcare-dispatch/internal/models"
)

type fakeRepo struct {
	profiles map[string]*models.MechanicAvailability

	UpsertFunc      func(ctx context.Context, p *models.MechanicAvailability) (*models.MechanicAvailability, error)
	ReserveSlotFunc func(ctx context.Context, mechanicID string) error
	ReleaseSlotFunc func(ctx context.Context, mechanicID string) error
}

func (f *fakeRepo) Upsert(ctx context.Context, p *models.MechanicAvailability) (*models.MechanicAvailability, error) {
	if f.UpsertFunc != nil {
		return f.UpsertFunc(ctx, p)
	}
	if f.profiles == nil {
		f.profiles = make(map[string]*models.MechanicAvailability)
	}
	stored := *p
	stored.UpdatedAt = time.Now()
	f.profiles[p.MechanicID] = &stored
	return &stored, nil
}

func (f *fakeRepo) FindByMechanicID(ctx context.Context, mechanicID string) (*models.MechanicAvailability, error) {
	if p, ok := f.profiles[mechanicID]; ok {
		return p, nil
	}
	return nil, models.ErrNotFound
}

func (f *fakeRepo) ListOpen(ctx context.Context) ([]*models.MechanicAvailability, error) {
	var open []*models.MechanicAvailability
	for _, p := range f.profiles {
		if p.IsAvailable && p.CurrentActiveJobs < p.MaxConcurrentJobs {
			open = append(open, p)
		}
	}
	return open, nil
}

func (f *fakeRepo) ReserveSlot(ctx context.Context, mechanicID string) error {
	if f.ReserveSlotFunc != nil {
		return f.ReserveSlotFunc(ctx, mechanicID)
	}
	p, ok := f.profiles[mechanicID]
	if !ok {
		return models.ErrNotFound
	}
	if p.CurrentActiveJobs >= p.MaxConcurrentJobs {
		return models.ErrCapacityExceeded
	}
	p.CurrentActiveJobs++
	return nil
}

func (f *fakeRepo) ReleaseSlot(ctx context.Context, mechanicID string) error {
	if f.ReleaseSlotFunc != nil {
		return f.ReleaseSlotFunc(ctx, mechanicID)
	}
	p, ok := f.profiles[mechanicID]
	if !ok {
		return models.ErrNotFound
	}
	if p.CurrentActiveJobs > 0 {
		p.CurrentActiveJobs--
	}
	return nil
}

func addressAt(lat, lng float64) models.Address {
	return models.Address{
		Formatted:   "Test Garage",
		City:        "Accra",
		Country:     "GH",
		Coordinates: models.Coordinates{Lat: lat, Lng: lng},
	}
}

func validUpsertRequest() models.UpsertAvailabilityRequest {
	return models.UpsertAvailabilityRequest{
		IsAvailable:       true,
		MaxConcurrentJobs: 3,
		BaseLocation:      addressAt(5.6037, -0.1870),
		ServiceRadiusKm:   25,
		Specializations:   []string{"engine", "brakes"},
		HourlyRate:        40,
	}
}

func TestUpsertValidation(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*models.UpsertAvailabilityRequest)
		wantErr error
	}{
		{"valid profile is stored", func(r *models.UpsertAvailabilityRequest) {}, nil},
		{
			"zero coordinates rejected",
			func(r *models.UpsertAvailabilityRequest) { r.BaseLocation.Coordinates = models.Coordinates{} },
			models.ErrInvalidCoordinates,
		},
		{
			"out of range latitude rejected",
			func(r *models.UpsertAvailabilityRequest) { r.BaseLocation.Coordinates.Lat = 91 },
			models.ErrInvalidCoordinates,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			svc := NewService(&fakeRepo{})
			req := validUpsertRequest()
			c.mutate(&req)

			got, err := svc.Upsert(context.Background(), "mech-1", req)
			if !errors.Is(err, c.wantErr) {
				t.Fatalf("Upsert error = %v, want %v", err, c.wantErr)
			}
			if c.wantErr == nil && got.MechanicID != "mech-1" {
				t.Errorf("stored MechanicID = %q, want %q", got.MechanicID, "mech-1")
			}
		})
	}
}

func TestUpsertRejectsMaxBelowActiveJobs(t *testing.T) {
	repo := &fakeRepo{profiles: map[string]*models.MechanicAvailability{
		"mech-1": {MechanicID: "mech-1", MaxConcurrentJobs: 3, CurrentActiveJobs: 2},
	}}
	svc := NewService(repo)

	req := validUpsertRequest()
	req.MaxConcurrentJobs = 1

	if _, err := svc.Upsert(context.Background(), "mech-1", req); !errors.Is(err, models.ErrInvalidState) {
		t.Fatalf("Upsert error = %v, want ErrInvalidState", err)
	}
}

func TestUpsertPreservesRating(t *testing.T) {
	rating := 4.4
	repo := &fakeRepo{profiles: map[string]*models.MechanicAvailability{
		"mech-1": {MechanicID: "mech-1", MaxConcurrentJobs: 3, Rating: &rating},
	}}
	svc := NewService(repo)

	got, err := svc.Upsert(context.Background(), "mech-1", validUpsertRequest())
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if got.Rating == nil || *got.Rating != rating {
		t.Errorf("Rating = %v, want %v", got.Rating, rating)
	}
}

func TestFindCandidatesFilters(t *testing.T) {
	origin := models.Coordinates{Lat: 5.6037, Lng: -0.1870}
	offDuty := models.WorkingHours{Start: "08:00", End: "18:00", Days: []int{1, 2, 3, 4, 5}}

	repo := &fakeRepo{profiles: map[string]*models.MechanicAvailability{
		"near": {
			MechanicID: "near", IsAvailable: true, MaxConcurrentJobs: 2,
			BaseLocation: addressAt(5.6100, -0.1870), ServiceRadiusKm: 20,
			Specializations: []string{"engine"},
		},
		"far": {
			MechanicID: "far", IsAvailable: true, MaxConcurrentJobs: 2,
			BaseLocation: addressAt(6.6885, -1.6244), ServiceRadiusKm: 20,
			Specializations: []string{"engine"},
		},
		"wrong-trade": {
			MechanicID: "wrong-trade", IsAvailable: true, MaxConcurrentJobs: 2,
			BaseLocation: addressAt(5.6100, -0.1870), ServiceRadiusKm: 20,
			Specializations: []string{"bodywork"},
		},
		"full": {
			MechanicID: "full", IsAvailable: true, MaxConcurrentJobs: 1, CurrentActiveJobs: 1,
			BaseLocation: addressAt(5.6100, -0.1870), ServiceRadiusKm: 20,
			Specializations: []string{"engine"},
		},
		"off-duty": {
			MechanicID: "off-duty", IsAvailable: true, MaxConcurrentJobs: 2,
			BaseLocation: addressAt(5.6100, -0.1870), ServiceRadiusKm: 20,
			Specializations: []string{"engine"}, WorkingHours: offDuty,
		},
		"emergency": {
			MechanicID: "emergency", IsAvailable: true, MaxConcurrentJobs: 2,
			BaseLocation: addressAt(5.6100, -0.1870), ServiceRadiusKm: 20,
			Specializations: []string{"engine"}, WorkingHours: offDuty, EmergencyService: true,
		},
	}}
	svc := NewService(repo)
	// A Sunday at 03:00, outside the weekday window.
	svc.now = func() time.Time { return time.Date(2026, 8, 30, 3, 0, 0, 0, time.UTC) }

	got, err := svc.FindCandidates(context.Background(), origin, 50, []string{"engine"})
	if err != nil {
		t.Fatalf("FindCandidates: %v", err)
	}

	ids := make(map[string]bool, len(got))
	for _, m := range got {
		ids[m.MechanicID] = true
	}
	for _, want := range []string{"near", "emergency"} {
		if !ids[want] {
			t.Errorf("candidate %q missing from %v", want, ids)
		}
	}
	for _, reject := range []string{"far", "wrong-trade", "full", "off-duty"} {
		if ids[reject] {
			t.Errorf("candidate %q should have been filtered out", reject)
		}
	}
}

func TestFindCandidatesRadiusIsTighterOfBoth(t *testing.T) {
	origin := models.Coordinates{Lat: 5.6037, Lng: -0.1870}
	// Roughly 11km north of the origin.
	repo := &fakeRepo{profiles: map[string]*models.MechanicAvailability{
		"mech-1": {
			MechanicID: "mech-1", IsAvailable: true, MaxConcurrentJobs: 2,
			BaseLocation: addressAt(5.7037, -0.1870), ServiceRadiusKm: 50,
		},
	}}
	svc := NewService(repo)

	got, err := svc.FindCandidates(context.Background(), origin, 5, nil)
	if err != nil {
		t.Fatalf("FindCandidates: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d candidates inside 5km cap, want 0", len(got))
	}

	got, err = svc.FindCandidates(context.Background(), origin, 30, nil)
	if err != nil {
		t.Fatalf("FindCandidates: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("got %d candidates inside 30km cap, want 1", len(got))
	}
}

func TestFindCandidatesRejectsInvalidOrigin(t *testing.T) {
	svc := NewService(&fakeRepo{})
	if _, err := svc.FindCandidates(context.Background(), models.Coordinates{}, 10, nil); !errors.Is(err, models.ErrInvalidCoordinates) {
		t.Fatalf("FindCandidates error = %v, want ErrInvalidCoordinates", err)
	}
}

func TestReserveSlotExhaustsCapacity(t *testing.T) {
	repo := &fakeRepo{profiles: map[string]*models.MechanicAvailability{
		"mech-1": {MechanicID: "mech-1", IsAvailable: true, MaxConcurrentJobs: 2},
	}}
	svc := NewService(repo)

	for i := 0; i < 2; i++ {
		if err := svc.ReserveSlot(context.Background(), "mech-1"); err != nil {
			t.Fatalf("ReserveSlot #%d: %v", i+1, err)
		}
	}
	if err := svc.ReserveSlot(context.Background(), "mech-1"); !errors.Is(err, models.ErrCapacityExceeded) {
		t.Fatalf("ReserveSlot over capacity error = %v, want ErrCapacityExceeded", err)
	}

	if err := svc.ReleaseSlot(context.Background(), "mech-1"); err != nil {
		t.Fatalf("ReleaseSlot: %v", err)
	}
	if err := svc.ReserveSlot(context.Background(), "mech-1"); err != nil {
		t.Fatalf("ReserveSlot after release: %v", err)
	}
}
