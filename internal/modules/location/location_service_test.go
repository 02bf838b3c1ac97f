package location

import (
	"context"
	"errors"
	"testing"
	"time"

	"carcare-dispatch/internal/models"
)

type fakeProvider struct {
	calls   int
	results []func() (models.Coordinates, error)
	status  models.PermissionStatus
}

func (f *fakeProvider) CurrentPosition(ctx context.Context, highAccuracy bool) (models.Coordinates, error) {
	i := f.calls
	f.calls++
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	return f.results[i]()
}

func (f *fakeProvider) PermissionStatus(ctx context.Context) models.PermissionStatus {
	return f.status
}

type fakeGeocoder struct {
	reverseCalls int
	address      *models.Address
	results      []models.LocationSearchResult
	err          error
}

func (f *fakeGeocoder) ReverseGeocode(ctx context.Context, c models.Coordinates) (*models.Address, error) {
	f.reverseCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.address, nil
}

func (f *fakeGeocoder) SearchAddresses(ctx context.Context, query string, bias *models.Coordinates, limit int) ([]models.LocationSearchResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func newTestService(p PositionProvider, g Geocoder) *Service {
	svc := NewService(p, g)
	// Collapse retry delays so the attempt loop runs instantly.
	svc.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return svc
}

func positionOK(lat, lng float64) func() (models.Coordinates, error) {
	return func() (models.Coordinates, error) {
		return models.Coordinates{Lat: lat, Lng: lng}, nil
	}
}

func positionErr(kind models.LocationErrorKind) func() (models.Coordinates, error) {
	return func() (models.Coordinates, error) {
		return models.Coordinates{}, &models.LocationError{Kind: kind, Message: string(kind)}
	}
}

func TestRequestLocationRetriesTransientFailures(t *testing.T) {
	provider := &fakeProvider{results: []func() (models.Coordinates, error){
		positionErr(models.LocTimeout),
		positionErr(models.LocNetworkError),
		positionOK(5.6037, -0.1870),
	}}
	svc := newTestService(provider, nil)

	got, err := svc.RequestLocation(context.Background(), models.RequestLocationConfig{RetryAttempts: 2})
	if err != nil {
		t.Fatalf("RequestLocation: %v", err)
	}
	if got.Lat != 5.6037 || got.Lng != -0.1870 {
		t.Errorf("position = %+v", got)
	}
	if provider.calls != 3 {
		t.Errorf("provider called %d times, want 3", provider.calls)
	}
}

func TestRequestLocationPermissionDeniedNeverRetried(t *testing.T) {
	provider := &fakeProvider{results: []func() (models.Coordinates, error){
		positionErr(models.LocPermissionDenied),
	}}
	svc := newTestService(provider, nil)

	_, err := svc.RequestLocation(context.Background(), models.RequestLocationConfig{RetryAttempts: 5})
	var locErr *models.LocationError
	if !errors.As(err, &locErr) || locErr.Kind != models.LocPermissionDenied {
		t.Fatalf("RequestLocation error = %v, want permission denied", err)
	}
	if provider.calls != 1 {
		t.Errorf("provider called %d times after denial, want 1", provider.calls)
	}
}

func TestRequestLocationExhaustsAttempts(t *testing.T) {
	provider := &fakeProvider{results: []func() (models.Coordinates, error){
		positionErr(models.LocTimeout),
	}}
	svc := newTestService(provider, nil)

	_, err := svc.RequestLocation(context.Background(), models.RequestLocationConfig{RetryAttempts: 3})
	var locErr *models.LocationError
	if !errors.As(err, &locErr) || locErr.Kind != models.LocTimeout {
		t.Fatalf("RequestLocation error = %v, want timeout", err)
	}
	if provider.calls != 4 {
		t.Errorf("provider called %d times, want 1 initial + 3 retries", provider.calls)
	}
}

func TestRequestLocationRejectsZeroFix(t *testing.T) {
	// A clean response carrying the (0,0) sentinel is treated as position
	// unavailable, not as a fix off the coast of Ghana.
	provider := &fakeProvider{results: []func() (models.Coordinates, error){
		positionOK(0, 0),
	}}
	svc := newTestService(provider, nil)

	_, err := svc.RequestLocation(context.Background(), models.RequestLocationConfig{RetryAttempts: 1})
	var locErr *models.LocationError
	if !errors.As(err, &locErr) || locErr.Kind != models.LocPositionUnavailable {
		t.Fatalf("RequestLocation error = %v, want position unavailable", err)
	}
	if provider.calls != 2 {
		t.Errorf("provider called %d times, want 2", provider.calls)
	}
}

func TestReverseGeocodeFailsFastOnSentinel(t *testing.T) {
	geocoder := &fakeGeocoder{address: &models.Address{City: "Accra"}}
	svc := newTestService(nil, geocoder)

	if _, err := svc.ReverseGeocode(context.Background(), models.Coordinates{}); !errors.Is(err, models.ErrInvalidCoordinates) {
		t.Fatalf("ReverseGeocode error = %v, want ErrInvalidCoordinates", err)
	}
	if geocoder.reverseCalls != 0 {
		t.Errorf("geocoder called %d times for the sentinel, want 0", geocoder.reverseCalls)
	}

	addr, err := svc.ReverseGeocode(context.Background(), models.Coordinates{Lat: 5.6037, Lng: -0.1870})
	if err != nil {
		t.Fatalf("ReverseGeocode: %v", err)
	}
	if addr.City != "Accra" {
		t.Errorf("City = %q, want Accra", addr.City)
	}
}

func TestSearchAddressesCapsResults(t *testing.T) {
	results := make([]models.LocationSearchResult, 8)
	for i := range results {
		results[i] = models.LocationSearchResult{Label: "result"}
	}
	svc := newTestService(nil, &fakeGeocoder{results: results})

	got, err := svc.SearchAddresses(context.Background(), models.SearchAddressesRequest{Query: "Osu Oxford Street"})
	if err != nil {
		t.Fatalf("SearchAddresses: %v", err)
	}
	if len(got) != maxSearchResults {
		t.Errorf("got %d results, want cap of %d", len(got), maxSearchResults)
	}
}

func TestSearchAddressesEmptyQuery(t *testing.T) {
	svc := newTestService(nil, &fakeGeocoder{err: errors.New("should not be called")})

	got, err := svc.SearchAddresses(context.Background(), models.SearchAddressesRequest{Query: "   "})
	if err != nil {
		t.Fatalf("SearchAddresses: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d results for a blank query, want 0", len(got))
	}
}

func TestPermissionStatus(t *testing.T) {
	svc := newTestService(&fakeProvider{status: models.PermissionGranted}, nil)
	if got := svc.PermissionStatus(context.Background()); got != models.PermissionGranted {
		t.Errorf("PermissionStatus = %q, want granted", got)
	}

	bare := &Service{}
	if got := bare.PermissionStatus(context.Background()); got != models.PermissionUnavailable {
		t.Errorf("PermissionStatus without provider = %q, want unavailable", got)
	}
}

func TestUnavailableProvider(t *testing.T) {
	svc := newTestService(UnavailableProvider{}, nil)

	_, err := svc.RequestLocation(context.Background(), models.RequestLocationConfig{RetryAttempts: 3})
	var locErr *models.LocationError
	if !errors.As(err, &locErr) || locErr.Kind != models.LocServiceUnavailable {
		t.Fatalf("RequestLocation error = %v, want service unavailable", err)
	}
	if got := svc.PermissionStatus(context.Background()); got != models.PermissionUnavailable {
		t.Errorf("PermissionStatus = %q, want unavailable", got)
	}
}
