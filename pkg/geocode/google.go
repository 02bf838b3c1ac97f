// Package geocode is a thin client for the Google Geocoding API, used by the
// location service to resolve coordinates and addresses.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"carcare-dispatch/internal/models"
)

const baseURL = "https://maps.googleapis.com/maps/api/geocode/json"

// Client calls the Google Geocoding API.
type Client struct {
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a geocoding client with a sane request timeout.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// geocodeResponse is the minimal slice of the API response we care about.
type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		FormattedAddress  string `json:"formatted_address"`
		AddressComponents []struct {
			LongName string   `json:"long_name"`
			Types    []string `json:"types"`
		} `json:"address_components"`
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

func (c *Client) call(ctx context.Context, params url.Values) (*geocodeResponse, error) {
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("geocode.call build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &models.LocationError{Kind: models.LocNetworkError, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("geocode.call read body: %w", err)
	}

	var decoded geocodeResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("geocode.call unmarshal: %w", err)
	}
	if decoded.Status != "OK" && decoded.Status != "ZERO_RESULTS" {
		return nil, &models.LocationError{
			Kind:    models.LocServiceUnavailable,
			Message: fmt.Sprintf("geocoding API status %s", decoded.Status),
		}
	}
	return &decoded, nil
}

// ReverseGeocode resolves coordinates to the closest postal address.
func (c *Client) ReverseGeocode(ctx context.Context, coords models.Coordinates) (*models.Address, error) {
	params := url.Values{}
	params.Set("latlng", fmt.Sprintf("%f,%f", coords.Lat, coords.Lng))

	decoded, err := c.call(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(decoded.Results) == 0 {
		return nil, &models.LocationError{Kind: models.LocServiceUnavailable, Message: "no address for coordinates"}
	}

	addr := resultToAddress(decoded, 0)
	addr.Coordinates = coords
	return &addr, nil
}

// SearchAddresses forward-geocodes a free-text query, optionally biased
// toward given coordinates, returning at most limit suggestions.
func (c *Client) SearchAddresses(ctx context.Context, query string, bias *models.Coordinates, limit int) ([]models.LocationSearchResult, error) {
	params := url.Values{}
	params.Set("address", query)
	if bias != nil && !bias.IsZero() {
		// A small viewport around the bias point nudges ranking without
		// excluding anything.
		params.Set("bounds", fmt.Sprintf("%f,%f|%f,%f",
			bias.Lat-0.5, bias.Lng-0.5, bias.Lat+0.5, bias.Lng+0.5))
	}

	decoded, err := c.call(ctx, params)
	if err != nil {
		return nil, err
	}

	n := len(decoded.Results)
	if limit > 0 && n > limit {
		n = limit
	}
	results := make([]models.LocationSearchResult, 0, n)
	for i := 0; i < n; i++ {
		addr := resultToAddress(decoded, i)
		addr.Coordinates = models.Coordinates{
			Lat: decoded.Results[i].Geometry.Location.Lat,
			Lng: decoded.Results[i].Geometry.Location.Lng,
		}
		results = append(results, models.LocationSearchResult{
			Label:       addr.Formatted,
			Address:     addr,
			Coordinates: addr.Coordinates,
		})
	}
	return results, nil
}

func resultToAddress(decoded *geocodeResponse, i int) models.Address {
	res := decoded.Results[i]
	addr := models.Address{Formatted: res.FormattedAddress}
	for _, comp := range res.AddressComponents {
		for _, t := range comp.Types {
			switch t {
			case "route":
				addr.Street = comp.LongName
			case "locality":
				addr.City = comp.LongName
			case "country":
				addr.Country = comp.LongName
			case "postal_code":
				addr.PostalCode = comp.LongName
			}
		}
	}
	return addr
}
