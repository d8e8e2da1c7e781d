// Package geocode resolves stored street addresses to coordinates.
package geocode

import (
	"context"
	"errors"
	"fmt"

	"googlemaps.github.io/maps"
)

// ErrNoResult address did not resolve to any location.
var ErrNoResult = errors.New("address not found")

// Geocoder forward-geocodes an address.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (lat, lng float64, err error)
}

// MapsGeocoder Google Maps implementation.
type MapsGeocoder struct {
	client *maps.Client
	region string
}

// NewMapsGeocoder; region biases results (ccTLD, e.g. "ph").
// Extra options (maps.WithBaseURL) are passed through.
func NewMapsGeocoder(apiKey, region string, opts ...maps.ClientOption) (*MapsGeocoder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("maps api key is required")
	}
	opts = append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)
	client, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &MapsGeocoder{client: client, region: region}, nil
}

func (g *MapsGeocoder) Geocode(ctx context.Context, address string) (float64, float64, error) {
	req := &maps.GeocodingRequest{
		Address: address,
		Region:  g.region,
	}
	results, err := g.client.Geocode(ctx, req)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to geocode %q: %w", address, err)
	}
	if len(results) == 0 {
		return 0, 0, ErrNoResult
	}
	loc := results[0].Geometry.Location
	return loc.Lat, loc.Lng, nil
}
