// Package googlemaps implements dirgeo.Geocoder using the Google Maps
// Geocoding API.
package googlemaps

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/fwojciec/dirgeo"
	"googlemaps.github.io/maps"
)

// APIClient is the subset of *maps.Client used by Geocoder.
type APIClient interface {
	Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

// Ensure Geocoder implements dirgeo.Geocoder at compile time.
var _ dirgeo.Geocoder = (*Geocoder)(nil)

// Geocoder resolves addresses with the first Google Maps geocoding result.
type Geocoder struct {
	client APIClient
	suffix string
	log    *slog.Logger
}

// Option configures a Geocoder.
type Option func(*Geocoder)

// WithSuffix sets the text appended to every address before lookup.
func WithSuffix(suffix string) Option {
	return func(g *Geocoder) {
		g.suffix = suffix
	}
}

// WithLogger sets the logger for request-level debug output.
func WithLogger(log *slog.Logger) Option {
	return func(g *Geocoder) {
		g.log = log
	}
}

// NewGeocoder creates a Geocoder backed by client.
func NewGeocoder(client APIClient, opts ...Option) *Geocoder {
	g := &Geocoder{
		client: client,
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewClient creates a Maps API client that sends requests through
// httpClient. An empty baseURL keeps the public endpoint.
func NewClient(apiKey string, httpClient *http.Client, baseURL string) (*maps.Client, error) {
	if apiKey == "" {
		return nil, dirgeo.Errorf(dirgeo.EINVALID, "an API key is required for the Google provider")
	}
	opts := []maps.ClientOption{
		maps.WithAPIKey(apiKey),
		maps.WithHTTPClient(httpClient),
	}
	if baseURL != "" {
		opts = append(opts, maps.WithBaseURL(baseURL))
	}
	client, err := maps.NewClient(opts...)
	if err != nil {
		return nil, dirgeo.Errorf(dirgeo.EINVALID, "failed to create Google Maps client: %v", err)
	}
	return client, nil
}

// Geocode returns the location of the first result for address.
// Returns ENOTFOUND when the API has no result.
func (g *Geocoder) Geocode(ctx context.Context, address string) (*dirgeo.Coordinates, error) {
	g.log.DebugContext(ctx, "google maps request", "address", address)

	results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{Address: address + g.suffix})
	if err != nil {
		return nil, fmt.Errorf("failed to geocode address: %w", err)
	}
	// ZERO_RESULTS arrives as an empty slice.
	if len(results) == 0 {
		return nil, dirgeo.Errorf(dirgeo.ENOTFOUND, "no results for %q", address)
	}

	loc := results[0].Geometry.Location
	return &dirgeo.Coordinates{Latitude: loc.Lat, Longitude: loc.Lng}, nil
}
