// Package arcgis implements dirgeo.Geocoder using the ArcGIS World
// Geocoding Service findAddressCandidates operation.
package arcgis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/fwojciec/dirgeo"
)

// Defaults for geocoding Berlin street addresses.
const (
	DefaultEndpoint = "https://geocode.arcgis.com/arcgis/rest/services/World/GeocodeServer/findAddressCandidates"
	DefaultSuffix   = ", Berlin, Germany"
)

// HTTPClient defines the interface for making HTTP requests.
// *http.Client satisfies it; tests substitute a stub.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Ensure Geocoder implements dirgeo.Geocoder at compile time.
var _ dirgeo.Geocoder = (*Geocoder)(nil)

// Geocoder resolves addresses with one findAddressCandidates request each.
// Retries are the job of the client's transport.
type Geocoder struct {
	client   HTTPClient
	endpoint string
	suffix   string
	log      *slog.Logger
}

// Option configures a Geocoder.
type Option func(*Geocoder)

// WithEndpoint overrides the findAddressCandidates URL.
func WithEndpoint(endpoint string) Option {
	return func(g *Geocoder) {
		g.endpoint = endpoint
	}
}

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

// NewGeocoder creates a Geocoder that sends requests through client.
func NewGeocoder(client HTTPClient, opts ...Option) *Geocoder {
	g := &Geocoder{
		client:   client,
		endpoint: DefaultEndpoint,
		suffix:   DefaultSuffix,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// candidatesResponse is the subset of the findAddressCandidates JSON we use.
type candidatesResponse struct {
	Candidates []struct {
		Location struct {
			X *float64 `json:"x"`
			Y *float64 `json:"y"`
		} `json:"location"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Geocode returns the location of the first candidate for address.
// Returns ENOTFOUND when the service has no candidate and EUNAVAILABLE
// when it answers with an error.
func (g *Geocoder) Geocode(ctx context.Context, address string) (*dirgeo.Coordinates, error) {
	reqURL, err := url.Parse(g.endpoint)
	if err != nil {
		return nil, dirgeo.Errorf(dirgeo.EINVALID, "invalid geocoder endpoint: %v", err)
	}
	query := reqURL.Query()
	query.Set("singleLine", address+g.suffix)
	query.Set("f", "json")
	query.Set("maxLocations", strconv.Itoa(1))
	reqURL.RawQuery = query.Encode()

	g.log.DebugContext(ctx, "arcgis request", "url", reqURL.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute geocoding request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, dirgeo.Errorf(dirgeo.EUNAVAILABLE, "arcgis returned status %d", resp.StatusCode)
	}

	var data candidatesResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("failed to decode arcgis response: %w", err)
	}
	if data.Error != nil {
		return nil, dirgeo.Errorf(dirgeo.EUNAVAILABLE, "arcgis error %d: %s", data.Error.Code, data.Error.Message)
	}
	if len(data.Candidates) == 0 {
		return nil, dirgeo.Errorf(dirgeo.ENOTFOUND, "no candidates for %q", address)
	}

	loc := data.Candidates[0].Location
	if loc.X == nil || loc.Y == nil {
		return nil, dirgeo.Errorf(dirgeo.ENOTFOUND, "candidate for %q has no location", address)
	}

	g.log.DebugContext(ctx, "arcgis candidate", "address", address, "lat", *loc.Y, "lon", *loc.X)

	return &dirgeo.Coordinates{
		Latitude:  *loc.Y,
		Longitude: *loc.X,
	}, nil
}
