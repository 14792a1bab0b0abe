package dirgeo

import "context"

// Coordinates is a WGS84 point.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// AddressRecord is one row of the geocoding result table.
// A nil Coordinates records a failed lookup.
type AddressRecord struct {
	Address     string
	Coordinates *Coordinates
}

// Outcome is the terminal state of one address in a geocoding run.
type Outcome string

// Outcome constants. Every address starts as OutcomePending and ends in
// exactly one of the other three.
const (
	OutcomePending  Outcome = "pending"
	OutcomeCacheHit Outcome = "cache_hit"
	OutcomeFetched  Outcome = "fetched"
	OutcomeFailed   Outcome = "failed"
)

// Geocoder resolves a free-text address to coordinates.
type Geocoder interface {
	// Geocode returns the best candidate location for address.
	// Returns ENOTFOUND if the service has no candidate.
	Geocode(ctx context.Context, address string) (*Coordinates, error)
}

// ResultStore persists the geocoding result table between runs.
type ResultStore interface {
	// Load returns the previously saved records in order.
	// A store that was never saved returns an empty slice.
	Load(ctx context.Context) ([]AddressRecord, error)

	// Save replaces the stored table with records.
	Save(ctx context.Context, records []AddressRecord) error
}
