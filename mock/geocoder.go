package mock

import (
	"context"

	"github.com/fwojciec/dirgeo"
)

var _ dirgeo.Geocoder = (*Geocoder)(nil)

// Geocoder is a mock implementation of dirgeo.Geocoder.
type Geocoder struct {
	GeocodeFn func(ctx context.Context, address string) (*dirgeo.Coordinates, error)
}

func (g *Geocoder) Geocode(ctx context.Context, address string) (*dirgeo.Coordinates, error) {
	return g.GeocodeFn(ctx, address)
}

var _ dirgeo.ResultStore = (*ResultStore)(nil)

// ResultStore is a mock implementation of dirgeo.ResultStore.
type ResultStore struct {
	LoadFn func(ctx context.Context) ([]dirgeo.AddressRecord, error)
	SaveFn func(ctx context.Context, records []dirgeo.AddressRecord) error
}

func (s *ResultStore) Load(ctx context.Context) ([]dirgeo.AddressRecord, error) {
	return s.LoadFn(ctx)
}

func (s *ResultStore) Save(ctx context.Context, records []dirgeo.AddressRecord) error {
	return s.SaveFn(ctx, records)
}
