// Package geom exports geocoding results as GeoJSON using go-geom.
package geom

import (
	"encoding/json"
	"io"

	"github.com/fwojciec/dirgeo"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// FeatureCollection returns one Point feature per record with coordinates.
// Records without coordinates are left out. Each feature carries the
// address and its input index as properties.
func FeatureCollection(records []dirgeo.AddressRecord) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: []*geojson.Feature{}}
	for i, rec := range records {
		if rec.Coordinates == nil {
			continue
		}
		point := geom.NewPointFlat(geom.XY, []float64{rec.Coordinates.Longitude, rec.Coordinates.Latitude})
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry: point,
			Properties: map[string]any{
				"address": rec.Address,
				"index":   i,
			},
		})
	}
	return fc
}

// WriteFeatureCollection encodes the features of records to w.
func WriteFeatureCollection(w io.Writer, records []dirgeo.AddressRecord) error {
	data, err := json.Marshal(FeatureCollection(records))
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
