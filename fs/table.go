package fs

import (
	"fmt"
	"io"
	"os"

	"github.com/fwojciec/dirgeo"
	"github.com/fwojciec/dirgeo/csv"
	"github.com/fwojciec/dirgeo/geom"
)

// ReadTableFile reads the CSV table at path, trying UTF-8 then Latin-1.
// onFallback is passed through to csv.DecodeTable.
func ReadTableFile(path string, onFallback func(err error)) (*dirgeo.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	t, _, err := csv.DecodeTable(data, onFallback)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return t, nil
}

// WriteTableFile writes t to path with every field quoted.
func WriteTableFile(path string, t *dirgeo.Table) error {
	return writeFileAtomic(path, func(w io.Writer) error {
		return csv.WriteTable(w, t)
	})
}

// ReadAddressFile reads one address per row from the file at path.
func ReadAddressFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	addresses, err := csv.ReadAddresses(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return addresses, nil
}

// WriteGeoJSONFile writes the resolved records in records to path as a
// GeoJSON FeatureCollection.
func WriteGeoJSONFile(path string, records []dirgeo.AddressRecord) error {
	return writeFileAtomic(path, func(w io.Writer) error {
		return geom.WriteFeatureCollection(w, records)
	})
}
