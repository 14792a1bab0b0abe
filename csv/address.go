package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/fwojciec/dirgeo"
)

// Result table column names.
const (
	ColumnAddress   = "Address"
	ColumnLatitude  = "Latitude"
	ColumnLongitude = "Longitude"
)

// ReadAddresses returns the first field of every record. There is no header.
func ReadAddresses(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var addresses []string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return addresses, nil
		}
		if err != nil {
			return nil, fmt.Errorf("csv: read addresses: %w", err)
		}
		addresses = append(addresses, record[0])
	}
}

// ReadResults parses a result table written by WriteResults.
// Rows with an empty or non-finite coordinate have nil Coordinates.
func ReadResults(r io.Reader) ([]dirgeo.AddressRecord, error) {
	t, err := ReadTable(r)
	if err != nil {
		return nil, err
	}

	addrIdx := t.ColumnIndex(ColumnAddress)
	latIdx := t.ColumnIndex(ColumnLatitude)
	lonIdx := t.ColumnIndex(ColumnLongitude)
	if addrIdx < 0 || latIdx < 0 || lonIdx < 0 {
		return nil, dirgeo.Errorf(dirgeo.EINVALID, "result table needs %s, %s and %s columns", ColumnAddress, ColumnLatitude, ColumnLongitude)
	}

	records := make([]dirgeo.AddressRecord, 0, len(t.Rows))
	for i, row := range t.Rows {
		if len(row) <= max(addrIdx, latIdx, lonIdx) {
			return nil, dirgeo.Errorf(dirgeo.EINVALID, "result row %d has %d fields", i+1, len(row))
		}
		rec := dirgeo.AddressRecord{Address: row[addrIdx]}

		lat, latOK, err := parseCoordinate(row[latIdx])
		if err != nil {
			return nil, dirgeo.Errorf(dirgeo.EINVALID, "result row %d: invalid latitude %q", i+1, row[latIdx])
		}
		lon, lonOK, err := parseCoordinate(row[lonIdx])
		if err != nil {
			return nil, dirgeo.Errorf(dirgeo.EINVALID, "result row %d: invalid longitude %q", i+1, row[lonIdx])
		}
		if latOK && lonOK {
			rec.Coordinates = &dirgeo.Coordinates{Latitude: lat, Longitude: lon}
		}
		records = append(records, rec)
	}

	return records, nil
}

// parseCoordinate treats an empty cell or NaN as missing.
func parseCoordinate(s string) (float64, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false, nil
	}
	return v, true, nil
}

// WriteResults writes records under an Address,Latitude,Longitude header.
// Missing coordinates are written as empty cells.
func WriteResults(w io.Writer, records []dirgeo.AddressRecord) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{ColumnAddress, ColumnLatitude, ColumnLongitude}); err != nil {
		return err
	}
	for _, rec := range records {
		lat, lon := "", ""
		if rec.Coordinates != nil {
			lat = strconv.FormatFloat(rec.Coordinates.Latitude, 'f', -1, 64)
			lon = strconv.FormatFloat(rec.Coordinates.Longitude, 'f', -1, 64)
		}
		if err := writer.Write([]string{rec.Address, lat, lon}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
