// Package csv encodes and decodes the CSV tables read and written by both
// pipelines.
package csv

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fwojciec/dirgeo"
	"golang.org/x/text/encoding/charmap"
)

// Encoding names reported by DecodeTable.
const (
	EncodingUTF8   = "utf-8"
	EncodingLatin1 = "latin-1"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadTable parses a UTF-8 CSV stream whose first record is the header.
func ReadTable(r io.Reader) (*dirgeo.Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv: read table: %w", err)
	}
	if len(records) == 0 {
		return nil, dirgeo.Errorf(dirgeo.EINVALID, "csv table has no header")
	}

	return &dirgeo.Table{Header: records[0], Rows: records[1:]}, nil
}

// DecodeTable parses data as UTF-8 and, if that fails, as Latin-1.
//
// UTF-8 fails on invalid byte sequences or a malformed table. onFallback, if
// not nil, receives the UTF-8 error before the Latin-1 attempt. The returned
// string names the encoding that succeeded.
func DecodeTable(data []byte, onFallback func(err error)) (*dirgeo.Table, string, error) {
	t, err := decodeUTF8(data)
	if err == nil {
		return t, EncodingUTF8, nil
	}
	if onFallback != nil {
		onFallback(err)
	}

	decoded, derr := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if derr != nil {
		return nil, "", errors.Join(err, fmt.Errorf("csv: decode latin-1: %w", derr))
	}
	t, lerr := ReadTable(bytes.NewReader(decoded))
	if lerr != nil {
		return nil, "", errors.Join(err, lerr)
	}
	return t, EncodingLatin1, nil
}

func decodeUTF8(data []byte) (*dirgeo.Table, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return nil, dirgeo.Errorf(dirgeo.EINVALID, "csv: input is not valid UTF-8")
	}
	return ReadTable(bytes.NewReader(data))
}

// WriteTable writes t with every field quoted, header first.
func WriteTable(w io.Writer, t *dirgeo.Table) error {
	bw := bufio.NewWriter(w)
	if err := writeQuotedRecord(bw, t.Header); err != nil {
		return err
	}
	for _, row := range t.Rows {
		if err := writeQuotedRecord(bw, row); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeQuotedRecord(w *bufio.Writer, record []string) error {
	for i, field := range record {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(`"` + strings.ReplaceAll(field, `"`, `""`) + `"`); err != nil {
			return err
		}
	}
	return w.WriteByte('\n')
}
