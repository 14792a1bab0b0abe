package csv_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fwojciec/dirgeo"
	"github.com/fwojciec/dirgeo/csv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadTable(t *testing.T) {
	t.Parallel()

	t.Run("splits header from rows", func(t *testing.T) {
		t.Parallel()

		got, err := csv.ReadTable(strings.NewReader("business_name,city\nAcme,Berlin\n\"Berg, Söhne\",Potsdam\n"))

		require.NoError(t, err)
		assert.Equal(t, []string{"business_name", "city"}, got.Header)
		assert.Equal(t, [][]string{{"Acme", "Berlin"}, {"Berg, Söhne", "Potsdam"}}, got.Rows)
	})

	t.Run("returns EINVALID for empty input", func(t *testing.T) {
		t.Parallel()

		_, err := csv.ReadTable(strings.NewReader(""))

		require.Error(t, err)
		assert.Equal(t, dirgeo.EINVALID, dirgeo.ErrorCode(err))
	})
}

func TestDecodeTable(t *testing.T) {
	t.Parallel()

	t.Run("reads valid UTF-8 without fallback", func(t *testing.T) {
		t.Parallel()

		var fellBack bool
		got, enc, err := csv.DecodeTable([]byte("business_name\nMüller\n"), func(error) { fellBack = true })

		require.NoError(t, err)
		assert.Equal(t, csv.EncodingUTF8, enc)
		assert.False(t, fellBack)
		assert.Equal(t, [][]string{{"Müller"}}, got.Rows)
	})

	t.Run("strips UTF-8 byte order mark", func(t *testing.T) {
		t.Parallel()

		got, _, err := csv.DecodeTable([]byte("\xEF\xBB\xBFbusiness_name\nAcme\n"), nil)

		require.NoError(t, err)
		assert.Equal(t, []string{"business_name"}, got.Header)
	})

	t.Run("falls back to latin-1 on invalid UTF-8", func(t *testing.T) {
		t.Parallel()

		var fallbackErr error
		got, enc, err := csv.DecodeTable([]byte("business_name\nM\xfcller\n"), func(err error) { fallbackErr = err })

		require.NoError(t, err)
		assert.Equal(t, csv.EncodingLatin1, enc)
		assert.Error(t, fallbackErr)
		assert.Equal(t, [][]string{{"Müller"}}, got.Rows)
	})

	t.Run("fails when both encodings fail", func(t *testing.T) {
		t.Parallel()

		_, _, err := csv.DecodeTable([]byte("business_name\n\"unterminated\n"), nil)

		require.Error(t, err)
	})
}

func TestWriteTable(t *testing.T) {
	t.Parallel()

	t.Run("quotes every field and escapes quotes", func(t *testing.T) {
		t.Parallel()

		table := &dirgeo.Table{
			Header: []string{"business_name", "category"},
			Rows: [][]string{
				{"Acme", "Bakery"},
				{`Berg "Söhne"`, ""},
			},
		}

		var buf bytes.Buffer
		err := csv.WriteTable(&buf, table)

		require.NoError(t, err)
		assert.Equal(t, "\"business_name\",\"category\"\n\"Acme\",\"Bakery\"\n\"Berg \"\"Söhne\"\"\",\"\"\n", buf.String())
	})

	t.Run("output reads back to the same table", func(t *testing.T) {
		t.Parallel()

		table := &dirgeo.Table{
			Header: []string{"business_name", "note", "category"},
			Rows: [][]string{
				{"Acme", "line one\nline two", "Bakery"},
				{"Berg, Söhne", "", ""},
			},
		}

		var buf bytes.Buffer
		require.NoError(t, csv.WriteTable(&buf, table))

		got, err := csv.ReadTable(&buf)

		require.NoError(t, err)
		assert.Equal(t, table, got)
	})
}
