package dirgeo

import "strings"

// Column names used by the categorize pipeline.
const (
	ColumnBusinessName = "business_name"
	ColumnCategory     = "category"
)

// Table is an in-memory CSV table: a header row plus data rows.
// Every row is expected to be as wide as the header.
type Table struct {
	Header []string
	Rows   [][]string
}

// ColumnIndex returns the index of the named header column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Validate returns an error if the table lacks a business name column or
// has a row with more fields than the header. Shorter rows are allowed.
func (t *Table) Validate() error {
	if t.ColumnIndex(ColumnBusinessName) < 0 {
		return Errorf(EINVALID, "input table has no %q column", ColumnBusinessName)
	}
	for i, row := range t.Rows {
		if len(row) > len(t.Header) {
			return Errorf(EINVALID, "input row %d has %d fields, header has %d", i+1, len(row), len(t.Header))
		}
	}
	return nil
}

// EnrichResult summarizes an Enrich run.
type EnrichResult struct {
	Total   int
	Matches int
}

// EnrichProgress reports progress after each row is processed.
type EnrichProgress struct {
	Processed int
	Total     int
	Matches   int
}

// EnrichProgressFunc is called once per processed row.
type EnrichProgressFunc func(EnrichProgress)

// Enrich sets the category column of every row in t from categories.
//
// The category column is appended if missing and cleared if present. Each
// row's business name is trimmed and looked up by exact match; a miss leaves
// the category empty. Row order and all other columns are preserved.
func Enrich(t *Table, categories CategoryMap, progress EnrichProgressFunc) (*EnrichResult, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	nameIdx := t.ColumnIndex(ColumnBusinessName)
	catIdx := t.ColumnIndex(ColumnCategory)
	if catIdx < 0 {
		t.Header = append(t.Header, ColumnCategory)
		catIdx = len(t.Header) - 1
	}

	result := &EnrichResult{Total: len(t.Rows)}
	for i, row := range t.Rows {
		// Pad short rows so the category cell exists.
		for len(row) < len(t.Header) {
			row = append(row, "")
		}
		row[catIdx] = ""

		name := strings.TrimSpace(row[nameIdx])
		if category, ok := categories[name]; ok {
			row[catIdx] = category
			result.Matches++
		}
		t.Rows[i] = row

		if progress != nil {
			progress(EnrichProgress{
				Processed: i + 1,
				Total:     result.Total,
				Matches:   result.Matches,
			})
		}
	}

	return result, nil
}
