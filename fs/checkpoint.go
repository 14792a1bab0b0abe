package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/fwojciec/dirgeo"
	"github.com/fwojciec/dirgeo/csv"
)

// Ensure CheckpointStore implements dirgeo.ResultStore at compile time.
var _ dirgeo.ResultStore = (*CheckpointStore)(nil)

// CheckpointStore keeps the geocoding result table in a single CSV file.
// Every Save rewrites the whole file atomically.
type CheckpointStore struct {
	path string
}

// NewCheckpointStore creates a CheckpointStore backed by the file at path.
func NewCheckpointStore(path string) *CheckpointStore {
	return &CheckpointStore{path: path}
}

// Path returns the backing file path.
func (s *CheckpointStore) Path() string {
	return s.path
}

// Load reads the saved records. A missing file yields no records.
func (s *CheckpointStore) Load(ctx context.Context) ([]dirgeo.AddressRecord, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []dirgeo.AddressRecord{}, nil
	} else if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.ReadResults(f)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint %s: %w", s.path, err)
	}
	return records, nil
}

// Save replaces the file contents with records.
func (s *CheckpointStore) Save(ctx context.Context, records []dirgeo.AddressRecord) error {
	return writeFileAtomic(s.path, func(w io.Writer) error {
		return csv.WriteResults(w, records)
	})
}
