// Package geocode runs a resumable geocoding pass over a list of addresses.
package geocode

import (
	"context"
	"fmt"

	"github.com/fwojciec/dirgeo"
)

// DefaultCheckpointEvery is the number of input addresses between flushes.
const DefaultCheckpointEvery = 100

// Runner geocodes addresses in input order and appends one record per
// address to the result table held by Store.
//
// A run resumes after the records already in Store: the first unprocessed
// input index is the number of stored records. Addresses that already have
// coordinates in Store, or that were resolved earlier in the run, are never
// sent to Geocoder again.
type Runner struct {
	Geocoder        dirgeo.Geocoder
	Store           dirgeo.ResultStore
	CheckpointEvery int
}

// Result summarizes a run.
type Result struct {
	Total       int
	Resumed     int
	CacheHits   int
	Fetched     int
	Failed      int
	Checkpoints int
}

// ProgressEvent reports the outcome of one address.
type ProgressEvent struct {
	Index   int
	Total   int
	Address string
	Outcome dirgeo.Outcome
	Error   error
}

// ProgressFunc is a callback for reporting geocoding progress.
type ProgressFunc func(event ProgressEvent)

// Run processes every address not yet covered by the stored table.
//
// A failed lookup is recorded with nil coordinates and the run continues.
// The table is flushed after every CheckpointEvery-th input address and once
// more before Run returns, including when ctx is cancelled.
func (r *Runner) Run(ctx context.Context, addresses []string, progress ProgressFunc) (*Result, error) {
	every := r.CheckpointEvery
	if every <= 0 {
		every = DefaultCheckpointEvery
	}

	records, err := r.Store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load results: %w", err)
	}

	known := make(map[string]dirgeo.Coordinates, len(records))
	for _, rec := range records {
		if rec.Coordinates != nil {
			known[rec.Address] = *rec.Coordinates
		}
	}

	result := &Result{Total: len(addresses), Resumed: min(len(records), len(addresses))}

	// Saving must still happen after ctx is cancelled.
	saveCtx := context.WithoutCancel(ctx)
	save := func() error {
		if err := r.Store.Save(saveCtx, records); err != nil {
			return fmt.Errorf("save results: %w", err)
		}
		result.Checkpoints++
		return nil
	}

	for i := len(records); i < len(addresses); i++ {
		if err := ctx.Err(); err != nil {
			return result, saveOnCancel(save, err)
		}

		address := addresses[i]
		rec := dirgeo.AddressRecord{Address: address}
		event := ProgressEvent{Index: i, Total: len(addresses), Address: address}

		if coords, ok := known[address]; ok {
			rec.Coordinates = &coords
			event.Outcome = dirgeo.OutcomeCacheHit
			result.CacheHits++
		} else {
			coords, err := r.Geocoder.Geocode(ctx, address)
			switch {
			case err != nil && ctx.Err() != nil:
				// The in-flight address is dropped so the next run retries it.
				return result, saveOnCancel(save, ctx.Err())
			case err != nil:
				event.Outcome = dirgeo.OutcomeFailed
				event.Error = err
				result.Failed++
			default:
				known[address] = *coords
				c := *coords
				rec.Coordinates = &c
				event.Outcome = dirgeo.OutcomeFetched
				result.Fetched++
			}
		}

		records = append(records, rec)
		if progress != nil {
			progress(event)
		}

		if (i+1)%every == 0 {
			if err := save(); err != nil {
				return result, err
			}
		}
	}

	if err := save(); err != nil {
		return result, err
	}
	return result, nil
}

func saveOnCancel(save func() error, cause error) error {
	if err := save(); err != nil {
		return fmt.Errorf("%w (final save failed: %v)", cause, err)
	}
	return cause
}
