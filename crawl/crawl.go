// Package crawl walks a paginated business directory and aggregates the
// category of every listed business.
package crawl

import (
	"context"
	"net/url"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/dirgeo"
)

// Defaults for the Berlin directory.
const (
	DefaultBaseURL   = "https://www2.hu-berlin.de/djgb/public/en/find"
	DefaultFirstPage = 1
	DefaultLastPage  = 1012
)

// Crawler fetches directory pages one at a time and merges their categories.
type Crawler struct {
	Fetcher     dirgeo.Fetcher
	Extractor   dirgeo.CategoryExtractor
	RateLimiter dirgeo.DomainLimiter
	BaseURL     string
}

// Result holds the outcome of a crawl.
type Result struct {
	Pages      int
	Failed     int
	Duplicate  int
	Businesses int
}

// ProgressEvent reports progress during a crawl.
type ProgressEvent struct {
	Type       ProgressType
	Page       int
	Completed  int
	Total      int
	URL        string
	Businesses int
	Error      error
}

// ProgressType indicates the type of progress event.
type ProgressType int

const (
	ProgressStarted ProgressType = iota
	ProgressCompleted
	ProgressDuplicate
	ProgressFailed
	ProgressFinished
)

// ProgressFunc is a callback for reporting crawl progress.
type ProgressFunc func(event ProgressEvent)

// PageURL returns baseURL with its page query parameter set to page.
func PageURL(baseURL string, page int) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", dirgeo.Errorf(dirgeo.EINVALID, "invalid base URL: %v", err)
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Crawl fetches pages first through last in order and merges their
// categories. A later page overwrites an earlier one on name collision.
//
// A page that fails to fetch or parse contributes nothing and the crawl moves
// on. A page whose body is identical to one already seen is not parsed again.
// Crawl only returns an error for an invalid base URL or a cancelled context;
// in the latter case the categories gathered so far are returned as well.
func (c *Crawler) Crawl(ctx context.Context, first, last int, progress ProgressFunc) (dirgeo.CategoryMap, *Result, error) {
	baseURL := c.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, nil, dirgeo.Errorf(dirgeo.EINVALID, "invalid base URL: %v", err)
	}

	total := 0
	if last >= first {
		total = last - first + 1
	}

	all := make(dirgeo.CategoryMap)
	result := &Result{}
	// Parsed pages keyed by body hash, replayed when the site repeats a page.
	seen := make(map[uint64]dirgeo.CategoryMap)

	notify := func(event ProgressEvent) {
		if progress != nil {
			event.Total = total
			event.Completed = result.Pages
			progress(event)
		}
	}

	notify(ProgressEvent{Type: ProgressStarted})

	for page := first; page <= last; page++ {
		pageURL, err := PageURL(baseURL, page)
		if err != nil {
			return all, result, err
		}

		if c.RateLimiter != nil {
			if err := c.RateLimiter.Wait(ctx, base.Host); err != nil {
				return all, result, err
			}
		}

		html, err := c.Fetcher.Fetch(ctx, pageURL)
		result.Pages++
		if err != nil {
			if ctx.Err() != nil {
				return all, result, ctx.Err()
			}
			result.Failed++
			notify(ProgressEvent{Type: ProgressFailed, Page: page, URL: pageURL, Error: err})
			continue
		}

		sum := xxhash.Sum64String(html)
		if categories, ok := seen[sum]; ok {
			all.Merge(categories)
			result.Duplicate++
			notify(ProgressEvent{Type: ProgressDuplicate, Page: page, URL: pageURL, Businesses: len(categories)})
			continue
		}

		categories, err := c.Extractor.Extract(html)
		if err != nil {
			result.Failed++
			notify(ProgressEvent{Type: ProgressFailed, Page: page, URL: pageURL, Error: err})
			continue
		}
		seen[sum] = categories
		all.Merge(categories)
		notify(ProgressEvent{Type: ProgressCompleted, Page: page, URL: pageURL, Businesses: len(categories)})
	}

	result.Businesses = len(all)
	notify(ProgressEvent{Type: ProgressFinished, Businesses: result.Businesses})

	return all, result, nil
}
