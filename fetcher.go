package dirgeo

import "context"

// Fetcher retrieves the body of a single directory page.
type Fetcher interface {
	// Fetch issues one GET for the URL and returns the decoded body.
	// The context controls timeout and cancellation.
	Fetch(ctx context.Context, url string) (html string, err error)

	// Close releases any resources held by the fetcher.
	Close() error
}
