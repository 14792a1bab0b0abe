package mock

import "github.com/fwojciec/dirgeo"

var _ dirgeo.CategoryExtractor = (*CategoryExtractor)(nil)

// CategoryExtractor is a mock implementation of dirgeo.CategoryExtractor.
type CategoryExtractor struct {
	ExtractFn func(html string) (dirgeo.CategoryMap, error)
}

func (e *CategoryExtractor) Extract(html string) (dirgeo.CategoryMap, error) {
	return e.ExtractFn(html)
}
