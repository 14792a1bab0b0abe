// Package goquery implements dirgeo.CategoryExtractor on top of goquery.
package goquery

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/dirgeo"
)

// DefaultListingSelector matches one business entry on a directory page.
const DefaultListingSelector = "div.col-xs-12.col-sm-8"

// parenthetical matches a parenthesized annotation and its contents.
var parenthetical = regexp.MustCompile(`\([^)]*\)`)

var _ dirgeo.CategoryExtractor = (*CategoryExtractor)(nil)

// CategoryExtractor extracts business categories from directory listing pages.
//
// Within each listing block the business name is the first h4 and the
// category is the last b element. Nested i elements and parenthesized
// annotations are stripped from the category.
type CategoryExtractor struct {
	selector string
}

// Option configures a CategoryExtractor.
type Option func(*CategoryExtractor)

// WithListingSelector overrides the CSS selector for listing blocks.
func WithListingSelector(selector string) Option {
	return func(e *CategoryExtractor) {
		e.selector = selector
	}
}

// NewCategoryExtractor creates a new CategoryExtractor.
func NewCategoryExtractor(opts ...Option) *CategoryExtractor {
	e := &CategoryExtractor{selector: DefaultListingSelector}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract parses html and returns the business name to category mapping.
func (e *CategoryExtractor) Extract(html string) (dirgeo.CategoryMap, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, dirgeo.Errorf(dirgeo.EINVALID, "failed to parse HTML: %v", err)
	}

	categories := make(dirgeo.CategoryMap)
	doc.Find(e.selector).Each(func(_ int, block *goquery.Selection) {
		heading := block.Find("h4").First()
		if heading.Length() == 0 {
			return
		}
		name := strings.TrimSpace(heading.Text())

		bold := block.Find("b")
		if bold.Length() == 0 {
			return
		}
		// Work on a clone so removing footnote markers leaves doc intact.
		last := bold.Last().Clone()
		last.Find("i").Remove()

		categories[name] = CleanCategory(last.Text())
	})

	return categories, nil
}

// CleanCategory trims text and removes every parenthesized annotation.
func CleanCategory(text string) string {
	text = strings.TrimSpace(text)
	text = parenthetical.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
