package dirgeo

// CategoryMap maps a business name to its cleaned category label.
type CategoryMap map[string]string

// Merge copies every entry of other into m. Entries in other overwrite
// entries already in m with the same name (last-wins).
func (m CategoryMap) Merge(other CategoryMap) {
	for name, category := range other {
		m[name] = category
	}
}

// CategoryExtractor parses one directory listing page.
type CategoryExtractor interface {
	// Extract returns the business name to category mapping found in html.
	// Listing entries without a heading or without a category are omitted.
	Extract(html string) (CategoryMap, error)
}
