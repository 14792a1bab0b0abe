package goquery_test

import (
	"testing"

	"github.com/fwojciec/dirgeo"
	"github.com/fwojciec/dirgeo/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryExtractor_Extract(t *testing.T) {
	t.Parallel()

	t.Run("uses last bold span and strips italics and parentheticals", func(t *testing.T) {
		t.Parallel()

		html := `<html><body>
			<div class="col-xs-12 col-sm-8">
				<h4> Acme </h4>
				<p><b>Ltd.</b></p>
				<p><b>Bakery <i>1</i>(est. 1990)</b></p>
			</div>
		</body></html>`

		got, err := goquery.NewCategoryExtractor().Extract(html)

		require.NoError(t, err)
		assert.Equal(t, dirgeo.CategoryMap{"Acme": "Bakery"}, got)
	})

	t.Run("skips block without heading", func(t *testing.T) {
		t.Parallel()

		html := `<div class="col-xs-12 col-sm-8"><b>Bakery</b></div>`

		got, err := goquery.NewCategoryExtractor().Extract(html)

		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("skips block with heading but no bold span", func(t *testing.T) {
		t.Parallel()

		html := `<div class="col-xs-12 col-sm-8"><h4>Acme</h4><p>no category here</p></div>`

		got, err := goquery.NewCategoryExtractor().Extract(html)

		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("uses first heading when several are present", func(t *testing.T) {
		t.Parallel()

		html := `<div class="col-xs-12 col-sm-8"><h4>Acme</h4><h4>Owner</h4><b>Bakery</b></div>`

		got, err := goquery.NewCategoryExtractor().Extract(html)

		require.NoError(t, err)
		assert.Equal(t, dirgeo.CategoryMap{"Acme": "Bakery"}, got)
	})

	t.Run("extracts every listing block on the page", func(t *testing.T) {
		t.Parallel()

		html := `
			<div class="col-xs-12 col-sm-8"><h4>Acme</h4><b>Bakery</b></div>
			<div class="col-xs-12 col-sm-8"><h4>Berg &amp; Söhne</h4><b>Butcher (kosher)</b></div>
			<div class="col-xs-12 col-sm-4"><h4>Sidebar</h4><b>Ignored</b></div>`

		got, err := goquery.NewCategoryExtractor().Extract(html)

		require.NoError(t, err)
		assert.Equal(t, dirgeo.CategoryMap{
			"Acme":         "Bakery",
			"Berg & Söhne": "Butcher",
		}, got)
	})

	t.Run("later block on the page wins on name collision", func(t *testing.T) {
		t.Parallel()

		html := `
			<div class="col-xs-12 col-sm-8"><h4>Acme</h4><b>Bakery</b></div>
			<div class="col-xs-12 col-sm-8"><h4>Acme</h4><b>Confectioner</b></div>`

		got, err := goquery.NewCategoryExtractor().Extract(html)

		require.NoError(t, err)
		assert.Equal(t, dirgeo.CategoryMap{"Acme": "Confectioner"}, got)
	})

	t.Run("respects custom listing selector", func(t *testing.T) {
		t.Parallel()

		html := `<li class="entry"><h4>Acme</h4><b>Bakery</b></li>`

		got, err := goquery.NewCategoryExtractor(goquery.WithListingSelector("li.entry")).Extract(html)

		require.NoError(t, err)
		assert.Equal(t, dirgeo.CategoryMap{"Acme": "Bakery"}, got)
	})

	t.Run("returns empty map for page without listings", func(t *testing.T) {
		t.Parallel()

		got, err := goquery.NewCategoryExtractor().Extract("<html><body><p>No results</p></body></html>")

		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestCleanCategory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Bakery", "Bakery"},
		{"surrounding whitespace", "  Bakery \n", "Bakery"},
		{"trailing parenthetical", "Bakery (est. 1990)", "Bakery"},
		{"inner parenthetical", "Textiles (wholesale) and retail", "Textiles  and retail"},
		{"several parentheticals", "(a) Bakery (b)", "Bakery"},
		{"only parenthetical", "(unknown)", ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, goquery.CleanCategory(tt.in))
		})
	}
}
