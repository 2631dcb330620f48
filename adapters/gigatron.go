package adapters

import (
	"strings"

	"retail-extractor/internal/types"
)

// Product documents are linked from the description tabs or the
// specification table, never from page chrome
const gigatronDatasheets = `div[role="tabpanel"] a[href$=".pdf"], div[role="tabpanel"] a[href$=".PDF"], ` +
	`table a[href$=".pdf"], table a[href$=".PDF"]`

// GigatronAdapter handles extraction for gigatron.rs
type GigatronAdapter struct {
	*BaseAdapter
}

// NewGigatronAdapter creates a new Gigatron adapter
func NewGigatronAdapter(logger types.Logger) *GigatronAdapter {
	return &GigatronAdapter{
		BaseAdapter: NewBaseAdapter("gigatron", logger),
	}
}

// SitemapURLs returns the Gigatron product sitemaps
func (g *GigatronAdapter) SitemapURLs() []string {
	return []string{
		"https://gigatron.rs/sitemap/samsung.xml",
		"https://gigatron.rs/sitemap/proizvodi.xml",
	}
}

// MatchProductURL accepts /proizvod/ pages only
func (g *GigatronAdapter) MatchProductURL(rawURL string) bool {
	return strings.Contains(rawURL, "/proizvod/")
}

// PreferBrowser is false: product data is server rendered
func (g *GigatronAdapter) PreferBrowser() bool {
	return false
}

// Extract reads a Gigatron product page. Most fields come from the Product
// JSON-LD block; specs come from the specification table.
func (g *GigatronAdapter) Extract(pageURL string, body []byte) (*types.Extraction, error) {
	d, err := g.ParseDocument(pageURL, body)
	if err != nil {
		return nil, err
	}

	x := &types.Extraction{
		Identifier: FirstOf(d, JSONLDIdentifier, IdentifierFromURL),
		Title:      FirstOf(d, JSONLDName, TextOf("h1"), MetaContent("og:title")),
		Brand:      FirstOf(d, JSONLDBrand),
		Price:      FirstOf(d, JSONLDPrice, MetaContent("product:price:amount")),
		Category:   FirstOf(d, JSONLDCategory, JSONLDBreadcrumb),
		Specs:      TableSpecs(d, "table tbody tr"),
	}
	x.Description = Description(d)

	x.Images = CollectImages(d, `button[aria-label*="Slika proizvoda"] img`, "src")
	if len(x.Images) == 0 {
		if u, ok := NormalizeImageURL(d.URL, FirstOf(d, MetaContent("og:image"))); ok {
			x.Images = []string{u}
		}
	}

	x.Datasheets = CollectDatasheets(d, gigatronDatasheets)

	g.logger.Debugf("gigatron: %s -> id=%q title=%q specs=%d images=%d",
		pageURL, x.Identifier, x.Title, len(x.Specs), len(x.Images))
	return g.finish(d, x), nil
}
