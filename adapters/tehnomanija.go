package adapters

import (
	"net/url"
	"strings"

	"retail-extractor/internal/types"
)

// Only links inside the product detail tabs count as datasheets
const tehnomanijaDatasheets = `.product.info.detailed a[href$=".pdf"], .product.info.detailed a[href$=".PDF"], ` +
	`#product-attribute-specs-table a[href$=".pdf"], #product-attribute-specs-table a[href$=".PDF"]`

// TehnomanijaAdapter handles extraction for tehnomanija.rs
type TehnomanijaAdapter struct {
	*BaseAdapter
}

// NewTehnomanijaAdapter creates a new Tehnomanija adapter
func NewTehnomanijaAdapter(logger types.Logger) *TehnomanijaAdapter {
	return &TehnomanijaAdapter{
		BaseAdapter: NewBaseAdapter("tehnomanija", logger),
	}
}

// SitemapURLs returns the Tehnomanija product sitemaps
func (t *TehnomanijaAdapter) SitemapURLs() []string {
	return []string{
		"https://www.tehnomanija.rs/products_1.xml",
		"https://www.tehnomanija.rs/products_2.xml",
		"https://www.tehnomanija.rs/products_3.xml",
	}
}

// MatchProductURL accepts any page on the tehnomanija.rs host
func (t *TehnomanijaAdapter) MatchProductURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.Contains(u.Hostname(), "tehnomanija.rs") && strings.Trim(u.Path, "/") != ""
}

// PreferBrowser is true: prices and galleries are rendered client side
func (t *TehnomanijaAdapter) PreferBrowser() bool {
	return true
}

// Extract reads a Tehnomanija product page
func (t *TehnomanijaAdapter) Extract(pageURL string, body []byte) (*types.Extraction, error) {
	d, err := t.ParseDocument(pageURL, body)
	if err != nil {
		return nil, err
	}

	x := &types.Extraction{
		Identifier: FirstOf(d,
			AttrOf("div.loadbeeTabContent[data-loadbee-gtin]", "data-loadbee-gtin"),
			JSONLDIdentifier,
			IdentifierFromURL,
		),
		Title: FirstOf(d,
			TextOf("h1.page-title span"),
			TextOf("h1.page-title"),
			JSONLDName,
		),
		Brand: FirstOf(d, ScriptField("brand"), JSONLDBrand),
		Price: FirstOf(d,
			Trimmed(TextOf(`span[data-price-type="finalPrice"] > span`), "RSD"),
			MetaContent("product:price:amount"),
			JSONLDPrice,
		),
		Category: FirstOf(d, JSONLDBreadcrumb, CategoryFromURL),
		Description: FirstOf(d,
			MetaContent("og:description"),
			MetaContent("description"),
		),
		Specs: ListSpecs(d, "#product-attribute-specs-table tbody tr td ul li"),
	}

	x.Images = CollectImages(d, ".fotorama__stage__frame[href]", "href")
	if len(x.Images) == 0 {
		x.Images = CollectImages(d, ".fotorama__stage__frame img, .gallery-placeholder img", "src", "data-src")
	}

	x.Datasheets = CollectDatasheets(d, tehnomanijaDatasheets)

	t.logger.Debugf("tehnomanija: %s -> id=%q title=%q specs=%d images=%d",
		pageURL, x.Identifier, x.Title, len(x.Specs), len(x.Images))
	return t.finish(d, x), nil
}
