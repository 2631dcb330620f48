package adapters

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"retail-extractor/internal/types"
	"retail-extractor/utils"
)

const maxSitemapDepth = 3

type sitemapLoc struct {
	Loc string `xml:"loc"`
}

// sitemapDoc matches both <urlset> and <sitemapindex> documents
type sitemapDoc struct {
	XMLName  xml.Name
	URLs     []sitemapLoc `xml:"url"`
	Sitemaps []sitemapLoc `xml:"sitemap"`
}

var locPattern = regexp.MustCompile(`(?s)<loc>\s*(.*?)\s*</loc>`)

// ParseSitemap returns page URLs and child sitemap URLs from a sitemap or
// sitemap index. Documents that are not well-formed XML fall back to a
// <loc> scan.
func ParseSitemap(body []byte) (pages []string, children []string, err error) {
	var doc sitemapDoc
	xmlErr := xml.Unmarshal(body, &doc)
	if xmlErr == nil {
		for _, u := range doc.URLs {
			if loc := strings.TrimSpace(u.Loc); loc != "" {
				pages = append(pages, loc)
			}
		}
		for _, s := range doc.Sitemaps {
			if loc := strings.TrimSpace(s.Loc); loc != "" {
				children = append(children, loc)
			}
		}
		if len(pages) > 0 || len(children) > 0 {
			return pages, children, nil
		}
	}

	matches := locPattern.FindAllSubmatch(body, -1)
	if len(matches) == 0 {
		if xmlErr != nil {
			return nil, nil, types.NewParseError("", "", "sitemap is not valid XML", xmlErr)
		}
		return nil, nil, nil
	}

	isIndex := bytes.Contains(body, []byte("<sitemapindex"))
	for _, m := range matches {
		loc := html.UnescapeString(string(m[1]))
		if isIndex {
			children = append(children, loc)
		} else {
			pages = append(pages, loc)
		}
	}
	return pages, children, nil
}

// Discoverer walks a site's sitemaps and collects product URLs
type Discoverer struct {
	fetcher utils.Fetcher
	logger  types.Logger
}

// NewDiscoverer creates a discoverer that fetches sitemaps with fetcher
func NewDiscoverer(fetcher utils.Fetcher, logger types.Logger) *Discoverer {
	return &Discoverer{fetcher: fetcher, logger: logger}
}

// ProductURLs returns up to limit distinct product URLs (limit <= 0 means no
// limit). A sitemap that fails to load is logged and skipped.
func (d *Discoverer) ProductURLs(ctx context.Context, site types.SiteAdapter, limit int) ([]string, error) {
	startTime := time.Now()
	d.logger.Infof("Starting product discovery for %s", site.Name())

	seen := make(map[string]bool)
	visited := make(map[string]bool)
	var productURLs []string

	full := func() bool { return limit > 0 && len(productURLs) >= limit }

	var walk func(sitemapURL string, depth int) error
	walk = func(sitemapURL string, depth int) error {
		if full() || visited[sitemapURL] {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		visited[sitemapURL] = true

		page, err := d.fetcher.Fetch(ctx, sitemapURL)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			d.logger.Warnf("Failed to fetch sitemap %s: %v", sitemapURL, err)
			return nil
		}

		pages, children, err := ParseSitemap(page.Body)
		if err != nil {
			d.logger.Warnf("Failed to parse sitemap %s: %v", sitemapURL, err)
			return nil
		}

		added := 0
		for _, u := range pages {
			if full() {
				break
			}
			if seen[u] || !site.MatchProductURL(u) {
				continue
			}
			seen[u] = true
			productURLs = append(productURLs, u)
			added++
		}
		d.logger.Debugf("Sitemap %s: %d URLs, %d new products, %d child sitemaps", sitemapURL, len(pages), added, len(children))

		if depth >= maxSitemapDepth {
			return nil
		}
		for _, child := range children {
			if err := walk(child, depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	for _, root := range site.SitemapURLs() {
		if err := walk(root, 1); err != nil {
			return productURLs, fmt.Errorf("discovery interrupted: %w", err)
		}
	}

	d.logger.Infof("Product discovery completed in %v", time.Since(startTime))
	d.logger.Infof("Total unique products found: %d", len(productURLs))
	return productURLs, nil
}
