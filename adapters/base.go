package adapters

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"retail-extractor/internal/types"
)

// Document is a parsed product page shared by all field strategies
type Document struct {
	URL *url.URL
	Raw string
	Doc *goquery.Document

	jsonLD   []map[string]any
	ldParsed bool
	problems []error
}

// NewDocument parses a fetched page
func NewDocument(pageURL string, body []byte) (*Document, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, types.NewParseError("", pageURL, "invalid page URL", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, types.NewParseError("", pageURL, "failed to parse HTML", err)
	}
	return &Document{URL: u, Raw: string(body), Doc: doc}, nil
}

// Problems returns recoverable parse failures seen so far
func (d *Document) Problems() []error {
	return d.problems
}

// Strategy tries to read one field from a document. It reports false on a
// miss and never fails the document.
type Strategy func(d *Document) (string, bool)

// FirstOf returns the first non-empty value produced by strategies, in order
func FirstOf(d *Document, strategies ...Strategy) string {
	for _, s := range strategies {
		if v, ok := try(d, s); ok && v != "" {
			return v
		}
	}
	return ""
}

func try(d *Document, s Strategy) (v string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			d.problems = append(d.problems, fmt.Errorf("strategy panicked: %v", r))
			v, ok = "", false
		}
	}()
	v, ok = s(d)
	return CleanText(v), ok
}

var whitespace = regexp.MustCompile(`\s+`)

// CleanText collapses runs of whitespace and trims the result
func CleanText(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// FirstToken returns the first whitespace-separated token of s
func FirstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// TextOf reads the text of the first element matching selector
func TextOf(selector string) Strategy {
	return func(d *Document) (string, bool) {
		sel := d.Doc.Find(selector).First()
		if sel.Length() == 0 {
			return "", false
		}
		text := CleanText(sel.Text())
		return text, text != ""
	}
}

// AttrOf reads attr from the first element matching selector that has it
func AttrOf(selector, attr string) Strategy {
	return func(d *Document) (string, bool) {
		var value string
		d.Doc.Find(selector).EachWithBreak(func(i int, s *goquery.Selection) bool {
			if v, ok := s.Attr(attr); ok && strings.TrimSpace(v) != "" {
				value = strings.TrimSpace(v)
				return false
			}
			return true
		})
		return value, value != ""
	}
}

// MetaContent reads a <meta> tag by property or name
func MetaContent(key string) Strategy {
	return AttrOf(fmt.Sprintf(`meta[property=%q], meta[name=%q]`, key, key), "content")
}

// ScriptField finds "field":"value" inside inline scripts. When no script
// has it, the raw page text is scanned, which also covers JSON carried in
// data attributes.
func ScriptField(field string) Strategy {
	pattern := regexp.MustCompile(`"` + regexp.QuoteMeta(field) + `"\s*:\s*"([^"]+)"`)
	return func(d *Document) (string, bool) {
		var value string
		d.Doc.Find("script").EachWithBreak(func(i int, s *goquery.Selection) bool {
			if m := pattern.FindStringSubmatch(s.Text()); m != nil {
				value = m[1]
				return false
			}
			return true
		})
		if value == "" {
			if m := pattern.FindStringSubmatch(html.UnescapeString(d.Raw)); m != nil {
				value = m[1]
			}
		}
		return value, value != ""
	}
}

// Trimmed post-processes a strategy's value
func Trimmed(s Strategy, cut ...string) Strategy {
	return func(d *Document) (string, bool) {
		v, ok := s(d)
		if !ok {
			return "", false
		}
		for _, c := range cut {
			v = strings.ReplaceAll(v, c, "")
		}
		v = CleanText(v)
		return v, v != ""
	}
}

// IdentifierFromURL takes the text after the last '-' of the last path segment
func IdentifierFromURL(d *Document) (string, bool) {
	segments := pathSegments(d.URL)
	if len(segments) == 0 {
		return "", false
	}
	last := segments[len(segments)-1]
	if i := strings.LastIndex(last, "-"); i >= 0 {
		last = last[i+1:]
	}
	last = strings.TrimSuffix(last, ".html")
	return last, last != ""
}

func pathSegments(u *url.URL) []string {
	var segments []string
	for _, s := range strings.Split(u.Path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}

// CategoryPath drops the generic root when there is more than one segment and
// joins the last (up to) three with " > "
func CategoryPath(segments []string) string {
	var clean []string
	for _, s := range segments {
		if s = CleanText(s); s != "" {
			clean = append(clean, s)
		}
	}
	if len(clean) > 1 {
		clean = clean[1:]
	}
	if len(clean) > 3 {
		clean = clean[len(clean)-3:]
	}
	return strings.Join(clean, " > ")
}

// CategoryFromURL builds a category from the directory part of the page path
func CategoryFromURL(d *Document) (string, bool) {
	segments := pathSegments(d.URL)
	if len(segments) < 2 {
		return "", false
	}
	dirs := segments[:len(segments)-1]
	for i, s := range dirs {
		if decoded, err := url.PathUnescape(s); err == nil {
			s = decoded
		}
		dirs[i] = strings.ReplaceAll(s, "-", " ")
	}
	v := CategoryPath(dirs)
	return v, v != ""
}

// TableSpecs reads key/value rows from a specification table. Rows whose
// first cell spans columns are section headers and are skipped.
func TableSpecs(d *Document, rowSelector string) []types.SpecPair {
	var specs []types.SpecPair
	d.Doc.Find(rowSelector).Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		first := cells.Eq(0)
		if _, ok := first.Attr("colspan"); ok {
			return
		}
		key := CleanText(first.Text())
		valueCell := cells.Eq(1)
		value := CleanText(valueCell.Find("span").First().Text())
		if value == "" {
			value = CleanText(valueCell.Text())
		}
		if key != "" && value != "" {
			specs = append(specs, types.SpecPair{Key: strings.TrimSuffix(key, ":"), Value: value})
		}
	})
	return specs
}

// ListSpecs reads specs from list items holding a key span and a value span
func ListSpecs(d *Document, itemSelector string) []types.SpecPair {
	var specs []types.SpecPair
	d.Doc.Find(itemSelector).Each(func(i int, item *goquery.Selection) {
		spans := item.Find("span")
		if spans.Length() < 2 {
			return
		}
		key := CleanText(spans.First().Text())
		value := CleanText(spans.Last().Text())
		if key != "" && value != "" && key != value {
			specs = append(specs, types.SpecPair{Key: strings.TrimSuffix(key, ":"), Value: value})
		}
	})
	return specs
}

// RemoveDuplicateURLs removes duplicate URLs from the slice, keeping order
func RemoveDuplicateURLs(urls []string) []string {
	seen := make(map[string]bool)
	var uniqueURLs []string

	for _, u := range urls {
		if !seen[u] {
			seen[u] = true
			uniqueURLs = append(uniqueURLs, u)
		}
	}

	return uniqueURLs
}

// BaseAdapter provides the common pieces of a site adapter
type BaseAdapter struct {
	name   string
	logger types.Logger
}

// NewBaseAdapter creates a new base adapter
func NewBaseAdapter(name string, logger types.Logger) *BaseAdapter {
	return &BaseAdapter{name: name, logger: logger}
}

// Name returns the site name
func (b *BaseAdapter) Name() string {
	return b.name
}

// ParseDocument parses body and tags parse errors with the site name
func (b *BaseAdapter) ParseDocument(pageURL string, body []byte) (*Document, error) {
	d, err := NewDocument(pageURL, body)
	if err != nil {
		var e *types.ExtractError
		if errors.As(err, &e) {
			e.Site = b.name
		}
		return nil, err
	}
	return d, nil
}

// finish copies document-level problems onto the extraction
func (b *BaseAdapter) finish(d *Document, x *types.Extraction) *types.Extraction {
	x.Site = b.name
	x.URL = d.URL.String()
	for _, p := range d.Problems() {
		x.Problems = append(x.Problems, p)
		b.logger.Debugf("%s: recoverable problem on %s: %v", b.name, x.URL, p)
	}
	return x
}
