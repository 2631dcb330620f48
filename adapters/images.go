package adapters

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"retail-extractor/internal/types"
)

// DecodeImageProxy unwraps resizing-proxy URLs such as
// /_next/image?url=<escaped>&w=640. Other URLs are returned unchanged.
func DecodeImageProxy(src string) string {
	u, err := url.Parse(src)
	if err != nil {
		return src
	}
	if !strings.HasSuffix(u.Path, "_next/image") {
		return src
	}
	if inner := u.Query().Get("url"); inner != "" {
		return inner
	}
	return src
}

// LastSrcsetCandidate returns the URL of the last srcset entry, which is the
// widest one on the sites we read
func LastSrcsetCandidate(srcset string) string {
	candidates := strings.Split(srcset, ",")
	for i := len(candidates) - 1; i >= 0; i-- {
		if fields := strings.Fields(candidates[i]); len(fields) > 0 {
			return fields[0]
		}
	}
	return ""
}

// NormalizeImageURL decodes proxies, resolves relative URLs against base and
// rejects inline data and non-http schemes
func NormalizeImageURL(base *url.URL, raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(strings.ToLower(raw), "data:") {
		return "", false
	}
	raw = DecodeImageProxy(raw)
	if strings.HasPrefix(strings.ToLower(raw), "data:") {
		return "", false
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	return u.String(), true
}

// ImageSet keeps distinct image URLs in first-seen order up to a cap
type ImageSet struct {
	limit int
	seen  map[string]bool
	urls  []string
}

// NewImageSet creates a set holding at most limit URLs
func NewImageSet(limit int) *ImageSet {
	return &ImageSet{limit: limit, seen: make(map[string]bool)}
}

// Add appends u if it is new and there is room
func (s *ImageSet) Add(u string) bool {
	if s.Full() || u == "" || s.seen[u] {
		return false
	}
	s.seen[u] = true
	s.urls = append(s.urls, u)
	return true
}

// Full reports whether the cap has been reached
func (s *ImageSet) Full() bool {
	return len(s.urls) >= s.limit
}

// URLs returns the collected URLs
func (s *ImageSet) URLs() []string {
	return s.urls
}

// CollectImages reads image URLs from elements matching selector. The first
// attribute in attrs that yields a usable URL wins; when none does, the last
// srcset candidate is used.
func CollectImages(d *Document, selector string, attrs ...string) []string {
	if len(attrs) == 0 {
		attrs = []string{"src"}
	}
	set := NewImageSet(types.MaxImages)

	d.Doc.Find(selector).EachWithBreak(func(i int, s *goquery.Selection) bool {
		var found string
		for _, attr := range attrs {
			if v, ok := s.Attr(attr); ok {
				if u, ok := NormalizeImageURL(d.URL, v); ok {
					found = u
					break
				}
			}
		}
		if found == "" {
			if srcset, ok := s.Attr("srcset"); ok {
				found, _ = NormalizeImageURL(d.URL, LastSrcsetCandidate(srcset))
			}
		}
		set.Add(found)
		return !set.Full()
	})

	return set.URLs()
}

// CollectDatasheets reads document links (PDF manuals, declarations) from
// anchors matching selector
func CollectDatasheets(d *Document, selector string) []string {
	set := NewImageSet(types.MaxDatasheets)
	d.Doc.Find(selector).EachWithBreak(func(i int, s *goquery.Selection) bool {
		if href, ok := s.Attr("href"); ok {
			if u, ok := NormalizeImageURL(d.URL, href); ok {
				set.Add(u)
			}
		}
		return !set.Full()
	})
	return set.URLs()
}
