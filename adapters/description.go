package adapters

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const (
	selectedPanelSelector = `div[role="tabpanel"][data-headlessui-state="selected"]`
	anyPanelSelector      = `div[role="tabpanel"]`
)

// textFragments walks every text node under the selection and keeps the
// trimmed fragments longer than minLen runes
func textFragments(sel *goquery.Selection, minLen int) []string {
	var out []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if t := CleanText(n.Data); utf8.RuneCountInString(t) > minLen {
				out = append(out, t)
			}
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return out
}

// ownText returns only the direct text children of each node
func ownText(sel *goquery.Selection, minLen int) []string {
	var out []string
	sel.Each(func(i int, s *goquery.Selection) {
		for _, n := range s.Nodes {
			var b strings.Builder
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					b.WriteString(c.Data)
				}
			}
			if t := CleanText(b.String()); utf8.RuneCountInString(t) > minLen {
				out = append(out, t)
			}
		}
	})
	return out
}

// SelectedTabText joins text fragments from the currently selected tab panel
func SelectedTabText(d *Document) (string, bool) {
	parts := textFragments(d.Doc.Find(selectedPanelSelector), 3)
	v := CleanText(strings.Join(parts, " "))
	return v, v != ""
}

// TabListItems joins the direct text of list items in any tab panel
func TabListItems(d *Document) (string, bool) {
	parts := ownText(d.Doc.Find(anyPanelSelector+" li"), 10)
	v := CleanText(strings.Join(parts, " "))
	return v, v != ""
}

// Description applies the tab-panel strategies, then page summary metadata
func Description(d *Document) string {
	return FirstOf(d,
		SelectedTabText,
		TabListItems,
		MetaContent("og:description"),
		MetaContent("description"),
	)
}
