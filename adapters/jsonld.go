package adapters

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"retail-extractor/internal/types"
)

// JSONLD returns every JSON-LD object on the page. Top-level arrays and
// @graph containers are flattened. Scripts that fail to decode are recorded
// as problems and skipped.
func (d *Document) JSONLD() []map[string]any {
	if d.ldParsed {
		return d.jsonLD
	}
	d.ldParsed = true

	d.Doc.Find(`script[type="application/ld+json"]`).Each(func(i int, s *goquery.Selection) {
		dec := json.NewDecoder(strings.NewReader(s.Text()))
		dec.UseNumber()
		for {
			var v any
			err := dec.Decode(&v)
			if err == io.EOF {
				return
			}
			if err != nil {
				d.problems = append(d.problems,
					types.NewParseError("", d.URL.String(), fmt.Sprintf("bad JSON-LD block %d", i), err))
				return
			}
			d.jsonLD = append(d.jsonLD, flattenLD(v)...)
		}
	})
	return d.jsonLD
}

func flattenLD(v any) []map[string]any {
	var out []map[string]any
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			out = append(out, flattenLD(item)...)
		}
	case map[string]any:
		out = append(out, t)
		if graph, ok := t["@graph"]; ok {
			out = append(out, flattenLD(graph)...)
		}
	}
	return out
}

// FindJSONLD returns the first object whose @type is (or includes) typ
func (d *Document) FindJSONLD(typ string) map[string]any {
	for _, obj := range d.JSONLD() {
		if hasType(obj, typ) {
			return obj
		}
	}
	return nil
}

func hasType(obj map[string]any, typ string) bool {
	switch t := obj["@type"].(type) {
	case string:
		return strings.EqualFold(t, typ)
	case []any:
		for _, v := range t {
			if s, ok := v.(string); ok && strings.EqualFold(s, typ) {
				return true
			}
		}
	}
	return false
}

// scalar renders strings and numbers; anything else is a miss
func scalar(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	case json.Number:
		return t.String(), true
	}
	return "", false
}

// named returns v itself when scalar, or v["name"] when v is an object
func named(v any) (string, bool) {
	if s, ok := scalar(v); ok {
		return s, true
	}
	if obj, ok := v.(map[string]any); ok {
		return scalar(obj["name"])
	}
	return "", false
}

func productField(keys ...string) Strategy {
	return func(d *Document) (string, bool) {
		obj := d.FindJSONLD("Product")
		if obj == nil {
			return "", false
		}
		for _, k := range keys {
			if v, ok := scalar(obj[k]); ok {
				return v, true
			}
		}
		return "", false
	}
}

// JSONLDIdentifier reads the product SKU or a GTIN from JSON-LD
var JSONLDIdentifier = productField("sku", "gtin13", "gtin", "gtin14", "gtin12", "gtin8", "productID")

// JSONLDName reads the product name from JSON-LD
var JSONLDName = productField("name")

// JSONLDBrand reads the product brand, which may be a string or an object
func JSONLDBrand(d *Document) (string, bool) {
	obj := d.FindJSONLD("Product")
	if obj == nil {
		return "", false
	}
	return named(obj["brand"])
}

// JSONLDPrice reads offers.price (or lowPrice) from a single offer, an offer
// list or an AggregateOffer
func JSONLDPrice(d *Document) (string, bool) {
	obj := d.FindJSONLD("Product")
	if obj == nil {
		return "", false
	}
	var offers []any
	switch t := obj["offers"].(type) {
	case map[string]any:
		offers = []any{t}
	case []any:
		offers = t
	}
	for _, o := range offers {
		offer, ok := o.(map[string]any)
		if !ok {
			continue
		}
		for _, k := range []string{"price", "lowPrice"} {
			if v, ok := scalar(offer[k]); ok {
				return v, true
			}
		}
	}
	return "", false
}

// listNames collects names from an itemListElement array, in order
func listNames(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var names []string
	for _, it := range items {
		entry, ok := it.(map[string]any)
		if !ok {
			continue
		}
		if name, ok := named(entry); ok {
			names = append(names, name)
			continue
		}
		if name, ok := named(entry["item"]); ok {
			names = append(names, name)
		}
	}
	return names
}

// JSONLDCategory reads Product.category, either a BreadcrumbList-like object
// or a delimited string
func JSONLDCategory(d *Document) (string, bool) {
	obj := d.FindJSONLD("Product")
	if obj == nil {
		return "", false
	}
	switch t := obj["category"].(type) {
	case map[string]any:
		if names := listNames(t["itemListElement"]); len(names) > 0 {
			v := CategoryPath(names)
			return v, v != ""
		}
	case string:
		sep := ">"
		if !strings.Contains(t, sep) {
			sep = "/"
		}
		v := CategoryPath(strings.Split(t, sep))
		return v, v != ""
	}
	return "", false
}

// JSONLDBreadcrumb builds a category from a BreadcrumbList, dropping the
// trailing entry when it repeats the product name
func JSONLDBreadcrumb(d *Document) (string, bool) {
	obj := d.FindJSONLD("BreadcrumbList")
	if obj == nil {
		return "", false
	}
	names := listNames(obj["itemListElement"])
	if title, ok := JSONLDName(d); ok && len(names) > 1 && names[len(names)-1] == title {
		names = names[:len(names)-1]
	}
	v := CategoryPath(names)
	return v, v != ""
}
