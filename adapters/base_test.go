package adapters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-extractor/internal/types"
)

func mustDoc(t *testing.T, pageURL, body string) *Document {
	t.Helper()
	d, err := NewDocument(pageURL, []byte(body))
	require.NoError(t, err)
	return d
}

func TestFirstOf_OrderAndFallback(t *testing.T) {
	d := mustDoc(t, "https://shop.example/p/1", `<html><head>
		<meta property="og:title" content="From meta">
	</head><body><h2>  </h2></body></html>`)

	got := FirstOf(d, TextOf("h1"), TextOf("h2"), MetaContent("og:title"))
	assert.Equal(t, "From meta", got)

	assert.Equal(t, "", FirstOf(d, TextOf("h1")))
}

func TestFirstOf_RecoversFromPanickingStrategy(t *testing.T) {
	d := mustDoc(t, "https://shop.example/p/1", `<h1>Title</h1>`)
	boom := func(*Document) (string, bool) { panic("bad selector state") }

	got := FirstOf(d, boom, TextOf("h1"))

	assert.Equal(t, "Title", got)
	assert.Len(t, d.Problems(), 1)
}

func TestCleanTextAndFirstToken(t *testing.T) {
	assert.Equal(t, "a b c", CleanText("  a \n\t b   c "))
	assert.Equal(t, "Acme", FirstToken("  Acme Widget X1"))
	assert.Equal(t, "", FirstToken("   "))
}

func TestIdentifierFromURL(t *testing.T) {
	cases := map[string]string{
		"https://www.tehnomanija.rs/tv/televizori/samsung-qe55-8806095462": "8806095462",
		"https://gigatron.rs/proizvod/frizider-123456/":                    "123456",
		"https://shop.example/item/ABC123":                                 "ABC123",
		"https://shop.example/item/phone-x1.html?ref=home":                 "x1",
	}
	for raw, want := range cases {
		got, ok := IdentifierFromURL(mustDoc(t, raw, "<html></html>"))
		assert.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}

	_, ok := IdentifierFromURL(mustDoc(t, "https://shop.example/", "<html></html>"))
	assert.False(t, ok)
}

func TestCategoryPath(t *testing.T) {
	assert.Equal(t, "TV > Televizori > OLED",
		CategoryPath([]string{"Početna", "TV", "Televizori", "OLED"}))
	assert.Equal(t, "B > C > D",
		CategoryPath([]string{"Root", "A", "B", "C", "D"}))
	assert.Equal(t, "Single", CategoryPath([]string{"Single"}))
	assert.Equal(t, "Laptopovi", CategoryPath([]string{"Home", " ", "Laptopovi"}))
	assert.Equal(t, "", CategoryPath(nil))
}

func TestCategoryFromURL(t *testing.T) {
	d := mustDoc(t, "https://www.tehnomanija.rs/tv-audio-video/televizori/samsung-123", "<html></html>")
	got, ok := CategoryFromURL(d)
	assert.True(t, ok)
	assert.Equal(t, "televizori", got)
}

func TestTableSpecs_SkipsSectionHeaders(t *testing.T) {
	d := mustDoc(t, "https://gigatron.rs/proizvod/x-1", `<table><tbody>
		<tr><td colspan="2">Osnovne karakteristike</td></tr>
		<tr><td>Brend</td><td><span>Samsung</span><span>extra</span></td></tr>
		<tr><td>Model:</td><td>QE55</td></tr>
		<tr><td>Prazno</td><td></td></tr>
	</tbody></table>`)

	specs := TableSpecs(d, "table tbody tr")

	assert.Equal(t, []types.SpecPair{
		{Key: "Brend", Value: "Samsung"},
		{Key: "Model", Value: "QE55"},
	}, specs)
}

func TestListSpecs(t *testing.T) {
	d := mustDoc(t, "https://www.tehnomanija.rs/a/b-1", `<table id="product-attribute-specs-table"><tbody><tr><td><ul>
		<li><span>Dijagonala</span><span>55"</span></li>
		<li><span>Same</span><span>Same</span></li>
		<li><span>Only one</span></li>
	</ul></td></tr></tbody></table>`)

	specs := ListSpecs(d, "#product-attribute-specs-table tbody tr td ul li")

	assert.Equal(t, []types.SpecPair{{Key: "Dijagonala", Value: `55"`}}, specs)
}

func TestScriptFieldAndTrimmed(t *testing.T) {
	d := mustDoc(t, "https://www.tehnomanija.rs/a/b-1", `<html><body>
		<script>var dl = {"ecommerce":{"brand":"LG","id":"9"}};</script>
		<span data-price-type="finalPrice"><span>49.999 RSD</span></span>
	</body></html>`)

	assert.Equal(t, "LG", FirstOf(d, ScriptField("brand")))
	assert.Equal(t, "49.999", FirstOf(d, Trimmed(TextOf(`span[data-price-type="finalPrice"] > span`), "RSD")))
}

func TestScriptField_RawTextFallback(t *testing.T) {
	d := mustDoc(t, "https://www.tehnomanija.rs/a/b-1", `<html><body>
		<div data-gtm="{&quot;brand&quot;:&quot;Gorenje&quot;,&quot;id&quot;:&quot;7&quot;}"></div>
		<script>var other = {"category":"frizideri"};</script>
	</body></html>`)

	assert.Equal(t, "Gorenje", FirstOf(d, ScriptField("brand")))
	assert.Equal(t, "", FirstOf(d, ScriptField("ean")))
}

func TestRemoveDuplicateURLs(t *testing.T) {
	got := RemoveDuplicateURLs([]string{"a", "b", "a", "c", "b"})
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestDescription(t *testing.T) {
	selected := mustDoc(t, "https://gigatron.rs/proizvod/x-1", `<div role="tabpanel" data-headlessui-state="selected">
		<p>Opis</p><p>ab</p><ul><li>Veliki   ekran</li></ul><script>ignored()</script>
	</div>`)
	assert.Equal(t, "Opis Veliki ekran", Description(selected))

	listOnly := mustDoc(t, "https://gigatron.rs/proizvod/x-1", `<div role="tabpanel">
		<ul><li>kratko</li><li>Energetska klasa A++</li></ul>
	</div>`)
	assert.Equal(t, "Energetska klasa A++", Description(listOnly))

	metaOnly := mustDoc(t, "https://gigatron.rs/proizvod/x-1",
		`<head><meta property="og:description" content="Summary   text"></head>`)
	assert.Equal(t, "Summary text", Description(metaOnly))
}
