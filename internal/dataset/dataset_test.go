package dataset

import (
	"bytes"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-extractor/internal/types"
)

func product(key, title, brand string) *types.Product {
	return &types.Product{
		ProviderKey: types.OptOf(key),
		GTIN:        types.OptOf(key),
		Title:       types.OptOf(title),
		Brand:       types.OptOf(brand),
	}
}

func spec(key, name, value string) *types.Spec {
	return &types.Spec{ProviderKey: types.Some(key), Key: types.Some(name), Value: types.Some(value)}
}

func TestCollector_FirstProductWins(t *testing.T) {
	logger, hook := test.NewNullLogger()
	c := NewCollector(logger)

	first := c.Collect(&types.Records{Product: product("XYZ", "First", "A")})
	second := c.Collect(&types.Records{Product: product("XYZ", "Second", "B")})

	assert.Equal(t, Accepted, first.Product)
	assert.Equal(t, Duplicate, second.Product)
	require.Equal(t, 1, c.Products.Len())
	assert.Equal(t, "First", c.Products.Rows()[0][6].String())

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
	assert.Contains(t, hook.LastEntry().Message, "Skipping duplicate providerkey: XYZ")
}

func TestCollector_SpecKeyIsProviderAndName(t *testing.T) {
	c := NewCollector(logrus.New())

	res := c.Collect(&types.Records{Specs: []*types.Spec{
		spec("A", "Boja", "Crna"),
		spec("A", "Težina", "2 kg"),
		spec("B", "Boja", "Bela"),
	}})
	again := c.Collect(&types.Records{Specs: []*types.Spec{spec("A", "Boja", "Plava")}})

	assert.Equal(t, 3, res.Specs[Accepted])
	assert.Equal(t, 1, again.Specs[Duplicate])
	assert.Equal(t, 3, c.Specs.Len())
}

func TestCollector_MediaWithoutURLsIsDropped(t *testing.T) {
	logger, hook := test.NewNullLogger()
	c := NewCollector(logger)

	res := c.Collect(&types.Records{Media: &types.Media{ProviderKey: types.Some("M1"), GTIN: types.Some("M1")}})
	assert.Equal(t, Empty, res.Media)
	assert.Equal(t, 0, c.Media.Len())
	assert.Contains(t, hook.LastEntry().Message, "only providerKey")

	m := &types.Media{ProviderKey: types.Some("M1")}
	m.Images[0] = types.Some("https://cdn.example.com/1.jpg")
	res = c.Collect(&types.Records{Media: m})
	assert.Equal(t, Accepted, res.Media, "an empty media row does not claim the key")
}

func media(key string, images ...string) *types.Media {
	m := &types.Media{ProviderKey: types.Some(key), GTIN: types.Some(key)}
	for i, u := range images {
		m.Images[i] = types.Some(u)
	}
	return m
}

func TestCollector_FirstMediaWins(t *testing.T) {
	logger, hook := test.NewNullLogger()
	c := NewCollector(logger)

	first := c.Collect(&types.Records{Media: media("XYZ", "https://cdn.example.com/first.jpg")})
	second := c.Collect(&types.Records{Media: media("XYZ", "https://cdn.example.com/second.jpg", "https://cdn.example.com/third.jpg")})

	assert.Equal(t, Accepted, first.Media)
	assert.Equal(t, Duplicate, second.Media)
	require.Equal(t, 1, c.Media.Len())
	assert.Equal(t, "https://cdn.example.com/first.jpg", c.Media.Rows()[0][7].String())

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
	assert.Contains(t, hook.LastEntry().Message, "Skipping duplicate media providerKey: XYZ")
}

func TestCollector_DuplicateDocument(t *testing.T) {
	c := NewCollector(logrus.New())

	first := c.Collect(&types.Records{
		Product: product("XYZ", "First", "A"),
		Specs:   []*types.Spec{spec("XYZ", "Boja", "Crna")},
		Media:   media("XYZ", "https://cdn.example.com/first.jpg"),
	})
	second := c.Collect(&types.Records{
		Product: product("XYZ", "Second", "B"),
		Specs:   []*types.Spec{spec("XYZ", "Boja", "Bela")},
		Media:   media("XYZ", "https://cdn.example.com/second.jpg"),
	})

	assert.Equal(t, Accepted, first.Product)
	assert.Equal(t, Duplicate, second.Product)
	assert.Equal(t, 1, second.Specs[Duplicate])
	assert.Equal(t, Duplicate, second.Media)

	assert.Equal(t, 1, c.Products.Len())
	assert.Equal(t, 1, c.Specs.Len())
	assert.Equal(t, "Crna", c.Specs.Rows()[0][2].String())
	assert.Equal(t, 1, c.Media.Len())
}

func TestDataset_OfferChecksHeader(t *testing.T) {
	d := NewDataset("spec", types.SpecHeader)

	assert.Equal(t, Accepted, d.Offer("A\x00Boja", spec("A", "Boja", "Crna")))
	assert.Equal(t, Empty, d.Offer("A", product("A", "Title", "")))
	assert.Equal(t, 1, d.Len())
}

func TestDataset_EmptyKeysAndExactDuplicates(t *testing.T) {
	d := NewDataset("master", []string{"k", "v"})

	assert.Equal(t, Accepted, d.Add("", []types.Opt{types.None(), types.Some("x")}))
	assert.Equal(t, Accepted, d.Add("", []types.Opt{types.None(), types.Some("y")}))
	assert.Equal(t, Duplicate, d.Add("", []types.Opt{types.None(), types.Some("y")}))
	assert.Equal(t, 2, d.Len())
}

func TestShapeTable(t *testing.T) {
	in := &Table{
		Header: []string{"providerkey", "gtin", "brand", "weight", "title"},
		Rows: [][]string{
			{"b", "b", "", "", "Beta"},
			{"", "", "Ghost", "", "No key"},
			{"a", "a", "Acme", "", "Alpha"},
			{"b", "b2", "", "", "Beta again"},
		},
	}

	out, err := ShapeTable(in)
	require.NoError(t, err)

	assert.Equal(t, []string{"providerkey", "gtin", "brand", "title"}, out.Header)
	assert.Equal(t, [][]string{
		{"a", "a", "Acme", "Alpha"},
		{"b", "b", "", "Beta"},
		{"b", "b2", "", "Beta again"},
	}, out.Rows, "sorted by key, stable for equal keys")

	again, err := ShapeTable(out)
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestShapeTable_KeepsKeyColumnWhenOnlyColumn(t *testing.T) {
	out, err := ShapeTable(&Table{
		Header: []string{"providerKey", "imageurl_1"},
		Rows:   [][]string{{"k", ""}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"providerKey"}, out.Header)
}

func TestShape_OnlyEmptyKeys(t *testing.T) {
	_, err := Shape(types.ProductHeader, [][]types.Opt{
		(&types.Product{Title: types.Some("orphan")}).Cells(),
	})
	assert.ErrorIs(t, err, ErrEmptyDataset)
}

func TestWriteCSV_QuotesEverything(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "x_master.csv")
	err := WriteCSV(path, &Table{
		Header: []string{"providerkey", "title"},
		Rows:   [][]string{{"1", `TV 55" ; OLED`}, {"2", ""}},
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "\"providerkey\";\"title\"\r\n\"1\";\"TV 55\"\" ; OLED\"\r\n\"2\";\"\"\r\n", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestCollector_Flush(t *testing.T) {
	dir := t.TempDir()
	c := NewCollector(logrus.New())

	p := product("ABC123", "Acme Widget X1", "Acme")
	p.Price = types.Some("19.99")
	c.Collect(&types.Records{Product: p})

	// Stale media file from an earlier run must disappear
	stale := filepath.Join(dir, "shop_media.csv")
	require.NoError(t, os.WriteFile(stale, nil, 0o644))

	written, err := c.Flush(dir, "shop")
	require.NoError(t, err)
	require.Len(t, written, 3)

	master, err := os.ReadFile(filepath.Join(dir, "shop_master.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(master), "\r\n"), "\r\n")
	assert.Equal(t, []string{
		`"providerkey";"gtin";"brand";"title";"price"`,
		`"ABC123";"ABC123";"Acme";"Acme Widget X1";"19.99"`,
	}, lines)

	assert.NoFileExists(t, filepath.Join(dir, "shop_spec.csv"))
	assert.NoFileExists(t, stale)
	assert.Nil(t, written[1].Table)
	assert.Nil(t, written[2].Table)
}

func TestCollector_FlushOnlyEmptyKeys(t *testing.T) {
	dir := t.TempDir()
	c := NewCollector(logrus.New())
	c.Collect(&types.Records{Product: product("", "No key", "")})

	_, err := c.Flush(dir, "shop")
	require.NoError(t, err)

	assert.NoFileExists(t, filepath.Join(dir, "shop_master.csv"))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCollector_Tables(t *testing.T) {
	c := NewCollector(logrus.New())
	c.Collect(&types.Records{
		Product: product("K1", "T", ""),
		Specs:   []*types.Spec{spec("K1", "Boja", "Crna")},
	})

	tables := c.Tables()
	assert.Contains(t, tables, "master")
	assert.Contains(t, tables, "spec")
	assert.NotContains(t, tables, "media")
}

func TestSQLiteSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.db")
	sink, err := OpenSQLite(path)
	require.NoError(t, err)
	defer sink.Close()

	table := &Table{Header: []string{"providerkey", "title"}, Rows: [][]string{{"A", "Alpha"}, {"B", "Beta"}}}
	require.NoError(t, sink.WriteAll("shop", []Written{
		{Dataset: "master", Table: table},
		{Dataset: "media"},
	}))
	// Rewriting replaces the table instead of appending
	require.NoError(t, sink.WriteTable(TableName("shop", "master"), table))

	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, sink.RecordRun(RunInfo{
		ID: "run-1", Source: "shop", StartedAt: start, EndedAt: start.Add(time.Minute),
		Processed: 2, Succeeded: 2, Rows: map[string]int{"master": 2},
	}))

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM "shop_master"`).Scan(&count))
	assert.Equal(t, 2, count)

	var title string
	require.NoError(t, db.QueryRow(`SELECT "title" FROM "shop_master" WHERE "providerkey" = ?`, "B").Scan(&title))
	assert.Equal(t, "Beta", title)

	var masterRows int
	require.NoError(t, db.QueryRow(`SELECT "master_rows" FROM "runs" WHERE "id" = ?`, "run-1").Scan(&masterRows))
	assert.Equal(t, 2, masterRows)

	err = db.QueryRow(`SELECT COUNT(*) FROM "shop_media"`).Scan(&count)
	assert.Error(t, err, "empty dataset leaves no table")
}

func TestWriteRecord(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeRecord(&buf, []string{"a", "", `q"q`}))
	assert.Equal(t, "\"a\";\"\";\"q\"\"q\"\r\n", buf.String())
}
