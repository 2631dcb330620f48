// Package dataset collects extracted records per output table, removes
// duplicates and writes the shaped tables.
package dataset

import (
	"slices"
	"strings"

	"retail-extractor/internal/types"
)

// Outcome is what happened to a record offered to a Dataset
type Outcome int

const (
	Accepted Outcome = iota
	Duplicate
	Empty
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case Duplicate:
		return "duplicate"
	case Empty:
		return "empty"
	}
	return "unknown"
}

// Dataset is an ordered, de-duplicated set of rows for one table. The first
// row seen for a key wins.
type Dataset struct {
	name    string
	header  []string
	seen    map[string]bool
	rowSeen map[string]bool
	rows    [][]types.Opt
}

// NewDataset creates an empty dataset with a fixed header
func NewDataset(name string, header []string) *Dataset {
	return &Dataset{
		name:    name,
		header:  header,
		seen:    make(map[string]bool),
		rowSeen: make(map[string]bool),
	}
}

// Add appends cells unless the key or the exact row has been seen before.
// Rows with an empty key are kept for the shaper to drop and never mark a
// key as seen.
func (d *Dataset) Add(key string, cells []types.Opt) Outcome {
	sig := signature(cells)
	if d.rowSeen[sig] {
		return Duplicate
	}
	if key != "" {
		if d.seen[key] {
			return Duplicate
		}
		d.seen[key] = true
	}
	d.rowSeen[sig] = true
	d.rows = append(d.rows, cells)
	return Accepted
}

// Offer adds a record under key. A record whose header is not the
// dataset's header belongs elsewhere and is reported Empty.
func (d *Dataset) Offer(key string, r types.Record) Outcome {
	if !slices.Equal(r.Header(), d.header) {
		return Empty
	}
	return d.Add(key, r.Cells())
}

func signature(cells []types.Opt) string {
	var b strings.Builder
	for _, c := range cells {
		if v, ok := c.Get(); ok {
			b.WriteByte('+')
			b.WriteString(v)
		} else {
			b.WriteByte('-')
		}
		b.WriteByte(0x1f)
	}
	return b.String()
}

// Name returns the dataset name
func (d *Dataset) Name() string { return d.name }

// Header returns the fixed column order
func (d *Dataset) Header() []string { return d.header }

// Rows returns the accepted rows in arrival order
func (d *Dataset) Rows() [][]types.Opt { return d.rows }

// Len returns the number of accepted rows
func (d *Dataset) Len() int { return len(d.rows) }

// Result reports the outcome for each record kind of one page
type Result struct {
	Product Outcome
	Specs   map[Outcome]int
	Media   Outcome
}

// Collector owns the three datasets of a run. It is not safe for concurrent
// use.
type Collector struct {
	Products *Dataset
	Specs    *Dataset
	Media    *Dataset

	logger types.Logger
}

// NewCollector creates an empty collector
func NewCollector(logger types.Logger) *Collector {
	return &Collector{
		Products: NewDataset("master", types.ProductHeader),
		Specs:    NewDataset("spec", types.SpecHeader),
		Media:    NewDataset("media", types.MediaHeader),
		logger:   logger,
	}
}

// Collect offers the records assembled from one page to their datasets
func (c *Collector) Collect(r *types.Records) Result {
	res := Result{Product: Empty, Specs: make(map[Outcome]int), Media: Empty}

	if r.Product != nil {
		key := r.Product.ProviderKey.String()
		res.Product = c.Products.Offer(key, r.Product)
		if res.Product == Duplicate {
			c.logger.Infof("Skipping duplicate providerkey: %s", key)
		}
	}

	for _, s := range r.Specs {
		key := s.ProviderKey.String() + "\x00" + s.Key.String()
		if s.ProviderKey.String() == "" {
			key = ""
		}
		outcome := c.Specs.Offer(key, s)
		if outcome == Duplicate {
			c.logger.Infof("Skipping duplicate specification %q for %s", s.Key.String(), s.ProviderKey.String())
		}
		res.Specs[outcome]++
	}

	if r.Media != nil {
		key := r.Media.ProviderKey.String()
		if !r.Media.HasContent() {
			c.logger.Infof("Dropping media row with only providerKey: %s", key)
		} else {
			res.Media = c.Media.Offer(key, r.Media)
			if res.Media == Duplicate {
				c.logger.Infof("Skipping duplicate media providerKey: %s", key)
			}
		}
	}

	return res
}

// Datasets returns the datasets in output order
func (c *Collector) Datasets() []*Dataset {
	return []*Dataset{c.Products, c.Specs, c.Media}
}
