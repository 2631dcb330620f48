package dataset

import (
	"errors"
	"sort"

	"retail-extractor/internal/types"
)

// ErrEmptyDataset is returned when no row survives the key filter
var ErrEmptyDataset = errors.New("dataset has no rows with a primary key")

// Table is a shaped, string-valued table ready to write
type Table struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// Shape renders rows to strings and applies ShapeTable
func Shape(header []string, rows [][]types.Opt) (*Table, error) {
	t := &Table{Header: header, Rows: make([][]string, 0, len(rows))}
	for _, row := range rows {
		cells := make([]string, len(header))
		for i := range header {
			if i < len(row) {
				cells[i] = row[i].String()
			}
		}
		t.Rows = append(t.Rows, cells)
	}
	return ShapeTable(t)
}

// ShapeTable drops rows with an empty key (column 0), drops columns with no
// data (column 0 is always kept) and sorts rows by key. Applying it to its
// own output returns an equal table.
func ShapeTable(in *Table) (*Table, error) {
	var rows [][]string
	for _, r := range in.Rows {
		if len(r) > 0 && r[0] != "" {
			rows = append(rows, r)
		}
	}
	if len(rows) == 0 {
		return nil, ErrEmptyDataset
	}

	keep := []int{0}
	for col := 1; col < len(in.Header); col++ {
		for _, r := range rows {
			if col < len(r) && r[col] != "" {
				keep = append(keep, col)
				break
			}
		}
	}

	out := &Table{Header: make([]string, len(keep)), Rows: make([][]string, len(rows))}
	for i, col := range keep {
		out.Header[i] = in.Header[col]
	}
	for i, r := range rows {
		cells := make([]string, len(keep))
		for j, col := range keep {
			if col < len(r) {
				cells[j] = r[col]
			}
		}
		out.Rows[i] = cells
	}

	sort.SliceStable(out.Rows, func(i, j int) bool {
		return out.Rows[i][0] < out.Rows[j][0]
	})
	return out, nil
}

// Tables shapes every non-empty dataset without writing it
func (c *Collector) Tables() map[string]*Table {
	tables := make(map[string]*Table)
	for _, ds := range c.Datasets() {
		if t, err := Shape(ds.Header(), ds.Rows()); err == nil {
			tables[ds.Name()] = t
		}
	}
	return tables
}
