package dataset

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"retail-extractor/internal/types"
)

const (
	fieldDelimiter = ";"
	lineTerminator = "\r\n"
)

// writeRecord writes one row with every field quoted
func writeRecord(w io.Writer, rec []string) error {
	for i, field := range rec {
		if i > 0 {
			if _, err := io.WriteString(w, fieldDelimiter); err != nil {
				return err
			}
		}
		escaped := `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
		if _, err := io.WriteString(w, escaped); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, lineTerminator)
	return err
}

// WriteCSV writes t to path through a temp file in the same directory, so a
// reader never sees a partial table
func WriteCSV(path string, t *Table) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	w := bufio.NewWriter(tmp)
	if err = writeRecord(w, t.Header); err != nil {
		return err
	}
	for _, row := range t.Rows {
		if err = writeRecord(w, row); err != nil {
			return err
		}
	}
	if err = w.Flush(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Written describes one flushed table
type Written struct {
	Dataset string
	Path    string
	Rows    int
	Columns int
	Table   *Table // nil when the dataset was empty
}

// FileName returns the output file name for a dataset of a source
func FileName(source, dataset string) string {
	return fmt.Sprintf("%s_%s.csv", source, dataset)
}

// Flush shapes every dataset and writes the non-empty ones to dir. An empty
// dataset produces no file and removes any stale file from an earlier run.
func (c *Collector) Flush(dir, source string) ([]Written, error) {
	var written []Written
	var errs []error

	for _, ds := range c.Datasets() {
		path := filepath.Join(dir, FileName(source, ds.Name()))
		w := Written{Dataset: ds.Name(), Path: path}

		table, err := Shape(ds.Header(), ds.Rows())
		if errors.Is(err, ErrEmptyDataset) {
			if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
				errs = append(errs, types.NewOutputError(source, path, "failed to remove stale file", rmErr))
			}
			c.logger.Infof("No %s rows to write; %s not created", ds.Name(), path)
			written = append(written, w)
			continue
		}
		if err != nil {
			errs = append(errs, types.NewOutputError(source, path, "failed to shape table", err))
			continue
		}

		if err := WriteCSV(path, table); err != nil {
			errs = append(errs, types.NewOutputError(source, path, "failed to write table", err))
			continue
		}

		w.Rows = len(table.Rows)
		w.Columns = len(table.Header)
		w.Table = table
		written = append(written, w)
		c.logger.Infof("Wrote %d %s rows (%d columns) to %s", w.Rows, ds.Name(), w.Columns, path)
	}

	return written, errors.Join(errs...)
}
