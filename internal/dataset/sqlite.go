package dataset

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// RunInfo is the summary row stored for each run
type RunInfo struct {
	ID        string
	Source    string
	StartedAt time.Time
	EndedAt   time.Time
	Processed int
	Succeeded int
	Failed    int
	Rows      map[string]int
}

// SQLiteSink mirrors the shaped tables into a SQLite database
type SQLiteSink struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path
func OpenSQLite(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS "runs" (
		"id" TEXT PRIMARY KEY,
		"source" TEXT NOT NULL,
		"started_at" TEXT NOT NULL,
		"ended_at" TEXT NOT NULL,
		"processed" INTEGER NOT NULL,
		"succeeded" INTEGER NOT NULL,
		"failed" INTEGER NOT NULL,
		"master_rows" INTEGER NOT NULL,
		"spec_rows" INTEGER NOT NULL,
		"media_rows" INTEGER NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create runs table: %w", err)
	}
	return &SQLiteSink{db: db}, nil
}

// TableName returns the SQLite table used for a dataset of a source
func TableName(source, dataset string) string {
	return source + "_" + dataset
}

// WriteTable replaces table name with t. A nil t drops the table, matching an
// empty dataset producing no CSV file.
func (s *SQLiteSink) WriteTable(name string, t *Table) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(fmt.Sprintf(`DROP TABLE IF EXISTS %q`, name)); err != nil {
		return err
	}
	if t == nil {
		return tx.Commit()
	}

	var defs, cols []string
	for _, c := range t.Header {
		defs = append(defs, fmt.Sprintf("%q TEXT", c))
		cols = append(cols, fmt.Sprintf("%q", c))
	}
	if _, err := tx.Exec(fmt.Sprintf(`CREATE TABLE %q (%s)`, name, strings.Join(defs, ","))); err != nil {
		return err
	}

	ph := strings.TrimRight(strings.Repeat("?,", len(cols)), ",")
	stmt, err := tx.Prepare(fmt.Sprintf(`INSERT INTO %q (%s) VALUES (%s)`, name, strings.Join(cols, ","), ph))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range t.Rows {
		args := make([]any, len(row))
		for i, v := range row {
			args[i] = v
		}
		if _, err := stmt.Exec(args...); err != nil {
			return err
		}
	}

	if len(t.Header) > 0 {
		idx := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %q ON %q(%q)`, "idx_"+name+"_key", name, t.Header[0])
		if _, err := tx.Exec(idx); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// WriteAll mirrors flushed tables for source
func (s *SQLiteSink) WriteAll(source string, written []Written) error {
	for _, w := range written {
		if err := s.WriteTable(TableName(source, w.Dataset), w.Table); err != nil {
			return fmt.Errorf("failed to write %s table: %w", w.Dataset, err)
		}
	}
	return nil
}

// RecordRun stores the run summary
func (s *SQLiteSink) RecordRun(run RunInfo) error {
	_, err := s.db.Exec(`INSERT INTO "runs"
		("id","source","started_at","ended_at","processed","succeeded","failed","master_rows","spec_rows","media_rows")
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		run.ID, run.Source,
		run.StartedAt.UTC().Format(time.RFC3339), run.EndedAt.UTC().Format(time.RFC3339),
		run.Processed, run.Succeeded, run.Failed,
		run.Rows["master"], run.Rows["spec"], run.Rows["media"],
	)
	return err
}

// Close closes the database
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
