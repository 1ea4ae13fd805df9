// Package index persists flat scan records in SQLite and answers the
// content-digest queries built on them, such as duplicate detection.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Record is one scanned path as persisted in the index.
type Record struct {
	ID         int64
	Path       string
	Name       string
	Type       string
	Size       int64
	SHA1       string
	MD5        string
	MimeType   string
	Language   string
	ScanErrors string
}

// Duplicate is a group of file paths sharing one SHA1 digest.
type Duplicate struct {
	SHA1  string
	Count int
	Paths []string
}

// Index is the SQLite data access layer for scan records.
type Index struct {
	db *sql.DB
}

// Open opens a SQLite database at dbPath with WAL mode enabled.
func Open(dbPath string) (*Index, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping index: %w", err)
	}
	return &Index{db: db}, nil
}

// Close closes the underlying database connection.
func (ix *Index) Close() error {
	return ix.db.Close()
}

// Migrate creates the records table and its indexes. Idempotent.
func (ix *Index) Migrate() error {
	if _, err := ix.db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("migrate index: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS records (
  id           INTEGER PRIMARY KEY,
  path         TEXT NOT NULL UNIQUE,
  name         TEXT NOT NULL,
  type         TEXT NOT NULL,
  size         INTEGER NOT NULL DEFAULT 0,
  sha1         TEXT NOT NULL DEFAULT '',
  md5          TEXT NOT NULL DEFAULT '',
  mime_type    TEXT NOT NULL DEFAULT '',
  language     TEXT NOT NULL DEFAULT '',
  scan_errors  TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_records_sha1 ON records(sha1);
CREATE INDEX IF NOT EXISTS idx_records_type ON records(type);
`

// InsertRecords upserts records in a single transaction, keyed by path,
// so re-scanning a tree refreshes its rows in place.
func (ix *Index) InsertRecords(recs []Record) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := ix.db.Begin()
	if err != nil {
		return fmt.Errorf("insert records: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO records (path, name, type, size, sha1, md5, mime_type, language, scan_errors)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
		   name = excluded.name,
		   type = excluded.type,
		   size = excluded.size,
		   sha1 = excluded.sha1,
		   md5 = excluded.md5,
		   mime_type = excluded.mime_type,
		   language = excluded.language,
		   scan_errors = excluded.scan_errors`)
	if err != nil {
		return fmt.Errorf("insert records: prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range recs {
		if _, err := stmt.Exec(r.Path, r.Name, r.Type, r.Size, r.SHA1, r.MD5,
			r.MimeType, r.Language, r.ScanErrors); err != nil {
			return fmt.Errorf("insert records: %q: %w", r.Path, err)
		}
	}
	return tx.Commit()
}

// RecordByPath returns the record for a path, or (nil, nil) when the path
// is not indexed.
func (ix *Index) RecordByPath(path string) (*Record, error) {
	row := ix.db.QueryRow(
		`SELECT id, path, name, type, size, sha1, md5, mime_type, language, scan_errors
		 FROM records WHERE path = ?`, path)
	var r Record
	err := row.Scan(&r.ID, &r.Path, &r.Name, &r.Type, &r.Size, &r.SHA1, &r.MD5,
		&r.MimeType, &r.Language, &r.ScanErrors)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("record by path %q: %w", path, err)
	}
	return &r, nil
}

// DuplicateDigests returns the groups of file paths sharing one content
// digest, largest group first. Directories and files with no digest are
// excluded.
func (ix *Index) DuplicateDigests() ([]Duplicate, error) {
	rows, err := ix.db.Query(
		`SELECT sha1, COUNT(*) AS n FROM records
		 WHERE type = 'file' AND sha1 <> ''
		 GROUP BY sha1 HAVING COUNT(*) > 1
		 ORDER BY n DESC, sha1`)
	if err != nil {
		return nil, fmt.Errorf("duplicate digests: %w", err)
	}
	defer rows.Close()

	var dups []Duplicate
	for rows.Next() {
		var d Duplicate
		if err := rows.Scan(&d.SHA1, &d.Count); err != nil {
			return nil, fmt.Errorf("duplicate digests: %w", err)
		}
		dups = append(dups, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("duplicate digests: %w", err)
	}

	for i := range dups {
		paths, err := ix.PathsBySHA1(dups[i].SHA1)
		if err != nil {
			return nil, err
		}
		dups[i].Paths = paths
	}
	return dups, nil
}

// PathsBySHA1 returns the indexed file paths with the given digest, in
// path order.
func (ix *Index) PathsBySHA1(sha1 string) ([]string, error) {
	rows, err := ix.db.Query(
		`SELECT path FROM records WHERE type = 'file' AND sha1 = ? ORDER BY path`, sha1)
	if err != nil {
		return nil, fmt.Errorf("paths by sha1 %q: %w", sha1, err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("paths by sha1 %q: %w", sha1, err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// Count returns the number of indexed records.
func (ix *Index) Count() (int64, error) {
	var n int64
	if err := ix.db.QueryRow(`SELECT COUNT(*) FROM records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}
