// Package index keeps a persistent catalog of archive entries across the
// mounted containers. Collaborators resolve asset names and sizes from
// the index without re-reading container directories on every start.
package index

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"hexworld.dev/internal/assets/dat"
)

// ErrNotIndexed means the entry is in no indexed archive.
var ErrNotIndexed = errors.New("index: entry not indexed")

type DB struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS archives (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  path TEXT NOT NULL UNIQUE,
  version INTEGER NOT NULL,
  digest TEXT NOT NULL,
  entry_count INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS entries (
  archive_id INTEGER NOT NULL REFERENCES archives(id) ON DELETE CASCADE,
  name TEXT NOT NULL,
  size INTEGER NOT NULL,
  packed_size INTEGER NOT NULL,
  offset INTEGER NOT NULL,
  compressed INTEGER NOT NULL,
  PRIMARY KEY (archive_id, name)
);
CREATE INDEX IF NOT EXISTS entries_by_name ON entries(name);
`

// Open opens (creating if needed) an index database.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("index schema: %w", err)
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error { return d.db.Close() }

// archiveDigest hashes the directory metadata; a changed container gets
// a different digest and is re-indexed.
func archiveDigest(a *dat.Archive) string {
	h := sha256.New()
	for _, name := range a.List() {
		e, _ := a.Stat(name)
		fmt.Fprintf(h, "%s\x00%d\x00%d\x00%d\x00%t\n", e.Name, e.Size, e.PackedSize, e.Offset, e.Compressed)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// IndexArchive records an archive's directory, replacing any stale rows
// for the same path. Returns the number of entries written; an archive
// whose digest is unchanged is left alone and reports zero.
func (d *DB) IndexArchive(ctx context.Context, a *dat.Archive) (int, error) {
	digest := archiveDigest(a)

	var existing string
	err := d.db.QueryRowContext(ctx,
		`SELECT digest FROM archives WHERE path = ?`, a.Path()).Scan(&existing)
	switch {
	case err == nil && existing == digest:
		return 0, nil
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return 0, err
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM archives WHERE path = ?`, a.Path()); err != nil {
		return 0, err
	}
	names := a.List()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO archives (path, version, digest, entry_count) VALUES (?, ?, ?, ?)`,
		a.Path(), a.Version(), digest, len(names))
	if err != nil {
		return 0, err
	}
	archiveID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO entries (archive_id, name, size, packed_size, offset, compressed)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, name := range names {
		e, _ := a.Stat(name)
		if _, err := stmt.ExecContext(ctx,
			archiveID, e.Name, e.Size, e.PackedSize, e.Offset, boolInt(e.Compressed)); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(names), nil
}

// Row is one resolved entry.
type Row struct {
	ArchivePath string
	Entry       dat.Entry
}

// Lookup resolves an entry name. When several archives carry the name,
// the most recently indexed archive wins, matching mount layering.
func (d *DB) Lookup(ctx context.Context, name string) (Row, error) {
	name = dat.NormalizePath(name)
	var r Row
	var compressed int
	err := d.db.QueryRowContext(ctx, `
		SELECT a.path, e.name, e.size, e.packed_size, e.offset, e.compressed
		FROM entries e JOIN archives a ON a.id = e.archive_id
		WHERE e.name = ?
		ORDER BY a.id DESC
		LIMIT 1`, name).Scan(
		&r.ArchivePath, &r.Entry.Name, &r.Entry.Size, &r.Entry.PackedSize,
		&r.Entry.Offset, &compressed)
	if errors.Is(err, sql.ErrNoRows) {
		return Row{}, fmt.Errorf("%w: %s", ErrNotIndexed, name)
	}
	if err != nil {
		return Row{}, err
	}
	r.Entry.Compressed = compressed != 0
	return r, nil
}

// Glob returns indexed entry names matching a SQL LIKE pattern, sorted.
func (d *DB) Glob(ctx context.Context, pattern string) ([]string, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT DISTINCT name FROM entries WHERE name LIKE ? ORDER BY name`, pattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// Stats reports indexed archive and entry counts.
func (d *DB) Stats(ctx context.Context) (archives, entries int, err error) {
	if err = d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM archives`).Scan(&archives); err != nil {
		return 0, 0, err
	}
	if err = d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&entries); err != nil {
		return 0, 0, err
	}
	return archives, entries, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
