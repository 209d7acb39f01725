// Package store persists the track corpus, submissions, the corpus growth
// log and cached API payloads in SQLite.
package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/cesargomez89/mias/internal/storage"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("not found")

type DB struct {
	*sqlx.DB
}

// pragmas are set through the dsn so that every pooled connection gets
// them, not only the first one.
var pragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(30000)",
	"foreign_keys(1)",
}

func pragmaDSN(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	var b strings.Builder
	b.WriteString(dsn)
	for _, p := range pragmas {
		b.WriteString(sep)
		b.WriteString("_pragma=")
		b.WriteString(p)
		sep = "&"
	}
	return b.String()
}

func NewSQLiteDB(dsn string) (*DB, error) {
	if err := storage.EnsureParentDir(dsn); err != nil {
		return nil, fmt.Errorf("failed to create db dir: %w", err)
	}
	db, err := sqlx.Open("sqlite", pragmaDSN(dsn))
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	// Apply schema
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{db}, nil
}

func (db *DB) Close() error {
	return db.DB.Close()
}
