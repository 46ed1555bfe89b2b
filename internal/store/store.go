// Package store is the L0 cache store: schema ownership, transaction
// scope, and prepared-statement reuse over a single embedded SQLite
// database (spec §3, §4.1). Each sub-store (MessageStore, UserStore,
// ChatStore, JobStore, SyncStateStore, RateLimitStore, StatusStore)
// shares the one *sql.DB handle and prepares its own statements once
// at construction, the way the teacher's repositories do.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// Store owns the single embedded database connection (cache.db).
type Store struct {
	db *sql.DB
}

// Open opens (and creates if absent) the WAL-mode SQLite database at
// path, applying the schema, mirroring the teacher's
// "file:%s?_journal_mode=WAL&_foreign_keys=on" DSN and single-writer
// connection-pool sizing for SQLite.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening cache store: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	logrus.Infof("[STORE] cache store opened at %s", path)
	return &Store{db: db}, nil
}

// DB exposes the shared handle to sub-stores in this package.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error {
	return s.db.Close()
}

func nowUnix() int64 { return time.Now().Unix() }
