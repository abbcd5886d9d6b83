// Package db persists fall-detection runs and their smoothed samples in
// SQLite.
package db

import (
	"database/sql"
	"fmt"
	"log"
	"strings"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite handle.
type DB struct {
	*sql.DB
	path string
}

// connPragmas are applied by the driver to every pooled connection.
const connPragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

// Open opens (creating if needed) the database at path and applies all
// pending migrations. Use ":memory:" for a throwaway database.
func Open(path string) (*DB, error) {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	sqlDB, err := sql.Open("sqlite", path+sep+connPragmas)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	memory := path == ":memory:" || strings.Contains(path, "mode=memory")
	if memory {
		// Every pooled connection to :memory: would be a separate database.
		sqlDB.SetMaxOpenConns(1)
	} else if _, err := sqlDB.Exec("PRAGMA journal_mode = WAL"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	db := &DB{DB: sqlDB, path: path}
	if err := db.MigrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	log.Printf("[db] opened %s", path)
	return db, nil
}

// Path returns the path the database was opened with.
func (db *DB) Path() string { return db.path }
