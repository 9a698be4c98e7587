package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/neo/personasim/internal/logging"
)

// DefaultPath is where the local datastore lives unless configured otherwise.
const DefaultPath = "data/personasim.db"

var ErrNotFound = errors.New("not found")

type Database struct {
	db   *sql.DB
	path string
}

// New opens the sqlite database at path, creating its directory, and applies
// the embedded migrations.
func New(path string) (*Database, error) {
	if path == "" {
		path = DefaultPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	d := &Database{db: db, path: path}
	if err := d.RunMigrations(); err != nil {
		db.Close()
		return nil, err
	}

	logging.LogDatabaseEvent("open", "persona_responses", map[string]interface{}{"path": path})
	return d, nil
}

// RunMigrations applies any pending embedded migrations
func (d *Database) RunMigrations() error {
	applied, err := NewMigrationManager(d.db).MigrateUp(EmbeddedMigrations())
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if applied > 0 {
		logging.Info("Database schema updated", map[string]interface{}{
			"path":    d.path,
			"applied": applied,
		})
	}
	return nil
}

// AppliedMigrations lists the schema migrations recorded in the database
func (d *Database) AppliedMigrations() ([]MigrationRecord, error) {
	return NewMigrationManager(d.db).GetAppliedMigrations()
}

// Path returns the database file path
func (d *Database) Path() string {
	return d.path
}

// Ping checks the connection
func (d *Database) Ping() error {
	return d.db.Ping()
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}
