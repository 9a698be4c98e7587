package database

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/neo/personasim/internal/logging"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// EmbeddedMigrations returns the schema migrations compiled into the binary.
func EmbeddedMigrations() fs.FS {
	sub, err := fs.Sub(embeddedMigrations, "migrations")
	if err != nil {
		panic(err) // the embed pattern guarantees the directory exists
	}
	return sub
}

// Migration represents a database migration
type Migration struct {
	ID        int
	Name      string
	SQL       string
	Timestamp time.Time
}

// MigrationRecord represents a record of a migration that has been applied
type MigrationRecord struct {
	ID        int
	Name      string
	AppliedAt time.Time
}

// MigrationManager handles database migrations
type MigrationManager struct {
	db *sql.DB
}

// NewMigrationManager creates a new migration manager
func NewMigrationManager(db *sql.DB) *MigrationManager {
	return &MigrationManager{
		db: db,
	}
}

// Initialize creates the migrations table if it doesn't exist
func (m *MigrationManager) Initialize() error {
	query := `
	CREATE TABLE IF NOT EXISTS migrations (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := m.db.Exec(query)
	return err
}

// LoadMigrations loads the .sql files at the root of fsys
func (m *MigrationManager) LoadMigrations(fsys fs.FS) ([]Migration, error) {
	files, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var migrations []Migration
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}

		// Expected format: 001_create_tables.sql
		parts := strings.SplitN(file.Name(), "_", 2)
		if len(parts) != 2 {
			logging.Warn("Skipping migration file with invalid name format", map[string]interface{}{"file": file.Name()})
			continue
		}

		id := 0
		if _, err := fmt.Sscanf(parts[0], "%d", &id); err != nil {
			logging.Warn("Skipping migration file with invalid ID", map[string]interface{}{"file": file.Name()})
			continue
		}

		content, err := fs.ReadFile(fsys, file.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read migration file %s: %w", file.Name(), err)
		}

		migrations = append(migrations, Migration{
			ID:        id,
			Name:      strings.TrimSuffix(parts[1], ".sql"),
			SQL:       string(content),
			Timestamp: time.Now(),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].ID < migrations[j].ID
	})

	return migrations, nil
}

// GetAppliedMigrations returns a list of migrations that have been applied
func (m *MigrationManager) GetAppliedMigrations() ([]MigrationRecord, error) {
	rows, err := m.db.Query("SELECT id, name, applied_at FROM migrations ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	var migrations []MigrationRecord
	for rows.Next() {
		var migration MigrationRecord
		if err := rows.Scan(&migration.ID, &migration.Name, &migration.AppliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		migrations = append(migrations, migration)
	}

	return migrations, rows.Err()
}

// ApplyMigration applies a single migration
func (m *MigrationManager) ApplyMigration(migration Migration) error {
	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := tx.Exec(migration.SQL); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to apply migration %d_%s: %w", migration.ID, migration.Name, err)
	}

	if _, err := tx.Exec("INSERT INTO migrations (id, name) VALUES (?, ?)", migration.ID, migration.Name); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to record migration %d_%s: %w", migration.ID, migration.Name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// MigrateUp applies all pending migrations and returns how many it applied
func (m *MigrationManager) MigrateUp(fsys fs.FS) (int, error) {
	if err := m.Initialize(); err != nil {
		return 0, fmt.Errorf("failed to initialize migrations table: %w", err)
	}

	migrations, err := m.LoadMigrations(fsys)
	if err != nil {
		return 0, err
	}

	appliedMigrations, err := m.GetAppliedMigrations()
	if err != nil {
		return 0, err
	}

	appliedMap := make(map[int]bool)
	for _, migration := range appliedMigrations {
		appliedMap[migration.ID] = true
	}

	applied := 0
	for _, migration := range migrations {
		name := fmt.Sprintf("%03d_%s", migration.ID, migration.Name)
		if appliedMap[migration.ID] {
			logging.LogDatabaseEvent("migration_skipped", "migrations", map[string]interface{}{"migration": name})
			continue
		}
		if err := m.ApplyMigration(migration); err != nil {
			return applied, err
		}
		applied++
		logging.Info("Migration applied", map[string]interface{}{"migration": name})
	}

	return applied, nil
}
