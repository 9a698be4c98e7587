package database

import (
	"context"

	"github.com/neo/personasim/internal/record"
)

// DatabaseInterface defines the interface for database operations
type DatabaseInterface interface {
	Close() error
	Ping() error

	// Iteration records
	InsertResponse(ctx context.Context, rec record.IterationRecord) (int64, error)
	SessionRecords(ctx context.Context, sessionID string) ([]record.IterationRecord, error)

	// Results
	ListSessions(ctx context.Context, filter SessionFilter) ([]*SessionSummary, int, error)
	Stats(ctx context.Context) (*Stats, error)

	// Migration runner
	RunMigrations() error
}

// Ensure Database implements DatabaseInterface
var _ DatabaseInterface = (*Database)(nil)
