package sink

import (
	"context"
	"fmt"

	"github.com/neo/personasim/internal/database"
	"github.com/neo/personasim/internal/record"
)

// SQLiteSink stores records in the local datastore
type SQLiteSink struct {
	db    database.DatabaseInterface
	owned bool
}

// NewSQLiteSink writes through db. The caller keeps ownership of db.
func NewSQLiteSink(db database.DatabaseInterface) *SQLiteSink {
	return &SQLiteSink{db: db}
}

// OpenSQLiteSink opens (and migrates) the database at path; Close closes it.
func OpenSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := database.New(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteSink{db: db, owned: true}, nil
}

func (s *SQLiteSink) Insert(ctx context.Context, rec record.IterationRecord) error {
	if _, err := s.db.InsertResponse(ctx, rec); err != nil {
		return fmt.Errorf("sqlite insert failed: %w", err)
	}
	return nil
}

func (s *SQLiteSink) Name() string { return "sqlite" }

func (s *SQLiteSink) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}
