package server

import (
	"context"
	"errors"

	"github.com/neo/personasim/internal/database"
	"github.com/neo/personasim/internal/record"
)

// TestMockDB is a mock implementation of the database for testing
type TestMockDB struct {
	pingErr  error
	queryErr error
	sessions []*database.SessionSummary
	records  map[string][]record.IterationRecord
	stats    *database.Stats

	lastFilter database.SessionFilter
	statsCalls int
}

// Ensure TestMockDB implements database.DatabaseInterface
var _ database.DatabaseInterface = (*TestMockDB)(nil)

var errQueryFailed = errors.New("query failed")

func (m *TestMockDB) Close() error { return nil }

func (m *TestMockDB) Ping() error { return m.pingErr }

func (m *TestMockDB) RunMigrations() error { return nil }

func (m *TestMockDB) InsertResponse(ctx context.Context, rec record.IterationRecord) (int64, error) {
	if m.records == nil {
		m.records = make(map[string][]record.IterationRecord)
	}
	m.records[rec.SessionID] = append(m.records[rec.SessionID], rec)
	return int64(len(m.records[rec.SessionID])), nil
}

func (m *TestMockDB) SessionRecords(ctx context.Context, sessionID string) ([]record.IterationRecord, error) {
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	recs, ok := m.records[sessionID]
	if !ok {
		return nil, database.ErrNotFound
	}
	return recs, nil
}

func (m *TestMockDB) ListSessions(ctx context.Context, filter database.SessionFilter) ([]*database.SessionSummary, int, error) {
	m.lastFilter = filter
	if m.queryErr != nil {
		return nil, 0, m.queryErr
	}

	var matched []*database.SessionSummary
	for _, s := range m.sessions {
		if filter.PersonaID == 0 || s.PersonaID == filter.PersonaID {
			matched = append(matched, s)
		}
	}
	total := len(matched)
	if filter.Offset >= total {
		return nil, total, nil
	}
	end := filter.Offset + filter.Limit
	if end > total {
		end = total
	}
	return matched[filter.Offset:end], total, nil
}

func (m *TestMockDB) Stats(ctx context.Context) (*database.Stats, error) {
	m.statsCalls++
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	if m.stats == nil {
		return &database.Stats{}, nil
	}
	return m.stats, nil
}
