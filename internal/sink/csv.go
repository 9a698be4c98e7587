package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/neo/personasim/internal/logging"
	"github.com/neo/personasim/internal/record"
)

// CSVSink appends records to a CSV file. The header is written once when the
// file is created and every row is flushed immediately.
type CSVSink struct {
	path   string
	file   *os.File
	writer *csv.Writer
	mu     sync.Mutex
}

// NewCSVSink creates path (and its directory) and writes the header. columns
// must be record.Columns or record.LegacyColumns; rows use the same order.
func NewCSVSink(path string, columns []string) (*CSVSink, error) {
	if len(columns) != len(record.Columns) {
		return nil, fmt.Errorf("csv sink needs %d columns, got %d", len(record.Columns), len(columns))
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create csv file: %w", err)
	}

	s := &CSVSink{path: path, file: f, writer: csv.NewWriter(f)}
	if err := s.write(columns); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}

	logging.LogSinkEvent("created", "csv", map[string]interface{}{"path": path})
	return s, nil
}

func (s *CSVSink) write(row []string) error {
	if err := s.writer.Write(row); err != nil {
		return err
	}
	s.writer.Flush()
	return s.writer.Error()
}

// Insert appends one row
func (s *CSVSink) Insert(ctx context.Context, rec record.IterationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return fmt.Errorf("csv sink %s is closed", s.path)
	}
	if err := s.write(rec.Row()); err != nil {
		return fmt.Errorf("failed to write csv row: %w", err)
	}
	return nil
}

func (s *CSVSink) Name() string { return "csv" }

// Path returns the file being written
func (s *CSVSink) Path() string { return s.path }

func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	s.writer.Flush()
	err := s.file.Close()
	s.file = nil
	return err
}
