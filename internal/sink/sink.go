// Package sink persists iteration records. Sinks are append-only; Chain
// tries them in priority order and falls back when one fails.
package sink

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/neo/personasim/internal/record"
)

// Sink is an append-only destination for iteration records
type Sink interface {
	Insert(ctx context.Context, rec record.IterationRecord) error
	Name() string
	Close() error
}

// File name prefixes for generated CSV files.
const (
	ResultsPrefix   = "simulation_results"
	BackupPrefix    = "backup_results"
	SyntheticPrefix = "synthetic_persona_responses"
)

// TimestampedPath names a CSV file in dir after prefix and now.
func TimestampedPath(dir, prefix string, now time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.csv", prefix, now.Format("20060102_150405")))
}
