package sink

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/neo/personasim/internal/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func testRecord(iteration int, raw float64) record.IterationRecord {
	rec := record.New("session-1", iteration, 4, "Sarah", raw)
	rec.Article = "An article, with a comma\nand a newline"
	rec.Reason = "reason"
	return rec
}

func TestCSVSinkWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "results.csv")
	s, err := NewCSVSink(path, record.Columns)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, testRecord(1, 2)))
	require.NoError(t, s.Insert(ctx, testRecord(2, 3.5).WithRecommendation(3)))

	// rows are flushed before Close
	rows := readCSV(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, record.Columns, rows[0])
	assert.Equal(t, "1", rows[1][1])
	assert.Equal(t, "Negative", rows[1][6])
	assert.Equal(t, "An article, with a comma\nand a newline", rows[1][7])
	assert.Equal(t, "", rows[1][8])
	assert.Equal(t, "3", rows[2][8])

	require.NoError(t, s.Close())
	assert.Error(t, s.Insert(ctx, testRecord(3, 2)))
	assert.NoError(t, s.Close())
}

func TestCSVSinkLegacyHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.csv")
	s, err := NewCSVSink(path, record.LegacyColumns)
	require.NoError(t, err)
	defer s.Close()

	rows := readCSV(t, path)
	require.Len(t, rows, 1)
	assert.Contains(t, rows[0], "recommened_rating")
	assert.Equal(t, path, s.Path())
}

func TestCSVSinkRejectsWrongColumns(t *testing.T) {
	_, err := NewCSVSink(filepath.Join(t.TempDir(), "x.csv"), []string{"a"})
	assert.Error(t, err)
}

func TestTimestampedPath(t *testing.T) {
	now := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	assert.Equal(t, filepath.Join("out", "backup_results_20240309_140507.csv"), TimestampedPath("out", BackupPrefix, now))
}
