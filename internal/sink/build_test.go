package sink

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/neo/personasim/internal/database"
	"github.com/neo/personasim/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time {
	return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
}

func TestBuildAutoWithoutCredentialsUsesSQLite(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "results.db")
	c, err := Build(Options{Kind: types.SinkAuto, DatabasePath: dbPath, OutputDir: dir, Now: fixedNow})
	require.NoError(t, err)

	assert.Equal(t, "sqlite", c.Active())
	require.NoError(t, c.Insert(context.Background(), testRecord(1, 2)))
	require.NoError(t, c.Close())

	db, err := database.New(dbPath)
	require.NoError(t, err)
	defer db.Close()
	records, err := db.SessionRecords(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Len(t, records, 1)

	// backup file is never created while the primary is healthy
	_, err = os.Stat(filepath.Join(dir, "backup_results_20240506_070809.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestBuildAutoPrefersREST(t *testing.T) {
	c, err := Build(Options{REST: RESTConfig{URL: "https://example.supabase.co", Key: "k"}, OutputDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, "rest", c.Active())
}

func TestBuildRESTRequiresCredentials(t *testing.T) {
	_, err := Build(Options{Kind: types.SinkREST})
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestBuildCSV(t *testing.T) {
	dir := t.TempDir()
	c, err := Build(Options{Kind: types.SinkCSV, OutputDir: dir, Prefix: SyntheticPrefix, Legacy: true, Now: fixedNow})
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, "csv", c.Active())
	rows := readCSV(t, filepath.Join(dir, "synthetic_persona_responses_20240506_070809.csv"))
	assert.Contains(t, rows[0], "normalized_recommened_rating")
}
