package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/neo/personasim/internal/config"
	"github.com/neo/personasim/internal/persona"
	"github.com/neo/personasim/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExamplePersonasParses(t *testing.T) {
	data, err := examplePersonas()
	require.NoError(t, err)

	personas, err := persona.Parse(data)
	require.NoError(t, err)
	require.Len(t, personas, 1)
	assert.Equal(t, "Brian", personas[0].Name)
	assert.Equal(t, 999, personas[0].ID)
	assert.Equal(t, 2.0, personas[0].InitialRating)
}

func TestWriteIfMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")

	wrote, err := writeIfMissing(path, []byte("first"), false)
	require.NoError(t, err)
	assert.True(t, wrote)

	wrote, err = writeIfMissing(path, []byte("second"), false)
	require.NoError(t, err)
	assert.False(t, wrote)
	data, _ := os.ReadFile(path)
	assert.Equal(t, "first", string(data))

	wrote, err = writeIfMissing(path, []byte("third"), true)
	require.NoError(t, err)
	assert.True(t, wrote)
	data, _ = os.ReadFile(path)
	assert.Equal(t, "third", string(data))
}

func TestApplySimulateFlags(t *testing.T) {
	c := &config.Config{MaxIterations: 10, TargetRating: 0.8, SinkKind: types.SinkAuto, Backend: types.BackendOpenAI}

	require.NoError(t, simulateCmd.Flags().Set("max-iterations", "3"))
	require.NoError(t, simulateCmd.Flags().Set("sink", "csv"))
	require.NoError(t, simulateCmd.Flags().Set("backend", "langchain"))
	require.NoError(t, applySimulateFlags(simulateCmd, c))

	assert.Equal(t, 3, c.MaxIterations)
	assert.Equal(t, 0.8, c.TargetRating)
	assert.Equal(t, types.SinkCSV, c.SinkKind)
	assert.Equal(t, types.BackendLangChain, c.Backend)
}

func TestNewAgentRequiresKey(t *testing.T) {
	_, err := newAgent(&config.Config{Backend: types.BackendOpenAI, Model: "gpt-4o-mini"}, nil)
	assert.Error(t, err)
}
