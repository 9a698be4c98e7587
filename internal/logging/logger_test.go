package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		input    string
		expected LogLevel
	}{
		{"debug", DEBUG},
		{"INFO", INFO},
		{"warning", WARN},
		{" error ", ERROR},
		{"fatal", FATAL},
		{"bogus", INFO},
		{"", INFO},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.expected, ParseLevel(tc.input))
		})
	}
}

func TestLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Level: WARN, Output: &buf})
	require.NoError(t, err)

	logger.Info("not shown")
	logger.Warn("rating clamped", map[string]interface{}{"rating": 5.0})

	out := buf.String()
	assert.NotContains(t, out, "not shown")
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "rating clamped")
	assert.Contains(t, out, "rating=5")
}

func TestLoggerContextIsSorted(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Level: DEBUG, Output: &buf, Prefix: "personasim"})
	require.NoError(t, err)

	logger.Debug("ctx", map[string]interface{}{"b": 2}, map[string]interface{}{"a": 1})

	assert.Contains(t, buf.String(), "[a=1 b=2]")
	assert.Contains(t, buf.String(), "[personasim]")
}

func TestLoggerWritesFileWithoutColor(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logs", "test.log")

	var buf bytes.Buffer
	logger, err := NewLogger(Config{
		Level:       INFO,
		Colored:     true,
		LogToFile:   true,
		LogFilePath: path,
		Output:      &buf,
	})
	require.NoError(t, err)

	logger.Error("sink failed")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "sink failed")
	assert.NotContains(t, string(data), ColorRed)
	assert.Contains(t, buf.String(), ColorRed)
}

func TestDomainHelpersUseDefaultLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Level: DEBUG, Output: &buf})
	require.NoError(t, err)

	previous := GetDefaultLogger()
	SetDefaultLogger(logger)
	defer SetDefaultLogger(previous)

	LogSessionEvent("started", "abc", map[string]interface{}{"persona": "Brian"})
	LogSinkEvent("fallback", "rest", nil)

	out := buf.String()
	assert.Contains(t, out, "Session Event")
	assert.Contains(t, out, "session_id=abc")
	assert.Contains(t, out, "persona=Brian")
	assert.Contains(t, out, "Sink Event")
	assert.Contains(t, out, "sink=rest")
}
