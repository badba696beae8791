package logger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureEntry parses the last log line written to buf into a LogEntry
func captureEntry(t *testing.T, buf *bytes.Buffer) LogEntry {
	t.Helper()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)

	var entry LogEntry
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	return entry
}

func TestLogger_InfoProducesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput(&buf, "lifecycle")

	log.Info("File ingested")

	entry := captureEntry(t, &buf)
	assert.Equal(t, LevelInfo, entry.Level)
	assert.Equal(t, "File ingested", entry.Message)
	assert.Equal(t, "lifecycle", entry.Component)
	assert.NotEmpty(t, entry.Timestamp)
	assert.NotEmpty(t, entry.File)
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput(&buf, "test")

	// Default min level is INFO, debug is dropped
	log.Debug("should not appear")
	assert.Empty(t, buf.String())

	log.SetLevel(LevelDebug)
	log.Debug("should appear")
	assert.Contains(t, buf.String(), "should appear")

	buf.Reset()
	log.SetLevel(LevelError)
	log.Warn("dropped")
	log.Error("kept")
	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")
}

func TestLogger_ErrorWithError(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput(&buf, "storage")

	log.ErrorWithError("Failed to persist records", fmt.Errorf("disk full"))

	entry := captureEntry(t, &buf)
	assert.Equal(t, LevelError, entry.Level)
	assert.Equal(t, "disk full", entry.Error)
}

func TestLogger_FieldsAndOperation(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput(&buf, "lifecycle")

	log.InfoWithFields("Reclaimed expired files", map[string]interface{}{
		"reclaimed": 3,
		"file_id":   "abc123",
	})

	entry := captureEntry(t, &buf)
	assert.Equal(t, "abc123", entry.Fields["file_id"])
	assert.Equal(t, float64(3), entry.Fields["reclaimed"])

	buf.Reset()
	log.InfoWithOperation("reclaim", "Sweep finished")
	entry = captureEntry(t, &buf)
	assert.Equal(t, "reclaim", entry.Operation)
}

func TestLogger_SanitizesSensitiveFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput(&buf, "config")

	log.InfoWithFields("Loaded S3 settings", map[string]interface{}{
		"bucket":        "file-drop",
		"s3_secret_key": "super-secret-value",
		"access_key_id": "AKIAEXAMPLE",
	})

	entry := captureEntry(t, &buf)
	assert.Equal(t, "file-drop", entry.Fields["bucket"])
	assert.Equal(t, "[REDACTED]", entry.Fields["s3_secret_key"])
	assert.Equal(t, "[REDACTED]", entry.Fields["access_key_id"])
	assert.NotContains(t, buf.String(), "super-secret-value")
}

func TestLogger_LogOperation(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput(&buf, "lifecycle")

	err := log.LogOperation("ingest", func() error { return nil })
	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "Operation completed successfully")

	buf.Reset()
	err = log.LogOperation("ingest", func() error { return fmt.Errorf("boom") })
	assert.Error(t, err)
	assert.Contains(t, buf.String(), "Operation failed")

	entry := captureEntry(t, &buf)
	assert.Contains(t, entry.Fields, "duration_ms")
}
