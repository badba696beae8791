package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileRecord_IsExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	tests := []struct {
		name      string
		expiresAt *time.Time
		expected  bool
	}{
		{"no expiration never expires", nil, false},
		{"past expiration is expired", &past, true},
		{"expiration exactly now is expired", &now, true},
		{"future expiration is not expired", &future, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := &FileRecord{
				ID:        "abc123",
				ExpiresAt: tt.expiresAt,
			}
			assert.Equal(t, tt.expected, record.IsExpired(now))
		})
	}
}

func TestFileRecord_Clone(t *testing.T) {
	expiry := time.Now().Add(24 * time.Hour)
	record := &FileRecord{
		ID:           "abc123",
		StorageName:  "abc123.png",
		OriginalName: "photo.png",
		MimeType:     "image/png",
		SizeBytes:    2048,
		UploadedAt:   time.Now(),
		ExpiresAt:    &expiry,
		ViewCount:    3,
	}

	clone := record.Clone()
	require.NotSame(t, record, clone)
	require.NotSame(t, record.ExpiresAt, clone.ExpiresAt)
	assert.Equal(t, record, clone)

	// Mutating the clone must not leak back into the original
	clone.ViewCount = 99
	*clone.ExpiresAt = clone.ExpiresAt.Add(time.Hour)
	assert.Equal(t, int64(3), record.ViewCount)
	assert.Equal(t, expiry, *record.ExpiresAt)
}

func TestFileRecord_JSONLayout(t *testing.T) {
	uploaded := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	record := &FileRecord{
		ID:           "x7k2p9qa",
		StorageName:  "x7k2p9qa.pdf",
		OriginalName: "report.pdf",
		MimeType:     "application/pdf",
		SizeBytes:    1024,
		UploadedAt:   uploaded,
		ExpiresAt:    nil,
		ViewCount:    0,
	}

	data, err := json.Marshal(record)
	require.NoError(t, err)

	// The persisted keys are part of the on-disk format and must not drift.
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	for _, key := range []string{"id", "filename", "originalName", "mimeType", "size", "uploadDate", "expiryDate", "views"} {
		assert.Contains(t, decoded, key)
	}
	assert.Nil(t, decoded["expiryDate"], "never-expiring records persist a null expiryDate")
}
