package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"file-drop-service/pkg/errors"
)

func TestJSONFileStore_MissingFileIsEmptyCollection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "database.json")

	store, err := NewJSONFileStore(path)
	require.NoError(t, err)
	defer store.Close()

	all, err := store.ListAll()
	require.NoError(t, err)
	assert.Empty(t, all)

	// The file only materializes on the first write
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestJSONFileStore_CorruptFileIsSurfaced(t *testing.T) {
	path := filepath.Join(t.TempDir(), "database.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	// A corrupt collection must never be read as an empty one
	_, err := NewJSONFileStore(path)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrStoreUnavailable))
}

func TestJSONFileStore_CorruptAfterOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "database.json")

	store, err := NewJSONFileStore(path)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Insert(newTestRecord("abc123", nil)))
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0600))

	_, err = store.Find("abc123")
	assert.True(t, errors.IsCode(err, errors.ErrStoreUnavailable))

	_, err = store.ListExpired(time.Now())
	assert.True(t, errors.IsCode(err, errors.ErrStoreUnavailable))
}

func TestJSONFileStore_PersistedLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "database.json")

	store, err := NewJSONFileStore(path)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Insert(newTestRecord("abc123", nil)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Contains(t, doc, "files")

	files := doc["files"].([]interface{})
	require.Len(t, files, 1)
	entry := files[0].(map[string]interface{})
	assert.Equal(t, "abc123", entry["id"])
	assert.Equal(t, "abc123.txt", entry["filename"])
	assert.Contains(t, entry, "views")
}

func TestJSONFileStore_FilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "database.json")

	store, err := NewJSONFileStore(path)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Insert(newTestRecord("abc123", nil)))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestJSONFileStore_ReadsExistingDatabase(t *testing.T) {
	// A database.json written by an earlier deployment loads as-is
	path := filepath.Join(t.TempDir(), "database.json")
	legacy := `{
  "files": [
    {
      "id": "x7k2p9qa",
      "filename": "x7k2p9qa.png",
      "originalName": "screenshot.png",
      "mimeType": "image/png",
      "size": 2048,
      "uploadDate": "2025-01-02T03:04:05Z",
      "expiryDate": null,
      "views": 7
    }
  ]
}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0600))

	store, err := NewJSONFileStore(path)
	require.NoError(t, err)
	defer store.Close()

	record, err := store.Find("x7k2p9qa")
	require.NoError(t, err)
	assert.Equal(t, "x7k2p9qa.png", record.StorageName)
	assert.Equal(t, "screenshot.png", record.OriginalName)
	assert.Nil(t, record.ExpiresAt)
	assert.Equal(t, int64(7), record.ViewCount)
}

func TestJSONFileStore_FailedWriteLeavesFileIntact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "database.json")

	store, err := NewJSONFileStore(path)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Insert(newTestRecord("abc123", nil)))

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	// A failed mutation (duplicate insert) must not rewrite the file
	insertErr := store.Insert(newTestRecord("abc123", nil))
	require.Error(t, insertErr)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	// No stray temp files left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
