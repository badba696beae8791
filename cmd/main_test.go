package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"file-drop-service/internal/blob"
	"file-drop-service/internal/config"
	"file-drop-service/internal/storage"
)

func TestNewRecordStore_BackendSelection(t *testing.T) {
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Storage.DatabasePath = filepath.Join(dir, "database.json")

	jsonStore, err := newRecordStore(cfg)
	require.NoError(t, err)
	defer jsonStore.Close()
	assert.IsType(t, &storage.JSONFileStore{}, jsonStore)

	cfg.Storage.RecordBackend = config.RecordBackendSQLite
	cfg.Storage.DatabasePath = filepath.Join(dir, "files.db")

	sqliteStore, err := newRecordStore(cfg)
	require.NoError(t, err)
	defer sqliteStore.Close()
	assert.IsType(t, &storage.SQLiteStore{}, sqliteStore)
}

func TestNewBlobStore_DiskBackend(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Storage.DataDir = filepath.Join(t.TempDir(), "uploads")

	store, err := newBlobStore(cfg)
	require.NoError(t, err)
	assert.IsType(t, &blob.DiskStore{}, store)
}
