package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"file-drop-service/pkg/errors"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ":3000", cfg.Server.ListenAddr)
	assert.Equal(t, RecordBackendJSON, cfg.Storage.RecordBackend)
	assert.Equal(t, BlobBackendDisk, cfg.Storage.BlobBackend)
	assert.Equal(t, int64(100*1024*1024), cfg.Upload.MaxFileSize)
	assert.Equal(t, "1d", cfg.Upload.DefaultExpiry)
	assert.Equal(t, time.Hour, cfg.SweepInterval)
	assert.Contains(t, cfg.Upload.AllowedTypes, "image/png")
	assert.Contains(t, cfg.Upload.AllowedTypes, "application/pdf")
	assert.NotContains(t, cfg.Upload.AllowedTypes, "application/x-sh")

	require.NoError(t, cfg.Validate())
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultConfig().Server.ListenAddr, cfg.Server.ListenAddr)
	assert.Equal(t, DefaultConfig().Upload.MaxFileSize, cfg.Upload.MaxFileSize)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  listen_addr: ":8080"
  base_url: "https://files.example.com/"
storage:
  record_backend: sqlite
  database_path: /var/lib/filedrop/files.db
upload:
  max_file_size: 1048576
sweep_interval: 15m
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.ListenAddr)
	assert.Equal(t, "https://files.example.com", cfg.Server.BaseURL,
		"trailing slash should be trimmed")
	assert.Equal(t, RecordBackendSQLite, cfg.Storage.RecordBackend)
	assert.Equal(t, "/var/lib/filedrop/files.db", cfg.Storage.DatabasePath)
	assert.Equal(t, int64(1048576), cfg.Upload.MaxFileSize)
	assert.Equal(t, 15*time.Minute, cfg.SweepInterval)

	// Untouched keys keep their defaults
	assert.Equal(t, BlobBackendDisk, cfg.Storage.BlobBackend)
	assert.NotEmpty(t, cfg.Upload.AllowedTypes)
}

func TestLoad_MissingFileIsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrInvalidConfig))
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
	}{
		{"unknown record backend", func(c *AppConfig) { c.Storage.RecordBackend = "postgres" }},
		{"unknown blob backend", func(c *AppConfig) { c.Storage.BlobBackend = "ftp" }},
		{"s3 without bucket", func(c *AppConfig) { c.Storage.BlobBackend = BlobBackendS3; c.S3.Bucket = "" }},
		{"zero max size", func(c *AppConfig) { c.Upload.MaxFileSize = 0 }},
		{"empty allow-list", func(c *AppConfig) { c.Upload.AllowedTypes = nil }},
		{"zero sweep interval", func(c *AppConfig) { c.SweepInterval = 0 }},
		{"empty listen addr", func(c *AppConfig) { c.Server.ListenAddr = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrInvalidConfig))
		})
	}
}

func TestValidate_S3WithBucketPasses(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.BlobBackend = BlobBackendS3
	cfg.S3.Bucket = "filedrop-prod"

	assert.NoError(t, cfg.Validate())
}
