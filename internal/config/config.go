package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"file-drop-service/internal/expiry"
	"file-drop-service/pkg/errors"
)

// Record store and blob store backend selectors.
const (
	RecordBackendJSON   = "json"
	RecordBackendSQLite = "sqlite"

	BlobBackendDisk = "disk"
	BlobBackendS3   = "s3"
)

// ServerConfig holds the HTTP listener settings
type ServerConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
	BaseURL    string `mapstructure:"base_url"`
}

// StorageConfig selects and parameterizes the persistence backends
type StorageConfig struct {
	DataDir       string `mapstructure:"data_dir"`
	DatabasePath  string `mapstructure:"database_path"`
	RecordBackend string `mapstructure:"record_backend"`
	BlobBackend   string `mapstructure:"blob_backend"`
}

// S3Config holds settings for the S3 blob backend. Credentials may be
// left empty to use the ambient AWS credential chain.
type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// UploadConfig constrains what the service accepts
type UploadConfig struct {
	MaxFileSize   int64    `mapstructure:"max_file_size"`
	DefaultExpiry string   `mapstructure:"default_expiry"`
	AllowedTypes  []string `mapstructure:"allowed_types"`
}

// AppConfig holds application configuration
type AppConfig struct {
	Server        ServerConfig  `mapstructure:"server"`
	Storage       StorageConfig `mapstructure:"storage"`
	S3            S3Config      `mapstructure:"s3"`
	Upload        UploadConfig  `mapstructure:"upload"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	LogLevel      string        `mapstructure:"log_level"`
}

// DefaultConfig returns default application configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			ListenAddr: ":3000",
			BaseURL:    "http://localhost:3000",
		},
		Storage: StorageConfig{
			DataDir:       "data/uploads",
			DatabasePath:  "data/database.json",
			RecordBackend: RecordBackendJSON,
			BlobBackend:   BlobBackendDisk,
		},
		S3: S3Config{
			Region: "us-east-1",
		},
		Upload: UploadConfig{
			MaxFileSize:   100 * 1024 * 1024, // 100MB
			DefaultExpiry: expiry.DefaultSelector,
			AllowedTypes:  DefaultAllowedTypes(),
		},
		SweepInterval: time.Hour,
		LogLevel:      "info",
	}
}

// DefaultAllowedTypes returns the built-in MIME allow-list: common
// image, video and audio formats plus pdf, plain text and zip.
func DefaultAllowedTypes() []string {
	return []string{
		"image/jpeg",
		"image/jpg",
		"image/png",
		"image/gif",
		"image/webp",
		"video/mp4",
		"video/mpeg",
		"video/quicktime",
		"audio/mpeg",
		"audio/mp3",
		"audio/wav",
		"audio/ogg",
		"application/pdf",
		"text/plain",
		"application/zip",
	}
}

// Load reads configuration from the given file (optional), environment
// variables prefixed FILEDROP_, and built-in defaults, in that order of
// precedence from highest to lowest being env > file > defaults.
func Load(path string) (*AppConfig, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("server.listen_addr", defaults.Server.ListenAddr)
	v.SetDefault("server.base_url", defaults.Server.BaseURL)
	v.SetDefault("storage.data_dir", defaults.Storage.DataDir)
	v.SetDefault("storage.database_path", defaults.Storage.DatabasePath)
	v.SetDefault("storage.record_backend", defaults.Storage.RecordBackend)
	v.SetDefault("storage.blob_backend", defaults.Storage.BlobBackend)
	v.SetDefault("s3.region", defaults.S3.Region)
	v.SetDefault("upload.max_file_size", defaults.Upload.MaxFileSize)
	v.SetDefault("upload.default_expiry", defaults.Upload.DefaultExpiry)
	v.SetDefault("upload.allowed_types", defaults.Upload.AllowedTypes)
	v.SetDefault("sweep_interval", defaults.SweepInterval)
	v.SetDefault("log_level", defaults.LogLevel)

	v.SetEnvPrefix("FILEDROP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.NewAppError(errors.ErrInvalidConfig,
				fmt.Sprintf("failed to read config file '%s'", path), err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.NewAppError(errors.ErrInvalidConfig, "failed to parse configuration", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for internally inconsistent or
// unusable values.
func (c *AppConfig) Validate() error {
	switch c.Storage.RecordBackend {
	case RecordBackendJSON, RecordBackendSQLite:
	default:
		return errors.NewAppError(errors.ErrInvalidConfig,
			fmt.Sprintf("unknown record backend '%s' (want '%s' or '%s')",
				c.Storage.RecordBackend, RecordBackendJSON, RecordBackendSQLite), nil)
	}

	switch c.Storage.BlobBackend {
	case BlobBackendDisk:
	case BlobBackendS3:
		if c.S3.Bucket == "" {
			return errors.NewAppError(errors.ErrInvalidConfig,
				"s3 blob backend requires a bucket name", nil)
		}
	default:
		return errors.NewAppError(errors.ErrInvalidConfig,
			fmt.Sprintf("unknown blob backend '%s' (want '%s' or '%s')",
				c.Storage.BlobBackend, BlobBackendDisk, BlobBackendS3), nil)
	}

	if c.Upload.MaxFileSize <= 0 {
		return errors.NewAppError(errors.ErrInvalidConfig,
			"upload.max_file_size must be positive", nil)
	}
	if len(c.Upload.AllowedTypes) == 0 {
		return errors.NewAppError(errors.ErrInvalidConfig,
			"upload.allowed_types must not be empty", nil)
	}
	if c.SweepInterval <= 0 {
		return errors.NewAppError(errors.ErrInvalidConfig,
			"sweep_interval must be positive", nil)
	}
	if c.Server.ListenAddr == "" {
		return errors.NewAppError(errors.ErrInvalidConfig,
			"server.listen_addr must not be empty", nil)
	}

	c.Server.BaseURL = strings.TrimRight(c.Server.BaseURL, "/")
	return nil
}
