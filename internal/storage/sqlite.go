package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"file-drop-service/internal/models"
	"file-drop-service/pkg/errors"
)

const createFilesTable = `
CREATE TABLE IF NOT EXISTS files (
	id            TEXT PRIMARY KEY,
	storage_name  TEXT NOT NULL,
	original_name TEXT NOT NULL,
	mime_type     TEXT NOT NULL,
	size_bytes    INTEGER NOT NULL,
	uploaded_at   TIMESTAMP NOT NULL,
	expires_at    TIMESTAMP,
	view_count    INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_files_expires_at ON files(expires_at);
`

// SQLiteStore implements RecordStore using an embedded SQLite database.
//
// Transactions open in immediate mode and the connection pool is capped
// at a single connection, so every read-modify-write cycle is fully
// serialized — the same single-writer discipline the JSON store gets
// from its mutex.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore creates a record store backed by the SQLite database
// at path, creating the schema if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.NewAppError(errors.ErrInvalidConfig, "record store path cannot be empty", nil)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, errors.NewAppError(errors.ErrStoreUnavailable,
			fmt.Sprintf("failed to create record store directory for '%s'", path), err)
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_txlock=immediate", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrStoreUnavailable,
			fmt.Sprintf("failed to open record store '%s'", path), err)
	}

	// A single connection keeps writers strictly serialized.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createFilesTable); err != nil {
		db.Close()
		return nil, errors.NewAppError(errors.ErrStoreUnavailable,
			fmt.Sprintf("failed to initialize record store schema in '%s'", path), err)
	}

	// Restrict the database file to the owner only.
	if err := os.Chmod(path, 0600); err != nil {
		db.Close()
		return nil, errors.NewAppError(errors.ErrStoreUnavailable,
			fmt.Sprintf("failed to set permissions on record store '%s'", path), err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// Insert adds a new record
func (s *SQLiteStore) Insert(record *models.FileRecord) error {
	if record == nil || record.ID == "" {
		return errors.NewAppError(errors.ErrInvalidInput, "record and record id cannot be empty", nil)
	}

	_, err := s.db.Exec(
		`INSERT INTO files (id, storage_name, original_name, mime_type, size_bytes, uploaded_at, expires_at, view_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.StorageName,
		record.OriginalName,
		record.MimeType,
		record.SizeBytes,
		record.UploadedAt,
		nullableTime(record.ExpiresAt),
		record.ViewCount,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return errors.NewAppError(errors.ErrDuplicateRecord,
				fmt.Sprintf("record '%s' already exists", record.ID), err)
		}
		return errors.NewAppError(errors.ErrPersistFailure,
			fmt.Sprintf("failed to insert record '%s'", record.ID), err)
	}

	return nil
}

// Find returns the record with the given id
func (s *SQLiteStore) Find(id string) (*models.FileRecord, error) {
	row := s.db.QueryRow(
		`SELECT id, storage_name, original_name, mime_type, size_bytes, uploaded_at, expires_at, view_count
		 FROM files WHERE id = ?`, id)

	record, err := scanRecord(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewAppError(errors.ErrRecordNotFound,
				fmt.Sprintf("no record for id '%s'", id), nil)
		}
		return nil, errors.NewAppError(errors.ErrStoreUnavailable,
			fmt.Sprintf("failed to read record '%s'", id), err)
	}

	return record, nil
}

// Update atomically applies mutate to the matching record inside a transaction
func (s *SQLiteStore) Update(id string, mutateFn func(*models.FileRecord)) (*models.FileRecord, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, errors.NewAppError(errors.ErrStoreUnavailable, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	row := tx.QueryRow(
		`SELECT id, storage_name, original_name, mime_type, size_bytes, uploaded_at, expires_at, view_count
		 FROM files WHERE id = ?`, id)

	record, err := scanRecord(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewAppError(errors.ErrRecordNotFound,
				fmt.Sprintf("no record for id '%s'", id), nil)
		}
		return nil, errors.NewAppError(errors.ErrStoreUnavailable,
			fmt.Sprintf("failed to read record '%s'", id), err)
	}

	mutateFn(record)
	record.ID = id // the mutator may not rename a record

	_, err = tx.Exec(
		`UPDATE files SET storage_name = ?, original_name = ?, mime_type = ?, size_bytes = ?,
		 uploaded_at = ?, expires_at = ?, view_count = ? WHERE id = ?`,
		record.StorageName,
		record.OriginalName,
		record.MimeType,
		record.SizeBytes,
		record.UploadedAt,
		nullableTime(record.ExpiresAt),
		record.ViewCount,
		record.ID,
	)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrPersistFailure,
			fmt.Sprintf("failed to update record '%s'", id), err)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewAppError(errors.ErrPersistFailure,
			fmt.Sprintf("failed to commit update of record '%s'", id), err)
	}

	return record.Clone(), nil
}

// Remove deletes the record with the given id, if present
func (s *SQLiteStore) Remove(id string) error {
	if _, err := s.db.Exec(`DELETE FROM files WHERE id = ?`, id); err != nil {
		return errors.NewAppError(errors.ErrPersistFailure,
			fmt.Sprintf("failed to remove record '%s'", id), err)
	}
	return nil
}

// ListExpired returns all records whose expiration has passed as of asOf
func (s *SQLiteStore) ListExpired(asOf time.Time) ([]*models.FileRecord, error) {
	return s.list(`SELECT id, storage_name, original_name, mime_type, size_bytes, uploaded_at, expires_at, view_count
		 FROM files WHERE expires_at IS NOT NULL AND expires_at <= ?`, asOf)
}

// ListAll returns every record in the store
func (s *SQLiteStore) ListAll() ([]*models.FileRecord, error) {
	return s.list(`SELECT id, storage_name, original_name, mime_type, size_bytes, uploaded_at, expires_at, view_count
		 FROM files`)
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) list(query string, args ...interface{}) ([]*models.FileRecord, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrStoreUnavailable, "failed to query records", err)
	}
	defer rows.Close()

	var records []*models.FileRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, errors.NewAppError(errors.ErrStoreUnavailable, "failed to scan record", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewAppError(errors.ErrStoreUnavailable, "failed to iterate records", err)
	}

	return records, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*models.FileRecord, error) {
	var record models.FileRecord
	var expiresAt sql.NullTime

	err := row.Scan(
		&record.ID,
		&record.StorageName,
		&record.OriginalName,
		&record.MimeType,
		&record.SizeBytes,
		&record.UploadedAt,
		&expiresAt,
		&record.ViewCount,
	)
	if err != nil {
		return nil, err
	}

	if expiresAt.Valid {
		expiry := expiresAt.Time
		record.ExpiresAt = &expiry
	}

	return &record, nil
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
