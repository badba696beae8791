package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"file-drop-service/internal/models"
	"file-drop-service/pkg/errors"
	"file-drop-service/pkg/logger"
)

// collectionDocument is the on-disk shape of the record collection.
type collectionDocument struct {
	Files []*models.FileRecord `json:"files"`
}

// JSONFileStore implements RecordStore on top of a single JSON document.
//
// Every operation loads the whole collection and every write persists
// the whole collection, so a mutex serializes the full
// load-modify-save cycle. Writes go to a temporary file in the same
// directory and are renamed into place; a crash mid-write leaves the
// previous document untouched.
type JSONFileStore struct {
	mu     sync.Mutex
	path   string
	logger *logger.Logger
}

// NewJSONFileStore creates a record store backed by the JSON document at
// path. A missing file is treated as an empty collection; the file is
// created on the first write.
func NewJSONFileStore(path string) (*JSONFileStore, error) {
	if path == "" {
		return nil, errors.NewAppError(errors.ErrInvalidConfig, "record store path cannot be empty", nil)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, errors.NewAppError(errors.ErrStoreUnavailable,
			fmt.Sprintf("failed to create record store directory for '%s'", path), err)
	}

	store := &JSONFileStore{
		path:   path,
		logger: logger.NewWithComponent("jsonstore"),
	}

	// Fail fast on an unreadable or corrupt document rather than at the
	// first request.
	files, err := store.load()
	if err != nil {
		return nil, err
	}

	store.logger.InfoWithFields("Record store opened", map[string]interface{}{
		"path":    path,
		"records": len(files),
	})

	return store, nil
}

// Insert adds a new record to the collection
func (s *JSONFileStore) Insert(record *models.FileRecord) error {
	if record == nil || record.ID == "" {
		return errors.NewAppError(errors.ErrInvalidInput, "record and record id cannot be empty", nil)
	}

	return s.mutate(func(files []*models.FileRecord) ([]*models.FileRecord, error) {
		for _, existing := range files {
			if existing.ID == record.ID {
				return nil, errors.NewAppError(errors.ErrDuplicateRecord,
					fmt.Sprintf("record '%s' already exists", record.ID), nil)
			}
		}
		return append(files, record.Clone()), nil
	})
}

// Find returns the record with the given id
func (s *JSONFileStore) Find(id string) (*models.FileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := s.load()
	if err != nil {
		return nil, err
	}

	for _, record := range files {
		if record.ID == id {
			return record.Clone(), nil
		}
	}

	return nil, errors.NewAppError(errors.ErrRecordNotFound,
		fmt.Sprintf("no record for id '%s'", id), nil)
}

// Update atomically applies mutate to the matching record and persists
func (s *JSONFileStore) Update(id string, mutateFn func(*models.FileRecord)) (*models.FileRecord, error) {
	var updated *models.FileRecord

	err := s.mutate(func(files []*models.FileRecord) ([]*models.FileRecord, error) {
		for i, record := range files {
			if record.ID == id {
				changed := record.Clone()
				mutateFn(changed)
				changed.ID = id // the mutator may not rename a record
				files[i] = changed
				updated = changed.Clone()
				return files, nil
			}
		}
		return nil, errors.NewAppError(errors.ErrRecordNotFound,
			fmt.Sprintf("no record for id '%s'", id), nil)
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// Remove deletes the record with the given id, if present
func (s *JSONFileStore) Remove(id string) error {
	return s.mutate(func(files []*models.FileRecord) ([]*models.FileRecord, error) {
		kept := files[:0]
		for _, record := range files {
			if record.ID != id {
				kept = append(kept, record)
			}
		}
		return kept, nil
	})
}

// ListExpired returns all records whose expiration has passed as of asOf
func (s *JSONFileStore) ListExpired(asOf time.Time) ([]*models.FileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := s.load()
	if err != nil {
		return nil, err
	}

	var expired []*models.FileRecord
	for _, record := range files {
		if record.IsExpired(asOf) {
			expired = append(expired, record.Clone())
		}
	}

	return expired, nil
}

// ListAll returns every record in the collection
func (s *JSONFileStore) ListAll() ([]*models.FileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := s.load()
	if err != nil {
		return nil, err
	}

	all := make([]*models.FileRecord, len(files))
	for i, record := range files {
		all[i] = record.Clone()
	}

	return all, nil
}

// Close implements RecordStore. The JSON store holds no open handles.
func (s *JSONFileStore) Close() error {
	return nil
}

// mutate serializes a full load-modify-save cycle under the store lock
func (s *JSONFileStore) mutate(fn func([]*models.FileRecord) ([]*models.FileRecord, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := s.load()
	if err != nil {
		return err
	}

	changed, err := fn(files)
	if err != nil {
		return err
	}

	return s.save(changed)
}

// load reads and parses the whole collection. Callers must hold the lock.
func (s *JSONFileStore) load() ([]*models.FileRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.NewAppError(errors.ErrStoreUnavailable,
			fmt.Sprintf("failed to read record store '%s'", s.path), err)
	}

	var doc collectionDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		// A parse error means the collection exists but cannot be
		// trusted. Treating it as empty would silently discard every
		// record, so surface it instead.
		return nil, errors.NewAppError(errors.ErrStoreUnavailable,
			fmt.Sprintf("record store '%s' is corrupt", s.path), err)
	}

	return doc.Files, nil
}

// save persists the whole collection atomically. Callers must hold the lock.
func (s *JSONFileStore) save(files []*models.FileRecord) error {
	if files == nil {
		files = []*models.FileRecord{}
	}

	data, err := json.MarshalIndent(collectionDocument{Files: files}, "", "  ")
	if err != nil {
		return errors.NewAppError(errors.ErrPersistFailure, "failed to encode record collection", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return errors.NewAppError(errors.ErrPersistFailure,
			fmt.Sprintf("failed to create temporary file for '%s'", s.path), err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.NewAppError(errors.ErrPersistFailure,
			fmt.Sprintf("failed to write record store '%s'", s.path), err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.NewAppError(errors.ErrPersistFailure,
			fmt.Sprintf("failed to set permissions on record store '%s'", s.path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.NewAppError(errors.ErrPersistFailure,
			fmt.Sprintf("failed to flush record store '%s'", s.path), err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return errors.NewAppError(errors.ErrPersistFailure,
			fmt.Sprintf("failed to replace record store '%s'", s.path), err)
	}

	return nil
}
