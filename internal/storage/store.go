package storage

import (
	"time"

	"file-drop-service/internal/models"
)

// RecordStore defines the contract for persisting file metadata records.
//
// Implementations must serialize all mutating operations on the same
// store instance: the persistence model has no partial updates, so an
// unserialized read-modify-write would silently drop concurrent changes.
// Reads must never surface a corrupt backing medium as an empty
// collection — that is a STORE_UNAVAILABLE error.
type RecordStore interface {
	// Insert adds a new record. Fails with DUPLICATE_RECORD if the id
	// is already present.
	Insert(record *models.FileRecord) error

	// Find returns the record with the given id, or RECORD_NOT_FOUND.
	Find(id string) (*models.FileRecord, error)

	// Update atomically loads the record, applies mutate to it and
	// persists the result. Fails with RECORD_NOT_FOUND if absent.
	// Returns the record as persisted.
	Update(id string, mutate func(*models.FileRecord)) (*models.FileRecord, error)

	// Remove deletes the record with the given id. Removing an absent
	// id is not an error, so cleanup stays idempotent.
	Remove(id string) error

	// ListExpired returns all records whose expiration is set and has
	// passed as of the given time.
	ListExpired(asOf time.Time) ([]*models.FileRecord, error)

	// ListAll returns every record in the store.
	ListAll() ([]*models.FileRecord, error)

	// Close releases any resources held by the store.
	Close() error
}
