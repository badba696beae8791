// Package blob provides byte storage for uploaded files, keyed by the
// storage name derived from a record id.
package blob

import (
	"context"
	"io"
)

// Store defines the contract for blob storage operations
type Store interface {
	// Write persists the content under storageName and returns the
	// number of bytes written. A partially written blob must never be
	// observable under its final name.
	Write(ctx context.Context, storageName string, content io.Reader) (int64, error)

	// Exists reports whether a blob is present under storageName.
	Exists(ctx context.Context, storageName string) (bool, error)

	// Read opens the blob for streaming. Fails with FILE_NOT_FOUND if
	// absent. The caller owns the returned ReadCloser.
	Read(ctx context.Context, storageName string) (io.ReadCloser, error)

	// Delete removes the blob. Deleting an absent blob is not an
	// error, so reclamation stays idempotent.
	Delete(ctx context.Context, storageName string) error
}
