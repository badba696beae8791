package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"file-drop-service/pkg/errors"
)

// DiskStore implements Store on the local filesystem.
//
// Blobs are written to a temporary sibling first and renamed into
// place, so readers never observe a half-written file under its final
// name.
type DiskStore struct {
	dir string
}

// NewDiskStore creates a blob store rooted at dir, creating it if needed.
func NewDiskStore(dir string) (*DiskStore, error) {
	if dir == "" {
		return nil, errors.NewAppError(errors.ErrInvalidConfig, "blob directory cannot be empty", nil)
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errors.NewAppError(errors.ErrIOFailure,
			fmt.Sprintf("failed to create blob directory '%s'", dir), err)
	}

	return &DiskStore{dir: dir}, nil
}

// Write persists the content under storageName via a temp file and rename
func (s *DiskStore) Write(ctx context.Context, storageName string, content io.Reader) (int64, error) {
	if err := validateStorageName(storageName); err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(s.dir, storageName+".tmp-*")
	if err != nil {
		return 0, errors.NewAppError(errors.ErrIOFailure,
			fmt.Sprintf("failed to create temporary blob for '%s'", storageName), err)
	}
	tmpName := tmp.Name()

	written, err := io.Copy(tmp, content)
	if err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return 0, errors.NewAppError(errors.ErrIOFailure,
			fmt.Sprintf("failed to write blob '%s'", storageName), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return 0, errors.NewAppError(errors.ErrIOFailure,
			fmt.Sprintf("failed to flush blob '%s'", storageName), err)
	}

	if err := os.Rename(tmpName, filepath.Join(s.dir, storageName)); err != nil {
		os.Remove(tmpName)
		return 0, errors.NewAppError(errors.ErrIOFailure,
			fmt.Sprintf("failed to finalize blob '%s'", storageName), err)
	}

	return written, nil
}

// Exists reports whether the blob is present
func (s *DiskStore) Exists(ctx context.Context, storageName string) (bool, error) {
	if err := validateStorageName(storageName); err != nil {
		return false, err
	}

	_, err := os.Stat(filepath.Join(s.dir, storageName))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.NewAppError(errors.ErrIOFailure,
			fmt.Sprintf("failed to stat blob '%s'", storageName), err)
	}

	return true, nil
}

// Read opens the blob for streaming
func (s *DiskStore) Read(ctx context.Context, storageName string) (io.ReadCloser, error) {
	if err := validateStorageName(storageName); err != nil {
		return nil, err
	}

	file, err := os.Open(filepath.Join(s.dir, storageName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewAppError(errors.ErrFileNotFound,
				fmt.Sprintf("blob '%s' not found", storageName), err)
		}
		return nil, errors.NewAppError(errors.ErrIOFailure,
			fmt.Sprintf("failed to open blob '%s'", storageName), err)
	}

	return file, nil
}

// Delete removes the blob; absence is not an error
func (s *DiskStore) Delete(ctx context.Context, storageName string) error {
	if err := validateStorageName(storageName); err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(s.dir, storageName)); err != nil && !os.IsNotExist(err) {
		return errors.NewAppError(errors.ErrIOFailure,
			fmt.Sprintf("failed to delete blob '%s'", storageName), err)
	}

	return nil
}

// validateStorageName rejects names that would escape the blob directory
func validateStorageName(storageName string) error {
	if storageName == "" {
		return errors.NewAppError(errors.ErrInvalidInput, "storage name cannot be empty", nil)
	}
	if strings.ContainsAny(storageName, `/\`) || storageName == "." || storageName == ".." ||
		filepath.Base(storageName) != storageName {
		return errors.NewAppError(errors.ErrInvalidInput,
			fmt.Sprintf("invalid storage name '%s'", storageName), nil)
	}
	return nil
}
