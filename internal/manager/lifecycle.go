package manager

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"file-drop-service/internal/blob"
	"file-drop-service/internal/expiry"
	"file-drop-service/internal/models"
	"file-drop-service/internal/storage"
	"file-drop-service/pkg/errors"
	"file-drop-service/pkg/logger"
)

// IngestRequest carries everything needed to accept one upload
type IngestRequest struct {
	Content        io.Reader
	OriginalName   string
	MimeType       string
	SizeBytes      int64
	ExpirySelector string
	Now            time.Time
}

// Lifecycle interface defines the contract for file lifecycle management
type Lifecycle interface {
	// Ingest accepts uploaded bytes, persists them and creates the
	// metadata record. The blob is written before the record so a
	// record never points at missing bytes.
	Ingest(ctx context.Context, req IngestRequest) (*models.FileRecord, error)

	// Retrieve returns the record and a stream of its bytes,
	// incrementing the view counter. An expired record is reclaimed on
	// the spot and reported as FILE_EXPIRED.
	Retrieve(ctx context.Context, id string, now time.Time) (*models.FileRecord, io.ReadCloser, error)

	// ReclaimExpired deletes every expired record and its blob,
	// returning the number of records reclaimed. Per-record failures
	// are logged and skipped so one bad entry cannot block cleanup.
	ReclaimExpired(ctx context.Context, now time.Time) (int, error)
}

// LifecycleImpl implements the Lifecycle interface
type LifecycleImpl struct {
	records      storage.RecordStore
	blobs        blob.Store
	allowedTypes map[string]bool
	maxSizeBytes int64
	logger       *logger.Logger
}

// NewLifecycle creates a new Lifecycle instance. allowedTypes is the
// MIME allow-list; maxSizeBytes caps a single upload (0 means no cap).
func NewLifecycle(records storage.RecordStore, blobs blob.Store, allowedTypes []string, maxSizeBytes int64) *LifecycleImpl {
	allowed := make(map[string]bool, len(allowedTypes))
	for _, mimeType := range allowedTypes {
		allowed[strings.ToLower(mimeType)] = true
	}

	return &LifecycleImpl{
		records:      records,
		blobs:        blobs,
		allowedTypes: allowed,
		maxSizeBytes: maxSizeBytes,
		logger:       logger.NewWithComponent("lifecycle"),
	}
}

// Ingest accepts uploaded bytes and creates their metadata record
func (l *LifecycleImpl) Ingest(ctx context.Context, req IngestRequest) (*models.FileRecord, error) {
	if req.Content == nil {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "upload content cannot be nil", nil)
	}
	if req.OriginalName == "" {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "original file name cannot be empty", nil)
	}

	if !l.allowedTypes[strings.ToLower(req.MimeType)] {
		return nil, errors.NewAppError(errors.ErrUnsupportedType,
			fmt.Sprintf("file type '%s' is not allowed", req.MimeType), nil)
	}
	if l.maxSizeBytes > 0 && req.SizeBytes > l.maxSizeBytes {
		return nil, errors.NewAppError(errors.ErrFileTooBig,
			fmt.Sprintf("file size %d exceeds maximum %d", req.SizeBytes, l.maxSizeBytes), nil)
	}

	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}

	id := generateID()
	storageName := id + filepath.Ext(req.OriginalName)

	// Blob first: a record must never exist without its bytes. The
	// reverse (a transient orphan blob) is harmless and swept later.
	written, err := l.blobs.Write(ctx, storageName, req.Content)
	if err != nil {
		return nil, err
	}

	if written == 0 {
		l.deleteBlobBestEffort(ctx, storageName)
		return nil, errors.NewAppError(errors.ErrFileEmpty, "uploaded file is empty", nil)
	}
	if l.maxSizeBytes > 0 && written > l.maxSizeBytes {
		l.deleteBlobBestEffort(ctx, storageName)
		return nil, errors.NewAppError(errors.ErrFileTooBig,
			fmt.Sprintf("file size %d exceeds maximum %d", written, l.maxSizeBytes), nil)
	}

	record := &models.FileRecord{
		ID:           id,
		StorageName:  storageName,
		OriginalName: req.OriginalName,
		MimeType:     req.MimeType,
		SizeBytes:    written,
		UploadedAt:   now,
		ExpiresAt:    expiry.Resolve(req.ExpirySelector, now),
		ViewCount:    0,
	}

	if err := l.records.Insert(record); err != nil {
		// Compensate: drop the just-written blob so the failed ingest
		// leaves nothing behind, then propagate the original failure.
		l.deleteBlobBestEffort(ctx, storageName)
		return nil, err
	}

	l.logger.InfoWithFields("File ingested", map[string]interface{}{
		"file_id":      id,
		"storage_name": storageName,
		"size_bytes":   written,
		"mime_type":    record.MimeType,
	})

	return record.Clone(), nil
}

// Retrieve returns a record and its bytes, counting the view
func (l *LifecycleImpl) Retrieve(ctx context.Context, id string, now time.Time) (*models.FileRecord, io.ReadCloser, error) {
	record, err := l.records.Find(id)
	if err != nil {
		return nil, nil, err
	}

	if record.IsExpired(now) {
		// Lazy reclamation: expired content must never be served, even
		// if the sweep has not run yet.
		l.reclaimOne(ctx, record)
		return nil, nil, errors.NewAppError(errors.ErrFileExpired,
			fmt.Sprintf("file '%s' has expired", id), nil)
	}

	updated, err := l.records.Update(id, func(r *models.FileRecord) {
		r.ViewCount++
	})
	if err != nil {
		// The record can vanish between Find and Update if a sweep won
		// the race; that is an ordinary miss, not a hard failure.
		return nil, nil, err
	}

	content, err := l.blobs.Read(ctx, record.StorageName)
	if err != nil {
		if errors.IsCode(err, errors.ErrFileNotFound) {
			// Metadata without bytes means the store and blob layers
			// diverged. Distinct from a normal miss.
			l.logger.ErrorWithFields("Record has no backing blob", map[string]interface{}{
				"file_id":      id,
				"storage_name": record.StorageName,
			})
			return nil, nil, errors.NewAppError(errors.ErrIntegrityViolation,
				fmt.Sprintf("blob '%s' missing for record '%s'", record.StorageName, id), err)
		}
		return nil, nil, err
	}

	return updated, content, nil
}

// ReclaimExpired deletes all expired records and their blobs
func (l *LifecycleImpl) ReclaimExpired(ctx context.Context, now time.Time) (int, error) {
	expired, err := l.records.ListExpired(now)
	if err != nil {
		return 0, err
	}

	reclaimed := 0
	for _, record := range expired {
		if l.reclaimOne(ctx, record) {
			reclaimed++
		}
	}

	if reclaimed > 0 {
		l.logger.InfoWithFields("Reclaimed expired files", map[string]interface{}{
			"reclaimed": reclaimed,
		})
	}

	return reclaimed, nil
}

// reclaimOne deletes a single record and its blob. Blob deletion comes
// first so a failure never leaves an unreachable orphan blob behind.
// Returns true if the record was removed.
func (l *LifecycleImpl) reclaimOne(ctx context.Context, record *models.FileRecord) bool {
	if err := l.blobs.Delete(ctx, record.StorageName); err != nil {
		l.logger.WarnWithError(
			fmt.Sprintf("Failed to delete blob '%s' during reclamation, keeping record", record.StorageName), err)
		return false
	}

	if err := l.records.Remove(record.ID); err != nil {
		l.logger.WarnWithError(
			fmt.Sprintf("Failed to remove record '%s' during reclamation", record.ID), err)
		return false
	}

	return true
}

// deleteBlobBestEffort removes a blob, logging instead of failing
func (l *LifecycleImpl) deleteBlobBestEffort(ctx context.Context, storageName string) {
	if err := l.blobs.Delete(ctx, storageName); err != nil {
		l.logger.WarnWithError(
			fmt.Sprintf("Failed to delete orphan blob '%s'", storageName), err)
	}
}

// generateID returns a fresh opaque file identifier: a 128-bit UUID
// encoded as 22 unpadded base64url characters. Compact enough for a
// share link, large enough that collisions are negligible.
func generateID() string {
	id := uuid.New()
	return base64.RawURLEncoding.EncodeToString(id[:])
}
