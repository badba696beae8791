package models

import "time"

// FileRecord represents the metadata for one uploaded file.
//
// The JSON field names match the persisted collection layout
// (a single {"files": [...]} document), so databases written by
// earlier deployments remain readable across upgrades.
type FileRecord struct {
	ID           string     `json:"id"`
	StorageName  string     `json:"filename"`
	OriginalName string     `json:"originalName"`
	MimeType     string     `json:"mimeType"`
	SizeBytes    int64      `json:"size"`
	UploadedAt   time.Time  `json:"uploadDate"`
	ExpiresAt    *time.Time `json:"expiryDate"` // nil means the record never expires
	ViewCount    int64      `json:"views"`
}

// IsExpired reports whether the record has passed its expiration date
// as of the given time. Records without an expiration never expire.
func (r *FileRecord) IsExpired(now time.Time) bool {
	if r.ExpiresAt == nil {
		return false
	}
	return !r.ExpiresAt.After(now)
}

// Clone returns a deep copy of the record. Stores hand out clones so
// callers can never mutate persisted state in place.
func (r *FileRecord) Clone() *FileRecord {
	copied := *r
	if r.ExpiresAt != nil {
		expiry := *r.ExpiresAt
		copied.ExpiresAt = &expiry
	}
	return &copied
}
