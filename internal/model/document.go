package model

import "time"

// LifecycleState is the position of a document in Active -> SoftDeleted -> Purged.
// Only the sweeper moves a document to Purged, by removing its rows.
type LifecycleState string

const (
	StateActive      LifecycleState = "active"
	StateSoftDeleted LifecycleState = "soft_deleted"
	StatePurged      LifecycleState = "purged"
)

// Document is the metadata half of the document aggregate.
// This is a pure domain model with no database-specific dependencies or tags.
type Document struct {
	ID             string     `json:"id"`
	OwnerID        string     `json:"owner_id"`
	FolderID       *string    `json:"folder_id,omitempty"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	LatestVersion  int        `json:"latest_version"`
	IsPublic       bool       `json:"is_public"`
	IsDeleted      bool       `json:"is_deleted"`
	IsFavorite     bool       `json:"is_favorite"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	PurgeAt        *time.Time `json:"purge_at,omitempty"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// State derives the lifecycle state of a stored document. A document that
// still has a row is never Purged, whatever its purge time.
func (d *Document) State() LifecycleState {
	if d.IsDeleted {
		return StateSoftDeleted
	}
	return StateActive
}

// PurgeDue reports whether the sweeper may purge the document at now.
func (d *Document) PurgeDue(now time.Time) bool {
	return d.IsDeleted && d.PurgeAt != nil && !now.Before(*d.PurgeAt)
}

// Expired reports whether the document-level expiry has passed.
func (d *Document) Expired(now time.Time) bool {
	return d.ExpiresAt != nil && !now.Before(*d.ExpiresAt)
}

// IsOwner reports whether userID owns the document.
func (d *Document) IsOwner(userID string) bool {
	return userID != "" && d.OwnerID == userID
}

// DocumentVersion is one immutable entry of a document's version ledger.
type DocumentVersion struct {
	ID              string    `json:"id"`
	DocumentID      string    `json:"document_id"`
	VersionNumber   int       `json:"version_number"`
	FileName        string    `json:"file_name"`
	FilePath        string    `json:"file_path"`
	FileType        string    `json:"file_type"`
	MimeType        string    `json:"mime_type"`
	FileSize        int64     `json:"file_size"`
	FileHash        string    `json:"file_hash"`
	StorageProvider string    `json:"storage_provider"`
	UploadedBy      string    `json:"uploaded_by"`
	ChangeSummary   string    `json:"change_summary"`
	IsAutosave      bool      `json:"is_autosave"`
	UploadedAt      time.Time `json:"uploaded_at"`
}

// DocumentDetail is a document with its explicitly loaded associations.
type DocumentDetail struct {
	Document
	Versions []DocumentVersion `json:"versions"`
	Tags     []string          `json:"tags"`
	Shares   []Share           `json:"shares,omitempty"`
}

// DocumentFilter narrows an owner's document listing.
type DocumentFilter struct {
	OwnerID   string
	FolderID  *string
	Search    string
	Favorites bool
	Limit     int
	Offset    int
}
