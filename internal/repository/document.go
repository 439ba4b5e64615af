package repository

import (
	"context"
	"time"

	"docvault/internal/model"
)

// DocumentRepository defines data access for documents using SQL queries only.
// No business logic here, only persistence.
type DocumentRepository interface {
	// CreateWithVersion inserts the document, its first version and its tags in
	// one transaction. Nothing is persisted if any statement fails.
	CreateWithVersion(ctx context.Context, doc *model.Document, version *model.DocumentVersion, tags []string) error

	// FindByID returns a document by its ID.
	FindByID(ctx context.Context, id string) (*model.Document, error)

	// List returns a paginated list of documents and total rows count for the given filter.
	List(ctx context.Context, f model.DocumentFilter) (*PageResult[model.Document], error)

	// UpdateMetadata persists the mutable metadata columns of doc.
	UpdateMetadata(ctx context.Context, doc *model.Document) error

	// SetDeleted writes the soft-delete flag and purge time.
	SetDeleted(ctx context.Context, id string, deleted bool, purgeAt *time.Time, at time.Time) error

	// Touch records the last access time.
	Touch(ctx context.Context, id string, at time.Time) error

	// ReplaceTags makes the document's tag set exactly tags.
	ReplaceTags(ctx context.Context, id string, tags []string, by string) error

	// Tags returns the document's tag names in name order.
	Tags(ctx context.Context, id string) ([]string, error)

	// ListPurgeable returns soft-deleted documents whose purge time is at or before now.
	ListPurgeable(ctx context.Context, now time.Time, limit int) ([]model.Document, error)

	// HardDelete removes the document and everything it owns, but only while it
	// is still soft-deleted with a purge time at or before now. ErrNotFound
	// means the row is gone or was restored in the meantime.
	HardDelete(ctx context.Context, id string, now time.Time) error
}

// VersionRepository persists the append-only version ledger.
type VersionRepository interface {
	// AppendVersion inserts v and advances documents.latest_version from
	// expectedLatest to v.VersionNumber atomically. It returns ErrVersionConflict
	// when latest_version no longer equals expectedLatest or the number is taken.
	AppendVersion(ctx context.Context, v *model.DocumentVersion, expectedLatest int) error

	// FindVersion returns the version with the given number.
	FindVersion(ctx context.Context, documentID string, number int) (*model.DocumentVersion, error)

	// ListVersions returns every version, highest number first.
	ListVersions(ctx context.Context, documentID string) ([]model.DocumentVersion, error)
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}
