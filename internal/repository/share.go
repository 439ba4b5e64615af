package repository

import (
	"context"
	"time"

	"docvault/internal/model"
)

// ShareRepository persists direct and group shares.
type ShareRepository interface {
	// Create inserts a share. A second share for the same (document, user) or
	// (document, group) returns ErrDuplicate.
	Create(ctx context.Context, s *model.Share) error

	// FindByID returns a share by ID.
	FindByID(ctx context.Context, id string) (*model.Share, error)

	// ListByDocument returns every share of a document, expired ones included.
	ListByDocument(ctx context.Context, documentID string) ([]model.Share, error)

	// ActiveUserShare returns the user's unexpired direct share, or ErrNotFound.
	ActiveUserShare(ctx context.Context, documentID, userID string, now time.Time) (*model.Share, error)

	// ActiveGroupShares returns the document's unexpired group shares.
	ActiveGroupShares(ctx context.Context, documentID string, now time.Time) ([]model.Share, error)

	// IncrementAccess bumps the share's access_count by one.
	IncrementAccess(ctx context.Context, id string) error

	// Delete removes a share.
	Delete(ctx context.Context, id string) error
}

// PublicLinkRepository persists public link capabilities.
type PublicLinkRepository interface {
	Create(ctx context.Context, l *model.PublicLink) error
	FindByID(ctx context.Context, id string) (*model.PublicLink, error)
	ListByDocument(ctx context.Context, documentID string) ([]model.PublicLink, error)

	// ConsumeUse increments use_count in one compare-and-increment statement and
	// returns the new count. An expired or exhausted link returns ErrLinkUnavailable.
	ConsumeUse(ctx context.Context, id string, now time.Time) (int, error)

	Delete(ctx context.Context, id string) error
}

// AccessLogRepository is the append-only audit sink.
type AccessLogRepository interface {
	Append(ctx context.Context, e *model.AccessLogEntry) error
}

// GroupRepository answers group membership questions from local tables.
type GroupRepository interface {
	IsMember(ctx context.Context, userID, groupID string) (bool, error)
}
