package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"docvault/internal/model"
	"docvault/internal/repository"
)

var tracer = otel.Tracer("docvault/internal/service")

// Option customises a service at construction.
type Option func(*settings)

type settings struct {
	now func() time.Time
	log *zap.Logger
}

// WithClock replaces the wall clock, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// WithLogger sets the logger used for non-fatal failures.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}

func newSettings(opts []Option) settings {
	s := settings{
		now: func() time.Time { return time.Now().UTC() },
		log: zap.NewNop(),
	}
	for _, o := range opts {
		o(&s)
	}
	return s
}

// base carries what the document and sharing services have in common.
type base struct {
	settings
	docs      repository.DocumentRepository
	audit     *AccessLogger
	opTimeout time.Duration
}

// bounded derives a context limited by the configured operation timeout.
func (b *base) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.opTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, b.opTimeout)
}

// loadDocument fetches a document. Only a missing row means the document is
// gone; a soft-deleted row stays restorable until the sweeper removes it.
func (b *base) loadDocument(ctx context.Context, id string) (*model.Document, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: document id is required", ErrValidation)
	}
	doc, err := b.docs.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "document "+id)
	}
	return doc, nil
}

// requireOwner enforces owner-only mutations. A soft-deleted document stays
// invisible to non-owners.
func (b *base) requireOwner(doc *model.Document, actor model.Actor) error {
	if actor.Anonymous() {
		return ErrUnauthenticated
	}
	if doc.IsOwner(actor.UserID) {
		return nil
	}
	if doc.IsDeleted {
		return fmt.Errorf("%w: document %s", ErrNotFound, doc.ID)
	}
	return fmt.Errorf("%w: only the owner may modify document %s", ErrForbidden, doc.ID)
}

// requireActive rejects mutations on soft-deleted documents.
func requireActive(doc *model.Document) error {
	if doc.State() != model.StateActive {
		return fmt.Errorf("%w: document %s is deleted", ErrConflict, doc.ID)
	}
	return nil
}
