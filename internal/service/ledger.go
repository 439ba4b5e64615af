package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"docvault/internal/metrics"
	"docvault/internal/model"
	"docvault/internal/repository"
)

// DefaultAppendAttempts bounds optimistic version appends when no limit is configured.
const DefaultAppendAttempts = 3

// VersionLedger maintains the append-only, gap-free version sequence of each document.
type VersionLedger struct {
	settings
	docs        repository.DocumentRepository
	versions    repository.VersionRepository
	maxAttempts int
}

func NewVersionLedger(docs repository.DocumentRepository, versions repository.VersionRepository, maxAttempts int, opts ...Option) *VersionLedger {
	if maxAttempts <= 0 {
		maxAttempts = DefaultAppendAttempts
	}
	return &VersionLedger{settings: newSettings(opts), docs: docs, versions: versions, maxAttempts: maxAttempts}
}

// Append numbers v as latest_version+1 of the document and stores it.
// A lost race reloads the document and tries again; after maxAttempts the
// call fails with ErrConflict. On success v carries its assigned number and
// the returned document reflects the new latest_version.
func (l *VersionLedger) Append(ctx context.Context, documentID string, v *model.DocumentVersion) (*model.Document, error) {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		doc, err := l.docs.FindByID(ctx, documentID)
		if err != nil {
			return nil, translate(err, "document "+documentID)
		}
		if err := requireActive(doc); err != nil {
			return nil, err
		}

		v.DocumentID = doc.ID
		v.VersionNumber = doc.LatestVersion + 1
		v.UploadedAt = l.now()

		err = l.versions.AppendVersion(ctx, v, doc.LatestVersion)
		if err == nil {
			doc.LatestVersion = v.VersionNumber
			doc.UpdatedAt = v.UploadedAt
			return doc, nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return nil, translate(err, "append version")
		}
		if attempt >= l.maxAttempts {
			metrics.VersionAppendConflicts.WithLabelValues("exhausted").Inc()
			l.log.Warn("version_append_conflict",
				zap.String("document_id", documentID),
				zap.Int("attempts", attempt),
			)
			return nil, fmt.Errorf("%w: version %d of document %s was taken concurrently after %d attempts",
				ErrConflict, v.VersionNumber, documentID, attempt)
		}
		metrics.VersionAppendConflicts.WithLabelValues("retried").Inc()
	}
}

// Get returns version number of doc, or its latest version when number is nil.
func (l *VersionLedger) Get(ctx context.Context, doc *model.Document, number *int) (*model.DocumentVersion, error) {
	n := doc.LatestVersion
	if number != nil {
		n = *number
	}
	if n < 1 {
		return nil, fmt.Errorf("%w: version %d of document %s", ErrNotFound, n, doc.ID)
	}
	v, err := l.versions.FindVersion(ctx, doc.ID, n)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("version %d of document %s", n, doc.ID))
	}
	return v, nil
}

// List returns a snapshot of the ledger, highest version first.
func (l *VersionLedger) List(ctx context.Context, doc *model.Document) ([]model.DocumentVersion, error) {
	versions, err := l.versions.ListVersions(ctx, doc.ID)
	if err != nil {
		return nil, translate(err, "list versions")
	}
	return versions, nil
}
