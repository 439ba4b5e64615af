package sweeper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"docvault/internal/metrics"
	"docvault/internal/model"
	"docvault/internal/repository"
	"docvault/internal/storage"
)

// DefaultBatchSize bounds how many documents one run purges.
const DefaultBatchSize = 100

// Sweeper hard-deletes soft-deleted documents whose purge time has passed,
// together with every blob their versions reference.
type Sweeper struct {
	docs     repository.DocumentRepository
	versions repository.VersionRepository
	store    storage.Storage
	log      *zap.Logger
	batch    int
	now      func() time.Time
}

func New(docs repository.DocumentRepository, versions repository.VersionRepository, store storage.Storage, log *zap.Logger, batch int) *Sweeper {
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Sweeper{
		docs:     docs,
		versions: versions,
		store:    store,
		log:      log.With(zap.String("component", "sweeper")),
		batch:    batch,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the wall clock.
func (s *Sweeper) WithClock(now func() time.Time) *Sweeper {
	s.now = now
	return s
}

// Run purges one batch and returns how many documents were removed. Rows are
// deleted first, conditionally, so a document restored after it was listed
// keeps its blobs. A blob that cannot be deleted once its row is gone is
// logged as orphaned and reported in the returned error.
func (s *Sweeper) Run(ctx context.Context) (int, error) {
	start := time.Now()
	now := s.now()
	docs, err := s.docs.ListPurgeable(ctx, now, s.batch)
	if err != nil {
		return 0, fmt.Errorf("list purgeable documents: %w", err)
	}

	purged, skipped := 0, 0
	var errs []error
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		ok, err := s.purge(ctx, doc.ID, now)
		if ok {
			purged++
			metrics.DocumentsPurged.Inc()
		} else if err == nil {
			skipped++
		}
		if err != nil {
			s.log.Error("document_purge_failed", zap.String("document_id", doc.ID), zap.Error(err))
			errs = append(errs, err)
		}
	}

	s.log.Info("sweep_complete",
		zap.Int("candidates", len(docs)),
		zap.Int("purged", purged),
		zap.Int("skipped", skipped),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return purged, errors.Join(errs...)
}

// purge reports whether the document rows were removed. The version list is
// read before the delete because the rows cascade away with the document.
func (s *Sweeper) purge(ctx context.Context, id string, now time.Time) (bool, error) {
	versions, err := s.versions.ListVersions(ctx, id)
	if err != nil {
		return false, fmt.Errorf("list versions of %s: %w", id, err)
	}
	if err := s.docs.HardDelete(ctx, id, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.Info("document_purge_skipped", zap.String("document_id", id))
			return false, nil
		}
		return false, fmt.Errorf("hard delete %s: %w", id, err)
	}
	s.log.Debug("document_purged", zap.String("document_id", id), zap.String("state", string(model.StatePurged)))

	var errs []error
	for _, v := range versions {
		err := s.store.Delete(ctx, v.FilePath)
		if err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
			s.log.Warn("orphaned_blob", zap.String("document_id", id), zap.String("key", v.FilePath), zap.Error(err))
			errs = append(errs, fmt.Errorf("delete blob %s: %w", v.FilePath, err))
		}
	}
	return true, errors.Join(errs...)
}
