package sweeper

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docvault/internal/metrics"
	"docvault/internal/model"
	"docvault/internal/repository"
	"docvault/internal/repository/memory"
	repomocks "docvault/internal/repository/mocks"
	"docvault/internal/storage"
	storagemocks "docvault/internal/storage/mocks"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func seed(t *testing.T, db *memory.Store, blobs *storage.MemoryStorage, id string, purgeAt *time.Time) {
	t.Helper()
	ctx := context.Background()
	doc := &model.Document{ID: id, OwnerID: "alice", Title: id, LatestVersion: 1, IsDeleted: purgeAt != nil, PurgeAt: purgeAt}
	key := "documents/" + id + ".txt"
	_, err := blobs.Put(ctx, key, bytes.NewReader([]byte(id)), storage.PutObjectOptions{Size: int64(len(id))})
	require.NoError(t, err)
	v := &model.DocumentVersion{ID: id + "-v1", DocumentID: id, VersionNumber: 1, FilePath: key, FileSize: int64(len(id))}
	require.NoError(t, db.Documents().CreateWithVersion(ctx, doc, v, nil))
}

func TestRun_PurgesExpiredDocuments(t *testing.T) {
	db := memory.New()
	blobs := storage.NewMemory()
	past, future := now.Add(-time.Hour), now.Add(time.Hour)
	seed(t, db, blobs, "due", &past)
	seed(t, db, blobs, "retained", &future)
	seed(t, db, blobs, "live", nil)

	before := testutil.ToFloat64(metrics.DocumentsPurged)
	s := New(db.Documents(), db.Documents(), blobs, nil, 10).WithClock(func() time.Time { return now })

	n, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.DocumentsPurged))

	_, err = db.Documents().FindByID(context.Background(), "due")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	ok, _ := blobs.Exists(context.Background(), "documents/due.txt")
	assert.False(t, ok)
	assert.Equal(t, 2, blobs.Len())

	n, err = s.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

// restoringDocuments restores one document right after it has been listed.
type restoringDocuments struct {
	*memory.Documents
	restore string
}

func (r restoringDocuments) ListPurgeable(ctx context.Context, at time.Time, limit int) ([]model.Document, error) {
	docs, err := r.Documents.ListPurgeable(ctx, at, limit)
	if err == nil {
		err = r.Documents.SetDeleted(ctx, r.restore, false, nil, at)
	}
	return docs, err
}

func TestRun_RestoreAfterListingKeepsDocument(t *testing.T) {
	db := memory.New()
	blobs := storage.NewMemory()
	past := now.Add(-time.Hour)
	seed(t, db, blobs, "due", &past)
	seed(t, db, blobs, "restored", &past)

	docs := restoringDocuments{Documents: db.Documents(), restore: "restored"}
	s := New(docs, db.Documents(), blobs, nil, 10).WithClock(func() time.Time { return now })

	n, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	doc, err := db.Documents().FindByID(context.Background(), "restored")
	require.NoError(t, err)
	assert.False(t, doc.IsDeleted)
	ok, _ := blobs.Exists(context.Background(), "documents/restored.txt")
	assert.True(t, ok, "blobs of a restored document survive the sweep")
	ok, _ = blobs.Exists(context.Background(), "documents/due.txt")
	assert.False(t, ok)
}

func TestRun_DeletesRowsBeforeBlobs(t *testing.T) {
	docs := new(repomocks.MockDocumentRepository)
	versions := new(repomocks.MockVersionRepository)
	store := new(storagemocks.MockStorage)

	docs.On("ListPurgeable", mock.Anything, now, DefaultBatchSize).Return([]model.Document{{ID: "a"}, {ID: "b"}, {ID: "c"}}, nil)
	versions.On("ListVersions", mock.Anything, "a").Return([]model.DocumentVersion{{FilePath: "documents/a1"}, {FilePath: "documents/a2"}}, nil)
	versions.On("ListVersions", mock.Anything, "b").Return([]model.DocumentVersion{{FilePath: "documents/b1"}}, nil)
	versions.On("ListVersions", mock.Anything, "c").Return([]model.DocumentVersion{{FilePath: "documents/c1"}}, nil)
	docs.On("HardDelete", mock.Anything, "a", now).Return(nil)
	docs.On("HardDelete", mock.Anything, "b", now).Return(nil)
	docs.On("HardDelete", mock.Anything, "c", now).Return(repository.ErrNotFound)
	store.On("Delete", mock.Anything, "documents/a1").Return(storage.ErrObjectNotFound)
	store.On("Delete", mock.Anything, "documents/a2").Return(nil)
	store.On("Delete", mock.Anything, "documents/b1").Return(errors.New("bucket unreachable"))

	s := New(docs, versions, store, nil, 0).WithClock(func() time.Time { return now })
	n, err := s.Run(context.Background())

	assert.Equal(t, 2, n)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket unreachable")
	store.AssertNotCalled(t, "Delete", mock.Anything, "documents/c1")
	docs.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestRun_ListFailure(t *testing.T) {
	docs := new(repomocks.MockDocumentRepository)
	docs.On("ListPurgeable", mock.Anything, mock.Anything, 5).Return(nil, errors.New("db down"))

	s := New(docs, new(repomocks.MockVersionRepository), new(storagemocks.MockStorage), nil, 5)
	n, err := s.Run(context.Background())

	assert.Zero(t, n)
	assert.ErrorContains(t, err, "db down")
}
