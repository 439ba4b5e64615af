package memory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docvault/internal/model"
	"docvault/internal/repository"
)

func seed(t *testing.T, s *Store, id, owner string, created time.Time) {
	t.Helper()
	err := s.Documents().CreateWithVersion(context.Background(),
		&model.Document{ID: id, OwnerID: owner, Title: "doc " + id, LatestVersion: 1, CreatedAt: created, UpdatedAt: created},
		&model.DocumentVersion{ID: id + "-v1", DocumentID: id, VersionNumber: 1, UploadedAt: created},
		[]string{"b", "a"})
	require.NoError(t, err)
}

func TestDocuments_AppendVersionCAS(t *testing.T) {
	s := New()
	now := time.Now()
	seed(t, s, "d1", "alice", now)
	docs := s.Documents()
	ctx := context.Background()

	assert.ErrorIs(t, docs.AppendVersion(ctx, &model.DocumentVersion{DocumentID: "d1", VersionNumber: 3}, 2),
		repository.ErrVersionConflict)
	require.NoError(t, docs.AppendVersion(ctx, &model.DocumentVersion{ID: "v2", DocumentID: "d1", VersionNumber: 2}, 1))
	assert.ErrorIs(t, docs.AppendVersion(ctx, &model.DocumentVersion{DocumentID: "d1", VersionNumber: 2}, 1),
		repository.ErrVersionConflict)

	d, err := docs.FindByID(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, 2, d.LatestVersion)

	versions, err := docs.ListVersions(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, 2, versions[0].VersionNumber)
}

func TestDocuments_AppendVersionRejectsDeleted(t *testing.T) {
	s := New()
	now := time.Now()
	seed(t, s, "d1", "alice", now)
	docs := s.Documents()
	ctx := context.Background()
	purgeAt := now.Add(time.Hour)
	require.NoError(t, docs.SetDeleted(ctx, "d1", true, &purgeAt, now))

	err := docs.AppendVersion(ctx, &model.DocumentVersion{ID: "v2", DocumentID: "d1", VersionNumber: 2}, 1)

	assert.ErrorIs(t, err, repository.ErrVersionConflict)
	versions, err := docs.ListVersions(ctx, "d1")
	require.NoError(t, err)
	assert.Len(t, versions, 1)
}

func TestDocuments_ConcurrentAppendsHaveOneWinnerPerNumber(t *testing.T) {
	s := New()
	seed(t, s, "d1", "alice", time.Now())
	docs := s.Documents()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v := &model.DocumentVersion{ID: fmt.Sprintf("v-%d", i), DocumentID: "d1", VersionNumber: 2}
			if docs.AppendVersion(context.Background(), v, 1) == nil {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestDocuments_ListFiltersAndPaginates(t *testing.T) {
	s := New()
	base := time.Now()
	for i := 0; i < 5; i++ {
		seed(t, s, fmt.Sprintf("d%d", i), "alice", base.Add(time.Duration(i)*time.Minute))
	}
	seed(t, s, "other", "bob", base)
	ctx := context.Background()
	require.NoError(t, s.Documents().SetDeleted(ctx, "d4", true, nil, base))

	res, err := s.Documents().List(ctx, model.DocumentFilter{OwnerID: "alice", Limit: 2, Offset: 1})

	require.NoError(t, err)
	assert.Equal(t, 4, res.Total)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "d2", res.Items[0].ID)
	assert.Equal(t, "d1", res.Items[1].ID)

	res, err = s.Documents().List(ctx, model.DocumentFilter{OwnerID: "alice", Search: "DOC D3"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
}

func TestDocuments_HardDeleteCascades(t *testing.T) {
	s := New()
	now := time.Now()
	seed(t, s, "d1", "alice", now)
	ctx := context.Background()
	bob := "bob"

	require.NoError(t, s.Shares().Create(ctx, &model.Share{ID: "s1", DocumentID: "d1", SharedWithUser: &bob, Permission: model.PermissionView}))
	require.NoError(t, s.Links().Create(ctx, &model.PublicLink{ID: "tok", DocumentID: "d1", Permission: model.PermissionView}))
	require.NoError(t, s.AccessLogs().Append(ctx, &model.AccessLogEntry{ID: "l1", DocumentID: "d1", Action: model.ActionView}))

	assert.ErrorIs(t, s.Documents().HardDelete(ctx, "d1", now), repository.ErrNotFound, "live documents are not purged")

	purgeAt := now.Add(time.Hour)
	require.NoError(t, s.Documents().SetDeleted(ctx, "d1", true, &purgeAt, now))
	assert.ErrorIs(t, s.Documents().HardDelete(ctx, "d1", now), repository.ErrNotFound, "purge time not reached")

	require.NoError(t, s.Documents().HardDelete(ctx, "d1", purgeAt))

	_, err := s.Documents().FindByID(ctx, "d1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = s.Shares().FindByID(ctx, "s1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = s.Links().FindByID(ctx, "tok")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Empty(t, s.Logs())
	assert.ErrorIs(t, s.Documents().HardDelete(ctx, "d1", purgeAt), repository.ErrNotFound)
}

func TestDocuments_ListPurgeable(t *testing.T) {
	s := New()
	now := time.Now()
	seed(t, s, "due", "alice", now)
	seed(t, s, "later", "alice", now)
	seed(t, s, "live", "alice", now)
	ctx := context.Background()

	past, future := now.Add(-time.Second), now.Add(time.Hour)
	require.NoError(t, s.Documents().SetDeleted(ctx, "due", true, &past, now))
	require.NoError(t, s.Documents().SetDeleted(ctx, "later", true, &future, now))

	docs, err := s.Documents().ListPurgeable(ctx, now, 10)

	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "due", docs[0].ID)
}

func TestShares_UniqueTargetPerDocument(t *testing.T) {
	s := New()
	ctx := context.Background()
	bob, eng := "bob", "eng"

	require.NoError(t, s.Shares().Create(ctx, &model.Share{ID: "s1", DocumentID: "d1", SharedWithUser: &bob}))
	require.NoError(t, s.Shares().Create(ctx, &model.Share{ID: "s2", DocumentID: "d1", SharedWithGroup: &eng}))
	require.NoError(t, s.Shares().Create(ctx, &model.Share{ID: "s3", DocumentID: "d2", SharedWithUser: &bob}))

	assert.ErrorIs(t, s.Shares().Create(ctx, &model.Share{ID: "s4", DocumentID: "d1", SharedWithUser: &bob}), repository.ErrDuplicate)
	assert.ErrorIs(t, s.Shares().Create(ctx, &model.Share{ID: "s5", DocumentID: "d1", SharedWithGroup: &eng}), repository.ErrDuplicate)
}

func TestShares_ActiveIgnoresExpired(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()
	past := now.Add(-time.Minute)
	bob, eng := "bob", "eng"

	require.NoError(t, s.Shares().Create(ctx, &model.Share{ID: "s1", DocumentID: "d1", SharedWithUser: &bob, ExpiresAt: &past}))
	require.NoError(t, s.Shares().Create(ctx, &model.Share{ID: "s2", DocumentID: "d1", SharedWithGroup: &eng, ExpiresAt: &past}))

	_, err := s.Shares().ActiveUserShare(ctx, "d1", "bob", now)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	groups, err := s.Shares().ActiveGroupShares(ctx, "d1", now)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestLinks_ConcurrentConsumeNeverExceedsMaxUses(t *testing.T) {
	s := New()
	ctx := context.Background()
	maxUses := 3
	require.NoError(t, s.Links().Create(ctx, &model.PublicLink{ID: "tok", DocumentID: "d1", MaxUses: &maxUses}))

	var ok atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Links().ConsumeUse(ctx, "tok", time.Now()); err == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(3), ok.Load())
	l, err := s.Links().FindByID(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, 3, l.UseCount)
}

func TestGroups_IsMember(t *testing.T) {
	s := New()
	s.AddMember("eng", "bob")

	ok, err := s.Groups().IsMember(context.Background(), "bob", "eng")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Groups().IsMember(context.Background(), "carol", "eng")
	require.NoError(t, err)
	assert.False(t, ok)
}
