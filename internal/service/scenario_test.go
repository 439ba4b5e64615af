package service

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/minio/sha256-simd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docvault/internal/config"
	"docvault/internal/model"
	"docvault/internal/repository/memory"
	"docvault/internal/storage"
	"docvault/internal/sweeper"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	core  *Core
	db    *memory.Store
	blobs *storage.MemoryStorage
	clock *testClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := memory.New()
	blobs := storage.NewMemory()
	clock := &testClock{now: fixedNow}
	docs := db.Documents()
	core := NewCore(Repositories{
		Documents:  docs,
		Versions:   docs,
		Shares:     db.Shares(),
		Links:      db.Links(),
		AccessLogs: db.AccessLogs(),
	}, blobs, db.Groups(), config.CoreConfig{
		OpTimeout:            5 * time.Second,
		AuditTimeout:         time.Second,
		VersionAppendRetries: 3,
		SoftDeleteRetention:  30 * 24 * time.Hour,
	}, WithClock(clock.Now))
	return &harness{core: core, db: db, blobs: blobs, clock: clock}
}

func (h *harness) upload(t *testing.T, owner, name string, content []byte) *model.DocumentDetail {
	t.Helper()
	d, err := h.core.Documents.Create(context.Background(), model.Actor{UserID: owner}, CreateInput{
		File: FileInput{Name: name, Size: int64(len(content)), Content: bytes.NewReader(content)},
	})
	require.NoError(t, err)
	return d
}

func (h *harness) newVersion(t *testing.T, owner, id string, content []byte) (*model.DocumentVersion, error) {
	t.Helper()
	return h.core.Documents.UploadVersion(context.Background(), model.Actor{UserID: owner}, id, VersionInput{
		File: FileInput{Name: "report.pdf", Size: int64(len(content)), Content: bytes.NewReader(content)},
	})
}

func (h *harness) level(t *testing.T, actor model.Actor, id string) model.Permission {
	t.Helper()
	d, err := h.core.Documents.ResolveAccess(context.Background(), actor, id)
	require.NoError(t, err)
	return d.Level
}

func TestScenario_ShareVersionAndSoftDelete(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice, bob := model.Actor{UserID: "alice"}, model.Actor{UserID: "bob"}

	doc := h.upload(t, "alice", "report.pdf", bytes.Repeat([]byte{'a'}, 1024))
	assert.Equal(t, 1, doc.LatestVersion)
	assert.Equal(t, int64(1024), doc.Versions[0].FileSize)

	_, err := h.core.Sharing.ShareDocument(ctx, alice, doc.ID, ShareInput{UserID: "bob", Permission: model.PermissionView})
	require.NoError(t, err)
	assert.Equal(t, model.PermissionView, h.level(t, bob, doc.ID))

	_, err = h.newVersion(t, "alice", doc.ID, []byte("second revision"))
	require.NoError(t, err)
	assert.Equal(t, model.PermissionView, h.level(t, bob, doc.ID))

	latest, err := h.core.Documents.GetVersion(ctx, bob, doc.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, latest.VersionNumber)

	_, err = h.newVersion(t, "bob", doc.ID, []byte("hijack"))
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, h.core.Documents.SoftDelete(ctx, alice, doc.ID))
	assert.Equal(t, model.PermissionNone, h.level(t, bob, doc.ID))
	assert.Equal(t, model.PermissionOwner, h.level(t, alice, doc.ID))

	_, err = h.core.Documents.Get(ctx, bob, doc.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	var actions []model.AccessAction
	for _, e := range h.db.Logs() {
		actions = append(actions, e.Action)
	}
	assert.Equal(t, []model.AccessAction{model.ActionUpload, model.ActionShare, model.ActionUpdate, model.ActionDelete}, actions)
}

func TestScenario_PublicLinkSingleUse(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	doc := h.upload(t, "alice", "notes.txt", []byte("shared notes"))

	link, err := h.core.Sharing.CreatePublicLink(ctx, model.Actor{UserID: "alice"}, doc.ID,
		LinkInput{Permission: model.PermissionView, MaxUses: ptr(1)})
	require.NoError(t, err)
	bearer := model.Actor{LinkToken: link.ID}

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			dl, err := h.core.Documents.Download(ctx, bearer, doc.ID, nil)
			if err == nil {
				dl.Body.Close()
			}
			results[i] = err
		}(i)
	}
	wg.Wait()

	var ok, denied int
	for _, err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrConflict), errors.Is(err, ErrForbidden):
			denied++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, denied)

	stored, err := h.core.Sharing.LookupLink(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.UseCount)

	d, err := h.core.Documents.ResolveAccess(ctx, bearer, doc.ID)
	require.NoError(t, err)
	assert.False(t, d.Allowed())
}

func TestScenario_ShareHolderKeepsLinkUses(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice := model.Actor{UserID: "alice"}
	doc := h.upload(t, "alice", "plan.txt", []byte("roadmap"))

	_, err := h.core.Sharing.ShareDocument(ctx, alice, doc.ID, ShareInput{UserID: "bob", Permission: model.PermissionView})
	require.NoError(t, err)
	link, err := h.core.Sharing.CreatePublicLink(ctx, alice, doc.ID,
		LinkInput{Permission: model.PermissionEdit, MaxUses: ptr(1)})
	require.NoError(t, err)
	bob := model.Actor{UserID: "bob", LinkToken: link.ID}

	for i := 0; i < 2; i++ {
		dl, err := h.core.Documents.Download(ctx, bob, doc.ID, nil)
		require.NoError(t, err)
		dl.Body.Close()
	}

	stored, err := h.core.Sharing.LookupLink(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.UseCount)
	assert.Equal(t, model.PermissionEdit, h.level(t, bob, doc.ID))
}

func TestScenario_PasswordProtectedLink(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	doc := h.upload(t, "alice", "secret.txt", []byte("classified"))

	link, err := h.core.Sharing.CreatePublicLink(ctx, model.Actor{UserID: "alice"}, doc.ID,
		LinkInput{Permission: model.PermissionView, Password: "hunter2"})
	require.NoError(t, err)
	require.NotNil(t, link.PasswordHash)
	assert.NotEqual(t, "hunter2", *link.PasswordHash)

	_, err = h.core.Documents.Get(ctx, model.Actor{LinkToken: link.ID, LinkPassword: "nope"}, doc.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	got, err := h.core.Documents.Get(ctx, model.Actor{LinkToken: link.ID, LinkPassword: "hunter2"}, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Shares)
}

func TestRoundTrip_DownloadMatchesUpload(t *testing.T) {
	h := newHarness(t)
	content := bytes.Repeat([]byte("docvault round trip\n"), 500)
	doc := h.upload(t, "alice", "big.txt", content)

	dl, err := h.core.Documents.Download(context.Background(), model.Actor{UserID: "alice"}, doc.ID, ptr(1))
	require.NoError(t, err)
	defer dl.Body.Close()

	got, err := io.ReadAll(dl.Body)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	sum := sha256.Sum256(got)
	assert.Equal(t, hex.EncodeToString(sum[:]), dl.Version.FileHash)
	assert.Equal(t, "text/plain; charset=utf-8", dl.Version.MimeType)
}

func TestConcurrentVersionUploads(t *testing.T) {
	h := newHarness(t)
	doc := h.upload(t, "alice", "draft.pdf", []byte("v1"))

	const n = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	var numbers []int
	var failures []error
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := h.newVersion(t, "alice", doc.ID, []byte("concurrent revision"))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, err)
				return
			}
			numbers = append(numbers, v.VersionNumber)
		}()
	}
	wg.Wait()

	for _, err := range failures {
		assert.ErrorIs(t, err, ErrConflict)
	}
	sort.Ints(numbers)
	for i, num := range numbers {
		assert.Equal(t, i+2, num, "version numbers must be contiguous")
	}

	versions, err := h.core.Documents.ListVersions(context.Background(), model.Actor{UserID: "alice"}, doc.ID)
	require.NoError(t, err)
	require.Len(t, versions, len(numbers)+1)
	assert.Equal(t, versions[0].VersionNumber, len(numbers)+1)

	stored, err := h.db.Documents().FindByID(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, versions[0].VersionNumber, stored.LatestVersion)
	// Every failed upload cleaned up its blob.
	assert.Equal(t, len(versions), h.blobs.Len())
}

func TestExpirySemantics(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice, bob, carol := model.Actor{UserID: "alice"}, model.Actor{UserID: "bob"}, model.Actor{UserID: "carol"}
	doc := h.upload(t, "alice", "plan.txt", []byte("plan"))

	_, err := h.core.Sharing.ShareDocument(ctx, alice, doc.ID, ShareInput{
		UserID: "bob", Permission: model.PermissionEdit, ExpiresAt: ptr(fixedNow.Add(time.Hour)),
	})
	require.NoError(t, err)
	h.db.AddMember("eng", "carol")
	_, err = h.core.Sharing.ShareDocument(ctx, alice, doc.ID, ShareInput{GroupID: "eng", Permission: model.PermissionComment})
	require.NoError(t, err)

	assert.Equal(t, model.PermissionEdit, h.level(t, bob, doc.ID))
	assert.Equal(t, model.PermissionComment, h.level(t, carol, doc.ID))

	h.clock.Advance(2 * time.Hour)
	assert.Equal(t, model.PermissionNone, h.level(t, bob, doc.ID), "expired share must be inert")

	_, err = h.core.Documents.Update(ctx, alice, doc.ID, UpdateInput{ExpiresAt: ptr(h.clock.Now().Add(time.Minute))})
	require.NoError(t, err)
	h.clock.Advance(time.Hour)

	assert.Equal(t, model.PermissionNone, h.level(t, carol, doc.ID), "expired document denies group shares")
	assert.Equal(t, model.PermissionOwner, h.level(t, alice, doc.ID))
}

func TestUpdate_TagsAreIdempotentAndOwnerOnly(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice := model.Actor{UserID: "alice"}
	doc := h.upload(t, "alice", "a.txt", []byte("a"))

	tags := []string{"Legal", "contracts"}
	first, err := h.core.Documents.Update(ctx, alice, doc.ID, UpdateInput{Tags: &tags, IsFavorite: ptr(true)})
	require.NoError(t, err)
	second, err := h.core.Documents.Update(ctx, alice, doc.ID, UpdateInput{Tags: &tags})
	require.NoError(t, err)

	assert.Equal(t, []string{"contracts", "legal"}, first.Tags)
	assert.Equal(t, first.Tags, second.Tags)
	assert.True(t, second.IsFavorite)

	_, err = h.core.Sharing.ShareDocument(ctx, alice, doc.ID, ShareInput{UserID: "bob", Permission: model.PermissionEdit})
	require.NoError(t, err)
	_, err = h.core.Documents.Update(ctx, model.Actor{UserID: "bob"}, doc.ID, UpdateInput{Title: ptr("mine now")})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestSoftDeleteRestoreAndPurge(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice := model.Actor{UserID: "alice"}
	doc := h.upload(t, "alice", "a.txt", []byte("a"))

	require.NoError(t, h.core.Documents.SoftDelete(ctx, alice, doc.ID))
	require.NoError(t, h.core.Documents.SoftDelete(ctx, alice, doc.ID), "repeat delete is a no-op")

	stored, err := h.db.Documents().FindByID(ctx, doc.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.PurgeAt)
	assert.Equal(t, fixedNow.Add(30*24*time.Hour), *stored.PurgeAt)

	_, err = h.newVersion(t, "alice", doc.ID, []byte("b"))
	assert.ErrorIs(t, err, ErrConflict)

	restored, err := h.core.Documents.Restore(ctx, alice, doc.ID)
	require.NoError(t, err)
	assert.False(t, restored.IsDeleted)
	assert.Nil(t, restored.PurgeAt)

	require.NoError(t, h.core.Documents.SoftDelete(ctx, alice, doc.ID))
	h.clock.Advance(31 * 24 * time.Hour)

	d, err := h.core.Documents.ResolveAccess(ctx, alice, doc.ID)
	require.NoError(t, err, "the row stays until the sweeper removes it")
	assert.Equal(t, model.PermissionOwner, d.Level)
	assert.Equal(t, SourceOwner, d.Source)
	_, err = h.core.Documents.Get(ctx, model.Actor{UserID: "bob"}, doc.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	restored, err = h.core.Documents.Restore(ctx, alice, doc.ID)
	require.NoError(t, err)
	assert.False(t, restored.IsDeleted)

	require.NoError(t, h.core.Documents.SoftDelete(ctx, alice, doc.ID))
	h.clock.Advance(31 * 24 * time.Hour)
	sw := sweeper.New(h.db.Documents(), h.db.Documents(), h.blobs, nil, 10).WithClock(h.clock.Now)
	n, err := sw.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = h.core.Documents.Restore(ctx, alice, doc.ID)
	assert.ErrorIs(t, err, ErrNotFound, "purged documents are gone")
	assert.Zero(t, h.blobs.Len())
}

func TestSharingValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice := model.Actor{UserID: "alice"}
	doc := h.upload(t, "alice", "a.txt", []byte("a"))

	tests := []struct {
		name    string
		in      ShareInput
		wantErr error
	}{
		{name: "no target", in: ShareInput{Permission: model.PermissionView}, wantErr: ErrValidation},
		{name: "both targets", in: ShareInput{UserID: "bob", GroupID: "eng", Permission: model.PermissionView}, wantErr: ErrValidation},
		{name: "no permission", in: ShareInput{UserID: "bob"}, wantErr: ErrValidation},
		{name: "self share", in: ShareInput{UserID: "alice", Permission: model.PermissionView}, wantErr: ErrValidation},
		{name: "past expiry", in: ShareInput{UserID: "bob", Permission: model.PermissionView, ExpiresAt: ptr(fixedNow.Add(-time.Second))}, wantErr: ErrValidation},
		{name: "valid", in: ShareInput{UserID: "bob", Permission: model.PermissionView}},
		{name: "duplicate", in: ShareInput{UserID: "bob", Permission: model.PermissionEdit}, wantErr: ErrConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.core.Sharing.ShareDocument(ctx, alice, doc.ID, tt.in)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := h.core.Sharing.ShareDocument(ctx, model.Actor{UserID: "bob"}, doc.ID, ShareInput{UserID: "carol", Permission: model.PermissionView})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = h.core.Sharing.CreatePublicLink(ctx, alice, doc.ID, LinkInput{Permission: model.PermissionOwner})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = h.core.Sharing.CreatePublicLink(ctx, alice, doc.ID, LinkInput{Permission: model.PermissionView, MaxUses: ptr(0)})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRevokeShareAndLink(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice, bob := model.Actor{UserID: "alice"}, model.Actor{UserID: "bob"}
	doc := h.upload(t, "alice", "a.txt", []byte("a"))
	other := h.upload(t, "alice", "b.txt", []byte("b"))

	share, err := h.core.Sharing.ShareDocument(ctx, alice, doc.ID, ShareInput{UserID: "bob", Permission: model.PermissionView})
	require.NoError(t, err)
	assert.ErrorIs(t, h.core.Sharing.RevokeShare(ctx, alice, other.ID, share.ID), ErrNotFound)
	require.NoError(t, h.core.Sharing.RevokeShare(ctx, alice, doc.ID, share.ID))
	assert.Equal(t, model.PermissionNone, h.level(t, bob, doc.ID))

	link, err := h.core.Sharing.CreatePublicLink(ctx, alice, doc.ID, LinkInput{Permission: model.PermissionView})
	require.NoError(t, err)
	assert.Len(t, link.ID, 43)
	links, err := h.core.Sharing.ListPublicLinks(ctx, alice, doc.ID)
	require.NoError(t, err)
	assert.Len(t, links, 1)

	require.NoError(t, h.core.Sharing.RevokePublicLink(ctx, alice, doc.ID, link.ID))
	_, err = h.core.Sharing.LookupLink(ctx, link.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPreviewAndListing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice := model.Actor{UserID: "alice"}
	h.upload(t, "alice", "one.pdf", []byte("%PDF-1.4 one"))
	doc := h.upload(t, "alice", "two.docx", []byte("not really a docx"))
	h.upload(t, "bob", "bobs.txt", []byte("bob"))

	p, err := h.core.Documents.Preview(ctx, alice, doc.ID)
	require.NoError(t, err)
	assert.False(t, p.CanPreview)
	assert.Equal(t, "docx", p.FileType)
	assert.Contains(t, p.URL, "memory://documents/")

	list, err := h.core.Documents.List(ctx, alice, model.DocumentFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, list.Total)
	assert.Equal(t, 20, list.Limit)

	_, err = h.core.Documents.List(ctx, model.Actor{}, model.DocumentFilter{})
	assert.ErrorIs(t, err, ErrUnauthenticated)
}
