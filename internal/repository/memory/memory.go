// Package memory is an in-process implementation of every repository
// interface. It backs STORE_BACKEND=memory and the end-to-end service tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"docvault/internal/model"
	"docvault/internal/repository"
)

// Store holds all tables behind a single mutex. Values are copied on the way
// in and out so callers never share memory with the store.
type Store struct {
	mu       sync.Mutex
	docs     map[string]model.Document
	versions map[string][]model.DocumentVersion
	tags     map[string][]string
	shares   map[string]model.Share
	links    map[string]model.PublicLink
	logs     []model.AccessLogEntry
	members  map[string]map[string]bool
}

// New returns an empty store.
func New() *Store {
	return &Store{
		docs:     make(map[string]model.Document),
		versions: make(map[string][]model.DocumentVersion),
		tags:     make(map[string][]string),
		shares:   make(map[string]model.Share),
		links:    make(map[string]model.PublicLink),
		members:  make(map[string]map[string]bool),
	}
}

func (s *Store) Documents() *Documents   { return &Documents{s} }
func (s *Store) Shares() *Shares         { return &Shares{s} }
func (s *Store) Links() *Links           { return &Links{s} }
func (s *Store) AccessLogs() *AccessLogs { return &AccessLogs{s} }
func (s *Store) Groups() *Groups         { return &Groups{s} }

// AddMember seeds group membership.
func (s *Store) AddMember(groupID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.members[groupID] == nil {
		s.members[groupID] = make(map[string]bool)
	}
	s.members[groupID][userID] = true
}

// Logs returns a snapshot of every access log entry in append order.
func (s *Store) Logs() []model.AccessLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.AccessLogEntry(nil), s.logs...)
}

// Documents implements repository.DocumentRepository and repository.VersionRepository.
type Documents struct{ s *Store }

var (
	_ repository.DocumentRepository = (*Documents)(nil)
	_ repository.VersionRepository  = (*Documents)(nil)
)

func (r *Documents) CreateWithVersion(_ context.Context, doc *model.Document, version *model.DocumentVersion, tags []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.docs[doc.ID]; ok {
		return repository.ErrDuplicate
	}
	r.s.docs[doc.ID] = *doc
	r.s.versions[doc.ID] = []model.DocumentVersion{*version}
	r.s.tags[doc.ID] = sortedTags(tags)
	return nil
}

func (r *Documents) FindByID(_ context.Context, id string) (*model.Document, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	d, ok := r.s.docs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &d, nil
}

func (r *Documents) List(_ context.Context, f model.DocumentFilter) (*repository.PageResult[model.Document], error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	search := strings.ToLower(f.Search)
	matched := make([]model.Document, 0)
	for _, d := range r.s.docs {
		if d.OwnerID != f.OwnerID || d.IsDeleted {
			continue
		}
		if f.FolderID != nil && (d.FolderID == nil || *d.FolderID != *f.FolderID) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(d.Title), search) &&
			!strings.Contains(strings.ToLower(d.Description), search) {
			continue
		}
		if f.Favorites && !d.IsFavorite {
			continue
		}
		matched = append(matched, d)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := min(f.Offset, total)
	end := total
	if f.Limit > 0 {
		end = min(start+f.Limit, total)
	}
	return &repository.PageResult[model.Document]{Items: matched[start:end], Total: total}, nil
}

func (r *Documents) UpdateMetadata(_ context.Context, doc *model.Document) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.docs[doc.ID]
	if !ok {
		return repository.ErrNotFound
	}
	cur.FolderID = doc.FolderID
	cur.Title = doc.Title
	cur.Description = doc.Description
	cur.IsPublic = doc.IsPublic
	cur.IsFavorite = doc.IsFavorite
	cur.ExpiresAt = doc.ExpiresAt
	cur.UpdatedAt = doc.UpdatedAt
	r.s.docs[doc.ID] = cur
	return nil
}

func (r *Documents) SetDeleted(_ context.Context, id string, deleted bool, purgeAt *time.Time, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	d, ok := r.s.docs[id]
	if !ok {
		return repository.ErrNotFound
	}
	d.IsDeleted = deleted
	d.PurgeAt = purgeAt
	d.UpdatedAt = at
	r.s.docs[id] = d
	return nil
}

func (r *Documents) Touch(_ context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	d, ok := r.s.docs[id]
	if !ok {
		return repository.ErrNotFound
	}
	d.LastAccessedAt = &at
	r.s.docs[id] = d
	return nil
}

func (r *Documents) ReplaceTags(_ context.Context, id string, tags []string, _ string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.docs[id]; !ok {
		return repository.ErrNotFound
	}
	r.s.tags[id] = sortedTags(tags)
	return nil
}

func (r *Documents) Tags(_ context.Context, id string) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]string{}, r.s.tags[id]...), nil
}

func (r *Documents) ListPurgeable(_ context.Context, now time.Time, limit int) ([]model.Document, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]model.Document, 0)
	for _, d := range r.s.docs {
		if d.PurgeDue(now) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PurgeAt.Before(*out[j].PurgeAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// HardDelete removes the document and cascades to versions, tags, shares,
// links and access logs the same way the Postgres foreign keys do.
func (r *Documents) HardDelete(_ context.Context, id string, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	d, ok := r.s.docs[id]
	if !ok || !d.PurgeDue(now) {
		return repository.ErrNotFound
	}
	delete(r.s.docs, id)
	delete(r.s.versions, id)
	delete(r.s.tags, id)
	for k, sh := range r.s.shares {
		if sh.DocumentID == id {
			delete(r.s.shares, k)
		}
	}
	for k, l := range r.s.links {
		if l.DocumentID == id {
			delete(r.s.links, k)
		}
	}
	kept := r.s.logs[:0]
	for _, e := range r.s.logs {
		if e.DocumentID != id {
			kept = append(kept, e)
		}
	}
	r.s.logs = kept
	return nil
}

// AppendVersion is a compare-and-set on latest_version under the store lock.
func (r *Documents) AppendVersion(_ context.Context, v *model.DocumentVersion, expectedLatest int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	d, ok := r.s.docs[v.DocumentID]
	if !ok {
		return repository.ErrNotFound
	}
	if d.IsDeleted || d.LatestVersion != expectedLatest || v.VersionNumber != expectedLatest+1 {
		return repository.ErrVersionConflict
	}
	for _, existing := range r.s.versions[v.DocumentID] {
		if existing.VersionNumber == v.VersionNumber {
			return repository.ErrVersionConflict
		}
	}
	d.LatestVersion = v.VersionNumber
	d.UpdatedAt = v.UploadedAt
	r.s.docs[v.DocumentID] = d
	r.s.versions[v.DocumentID] = append(r.s.versions[v.DocumentID], *v)
	return nil
}

func (r *Documents) FindVersion(_ context.Context, documentID string, number int) (*model.DocumentVersion, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, v := range r.s.versions[documentID] {
		if v.VersionNumber == number {
			return &v, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *Documents) ListVersions(_ context.Context, documentID string) ([]model.DocumentVersion, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := append([]model.DocumentVersion{}, r.s.versions[documentID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].VersionNumber > out[j].VersionNumber })
	return out, nil
}

func sortedTags(tags []string) []string {
	out := append([]string{}, tags...)
	sort.Strings(out)
	return out
}

// Shares implements repository.ShareRepository.
type Shares struct{ s *Store }

var _ repository.ShareRepository = (*Shares)(nil)

func sameTarget(a, b *string) bool {
	return a != nil && b != nil && *a == *b
}

func (r *Shares) Create(_ context.Context, sh *model.Share) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.shares[sh.ID]; ok {
		return repository.ErrDuplicate
	}
	for _, existing := range r.s.shares {
		if existing.DocumentID != sh.DocumentID {
			continue
		}
		if sameTarget(existing.SharedWithUser, sh.SharedWithUser) || sameTarget(existing.SharedWithGroup, sh.SharedWithGroup) {
			return repository.ErrDuplicate
		}
	}
	r.s.shares[sh.ID] = *sh
	return nil
}

func (r *Shares) FindByID(_ context.Context, id string) (*model.Share, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sh, ok := r.s.shares[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &sh, nil
}

func (r *Shares) filter(keep func(model.Share) bool) []model.Share {
	out := make([]model.Share, 0)
	for _, sh := range r.s.shares {
		if keep(sh) {
			out = append(out, sh)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SharedAt.Before(out[j].SharedAt) })
	return out
}

func (r *Shares) ListByDocument(_ context.Context, documentID string) ([]model.Share, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.filter(func(sh model.Share) bool { return sh.DocumentID == documentID }), nil
}

func (r *Shares) ActiveUserShare(_ context.Context, documentID, userID string, now time.Time) (*model.Share, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, sh := range r.s.shares {
		if sh.DocumentID == documentID && sh.SharedWithUser != nil && *sh.SharedWithUser == userID && sh.Active(now) {
			return &sh, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *Shares) ActiveGroupShares(_ context.Context, documentID string, now time.Time) ([]model.Share, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.filter(func(sh model.Share) bool {
		return sh.DocumentID == documentID && sh.SharedWithGroup != nil && sh.Active(now)
	}), nil
}

func (r *Shares) IncrementAccess(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sh, ok := r.s.shares[id]
	if !ok {
		return repository.ErrNotFound
	}
	sh.AccessCount++
	r.s.shares[id] = sh
	return nil
}

func (r *Shares) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.shares[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.shares, id)
	return nil
}

// Links implements repository.PublicLinkRepository.
type Links struct{ s *Store }

var _ repository.PublicLinkRepository = (*Links)(nil)

func (r *Links) Create(_ context.Context, l *model.PublicLink) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.links[l.ID]; ok {
		return repository.ErrDuplicate
	}
	r.s.links[l.ID] = *l
	return nil
}

func (r *Links) FindByID(_ context.Context, id string) (*model.PublicLink, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	l, ok := r.s.links[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &l, nil
}

func (r *Links) ListByDocument(_ context.Context, documentID string) ([]model.PublicLink, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]model.PublicLink, 0)
	for _, l := range r.s.links {
		if l.DocumentID == documentID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *Links) ConsumeUse(_ context.Context, id string, now time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	l, ok := r.s.links[id]
	if !ok || !l.Usable(now) {
		return 0, repository.ErrLinkUnavailable
	}
	l.UseCount++
	r.s.links[id] = l
	return l.UseCount, nil
}

func (r *Links) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.links[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.links, id)
	return nil
}

// AccessLogs implements repository.AccessLogRepository.
type AccessLogs struct{ s *Store }

var _ repository.AccessLogRepository = (*AccessLogs)(nil)

func (r *AccessLogs) Append(_ context.Context, e *model.AccessLogEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.logs = append(r.s.logs, *e)
	return nil
}

// Groups implements repository.GroupRepository.
type Groups struct{ s *Store }

var _ repository.GroupRepository = (*Groups)(nil)

func (r *Groups) IsMember(_ context.Context, userID, groupID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.members[groupID][userID], nil
}
