package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"docvault/internal/model"
	"docvault/internal/repository"
	"docvault/internal/storage"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	previewURLTTL    = 15 * time.Minute

	initialChangeSummary = "Initial upload"
	updateChangeSummary  = "Version update"
)

// DefaultSoftDeleteRetention is how long a soft-deleted document can be restored.
const DefaultSoftDeleteRetention = 30 * 24 * time.Hour

var previewableTypes = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "gif": true, "pdf": true, "txt": true,
}

// CreateInput describes a new document and its first file.
type CreateInput struct {
	Title         string
	Description   string
	FolderID      *string
	Tags          []string
	IsPublic      bool
	ExpiresAt     *time.Time
	ChangeSummary string
	File          FileInput
}

// UpdateInput carries optional metadata changes. Nil fields are left alone.
type UpdateInput struct {
	Title       *string
	Description *string
	FolderID    *string
	ClearFolder bool
	IsFavorite  *bool
	IsPublic    *bool
	ExpiresAt   *time.Time
	ClearExpiry bool
	Tags        *[]string
}

// VersionInput is a new file revision.
type VersionInput struct {
	File          FileInput
	ChangeSummary string
	IsAutosave    bool
}

// DocumentListResult is the service-level DTO for paginated documents.
type DocumentListResult struct {
	Items  []model.Document `json:"data"`
	Total  int              `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

// Download is an open blob stream for one version. The caller must close Body.
type Download struct {
	Version model.DocumentVersion
	Info    storage.ObjectInfo
	Body    io.ReadCloser
}

// Preview describes how a client can display a version inline.
type Preview struct {
	URL        string `json:"url"`
	FileType   string `json:"file_type"`
	MimeType   string `json:"mime_type"`
	CanPreview bool   `json:"can_preview"`
	Version    int    `json:"version"`
}

// DocumentService defines the use cases for handling documents.
type DocumentService interface {
	// Create stores the file, then the document with version 1 and its tags.
	// Nothing is left behind if any step fails.
	Create(ctx context.Context, actor model.Actor, in CreateInput) (*model.DocumentDetail, error)

	// List returns the actor's own live documents.
	List(ctx context.Context, actor model.Actor, f model.DocumentFilter) (*DocumentListResult, error)

	// Get returns the document with its versions and tags; shares are included for the owner.
	Get(ctx context.Context, actor model.Actor, id string) (*model.DocumentDetail, error)

	// Update changes owner-editable metadata.
	Update(ctx context.Context, actor model.Actor, id string, in UpdateInput) (*model.DocumentDetail, error)

	// SoftDelete hides the document and schedules it for purge.
	SoftDelete(ctx context.Context, actor model.Actor, id string) error

	// Restore brings a soft-deleted document back until the sweeper purges it.
	Restore(ctx context.Context, actor model.Actor, id string) (*model.Document, error)

	// UploadVersion appends a new version to the document's ledger.
	UploadVersion(ctx context.Context, actor model.Actor, id string, in VersionInput) (*model.DocumentVersion, error)

	// GetVersion returns one version, the latest when number is nil.
	GetVersion(ctx context.Context, actor model.Actor, id string, number *int) (*model.DocumentVersion, error)

	// ListVersions returns the version history, newest first.
	ListVersions(ctx context.Context, actor model.Actor, id string) ([]model.DocumentVersion, error)

	// Download opens the content of one version.
	Download(ctx context.Context, actor model.Actor, id string, number *int) (*Download, error)

	// Preview returns a short-lived URL for the latest version.
	Preview(ctx context.Context, actor model.Actor, id string) (*Preview, error)

	// ResolveAccess reports the actor's effective permission without spending link uses.
	ResolveAccess(ctx context.Context, actor model.Actor, id string) (Decision, error)

	// RecordAccess logs an action performed by a client. Unlike internal
	// logging, a failed write is returned as ErrLogging.
	RecordAccess(ctx context.Context, actor model.Actor, id string, number *int, action model.AccessAction, client model.ClientInfo) error
}

type documentService struct {
	base
	store     storage.Storage
	shares    repository.ShareRepository
	ledger    *VersionLedger
	resolver  *AccessResolver
	retention time.Duration
}

func (s *documentService) Create(ctx context.Context, actor model.Actor, in CreateInput) (*model.DocumentDetail, error) {
	ctx, span := tracer.Start(ctx, "DocumentService.Create")
	defer span.End()

	if actor.Anonymous() {
		return nil, ErrUnauthenticated
	}
	if err := in.File.validate(); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(in.File.Name), filepath.Ext(in.File.Name))
	}
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	now := s.now()
	if in.ExpiresAt != nil && !in.ExpiresAt.After(now) {
		return nil, fmt.Errorf("%w: expires_at must be in the future", ErrValidation)
	}

	opCtx, cancel := s.bounded(ctx)
	defer cancel()

	blob, err := putBlob(opCtx, s.store, in.File)
	if err != nil {
		if blob != nil {
			return nil, s.discardBlob(ctx, blob.key, err)
		}
		return nil, err
	}

	doc := &model.Document{
		ID:            uuid.NewString(),
		OwnerID:       actor.UserID,
		FolderID:      in.FolderID,
		Title:         title,
		Description:   in.Description,
		LatestVersion: 1,
		IsPublic:      in.IsPublic,
		ExpiresAt:     in.ExpiresAt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	summary := in.ChangeSummary
	if summary == "" {
		summary = initialChangeSummary
	}
	version := s.newVersion(doc.ID, 1, in.File.Name, blob, actor.UserID, summary, false, now)
	tags := normalizeTags(in.Tags)

	if err := s.docs.CreateWithVersion(opCtx, doc, version, tags); err != nil {
		return nil, s.discardBlob(ctx, blob.key, translate(err, "save document"))
	}
	span.SetAttributes(attribute.String("document.id", doc.ID))

	s.audit.note(ctx, doc.ID, actor, &version.ID, model.ActionUpload)

	return &model.DocumentDetail{
		Document: *doc,
		Versions: []model.DocumentVersion{*version},
		Tags:     tags,
	}, nil
}

func (s *documentService) newVersion(docID string, number int, fileName string, b *storedBlob, by, summary string, autosave bool, at time.Time) *model.DocumentVersion {
	return &model.DocumentVersion{
		ID:              uuid.NewString(),
		DocumentID:      docID,
		VersionNumber:   number,
		FileName:        filepath.Base(fileName),
		FilePath:        b.key,
		FileType:        b.fileType,
		MimeType:        b.mimeType,
		FileSize:        b.size,
		FileHash:        b.hash,
		StorageProvider: s.store.Provider(),
		UploadedBy:      by,
		ChangeSummary:   summary,
		IsAutosave:      autosave,
		UploadedAt:      at,
	}
}

// normalizeTags trims, lower-cases and de-duplicates tag names.
func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func (s *documentService) List(ctx context.Context, actor model.Actor, f model.DocumentFilter) (*DocumentListResult, error) {
	ctx, span := tracer.Start(ctx, "DocumentService.List")
	defer span.End()

	if actor.Anonymous() {
		return nil, ErrUnauthenticated
	}
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	f.OwnerID = actor.UserID
	f.Search = strings.TrimSpace(f.Search)

	opCtx, cancel := s.bounded(ctx)
	defer cancel()

	res, err := s.docs.List(opCtx, f)
	if err != nil {
		return nil, translate(err, "list documents")
	}
	return &DocumentListResult{Items: res.Items, Total: res.Total, Limit: f.Limit, Offset: f.Offset}, nil
}

func (s *documentService) Get(ctx context.Context, actor model.Actor, id string) (*model.DocumentDetail, error) {
	ctx, span := tracer.Start(ctx, "DocumentService.Get")
	defer span.End()
	span.SetAttributes(attribute.String("document.id", id))

	opCtx, cancel := s.bounded(ctx)
	defer cancel()

	doc, err := s.loadDocument(opCtx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.resolver.Authorize(opCtx, doc, actor, model.PermissionView, model.ActionView); err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.docs.Touch(opCtx, doc.ID, now); err != nil {
		s.log.Warn("touch_document_failed", zap.String("document_id", doc.ID), zap.Error(err))
	} else {
		doc.LastAccessedAt = &now
	}

	detail, err := s.detail(opCtx, doc, actor)
	if err != nil {
		return nil, err
	}
	s.audit.note(ctx, doc.ID, actor, nil, model.ActionView)
	return detail, nil
}

// detail loads the associations of doc explicitly.
func (s *documentService) detail(ctx context.Context, doc *model.Document, actor model.Actor) (*model.DocumentDetail, error) {
	versions, err := s.ledger.List(ctx, doc)
	if err != nil {
		return nil, err
	}
	tags, err := s.docs.Tags(ctx, doc.ID)
	if err != nil {
		return nil, translate(err, "load tags")
	}
	d := &model.DocumentDetail{Document: *doc, Versions: versions, Tags: tags}
	if doc.IsOwner(actor.UserID) {
		if d.Shares, err = s.shares.ListByDocument(ctx, doc.ID); err != nil {
			return nil, translate(err, "load shares")
		}
	}
	return d, nil
}

func (s *documentService) Update(ctx context.Context, actor model.Actor, id string, in UpdateInput) (*model.DocumentDetail, error) {
	ctx, span := tracer.Start(ctx, "DocumentService.Update")
	defer span.End()
	span.SetAttributes(attribute.String("document.id", id))

	opCtx, cancel := s.bounded(ctx)
	defer cancel()

	doc, err := s.loadDocument(opCtx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwner(doc, actor); err != nil {
		return nil, err
	}
	if err := requireActive(doc); err != nil {
		return nil, err
	}

	now := s.now()
	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		if t == "" {
			return nil, fmt.Errorf("%w: title cannot be empty", ErrValidation)
		}
		doc.Title = t
	}
	if in.Description != nil {
		doc.Description = *in.Description
	}
	switch {
	case in.ClearFolder:
		doc.FolderID = nil
	case in.FolderID != nil:
		doc.FolderID = in.FolderID
	}
	if in.IsFavorite != nil {
		doc.IsFavorite = *in.IsFavorite
	}
	if in.IsPublic != nil {
		doc.IsPublic = *in.IsPublic
	}
	switch {
	case in.ClearExpiry:
		doc.ExpiresAt = nil
	case in.ExpiresAt != nil:
		if !in.ExpiresAt.After(now) {
			return nil, fmt.Errorf("%w: expires_at must be in the future", ErrValidation)
		}
		doc.ExpiresAt = in.ExpiresAt
	}
	doc.UpdatedAt = now

	if err := s.docs.UpdateMetadata(opCtx, doc); err != nil {
		return nil, translate(err, "update document")
	}
	if in.Tags != nil {
		if err := s.docs.ReplaceTags(opCtx, doc.ID, normalizeTags(*in.Tags), actor.UserID); err != nil {
			return nil, translate(err, "replace tags")
		}
	}

	detail, err := s.detail(opCtx, doc, actor)
	if err != nil {
		return nil, err
	}
	s.audit.note(ctx, doc.ID, actor, nil, model.ActionUpdate)
	return detail, nil
}

func (s *documentService) SoftDelete(ctx context.Context, actor model.Actor, id string) error {
	ctx, span := tracer.Start(ctx, "DocumentService.SoftDelete")
	defer span.End()
	span.SetAttributes(attribute.String("document.id", id))

	opCtx, cancel := s.bounded(ctx)
	defer cancel()

	doc, err := s.loadDocument(opCtx, id)
	if err != nil {
		return err
	}
	if err := s.requireOwner(doc, actor); err != nil {
		return err
	}
	if doc.IsDeleted {
		return nil
	}

	now := s.now()
	purgeAt := now.Add(s.retention)
	if err := s.docs.SetDeleted(opCtx, doc.ID, true, &purgeAt, now); err != nil {
		return translate(err, "soft delete document")
	}
	s.audit.note(ctx, doc.ID, actor, nil, model.ActionDelete)
	return nil
}

func (s *documentService) Restore(ctx context.Context, actor model.Actor, id string) (*model.Document, error) {
	ctx, span := tracer.Start(ctx, "DocumentService.Restore")
	defer span.End()
	span.SetAttributes(attribute.String("document.id", id))

	opCtx, cancel := s.bounded(ctx)
	defer cancel()

	doc, err := s.loadDocument(opCtx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwner(doc, actor); err != nil {
		return nil, err
	}
	if !doc.IsDeleted {
		return doc, nil
	}

	now := s.now()
	if err := s.docs.SetDeleted(opCtx, doc.ID, false, nil, now); err != nil {
		return nil, translate(err, "restore document")
	}
	doc.IsDeleted, doc.PurgeAt, doc.UpdatedAt = false, nil, now

	s.audit.note(ctx, doc.ID, actor, nil, model.ActionRestore)
	return doc, nil
}

func (s *documentService) UploadVersion(ctx context.Context, actor model.Actor, id string, in VersionInput) (*model.DocumentVersion, error) {
	ctx, span := tracer.Start(ctx, "DocumentService.UploadVersion")
	defer span.End()
	span.SetAttributes(attribute.String("document.id", id))

	if err := in.File.validate(); err != nil {
		return nil, err
	}

	opCtx, cancel := s.bounded(ctx)
	defer cancel()

	doc, err := s.loadDocument(opCtx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwner(doc, actor); err != nil {
		return nil, err
	}
	if err := requireActive(doc); err != nil {
		return nil, err
	}

	blob, err := putBlob(opCtx, s.store, in.File)
	if err != nil {
		if blob != nil {
			return nil, s.discardBlob(ctx, blob.key, err)
		}
		return nil, err
	}

	summary := in.ChangeSummary
	if summary == "" {
		summary = updateChangeSummary
	}
	// The ledger assigns the number and upload time.
	version := s.newVersion(doc.ID, 0, in.File.Name, blob, actor.UserID, summary, in.IsAutosave, time.Time{})
	if _, err := s.ledger.Append(opCtx, doc.ID, version); err != nil {
		return nil, s.discardBlob(ctx, blob.key, err)
	}
	span.SetAttributes(attribute.Int("document.version", version.VersionNumber))

	s.audit.note(ctx, doc.ID, actor, &version.ID, model.ActionUpdate)
	return version, nil
}

func (s *documentService) GetVersion(ctx context.Context, actor model.Actor, id string, number *int) (*model.DocumentVersion, error) {
	ctx, span := tracer.Start(ctx, "DocumentService.GetVersion")
	defer span.End()

	opCtx, cancel := s.bounded(ctx)
	defer cancel()

	doc, err := s.readable(opCtx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.ledger.Get(opCtx, doc, number)
}

func (s *documentService) ListVersions(ctx context.Context, actor model.Actor, id string) ([]model.DocumentVersion, error) {
	ctx, span := tracer.Start(ctx, "DocumentService.ListVersions")
	defer span.End()

	opCtx, cancel := s.bounded(ctx)
	defer cancel()

	doc, err := s.readable(opCtx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.ledger.List(opCtx, doc)
}

// readable loads a document the actor may view, without consuming link uses.
func (s *documentService) readable(ctx context.Context, actor model.Actor, id string) (*model.Document, error) {
	doc, err := s.loadDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.resolver.Authorize(ctx, doc, actor, model.PermissionView, ""); err != nil {
		return nil, err
	}
	return doc, nil
}

// Download authorizes under the operation timeout, but the returned stream
// is bound to ctx so it stays readable after this call returns.
func (s *documentService) Download(ctx context.Context, actor model.Actor, id string, number *int) (*Download, error) {
	ctx, span := tracer.Start(ctx, "DocumentService.Download")
	defer span.End()
	span.SetAttributes(attribute.String("document.id", id))

	opCtx, cancel := s.bounded(ctx)
	defer cancel()

	doc, err := s.loadDocument(opCtx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.resolver.Authorize(opCtx, doc, actor, model.PermissionView, model.ActionDownload); err != nil {
		return nil, err
	}
	version, err := s.ledger.Get(opCtx, doc, number)
	if err != nil {
		return nil, err
	}

	ok, err := s.store.Exists(opCtx, version.FilePath)
	if err != nil {
		return nil, fmt.Errorf("%w: check blob: %v", ErrStorage, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: file for version %d is missing from storage", ErrNotFound, version.VersionNumber)
	}

	body, info, err := s.store.Get(ctx, version.FilePath)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, fmt.Errorf("%w: file for version %d is missing from storage", ErrNotFound, version.VersionNumber)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open blob: %v", ErrStorage, err)
	}

	s.audit.note(ctx, doc.ID, actor, &version.ID, model.ActionDownload)
	return &Download{Version: *version, Info: info, Body: body}, nil
}

func (s *documentService) Preview(ctx context.Context, actor model.Actor, id string) (*Preview, error) {
	ctx, span := tracer.Start(ctx, "DocumentService.Preview")
	defer span.End()
	span.SetAttributes(attribute.String("document.id", id))

	opCtx, cancel := s.bounded(ctx)
	defer cancel()

	doc, err := s.loadDocument(opCtx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.resolver.Authorize(opCtx, doc, actor, model.PermissionView, model.ActionView); err != nil {
		return nil, err
	}
	version, err := s.ledger.Get(opCtx, doc, nil)
	if err != nil {
		return nil, err
	}

	url, err := s.store.PresignGet(opCtx, version.FilePath, storage.PresignOptions{
		Expiry:      previewURLTTL,
		FileName:    version.FileName,
		ContentType: version.MimeType,
		Inline:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: presign: %v", ErrStorage, err)
	}

	s.audit.note(ctx, doc.ID, actor, &version.ID, model.ActionPreview)
	return &Preview{
		URL:        url,
		FileType:   version.FileType,
		MimeType:   version.MimeType,
		CanPreview: previewableTypes[strings.ToLower(version.FileType)],
		Version:    version.VersionNumber,
	}, nil
}

func (s *documentService) ResolveAccess(ctx context.Context, actor model.Actor, id string) (Decision, error) {
	ctx, span := tracer.Start(ctx, "DocumentService.ResolveAccess")
	defer span.End()

	opCtx, cancel := s.bounded(ctx)
	defer cancel()

	doc, err := s.loadDocument(opCtx, id)
	if err != nil {
		return Decision{}, err
	}
	return s.resolver.Resolve(opCtx, doc, actor)
}

func (s *documentService) RecordAccess(ctx context.Context, actor model.Actor, id string, number *int, action model.AccessAction, client model.ClientInfo) error {
	ctx, span := tracer.Start(ctx, "DocumentService.RecordAccess")
	defer span.End()

	if _, err := model.ParseAccessAction(string(action)); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	opCtx, cancel := s.bounded(ctx)
	defer cancel()

	doc, err := s.readable(opCtx, actor, id)
	if err != nil {
		return err
	}

	var versionID *string
	if number != nil {
		v, err := s.ledger.Get(opCtx, doc, number)
		if err != nil {
			return err
		}
		versionID = &v.ID
	}
	return s.audit.Record(ctx, doc.ID, actor, versionID, action, client)
}
