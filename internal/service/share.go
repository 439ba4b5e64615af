package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"

	"docvault/internal/model"
	"docvault/internal/repository"
)

// linkTokenBytes is the entropy of a public link token before encoding.
const linkTokenBytes = 32

// ShareInput grants a user or a group access to a document.
type ShareInput struct {
	UserID     string
	GroupID    string
	Permission model.Permission
	ExpiresAt  *time.Time
	Message    string
}

// LinkInput configures a new public link.
type LinkInput struct {
	Permission model.Permission
	Password   string
	MaxUses    *int
	ExpiresAt  *time.Time
}

// SharingService manages direct shares, group shares and public links. Every
// operation except LookupLink is owner-only.
type SharingService interface {
	ShareDocument(ctx context.Context, actor model.Actor, documentID string, in ShareInput) (*model.Share, error)
	ListShares(ctx context.Context, actor model.Actor, documentID string) ([]model.Share, error)
	RevokeShare(ctx context.Context, actor model.Actor, documentID, shareID string) error

	CreatePublicLink(ctx context.Context, actor model.Actor, documentID string, in LinkInput) (*model.PublicLink, error)
	ListPublicLinks(ctx context.Context, actor model.Actor, documentID string) ([]model.PublicLink, error)
	RevokePublicLink(ctx context.Context, actor model.Actor, documentID, token string) error

	// LookupLink returns the link for a token so anonymous callers can be
	// routed to its document. It performs no access check.
	LookupLink(ctx context.Context, token string) (*model.PublicLink, error)
}

type sharingService struct {
	base
	shares repository.ShareRepository
	links  repository.PublicLinkRepository
}

// ownedDocument loads a document and checks the actor owns it.
func (s *sharingService) ownedDocument(ctx context.Context, actor model.Actor, documentID string) (*model.Document, error) {
	doc, err := s.loadDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwner(doc, actor); err != nil {
		return nil, err
	}
	return doc, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func (s *sharingService) ShareDocument(ctx context.Context, actor model.Actor, documentID string, in ShareInput) (*model.Share, error) {
	ctx, span := tracer.Start(ctx, "SharingService.ShareDocument")
	defer span.End()
	span.SetAttributes(attribute.String("document.id", documentID))

	opCtx, cancel := s.bounded(ctx)
	defer cancel()

	doc, err := s.ownedDocument(opCtx, actor, documentID)
	if err != nil {
		return nil, err
	}
	if err := requireActive(doc); err != nil {
		return nil, err
	}

	now := s.now()
	share := &model.Share{
		ID:              uuid.NewString(),
		DocumentID:      doc.ID,
		SharedWithUser:  optional(in.UserID),
		SharedWithGroup: optional(in.GroupID),
		Permission:      in.Permission,
		SharedBy:        actor.UserID,
		SharedAt:        now,
		ExpiresAt:       in.ExpiresAt,
		Message:         in.Message,
	}
	if err := share.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if share.SharedWithUser != nil && *share.SharedWithUser == doc.OwnerID {
		return nil, fmt.Errorf("%w: cannot share a document with its owner", ErrValidation)
	}
	if share.ExpiresAt != nil && !share.ExpiresAt.After(now) {
		return nil, fmt.Errorf("%w: expires_at must be in the future", ErrValidation)
	}

	if err := s.shares.Create(opCtx, share); err != nil {
		return nil, translate(err, "share")
	}
	s.audit.note(ctx, doc.ID, actor, nil, model.ActionShare)
	return share, nil
}

func (s *sharingService) ListShares(ctx context.Context, actor model.Actor, documentID string) ([]model.Share, error) {
	ctx, span := tracer.Start(ctx, "SharingService.ListShares")
	defer span.End()

	opCtx, cancel := s.bounded(ctx)
	defer cancel()

	if _, err := s.ownedDocument(opCtx, actor, documentID); err != nil {
		return nil, err
	}
	shares, err := s.shares.ListByDocument(opCtx, documentID)
	if err != nil {
		return nil, translate(err, "list shares")
	}
	return shares, nil
}

func (s *sharingService) RevokeShare(ctx context.Context, actor model.Actor, documentID, shareID string) error {
	ctx, span := tracer.Start(ctx, "SharingService.RevokeShare")
	defer span.End()

	opCtx, cancel := s.bounded(ctx)
	defer cancel()

	if _, err := s.ownedDocument(opCtx, actor, documentID); err != nil {
		return err
	}
	share, err := s.shares.FindByID(opCtx, shareID)
	if err != nil {
		return translate(err, "share "+shareID)
	}
	if share.DocumentID != documentID {
		return fmt.Errorf("%w: share %s", ErrNotFound, shareID)
	}
	if err := s.shares.Delete(opCtx, shareID); err != nil {
		return translate(err, "share "+shareID)
	}
	return nil
}

func newLinkToken() (string, error) {
	b := make([]byte, linkTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate link token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func (s *sharingService) CreatePublicLink(ctx context.Context, actor model.Actor, documentID string, in LinkInput) (*model.PublicLink, error) {
	ctx, span := tracer.Start(ctx, "SharingService.CreatePublicLink")
	defer span.End()
	span.SetAttributes(attribute.String("document.id", documentID))

	if err := model.ValidateLinkPermission(in.Permission); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if in.MaxUses != nil && *in.MaxUses <= 0 {
		return nil, fmt.Errorf("%w: max_uses must be positive", ErrValidation)
	}
	now := s.now()
	if in.ExpiresAt != nil && !in.ExpiresAt.After(now) {
		return nil, fmt.Errorf("%w: expires_at must be in the future", ErrValidation)
	}

	opCtx, cancel := s.bounded(ctx)
	defer cancel()

	doc, err := s.ownedDocument(opCtx, actor, documentID)
	if err != nil {
		return nil, err
	}
	if err := requireActive(doc); err != nil {
		return nil, err
	}

	token, err := newLinkToken()
	if err != nil {
		return nil, err
	}
	link := &model.PublicLink{
		ID:         token,
		DocumentID: doc.ID,
		CreatedBy:  actor.UserID,
		Permission: in.Permission,
		MaxUses:    in.MaxUses,
		CreatedAt:  now,
		ExpiresAt:  in.ExpiresAt,
	}
	if in.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		h := string(hash)
		link.PasswordHash = &h
	}

	if err := s.links.Create(opCtx, link); err != nil {
		return nil, translate(err, "public link")
	}
	s.audit.note(ctx, doc.ID, actor, nil, model.ActionShare)
	return link, nil
}

func (s *sharingService) ListPublicLinks(ctx context.Context, actor model.Actor, documentID string) ([]model.PublicLink, error) {
	ctx, span := tracer.Start(ctx, "SharingService.ListPublicLinks")
	defer span.End()

	opCtx, cancel := s.bounded(ctx)
	defer cancel()

	if _, err := s.ownedDocument(opCtx, actor, documentID); err != nil {
		return nil, err
	}
	links, err := s.links.ListByDocument(opCtx, documentID)
	if err != nil {
		return nil, translate(err, "list public links")
	}
	return links, nil
}

func (s *sharingService) RevokePublicLink(ctx context.Context, actor model.Actor, documentID, token string) error {
	ctx, span := tracer.Start(ctx, "SharingService.RevokePublicLink")
	defer span.End()

	opCtx, cancel := s.bounded(ctx)
	defer cancel()

	if _, err := s.ownedDocument(opCtx, actor, documentID); err != nil {
		return err
	}
	link, err := s.links.FindByID(opCtx, token)
	if err != nil {
		return translate(err, "public link")
	}
	if link.DocumentID != documentID {
		return fmt.Errorf("%w: public link", ErrNotFound)
	}
	return translate(s.links.Delete(opCtx, token), "public link")
}

func (s *sharingService) LookupLink(ctx context.Context, token string) (*model.PublicLink, error) {
	ctx, span := tracer.Start(ctx, "SharingService.LookupLink")
	defer span.End()

	if token == "" {
		return nil, fmt.Errorf("%w: link token is required", ErrValidation)
	}

	opCtx, cancel := s.bounded(ctx)
	defer cancel()

	link, err := s.links.FindByID(opCtx, token)
	if err != nil {
		return nil, translate(err, "public link")
	}
	return link, nil
}
