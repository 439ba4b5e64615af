package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"docvault/internal/identity"
	"docvault/internal/metrics"
	"docvault/internal/model"
	"docvault/internal/repository"
)

// Source names the grant that produced an access decision.
type Source string

const (
	SourceNone   Source = "none"
	SourceOwner  Source = "owner"
	SourcePublic Source = "public"
	SourceShare  Source = "share"
	SourceGroup  Source = "group"
	SourceLink   Source = "link"
)

// Decision is the effective permission of an actor on a document.
type Decision struct {
	Level  model.Permission `json:"permission"`
	Source Source           `json:"source"`

	// granted is the best level from grants other than a public link.
	granted   model.Permission
	grantedBy Source
	share     *model.Share
	link      *model.PublicLink
}

// Allowed reports whether any grant matched.
func (d Decision) Allowed() bool {
	return d.Level > model.PermissionNone
}

func (d *Decision) raise(level model.Permission, src Source) bool {
	if src != SourceLink && level > d.granted {
		d.granted, d.grantedBy = level, src
		d.share = nil
	}
	if level <= d.Level {
		return false
	}
	d.Level, d.Source = level, src
	d.link = nil
	return true
}

// AccessResolver is the single place effective permissions are computed.
type AccessResolver struct {
	settings
	shares repository.ShareRepository
	links  repository.PublicLinkRepository
	groups identity.Provider
}

func NewAccessResolver(shares repository.ShareRepository, links repository.PublicLinkRepository, groups identity.Provider, opts ...Option) *AccessResolver {
	return &AccessResolver{settings: newSettings(opts), shares: shares, links: links, groups: groups}
}

// Resolve computes the supremum of every grant that applies to actor on doc.
// It has no side effects.
func (r *AccessResolver) Resolve(ctx context.Context, doc *model.Document, actor model.Actor) (Decision, error) {
	d, err := r.resolve(ctx, doc, actor)
	if err != nil {
		return Decision{}, err
	}
	metrics.AccessDecisions.WithLabelValues(d.Level.String()).Inc()
	return d, nil
}

func (r *AccessResolver) resolve(ctx context.Context, doc *model.Document, actor model.Actor) (Decision, error) {
	now := r.now()
	d := Decision{Level: model.PermissionNone, Source: SourceNone}

	if doc.IsOwner(actor.UserID) {
		d.raise(model.PermissionOwner, SourceOwner)
		return d, nil
	}
	if doc.IsDeleted || doc.Expired(now) {
		return d, nil
	}

	if doc.IsPublic {
		d.raise(model.PermissionView, SourcePublic)
	}

	if !actor.Anonymous() {
		share, err := r.shares.ActiveUserShare(ctx, doc.ID, actor.UserID, now)
		switch {
		case err == nil:
			if d.raise(share.Permission, SourceShare) {
				d.share = share
			}
		case !errors.Is(err, repository.ErrNotFound):
			return Decision{}, fmt.Errorf("load direct share: %w", err)
		}

		groupShares, err := r.shares.ActiveGroupShares(ctx, doc.ID, now)
		if err != nil {
			return Decision{}, fmt.Errorf("load group shares: %w", err)
		}
		for _, gs := range groupShares {
			if gs.Permission <= d.Level || gs.SharedWithGroup == nil {
				continue
			}
			member, err := r.groups.IsMember(ctx, actor.UserID, *gs.SharedWithGroup)
			if err != nil {
				return Decision{}, fmt.Errorf("check membership of group %s: %w", *gs.SharedWithGroup, err)
			}
			if member {
				d.raise(gs.Permission, SourceGroup)
			}
		}
	}

	if actor.LinkToken != "" {
		link, err := r.validLink(ctx, doc, actor)
		if err != nil {
			return Decision{}, err
		}
		if link != nil && d.raise(link.Permission, SourceLink) {
			d.link = link
		}
	}
	return d, nil
}

// validLink returns the actor's link when it targets doc, is usable and the
// password (if any) matches. Anything else yields nil.
func (r *AccessResolver) validLink(ctx context.Context, doc *model.Document, actor model.Actor) (*model.PublicLink, error) {
	link, err := r.links.FindByID(ctx, actor.LinkToken)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load public link: %w", err)
	}
	if link.DocumentID != doc.ID || !link.Usable(r.now()) {
		return nil, nil
	}
	if link.HasPassword() &&
		bcrypt.CompareHashAndPassword([]byte(*link.PasswordHash), []byte(actor.LinkPassword)) != nil {
		return nil, nil
	}
	return link, nil
}

// Authorize resolves access and enforces required. When only a public link
// reaches required and action is consumable, one link use is spent with an
// atomic compare-and-increment; losing that race fails with ErrConflict.
func (r *AccessResolver) Authorize(ctx context.Context, doc *model.Document, actor model.Actor, required model.Permission, action model.AccessAction) (Decision, error) {
	d, err := r.Resolve(ctx, doc, actor)
	if err != nil {
		return Decision{}, err
	}

	if !d.Level.AtLeast(required) {
		switch {
		case doc.IsDeleted:
			return d, fmt.Errorf("%w: document %s", ErrNotFound, doc.ID)
		case actor.Anonymous() && actor.LinkToken == "":
			return d, ErrUnauthenticated
		}
		return d, fmt.Errorf("%w: %s access to document %s requires %s", ErrForbidden, d.Level, doc.ID, required)
	}

	if !action.Consumable() {
		return d, nil
	}

	source := d.Source
	if source == SourceLink && d.granted.AtLeast(required) {
		source = d.grantedBy
	}
	switch source {
	case SourceLink:
		count, err := r.links.ConsumeUse(ctx, d.link.ID, r.now())
		if errors.Is(err, repository.ErrLinkUnavailable) {
			metrics.PublicLinkConsumptions.WithLabelValues("exhausted").Inc()
			return d, fmt.Errorf("%w: public link is no longer usable", ErrConflict)
		}
		if err != nil {
			return d, fmt.Errorf("consume public link: %w", err)
		}
		metrics.PublicLinkConsumptions.WithLabelValues("consumed").Inc()
		d.link.UseCount = count
	case SourceShare:
		if err := r.shares.IncrementAccess(ctx, d.share.ID); err != nil {
			r.log.Warn("share_access_count_failed", zap.String("share_id", d.share.ID), zap.Error(err))
		} else {
			d.share.AccessCount++
		}
	}
	return d, nil
}
