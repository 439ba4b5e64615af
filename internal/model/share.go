package model

import (
	"errors"
	"time"
)

var (
	ErrShareTarget     = errors.New("share must target exactly one of user or group")
	ErrSharePermission = errors.New("share permission must be view, comment, edit or owner")
	ErrLinkPermission  = errors.New("link permission must be view, comment or edit")
)

// Share grants a user or a group a permission level on a document.
type Share struct {
	ID              string     `json:"id"`
	DocumentID      string     `json:"document_id"`
	SharedWithUser  *string    `json:"shared_with_user,omitempty"`
	SharedWithGroup *string    `json:"shared_with_group,omitempty"`
	Permission      Permission `json:"permission"`
	SharedBy        string     `json:"shared_by"`
	SharedAt        time.Time  `json:"shared_at"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	AccessCount     int        `json:"access_count"`
	Message         string     `json:"message,omitempty"`
}

// Validate checks the structural rules a share must satisfy before it is stored.
func (s *Share) Validate() error {
	hasUser := s.SharedWithUser != nil && *s.SharedWithUser != ""
	hasGroup := s.SharedWithGroup != nil && *s.SharedWithGroup != ""
	if hasUser == hasGroup {
		return ErrShareTarget
	}
	if s.Permission < PermissionView || s.Permission > PermissionOwner {
		return ErrSharePermission
	}
	return nil
}

// Active reports whether the share still contributes to access decisions.
// Expired shares stay in storage but are treated as absent.
func (s *Share) Active(now time.Time) bool {
	return s.ExpiresAt == nil || now.Before(*s.ExpiresAt)
}

// PublicLink is a bearer capability for a single document.
type PublicLink struct {
	ID           string     `json:"id"`
	DocumentID   string     `json:"document_id"`
	CreatedBy    string     `json:"created_by"`
	Permission   Permission `json:"permission"`
	PasswordHash *string    `json:"-"`
	MaxUses      *int       `json:"max_uses,omitempty"`
	UseCount     int        `json:"use_count"`
	CreatedAt    time.Time  `json:"created_at"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// HasPassword reports whether the link is password protected.
func (l *PublicLink) HasPassword() bool {
	return l.PasswordHash != nil && *l.PasswordHash != ""
}

// Exhausted reports whether every allowed use has been consumed.
func (l *PublicLink) Exhausted() bool {
	return l.MaxUses != nil && l.UseCount >= *l.MaxUses
}

// Usable reports whether the link is neither expired nor exhausted.
func (l *PublicLink) Usable(now time.Time) bool {
	if l.ExpiresAt != nil && !now.Before(*l.ExpiresAt) {
		return false
	}
	return !l.Exhausted()
}

// ValidateLinkPermission rejects levels a link may not carry.
func ValidateLinkPermission(p Permission) error {
	if p < PermissionView || p > PermissionEdit {
		return ErrLinkPermission
	}
	return nil
}
