package model

import (
	"fmt"
	"time"
)

// AccessAction is an audited operation against a document.
type AccessAction string

const (
	ActionView     AccessAction = "view"
	ActionDownload AccessAction = "download"
	ActionDelete   AccessAction = "delete"
	ActionUpdate   AccessAction = "update"
	ActionRestore  AccessAction = "restore"
	ActionShare    AccessAction = "share"
	ActionPreview  AccessAction = "preview"
	ActionPrint    AccessAction = "print"
	ActionUpload   AccessAction = "upload"
)

// ParseAccessAction validates the wire form of an action.
func ParseAccessAction(s string) (AccessAction, error) {
	switch a := AccessAction(s); a {
	case ActionView, ActionDownload, ActionDelete, ActionUpdate, ActionRestore,
		ActionShare, ActionPreview, ActionPrint, ActionUpload:
		return a, nil
	}
	return "", fmt.Errorf("unknown access action %q", s)
}

// Consumable reports whether the action spends a public link use.
func (a AccessAction) Consumable() bool {
	return a == ActionView || a == ActionDownload
}

// Actor is the caller of a core operation: an authenticated user, or an
// anonymous bearer of a public link token.
type Actor struct {
	UserID       string
	LinkToken    string
	LinkPassword string
}

// Anonymous reports whether the actor has no authenticated identity.
func (a Actor) Anonymous() bool {
	return a.UserID == ""
}

// UserRef returns a nullable reference to the actor's user.
func (a Actor) UserRef() *string {
	if a.UserID == "" {
		return nil
	}
	id := a.UserID
	return &id
}

// ClientInfo is request metadata captured with each access log entry.
type ClientInfo struct {
	IPAddress   string `json:"ip_address,omitempty"`
	UserAgent   string `json:"user_agent,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
	DeviceType  string `json:"device_type,omitempty"`
}

// AccessLogEntry is an immutable audit record.
type AccessLogEntry struct {
	ID         string       `json:"id"`
	DocumentID string       `json:"document_id"`
	UserID     *string      `json:"user_id,omitempty"`
	VersionID  *string      `json:"version_id,omitempty"`
	Action     AccessAction `json:"action"`
	OccurredAt time.Time    `json:"occurred_at"`
	Client     ClientInfo   `json:"client"`
}
