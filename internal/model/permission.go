package model

import (
	"fmt"
	"strings"
)

// Permission is a level in the access lattice. Higher levels imply every
// capability of the lower ones, so comparisons use plain integer ordering.
type Permission int

const (
	PermissionNone Permission = iota
	PermissionView
	PermissionComment
	PermissionEdit
	PermissionOwner
)

var permissionNames = map[Permission]string{
	PermissionNone:    "none",
	PermissionView:    "view",
	PermissionComment: "comment",
	PermissionEdit:    "edit",
	PermissionOwner:   "owner",
}

func (p Permission) String() string {
	if s, ok := permissionNames[p]; ok {
		return s
	}
	return fmt.Sprintf("permission(%d)", int(p))
}

// ParsePermission converts the stored/wire form into a Permission.
func ParsePermission(s string) (Permission, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return PermissionNone, nil
	case "view":
		return PermissionView, nil
	case "comment":
		return PermissionComment, nil
	case "edit":
		return PermissionEdit, nil
	case "owner":
		return PermissionOwner, nil
	}
	return PermissionNone, fmt.Errorf("unknown permission %q", s)
}

// AtLeast reports whether p grants everything required grants.
func (p Permission) AtLeast(required Permission) bool {
	return p >= required
}

func (p Permission) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Permission) UnmarshalText(b []byte) error {
	v, err := ParsePermission(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
