// Package identity answers group membership questions for the access resolver.
package identity

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when the membership source cannot give an answer.
var ErrUnavailable = errors.New("identity provider unavailable")

// Provider reports whether a user belongs to a group.
// repository.GroupRepository implementations satisfy it directly.
type Provider interface {
	IsMember(ctx context.Context, userID, groupID string) (bool, error)
}
