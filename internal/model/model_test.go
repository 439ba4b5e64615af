package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermissionLattice(t *testing.T) {
	assert.True(t, PermissionOwner.AtLeast(PermissionEdit))
	assert.True(t, PermissionEdit.AtLeast(PermissionComment))
	assert.True(t, PermissionComment.AtLeast(PermissionView))
	assert.False(t, PermissionView.AtLeast(PermissionComment))
	assert.False(t, PermissionNone.AtLeast(PermissionView))
}

func TestParsePermission(t *testing.T) {
	for _, p := range []Permission{PermissionNone, PermissionView, PermissionComment, PermissionEdit, PermissionOwner} {
		got, err := ParsePermission(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}

	_, err := ParsePermission("admin")
	assert.Error(t, err)
}

func TestPermissionJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		P Permission `json:"p"`
	}{PermissionComment})
	require.NoError(t, err)
	assert.JSONEq(t, `{"p":"comment"}`, string(b))

	var in struct {
		P Permission `json:"p"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"p":"edit"}`), &in))
	assert.Equal(t, PermissionEdit, in.P)
	assert.Error(t, json.Unmarshal([]byte(`{"p":"root"}`), &in))
}

func TestDocumentState(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	later := now.Add(time.Hour)
	earlier := now.Add(-time.Hour)

	d := Document{PurgeAt: &earlier}
	assert.Equal(t, StateActive, d.State())
	assert.False(t, d.PurgeDue(now), "live documents are never purged")

	d.IsDeleted = true
	d.PurgeAt = &later
	assert.Equal(t, StateSoftDeleted, d.State())
	assert.False(t, d.PurgeDue(now))

	d.PurgeAt = &earlier
	assert.Equal(t, StateSoftDeleted, d.State(), "rows past purge time wait for the sweeper")
	assert.True(t, d.PurgeDue(now))
	assert.True(t, d.PurgeDue(earlier))
}

func TestDocumentExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	assert.False(t, (&Document{}).Expired(now))
	assert.True(t, (&Document{ExpiresAt: &past}).Expired(now))
	assert.True(t, (&Document{ExpiresAt: &now}).Expired(now))
	assert.False(t, (&Document{ExpiresAt: &future}).Expired(now))
}

func TestShareValidate(t *testing.T) {
	user, group, empty := "u1", "g1", ""

	tests := []struct {
		name    string
		share   Share
		wantErr error
	}{
		{name: "user share", share: Share{SharedWithUser: &user, Permission: PermissionView}},
		{name: "group share", share: Share{SharedWithGroup: &group, Permission: PermissionEdit}},
		{name: "neither target", share: Share{Permission: PermissionView}, wantErr: ErrShareTarget},
		{name: "empty target", share: Share{SharedWithUser: &empty, Permission: PermissionView}, wantErr: ErrShareTarget},
		{name: "both targets", share: Share{SharedWithUser: &user, SharedWithGroup: &group, Permission: PermissionView}, wantErr: ErrShareTarget},
		{name: "no permission", share: Share{SharedWithUser: &user}, wantErr: ErrSharePermission},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.share.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestShareActive(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Second)
	future := now.Add(time.Second)

	assert.True(t, (&Share{}).Active(now))
	assert.True(t, (&Share{ExpiresAt: &future}).Active(now))
	assert.False(t, (&Share{ExpiresAt: &past}).Active(now))
}

func TestPublicLinkUsable(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Second)
	one := 1

	assert.True(t, (&PublicLink{}).Usable(now))
	assert.False(t, (&PublicLink{ExpiresAt: &past}).Usable(now))
	assert.True(t, (&PublicLink{MaxUses: &one}).Usable(now))
	assert.False(t, (&PublicLink{MaxUses: &one, UseCount: 1}).Usable(now))
}

func TestValidateLinkPermission(t *testing.T) {
	assert.NoError(t, ValidateLinkPermission(PermissionEdit))
	assert.ErrorIs(t, ValidateLinkPermission(PermissionOwner), ErrLinkPermission)
	assert.ErrorIs(t, ValidateLinkPermission(PermissionNone), ErrLinkPermission)
}

func TestParseAccessAction(t *testing.T) {
	a, err := ParseAccessAction("print")
	require.NoError(t, err)
	assert.Equal(t, ActionPrint, a)
	assert.False(t, a.Consumable())
	assert.True(t, ActionDownload.Consumable())

	_, err = ParseAccessAction("rename")
	assert.Error(t, err)
}
