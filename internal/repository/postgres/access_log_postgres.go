package postgres

import (
	"context"
	"database/sql"

	"docvault/internal/model"
	"docvault/internal/repository"
)

// AccessLogPostgres appends audit rows to document_access_logs.
type AccessLogPostgres struct {
	db *sql.DB
}

func NewAccessLogPostgres(db *sql.DB) *AccessLogPostgres {
	return &AccessLogPostgres{db: db}
}

var _ repository.AccessLogRepository = (*AccessLogPostgres)(nil)

func (r *AccessLogPostgres) Append(ctx context.Context, e *model.AccessLogEntry) error {
	const q = `INSERT INTO document_access_logs
		(id, document_id, user_id, version_id, action, occurred_at, ip_address, user_agent, country_code, device_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.db.ExecContext(ctx, q, e.ID, e.DocumentID, nullString(e.UserID), nullString(e.VersionID),
		string(e.Action), e.OccurredAt, emptyAsNull(e.Client.IPAddress), emptyAsNull(e.Client.UserAgent),
		emptyAsNull(e.Client.CountryCode), emptyAsNull(e.Client.DeviceType))
	return mapErr(err)
}

func emptyAsNull(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// GroupPostgres answers membership from the group_members table.
type GroupPostgres struct {
	db *sql.DB
}

func NewGroupPostgres(db *sql.DB) *GroupPostgres {
	return &GroupPostgres{db: db}
}

var _ repository.GroupRepository = (*GroupPostgres)(nil)

func (r *GroupPostgres) IsMember(ctx context.Context, userID, groupID string) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM group_members WHERE group_id = $1 AND user_id = $2)`, groupID, userID).Scan(&ok)
	return ok, err
}
