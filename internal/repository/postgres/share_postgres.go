package postgres

import (
	"context"
	"database/sql"
	"time"

	"docvault/internal/model"
	"docvault/internal/repository"
)

const shareColumns = `id, document_id, shared_with_user, shared_with_group, permission, shared_by,
	shared_at, expires_at, access_count, message`

const linkColumns = `id, document_id, created_by, permission, password_hash, max_uses, use_count,
	created_at, expires_at`

// SharePostgres implements repository.ShareRepository.
type SharePostgres struct {
	db *sql.DB
}

func NewSharePostgres(db *sql.DB) *SharePostgres {
	return &SharePostgres{db: db}
}

var _ repository.ShareRepository = (*SharePostgres)(nil)

func scanShare(row rowScanner) (*model.Share, error) {
	var (
		s           model.Share
		user, group sql.NullString
		perm        string
		expires     sql.NullTime
	)
	err := row.Scan(&s.ID, &s.DocumentID, &user, &group, &perm, &s.SharedBy,
		&s.SharedAt, &expires, &s.AccessCount, &s.Message)
	if err != nil {
		return nil, err
	}
	if s.Permission, err = model.ParsePermission(perm); err != nil {
		return nil, err
	}
	s.SharedWithUser = stringPtr(user)
	s.SharedWithGroup = stringPtr(group)
	s.ExpiresAt = timePtr(expires)
	return &s, nil
}

func collectShares(rows *sql.Rows) ([]model.Share, error) {
	defer rows.Close()
	shares := make([]model.Share, 0)
	for rows.Next() {
		s, err := scanShare(rows)
		if err != nil {
			return nil, err
		}
		shares = append(shares, *s)
	}
	return shares, rows.Err()
}

func (r *SharePostgres) Create(ctx context.Context, s *model.Share) error {
	const q = `INSERT INTO document_shares (` + shareColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.db.ExecContext(ctx, q, s.ID, s.DocumentID, nullString(s.SharedWithUser), nullString(s.SharedWithGroup),
		s.Permission.String(), s.SharedBy, s.SharedAt, nullTime(s.ExpiresAt), s.AccessCount, s.Message)
	return mapErr(err)
}

func (r *SharePostgres) FindByID(ctx context.Context, id string) (*model.Share, error) {
	s, err := scanShare(r.db.QueryRowContext(ctx, `SELECT `+shareColumns+` FROM document_shares WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr(err)
	}
	return s, nil
}

func (r *SharePostgres) ListByDocument(ctx context.Context, documentID string) ([]model.Share, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+shareColumns+` FROM document_shares WHERE document_id = $1 ORDER BY shared_at`, documentID)
	if err != nil {
		return nil, err
	}
	return collectShares(rows)
}

// ActiveUserShare returns the unexpired direct share for userID.
func (r *SharePostgres) ActiveUserShare(ctx context.Context, documentID, userID string, now time.Time) (*model.Share, error) {
	q := `SELECT ` + shareColumns + ` FROM document_shares
		WHERE document_id = $1 AND shared_with_user = $2 AND (expires_at IS NULL OR expires_at > $3)`
	s, err := scanShare(r.db.QueryRowContext(ctx, q, documentID, userID, now))
	if err != nil {
		return nil, mapErr(err)
	}
	return s, nil
}

// ActiveGroupShares returns every unexpired group share of the document.
func (r *SharePostgres) ActiveGroupShares(ctx context.Context, documentID string, now time.Time) ([]model.Share, error) {
	q := `SELECT ` + shareColumns + ` FROM document_shares
		WHERE document_id = $1 AND shared_with_group IS NOT NULL AND (expires_at IS NULL OR expires_at > $2)`
	rows, err := r.db.QueryContext(ctx, q, documentID, now)
	if err != nil {
		return nil, err
	}
	return collectShares(rows)
}

func (r *SharePostgres) IncrementAccess(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE document_shares SET access_count = access_count + 1 WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (r *SharePostgres) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM document_shares WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// PublicLinkPostgres implements repository.PublicLinkRepository.
type PublicLinkPostgres struct {
	db *sql.DB
}

func NewPublicLinkPostgres(db *sql.DB) *PublicLinkPostgres {
	return &PublicLinkPostgres{db: db}
}

var _ repository.PublicLinkRepository = (*PublicLinkPostgres)(nil)

func scanLink(row rowScanner) (*model.PublicLink, error) {
	var (
		l       model.PublicLink
		perm    string
		hash    sql.NullString
		maxUses sql.NullInt64
		expires sql.NullTime
	)
	err := row.Scan(&l.ID, &l.DocumentID, &l.CreatedBy, &perm, &hash, &maxUses, &l.UseCount, &l.CreatedAt, &expires)
	if err != nil {
		return nil, err
	}
	if l.Permission, err = model.ParsePermission(perm); err != nil {
		return nil, err
	}
	l.PasswordHash = stringPtr(hash)
	l.MaxUses = intPtr(maxUses)
	l.ExpiresAt = timePtr(expires)
	return &l, nil
}

func (r *PublicLinkPostgres) Create(ctx context.Context, l *model.PublicLink) error {
	const q = `INSERT INTO public_document_links (` + linkColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(ctx, q, l.ID, l.DocumentID, l.CreatedBy, l.Permission.String(),
		nullString(l.PasswordHash), nullInt(l.MaxUses), l.UseCount, l.CreatedAt, nullTime(l.ExpiresAt))
	return mapErr(err)
}

func (r *PublicLinkPostgres) FindByID(ctx context.Context, id string) (*model.PublicLink, error) {
	l, err := scanLink(r.db.QueryRowContext(ctx, `SELECT `+linkColumns+` FROM public_document_links WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr(err)
	}
	return l, nil
}

func (r *PublicLinkPostgres) ListByDocument(ctx context.Context, documentID string) ([]model.PublicLink, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+linkColumns+` FROM public_document_links WHERE document_id = $1 ORDER BY created_at`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := make([]model.PublicLink, 0)
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, *l)
	}
	return links, rows.Err()
}

// ConsumeUse spends one use. The guard in the WHERE clause makes the check
// and the increment a single atomic statement, so concurrent callers can
// never push use_count past max_uses.
func (r *PublicLinkPostgres) ConsumeUse(ctx context.Context, id string, now time.Time) (int, error) {
	const q = `UPDATE public_document_links SET use_count = use_count + 1
		WHERE id = $1 AND (max_uses IS NULL OR use_count < max_uses) AND (expires_at IS NULL OR expires_at > $2)
		RETURNING use_count`
	var count int
	if err := r.db.QueryRowContext(ctx, q, id, now).Scan(&count); err != nil {
		if mapped := mapErr(err); mapped == repository.ErrNotFound {
			return 0, repository.ErrLinkUnavailable
		}
		return 0, err
	}
	return count, nil
}

func (r *PublicLinkPostgres) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM public_document_links WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}
