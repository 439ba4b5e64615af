package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"docvault/internal/model"
	"docvault/internal/repository"
)

const documentColumns = `id, owner_id, folder_id, title, description, latest_version, is_public,
	is_deleted, is_favorite, expires_at, purge_at, last_accessed_at, created_at, updated_at`

const versionColumns = `id, document_id, version_number, file_name, file_path, file_type, mime_type,
	file_size, file_hash, storage_provider, uploaded_by, change_summary, is_autosave, uploaded_at`

// DocumentPostgres implements repository.DocumentRepository and
// repository.VersionRepository using PostgreSQL.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var (
	_ repository.DocumentRepository = (*DocumentPostgres)(nil)
	_ repository.VersionRepository  = (*DocumentPostgres)(nil)
)

func scanDocument(row rowScanner) (*model.Document, error) {
	var (
		d                          model.Document
		folder                     sql.NullString
		expires, purge, lastAccess sql.NullTime
	)
	err := row.Scan(&d.ID, &d.OwnerID, &folder, &d.Title, &d.Description, &d.LatestVersion, &d.IsPublic,
		&d.IsDeleted, &d.IsFavorite, &expires, &purge, &lastAccess, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	d.FolderID = stringPtr(folder)
	d.ExpiresAt = timePtr(expires)
	d.PurgeAt = timePtr(purge)
	d.LastAccessedAt = timePtr(lastAccess)
	return &d, nil
}

func scanVersion(row rowScanner) (*model.DocumentVersion, error) {
	var v model.DocumentVersion
	err := row.Scan(&v.ID, &v.DocumentID, &v.VersionNumber, &v.FileName, &v.FilePath, &v.FileType, &v.MimeType,
		&v.FileSize, &v.FileHash, &v.StorageProvider, &v.UploadedBy, &v.ChangeSummary, &v.IsAutosave, &v.UploadedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func insertVersion(ctx context.Context, tx *sql.Tx, v *model.DocumentVersion) error {
	const q = `INSERT INTO document_versions (` + versionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := tx.ExecContext(ctx, q, v.ID, v.DocumentID, v.VersionNumber, v.FileName, v.FilePath, v.FileType,
		v.MimeType, v.FileSize, v.FileHash, v.StorageProvider, v.UploadedBy, v.ChangeSummary, v.IsAutosave, v.UploadedAt)
	return err
}

func insertTags(ctx context.Context, tx *sql.Tx, documentID string, tags []string, by string) error {
	const upsertTag = `INSERT INTO tags (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name RETURNING id`
	const link = `INSERT INTO document_tags (document_id, tag_id, added_by) VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING`

	for _, name := range tags {
		var tagID int64
		if err := tx.QueryRowContext(ctx, upsertTag, name).Scan(&tagID); err != nil {
			return fmt.Errorf("upsert tag %q: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, link, documentID, tagID, by); err != nil {
			return fmt.Errorf("link tag %q: %w", name, err)
		}
	}
	return nil
}

// CreateWithVersion writes the document row, version 1 and the tag links in one transaction.
func (r *DocumentPostgres) CreateWithVersion(ctx context.Context, doc *model.Document, version *model.DocumentVersion, tags []string) error {
	const q = `INSERT INTO documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, q, doc.ID, doc.OwnerID, nullString(doc.FolderID), doc.Title, doc.Description,
			doc.LatestVersion, doc.IsPublic, doc.IsDeleted, doc.IsFavorite, nullTime(doc.ExpiresAt),
			nullTime(doc.PurgeAt), nullTime(doc.LastAccessedAt), doc.CreatedAt, doc.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert document: %w", err)
		}
		if err := insertVersion(ctx, tx, version); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
		return insertTags(ctx, tx, doc.ID, tags, doc.OwnerID)
	})
	return mapErr(err)
}

// FindByID returns a document by ID.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	doc, err := scanDocument(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, mapErr(err)
	}
	return doc, nil
}

// List returns the owner's live documents, newest first, with a total count.
func (r *DocumentPostgres) List(ctx context.Context, f model.DocumentFilter) (*repository.PageResult[model.Document], error) {
	where := []string{"owner_id = $1", "is_deleted = false"}
	args := []any{f.OwnerID}

	if f.FolderID != nil {
		args = append(args, *f.FolderID)
		where = append(where, fmt.Sprintf("folder_id = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		where = append(where, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}
	if f.Favorites {
		where = append(where, "is_favorite = true")
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents WHERE "+clause, args...).Scan(&total); err != nil {
		return nil, err
	}

	pageArgs := append(args, f.Limit, f.Offset)
	q := fmt.Sprintf(`SELECT %s FROM documents WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		documentColumns, clause, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, q, pageArgs...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &repository.PageResult[model.Document]{Items: items, Total: total}, nil
}

// UpdateMetadata writes the caller-editable columns.
func (r *DocumentPostgres) UpdateMetadata(ctx context.Context, doc *model.Document) error {
	const q = `UPDATE documents SET folder_id = $2, title = $3, description = $4, is_public = $5,
		is_favorite = $6, expires_at = $7, updated_at = $8 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, doc.ID, nullString(doc.FolderID), doc.Title, doc.Description,
		doc.IsPublic, doc.IsFavorite, nullTime(doc.ExpiresAt), doc.UpdatedAt)
	if err != nil {
		return mapErr(err)
	}
	return expectOneRow(res)
}

// SetDeleted flips the soft-delete flag.
func (r *DocumentPostgres) SetDeleted(ctx context.Context, id string, deleted bool, purgeAt *time.Time, at time.Time) error {
	const q = `UPDATE documents SET is_deleted = $2, purge_at = $3, updated_at = $4 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id, deleted, nullTime(purgeAt), at)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// Touch records the last access time.
func (r *DocumentPostgres) Touch(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE documents SET last_accessed_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// ReplaceTags drops the current tag links and writes the new set.
func (r *DocumentPostgres) ReplaceTags(ctx context.Context, id string, tags []string, by string) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM document_tags WHERE document_id = $1`, id); err != nil {
			return fmt.Errorf("clear tags: %w", err)
		}
		return insertTags(ctx, tx, id, tags, by)
	})
}

// Tags returns tag names for a document.
func (r *DocumentPostgres) Tags(ctx context.Context, id string) ([]string, error) {
	const q = `SELECT t.name FROM document_tags dt JOIN tags t ON t.id = dt.tag_id
		WHERE dt.document_id = $1 ORDER BY t.name`
	rows, err := r.db.QueryContext(ctx, q, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tags = append(tags, name)
	}
	return tags, rows.Err()
}

// ListPurgeable returns soft-deleted documents due for purge, oldest purge time first.
func (r *DocumentPostgres) ListPurgeable(ctx context.Context, now time.Time, limit int) ([]model.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents
		WHERE is_deleted = true AND purge_at <= $1 ORDER BY purge_at LIMIT $2`
	rows, err := r.db.QueryContext(ctx, q, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *d)
	}
	return docs, rows.Err()
}

// HardDelete removes the document row; versions, tags, shares, links and
// logs go with it through ON DELETE CASCADE. A document restored after it
// was listed no longer matches and is left alone.
func (r *DocumentPostgres) HardDelete(ctx context.Context, id string, now time.Time) error {
	const q = `DELETE FROM documents WHERE id = $1 AND is_deleted = true AND purge_at <= $2`
	res, err := r.db.ExecContext(ctx, q, id, now)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// AppendVersion advances latest_version with a compare-and-set and inserts
// the version row in the same transaction. A soft-deleted document never
// matches the compare-and-set.
func (r *DocumentPostgres) AppendVersion(ctx context.Context, v *model.DocumentVersion, expectedLatest int) error {
	const cas = `UPDATE documents SET latest_version = $2, updated_at = $3
		WHERE id = $1 AND latest_version = $4 AND is_deleted = false`

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, cas, v.DocumentID, v.VersionNumber, v.UploadedAt, expectedLatest)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return repository.ErrVersionConflict
		}
		if err := insertVersion(ctx, tx, v); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %v", repository.ErrVersionConflict, err)
			}
			return fmt.Errorf("insert version: %w", err)
		}
		return nil
	})
	return err
}

// FindVersion returns a single version by number.
func (r *DocumentPostgres) FindVersion(ctx context.Context, documentID string, number int) (*model.DocumentVersion, error) {
	q := `SELECT ` + versionColumns + ` FROM document_versions WHERE document_id = $1 AND version_number = $2`
	v, err := scanVersion(r.db.QueryRowContext(ctx, q, documentID, number))
	if err != nil {
		return nil, mapErr(err)
	}
	return v, nil
}

// ListVersions returns the ledger, newest first.
func (r *DocumentPostgres) ListVersions(ctx context.Context, documentID string) ([]model.DocumentVersion, error) {
	q := `SELECT ` + versionColumns + ` FROM document_versions WHERE document_id = $1 ORDER BY version_number DESC`
	rows, err := r.db.QueryContext(ctx, q, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	versions := make([]model.DocumentVersion, 0)
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, *v)
	}
	return versions, rows.Err()
}
