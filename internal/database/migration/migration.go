package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_extension_uuid_ossp",
		SQL:  `CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	},
	{
		Name: "create_table_documents",
		SQL: `CREATE TABLE IF NOT EXISTS documents (
  id               UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  owner_id         TEXT        NOT NULL,
  folder_id        TEXT,
  title            TEXT        NOT NULL,
  description      TEXT        NOT NULL DEFAULT '',
  latest_version   INTEGER     NOT NULL DEFAULT 1 CHECK (latest_version >= 1),
  is_public        BOOLEAN     NOT NULL DEFAULT false,
  is_deleted       BOOLEAN     NOT NULL DEFAULT false,
  is_favorite      BOOLEAN     NOT NULL DEFAULT false,
  expires_at       TIMESTAMPTZ,
  purge_at         TIMESTAMPTZ,
  last_accessed_at TIMESTAMPTZ,
  created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_documents_owner",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_owner ON documents (owner_id, is_deleted);`,
	},
	{
		Name: "create_index_documents_purge_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_purge_at ON documents (purge_at) WHERE is_deleted;`,
	},
	{
		Name: "create_table_document_versions",
		SQL: `CREATE TABLE IF NOT EXISTS document_versions (
  id               UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  document_id      UUID        NOT NULL REFERENCES documents (id) ON DELETE CASCADE,
  version_number   INTEGER     NOT NULL CHECK (version_number >= 1),
  file_name        TEXT        NOT NULL,
  file_path        TEXT        NOT NULL UNIQUE,
  file_type        TEXT        NOT NULL DEFAULT '',
  mime_type        TEXT        NOT NULL DEFAULT '',
  file_size        BIGINT      NOT NULL CHECK (file_size >= 0),
  file_hash        CHAR(64)    NOT NULL,
  storage_provider TEXT        NOT NULL DEFAULT 's3',
  uploaded_by      TEXT        NOT NULL,
  change_summary   TEXT        NOT NULL DEFAULT '',
  is_autosave      BOOLEAN     NOT NULL DEFAULT false,
  uploaded_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
  UNIQUE (document_id, version_number)
);`,
	},
	{
		Name: "create_table_tags",
		SQL: `CREATE TABLE IF NOT EXISTS tags (
  id         BIGSERIAL   PRIMARY KEY,
  name       TEXT        NOT NULL UNIQUE,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_document_tags",
		SQL: `CREATE TABLE IF NOT EXISTS document_tags (
  document_id UUID        NOT NULL REFERENCES documents (id) ON DELETE CASCADE,
  tag_id      BIGINT      NOT NULL REFERENCES tags (id) ON DELETE CASCADE,
  added_by    TEXT        NOT NULL,
  added_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
  PRIMARY KEY (document_id, tag_id)
);`,
	},
	{
		Name: "create_table_document_shares",
		SQL: `CREATE TABLE IF NOT EXISTS document_shares (
  id                UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  document_id       UUID        NOT NULL REFERENCES documents (id) ON DELETE CASCADE,
  shared_with_user  TEXT,
  shared_with_group TEXT,
  permission        TEXT        NOT NULL CHECK (permission IN ('view', 'comment', 'edit', 'owner')),
  shared_by         TEXT        NOT NULL,
  shared_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
  expires_at        TIMESTAMPTZ,
  access_count      INTEGER     NOT NULL DEFAULT 0,
  message           TEXT        NOT NULL DEFAULT '',
  CHECK ((shared_with_user IS NULL) <> (shared_with_group IS NULL))
);`,
	},
	{
		Name: "create_index_document_shares_user",
		SQL:  `CREATE UNIQUE INDEX IF NOT EXISTS uq_document_shares_user ON document_shares (document_id, shared_with_user) WHERE shared_with_user IS NOT NULL;`,
	},
	{
		Name: "create_index_document_shares_group",
		SQL:  `CREATE UNIQUE INDEX IF NOT EXISTS uq_document_shares_group ON document_shares (document_id, shared_with_group) WHERE shared_with_group IS NOT NULL;`,
	},
	{
		Name: "create_table_public_document_links",
		SQL: `CREATE TABLE IF NOT EXISTS public_document_links (
  id            VARCHAR(64) PRIMARY KEY,
  document_id   UUID        NOT NULL REFERENCES documents (id) ON DELETE CASCADE,
  created_by    TEXT        NOT NULL,
  permission    TEXT        NOT NULL CHECK (permission IN ('view', 'comment', 'edit')),
  password_hash TEXT,
  max_uses      INTEGER     CHECK (max_uses IS NULL OR max_uses > 0),
  use_count     INTEGER     NOT NULL DEFAULT 0,
  created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
  expires_at    TIMESTAMPTZ,
  CHECK (max_uses IS NULL OR use_count <= max_uses)
);`,
	},
	{
		Name: "create_table_document_access_logs",
		SQL: `CREATE TABLE IF NOT EXISTS document_access_logs (
  id           UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  document_id  UUID        NOT NULL REFERENCES documents (id) ON DELETE CASCADE,
  user_id      TEXT,
  version_id   UUID        REFERENCES document_versions (id) ON DELETE SET NULL,
  action       TEXT        NOT NULL CHECK (action IN ('view', 'download', 'delete', 'update', 'restore', 'share', 'preview', 'print', 'upload')),
  occurred_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
  ip_address   VARCHAR(45),
  user_agent   TEXT,
  country_code VARCHAR(2),
  device_type  VARCHAR(50)
);`,
	},
	{
		Name: "create_index_document_access_logs",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_document_access_logs_doc_user ON document_access_logs (document_id, user_id);`,
	},
	{
		Name: "create_table_group_members",
		SQL: `CREATE TABLE IF NOT EXISTS group_members (
  group_id  TEXT        NOT NULL,
  user_id   TEXT        NOT NULL,
  role      TEXT        NOT NULL DEFAULT 'member',
  joined_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  PRIMARY KEY (group_id, user_id)
);`,
	},
}

// EnsureMigrated checks if the 'documents' table exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, log *zap.Logger, dbHost string) error {
	start := time.Now()
	log = log.With(zap.String("component", "database"), zap.String("db_host", dbHost))

	log.Info("db_migration_check", zap.String("status", "starting"))

	var exists bool
	query := "SELECT to_regclass('public.documents') IS NOT NULL"
	err := db.QueryRowContext(ctx, query).Scan(&exists)
	if err != nil {
		log.Error("db_migration_failed",
			zap.String("status", "error"),
			zap.Error(err),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.Info("db_migration_skip",
			zap.String("status", "success"),
			zap.String("msg", "schema already exists, skipping migration"),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return nil
	}

	log.Info("db_migration_start", zap.String("status", "in_progress"))

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error("db_migration_failed",
				zap.String("status", "error"),
				zap.String("migration_step", step.Name),
				zap.Error(err),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
				zap.Int64("step_duration_ms", time.Since(stepStart).Milliseconds()),
			)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.Info("db_migration_step",
			zap.String("status", "success"),
			zap.String("migration_step", step.Name),
			zap.Int64("step_duration_ms", time.Since(stepStart).Milliseconds()),
		)
	}

	log.Info("db_migration_success",
		zap.String("status", "success"),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	return nil
}
