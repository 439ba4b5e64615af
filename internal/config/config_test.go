package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Setenv("DB_HOST", "test-host")
	t.Setenv("DB_MAX_OPEN_CONNS", "20")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("GROUP_CACHE_TTL", "30s")
	t.Setenv("VERSION_APPEND_RETRIES", "5")
	t.Setenv("AUDIT_SINK", "mongo")
	t.Setenv("OP_TIMEOUT", "5s")

	cfg := Load()

	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.True(t, cfg.MinIO.UseSSL)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 30*time.Second, cfg.Redis.GroupTTL)
	assert.Equal(t, 5, cfg.Core.VersionAppendRetries)
	assert.Equal(t, AuditSinkMongo, cfg.AuditSink)
	assert.Equal(t, 5*time.Second, cfg.Core.OpTimeout)
	assert.Equal(t, 5*time.Second, cfg.Database.StatementTimeout)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_PORT", "")
	t.Setenv("VERSION_APPEND_RETRIES", "")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, StoreBackendPostgres, cfg.StoreBackend)
	assert.Equal(t, 3, cfg.Core.VersionAppendRetries)
	assert.Equal(t, 30*24*time.Hour, cfg.Core.SoftDeleteRetention)
	assert.Equal(t, 2*time.Second, cfg.Core.AuditTimeout)
	assert.Equal(t, 100, cfg.Sweeper.BatchSize)
	assert.Equal(t, 10, cfg.LinkRateBurst)
	assert.Equal(t, 30*time.Second, cfg.Database.StatementTimeout)
}
