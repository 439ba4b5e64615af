package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"docvault/internal/config"
	"docvault/internal/database"
	"docvault/internal/database/migration"
	"docvault/internal/identity"
	"docvault/internal/repository/memory"
	"docvault/internal/repository/mongodb"
	"docvault/internal/repository/postgres"
	"docvault/internal/service"
	"docvault/internal/storage"
)

// backend holds the stores selected by configuration. close releases every
// connection that was opened.
type backend struct {
	db     *sql.DB
	repos  service.Repositories
	store  storage.Storage
	groups identity.Provider
	closer []func()
}

func (b *backend) close() {
	for i := len(b.closer) - 1; i >= 0; i-- {
		b.closer[i]()
	}
}

func openBackend(ctx context.Context, cfg *config.AppConfig, log *zap.Logger) (*backend, error) {
	b := &backend{}

	switch cfg.StoreBackend {
	case config.StoreBackendMemory:
		log.Warn("store_backend_memory", zap.String("msg", "documents are kept in process memory"))
		mem := memory.New()
		docs := mem.Documents()
		b.repos = service.Repositories{
			Documents:  docs,
			Versions:   docs,
			Shares:     mem.Shares(),
			Links:      mem.Links(),
			AccessLogs: mem.AccessLogs(),
		}
		b.groups = mem.Groups()
	case config.StoreBackendPostgres:
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		b.db = db
		b.closer = append(b.closer, func() { _ = db.Close() })

		if err := migration.EnsureMigrated(ctx, db, log, cfg.Database.Host); err != nil {
			b.close()
			return nil, err
		}
		docs := postgres.NewDocumentPostgres(db)
		b.repos = service.Repositories{
			Documents:  docs,
			Versions:   docs,
			Shares:     postgres.NewSharePostgres(db),
			Links:      postgres.NewPublicLinkPostgres(db),
			AccessLogs: postgres.NewAccessLogPostgres(db),
		}
		b.groups = postgres.NewGroupPostgres(db)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	if err := b.openStorage(ctx, cfg, log); err != nil {
		b.close()
		return nil, err
	}
	if err := b.openAuditSink(ctx, cfg); err != nil {
		b.close()
		return nil, err
	}
	b.openIdentity(cfg, log)
	return b, nil
}

func (b *backend) openStorage(ctx context.Context, cfg *config.AppConfig, log *zap.Logger) error {
	if cfg.MinIO.Endpoint == "" {
		log.Warn("object_storage_memory", zap.String("msg", "MINIO_ENDPOINT not set, blobs are kept in process memory"))
		b.store = storage.NewMemory()
		return nil
	}
	store, err := storage.NewMinIO(ctx, cfg.MinIO)
	if err != nil {
		return fmt.Errorf("initialize object storage: %w", err)
	}
	b.store = store
	return nil
}

func (b *backend) openAuditSink(ctx context.Context, cfg *config.AppConfig) error {
	if cfg.AuditSink != config.AuditSinkMongo {
		return nil
	}
	client, err := mongodb.Connect(ctx, cfg.Mongo.URI, 10*time.Second)
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}
	b.closer = append(b.closer, func() { disconnectMongo(client) })

	logs := mongodb.NewAccessLogMongo(client.Database(cfg.Mongo.Database).Collection(mongodb.AccessLogCollection))
	if err := logs.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("ensure access log indexes: %w", err)
	}
	b.repos.AccessLogs = logs
	return nil
}

func disconnectMongo(client *mongo.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = client.Disconnect(ctx)
}

// openIdentity prefers the remote directory when one is configured and puts
// the Redis cache in front of whichever provider is used.
func (b *backend) openIdentity(cfg *config.AppConfig, log *zap.Logger) {
	if cfg.IdentityURL != "" {
		b.groups = identity.NewRemote(cfg.IdentityURL, cfg.Core.OpTimeout)
	}
	if cfg.Redis.Addr == "" {
		return
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	b.closer = append(b.closer, func() { _ = rdb.Close() })
	b.groups = identity.NewCached(b.groups, rdb, cfg.Redis.GroupTTL, log)
}
