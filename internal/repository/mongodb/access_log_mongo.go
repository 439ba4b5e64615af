// Package mongodb stores access log entries in a MongoDB collection when
// AUDIT_SINK=mongo.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"docvault/internal/model"
	"docvault/internal/repository"
)

// AccessLogCollection is the collection audit entries are written to.
const AccessLogCollection = "document_access_logs"

// Connect opens a client and verifies it with a ping. Caller should call client.Disconnect(ctx).
func Connect(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

type accessLogDoc struct {
	ID          string    `bson:"_id"`
	DocumentID  string    `bson:"document_id"`
	UserID      *string   `bson:"user_id,omitempty"`
	VersionID   *string   `bson:"version_id,omitempty"`
	Action      string    `bson:"action"`
	OccurredAt  time.Time `bson:"occurred_at"`
	IPAddress   string    `bson:"ip_address,omitempty"`
	UserAgent   string    `bson:"user_agent,omitempty"`
	CountryCode string    `bson:"country_code,omitempty"`
	DeviceType  string    `bson:"device_type,omitempty"`
}

// AccessLogMongo implements repository.AccessLogRepository on a Mongo collection.
type AccessLogMongo struct {
	col *mongo.Collection
}

func NewAccessLogMongo(col *mongo.Collection) *AccessLogMongo {
	return &AccessLogMongo{col: col}
}

var _ repository.AccessLogRepository = (*AccessLogMongo)(nil)

// EnsureIndexes creates the (document_id, occurred_at) lookup index.
func (r *AccessLogMongo) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "document_id", Value: 1}, {Key: "occurred_at", Value: -1}},
	})
	return err
}

func (r *AccessLogMongo) Append(ctx context.Context, e *model.AccessLogEntry) error {
	_, err := r.col.InsertOne(ctx, accessLogDoc{
		ID:          e.ID,
		DocumentID:  e.DocumentID,
		UserID:      e.UserID,
		VersionID:   e.VersionID,
		Action:      string(e.Action),
		OccurredAt:  e.OccurredAt,
		IPAddress:   e.Client.IPAddress,
		UserAgent:   e.Client.UserAgent,
		CountryCode: e.Client.CountryCode,
		DeviceType:  e.Client.DeviceType,
	})
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", repository.ErrDuplicate, err)
	}
	return err
}
