package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"docvault/internal/metrics"
	"docvault/internal/model"
	"docvault/internal/repository"
)

// DefaultAuditTimeout bounds a single access log write.
const DefaultAuditTimeout = 2 * time.Second

type clientInfoKey struct{}

// WithClientInfo attaches request metadata that access log entries capture.
func WithClientInfo(ctx context.Context, info model.ClientInfo) context.Context {
	return context.WithValue(ctx, clientInfoKey{}, info)
}

// ClientInfoFrom returns the metadata stored by WithClientInfo.
func ClientInfoFrom(ctx context.Context) model.ClientInfo {
	info, _ := ctx.Value(clientInfoKey{}).(model.ClientInfo)
	return info
}

// AccessLogger appends audit entries. Writes are best-effort: a failure is
// logged and counted but never undoes the action being recorded.
type AccessLogger struct {
	settings
	repo    repository.AccessLogRepository
	timeout time.Duration
}

func NewAccessLogger(repo repository.AccessLogRepository, timeout time.Duration, opts ...Option) *AccessLogger {
	if timeout <= 0 {
		timeout = DefaultAuditTimeout
	}
	s := newSettings(opts)
	s.log = s.log.With(zap.String("component", "access_log"))
	return &AccessLogger{settings: s, repo: repo, timeout: timeout}
}

// Record writes one entry. The write outlives cancellation of ctx but is
// bounded by the audit timeout. The returned error wraps ErrLogging.
func (l *AccessLogger) Record(ctx context.Context, documentID string, actor model.Actor, versionID *string, action model.AccessAction, client model.ClientInfo) error {
	entry := &model.AccessLogEntry{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		UserID:     actor.UserRef(),
		VersionID:  versionID,
		Action:     action,
		OccurredAt: l.now(),
		Client:     client,
	}

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
	defer cancel()

	if err := l.repo.Append(wctx, entry); err != nil {
		metrics.AccessLogFailures.Inc()
		l.log.Error("access_log_write_failed",
			zap.String("document_id", documentID),
			zap.String("action", string(action)),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %v", ErrLogging, err)
	}
	return nil
}

// note records an action on behalf of a core operation, taking client
// metadata from ctx. The error is already logged, so it is dropped here.
func (l *AccessLogger) note(ctx context.Context, documentID string, actor model.Actor, versionID *string, action model.AccessAction) {
	_ = l.Record(ctx, documentID, actor, versionID, action, ClientInfoFrom(ctx))
}
