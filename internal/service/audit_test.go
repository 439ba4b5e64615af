package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"docvault/internal/metrics"
	"docvault/internal/model"
	repoMocks "docvault/internal/repository/mocks"
)

func TestAccessLogger_Record(t *testing.T) {
	t.Run("writes a complete entry", func(t *testing.T) {
		repo := new(repoMocks.MockAccessLogRepository)
		repo.On("Append", mock.Anything, mock.MatchedBy(func(e *model.AccessLogEntry) bool {
			return e.ID != "" && e.DocumentID == "d1" && *e.UserID == "bob" && *e.VersionID == "v1" &&
				e.Action == model.ActionDownload && e.OccurredAt.Equal(fixedNow) && e.Client.IPAddress == "10.0.0.1"
		})).Return(nil)

		l := NewAccessLogger(repo, time.Second, WithClock(func() time.Time { return fixedNow }))
		err := l.Record(context.Background(), "d1", model.Actor{UserID: "bob"}, ptr("v1"), model.ActionDownload,
			model.ClientInfo{IPAddress: "10.0.0.1"})

		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("outlives caller cancellation", func(t *testing.T) {
		repo := new(repoMocks.MockAccessLogRepository)
		repo.On("Append", mock.MatchedBy(func(ctx context.Context) bool {
			_, hasDeadline := ctx.Deadline()
			return ctx.Err() == nil && hasDeadline
		}), mock.Anything).Return(nil)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := NewAccessLogger(repo, time.Second).Record(ctx, "d1", model.Actor{}, nil, model.ActionView, model.ClientInfo{})

		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("failure is logged counted and reported", func(t *testing.T) {
		repo := new(repoMocks.MockAccessLogRepository)
		repo.On("Append", mock.Anything, mock.Anything).Return(errors.New("table locked"))
		core, logs := observer.New(zapcore.InfoLevel)

		before := testutil.ToFloat64(metrics.AccessLogFailures)
		err := NewAccessLogger(repo, time.Second, WithLogger(zap.New(core))).
			Record(context.Background(), "d1", model.Actor{UserID: "bob"}, nil, model.ActionDelete, model.ClientInfo{})

		assert.ErrorIs(t, err, ErrLogging)
		assert.Equal(t, before+1, testutil.ToFloat64(metrics.AccessLogFailures))
		entries := logs.FilterMessage("access_log_write_failed").All()
		require.Len(t, entries, 1)
		assert.Equal(t, "delete", entries[0].ContextMap()["action"])
	})
}

func TestClientInfoContext(t *testing.T) {
	ctx := WithClientInfo(context.Background(), model.ClientInfo{UserAgent: "curl/8"})

	assert.Equal(t, "curl/8", ClientInfoFrom(ctx).UserAgent)
	assert.Equal(t, model.ClientInfo{}, ClientInfoFrom(context.Background()))
}
