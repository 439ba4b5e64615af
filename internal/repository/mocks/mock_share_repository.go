package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"docvault/internal/model"
)

type MockShareRepository struct {
	mock.Mock
}

func (m *MockShareRepository) Create(ctx context.Context, s *model.Share) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockShareRepository) FindByID(ctx context.Context, id string) (*model.Share, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Share), args.Error(1)
}

func (m *MockShareRepository) ListByDocument(ctx context.Context, documentID string) ([]model.Share, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Share), args.Error(1)
}

func (m *MockShareRepository) ActiveUserShare(ctx context.Context, documentID, userID string, now time.Time) (*model.Share, error) {
	args := m.Called(ctx, documentID, userID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Share), args.Error(1)
}

func (m *MockShareRepository) ActiveGroupShares(ctx context.Context, documentID string, now time.Time) ([]model.Share, error) {
	args := m.Called(ctx, documentID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Share), args.Error(1)
}

func (m *MockShareRepository) IncrementAccess(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockShareRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type MockPublicLinkRepository struct {
	mock.Mock
}

func (m *MockPublicLinkRepository) Create(ctx context.Context, l *model.PublicLink) error {
	return m.Called(ctx, l).Error(0)
}

func (m *MockPublicLinkRepository) FindByID(ctx context.Context, id string) (*model.PublicLink, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PublicLink), args.Error(1)
}

func (m *MockPublicLinkRepository) ListByDocument(ctx context.Context, documentID string) ([]model.PublicLink, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PublicLink), args.Error(1)
}

func (m *MockPublicLinkRepository) ConsumeUse(ctx context.Context, id string, now time.Time) (int, error) {
	args := m.Called(ctx, id, now)
	return args.Int(0), args.Error(1)
}

func (m *MockPublicLinkRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type MockAccessLogRepository struct {
	mock.Mock
}

func (m *MockAccessLogRepository) Append(ctx context.Context, e *model.AccessLogEntry) error {
	return m.Called(ctx, e).Error(0)
}

type MockGroupRepository struct {
	mock.Mock
}

func (m *MockGroupRepository) IsMember(ctx context.Context, userID, groupID string) (bool, error) {
	args := m.Called(ctx, userID, groupID)
	return args.Bool(0), args.Error(1)
}
