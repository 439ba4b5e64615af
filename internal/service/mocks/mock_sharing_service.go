package mocks

import (
	"context"

	"docvault/internal/model"
	"docvault/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockSharingService struct {
	mock.Mock
}

var _ service.SharingService = (*MockSharingService)(nil)

func (m *MockSharingService) ShareDocument(ctx context.Context, actor model.Actor, documentID string, in service.ShareInput) (*model.Share, error) {
	args := m.Called(ctx, actor, documentID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Share), args.Error(1)
}

func (m *MockSharingService) ListShares(ctx context.Context, actor model.Actor, documentID string) ([]model.Share, error) {
	args := m.Called(ctx, actor, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Share), args.Error(1)
}

func (m *MockSharingService) RevokeShare(ctx context.Context, actor model.Actor, documentID, shareID string) error {
	args := m.Called(ctx, actor, documentID, shareID)
	return args.Error(0)
}

func (m *MockSharingService) CreatePublicLink(ctx context.Context, actor model.Actor, documentID string, in service.LinkInput) (*model.PublicLink, error) {
	args := m.Called(ctx, actor, documentID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PublicLink), args.Error(1)
}

func (m *MockSharingService) ListPublicLinks(ctx context.Context, actor model.Actor, documentID string) ([]model.PublicLink, error) {
	args := m.Called(ctx, actor, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PublicLink), args.Error(1)
}

func (m *MockSharingService) RevokePublicLink(ctx context.Context, actor model.Actor, documentID, token string) error {
	args := m.Called(ctx, actor, documentID, token)
	return args.Error(0)
}

func (m *MockSharingService) LookupLink(ctx context.Context, token string) (*model.PublicLink, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PublicLink), args.Error(1)
}
