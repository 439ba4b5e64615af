package mocks

import (
	"context"

	"docvault/internal/model"
	"docvault/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockDocumentService struct {
	mock.Mock
}

var _ service.DocumentService = (*MockDocumentService)(nil)

func (m *MockDocumentService) Create(ctx context.Context, actor model.Actor, in service.CreateInput) (*model.DocumentDetail, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DocumentDetail), args.Error(1)
}

func (m *MockDocumentService) List(ctx context.Context, actor model.Actor, f model.DocumentFilter) (*service.DocumentListResult, error) {
	args := m.Called(ctx, actor, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DocumentListResult), args.Error(1)
}

func (m *MockDocumentService) Get(ctx context.Context, actor model.Actor, id string) (*model.DocumentDetail, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DocumentDetail), args.Error(1)
}

func (m *MockDocumentService) Update(ctx context.Context, actor model.Actor, id string, in service.UpdateInput) (*model.DocumentDetail, error) {
	args := m.Called(ctx, actor, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DocumentDetail), args.Error(1)
}

func (m *MockDocumentService) SoftDelete(ctx context.Context, actor model.Actor, id string) error {
	args := m.Called(ctx, actor, id)
	return args.Error(0)
}

func (m *MockDocumentService) Restore(ctx context.Context, actor model.Actor, id string) (*model.Document, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentService) UploadVersion(ctx context.Context, actor model.Actor, id string, in service.VersionInput) (*model.DocumentVersion, error) {
	args := m.Called(ctx, actor, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DocumentVersion), args.Error(1)
}

func (m *MockDocumentService) GetVersion(ctx context.Context, actor model.Actor, id string, number *int) (*model.DocumentVersion, error) {
	args := m.Called(ctx, actor, id, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DocumentVersion), args.Error(1)
}

func (m *MockDocumentService) ListVersions(ctx context.Context, actor model.Actor, id string) ([]model.DocumentVersion, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DocumentVersion), args.Error(1)
}

func (m *MockDocumentService) Download(ctx context.Context, actor model.Actor, id string, number *int) (*service.Download, error) {
	args := m.Called(ctx, actor, id, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Download), args.Error(1)
}

func (m *MockDocumentService) Preview(ctx context.Context, actor model.Actor, id string) (*service.Preview, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Preview), args.Error(1)
}

func (m *MockDocumentService) ResolveAccess(ctx context.Context, actor model.Actor, id string) (service.Decision, error) {
	args := m.Called(ctx, actor, id)
	return args.Get(0).(service.Decision), args.Error(1)
}

func (m *MockDocumentService) RecordAccess(ctx context.Context, actor model.Actor, id string, number *int, action model.AccessAction, client model.ClientInfo) error {
	args := m.Called(ctx, actor, id, number, action, client)
	return args.Error(0)
}
