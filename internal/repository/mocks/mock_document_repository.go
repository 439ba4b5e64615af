package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"docvault/internal/model"
	"docvault/internal/repository"
)

type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) CreateWithVersion(ctx context.Context, doc *model.Document, version *model.DocumentVersion, tags []string) error {
	args := m.Called(ctx, doc, version, tags)
	return args.Error(0)
}

func (m *MockDocumentRepository) FindByID(ctx context.Context, id string) (*model.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentRepository) List(ctx context.Context, f model.DocumentFilter) (*repository.PageResult[model.Document], error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.Document]), args.Error(1)
}

func (m *MockDocumentRepository) UpdateMetadata(ctx context.Context, doc *model.Document) error {
	return m.Called(ctx, doc).Error(0)
}

func (m *MockDocumentRepository) SetDeleted(ctx context.Context, id string, deleted bool, purgeAt *time.Time, at time.Time) error {
	return m.Called(ctx, id, deleted, purgeAt, at).Error(0)
}

func (m *MockDocumentRepository) Touch(ctx context.Context, id string, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *MockDocumentRepository) ReplaceTags(ctx context.Context, id string, tags []string, by string) error {
	return m.Called(ctx, id, tags, by).Error(0)
}

func (m *MockDocumentRepository) Tags(ctx context.Context, id string) ([]string, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockDocumentRepository) ListPurgeable(ctx context.Context, now time.Time, limit int) ([]model.Document, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Document), args.Error(1)
}

func (m *MockDocumentRepository) HardDelete(ctx context.Context, id string, now time.Time) error {
	return m.Called(ctx, id, now).Error(0)
}

type MockVersionRepository struct {
	mock.Mock
}

func (m *MockVersionRepository) AppendVersion(ctx context.Context, v *model.DocumentVersion, expectedLatest int) error {
	return m.Called(ctx, v, expectedLatest).Error(0)
}

func (m *MockVersionRepository) FindVersion(ctx context.Context, documentID string, number int) (*model.DocumentVersion, error) {
	args := m.Called(ctx, documentID, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DocumentVersion), args.Error(1)
}

func (m *MockVersionRepository) ListVersions(ctx context.Context, documentID string) ([]model.DocumentVersion, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DocumentVersion), args.Error(1)
}
