package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docrepo/internal/model"
	"docrepo/internal/policy"
	"docrepo/internal/query"
	"docrepo/internal/repository"
)

type MockDocumentRepository struct {
	mock.Mock
}

var _ repository.DocumentRepository = (*MockDocumentRepository)(nil)

func (m *MockDocumentRepository) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	args := m.Called(ctx, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentRepository) FindByID(ctx context.Context, id int64) (*model.DocumentView, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DocumentView), args.Error(1)
}

func (m *MockDocumentRepository) List(ctx context.Context, scope policy.Scope, f query.Filter, p query.Page) (*repository.PageResult[model.DocumentView], error) {
	args := m.Called(ctx, scope, f, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.DocumentView]), args.Error(1)
}

func (m *MockDocumentRepository) Update(ctx context.Context, id int64, patch model.DocumentPatch) error {
	args := m.Called(ctx, id, patch)
	return args.Error(0)
}

func (m *MockDocumentRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDocumentRepository) IncrementDownloadCount(ctx context.Context, id int64) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}
