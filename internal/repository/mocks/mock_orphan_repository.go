package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docrepo/internal/model"
	"docrepo/internal/repository"
)

type MockOrphanRepository struct {
	mock.Mock
}

var _ repository.OrphanRepository = (*MockOrphanRepository)(nil)

func (m *MockOrphanRepository) Record(ctx context.Context, filePath, reason string) error {
	args := m.Called(ctx, filePath, reason)
	return args.Error(0)
}

func (m *MockOrphanRepository) ListOrphans(ctx context.Context, limit int) ([]model.StorageOrphan, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.StorageOrphan), args.Error(1)
}

func (m *MockOrphanRepository) DeleteOrphan(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOrphanRepository) BumpAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
