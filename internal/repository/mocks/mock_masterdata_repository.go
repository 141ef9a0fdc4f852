package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docrepo/internal/model"
	"docrepo/internal/repository"
)

type MockMasterDataRepository struct {
	mock.Mock
}

var _ repository.MasterDataRepository = (*MockMasterDataRepository)(nil)

func (m *MockMasterDataRepository) ListDepartments(ctx context.Context) ([]model.Department, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Department), args.Error(1)
}

func (m *MockMasterDataRepository) ListCategories(ctx context.Context) ([]model.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Category), args.Error(1)
}

func (m *MockMasterDataRepository) DepartmentExists(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockMasterDataRepository) CategoryExists(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}
