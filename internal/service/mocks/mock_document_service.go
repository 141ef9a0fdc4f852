package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docrepo/internal/model"
	"docrepo/internal/service"
)

type MockDocumentService struct {
	mock.Mock
}

var _ service.DocumentService = (*MockDocumentService)(nil)

func (m *MockDocumentService) List(ctx context.Context, caller model.Caller, in service.ListInput) (*service.DocumentListResult, error) {
	args := m.Called(ctx, caller, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DocumentListResult), args.Error(1)
}

func (m *MockDocumentService) Get(ctx context.Context, caller model.Caller, id int64) (*model.DocumentView, error) {
	args := m.Called(ctx, caller, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DocumentView), args.Error(1)
}

func (m *MockDocumentService) Upload(ctx context.Context, caller model.Caller, in service.UploadInput) (*model.DocumentView, error) {
	args := m.Called(ctx, caller, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DocumentView), args.Error(1)
}

func (m *MockDocumentService) Update(ctx context.Context, caller model.Caller, id int64, in service.UpdateInput) (*model.DocumentView, error) {
	args := m.Called(ctx, caller, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DocumentView), args.Error(1)
}

func (m *MockDocumentService) Delete(ctx context.Context, caller model.Caller, id int64) error {
	args := m.Called(ctx, caller, id)
	return args.Error(0)
}

func (m *MockDocumentService) Download(ctx context.Context, caller model.Caller, id int64) (*service.Download, error) {
	args := m.Called(ctx, caller, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Download), args.Error(1)
}

func (m *MockDocumentService) PresignDownload(ctx context.Context, caller model.Caller, id int64) (*service.PresignedDownload, error) {
	args := m.Called(ctx, caller, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.PresignedDownload), args.Error(1)
}
