package mocks

import (
	"context"

	"rtodocs/internal/model"
	"rtodocs/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) Upload(ctx context.Context, caller model.Caller, in service.UploadInput) (*model.Document, error) {
	args := m.Called(ctx, caller, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentService) ListByEntity(ctx context.Context, caller model.Caller, entityID string) ([]model.Document, error) {
	args := m.Called(ctx, caller, entityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Document), args.Error(1)
}

func (m *MockDocumentService) ListByUser(ctx context.Context, caller model.Caller, userID string) ([]model.Document, error) {
	args := m.Called(ctx, caller, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Document), args.Error(1)
}

func (m *MockDocumentService) Verify(ctx context.Context, caller model.Caller, id string, in service.VerifyInput) (*model.Document, error) {
	args := m.Called(ctx, caller, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentService) Download(ctx context.Context, caller model.Caller, id string) (*service.DownloadResult, error) {
	args := m.Called(ctx, caller, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DownloadResult), args.Error(1)
}

func (m *MockDocumentService) Delete(ctx context.Context, caller model.Caller, id string) error {
	args := m.Called(ctx, caller, id)
	return args.Error(0)
}
