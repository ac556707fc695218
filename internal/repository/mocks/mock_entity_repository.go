package mocks

import (
	"context"

	"rtodocs/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockEntityRepository struct {
	mock.Mock
}

func (m *MockEntityRepository) OwnerOf(ctx context.Context, entityType model.EntityType, entityID string) (string, error) {
	args := m.Called(ctx, entityType, entityID)
	return args.String(0), args.Error(1)
}

type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Create(ctx context.Context, userID, message string) error {
	args := m.Called(ctx, userID, message)
	return args.Error(0)
}
