// Package mocks provides testify mocks of the notification log store.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/leadflow/consent-service/internal/notification/model"
	dbmodel "github.com/leadflow/consent-service/internal/system/database/model"
)

// MockNotificationLogStore is a mock implementation of notification.NotificationLogStore
type MockNotificationLogStore struct {
	mock.Mock
}

func (m *MockNotificationLogStore) GetByFormAndEvent(ctx context.Context, formID string, eventType model.EventType) (*model.NotificationLog, error) {
	args := m.Called(ctx, formID, eventType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.NotificationLog), args.Error(1)
}

func (m *MockNotificationLogStore) GetByID(ctx context.Context, id string) (*model.NotificationLog, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.NotificationLog), args.Error(1)
}

func (m *MockNotificationLogStore) Create(tx dbmodel.TxInterface, entry *model.NotificationLog) error {
	return m.Called(tx, entry).Error(0)
}

func (m *MockNotificationLogStore) UpdateDelivery(ctx context.Context, entry *model.NotificationLog) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockNotificationLogStore) ListUndelivered(ctx context.Context, staleBefore int64, limit int) ([]model.NotificationLog, error) {
	args := m.Called(ctx, staleBefore, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.NotificationLog), args.Error(1)
}
