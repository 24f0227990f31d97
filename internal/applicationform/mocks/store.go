// Package mocks provides testify mocks of the application form store.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/leadflow/consent-service/internal/applicationform/model"
	dbmodel "github.com/leadflow/consent-service/internal/system/database/model"
)

// MockApplicationFormStore is a mock implementation of applicationform.ApplicationFormStore
type MockApplicationFormStore struct {
	mock.Mock
}

func (m *MockApplicationFormStore) GetByID(ctx context.Context, formID string) (*model.ApplicationForm, error) {
	args := m.Called(ctx, formID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ApplicationForm), args.Error(1)
}

func (m *MockApplicationFormStore) ListUnlockHistory(ctx context.Context, formID string) ([]model.UnlockAttempt, error) {
	args := m.Called(ctx, formID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.UnlockAttempt), args.Error(1)
}

func (m *MockApplicationFormStore) UpdateClientMeta(tx dbmodel.TxInterface, formID string, ipAddress, userAgent *string, updatedTime int64) error {
	return m.Called(tx, formID, ipAddress, userAgent, updatedTime).Error(0)
}

func (m *MockApplicationFormStore) UpdateStatus(tx dbmodel.TxInterface, formID string, from, to model.FormStatus, linkExpiresAt *int64, updatedTime int64) error {
	return m.Called(tx, formID, from, to, linkExpiresAt, updatedTime).Error(0)
}

func (m *MockApplicationFormStore) SetAccessCode(tx dbmodel.TxInterface, formID, bindingHash string, linkExpiresAt, updatedTime int64) error {
	return m.Called(tx, formID, bindingHash, linkExpiresAt, updatedTime).Error(0)
}

func (m *MockApplicationFormStore) AppendUnlockAttempt(tx dbmodel.TxInterface, attempt *model.UnlockAttempt) error {
	return m.Called(tx, attempt).Error(0)
}
