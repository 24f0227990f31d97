// Package mocks provides testify mocks of the consent record store.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/leadflow/consent-service/internal/consentrecord/model"
	dbmodel "github.com/leadflow/consent-service/internal/system/database/model"
)

// MockConsentRecordStore is a mock implementation of consentrecord.ConsentRecordStore
type MockConsentRecordStore struct {
	mock.Mock
}

func (m *MockConsentRecordStore) Upsert(tx dbmodel.TxInterface, record *model.ConsentRecord) error {
	return m.Called(tx, record).Error(0)
}

func (m *MockConsentRecordStore) ListByForm(ctx context.Context, formID string) ([]model.ConsentRecord, error) {
	args := m.Called(ctx, formID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ConsentRecord), args.Error(1)
}

func (m *MockConsentRecordStore) Search(ctx context.Context, filter model.ExportFilter) ([]model.ExportRow, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]model.ExportRow), args.Int(1), args.Error(2)
}
