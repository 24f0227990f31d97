// Package mocks provides testify mocks of the audit store.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/leadflow/consent-service/internal/audit/model"
	dbmodel "github.com/leadflow/consent-service/internal/system/database/model"
)

// MockAuditStore is a mock implementation of audit.AuditStore
type MockAuditStore struct {
	mock.Mock
}

func (m *MockAuditStore) CreateNote(tx dbmodel.TxInterface, note *model.LeadNote) error {
	return m.Called(tx, note).Error(0)
}

func (m *MockAuditStore) CreateAuditLog(tx dbmodel.TxInterface, entry *model.AuditLog) error {
	return m.Called(tx, entry).Error(0)
}

func (m *MockAuditStore) ListNotesByLead(ctx context.Context, leadID string) ([]model.LeadNote, error) {
	args := m.Called(ctx, leadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.LeadNote), args.Error(1)
}

func (m *MockAuditStore) ListAuditLogs(ctx context.Context, entityType model.EntityType, entityID string) ([]model.AuditLog, error) {
	args := m.Called(ctx, entityType, entityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AuditLog), args.Error(1)
}
