// Package mocks provides testify mocks of the consent template store.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/leadflow/consent-service/internal/consenttemplate/model"
	dbmodel "github.com/leadflow/consent-service/internal/system/database/model"
)

// MockConsentTemplateStore is a mock implementation of consenttemplate.ConsentTemplateStore
type MockConsentTemplateStore struct {
	mock.Mock
}

func (m *MockConsentTemplateStore) GetByID(ctx context.Context, templateID string) (*model.ConsentTemplate, error) {
	args := m.Called(ctx, templateID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ConsentTemplate), args.Error(1)
}

func (m *MockConsentTemplateStore) GetByIDs(ctx context.Context, templateIDs []string) (map[string]*model.ConsentTemplate, error) {
	args := m.Called(ctx, templateIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]*model.ConsentTemplate), args.Error(1)
}

func (m *MockConsentTemplateStore) List(ctx context.Context, formType string, includeInactive bool) ([]model.ConsentTemplate, error) {
	args := m.Called(ctx, formType, includeInactive)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ConsentTemplate), args.Error(1)
}

func (m *MockConsentTemplateStore) GetActiveByType(ctx context.Context, formType string, consentType model.ConsentType) ([]model.ConsentTemplate, error) {
	args := m.Called(ctx, formType, consentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ConsentTemplate), args.Error(1)
}

func (m *MockConsentTemplateStore) Create(tx dbmodel.TxInterface, template *model.ConsentTemplate) error {
	args := m.Called(tx, template)
	return args.Error(0)
}

func (m *MockConsentTemplateStore) Update(tx dbmodel.TxInterface, template *model.ConsentTemplate) error {
	args := m.Called(tx, template)
	return args.Error(0)
}

func (m *MockConsentTemplateStore) Deactivate(tx dbmodel.TxInterface, templateID string, updatedTime int64) error {
	args := m.Called(tx, templateID, updatedTime)
	return args.Error(0)
}
