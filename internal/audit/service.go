package audit

import (
	"context"
	"fmt"

	"github.com/leadflow/consent-service/internal/audit/model"
	"github.com/leadflow/consent-service/internal/system/error/serviceerror"
	"github.com/leadflow/consent-service/internal/system/stores"
	"github.com/leadflow/consent-service/internal/system/utils"
)

// AuditService exposes read access to notes and audit logs for staff views
type AuditService interface {
	ListLeadNotes(ctx context.Context, leadID string) ([]model.LeadNote, *serviceerror.ServiceError)
	ListAuditLogs(ctx context.Context, entityType model.EntityType, entityID string) ([]model.AuditLog, *serviceerror.ServiceError)
}

type auditService struct {
	stores *stores.StoreRegistry
}

func newAuditService(registry *stores.StoreRegistry) AuditService {
	return &auditService{stores: registry}
}

func (s *auditService) store() AuditStore {
	return s.stores.Audit.(AuditStore)
}

func (s *auditService) ListLeadNotes(ctx context.Context, leadID string) ([]model.LeadNote, *serviceerror.ServiceError) {
	if err := utils.ValidateID("leadId", leadID); err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, err.Error())
	}
	notes, err := s.store().ListNotesByLead(ctx, leadID)
	if err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.DatabaseError, fmt.Sprintf("failed to list notes: %v", err))
	}
	return notes, nil
}

func (s *auditService) ListAuditLogs(ctx context.Context, entityType model.EntityType, entityID string) ([]model.AuditLog, *serviceerror.ServiceError) {
	switch entityType {
	case model.EntityApplicationForm, model.EntityNotificationLog:
	default:
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, fmt.Sprintf("unknown entityType '%s'", entityType))
	}
	if err := utils.ValidateID("entityId", entityID); err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, err.Error())
	}
	logs, err := s.store().ListAuditLogs(ctx, entityType, entityID)
	if err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.DatabaseError, fmt.Sprintf("failed to list audit logs: %v", err))
	}
	return logs, nil
}
