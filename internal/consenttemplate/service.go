package consenttemplate

import (
	"context"
	"errors"
	"fmt"

	"github.com/leadflow/consent-service/internal/consenttemplate/model"
	"github.com/leadflow/consent-service/internal/consenttemplate/validator"
	dbmodel "github.com/leadflow/consent-service/internal/system/database/model"
	dbutils "github.com/leadflow/consent-service/internal/system/database/utils"
	"github.com/leadflow/consent-service/internal/system/error/serviceerror"
	"github.com/leadflow/consent-service/internal/system/log"
	"github.com/leadflow/consent-service/internal/system/security"
	"github.com/leadflow/consent-service/internal/system/stores"
	"github.com/leadflow/consent-service/internal/system/utils"
)

// ConsentTemplateService defines the exported service interface
type ConsentTemplateService interface {
	ListTemplates(ctx context.Context, formType string, includeInactive bool, actor *security.Actor) ([]model.ConsentTemplate, *serviceerror.ServiceError)
	GetTemplate(ctx context.Context, templateID string) (*model.ConsentTemplate, *serviceerror.ServiceError)
	CreateTemplate(ctx context.Context, req model.CreateRequest, actor *security.Actor) (*model.ConsentTemplate, *serviceerror.ServiceError)
	UpdateTemplate(ctx context.Context, templateID string, req model.UpdateRequest, actor *security.Actor) (*model.ConsentTemplate, *serviceerror.ServiceError)
	SupersedeTemplate(ctx context.Context, templateID string, req model.SupersedeRequest, actor *security.Actor) (*model.ConsentTemplate, *serviceerror.ServiceError)
}

type consentTemplateService struct {
	stores *stores.StoreRegistry
	now    utils.Clock
}

func newConsentTemplateService(registry *stores.StoreRegistry, now utils.Clock) ConsentTemplateService {
	return &consentTemplateService{stores: registry, now: now}
}

func (s *consentTemplateService) store() ConsentTemplateStore {
	return s.stores.ConsentTemplate.(ConsentTemplateStore)
}

// ListTemplates returns templates of a form type sorted by consent type then version descending.
// Inactive templates are only included for elevated actors.
func (s *consentTemplateService) ListTemplates(ctx context.Context, formType string, includeInactive bool, actor *security.Actor) ([]model.ConsentTemplate, *serviceerror.ServiceError) {
	if err := utils.ValidateRequired("formType", formType); err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, err.Error())
	}
	if includeInactive && !actor.IsElevated() {
		includeInactive = false
	}

	templates, err := s.store().List(ctx, formType, includeInactive)
	if err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.DatabaseError, fmt.Sprintf("failed to list templates: %v", err))
	}
	return templates, nil
}

// GetTemplate retrieves a template by ID
func (s *consentTemplateService) GetTemplate(ctx context.Context, templateID string) (*model.ConsentTemplate, *serviceerror.ServiceError) {
	template, err := s.store().GetByID(ctx, templateID)
	if err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.DatabaseError, fmt.Sprintf("failed to retrieve template: %v", err))
	}
	if template == nil {
		return nil, serviceerror.CustomServiceError(serviceerror.ResourceNotFoundError, fmt.Sprintf("template with ID '%s' not found", templateID))
	}
	return template, nil
}

// CreateTemplate stores a new template. Later versions of an active template go through SupersedeTemplate.
func (s *consentTemplateService) CreateTemplate(ctx context.Context, req model.CreateRequest, actor *security.Actor) (*model.ConsentTemplate, *serviceerror.ServiceError) {
	if !actor.IsElevated() {
		return nil, serviceerror.CustomServiceError(serviceerror.ForbiddenError, "only administrators can create consent templates")
	}
	if err := validator.ValidateCreateRequest(req); err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, err.Error())
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	now := s.now()
	createdBy := actor.UserID
	template := &model.ConsentTemplate{
		ID:              utils.GenerateUUID(),
		ConsentType:     req.ConsentType,
		FormType:        req.FormType,
		Title:           req.Title,
		Content:         req.Content,
		HelpText:        req.HelpText,
		Version:         req.Version,
		IsActive:        isActive,
		IsRequired:      req.IsRequired,
		Tags:            validator.NormalizeTags(req.Tags),
		CreatedByUserID: &createdBy,
		CreatedTime:     now,
		UpdatedTime:     now,
	}

	if template.IsActive {
		if serr := s.ensureSingleActive(ctx, template); serr != nil {
			return nil, serr
		}
	}

	err := s.stores.ExecuteTransaction(ctx, []func(tx dbmodel.TxInterface) error{
		func(tx dbmodel.TxInterface) error {
			return s.store().Create(tx, template)
		},
	})
	if err != nil {
		return nil, s.writeError("create", err)
	}

	log.WithContext(ctx).With(log.String(log.LoggerKeyComponentName, "ConsentTemplateService")).
		Info("Consent template created",
			log.String("template_id", template.ID),
			log.String("consent_type", string(template.ConsentType)),
			log.Int("version", template.Version))
	return template, nil
}

// UpdateTemplate applies a partial update. The version may be raised but never lowered.
func (s *consentTemplateService) UpdateTemplate(ctx context.Context, templateID string, req model.UpdateRequest, actor *security.Actor) (*model.ConsentTemplate, *serviceerror.ServiceError) {
	if !actor.IsElevated() {
		return nil, serviceerror.CustomServiceError(serviceerror.ForbiddenError, "only administrators can update consent templates")
	}
	if err := validator.ValidateUpdateRequest(req); err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, err.Error())
	}

	existing, serr := s.GetTemplate(ctx, templateID)
	if serr != nil {
		return nil, serr
	}

	updated := *existing
	if req.Title != nil {
		updated.Title = *req.Title
	}
	if req.Content != nil {
		updated.Content = *req.Content
	}
	if req.HelpText != nil {
		updated.HelpText = req.HelpText
	}
	if req.Version != nil {
		if *req.Version < existing.Version {
			return nil, serviceerror.CustomServiceError(serviceerror.ValidationError,
				fmt.Sprintf("version cannot be lowered from %d to %d", existing.Version, *req.Version))
		}
		updated.Version = *req.Version
	}
	if req.IsActive != nil {
		updated.IsActive = *req.IsActive
	}
	if req.IsRequired != nil {
		updated.IsRequired = *req.IsRequired
	}
	if req.Tags != nil {
		updated.Tags = validator.NormalizeTags(*req.Tags)
	}
	updated.UpdatedTime = s.now()

	if updated.IsActive && !existing.IsActive {
		if serr := s.ensureSingleActive(ctx, &updated); serr != nil {
			return nil, serr
		}
	}

	err := s.stores.ExecuteTransaction(ctx, []func(tx dbmodel.TxInterface) error{
		func(tx dbmodel.TxInterface) error {
			return s.store().Update(tx, &updated)
		},
	})
	if err != nil {
		return nil, s.writeError("update", err)
	}

	return &updated, nil
}

// SupersedeTemplate publishes version N+1 of an active template as a new row. The current row is deactivated and
// the new one inserted in the same transaction, so the (formType, consentType) pair is never without an active
// template and never has two.
func (s *consentTemplateService) SupersedeTemplate(ctx context.Context, templateID string, req model.SupersedeRequest, actor *security.Actor) (*model.ConsentTemplate, *serviceerror.ServiceError) {
	if !actor.IsElevated() {
		return nil, serviceerror.CustomServiceError(serviceerror.ForbiddenError, "only administrators can publish consent template versions")
	}
	if err := validator.ValidateSupersedeRequest(req); err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, err.Error())
	}

	current, serr := s.GetTemplate(ctx, templateID)
	if serr != nil {
		return nil, serr
	}
	if !current.IsActive {
		return nil, serviceerror.CustomServiceError(serviceerror.ConflictError,
			fmt.Sprintf("template '%s' is not active and cannot be superseded", templateID))
	}

	now := s.now()
	createdBy := actor.UserID
	next := &model.ConsentTemplate{
		ID:              utils.GenerateUUID(),
		ConsentType:     current.ConsentType,
		FormType:        current.FormType,
		Title:           current.Title,
		Content:         req.Content,
		HelpText:        current.HelpText,
		Version:         current.Version + 1,
		IsActive:        true,
		IsRequired:      current.IsRequired,
		Tags:            current.Tags,
		CreatedByUserID: &createdBy,
		CreatedTime:     now,
		UpdatedTime:     now,
	}
	if req.Title != nil {
		next.Title = *req.Title
	}
	if req.HelpText != nil {
		next.HelpText = req.HelpText
	}
	if req.IsRequired != nil {
		next.IsRequired = *req.IsRequired
	}
	if req.Tags != nil {
		next.Tags = validator.NormalizeTags(*req.Tags)
	}

	err := s.stores.ExecuteTransaction(ctx, []func(tx dbmodel.TxInterface) error{
		func(tx dbmodel.TxInterface) error {
			return s.store().Deactivate(tx, current.ID, now)
		},
		func(tx dbmodel.TxInterface) error {
			return s.store().Create(tx, next)
		},
	})
	if err != nil {
		if errors.Is(err, ErrTemplateNotActive) {
			return nil, serviceerror.CustomServiceError(serviceerror.ConflictError,
				fmt.Sprintf("template '%s' was superseded concurrently", templateID))
		}
		return nil, s.writeError("supersede", err)
	}

	log.WithContext(ctx).With(log.String(log.LoggerKeyComponentName, "ConsentTemplateService")).
		Info("Consent template superseded",
			log.String("template_id", next.ID),
			log.String("superseded_id", current.ID),
			log.Int("version", next.Version))
	return next, nil
}

// ensureSingleActive rejects a change that would leave two active templates for one (formType, consentType).
func (s *consentTemplateService) ensureSingleActive(ctx context.Context, template *model.ConsentTemplate) *serviceerror.ServiceError {
	active, err := s.store().GetActiveByType(ctx, template.FormType, template.ConsentType)
	if err != nil {
		return serviceerror.CustomServiceError(serviceerror.DatabaseError, fmt.Sprintf("failed to check active templates: %v", err))
	}
	for _, t := range active {
		if t.ID != template.ID {
			return serviceerror.CustomServiceError(serviceerror.ConflictError,
				fmt.Sprintf("template '%s' (version %d) is already active for %s/%s; deactivate it first",
					t.ID, t.Version, template.FormType, template.ConsentType))
		}
	}
	return nil
}

func (s *consentTemplateService) writeError(op string, err error) *serviceerror.ServiceError {
	if dbutils.IsDuplicateKeyError(err) {
		return serviceerror.CustomServiceError(serviceerror.ConflictError,
			"another active template already exists for this form type and consent type")
	}
	return serviceerror.CustomServiceError(serviceerror.DatabaseError, fmt.Sprintf("failed to %s template: %v", op, err))
}
