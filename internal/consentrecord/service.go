package consentrecord

import (
	"context"
	"fmt"

	"github.com/leadflow/consent-service/internal/applicationform"
	formmodel "github.com/leadflow/consent-service/internal/applicationform/model"
	"github.com/leadflow/consent-service/internal/consenttemplate"
	templatemodel "github.com/leadflow/consent-service/internal/consenttemplate/model"
	"github.com/leadflow/consent-service/internal/consentrecord/model"
	"github.com/leadflow/consent-service/internal/consentrecord/validator"
	notificationmodel "github.com/leadflow/consent-service/internal/notification/model"
	dbmodel "github.com/leadflow/consent-service/internal/system/database/model"
	"github.com/leadflow/consent-service/internal/system/error/serviceerror"
	"github.com/leadflow/consent-service/internal/system/log"
	"github.com/leadflow/consent-service/internal/system/metrics"
	"github.com/leadflow/consent-service/internal/system/security"
	"github.com/leadflow/consent-service/internal/system/stores"
	"github.com/leadflow/consent-service/internal/system/utils"
)

// Notifier dispatches the ready-for-review event once per application form
type Notifier interface {
	NotifyApplicationReadyForReview(ctx context.Context, event notificationmodel.ReadyForReviewEvent) (*notificationmodel.NotificationLog, *serviceerror.ServiceError)
}

// PresenceMarker records applicant activity on a form
type PresenceMarker interface {
	MarkClientActive(ctx context.Context, formID string)
}

// AccessChecker compares the client's code hash against the form's bcrypt binding
type AccessChecker interface {
	EvaluateAccess(form *formmodel.ApplicationForm, leadID, codeHash string) formmodel.AccessResult
}

// ConsentRecordService records consent batches and serves staff listings
type ConsentRecordService interface {
	RecordConsentBatch(ctx context.Context, req model.BatchRequest) (*model.BatchResult, *serviceerror.ServiceError)
	SubmitConsentBatch(ctx context.Context, req model.BatchRequest) (*model.BatchResult, *serviceerror.ServiceError)
	ListByForm(ctx context.Context, formID string, actor *security.Actor) ([]model.ConsentRecord, *serviceerror.ServiceError)
	Export(ctx context.Context, filter model.ExportFilter, actor *security.Actor) (*model.ExportResponse, *serviceerror.ServiceError)
}

// Options carries the recorder's collaborators and settings
type Options struct {
	DefaultMethod model.ConsentMethod
	ExportMaxTake int
	Access        AccessChecker
	Notifier      Notifier
	Presence      PresenceMarker
	Now           utils.Clock
}

type consentRecordService struct {
	stores        *stores.StoreRegistry
	defaultMethod model.ConsentMethod
	exportMaxTake int
	access        AccessChecker
	notifier      Notifier
	presence      PresenceMarker
	now           utils.Clock
}

func newConsentRecordService(registry *stores.StoreRegistry, opts Options) ConsentRecordService {
	if opts.DefaultMethod == "" {
		opts.DefaultMethod = model.ConsentMethodOnlineForm
	}
	if opts.ExportMaxTake <= 0 {
		opts.ExportMaxTake = 500
	}
	if opts.Now == nil {
		opts.Now = utils.GetCurrentTimeMillis
	}
	return &consentRecordService{
		stores:        registry,
		defaultMethod: opts.DefaultMethod,
		exportMaxTake: opts.ExportMaxTake,
		access:        opts.Access,
		notifier:      opts.Notifier,
		presence:      opts.Presence,
		now:           opts.Now,
	}
}

func (s *consentRecordService) store() ConsentRecordStore {
	return s.stores.ConsentRecord.(ConsentRecordStore)
}

func (s *consentRecordService) formStore() applicationform.ApplicationFormStore {
	return s.stores.ApplicationForm.(applicationform.ApplicationFormStore)
}

func (s *consentRecordService) templateStore() consenttemplate.ConsentTemplateStore {
	return s.stores.ConsentTemplate.(consenttemplate.ConsentTemplateStore)
}

// RecordConsentBatch checks the access code binding and the form's lifecycle before reading any template, then
// validates every answer against the live template catalog. All records are upserted and the form's client
// metadata refreshed in one transaction. Any rejection leaves persisted state unchanged.
func (s *consentRecordService) RecordConsentBatch(ctx context.Context, req model.BatchRequest) (*model.BatchResult, *serviceerror.ServiceError) {
	if err := validator.ValidateBatchRequest(req); err != nil {
		metrics.ConsentBatches.WithLabelValues("invalid").Inc()
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, err.Error())
	}

	logger := log.WithContext(ctx).With(
		log.String(log.LoggerKeyComponentName, "ConsentRecordService"),
		log.String("application_form_id", req.ApplicationFormID))

	form, err := s.formStore().GetByID(ctx, req.ApplicationFormID)
	if err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.DatabaseError, fmt.Sprintf("failed to retrieve application form: %v", err))
	}
	switch s.access.EvaluateAccess(form, req.LeadID, req.AccessCodeHash) {
	case formmodel.AccessResultOK:
	case formmodel.AccessResultInvalidCode:
		metrics.ConsentBatches.WithLabelValues("invalid_access").Inc()
		logger.Warn("Consent batch rejected, access code does not match")
		return nil, serviceerror.CustomServiceError(serviceerror.InvalidAccessError, "invalid access code or link")
	default:
		metrics.ConsentBatches.WithLabelValues("link_expired").Inc()
		logger.Warn("Consent batch rejected, link no longer valid")
		return nil, serviceerror.CustomServiceError(serviceerror.LinkExpiredError, "the application link is no longer valid")
	}
	now := s.now()

	ids := make([]string, 0, len(req.Consents))
	for _, c := range req.Consents {
		ids = append(ids, c.ConsentTemplateID)
	}
	templates, err := s.templateStore().GetByIDs(ctx, ids)
	if err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.DatabaseError, fmt.Sprintf("failed to resolve consent templates: %v", err))
	}

	if serr := checkAnswers(req.Consents, templates); serr != nil {
		metrics.ConsentBatches.WithLabelValues(serr.Error).Inc()
		logger.Warn("Consent batch rejected", log.String("reason", serr.Error), log.String("detail", serr.ErrorDescription))
		return nil, serr
	}

	records := make([]*model.ConsentRecord, 0, len(req.Consents))
	for _, answer := range req.Consents {
		records = append(records, s.buildRecord(req, answer, templates[answer.ConsentTemplateID], now))
	}
	ipAddress, userAgent := optional(req.IPAddress), optional(req.UserAgent)

	queries := make([]func(tx dbmodel.TxInterface) error, 0, len(records)+1)
	for _, record := range records {
		queries = append(queries, func(tx dbmodel.TxInterface) error {
			return s.store().Upsert(tx, record)
		})
	}
	queries = append(queries, func(tx dbmodel.TxInterface) error {
		return s.formStore().UpdateClientMeta(tx, form.ID, ipAddress, userAgent, now)
	})

	if err := s.stores.ExecuteTransaction(ctx, queries); err != nil {
		metrics.ConsentBatches.WithLabelValues("error").Inc()
		logger.Error("Consent batch rolled back", log.Error(err))
		return nil, serviceerror.CustomServiceError(serviceerror.DatabaseError, "failed to record consents")
	}

	metrics.ConsentBatches.WithLabelValues("recorded").Inc()
	metrics.ConsentRecordsProcessed.Add(float64(len(records)))
	logger.Info("Consent batch recorded", log.Int("processed", len(records)))

	result := &model.BatchResult{Processed: len(records), Records: make([]model.ConsentRecord, 0, len(records))}
	for _, r := range records {
		recorded := *r
		// An upsert that hit an existing row kept that row's ID, not the one generated here.
		recorded.ID = ""
		result.Records = append(result.Records, recorded)
	}
	return result, nil
}

// checkAnswers applies the three checks in order across the whole batch: existence and activity, then
// version, then required answers. The first failing check decides the error.
func checkAnswers(answers []model.ConsentAnswer, templates map[string]*templatemodel.ConsentTemplate) *serviceerror.ServiceError {
	for _, a := range answers {
		t, ok := templates[a.ConsentTemplateID]
		if !ok || t == nil || !t.IsActive {
			return serviceerror.CustomServiceError(serviceerror.RequiredConsentMissingError,
				fmt.Sprintf("consent template '%s' is not available", a.ConsentTemplateID))
		}
	}
	for _, a := range answers {
		t := templates[a.ConsentTemplateID]
		if a.Version != t.Version {
			return serviceerror.CustomServiceError(serviceerror.TemplateOutdatedError,
				fmt.Sprintf("consent template '%s' is at version %d, got %d", t.ID, t.Version, a.Version))
		}
	}
	for _, a := range answers {
		t := templates[a.ConsentTemplateID]
		if t.IsRequired && !*a.ConsentGiven {
			return serviceerror.CustomServiceError(serviceerror.RequiredConsentMissingError,
				fmt.Sprintf("consent '%s' is required", t.ID))
		}
	}
	return nil
}

func (s *consentRecordService) buildRecord(req model.BatchRequest, a model.ConsentAnswer, t *templatemodel.ConsentTemplate, now int64) *model.ConsentRecord {
	method := a.ConsentMethod
	if method == "" {
		method = s.defaultMethod
	}
	text := t.Content
	if a.ConsentText != nil {
		text = *a.ConsentText
	}
	recordedAt := now
	if a.AcceptedAt != nil {
		recordedAt = *a.AcceptedAt
	}
	codeHash := req.AccessCodeHash

	return &model.ConsentRecord{
		ID:                utils.GenerateUUID(),
		ApplicationFormID: req.ApplicationFormID,
		ConsentTemplateID: t.ID,
		Version:           t.Version,
		LeadID:            req.LeadID,
		ConsentType:       t.ConsentType,
		ConsentGiven:      *a.ConsentGiven,
		ConsentMethod:     method,
		ConsentText:       text,
		HelpTextSnapshot:  t.HelpText,
		IPAddress:         optional(req.IPAddress),
		UserAgent:         optional(req.UserAgent),
		RecordedAt:        recordedAt,
		AccessCodeHash:    &codeHash,
		CreatedTime:       now,
		UpdatedTime:       now,
	}
}

// SubmitConsentBatch records the batch, marks the applicant present and dispatches the ready-for-review event.
// The dispatch is awaited but its failure never reaches the submitter.
func (s *consentRecordService) SubmitConsentBatch(ctx context.Context, req model.BatchRequest) (*model.BatchResult, *serviceerror.ServiceError) {
	result, serr := s.RecordConsentBatch(ctx, req)
	if serr != nil {
		return nil, serr
	}

	if s.presence != nil {
		s.presence.MarkClientActive(ctx, req.ApplicationFormID)
	}
	if s.notifier == nil {
		return result, nil
	}

	event := notificationmodel.ReadyForReviewEvent{
		Event:             notificationmodel.EventName,
		ApplicationFormID: req.ApplicationFormID,
		LeadID:            req.LeadID,
		Consents:          make([]notificationmodel.EventConsent, 0, len(result.Records)),
		ClientIP:          req.IPAddress,
		UserAgent:         req.UserAgent,
	}
	for _, r := range result.Records {
		event.Consents = append(event.Consents, notificationmodel.EventConsent{
			ConsentTemplateID: r.ConsentTemplateID,
			ConsentType:       string(r.ConsentType),
			Version:           r.Version,
			ConsentGiven:      r.ConsentGiven,
			RecordedAt:        r.RecordedAt,
		})
	}
	if _, nerr := s.notifier.NotifyApplicationReadyForReview(ctx, event); nerr != nil {
		log.WithContext(ctx).With(log.String(log.LoggerKeyComponentName, "ConsentRecordService")).
			Error("Ready-for-review dispatch failed, consents remain recorded",
				log.String("application_form_id", req.ApplicationFormID),
				log.String("error_code", nerr.Code),
				log.String("error_description", nerr.ErrorDescription))
	}
	return result, nil
}

// ListByForm returns every record of a form for staff views
func (s *consentRecordService) ListByForm(ctx context.Context, formID string, actor *security.Actor) ([]model.ConsentRecord, *serviceerror.ServiceError) {
	if actor == nil {
		return nil, serviceerror.CustomServiceError(serviceerror.UnauthorizedError, "authentication is required")
	}
	if err := utils.ValidateID("applicationFormId", formID); err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, err.Error())
	}
	records, err := s.store().ListByForm(ctx, formID)
	if err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.DatabaseError, fmt.Sprintf("failed to list consent records: %v", err))
	}
	return records, nil
}

// Export returns one page of records matching filter. Elevated roles only.
func (s *consentRecordService) Export(ctx context.Context, filter model.ExportFilter, actor *security.Actor) (*model.ExportResponse, *serviceerror.ServiceError) {
	if !actor.IsElevated() {
		return nil, serviceerror.CustomServiceError(serviceerror.ForbiddenError, "only supervisors and administrators can export consent records")
	}
	if err := validator.ValidateExportFilter(filter, s.exportMaxTake); err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, err.Error())
	}

	rows, total, err := s.store().Search(ctx, filter)
	if err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.DatabaseError, fmt.Sprintf("failed to export consent records: %v", err))
	}
	return &model.ExportResponse{Data: rows, Total: total, Skip: filter.Skip, Take: filter.Take}, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
