package applicationform

import (
	"context"
	"errors"
	"fmt"
	"html"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/leadflow/consent-service/internal/applicationform/model"
	"github.com/leadflow/consent-service/internal/applicationform/validator"
	"github.com/leadflow/consent-service/internal/audit"
	auditmodel "github.com/leadflow/consent-service/internal/audit/model"
	"github.com/leadflow/consent-service/internal/session"
	dbmodel "github.com/leadflow/consent-service/internal/system/database/model"
	"github.com/leadflow/consent-service/internal/system/error/serviceerror"
	"github.com/leadflow/consent-service/internal/system/log"
	"github.com/leadflow/consent-service/internal/system/mailer"
	"github.com/leadflow/consent-service/internal/system/metrics"
	"github.com/leadflow/consent-service/internal/system/security"
	"github.com/leadflow/consent-service/internal/system/stores"
	"github.com/leadflow/consent-service/internal/system/utils"
)

// ApplicationFormService is the access gate for application form links
type ApplicationFormService interface {
	GetApplicationForm(ctx context.Context, formID string) (*model.ApplicationForm, *serviceerror.ServiceError)
	VerifyAccess(ctx context.Context, req model.VerifyAccessRequest) (*model.VerifyAccessResult, *serviceerror.ServiceError)
	Heartbeat(ctx context.Context, req model.VerifyAccessRequest) *serviceerror.ServiceError
	UnlockApplicationForm(ctx context.Context, formID string, req model.UnlockRequest, actor *security.Actor) (*model.ApplicationForm, *serviceerror.ServiceError)
	IssueAccessCode(ctx context.Context, formID string, req model.IssueAccessCodeRequest, actor *security.Actor) (*model.ApplicationForm, *serviceerror.ServiceError)
	GetUnlockHistory(ctx context.Context, formID string) ([]model.UnlockAttempt, *serviceerror.ServiceError)
	AcquireStaffEdit(ctx context.Context, formID string, actor *security.Actor) *serviceerror.ServiceError
	MarkClientActive(ctx context.Context, formID string)
	EvaluateAccess(form *model.ApplicationForm, leadID, codeHash string) model.AccessResult
}

// Options carries the collaborators and settings of the access gate
type Options struct {
	Presence    session.PresenceTracker
	Mailer      mailer.Mailer
	Supervisors []string
	LinkTTL     time.Duration
	BcryptCost  int
	Now         utils.Clock
}

type applicationFormService struct {
	stores      *stores.StoreRegistry
	presence    session.PresenceTracker
	mailer      mailer.Mailer
	supervisors []string
	linkTTL     time.Duration
	bcryptCost  int
	now         utils.Clock
	access      *AccessVerifier
}

func newApplicationFormService(registry *stores.StoreRegistry, opts Options) (ApplicationFormService, error) {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.Now == nil {
		opts.Now = utils.GetCurrentTimeMillis
	}
	access, err := NewAccessVerifier(opts.BcryptCost, opts.Now)
	if err != nil {
		return nil, err
	}
	return &applicationFormService{
		stores:      registry,
		presence:    opts.Presence,
		mailer:      opts.Mailer,
		supervisors: opts.Supervisors,
		linkTTL:     opts.LinkTTL,
		bcryptCost:  opts.BcryptCost,
		now:         opts.Now,
		access:      access,
	}, nil
}

func (s *applicationFormService) store() ApplicationFormStore {
	return s.stores.ApplicationForm.(ApplicationFormStore)
}

func (s *applicationFormService) auditStore() audit.AuditStore {
	return s.stores.Audit.(audit.AuditStore)
}

func (s *applicationFormService) logger(ctx context.Context) *log.Logger {
	return log.WithContext(ctx).With(log.String(log.LoggerKeyComponentName, "ApplicationFormService"))
}

// GetApplicationForm retrieves a form by ID
func (s *applicationFormService) GetApplicationForm(ctx context.Context, formID string) (*model.ApplicationForm, *serviceerror.ServiceError) {
	if err := utils.ValidateID("applicationFormId", formID); err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, err.Error())
	}
	form, err := s.store().GetByID(ctx, formID)
	if err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.DatabaseError, fmt.Sprintf("failed to retrieve application form: %v", err))
	}
	if form == nil {
		return nil, serviceerror.CustomServiceError(serviceerror.ResourceNotFoundError, fmt.Sprintf("application form '%s' not found", formID))
	}
	return form, nil
}

// VerifyAccess checks a client computed code hash against the form's binding. A failed attempt is a result,
// not an error: the only errors are malformed input and storage failures. Every attempt is appended to the
// unlock history under the requested form ID, whether or not that form exists.
func (s *applicationFormService) VerifyAccess(ctx context.Context, req model.VerifyAccessRequest) (*model.VerifyAccessResult, *serviceerror.ServiceError) {
	if err := validator.ValidateVerifyAccessRequest(req); err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, err.Error())
	}

	form, err := s.store().GetByID(ctx, req.ApplicationFormID)
	if err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.DatabaseError, fmt.Sprintf("failed to retrieve application form: %v", err))
	}

	now := s.now()
	result := s.access.evaluate(form, req.LeadID, req.AccessCodeHash, now)

	attempt := &model.UnlockAttempt{
		ID:                utils.GenerateUUID(),
		ApplicationFormID: req.ApplicationFormID,
		Type:              model.AttemptTypeAccessCode,
		Success:           result == model.AccessResultOK,
		Result:            result,
		Timestamp:         now,
	}
	err = s.stores.ExecuteTransaction(ctx, []func(tx dbmodel.TxInterface) error{
		func(tx dbmodel.TxInterface) error {
			return s.store().AppendUnlockAttempt(tx, attempt)
		},
	})
	if err != nil {
		// Access is not granted unless the attempt is on record.
		return nil, serviceerror.CustomServiceError(serviceerror.DatabaseError, fmt.Sprintf("failed to record unlock attempt: %v", err))
	}

	metrics.AccessAttempts.WithLabelValues(string(result)).Inc()
	logger := s.logger(ctx).With(log.String("application_form_id", req.ApplicationFormID), log.String("result", string(result)))
	if result != model.AccessResultOK {
		logger.Warn("Access verification failed")
		return &model.VerifyAccessResult{Result: result, ApplicationFormID: req.ApplicationFormID}, nil
	}

	logger.Info("Access verified")
	s.MarkClientActive(ctx, form.ID)
	return &model.VerifyAccessResult{
		Result:            result,
		ApplicationFormID: form.ID,
		LinkExpiresAt:     form.LinkExpiresAt,
	}, nil
}

// EvaluateAccess classifies a code check against an already loaded form.
func (s *applicationFormService) EvaluateAccess(form *model.ApplicationForm, leadID, codeHash string) model.AccessResult {
	return s.access.EvaluateAccess(form, leadID, codeHash)
}

// Heartbeat keeps the client presence alive for a session that already holds the code.
func (s *applicationFormService) Heartbeat(ctx context.Context, req model.VerifyAccessRequest) *serviceerror.ServiceError {
	if err := validator.ValidateVerifyAccessRequest(req); err != nil {
		return serviceerror.CustomServiceError(serviceerror.ValidationError, err.Error())
	}
	form, err := s.store().GetByID(ctx, req.ApplicationFormID)
	if err != nil {
		return serviceerror.CustomServiceError(serviceerror.DatabaseError, fmt.Sprintf("failed to retrieve application form: %v", err))
	}

	switch s.access.evaluate(form, req.LeadID, req.AccessCodeHash, s.now()) {
	case model.AccessResultOK:
		s.MarkClientActive(ctx, form.ID)
		return nil
	case model.AccessResultLinkExpired:
		return serviceerror.CustomServiceError(serviceerror.LinkExpiredError, "the application link has expired")
	default:
		return serviceerror.CustomServiceError(serviceerror.InvalidAccessError, "invalid access code or link")
	}
}

// MarkClientActive records applicant activity. Tracker failures only weaken the staff edit guard, so they are logged.
func (s *applicationFormService) MarkClientActive(ctx context.Context, formID string) {
	if s.presence == nil {
		return
	}
	if err := s.presence.MarkActive(ctx, formID); err != nil {
		s.logger(ctx).Warn("Failed to mark client presence", log.String("application_form_id", formID), log.Error(err))
	}
}

// UnlockApplicationForm lets staff reset a LOCKED (or stalled IN_PROGRESS) form: status returns to IN_PROGRESS
// with a fresh link expiry, and the attempt, a lead note and an audit log are written in the same transaction.
func (s *applicationFormService) UnlockApplicationForm(ctx context.Context, formID string, req model.UnlockRequest, actor *security.Actor) (*model.ApplicationForm, *serviceerror.ServiceError) {
	if !actor.IsElevated() {
		return nil, serviceerror.CustomServiceError(serviceerror.ForbiddenError, "only supervisors and administrators can unlock application forms")
	}
	if err := validator.ValidateUnlockRequest(req); err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, err.Error())
	}

	form, serr := s.GetApplicationForm(ctx, formID)
	if serr != nil {
		return nil, serr
	}
	if form.Status.IsFinal() {
		return nil, serviceerror.CustomServiceError(serviceerror.ConflictError,
			fmt.Sprintf("application form in status %s cannot be unlocked", form.Status))
	}

	now := s.now()
	expiresAt := now + s.linkTTL.Milliseconds()
	actorID := actor.UserID
	previous := form.Status

	attempt := &model.UnlockAttempt{
		ID:                utils.GenerateUUID(),
		ApplicationFormID: form.ID,
		Type:              model.AttemptTypeStaffUnlock,
		Success:           true,
		Result:            model.AccessResultOK,
		ActorUserID:       &actorID,
		Timestamp:         now,
	}
	note := &auditmodel.LeadNote{
		ID:              utils.GenerateUUID(),
		LeadID:          form.LeadID,
		Content:         fmt.Sprintf("Application form unlocked by staff. Reason: %s", req.Reason),
		NoteType:        auditmodel.NoteTypeFormUnlocked,
		CreatedByUserID: &actorID,
		CreatedTime:     now,
	}
	entry := &auditmodel.AuditLog{
		ID:          utils.GenerateUUID(),
		EntityType:  auditmodel.EntityApplicationForm,
		EntityID:    form.ID,
		Action:      auditmodel.ActionFormUnlocked,
		ActorUserID: actorID,
		Metadata: auditmodel.AuditMetadata{
			Reason:         req.Reason,
			PreviousStatus: string(previous),
			NewStatus:      string(model.FormStatusInProgress),
			LinkExpiresAt:  &expiresAt,
		},
		CreatedTime: now,
	}

	err := s.stores.ExecuteTransaction(ctx, []func(tx dbmodel.TxInterface) error{
		func(tx dbmodel.TxInterface) error {
			return s.store().UpdateStatus(tx, form.ID, previous, model.FormStatusInProgress, &expiresAt, now)
		},
		func(tx dbmodel.TxInterface) error {
			return s.store().AppendUnlockAttempt(tx, attempt)
		},
		func(tx dbmodel.TxInterface) error {
			return s.auditStore().CreateNote(tx, note)
		},
		func(tx dbmodel.TxInterface) error {
			return s.auditStore().CreateAuditLog(tx, entry)
		},
	})
	if errors.Is(err, ErrStatusChanged) {
		return nil, serviceerror.CustomServiceError(serviceerror.ConflictError, "application form was modified concurrently, retry the unlock")
	}
	if err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.DatabaseError, fmt.Sprintf("failed to unlock application form: %v", err))
	}

	s.logger(ctx).Info("Application form unlocked",
		log.String("application_form_id", form.ID),
		log.String("actor_user_id", actorID),
		log.String("previous_status", string(previous)))

	form.Status = model.FormStatusInProgress
	form.LinkExpiresAt = &expiresAt
	form.UpdatedTime = now
	return form, nil
}

// IssueAccessCode binds a new client code hash to the form and restarts the link expiry.
func (s *applicationFormService) IssueAccessCode(ctx context.Context, formID string, req model.IssueAccessCodeRequest, actor *security.Actor) (*model.ApplicationForm, *serviceerror.ServiceError) {
	if !actor.IsElevated() {
		return nil, serviceerror.CustomServiceError(serviceerror.ForbiddenError, "only supervisors and administrators can issue access codes")
	}
	if err := validator.ValidateIssueAccessCodeRequest(req); err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, err.Error())
	}

	form, serr := s.GetApplicationForm(ctx, formID)
	if serr != nil {
		return nil, serr
	}
	if form.Status.IsFinal() {
		return nil, serviceerror.CustomServiceError(serviceerror.ConflictError,
			fmt.Sprintf("application form in status %s no longer accepts access codes", form.Status))
	}

	binding, err := bcrypt.GenerateFromPassword([]byte(req.AccessCodeHash), s.bcryptCost)
	if err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.InternalServerError, "failed to bind access code")
	}

	now := s.now()
	expiresAt := now + s.linkTTL.Milliseconds()
	entry := &auditmodel.AuditLog{
		ID:          utils.GenerateUUID(),
		EntityType:  auditmodel.EntityApplicationForm,
		EntityID:    form.ID,
		Action:      auditmodel.ActionAccessCodeIssued,
		ActorUserID: actor.UserID,
		Metadata:    auditmodel.AuditMetadata{LinkExpiresAt: &expiresAt},
		CreatedTime: now,
	}

	err = s.stores.ExecuteTransaction(ctx, []func(tx dbmodel.TxInterface) error{
		func(tx dbmodel.TxInterface) error {
			return s.store().SetAccessCode(tx, form.ID, string(binding), expiresAt, now)
		},
		func(tx dbmodel.TxInterface) error {
			return s.auditStore().CreateAuditLog(tx, entry)
		},
	})
	if err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.DatabaseError, fmt.Sprintf("failed to issue access code: %v", err))
	}

	form.LinkExpiresAt = &expiresAt
	form.UpdatedTime = now
	return form, nil
}

// GetUnlockHistory returns every recorded attempt, oldest first
func (s *applicationFormService) GetUnlockHistory(ctx context.Context, formID string) ([]model.UnlockAttempt, *serviceerror.ServiceError) {
	if _, serr := s.GetApplicationForm(ctx, formID); serr != nil {
		return nil, serr
	}
	attempts, err := s.store().ListUnlockHistory(ctx, formID)
	if err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.DatabaseError, fmt.Sprintf("failed to list unlock history: %v", err))
	}
	return attempts, nil
}

// AcquireStaffEdit refuses staff edits while the applicant has a live session and alerts supervisors.
// If presence cannot be read the edit is allowed.
func (s *applicationFormService) AcquireStaffEdit(ctx context.Context, formID string, actor *security.Actor) *serviceerror.ServiceError {
	if actor == nil {
		return serviceerror.CustomServiceError(serviceerror.UnauthorizedError, "authentication is required")
	}
	form, serr := s.GetApplicationForm(ctx, formID)
	if serr != nil {
		return serr
	}
	if s.presence == nil {
		return nil
	}

	logger := s.logger(ctx).With(log.String("application_form_id", form.ID), log.String("actor_user_id", actor.UserID))
	active, err := s.presence.IsActive(ctx, form.ID)
	if err != nil {
		logger.Warn("Failed to read client presence, allowing staff edit", log.Error(err))
		return nil
	}
	if !active {
		return nil
	}

	metrics.ClientActiveRejections.Inc()
	logger.Warn("Staff edit refused while client session is active")
	s.alertSupervisors(ctx, form, actor)
	return serviceerror.CustomServiceError(serviceerror.ClientActiveError,
		"the applicant is currently working on this form; try again once their session ends")
}

func (s *applicationFormService) alertSupervisors(ctx context.Context, form *model.ApplicationForm, actor *security.Actor) {
	if s.mailer == nil || len(s.supervisors) == 0 {
		return
	}
	subject := fmt.Sprintf("Staff edit blocked on application form %s", form.ID)
	body := fmt.Sprintf("<p>%s attempted to edit application form <b>%s</b> (lead %s) while the applicant's session was active.</p>",
		html.EscapeString(actor.UserID), html.EscapeString(form.ID), html.EscapeString(form.LeadID))
	if err := s.mailer.Send(s.supervisors, subject, body); err != nil {
		s.logger(ctx).Error("Failed to alert supervisors", log.String("application_form_id", form.ID), log.Error(err))
	}
}
