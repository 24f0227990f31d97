package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/leadflow/consent-service/internal/audit"
	auditmodel "github.com/leadflow/consent-service/internal/audit/model"
	"github.com/leadflow/consent-service/internal/notification/model"
	dbmodel "github.com/leadflow/consent-service/internal/system/database/model"
	dbutils "github.com/leadflow/consent-service/internal/system/database/utils"
	"github.com/leadflow/consent-service/internal/system/error/serviceerror"
	"github.com/leadflow/consent-service/internal/system/log"
	"github.com/leadflow/consent-service/internal/system/metrics"
	"github.com/leadflow/consent-service/internal/system/security"
	"github.com/leadflow/consent-service/internal/system/stores"
	"github.com/leadflow/consent-service/internal/system/utils"
)

const (
	defaultMaxAttempts     = 3
	defaultDeliveryTimeout = 30 * time.Second
	defaultStaleAfter      = 5 * time.Minute
	failedListLimit        = 100
	maxLastErrorLength     = 1000
)

// NotificationService dispatches the ready-for-review event and manages its delivery log
type NotificationService interface {
	NotifyApplicationReadyForReview(ctx context.Context, event model.ReadyForReviewEvent) (*model.NotificationLog, *serviceerror.ServiceError)
	GetByForm(ctx context.Context, formID string, actor *security.Actor) (*model.NotificationLog, *serviceerror.ServiceError)
	ListFailed(ctx context.Context, actor *security.Actor) ([]model.NotificationLog, *serviceerror.ServiceError)
	Redeliver(ctx context.Context, id string, actor *security.Actor) (*model.NotificationLog, *serviceerror.ServiceError)
}

// Options configures delivery
type Options struct {
	// Sink may be nil, in which case logs stay SENT.
	Sink         Sink
	MaxAttempts  int
	RetryBackoff time.Duration
	// DeliveryTimeout bounds one delivery run, including retries and the status write.
	DeliveryTimeout time.Duration
	// StaleAfter is how long a log may stay SENT before it counts as undelivered.
	StaleAfter time.Duration
	Now        utils.Clock
}

type notificationService struct {
	stores          *stores.StoreRegistry
	sink            Sink
	maxAttempts     int
	retryBackoff    time.Duration
	deliveryTimeout time.Duration
	staleAfter      time.Duration
	now             utils.Clock
}

func newNotificationService(registry *stores.StoreRegistry, opts Options) NotificationService {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.DeliveryTimeout <= 0 {
		opts.DeliveryTimeout = defaultDeliveryTimeout
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = defaultStaleAfter
	}
	if opts.Now == nil {
		opts.Now = utils.GetCurrentTimeMillis
	}
	return &notificationService{
		stores:          registry,
		sink:            opts.Sink,
		maxAttempts:     opts.MaxAttempts,
		retryBackoff:    opts.RetryBackoff,
		deliveryTimeout: opts.DeliveryTimeout,
		staleAfter:      opts.StaleAfter,
		now:             opts.Now,
	}
}

func (s *notificationService) store() NotificationLogStore {
	return s.stores.Notification.(NotificationLogStore)
}

func (s *notificationService) auditStore() audit.AuditStore {
	return s.stores.Audit.(audit.AuditStore)
}

// NotifyApplicationReadyForReview writes the staff note and the SENT log once per form, then attempts delivery.
// A form that already has a log gets that log back unchanged. Delivery failures only change the log status.
func (s *notificationService) NotifyApplicationReadyForReview(ctx context.Context, event model.ReadyForReviewEvent) (*model.NotificationLog, *serviceerror.ServiceError) {
	if err := utils.ValidateID("applicationFormId", event.ApplicationFormID); err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, err.Error())
	}
	if err := utils.ValidateID("leadId", event.LeadID); err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, err.Error())
	}
	logger := log.WithContext(ctx).With(
		log.String(log.LoggerKeyComponentName, "NotificationService"),
		log.String("application_form_id", event.ApplicationFormID))

	existing, err := s.store().GetByFormAndEvent(ctx, event.ApplicationFormID, model.EventTypeReadyForReview)
	if err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.DatabaseError, fmt.Sprintf("failed to read notification log: %v", err))
	}
	if existing != nil {
		logger.Debug("Ready-for-review already dispatched", log.String("notification_id", existing.ID))
		return existing, nil
	}

	if event.Event == "" {
		event.Event = model.EventName
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.InternalServerError, "failed to encode event")
	}

	now := s.now()
	note := &auditmodel.LeadNote{
		ID:          utils.GenerateUUID(),
		LeadID:      event.LeadID,
		Content:     fmt.Sprintf("Application form %s is ready for review (%d consents recorded).", event.ApplicationFormID, len(event.Consents)),
		NoteType:    auditmodel.NoteTypeReadyForReview,
		CreatedTime: now,
	}
	entry := &model.NotificationLog{
		ID:                utils.GenerateUUID(),
		ApplicationFormID: event.ApplicationFormID,
		LeadID:            event.LeadID,
		EventType:         model.EventTypeReadyForReview,
		Status:            model.DeliveryStatusSent,
		Payload:           payload,
		NoteID:            &note.ID,
		CreatedTime:       now,
		UpdatedTime:       now,
	}

	err = s.stores.ExecuteTransaction(ctx, []func(tx dbmodel.TxInterface) error{
		func(tx dbmodel.TxInterface) error {
			return s.auditStore().CreateNote(tx, note)
		},
		func(tx dbmodel.TxInterface) error {
			return s.store().Create(tx, entry)
		},
	})
	if err != nil {
		if dbutils.IsDuplicateKeyError(err) {
			// A concurrent submission created the row first.
			winner, gerr := s.store().GetByFormAndEvent(ctx, event.ApplicationFormID, model.EventTypeReadyForReview)
			if gerr == nil && winner != nil {
				logger.Info("Ready-for-review created concurrently, returning existing log")
				return winner, nil
			}
		}
		logger.Error("Failed to create notification log", log.Error(err))
		return nil, serviceerror.CustomServiceError(serviceerror.DatabaseError, "failed to create notification log")
	}

	logger.Info("Ready-for-review note and log created", log.String("notification_id", entry.ID))
	s.deliver(ctx, entry)
	return entry, nil
}

// deliver makes up to maxAttempts attempts with linear backoff and persists the outcome on entry.
// It ignores the caller's cancellation and is bounded by deliveryTimeout instead.
func (s *notificationService) deliver(ctx context.Context, entry *model.NotificationLog) {
	if s.sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.deliveryTimeout)
	defer cancel()
	logger := log.WithContext(ctx).With(
		log.String(log.LoggerKeyComponentName, "NotificationService"),
		log.String("notification_id", entry.ID),
		log.String("sink", s.sink.Name()))

	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		entry.Attempts++
		lastErr = s.sink.Deliver(ctx, entry.ApplicationFormID, entry.Payload)
		if lastErr == nil {
			break
		}
		logger.Warn("Delivery attempt failed", log.Int("attempt", attempt), log.Error(lastErr))
		if attempt < s.maxAttempts && !wait(ctx, time.Duration(attempt)*s.retryBackoff) {
			break
		}
	}

	target := s.sink.Target()
	entry.SentTo = &target
	entry.UpdatedTime = s.now()
	if lastErr == nil {
		entry.Status = model.DeliveryStatusDelivered
		entry.LastError = nil
		logger.Info("Ready-for-review delivered", log.Int("attempts", entry.Attempts))
	} else {
		entry.Status = model.DeliveryStatusFailed
		msg := lastErr.Error()
		if len(msg) > maxLastErrorLength {
			msg = msg[:maxLastErrorLength]
		}
		entry.LastError = &msg
		logger.Error("Ready-for-review delivery failed", log.Int("attempts", entry.Attempts), log.Error(lastErr))
	}
	metrics.NotificationDeliveries.WithLabelValues(s.sink.Name(), string(entry.Status)).Inc()

	if err := s.store().UpdateDelivery(ctx, entry); err != nil {
		logger.Error("Failed to persist delivery outcome", log.Error(err))
	}
}

// wait sleeps for d unless ctx ends first. It reports whether the full duration elapsed.
func wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// GetByForm returns the ready-for-review log of a form
func (s *notificationService) GetByForm(ctx context.Context, formID string, actor *security.Actor) (*model.NotificationLog, *serviceerror.ServiceError) {
	if actor == nil {
		return nil, serviceerror.CustomServiceError(serviceerror.UnauthorizedError, "authentication is required")
	}
	entry, err := s.store().GetByFormAndEvent(ctx, formID, model.EventTypeReadyForReview)
	if err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.DatabaseError, fmt.Sprintf("failed to read notification log: %v", err))
	}
	if entry == nil {
		return nil, serviceerror.CustomServiceError(serviceerror.ResourceNotFoundError,
			fmt.Sprintf("no ready-for-review notification for application form '%s'", formID))
	}
	return entry, nil
}

// staleBefore is the UPDATED_TIME at or before which a SENT log counts as undelivered.
// Without a sink SENT is the resting state, so no SENT log is stale.
func (s *notificationService) staleBefore() int64 {
	if s.sink == nil {
		return 0
	}
	return s.now() - s.staleAfter.Milliseconds()
}

// isDeadLetter reports whether entry failed, or was left SENT by a delivery run that never finished.
func (s *notificationService) isDeadLetter(entry *model.NotificationLog) bool {
	switch entry.Status {
	case model.DeliveryStatusFailed:
		return true
	case model.DeliveryStatusSent:
		return s.sink != nil && entry.UpdatedTime <= s.staleBefore()
	}
	return false
}

// ListFailed returns the dead-lettered logs, most recent first. Stale SENT logs are included.
func (s *notificationService) ListFailed(ctx context.Context, actor *security.Actor) ([]model.NotificationLog, *serviceerror.ServiceError) {
	if !actor.IsElevated() {
		return nil, serviceerror.CustomServiceError(serviceerror.ForbiddenError, "only supervisors and administrators can view failed notifications")
	}
	logs, err := s.store().ListUndelivered(ctx, s.staleBefore(), failedListLimit)
	if err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.DatabaseError, fmt.Sprintf("failed to list notification logs: %v", err))
	}
	return logs, nil
}

// Redeliver re-attempts delivery of a FAILED or stale SENT log with a fresh attempt budget
func (s *notificationService) Redeliver(ctx context.Context, id string, actor *security.Actor) (*model.NotificationLog, *serviceerror.ServiceError) {
	if !actor.IsElevated() {
		return nil, serviceerror.CustomServiceError(serviceerror.ForbiddenError, "only supervisors and administrators can redeliver notifications")
	}
	if s.sink == nil {
		return nil, serviceerror.CustomServiceError(serviceerror.ConflictError, "no notification sink is configured")
	}

	entry, err := s.store().GetByID(ctx, id)
	if err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.DatabaseError, fmt.Sprintf("failed to read notification log: %v", err))
	}
	if entry == nil {
		return nil, serviceerror.CustomServiceError(serviceerror.ResourceNotFoundError, fmt.Sprintf("notification log '%s' not found", id))
	}
	if !s.isDeadLetter(entry) {
		return nil, serviceerror.CustomServiceError(serviceerror.ConflictError,
			fmt.Sprintf("notification log '%s' is %s, only FAILED or stale SENT logs can be redelivered", id, entry.Status))
	}

	auditEntry := &auditmodel.AuditLog{
		ID:          utils.GenerateUUID(),
		EntityType:  auditmodel.EntityNotificationLog,
		EntityID:    entry.ID,
		Action:      auditmodel.ActionRedelivered,
		ActorUserID: actor.UserID,
		Metadata:    auditmodel.AuditMetadata{PreviousStatus: string(entry.Status), Attempts: entry.Attempts},
		CreatedTime: s.now(),
	}
	if err := s.stores.ExecuteTransaction(ctx, []func(tx dbmodel.TxInterface) error{
		func(tx dbmodel.TxInterface) error {
			return s.auditStore().CreateAuditLog(tx, auditEntry)
		},
	}); err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.DatabaseError, "failed to write audit log")
	}

	s.deliver(ctx, entry)
	return entry, nil
}
