package main

import (
	"github.com/gin-gonic/gin"

	"github.com/leadflow/consent-service/internal/applicationform"
	"github.com/leadflow/consent-service/internal/audit"
	"github.com/leadflow/consent-service/internal/consentrecord"
	consentrecordmodel "github.com/leadflow/consent-service/internal/consentrecord/model"
	"github.com/leadflow/consent-service/internal/consenttemplate"
	"github.com/leadflow/consent-service/internal/notification"
	"github.com/leadflow/consent-service/internal/session"
	"github.com/leadflow/consent-service/internal/system/config"
	"github.com/leadflow/consent-service/internal/system/log"
	"github.com/leadflow/consent-service/internal/system/mailer"
	"github.com/leadflow/consent-service/internal/system/stores"
)

// Resources released during shutdown
var (
	notificationSink notification.Sink
	closePresence    func() error
)

// registerServices initializes every module in dependency order. Audit goes first because the access gate,
// the dispatcher and the recorder all write through its store.
func registerServices(api *gin.RouterGroup, registry *stores.StoreRegistry, cfg *config.Config) error {
	logger := log.GetLogger()

	audit.Initialize(api, registry)
	logger.Info("Audit module initialized")

	consenttemplate.Initialize(api, registry)
	logger.Info("ConsentTemplate module initialized")

	var presence session.PresenceTracker
	presence, closePresence = session.NewPresenceTracker(cfg.Session)
	formService, err := applicationform.Initialize(api, registry, applicationform.Options{
		Presence:    presence,
		Mailer:      mailer.New(cfg.Mail),
		Supervisors: cfg.Mail.Supervisors,
		LinkTTL:     cfg.Access.LinkTTL,
		BcryptCost:  cfg.Access.BcryptCost,
	})
	if err != nil {
		return err
	}
	logger.Info("ApplicationForm module initialized")

	notificationSink, err = notification.NewSink(cfg.Notification)
	if err != nil {
		return err
	}
	notificationService := notification.Initialize(api, registry, notification.Options{
		Sink:            notificationSink,
		MaxAttempts:     cfg.Notification.MaxAttempts,
		RetryBackoff:    cfg.Notification.RetryBackoff,
		DeliveryTimeout: cfg.Notification.DeliveryTimeout,
		StaleAfter:      cfg.Notification.StaleAfter,
	})
	logger.Info("Notification module initialized", log.String("sink", cfg.Notification.Sink))

	consentrecord.Initialize(api, registry, consentrecord.Options{
		DefaultMethod: consentrecordmodel.ConsentMethod(cfg.Consent.DefaultMethod),
		ExportMaxTake: cfg.Consent.ExportMaxTake,
		Access:        formService,
		Notifier:      notificationService,
		Presence:      formService,
	})
	logger.Info("ConsentRecord module initialized")

	return nil
}

// unregisterServices releases the sink and presence connections.
func unregisterServices() {
	logger := log.GetLogger()
	if notificationSink != nil {
		if err := notificationSink.Close(); err != nil {
			logger.Error("Failed to close notification sink", log.Error(err))
		}
	}
	if closePresence != nil {
		if err := closePresence(); err != nil {
			logger.Error("Failed to close presence tracker", log.Error(err))
		}
	}
}
