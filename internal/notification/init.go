// Package notification dispatches the ready-for-review event once per application form and tracks its delivery.
package notification

import (
	"github.com/gin-gonic/gin"

	"github.com/leadflow/consent-service/internal/system/middleware"
	"github.com/leadflow/consent-service/internal/system/stores"
)

// Initialize sets up the notification module. The audit store must already be registered.
func Initialize(api *gin.RouterGroup, registry *stores.StoreRegistry, opts Options) NotificationService {
	registry.Notification = newNotificationLogStore(registry.DBClient())
	service := newNotificationService(registry, opts)

	registerRoutes(api, newNotificationHandler(service))
	return service
}

func registerRoutes(api *gin.RouterGroup, handler *notificationHandler) {
	api.GET("/application-forms/:formId/notification", middleware.RequireStaff(), handler.getByForm)

	admin := api.Group("/notifications", middleware.RequireElevated())
	{
		admin.GET("/failed", handler.listFailed)
		admin.POST("/:id/redeliver", handler.redeliver)
	}
}
