// Package consentrecord records consent batches against the versioned template catalog.
package consentrecord

import (
	"github.com/gin-gonic/gin"

	"github.com/leadflow/consent-service/internal/system/middleware"
	"github.com/leadflow/consent-service/internal/system/stores"
)

// Initialize sets up the consent record module. The template and application form stores must already be registered.
func Initialize(api *gin.RouterGroup, registry *stores.StoreRegistry, opts Options) ConsentRecordService {
	registry.ConsentRecord = newConsentRecordStore(registry.DBClient())
	service := newConsentRecordService(registry, opts)
	handler := newConsentRecordHandler(service)

	registerRoutes(api, handler)
	return service
}

func registerRoutes(api *gin.RouterGroup, handler *consentRecordHandler) {
	api.POST("/consent-records/batch", handler.submitBatch)
	api.GET("/consent-records", middleware.RequireElevated(), handler.export)
	api.GET("/application-forms/:formId/consent-records", middleware.RequireStaff(), handler.listByForm)
}
