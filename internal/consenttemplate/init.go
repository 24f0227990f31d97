// Package consenttemplate owns the versioned consent template catalog.
package consenttemplate

import (
	"github.com/gin-gonic/gin"

	"github.com/leadflow/consent-service/internal/system/middleware"
	"github.com/leadflow/consent-service/internal/system/stores"
	"github.com/leadflow/consent-service/internal/system/utils"
)

// Initialize sets up the consent template module, registers its store and routes
func Initialize(api *gin.RouterGroup, registry *stores.StoreRegistry) ConsentTemplateService {
	registry.ConsentTemplate = newConsentTemplateStore(registry.DBClient())
	service := newConsentTemplateService(registry, utils.GetCurrentTimeMillis)
	handler := newConsentTemplateHandler(service)

	registerRoutes(api, handler)
	return service
}

func registerRoutes(api *gin.RouterGroup, handler *consentTemplateHandler) {
	templates := api.Group("/consent-templates")
	{
		templates.GET("", handler.listTemplates)
		templates.GET("/:templateId", handler.getTemplate)
		templates.POST("", middleware.RequireElevated(), handler.createTemplate)
		templates.PATCH("/:templateId", middleware.RequireElevated(), handler.updateTemplate)
		templates.POST("/:templateId/versions", middleware.RequireElevated(), handler.supersedeTemplate)
	}
}
