// Package applicationform is the access gate of the externally reachable application form link.
package applicationform

import (
	"github.com/gin-gonic/gin"

	"github.com/leadflow/consent-service/internal/system/middleware"
	"github.com/leadflow/consent-service/internal/system/stores"
)

// Initialize sets up the application form module, registers its store and routes.
// The audit store must already be registered.
func Initialize(api *gin.RouterGroup, registry *stores.StoreRegistry, opts Options) (ApplicationFormService, error) {
	registry.ApplicationForm = NewApplicationFormStore(registry.DBClient())
	service, err := newApplicationFormService(registry, opts)
	if err != nil {
		return nil, err
	}

	registerRoutes(api, newApplicationFormHandler(service))
	return service, nil
}

func registerRoutes(api *gin.RouterGroup, handler *applicationFormHandler) {
	forms := api.Group("/application-forms/:formId")
	{
		forms.POST("/verify-access", handler.verifyAccess)
		forms.POST("/heartbeat", handler.heartbeat)

		forms.GET("", middleware.RequireStaff(), handler.getApplicationForm)
		forms.GET("/unlock-history", middleware.RequireStaff(), handler.getUnlockHistory)
		forms.POST("/staff-edit", middleware.RequireStaff(), handler.acquireStaffEdit)
		forms.POST("/unlock", middleware.RequireElevated(), handler.unlock)
		forms.POST("/access-code", middleware.RequireElevated(), handler.issueAccessCode)
	}
}
