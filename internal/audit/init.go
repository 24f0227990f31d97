package audit

import (
	"github.com/gin-gonic/gin"

	"github.com/leadflow/consent-service/internal/system/middleware"
	"github.com/leadflow/consent-service/internal/system/stores"
)

// Initialize registers the audit store and the staff read routes
func Initialize(api *gin.RouterGroup, registry *stores.StoreRegistry) AuditService {
	registry.Audit = NewAuditStore(registry.DBClient())
	service := newAuditService(registry)
	handler := &auditHandler{service: service}

	staff := api.Group("", middleware.RequireStaff())
	staff.GET("/leads/:leadId/notes", handler.listLeadNotes)
	staff.GET("/audit-logs", middleware.RequireElevated(), handler.listAuditLogs)
	return service
}
