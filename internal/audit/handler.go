package audit

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/leadflow/consent-service/internal/audit/model"
	"github.com/leadflow/consent-service/internal/system/utils"
)

type auditHandler struct {
	service AuditService
}

// listLeadNotes handles GET /leads/:leadId/notes
func (h *auditHandler) listLeadNotes(c *gin.Context) {
	notes, serr := h.service.ListLeadNotes(c.Request.Context(), c.Param("leadId"))
	if serr != nil {
		utils.SendError(c, serr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": notes, "total": len(notes)})
}

// listAuditLogs handles GET /audit-logs?entityType=...&entityId=...
func (h *auditHandler) listAuditLogs(c *gin.Context) {
	logs, serr := h.service.ListAuditLogs(c.Request.Context(),
		model.EntityType(c.Query("entityType")), c.Query("entityId"))
	if serr != nil {
		utils.SendError(c, serr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": logs, "total": len(logs)})
}
