package notification

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/leadflow/consent-service/internal/notification/model"
	"github.com/leadflow/consent-service/internal/system/security"
	"github.com/leadflow/consent-service/internal/system/utils"
)

type notificationHandler struct {
	service NotificationService
}

func newNotificationHandler(service NotificationService) *notificationHandler {
	return &notificationHandler{service: service}
}

// getByForm handles GET /application-forms/:formId/notification
func (h *notificationHandler) getByForm(c *gin.Context) {
	entry, serr := h.service.GetByForm(c.Request.Context(), c.Param("formId"), security.ActorFromContext(c.Request.Context()))
	if serr != nil {
		utils.SendError(c, serr)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// listFailed handles GET /notifications/failed
func (h *notificationHandler) listFailed(c *gin.Context) {
	logs, serr := h.service.ListFailed(c.Request.Context(), security.ActorFromContext(c.Request.Context()))
	if serr != nil {
		utils.SendError(c, serr)
		return
	}
	c.JSON(http.StatusOK, model.ListResponse{Data: logs, Total: len(logs)})
}

// redeliver handles POST /notifications/:id/redeliver
func (h *notificationHandler) redeliver(c *gin.Context) {
	entry, serr := h.service.Redeliver(c.Request.Context(), c.Param("id"), security.ActorFromContext(c.Request.Context()))
	if serr != nil {
		utils.SendError(c, serr)
		return
	}
	c.JSON(http.StatusOK, entry)
}
