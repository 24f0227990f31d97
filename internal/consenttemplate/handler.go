package consenttemplate

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/leadflow/consent-service/internal/consenttemplate/model"
	"github.com/leadflow/consent-service/internal/system/error/serviceerror"
	"github.com/leadflow/consent-service/internal/system/security"
	"github.com/leadflow/consent-service/internal/system/utils"
)

type consentTemplateHandler struct {
	service ConsentTemplateService
}

func newConsentTemplateHandler(service ConsentTemplateService) *consentTemplateHandler {
	return &consentTemplateHandler{service: service}
}

// listTemplates handles GET /consent-templates?formType=...&includeInactive=true
func (h *consentTemplateHandler) listTemplates(c *gin.Context) {
	includeInactive := false
	if raw := c.Query("includeInactive"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			utils.SendError(c, serviceerror.CustomServiceError(serviceerror.InvalidRequestError, "includeInactive must be a boolean"))
			return
		}
		includeInactive = parsed
	}

	actor := security.ActorFromContext(c.Request.Context())
	templates, serr := h.service.ListTemplates(c.Request.Context(), c.Query("formType"), includeInactive, actor)
	if serr != nil {
		utils.SendError(c, serr)
		return
	}

	c.JSON(http.StatusOK, model.ListResponse{Data: templates, Total: len(templates)})
}

// getTemplate handles GET /consent-templates/:templateId
func (h *consentTemplateHandler) getTemplate(c *gin.Context) {
	template, serr := h.service.GetTemplate(c.Request.Context(), c.Param("templateId"))
	if serr != nil {
		utils.SendError(c, serr)
		return
	}
	c.JSON(http.StatusOK, template)
}

// createTemplate handles POST /consent-templates
func (h *consentTemplateHandler) createTemplate(c *gin.Context) {
	var req model.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendError(c, serviceerror.CustomServiceError(serviceerror.InvalidRequestError, "invalid request body"))
		return
	}

	template, serr := h.service.CreateTemplate(c.Request.Context(), req, security.ActorFromContext(c.Request.Context()))
	if serr != nil {
		utils.SendError(c, serr)
		return
	}
	c.JSON(http.StatusCreated, template)
}

// updateTemplate handles PATCH /consent-templates/:templateId
func (h *consentTemplateHandler) updateTemplate(c *gin.Context) {
	var req model.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendError(c, serviceerror.CustomServiceError(serviceerror.InvalidRequestError, "invalid request body"))
		return
	}

	template, serr := h.service.UpdateTemplate(c.Request.Context(), c.Param("templateId"), req,
		security.ActorFromContext(c.Request.Context()))
	if serr != nil {
		utils.SendError(c, serr)
		return
	}
	c.JSON(http.StatusOK, template)
}

// supersedeTemplate handles POST /consent-templates/:templateId/versions
func (h *consentTemplateHandler) supersedeTemplate(c *gin.Context) {
	var req model.SupersedeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendError(c, serviceerror.CustomServiceError(serviceerror.InvalidRequestError, "invalid request body"))
		return
	}

	template, serr := h.service.SupersedeTemplate(c.Request.Context(), c.Param("templateId"), req,
		security.ActorFromContext(c.Request.Context()))
	if serr != nil {
		utils.SendError(c, serr)
		return
	}
	c.JSON(http.StatusCreated, template)
}
