package applicationform

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/leadflow/consent-service/internal/applicationform/model"
	"github.com/leadflow/consent-service/internal/system/error/serviceerror"
	"github.com/leadflow/consent-service/internal/system/security"
	"github.com/leadflow/consent-service/internal/system/utils"
)

// Wrong codes and unknown forms share one response.
const invalidAccessDescription = "invalid access code or link"

type applicationFormHandler struct {
	service ApplicationFormService
}

func newApplicationFormHandler(service ApplicationFormService) *applicationFormHandler {
	return &applicationFormHandler{service: service}
}

func bindAccessRequest(c *gin.Context) (model.VerifyAccessRequest, bool) {
	var req model.VerifyAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendError(c, serviceerror.CustomServiceError(serviceerror.InvalidRequestError, "invalid request body"))
		return req, false
	}
	req.ApplicationFormID = c.Param("formId")
	return req, true
}

// verifyAccess handles POST /application-forms/:formId/verify-access
func (h *applicationFormHandler) verifyAccess(c *gin.Context) {
	req, ok := bindAccessRequest(c)
	if !ok {
		return
	}

	result, serr := h.service.VerifyAccess(c.Request.Context(), req)
	if serr != nil {
		utils.SendError(c, serr)
		return
	}

	switch result.Result {
	case model.AccessResultOK:
		c.JSON(http.StatusOK, result)
	case model.AccessResultLinkExpired:
		utils.SendError(c, serviceerror.CustomServiceError(serviceerror.LinkExpiredError, "the application link has expired"))
	default:
		utils.SendError(c, serviceerror.CustomServiceError(serviceerror.InvalidAccessError, invalidAccessDescription))
	}
}

// heartbeat handles POST /application-forms/:formId/heartbeat
func (h *applicationFormHandler) heartbeat(c *gin.Context) {
	req, ok := bindAccessRequest(c)
	if !ok {
		return
	}
	if serr := h.service.Heartbeat(c.Request.Context(), req); serr != nil {
		utils.SendError(c, serr)
		return
	}
	c.Status(http.StatusNoContent)
}

// getApplicationForm handles GET /application-forms/:formId
func (h *applicationFormHandler) getApplicationForm(c *gin.Context) {
	form, serr := h.service.GetApplicationForm(c.Request.Context(), c.Param("formId"))
	if serr != nil {
		utils.SendError(c, serr)
		return
	}
	c.JSON(http.StatusOK, form)
}

// getUnlockHistory handles GET /application-forms/:formId/unlock-history
func (h *applicationFormHandler) getUnlockHistory(c *gin.Context) {
	attempts, serr := h.service.GetUnlockHistory(c.Request.Context(), c.Param("formId"))
	if serr != nil {
		utils.SendError(c, serr)
		return
	}
	c.JSON(http.StatusOK, model.UnlockHistoryResponse{Data: attempts, Total: len(attempts)})
}

// unlock handles POST /application-forms/:formId/unlock
func (h *applicationFormHandler) unlock(c *gin.Context) {
	var req model.UnlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendError(c, serviceerror.CustomServiceError(serviceerror.InvalidRequestError, "reason is required"))
		return
	}

	form, serr := h.service.UnlockApplicationForm(c.Request.Context(), c.Param("formId"), req,
		security.ActorFromContext(c.Request.Context()))
	if serr != nil {
		utils.SendError(c, serr)
		return
	}
	c.JSON(http.StatusOK, form)
}

// issueAccessCode handles POST /application-forms/:formId/access-code
func (h *applicationFormHandler) issueAccessCode(c *gin.Context) {
	var req model.IssueAccessCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendError(c, serviceerror.CustomServiceError(serviceerror.InvalidRequestError, "accessCodeHash is required"))
		return
	}

	form, serr := h.service.IssueAccessCode(c.Request.Context(), c.Param("formId"), req,
		security.ActorFromContext(c.Request.Context()))
	if serr != nil {
		utils.SendError(c, serr)
		return
	}
	c.JSON(http.StatusOK, form)
}

// acquireStaffEdit handles POST /application-forms/:formId/staff-edit
func (h *applicationFormHandler) acquireStaffEdit(c *gin.Context) {
	serr := h.service.AcquireStaffEdit(c.Request.Context(), c.Param("formId"),
		security.ActorFromContext(c.Request.Context()))
	if serr != nil {
		utils.SendError(c, serr)
		return
	}
	c.Status(http.StatusNoContent)
}
