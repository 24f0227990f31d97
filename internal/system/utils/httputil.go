package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/leadflow/consent-service/internal/system/constants"
	"github.com/leadflow/consent-service/internal/system/error/apierror"
	"github.com/leadflow/consent-service/internal/system/error/serviceerror"
)

// StatusCodeFor maps a ServiceError to its HTTP status code.
func StatusCodeFor(err *serviceerror.ServiceError) int {
	if err.Type != serviceerror.ClientErrorType {
		return http.StatusInternalServerError
	}
	switch err.Code {
	case serviceerror.ResourceNotFoundError.Code:
		return http.StatusNotFound
	case serviceerror.ConflictError.Code, serviceerror.TemplateOutdatedError.Code:
		return http.StatusConflict
	case serviceerror.LinkExpiredError.Code:
		return http.StatusGone
	case serviceerror.RequiredConsentMissingError.Code:
		return http.StatusUnprocessableEntity
	case serviceerror.ClientActiveError.Code:
		return http.StatusLocked
	case serviceerror.UnauthorizedError.Code, serviceerror.InvalidAccessError.Code:
		return http.StatusUnauthorized
	case serviceerror.ForbiddenError.Code:
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}

// SendError writes a ServiceError as an HTTP response with appropriate status code
func SendError(c *gin.Context, err *serviceerror.ServiceError) {
	correlationID := c.GetString(constants.ContextKeyCorrelationID)
	c.AbortWithStatusJSON(StatusCodeFor(err),
		apierror.NewErrorResponse(err.Error, err.ErrorDescription, correlationID))
}
