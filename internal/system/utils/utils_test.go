package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/leadflow/consent-service/internal/system/constants"
	"github.com/leadflow/consent-service/internal/system/error/serviceerror"
)

func TestIsExpired_InclusiveBoundary(t *testing.T) {
	deadline := int64(1_700_000_000_000)

	assert.False(t, IsExpired(nil, deadline))
	assert.False(t, IsExpired(&deadline, deadline-1))
	assert.True(t, IsExpired(&deadline, deadline))
	assert.True(t, IsExpired(&deadline, deadline+1))
}

func TestGenerateUUID(t *testing.T) {
	ids := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id := GenerateUUID()
		_, err := uuid.Parse(id)
		assert.NoError(t, err)
		assert.False(t, ids[id], "ID should be unique")
		ids[id] = true
	}
}

func TestValidatePagination(t *testing.T) {
	assert.NoError(t, ValidatePagination(0, 10, 500))
	assert.Error(t, ValidatePagination(-1, 10, 500))
	assert.Error(t, ValidatePagination(0, 0, 500))
	assert.Error(t, ValidatePagination(0, 501, 500))
}

func TestValidateID(t *testing.T) {
	assert.NoError(t, ValidateID("formId", "form-1"))
	assert.EqualError(t, ValidateID("formId", "  "), "formId is required")
	assert.Error(t, ValidateID("formId", string(make([]byte, 65))))
}

func TestStatusCodeFor(t *testing.T) {
	tests := []struct {
		base serviceerror.ServiceError
		want int
	}{
		{serviceerror.LinkExpiredError, http.StatusGone},
		{serviceerror.TemplateOutdatedError, http.StatusConflict},
		{serviceerror.RequiredConsentMissingError, http.StatusUnprocessableEntity},
		{serviceerror.ClientActiveError, http.StatusLocked},
		{serviceerror.InvalidAccessError, http.StatusUnauthorized},
		{serviceerror.ForbiddenError, http.StatusForbidden},
		{serviceerror.ResourceNotFoundError, http.StatusNotFound},
		{serviceerror.ValidationError, http.StatusBadRequest},
		{serviceerror.DatabaseError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.base.Error, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusCodeFor(serviceerror.CustomServiceError(tt.base, "x")))
		})
	}
}

func TestSendError_WritesBodyWithCorrelationID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set(constants.ContextKeyCorrelationID, "corr-9")

	SendError(c, serviceerror.CustomServiceError(serviceerror.LinkExpiredError, "link expired"))

	assert.Equal(t, http.StatusGone, w.Code)
	assert.JSONEq(t, `{"error":"link_expired","error_description":"link expired","correlation_id":"corr-9"}`, w.Body.String())
	assert.True(t, c.IsAborted())
}
