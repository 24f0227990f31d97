package consentrecord

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadflow/consent-service/internal/consentrecord/model"
	"github.com/leadflow/consent-service/internal/system/error/serviceerror"
	"github.com/leadflow/consent-service/internal/system/security"
)

type stubService struct {
	batch   model.BatchRequest
	filter  model.ExportFilter
	export  *model.ExportResponse
	records []model.ConsentRecord
	serr    *serviceerror.ServiceError
}

func (s *stubService) RecordConsentBatch(ctx context.Context, req model.BatchRequest) (*model.BatchResult, *serviceerror.ServiceError) {
	return s.SubmitConsentBatch(ctx, req)
}

func (s *stubService) SubmitConsentBatch(_ context.Context, req model.BatchRequest) (*model.BatchResult, *serviceerror.ServiceError) {
	s.batch = req
	if s.serr != nil {
		return nil, s.serr
	}
	return &model.BatchResult{Processed: len(req.Consents),
		Records: []model.ConsentRecord{{ID: "rec-generated", ConsentTemplateID: "tpl_marketing"}}}, nil
}

func (s *stubService) ListByForm(_ context.Context, _ string, actor *security.Actor) ([]model.ConsentRecord, *serviceerror.ServiceError) {
	if actor == nil {
		return nil, serviceerror.CustomServiceError(serviceerror.UnauthorizedError, "authentication is required")
	}
	return s.records, s.serr
}

func (s *stubService) Export(_ context.Context, filter model.ExportFilter, _ *security.Actor) (*model.ExportResponse, *serviceerror.ServiceError) {
	s.filter = filter
	if s.serr != nil {
		return nil, s.serr
	}
	return s.export, nil
}

func newTestRouter(service ConsentRecordService, actor *security.Actor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if actor != nil {
			c.Request = c.Request.WithContext(security.WithActor(c.Request.Context(), actor))
		}
		c.Next()
	})
	registerRoutes(router.Group("/api/v1"), newConsentRecordHandler(service))
	return router
}

func TestHandler_SubmitBatchUsesConnectionMetadata(t *testing.T) {
	svc := &stubService{}
	router := newTestRouter(svc, nil)

	body := `{"applicationFormId":"form-1","leadId":"lead-1","accessCodeHash":"h","ipAddress":"10.9.9.9",` +
		`"userAgent":"spoofed","consents":[{"consentTemplateId":"tpl_marketing","version":2,"consentGiven":true}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/consent-records/batch", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.RemoteAddr = "203.0.113.7:51000"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"processed":1}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "rec-generated")
	assert.Equal(t, "203.0.113.7", svc.batch.IPAddress)
	assert.Equal(t, "Mozilla/5.0", svc.batch.UserAgent)
}

func TestHandler_SubmitBatchErrorStatuses(t *testing.T) {
	tests := []struct {
		base serviceerror.ServiceError
		code int
	}{
		{serviceerror.TemplateOutdatedError, http.StatusConflict},
		{serviceerror.RequiredConsentMissingError, http.StatusUnprocessableEntity},
		{serviceerror.LinkExpiredError, http.StatusGone},
		{serviceerror.InvalidAccessError, http.StatusUnauthorized},
		{serviceerror.ValidationError, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.base.Error, func(t *testing.T) {
			svc := &stubService{serr: serviceerror.CustomServiceError(tt.base, "rejected")}
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/consent-records/batch",
				strings.NewReader(`{"applicationFormId":"form-1","consents":[]}`))
			req.Header.Set("Content-Type", "application/json")
			newTestRouter(svc, nil).ServeHTTP(rec, req)

			assert.Equal(t, tt.code, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error":"`+tt.base.Error+`"`)
		})
	}
}

func TestHandler_SubmitBatchMalformedBody(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/consent-records/batch", strings.NewReader(`{"consents":`))
	req.Header.Set("Content-Type", "application/json")
	newTestRouter(&stubService{}, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_ExportRequiresElevatedRole(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(&stubService{}, &security.Actor{UserID: "agent-1", Role: security.RoleAgent}).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/consent-records", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	newTestRouter(&stubService{}, nil).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/consent-records", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_ExportParsesQuery(t *testing.T) {
	svc := &stubService{export: &model.ExportResponse{Data: []model.ExportRow{}, Total: 0, Take: 10}}
	admin := &security.Actor{UserID: "admin-1", Role: security.RoleAdmin}

	rec := httptest.NewRecorder()
	newTestRouter(svc, admin).ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/api/v1/consent-records?consentType=MARKETING&given=false&recordedFrom=1000&sortBy=clientName&sortOrder=asc&take=10&skip=30", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MARKETING", string(svc.filter.ConsentType))
	require.NotNil(t, svc.filter.Given)
	assert.False(t, *svc.filter.Given)
	assert.Equal(t, int64(1000), *svc.filter.RecordedFrom)
	assert.Nil(t, svc.filter.RecordedTo)
	assert.Equal(t, model.SortByClientName, svc.filter.SortBy)
	assert.True(t, svc.filter.Ascending)
	assert.Equal(t, 30, svc.filter.Skip)
	assert.Equal(t, 10, svc.filter.Take)
	assert.Equal(t, model.FormatJSON, svc.filter.Format)
}

func TestHandler_ExportRejectsBadQuery(t *testing.T) {
	admin := &security.Actor{UserID: "admin-1", Role: security.RoleAdmin}
	for _, query := range []string{"take=ten", "given=maybe", "recordedTo=yesterday"} {
		rec := httptest.NewRecorder()
		newTestRouter(&stubService{}, admin).ServeHTTP(rec,
			httptest.NewRequest(http.MethodGet, "/api/v1/consent-records?"+query, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
	}
}

func TestHandler_ExportCSV(t *testing.T) {
	svc := &stubService{export: &model.ExportResponse{
		Data:  []model.ExportRow{{ConsentRecord: model.ConsentRecord{ID: "rec-1"}, ClientName: "Ada Lovelace"}},
		Total: 7,
	}}
	admin := &security.Actor{UserID: "admin-1", Role: security.RoleSupervisor}

	rec := httptest.NewRecorder()
	newTestRouter(svc, admin).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/consent-records?format=csv", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/csv"))
	assert.Equal(t, "7", rec.Header().Get("X-Total-Count"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "consent-records.csv")
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "rec-1,,,Ada Lovelace,"))
}

func TestHandler_ListByFormRequiresStaff(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(&stubService{}, nil).ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/api/v1/application-forms/form-1/consent-records", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	svc := &stubService{records: []model.ConsentRecord{{ID: "rec-1"}}}
	rec = httptest.NewRecorder()
	newTestRouter(svc, &security.Actor{UserID: "agent-1", Role: security.RoleAgent}).ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/api/v1/application-forms/form-1/consent-records", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":1`)
}
