package consentrecord

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	templatemodel "github.com/leadflow/consent-service/internal/consenttemplate/model"
	"github.com/leadflow/consent-service/internal/consentrecord/model"
	"github.com/leadflow/consent-service/internal/system/constants"
	"github.com/leadflow/consent-service/internal/system/error/serviceerror"
	"github.com/leadflow/consent-service/internal/system/security"
	"github.com/leadflow/consent-service/internal/system/utils"
)

type consentRecordHandler struct {
	service ConsentRecordService
}

func newConsentRecordHandler(service ConsentRecordService) *consentRecordHandler {
	return &consentRecordHandler{service: service}
}

// submitBatch handles POST /consent-records/batch. Client IP and user agent are taken from the connection.
func (h *consentRecordHandler) submitBatch(c *gin.Context) {
	var req model.BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendError(c, serviceerror.CustomServiceError(serviceerror.InvalidRequestError, "invalid request body"))
		return
	}
	req.IPAddress = c.ClientIP()
	req.UserAgent = c.Request.UserAgent()

	result, serr := h.service.SubmitConsentBatch(c.Request.Context(), req)
	if serr != nil {
		utils.SendError(c, serr)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// listByForm handles GET /application-forms/:formId/consent-records
func (h *consentRecordHandler) listByForm(c *gin.Context) {
	records, serr := h.service.ListByForm(c.Request.Context(), c.Param("formId"),
		security.ActorFromContext(c.Request.Context()))
	if serr != nil {
		utils.SendError(c, serr)
		return
	}
	c.JSON(http.StatusOK, model.ListResponse{Data: records, Total: len(records)})
}

// export handles GET /consent-records
func (h *consentRecordHandler) export(c *gin.Context) {
	filter, serr := parseExportFilter(c)
	if serr != nil {
		utils.SendError(c, serr)
		return
	}

	resp, serr := h.service.Export(c.Request.Context(), filter, security.ActorFromContext(c.Request.Context()))
	if serr != nil {
		utils.SendError(c, serr)
		return
	}

	if filter.Format != model.FormatCSV {
		c.JSON(http.StatusOK, resp)
		return
	}

	var buf bytes.Buffer
	if err := writeCSV(&buf, resp.Data); err != nil {
		utils.SendError(c, serviceerror.CustomServiceError(serviceerror.InternalServerError, "failed to render csv"))
		return
	}
	c.Header("Content-Disposition", `attachment; filename="consent-records.csv"`)
	c.Header("X-Total-Count", strconv.Itoa(resp.Total))
	c.Data(http.StatusOK, constants.ContentTypeCSV, buf.Bytes())
}

func parseExportFilter(c *gin.Context) (model.ExportFilter, *serviceerror.ServiceError) {
	filter := model.ExportFilter{
		LeadID:        c.Query("leadId"),
		ConsentType:   templatemodel.ConsentType(c.Query("consentType")),
		ConsentMethod: model.ConsentMethod(c.Query("consentMethod")),
		Search:        c.Query("search"),
		SortBy:        c.DefaultQuery("sortBy", model.SortByRecordedAt),
		Ascending:     c.DefaultQuery("sortOrder", "desc") == "asc",
		Format:        c.DefaultQuery("format", model.FormatJSON),
	}

	var err error
	if filter.Skip, err = intQuery(c, "skip", 0); err != nil {
		return filter, invalidQuery(err)
	}
	if filter.Take, err = intQuery(c, "take", constants.DefaultPageSize); err != nil {
		return filter, invalidQuery(err)
	}
	if raw := c.Query("given"); raw != "" {
		given, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, invalidQuery(fmt.Errorf("given must be true or false"))
		}
		filter.Given = &given
	}
	if filter.RecordedFrom, err = millisQuery(c, "recordedFrom"); err != nil {
		return filter, invalidQuery(err)
	}
	if filter.RecordedTo, err = millisQuery(c, "recordedTo"); err != nil {
		return filter, invalidQuery(err)
	}
	return filter, nil
}

func intQuery(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return v, nil
}

func millisQuery(c *gin.Context, key string) (*int64, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be epoch milliseconds", key)
	}
	return &v, nil
}

func invalidQuery(err error) *serviceerror.ServiceError {
	return serviceerror.CustomServiceError(serviceerror.InvalidRequestError, err.Error())
}
