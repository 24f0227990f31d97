package validator

import (
	"fmt"

	"github.com/leadflow/consent-service/internal/consentrecord/model"
	"github.com/leadflow/consent-service/internal/system/utils"
)

const (
	maxConsentsPerBatch = 50
	maxSearchLength     = 100
	maxUserAgentLength  = 512
)

// ValidateBatchRequest rejects malformed batches before any state is read
func ValidateBatchRequest(req model.BatchRequest) error {
	if err := utils.ValidateID("applicationFormId", req.ApplicationFormID); err != nil {
		return err
	}
	if err := utils.ValidateID("leadId", req.LeadID); err != nil {
		return err
	}
	if err := utils.ValidateRequired("accessCodeHash", req.AccessCodeHash); err != nil {
		return err
	}
	if err := utils.ValidateMaxLength("userAgent", req.UserAgent, maxUserAgentLength); err != nil {
		return err
	}
	if len(req.Consents) == 0 {
		return fmt.Errorf("consents must not be empty")
	}
	if len(req.Consents) > maxConsentsPerBatch {
		return fmt.Errorf("too many consents (max %d)", maxConsentsPerBatch)
	}

	seen := make(map[string]struct{}, len(req.Consents))
	for i, c := range req.Consents {
		if err := utils.ValidateID(fmt.Sprintf("consents[%d].consentTemplateId", i), c.ConsentTemplateID); err != nil {
			return err
		}
		if _, dup := seen[c.ConsentTemplateID]; dup {
			return fmt.Errorf("consents[%d]: template '%s' is answered more than once", i, c.ConsentTemplateID)
		}
		seen[c.ConsentTemplateID] = struct{}{}

		if c.Version < 1 {
			return fmt.Errorf("consents[%d].version must be positive", i)
		}
		if c.ConsentGiven == nil {
			return fmt.Errorf("consents[%d].consentGiven is required", i)
		}
		if c.ConsentMethod != "" && !c.ConsentMethod.IsValid() {
			return fmt.Errorf("consents[%d].consentMethod '%s' is not supported", i, c.ConsentMethod)
		}
		if c.AcceptedAt != nil && *c.AcceptedAt <= 0 {
			return fmt.Errorf("consents[%d].acceptedAt must be a positive epoch millis value", i)
		}
	}
	return nil
}

// ValidateExportFilter validates sort keys, format, ranges and pagination
func ValidateExportFilter(f model.ExportFilter, maxTake int) error {
	switch f.SortBy {
	case model.SortByRecordedAt, model.SortByConsentType, model.SortByClientName:
	default:
		return fmt.Errorf("sortBy must be one of recordedAt, consentType, clientName")
	}
	switch f.Format {
	case model.FormatJSON, model.FormatCSV:
	default:
		return fmt.Errorf("format must be json or csv")
	}
	if f.ConsentType != "" && !f.ConsentType.IsValid() {
		return fmt.Errorf("unknown consentType '%s'", f.ConsentType)
	}
	if f.ConsentMethod != "" && !f.ConsentMethod.IsValid() {
		return fmt.Errorf("unknown consentMethod '%s'", f.ConsentMethod)
	}
	if f.RecordedFrom != nil && f.RecordedTo != nil && *f.RecordedFrom > *f.RecordedTo {
		return fmt.Errorf("recordedFrom must not be after recordedTo")
	}
	if err := utils.ValidateMaxLength("search", f.Search, maxSearchLength); err != nil {
		return err
	}
	return utils.ValidatePagination(f.Skip, f.Take, maxTake)
}
