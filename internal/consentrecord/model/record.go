package model

import (
	templatemodel "github.com/leadflow/consent-service/internal/consenttemplate/model"
)

// ConsentMethod records how an answer was captured
type ConsentMethod string

const (
	ConsentMethodOnlineForm        ConsentMethod = "ONLINE_FORM"
	ConsentMethodPhoneCall         ConsentMethod = "PHONE_CALL"
	ConsentMethodPartnerSubmission ConsentMethod = "PARTNER_SUBMISSION"
)

// IsValid reports whether m is a known consent method
func (m ConsentMethod) IsValid() bool {
	switch m {
	case ConsentMethodOnlineForm, ConsentMethodPhoneCall, ConsentMethodPartnerSubmission:
		return true
	}
	return false
}

// ConsentRecord represents the CONSENT_RECORD table, unique on (APPLICATION_FORM_ID, CONSENT_TEMPLATE_ID, VERSION)
type ConsentRecord struct {
	ID                string                    `db:"ID" json:"id"`
	ApplicationFormID string                    `db:"APPLICATION_FORM_ID" json:"applicationFormId"`
	ConsentTemplateID string                    `db:"CONSENT_TEMPLATE_ID" json:"consentTemplateId"`
	Version           int                       `db:"VERSION" json:"version"`
	LeadID            string                    `db:"LEAD_ID" json:"leadId"`
	ConsentType       templatemodel.ConsentType `db:"CONSENT_TYPE" json:"consentType"`
	ConsentGiven      bool                      `db:"CONSENT_GIVEN" json:"consentGiven"`
	ConsentMethod     ConsentMethod             `db:"CONSENT_METHOD" json:"consentMethod"`
	ConsentText       string                    `db:"CONSENT_TEXT" json:"consentText"`
	HelpTextSnapshot  *string                   `db:"HELP_TEXT_SNAPSHOT" json:"helpTextSnapshot,omitempty"`
	IPAddress         *string                   `db:"IP_ADDRESS" json:"ipAddress,omitempty"`
	UserAgent         *string                   `db:"USER_AGENT" json:"userAgent,omitempty"`
	RecordedAt        int64                     `db:"RECORDED_AT" json:"recordedAt"`
	AccessCodeHash    *string                   `db:"ACCESS_CODE_HASH" json:"-"`
	CreatedTime       int64                     `db:"CREATED_TIME" json:"createdTime"`
	UpdatedTime       int64                     `db:"UPDATED_TIME" json:"updatedTime"`
}

// ConsentAnswer is one submitted answer. ConsentGiven is a pointer so a missing value can be told apart from false.
type ConsentAnswer struct {
	ConsentTemplateID string        `json:"consentTemplateId"`
	Version           int           `json:"version"`
	ConsentGiven      *bool         `json:"consentGiven"`
	ConsentMethod     ConsentMethod `json:"consentMethod,omitempty"`
	ConsentText       *string       `json:"consentText,omitempty"`
	AcceptedAt        *int64        `json:"acceptedAt,omitempty"`
}

// BatchRequest is the recordConsentBatch payload
type BatchRequest struct {
	ApplicationFormID string          `json:"applicationFormId"`
	LeadID            string          `json:"leadId"`
	AccessCodeHash    string          `json:"accessCodeHash"`
	IPAddress         string          `json:"ipAddress,omitempty"`
	UserAgent         string          `json:"userAgent,omitempty"`
	Consents          []ConsentAnswer `json:"consents"`
}

// BatchResult is returned for a fully committed batch. Records carry the written values without row IDs.
type BatchResult struct {
	Processed int             `json:"processed"`
	Records   []ConsentRecord `json:"-"`
}

// Export sort keys
const (
	SortByRecordedAt  = "recordedAt"
	SortByConsentType = "consentType"
	SortByClientName  = "clientName"
)

// Export formats
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// ExportFilter selects consent records for staff listing and export
type ExportFilter struct {
	LeadID        string
	ConsentType   templatemodel.ConsentType
	ConsentMethod ConsentMethod
	Given         *bool
	RecordedFrom  *int64
	RecordedTo    *int64
	Search        string
	SortBy        string
	Ascending     bool
	Skip          int
	Take          int
	Format        string
}

// ExportRow is a consent record joined with its lead's contact details
type ExportRow struct {
	ConsentRecord
	ClientName  string `json:"clientName"`
	ClientEmail string `json:"clientEmail,omitempty"`
}

// ExportResponse is the JSON export envelope
type ExportResponse struct {
	Data  []ExportRow `json:"data"`
	Total int         `json:"total"`
	Skip  int         `json:"skip"`
	Take  int         `json:"take"`
}

// ListResponse lists the records of one form
type ListResponse struct {
	Data  []ConsentRecord `json:"data"`
	Total int             `json:"total"`
}
