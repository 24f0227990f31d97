package consentclient

// Template is the client view of a consent template
type Template struct {
	ID          string   `json:"id"`
	ConsentType string   `json:"consentType"`
	FormType    string   `json:"formType"`
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	HelpText    *string  `json:"helpText,omitempty"`
	Version     int      `json:"version"`
	IsActive    bool     `json:"isActive"`
	IsRequired  bool     `json:"isRequired"`
	Tags        []string `json:"tags"`
}

type templateList struct {
	Data  []Template `json:"data"`
	Total int        `json:"total"`
}

// VerifyResult is the outcome of a successful access code check
type VerifyResult struct {
	Result            string `json:"result"`
	ApplicationFormID string `json:"applicationFormId"`
	LinkExpiresAt     *int64 `json:"linkExpiresAt,omitempty"`
}

type accessRequest struct {
	LeadID         string `json:"leadId"`
	AccessCodeHash string `json:"accessCodeHash"`
}

// ConsentAnswer is one answer in a submission
type ConsentAnswer struct {
	ConsentTemplateID string  `json:"consentTemplateId"`
	Version           int     `json:"version"`
	ConsentGiven      bool    `json:"consentGiven"`
	ConsentMethod     string  `json:"consentMethod,omitempty"`
	ConsentText       *string `json:"consentText,omitempty"`
	AcceptedAt        *int64  `json:"acceptedAt,omitempty"`
}

// SubmitRequest is the consent batch body
type SubmitRequest struct {
	ApplicationFormID string          `json:"applicationFormId"`
	LeadID            string          `json:"leadId"`
	AccessCodeHash    string          `json:"accessCodeHash"`
	Consents          []ConsentAnswer `json:"consents"`
}

// SubmitResult reports how many records the server wrote
type SubmitResult struct {
	Processed int `json:"processed"`
}
