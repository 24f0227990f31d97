package model

// ConsentType identifies the logical consent a template expresses
type ConsentType string

const (
	ConsentTypeMarketing          ConsentType = "MARKETING"
	ConsentTypeFinancialPartners  ConsentType = "FINANCIAL_PARTNERS"
	ConsentTypeVehiclePartners    ConsentType = "VEHICLE_PARTNERS"
	ConsentTypePartnerDeclaration ConsentType = "PARTNER_DECLARATION"
)

// IsValid reports whether t is a known consent type
func (t ConsentType) IsValid() bool {
	switch t {
	case ConsentTypeMarketing, ConsentTypeFinancialPartners, ConsentTypeVehiclePartners, ConsentTypePartnerDeclaration:
		return true
	}
	return false
}

// ConsentTemplate represents the CONSENT_TEMPLATE table
type ConsentTemplate struct {
	ID              string      `db:"ID" json:"id"`
	ConsentType     ConsentType `db:"CONSENT_TYPE" json:"consentType"`
	FormType        string      `db:"FORM_TYPE" json:"formType"`
	Title           string      `db:"TITLE" json:"title"`
	Content         string      `db:"CONTENT" json:"content"`
	HelpText        *string     `db:"HELP_TEXT" json:"helpText,omitempty"`
	Version         int         `db:"VERSION" json:"version"`
	IsActive        bool        `db:"IS_ACTIVE" json:"isActive"`
	IsRequired      bool        `db:"IS_REQUIRED" json:"isRequired"`
	Tags            []string    `db:"-" json:"tags"`
	CreatedByUserID *string     `db:"CREATED_BY_USER_ID" json:"createdByUserId,omitempty"`
	CreatedTime     int64       `db:"CREATED_TIME" json:"createdTime"`
	UpdatedTime     int64       `db:"UPDATED_TIME" json:"updatedTime"`
}

// ConsentTemplateCreateRequest represents the request payload for creating a template
type ConsentTemplateCreateRequest struct {
	ConsentType ConsentType `json:"consentType" binding:"required"`
	FormType    string      `json:"formType" binding:"required"`
	Title       string      `json:"title" binding:"required"`
	Content     string      `json:"content" binding:"required"`
	HelpText    *string     `json:"helpText,omitempty"`
	Version     int         `json:"version"`
	IsActive    *bool       `json:"isActive,omitempty"`
	IsRequired  bool        `json:"isRequired"`
	Tags        []string    `json:"tags,omitempty"`
}

// ConsentTemplateUpdateRequest is a partial update; nil fields are left unchanged
type ConsentTemplateUpdateRequest struct {
	Title      *string   `json:"title,omitempty"`
	Content    *string   `json:"content,omitempty"`
	HelpText   *string   `json:"helpText,omitempty"`
	Version    *int      `json:"version,omitempty"`
	IsActive   *bool     `json:"isActive,omitempty"`
	IsRequired *bool     `json:"isRequired,omitempty"`
	Tags       *[]string `json:"tags,omitempty"`
}

// ConsentTemplateSupersedeRequest publishes the next version of an active template. Omitted optional
// fields are carried over from the superseded version.
type ConsentTemplateSupersedeRequest struct {
	Title      *string   `json:"title,omitempty"`
	Content    string    `json:"content" binding:"required"`
	HelpText   *string   `json:"helpText,omitempty"`
	IsRequired *bool     `json:"isRequired,omitempty"`
	Tags       *[]string `json:"tags,omitempty"`
}

// ConsentTemplateListResponse represents the response for listing templates
type ConsentTemplateListResponse struct {
	Data  []ConsentTemplate `json:"data"`
	Total int               `json:"total"`
}

type CreateRequest = ConsentTemplateCreateRequest
type UpdateRequest = ConsentTemplateUpdateRequest
type SupersedeRequest = ConsentTemplateSupersedeRequest
type ListResponse = ConsentTemplateListResponse
