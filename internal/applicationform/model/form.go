package model

// FormStatus is the lifecycle state of an application form
type FormStatus string

const (
	FormStatusInProgress FormStatus = "IN_PROGRESS"
	FormStatusLocked     FormStatus = "LOCKED"
	FormStatusSubmitted  FormStatus = "SUBMITTED"
	FormStatusCompleted  FormStatus = "COMPLETED"
)

// IsFinal reports whether the form has left the applicant's hands
func (s FormStatus) IsFinal() bool {
	return s == FormStatusSubmitted || s == FormStatusCompleted
}

// ApplicationForm represents the APPLICATION_FORM table
type ApplicationForm struct {
	ID             string     `db:"ID" json:"id"`
	LeadID         string     `db:"LEAD_ID" json:"leadId"`
	Status         FormStatus `db:"STATUS" json:"status"`
	LinkExpiresAt  *int64     `db:"LINK_EXPIRES_AT" json:"linkExpiresAt,omitempty"`
	IPAddress      *string    `db:"IP_ADDRESS" json:"ipAddress,omitempty"`
	UserAgent      *string    `db:"USER_AGENT" json:"userAgent,omitempty"`
	AccessCodeHash *string    `db:"ACCESS_CODE_HASH" json:"-"`
	CreatedTime    int64      `db:"CREATED_TIME" json:"createdTime"`
	UpdatedTime    int64      `db:"UPDATED_TIME" json:"updatedTime"`
}

// AttemptType distinguishes applicant code entry from staff resets
type AttemptType string

const (
	AttemptTypeAccessCode  AttemptType = "ACCESS_CODE"
	AttemptTypeStaffUnlock AttemptType = "STAFF_UNLOCK"
)

// UnlockAttempt represents one row of APPLICATION_FORM_UNLOCK_ATTEMPT. Rows are only ever inserted.
type UnlockAttempt struct {
	ID                string       `db:"ID" json:"id"`
	ApplicationFormID string       `db:"APPLICATION_FORM_ID" json:"applicationFormId"`
	Type              AttemptType  `db:"ATTEMPT_TYPE" json:"type"`
	Success           bool         `db:"SUCCESS" json:"success"`
	Result            AccessResult `db:"RESULT" json:"result"`
	ActorUserID       *string      `db:"ACTOR_USER_ID" json:"actorUserId,omitempty"`
	Timestamp         int64        `db:"ATTEMPT_TIME" json:"timestamp"`
}

// AccessResult is the outcome of an access code verification
type AccessResult string

const (
	AccessResultOK          AccessResult = "ok"
	AccessResultInvalidCode AccessResult = "invalid_code"
	AccessResultLinkExpired AccessResult = "link_expired"
	AccessResultNotFound    AccessResult = "not_found"
)

// VerifyAccessRequest is the anonymous code check payload. AccessCodeHash is computed by the client.
type VerifyAccessRequest struct {
	ApplicationFormID string `json:"-"`
	LeadID            string `json:"leadId" binding:"required"`
	AccessCodeHash    string `json:"accessCodeHash" binding:"required"`
}

// VerifyAccessResult is returned for every attempt, successful or not
type VerifyAccessResult struct {
	Result            AccessResult `json:"result"`
	ApplicationFormID string       `json:"applicationFormId"`
	LinkExpiresAt     *int64       `json:"linkExpiresAt,omitempty"`
}

// UnlockRequest is the staff reset payload
type UnlockRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// IssueAccessCodeRequest binds a new code hash to the form
type IssueAccessCodeRequest struct {
	AccessCodeHash string `json:"accessCodeHash" binding:"required"`
}

// UnlockHistoryResponse lists attempts oldest first
type UnlockHistoryResponse struct {
	Data  []UnlockAttempt `json:"data"`
	Total int             `json:"total"`
}
