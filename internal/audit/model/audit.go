package model

// NoteType classifies a lead note written by this service
type NoteType string

const (
	NoteTypeFormUnlocked   NoteType = "FORM_UNLOCKED"
	NoteTypeReadyForReview NoteType = "READY_FOR_REVIEW"
)

// Action names an audited staff action
type Action string

const (
	ActionFormUnlocked     Action = "APPLICATION_FORM_UNLOCKED"
	ActionAccessCodeIssued Action = "ACCESS_CODE_ISSUED"
	ActionRedelivered      Action = "NOTIFICATION_REDELIVERED"
)

// EntityType names the entity an audit log refers to
type EntityType string

const (
	EntityApplicationForm EntityType = "APPLICATION_FORM"
	EntityNotificationLog EntityType = "NOTIFICATION_LOG"
)

// LeadNote represents the LEAD_NOTE table
type LeadNote struct {
	ID              string   `db:"ID" json:"id"`
	LeadID          string   `db:"LEAD_ID" json:"leadId"`
	Content         string   `db:"CONTENT" json:"content"`
	NoteType        NoteType `db:"NOTE_TYPE" json:"noteType"`
	CreatedByUserID *string  `db:"CREATED_BY_USER_ID" json:"createdByUserId,omitempty"`
	CreatedTime     int64    `db:"CREATED_TIME" json:"createdTime"`
}

// AuditMetadata holds the known detail fields of an audit entry. Unset fields are omitted.
type AuditMetadata struct {
	Reason         string `json:"reason,omitempty"`
	PreviousStatus string `json:"previousStatus,omitempty"`
	NewStatus      string `json:"newStatus,omitempty"`
	LinkExpiresAt  *int64 `json:"linkExpiresAt,omitempty"`
	Attempts       int    `json:"attempts,omitempty"`
}

// AuditLog represents the AUDIT_LOG table
type AuditLog struct {
	ID          string        `db:"ID" json:"id"`
	EntityType  EntityType    `db:"ENTITY_TYPE" json:"entityType"`
	EntityID    string        `db:"ENTITY_ID" json:"entityId"`
	Action      Action        `db:"ACTION" json:"action"`
	ActorUserID string        `db:"ACTOR_USER_ID" json:"actorUserId"`
	Metadata    AuditMetadata `db:"-" json:"metadata"`
	CreatedTime int64         `db:"CREATED_TIME" json:"createdTime"`
}
