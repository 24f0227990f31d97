package model

import (
	"encoding/json"
)

// EventType names a dispatched event
type EventType string

const (
	EventTypeReadyForReview EventType = "READY_FOR_REVIEW"
)

// EventName is the wire name of the ready-for-review event
const EventName = "application.ready_for_review"

// DeliveryStatus tracks a log row from SENT to DELIVERED or FAILED
type DeliveryStatus string

const (
	DeliveryStatusSent      DeliveryStatus = "SENT"
	DeliveryStatusDelivered DeliveryStatus = "DELIVERED"
	DeliveryStatusFailed    DeliveryStatus = "FAILED"
)

// NotificationLog represents the NOTIFICATION_LOG table, unique on (APPLICATION_FORM_ID, EVENT_TYPE)
type NotificationLog struct {
	ID                string          `db:"ID" json:"id"`
	ApplicationFormID string          `db:"APPLICATION_FORM_ID" json:"applicationFormId"`
	LeadID            string          `db:"LEAD_ID" json:"leadId"`
	EventType         EventType       `db:"EVENT_TYPE" json:"eventType"`
	Status            DeliveryStatus  `db:"STATUS" json:"status"`
	Payload           json.RawMessage `db:"PAYLOAD" json:"payload"`
	SentTo            *string         `db:"SENT_TO" json:"sentTo,omitempty"`
	NoteID            *string         `db:"NOTE_ID" json:"noteId,omitempty"`
	Attempts          int             `db:"ATTEMPTS" json:"attempts"`
	LastError         *string         `db:"LAST_ERROR" json:"lastError,omitempty"`
	CreatedTime       int64           `db:"CREATED_TIME" json:"createdTime"`
	UpdatedTime       int64           `db:"UPDATED_TIME" json:"updatedTime"`
}

// EventConsent is one recorded answer carried in the event
type EventConsent struct {
	ConsentTemplateID string `json:"consentTemplateId"`
	ConsentType       string `json:"consentType"`
	Version           int    `json:"version"`
	ConsentGiven      bool   `json:"consentGiven"`
	RecordedAt        int64  `json:"recordedAt"`
}

// ReadyForReviewEvent is the JSON body delivered to the external sink
type ReadyForReviewEvent struct {
	Event             string         `json:"event"`
	ApplicationFormID string         `json:"applicationFormId"`
	LeadID            string         `json:"leadId"`
	Consents          []EventConsent `json:"consents"`
	ClientIP          string         `json:"clientIp,omitempty"`
	UserAgent         string         `json:"userAgent,omitempty"`
}

// ListResponse lists notification logs
type ListResponse struct {
	Data  []NotificationLog `json:"data"`
	Total int               `json:"total"`
}
