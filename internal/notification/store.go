package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/leadflow/consent-service/internal/notification/model"
	dbmodel "github.com/leadflow/consent-service/internal/system/database/model"
	"github.com/leadflow/consent-service/internal/system/database/provider"
	dbutils "github.com/leadflow/consent-service/internal/system/database/utils"
)

const logColumns = "ID, APPLICATION_FORM_ID, LEAD_ID, EVENT_TYPE, STATUS, PAYLOAD, SENT_TO, NOTE_ID, ATTEMPTS, " +
	"LAST_ERROR, CREATED_TIME, UPDATED_TIME"

// DBQuery objects for all notification log operations
var (
	QueryGetLogByFormAndEvent = dbmodel.DBQuery{
		ID:    "GET_NOTIFICATION_LOG_BY_FORM_AND_EVENT",
		Query: "SELECT " + logColumns + " FROM NOTIFICATION_LOG WHERE APPLICATION_FORM_ID = ? AND EVENT_TYPE = ?",
	}

	QueryGetLogByID = dbmodel.DBQuery{
		ID:    "GET_NOTIFICATION_LOG_BY_ID",
		Query: "SELECT " + logColumns + " FROM NOTIFICATION_LOG WHERE ID = ?",
	}

	QueryCreateLog = dbmodel.DBQuery{
		ID: "CREATE_NOTIFICATION_LOG",
		Query: "INSERT INTO NOTIFICATION_LOG (" + logColumns + ") " +
			"VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
	}

	QueryUpdateDelivery = dbmodel.DBQuery{
		ID: "UPDATE_NOTIFICATION_DELIVERY",
		Query: "UPDATE NOTIFICATION_LOG SET STATUS = ?, SENT_TO = ?, ATTEMPTS = ?, LAST_ERROR = ?, UPDATED_TIME = ? " +
			"WHERE ID = ?",
	}

	QueryListUndeliveredLogs = dbmodel.DBQuery{
		ID: "LIST_UNDELIVERED_NOTIFICATION_LOGS",
		Query: "SELECT " + logColumns + " FROM NOTIFICATION_LOG " +
			"WHERE STATUS = ? OR (STATUS = ? AND UPDATED_TIME <= ?) ORDER BY UPDATED_TIME DESC LIMIT ?",
	}
)

// NotificationLogStore defines the data access operations for notification logs
type NotificationLogStore interface {
	GetByFormAndEvent(ctx context.Context, formID string, eventType model.EventType) (*model.NotificationLog, error)
	GetByID(ctx context.Context, id string) (*model.NotificationLog, error)
	Create(tx dbmodel.TxInterface, entry *model.NotificationLog) error
	UpdateDelivery(ctx context.Context, entry *model.NotificationLog) error
	ListUndelivered(ctx context.Context, staleBefore int64, limit int) ([]model.NotificationLog, error)
}

type store struct {
	dbClient provider.DBClientInterface
}

func newNotificationLogStore(dbClient provider.DBClientInterface) NotificationLogStore {
	return &store{dbClient: dbClient}
}

func (s *store) GetByFormAndEvent(ctx context.Context, formID string, eventType model.EventType) (*model.NotificationLog, error) {
	return s.getOne(ctx, QueryGetLogByFormAndEvent, formID, string(eventType))
}

func (s *store) GetByID(ctx context.Context, id string) (*model.NotificationLog, error) {
	return s.getOne(ctx, QueryGetLogByID, id)
}

func (s *store) getOne(ctx context.Context, query dbmodel.DBQuery, args ...interface{}) (*model.NotificationLog, error) {
	rows, err := s.dbClient.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	entry := mapToNotificationLog(rows[0])
	return &entry, nil
}

func (s *store) Create(tx dbmodel.TxInterface, e *model.NotificationLog) error {
	_, err := tx.Exec(QueryCreateLog.Query,
		e.ID, e.ApplicationFormID, e.LeadID, string(e.EventType), string(e.Status), string(e.Payload),
		e.SentTo, e.NoteID, e.Attempts, e.LastError, e.CreatedTime, e.UpdatedTime)
	return err
}

// UpdateDelivery persists the delivery outcome fields of entry
func (s *store) UpdateDelivery(ctx context.Context, e *model.NotificationLog) error {
	affected, err := s.dbClient.Execute(ctx, QueryUpdateDelivery,
		string(e.Status), e.SentTo, e.Attempts, e.LastError, e.UpdatedTime, e.ID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("notification log %s not found", e.ID)
	}
	return nil
}

// ListUndelivered returns FAILED logs and SENT logs last touched at or before staleBefore
func (s *store) ListUndelivered(ctx context.Context, staleBefore int64, limit int) ([]model.NotificationLog, error) {
	rows, err := s.dbClient.Query(ctx, QueryListUndeliveredLogs,
		string(model.DeliveryStatusFailed), string(model.DeliveryStatusSent), staleBefore, limit)
	if err != nil {
		return nil, err
	}
	logs := make([]model.NotificationLog, 0, len(rows))
	for _, row := range rows {
		logs = append(logs, mapToNotificationLog(row))
	}
	return logs, nil
}

func mapToNotificationLog(row map[string]interface{}) model.NotificationLog {
	return model.NotificationLog{
		ID:                dbutils.StringValue(row, "ID"),
		ApplicationFormID: dbutils.StringValue(row, "APPLICATION_FORM_ID"),
		LeadID:            dbutils.StringValue(row, "LEAD_ID"),
		EventType:         model.EventType(dbutils.StringValue(row, "EVENT_TYPE")),
		Status:            model.DeliveryStatus(dbutils.StringValue(row, "STATUS")),
		Payload:           json.RawMessage(dbutils.StringValue(row, "PAYLOAD")),
		SentTo:            dbutils.NullableString(row, "SENT_TO"),
		NoteID:            dbutils.NullableString(row, "NOTE_ID"),
		Attempts:          int(dbutils.Int64Value(row, "ATTEMPTS")),
		LastError:         dbutils.NullableString(row, "LAST_ERROR"),
		CreatedTime:       dbutils.Int64Value(row, "CREATED_TIME"),
		UpdatedTime:       dbutils.Int64Value(row, "UPDATED_TIME"),
	}
}
