package notification

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadflow/consent-service/internal/notification/model"
	"github.com/leadflow/consent-service/internal/system/stores/storetest"
)

var logRowColumns = []string{"ID", "APPLICATION_FORM_ID", "LEAD_ID", "EVENT_TYPE", "STATUS", "PAYLOAD", "SENT_TO",
	"NOTE_ID", "ATTEMPTS", "LAST_ERROR", "CREATED_TIME", "UPDATED_TIME"}

func TestStore_GetByFormAndEvent(t *testing.T) {
	client, sqlMock := storetest.NewClient(t)
	s := newNotificationLogStore(client)

	sqlMock.ExpectQuery(regexp.QuoteMeta("WHERE APPLICATION_FORM_ID = ? AND EVENT_TYPE = ?")).
		WithArgs("form-1", "READY_FOR_REVIEW").
		WillReturnRows(sqlmock.NewRows(logRowColumns).
			AddRow("log-1", "form-1", "lead-1", "READY_FOR_REVIEW", "FAILED", `{"event":"application.ready_for_review"}`,
				"https://hooks.example.com", "note-1", int64(3), "timeout", int64(10), int64(20)))

	entry, err := s.GetByFormAndEvent(context.Background(), "form-1", model.EventTypeReadyForReview)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, model.DeliveryStatusFailed, entry.Status)
	assert.JSONEq(t, `{"event":"application.ready_for_review"}`, string(entry.Payload))
	assert.Equal(t, 3, entry.Attempts)
	assert.Equal(t, "timeout", *entry.LastError)
	assert.Equal(t, "note-1", *entry.NoteID)
}

func TestStore_GetByIDMissing(t *testing.T) {
	client, sqlMock := storetest.NewClient(t)
	s := newNotificationLogStore(client)

	sqlMock.ExpectQuery(regexp.QuoteMeta("FROM NOTIFICATION_LOG WHERE ID = ?")).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows(logRowColumns))

	entry, err := s.GetByID(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestStore_Create(t *testing.T) {
	client, sqlMock := storetest.NewClient(t)
	s := newNotificationLogStore(client)

	noteID := "note-1"
	entry := &model.NotificationLog{
		ID: "log-1", ApplicationFormID: "form-1", LeadID: "lead-1", EventType: model.EventTypeReadyForReview,
		Status: model.DeliveryStatusSent, Payload: []byte(`{}`), NoteID: &noteID, CreatedTime: 10, UpdatedTime: 10,
	}

	sqlMock.ExpectBegin()
	sqlMock.ExpectExec(regexp.QuoteMeta("INSERT INTO NOTIFICATION_LOG")).
		WithArgs("log-1", "form-1", "lead-1", "READY_FOR_REVIEW", "SENT", "{}", nil, "note-1", 0, nil, int64(10), int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	sqlMock.ExpectCommit()

	tx, err := client.BeginTx(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Create(tx, entry))
	require.NoError(t, tx.Commit())
}

func TestStore_UpdateDelivery(t *testing.T) {
	client, sqlMock := storetest.NewClient(t)
	s := newNotificationLogStore(client)

	target := "kafka://broker:9092/events"
	entry := &model.NotificationLog{ID: "log-1", Status: model.DeliveryStatusDelivered, SentTo: &target, Attempts: 2, UpdatedTime: 30}

	sqlMock.ExpectExec(regexp.QuoteMeta("UPDATE NOTIFICATION_LOG SET STATUS = ?")).
		WithArgs("DELIVERED", target, 2, nil, int64(30), "log-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.UpdateDelivery(context.Background(), entry))

	sqlMock.ExpectExec(regexp.QuoteMeta("UPDATE NOTIFICATION_LOG SET STATUS = ?")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.Error(t, s.UpdateDelivery(context.Background(), entry))
}

func TestStore_ListUndelivered(t *testing.T) {
	client, sqlMock := storetest.NewClient(t)
	s := newNotificationLogStore(client)

	sqlMock.ExpectQuery(regexp.QuoteMeta("WHERE STATUS = ? OR (STATUS = ? AND UPDATED_TIME <= ?) ORDER BY UPDATED_TIME DESC LIMIT ?")).
		WithArgs("FAILED", "SENT", int64(500), 100).
		WillReturnRows(sqlmock.NewRows(logRowColumns).
			AddRow("log-1", "form-1", "lead-1", "READY_FOR_REVIEW", "FAILED", "{}", nil, nil, int64(3), "boom", int64(1), int64(2)).
			AddRow("log-2", "form-2", "lead-2", "READY_FOR_REVIEW", "FAILED", "{}", nil, nil, int64(3), "boom", int64(1), int64(1)))

	logs, err := s.ListUndelivered(context.Background(), 500, 100)
	require.NoError(t, err)
	assert.Len(t, logs, 2)
	assert.Nil(t, logs[0].SentTo)
}
