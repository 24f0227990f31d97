package audit

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadflow/consent-service/internal/audit/model"
	"github.com/leadflow/consent-service/internal/system/stores/storetest"
)

func TestCreateAuditLog_EncodesMetadata(t *testing.T) {
	client, sqlMock := storetest.NewClient(t)
	s := NewAuditStore(client)

	sqlMock.ExpectBegin()
	sqlMock.ExpectExec(regexp.QuoteMeta("INSERT INTO AUDIT_LOG")).
		WithArgs("log-1", "APPLICATION_FORM", "form-1", "APPLICATION_FORM_UNLOCKED", "admin-1",
			`{"reason":"client called","previousStatus":"LOCKED","newStatus":"IN_PROGRESS"}`, int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	sqlMock.ExpectCommit()

	tx, err := client.BeginTx(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.CreateAuditLog(tx, &model.AuditLog{
		ID: "log-1", EntityType: model.EntityApplicationForm, EntityID: "form-1",
		Action: model.ActionFormUnlocked, ActorUserID: "admin-1", CreatedTime: 42,
		Metadata: model.AuditMetadata{Reason: "client called", PreviousStatus: "LOCKED", NewStatus: "IN_PROGRESS"},
	}))
	require.NoError(t, tx.Commit())
}

func TestListAuditLogs_DecodesMetadata(t *testing.T) {
	client, sqlMock := storetest.NewClient(t)
	s := NewAuditStore(client)

	sqlMock.ExpectQuery(regexp.QuoteMeta("FROM AUDIT_LOG WHERE ENTITY_TYPE = ? AND ENTITY_ID = ?")).
		WithArgs("APPLICATION_FORM", "form-1").
		WillReturnRows(sqlmock.NewRows([]string{"ID", "ENTITY_TYPE", "ENTITY_ID", "ACTION", "ACTOR_USER_ID", "METADATA", "CREATED_TIME"}).
			AddRow("log-1", "APPLICATION_FORM", "form-1", "APPLICATION_FORM_UNLOCKED", "admin-1", `{"reason":"r","legacy":1}`, int64(7)))

	logs, err := s.ListAuditLogs(context.Background(), model.EntityApplicationForm, "form-1")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "r", logs[0].Metadata.Reason)
	assert.Equal(t, model.ActionFormUnlocked, logs[0].Action)
}

func TestListNotesByLead(t *testing.T) {
	client, sqlMock := storetest.NewClient(t)
	s := NewAuditStore(client)

	sqlMock.ExpectQuery(regexp.QuoteMeta("FROM LEAD_NOTE WHERE LEAD_ID = ?")).
		WithArgs("lead-1").
		WillReturnRows(sqlmock.NewRows([]string{"ID", "LEAD_ID", "CONTENT", "NOTE_TYPE", "CREATED_BY_USER_ID", "CREATED_TIME"}).
			AddRow("note-1", "lead-1", "Application ready for review", "READY_FOR_REVIEW", nil, int64(1)))

	notes, err := s.ListNotesByLead(context.Background(), "lead-1")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Nil(t, notes[0].CreatedByUserID)
	assert.Equal(t, model.NoteTypeReadyForReview, notes[0].NoteType)
}

func TestAuditService_RejectsUnknownEntityType(t *testing.T) {
	registry, _ := storetest.NewRegistry(t)
	registry.Audit = NewAuditStore(registry.DBClient())

	_, serr := newAuditService(registry).ListAuditLogs(context.Background(), "LEAD", "x")
	require.NotNil(t, serr)
	assert.Equal(t, "validation_error", serr.Error)
}
