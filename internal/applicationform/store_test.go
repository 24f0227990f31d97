package applicationform

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadflow/consent-service/internal/applicationform/model"
	"github.com/leadflow/consent-service/internal/system/stores/storetest"
)

func TestStore_GetByID(t *testing.T) {
	client, sqlMock := storetest.NewClient(t)
	s := NewApplicationFormStore(client)

	sqlMock.ExpectQuery(regexp.QuoteMeta("FROM APPLICATION_FORM WHERE ID = ?")).
		WithArgs("form-1").
		WillReturnRows(sqlmock.NewRows([]string{"ID", "LEAD_ID", "STATUS", "LINK_EXPIRES_AT", "IP_ADDRESS",
			"USER_AGENT", "ACCESS_CODE_HASH", "CREATED_TIME", "UPDATED_TIME"}).
			AddRow("form-1", "lead-1", "LOCKED", "1700000000000", nil, "Mozilla/5.0", "$2a$04$x", int64(1), int64(2)))

	form, err := s.GetByID(context.Background(), "form-1")
	require.NoError(t, err)
	assert.Equal(t, model.FormStatusLocked, form.Status)
	assert.Equal(t, int64(1_700_000_000_000), *form.LinkExpiresAt)
	assert.Nil(t, form.IPAddress)
	assert.Equal(t, "Mozilla/5.0", *form.UserAgent)
}

func TestStore_GetByIDMissing(t *testing.T) {
	client, sqlMock := storetest.NewClient(t)
	s := NewApplicationFormStore(client)

	sqlMock.ExpectQuery(regexp.QuoteMeta("FROM APPLICATION_FORM WHERE ID = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"ID"}))

	form, err := s.GetByID(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, form)
}

func TestStore_UpdateStatusDetectsConcurrentChange(t *testing.T) {
	client, sqlMock := storetest.NewClient(t)
	s := NewApplicationFormStore(client)
	expires := int64(99)

	sqlMock.ExpectBegin()
	sqlMock.ExpectExec(regexp.QuoteMeta("UPDATE APPLICATION_FORM SET STATUS = ?")).
		WithArgs("IN_PROGRESS", expires, int64(5), "form-1", "LOCKED").
		WillReturnResult(sqlmock.NewResult(0, 0))
	sqlMock.ExpectRollback()

	tx, err := client.BeginTx(context.Background())
	require.NoError(t, err)
	err = s.UpdateStatus(tx, "form-1", model.FormStatusLocked, model.FormStatusInProgress, &expires, 5)
	assert.ErrorIs(t, err, ErrStatusChanged)
	require.NoError(t, tx.Rollback())
}

func TestStore_AppendUnlockAttemptIsInsertOnly(t *testing.T) {
	client, sqlMock := storetest.NewClient(t)
	s := NewApplicationFormStore(client)

	sqlMock.ExpectBegin()
	sqlMock.ExpectExec(regexp.QuoteMeta("INSERT INTO APPLICATION_FORM_UNLOCK_ATTEMPT")).
		WithArgs("a1", "form-1", "ACCESS_CODE", false, "invalid_code", nil, int64(7)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	sqlMock.ExpectCommit()

	tx, err := client.BeginTx(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.AppendUnlockAttempt(tx, &model.UnlockAttempt{
		ID: "a1", ApplicationFormID: "form-1", Type: model.AttemptTypeAccessCode,
		Result: model.AccessResultInvalidCode, Timestamp: 7,
	}))
	require.NoError(t, tx.Commit())
}

func TestStore_ListUnlockHistoryOrdered(t *testing.T) {
	client, sqlMock := storetest.NewClient(t)
	s := NewApplicationFormStore(client)

	sqlMock.ExpectQuery(regexp.QuoteMeta("WHERE APPLICATION_FORM_ID = ? ORDER BY SEQ ASC")).
		WithArgs("form-1").
		WillReturnRows(sqlmock.NewRows([]string{"ID", "APPLICATION_FORM_ID", "ATTEMPT_TYPE", "SUCCESS", "RESULT", "ACTOR_USER_ID", "ATTEMPT_TIME"}).
			AddRow("a1", "form-1", "ACCESS_CODE", int64(0), "invalid_code", nil, int64(1)).
			AddRow("a2", "form-1", "STAFF_UNLOCK", int64(1), "ok", "sup-1", int64(2)))

	attempts, err := s.ListUnlockHistory(context.Background(), "form-1")
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.False(t, attempts[0].Success)
	assert.True(t, attempts[1].Success)
	assert.Equal(t, "sup-1", *attempts[1].ActorUserID)
}
