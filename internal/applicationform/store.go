package applicationform

import (
	"context"
	"errors"
	"fmt"

	"github.com/leadflow/consent-service/internal/applicationform/model"
	dbmodel "github.com/leadflow/consent-service/internal/system/database/model"
	"github.com/leadflow/consent-service/internal/system/database/provider"
	dbutils "github.com/leadflow/consent-service/internal/system/database/utils"
)

// ErrStatusChanged is returned when a conditional status update matched no row.
var ErrStatusChanged = errors.New("application form status changed concurrently")

// DBQuery objects for all application form operations
var (
	QueryGetFormByID = dbmodel.DBQuery{
		ID: "GET_APPLICATION_FORM_BY_ID",
		Query: "SELECT ID, LEAD_ID, STATUS, LINK_EXPIRES_AT, IP_ADDRESS, USER_AGENT, ACCESS_CODE_HASH, " +
			"CREATED_TIME, UPDATED_TIME FROM APPLICATION_FORM WHERE ID = ?",
	}

	QueryUpdateClientMeta = dbmodel.DBQuery{
		ID:    "UPDATE_APPLICATION_FORM_CLIENT_META",
		Query: "UPDATE APPLICATION_FORM SET IP_ADDRESS = ?, USER_AGENT = ?, UPDATED_TIME = ? WHERE ID = ?",
	}

	// Guarded by the previous status so two concurrent unlocks cannot both apply.
	QueryUpdateStatus = dbmodel.DBQuery{
		ID: "UPDATE_APPLICATION_FORM_STATUS",
		Query: "UPDATE APPLICATION_FORM SET STATUS = ?, LINK_EXPIRES_AT = ?, UPDATED_TIME = ? " +
			"WHERE ID = ? AND STATUS = ?",
	}

	QuerySetAccessCode = dbmodel.DBQuery{
		ID: "SET_APPLICATION_FORM_ACCESS_CODE",
		Query: "UPDATE APPLICATION_FORM SET ACCESS_CODE_HASH = ?, LINK_EXPIRES_AT = ?, UPDATED_TIME = ? " +
			"WHERE ID = ?",
	}

	QueryInsertUnlockAttempt = dbmodel.DBQuery{
		ID: "INSERT_APPLICATION_FORM_UNLOCK_ATTEMPT",
		Query: "INSERT INTO APPLICATION_FORM_UNLOCK_ATTEMPT " +
			"(ID, APPLICATION_FORM_ID, ATTEMPT_TYPE, SUCCESS, RESULT, ACTOR_USER_ID, ATTEMPT_TIME) " +
			"VALUES (?, ?, ?, ?, ?, ?, ?)",
	}

	QueryListUnlockAttempts = dbmodel.DBQuery{
		ID: "LIST_APPLICATION_FORM_UNLOCK_ATTEMPTS",
		Query: "SELECT ID, APPLICATION_FORM_ID, ATTEMPT_TYPE, SUCCESS, RESULT, ACTOR_USER_ID, ATTEMPT_TIME " +
			"FROM APPLICATION_FORM_UNLOCK_ATTEMPT WHERE APPLICATION_FORM_ID = ? ORDER BY SEQ ASC",
	}
)

// ApplicationFormStore defines the data access operations for application forms
type ApplicationFormStore interface {
	GetByID(ctx context.Context, formID string) (*model.ApplicationForm, error)
	ListUnlockHistory(ctx context.Context, formID string) ([]model.UnlockAttempt, error)

	UpdateClientMeta(tx dbmodel.TxInterface, formID string, ipAddress, userAgent *string, updatedTime int64) error
	UpdateStatus(tx dbmodel.TxInterface, formID string, from, to model.FormStatus, linkExpiresAt *int64, updatedTime int64) error
	SetAccessCode(tx dbmodel.TxInterface, formID, bindingHash string, linkExpiresAt, updatedTime int64) error
	AppendUnlockAttempt(tx dbmodel.TxInterface, attempt *model.UnlockAttempt) error
}

type store struct {
	dbClient provider.DBClientInterface
}

// NewApplicationFormStore creates a store over dbClient. Exported for the consent recorder, which writes
// client metadata inside its own transaction.
func NewApplicationFormStore(dbClient provider.DBClientInterface) ApplicationFormStore {
	return &store{dbClient: dbClient}
}

func (s *store) GetByID(ctx context.Context, formID string) (*model.ApplicationForm, error) {
	rows, err := s.dbClient.Query(ctx, QueryGetFormByID, formID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	row := rows[0]
	return &model.ApplicationForm{
		ID:             dbutils.StringValue(row, "ID"),
		LeadID:         dbutils.StringValue(row, "LEAD_ID"),
		Status:         model.FormStatus(dbutils.StringValue(row, "STATUS")),
		LinkExpiresAt:  dbutils.NullableInt64(row, "LINK_EXPIRES_AT"),
		IPAddress:      dbutils.NullableString(row, "IP_ADDRESS"),
		UserAgent:      dbutils.NullableString(row, "USER_AGENT"),
		AccessCodeHash: dbutils.NullableString(row, "ACCESS_CODE_HASH"),
		CreatedTime:    dbutils.Int64Value(row, "CREATED_TIME"),
		UpdatedTime:    dbutils.Int64Value(row, "UPDATED_TIME"),
	}, nil
}

func (s *store) ListUnlockHistory(ctx context.Context, formID string) ([]model.UnlockAttempt, error) {
	rows, err := s.dbClient.Query(ctx, QueryListUnlockAttempts, formID)
	if err != nil {
		return nil, err
	}
	attempts := make([]model.UnlockAttempt, 0, len(rows))
	for _, row := range rows {
		attempts = append(attempts, model.UnlockAttempt{
			ID:                dbutils.StringValue(row, "ID"),
			ApplicationFormID: dbutils.StringValue(row, "APPLICATION_FORM_ID"),
			Type:              model.AttemptType(dbutils.StringValue(row, "ATTEMPT_TYPE")),
			Success:           dbutils.BoolValue(row, "SUCCESS"),
			Result:            model.AccessResult(dbutils.StringValue(row, "RESULT")),
			ActorUserID:       dbutils.NullableString(row, "ACTOR_USER_ID"),
			Timestamp:         dbutils.Int64Value(row, "ATTEMPT_TIME"),
		})
	}
	return attempts, nil
}

func (s *store) UpdateClientMeta(tx dbmodel.TxInterface, formID string, ipAddress, userAgent *string, updatedTime int64) error {
	_, err := tx.Exec(QueryUpdateClientMeta.Query, ipAddress, userAgent, updatedTime, formID)
	return err
}

func (s *store) UpdateStatus(tx dbmodel.TxInterface, formID string, from, to model.FormStatus, linkExpiresAt *int64, updatedTime int64) error {
	result, err := tx.Exec(QueryUpdateStatus.Query, string(to), linkExpiresAt, updatedTime, formID, string(from))
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrStatusChanged
	}
	return nil
}

func (s *store) SetAccessCode(tx dbmodel.TxInterface, formID, bindingHash string, linkExpiresAt, updatedTime int64) error {
	_, err := tx.Exec(QuerySetAccessCode.Query, bindingHash, linkExpiresAt, updatedTime, formID)
	return err
}

func (s *store) AppendUnlockAttempt(tx dbmodel.TxInterface, a *model.UnlockAttempt) error {
	_, err := tx.Exec(QueryInsertUnlockAttempt.Query,
		a.ID, a.ApplicationFormID, string(a.Type), a.Success, string(a.Result), a.ActorUserID, a.Timestamp)
	return err
}
