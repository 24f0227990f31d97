// Package audit writes lead notes and staff audit log entries alongside the transactions that cause them.
package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/leadflow/consent-service/internal/audit/model"
	dbmodel "github.com/leadflow/consent-service/internal/system/database/model"
	"github.com/leadflow/consent-service/internal/system/database/provider"
	dbutils "github.com/leadflow/consent-service/internal/system/database/utils"
)

var (
	QueryCreateLeadNote = dbmodel.DBQuery{
		ID: "CREATE_LEAD_NOTE",
		Query: "INSERT INTO LEAD_NOTE (ID, LEAD_ID, CONTENT, NOTE_TYPE, CREATED_BY_USER_ID, CREATED_TIME) " +
			"VALUES (?, ?, ?, ?, ?, ?)",
	}

	QueryCreateAuditLog = dbmodel.DBQuery{
		ID: "CREATE_AUDIT_LOG",
		Query: "INSERT INTO AUDIT_LOG (ID, ENTITY_TYPE, ENTITY_ID, ACTION, ACTOR_USER_ID, METADATA, CREATED_TIME) " +
			"VALUES (?, ?, ?, ?, ?, ?, ?)",
	}

	QueryListNotesByLead = dbmodel.DBQuery{
		ID: "LIST_LEAD_NOTES_BY_LEAD",
		Query: "SELECT ID, LEAD_ID, CONTENT, NOTE_TYPE, CREATED_BY_USER_ID, CREATED_TIME FROM LEAD_NOTE " +
			"WHERE LEAD_ID = ? ORDER BY CREATED_TIME DESC",
	}

	QueryListAuditLogsByEntity = dbmodel.DBQuery{
		ID: "LIST_AUDIT_LOGS_BY_ENTITY",
		Query: "SELECT ID, ENTITY_TYPE, ENTITY_ID, ACTION, ACTOR_USER_ID, METADATA, CREATED_TIME FROM AUDIT_LOG " +
			"WHERE ENTITY_TYPE = ? AND ENTITY_ID = ? ORDER BY CREATED_TIME DESC",
	}
)

// AuditStore defines the data access operations for notes and audit logs
type AuditStore interface {
	CreateNote(tx dbmodel.TxInterface, note *model.LeadNote) error
	CreateAuditLog(tx dbmodel.TxInterface, entry *model.AuditLog) error
	ListNotesByLead(ctx context.Context, leadID string) ([]model.LeadNote, error)
	ListAuditLogs(ctx context.Context, entityType model.EntityType, entityID string) ([]model.AuditLog, error)
}

type store struct {
	dbClient provider.DBClientInterface
}

// NewAuditStore creates an audit store over dbClient
func NewAuditStore(dbClient provider.DBClientInterface) AuditStore {
	return &store{dbClient: dbClient}
}

func (s *store) CreateNote(tx dbmodel.TxInterface, note *model.LeadNote) error {
	_, err := tx.Exec(QueryCreateLeadNote.Query,
		note.ID, note.LeadID, note.Content, string(note.NoteType), note.CreatedByUserID, note.CreatedTime)
	return err
}

func (s *store) CreateAuditLog(tx dbmodel.TxInterface, entry *model.AuditLog) error {
	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode audit metadata: %w", err)
	}
	_, err = tx.Exec(QueryCreateAuditLog.Query,
		entry.ID, string(entry.EntityType), entry.EntityID, string(entry.Action), entry.ActorUserID,
		string(metadata), entry.CreatedTime)
	return err
}

func (s *store) ListNotesByLead(ctx context.Context, leadID string) ([]model.LeadNote, error) {
	rows, err := s.dbClient.Query(ctx, QueryListNotesByLead, leadID)
	if err != nil {
		return nil, err
	}
	notes := make([]model.LeadNote, 0, len(rows))
	for _, row := range rows {
		notes = append(notes, model.LeadNote{
			ID:              dbutils.StringValue(row, "ID"),
			LeadID:          dbutils.StringValue(row, "LEAD_ID"),
			Content:         dbutils.StringValue(row, "CONTENT"),
			NoteType:        model.NoteType(dbutils.StringValue(row, "NOTE_TYPE")),
			CreatedByUserID: dbutils.NullableString(row, "CREATED_BY_USER_ID"),
			CreatedTime:     dbutils.Int64Value(row, "CREATED_TIME"),
		})
	}
	return notes, nil
}

func (s *store) ListAuditLogs(ctx context.Context, entityType model.EntityType, entityID string) ([]model.AuditLog, error) {
	rows, err := s.dbClient.Query(ctx, QueryListAuditLogsByEntity, string(entityType), entityID)
	if err != nil {
		return nil, err
	}
	logs := make([]model.AuditLog, 0, len(rows))
	for _, row := range rows {
		entry := model.AuditLog{
			ID:          dbutils.StringValue(row, "ID"),
			EntityType:  model.EntityType(dbutils.StringValue(row, "ENTITY_TYPE")),
			EntityID:    dbutils.StringValue(row, "ENTITY_ID"),
			Action:      model.Action(dbutils.StringValue(row, "ACTION")),
			ActorUserID: dbutils.StringValue(row, "ACTOR_USER_ID"),
			CreatedTime: dbutils.Int64Value(row, "CREATED_TIME"),
		}
		if raw := dbutils.StringValue(row, "METADATA"); raw != "" {
			// Metadata written by older releases may carry fields this struct does not know about.
			_ = json.Unmarshal([]byte(raw), &entry.Metadata)
		}
		logs = append(logs, entry)
	}
	return logs, nil
}
