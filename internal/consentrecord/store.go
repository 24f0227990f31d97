package consentrecord

import (
	"context"
	"strings"

	templatemodel "github.com/leadflow/consent-service/internal/consenttemplate/model"
	"github.com/leadflow/consent-service/internal/consentrecord/model"
	dbmodel "github.com/leadflow/consent-service/internal/system/database/model"
	"github.com/leadflow/consent-service/internal/system/database/provider"
	dbutils "github.com/leadflow/consent-service/internal/system/database/utils"
)

const recordColumns = "r.ID, r.APPLICATION_FORM_ID, r.CONSENT_TEMPLATE_ID, r.VERSION, r.LEAD_ID, r.CONSENT_TYPE, " +
	"r.CONSENT_GIVEN, r.CONSENT_METHOD, r.CONSENT_TEXT, r.HELP_TEXT_SNAPSHOT, r.IP_ADDRESS, r.USER_AGENT, " +
	"r.RECORDED_AT, r.CREATED_TIME, r.UPDATED_TIME"

// DBQuery objects for all consent record operations
var (
	// The unique key (APPLICATION_FORM_ID, CONSENT_TEMPLATE_ID, VERSION) turns a repeat submission into an update.
	// ID and CREATED_TIME keep their first values.
	QueryUpsertRecord = dbmodel.DBQuery{
		ID: "UPSERT_CONSENT_RECORD",
		Query: "INSERT INTO CONSENT_RECORD (ID, APPLICATION_FORM_ID, CONSENT_TEMPLATE_ID, VERSION, LEAD_ID, " +
			"CONSENT_TYPE, CONSENT_GIVEN, CONSENT_METHOD, CONSENT_TEXT, HELP_TEXT_SNAPSHOT, IP_ADDRESS, USER_AGENT, " +
			"RECORDED_AT, ACCESS_CODE_HASH, CREATED_TIME, UPDATED_TIME) " +
			"VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) " +
			"ON DUPLICATE KEY UPDATE CONSENT_GIVEN = VALUES(CONSENT_GIVEN), CONSENT_METHOD = VALUES(CONSENT_METHOD), " +
			"CONSENT_TEXT = VALUES(CONSENT_TEXT), HELP_TEXT_SNAPSHOT = VALUES(HELP_TEXT_SNAPSHOT), " +
			"IP_ADDRESS = VALUES(IP_ADDRESS), USER_AGENT = VALUES(USER_AGENT), RECORDED_AT = VALUES(RECORDED_AT), " +
			"ACCESS_CODE_HASH = VALUES(ACCESS_CODE_HASH), UPDATED_TIME = VALUES(UPDATED_TIME)",
	}

	QueryListRecordsByForm = dbmodel.DBQuery{
		ID: "LIST_CONSENT_RECORDS_BY_FORM",
		Query: "SELECT " + recordColumns + " FROM CONSENT_RECORD r WHERE r.APPLICATION_FORM_ID = ? " +
			"ORDER BY r.CONSENT_TYPE ASC, r.VERSION DESC",
	}

	// WHERE, ORDER BY and LIMIT are appended at runtime.
	QuerySearchRecords = dbmodel.DBQuery{
		ID: "SEARCH_CONSENT_RECORDS",
		Query: "SELECT " + recordColumns + ", l.FIRST_NAME, l.LAST_NAME, l.EMAIL " +
			"FROM CONSENT_RECORD r LEFT JOIN CRM_LEAD l ON l.ID = r.LEAD_ID",
	}

	QueryCountRecords = dbmodel.DBQuery{
		ID:    "COUNT_CONSENT_RECORDS",
		Query: "SELECT COUNT(*) AS TOTAL FROM CONSENT_RECORD r LEFT JOIN CRM_LEAD l ON l.ID = r.LEAD_ID",
	}
)

// sortColumns whitelists the ORDER BY expressions the export may use
var sortColumns = map[string]string{
	model.SortByRecordedAt:  "r.RECORDED_AT",
	model.SortByConsentType: "r.CONSENT_TYPE",
	model.SortByClientName:  "CONCAT(COALESCE(l.FIRST_NAME, ''), ' ', COALESCE(l.LAST_NAME, ''))",
}

// ConsentRecordStore defines the data access operations for consent records
type ConsentRecordStore interface {
	Upsert(tx dbmodel.TxInterface, record *model.ConsentRecord) error
	ListByForm(ctx context.Context, formID string) ([]model.ConsentRecord, error)
	Search(ctx context.Context, filter model.ExportFilter) ([]model.ExportRow, int, error)
}

type store struct {
	dbClient provider.DBClientInterface
}

func newConsentRecordStore(dbClient provider.DBClientInterface) ConsentRecordStore {
	return &store{dbClient: dbClient}
}

func (s *store) Upsert(tx dbmodel.TxInterface, r *model.ConsentRecord) error {
	_, err := tx.Exec(QueryUpsertRecord.Query,
		r.ID, r.ApplicationFormID, r.ConsentTemplateID, r.Version, r.LeadID, string(r.ConsentType),
		r.ConsentGiven, string(r.ConsentMethod), r.ConsentText, r.HelpTextSnapshot, r.IPAddress, r.UserAgent,
		r.RecordedAt, r.AccessCodeHash, r.CreatedTime, r.UpdatedTime)
	return err
}

func (s *store) ListByForm(ctx context.Context, formID string) ([]model.ConsentRecord, error) {
	rows, err := s.dbClient.Query(ctx, QueryListRecordsByForm, formID)
	if err != nil {
		return nil, err
	}
	records := make([]model.ConsentRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, mapToConsentRecord(row))
	}
	return records, nil
}

// Search returns one page of matching records and the total match count.
func (s *store) Search(ctx context.Context, f model.ExportFilter) ([]model.ExportRow, int, error) {
	where := buildWhere(f)

	countRows, err := s.dbClient.Query(ctx, QueryCountRecords.WithQuery(where.Apply(QueryCountRecords.Query)), where.Args()...)
	if err != nil {
		return nil, 0, err
	}
	total := 0
	if len(countRows) > 0 {
		total = int(dbutils.Int64Value(countRows[0], "TOTAL"))
	}

	orderBy, ok := sortColumns[f.SortBy]
	if !ok {
		orderBy = sortColumns[model.SortByRecordedAt]
	}
	query := dbutils.BuildOrderByQuery(where.Apply(QuerySearchRecords.Query), orderBy, f.Ascending)
	// Tie-break on ID so pages are stable.
	query = dbutils.BuildPaginationQuery(query+", r.ID ASC", f.Take, f.Skip)

	rows, err := s.dbClient.Query(ctx, QuerySearchRecords.WithQuery(query), where.Args()...)
	if err != nil {
		return nil, 0, err
	}

	result := make([]model.ExportRow, 0, len(rows))
	for _, row := range rows {
		name := strings.TrimSpace(dbutils.StringValue(row, "FIRST_NAME") + " " + dbutils.StringValue(row, "LAST_NAME"))
		result = append(result, model.ExportRow{
			ConsentRecord: mapToConsentRecord(row),
			ClientName:    name,
			ClientEmail:   dbutils.StringValue(row, "EMAIL"),
		})
	}
	return result, total, nil
}

func buildWhere(f model.ExportFilter) *dbutils.WhereBuilder {
	where := &dbutils.WhereBuilder{}
	if f.LeadID != "" {
		where.Add("r.LEAD_ID = ?", f.LeadID)
	}
	if f.ConsentType != "" {
		where.Add("r.CONSENT_TYPE = ?", string(f.ConsentType))
	}
	if f.ConsentMethod != "" {
		where.Add("r.CONSENT_METHOD = ?", string(f.ConsentMethod))
	}
	if f.Given != nil {
		where.Add("r.CONSENT_GIVEN = ?", *f.Given)
	}
	if f.RecordedFrom != nil {
		where.Add("r.RECORDED_AT >= ?", *f.RecordedFrom)
	}
	if f.RecordedTo != nil {
		where.Add("r.RECORDED_AT <= ?", *f.RecordedTo)
	}
	if f.Search != "" {
		like := "%" + escapeLike(f.Search) + "%"
		where.Add("(CONCAT(COALESCE(l.FIRST_NAME, ''), ' ', COALESCE(l.LAST_NAME, '')) LIKE ? OR l.EMAIL LIKE ?)", like, like)
	}
	return where
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s)
}

func mapToConsentRecord(row map[string]interface{}) model.ConsentRecord {
	return model.ConsentRecord{
		ID:                dbutils.StringValue(row, "ID"),
		ApplicationFormID: dbutils.StringValue(row, "APPLICATION_FORM_ID"),
		ConsentTemplateID: dbutils.StringValue(row, "CONSENT_TEMPLATE_ID"),
		Version:           int(dbutils.Int64Value(row, "VERSION")),
		LeadID:            dbutils.StringValue(row, "LEAD_ID"),
		ConsentType:       templatemodel.ConsentType(dbutils.StringValue(row, "CONSENT_TYPE")),
		ConsentGiven:      dbutils.BoolValue(row, "CONSENT_GIVEN"),
		ConsentMethod:     model.ConsentMethod(dbutils.StringValue(row, "CONSENT_METHOD")),
		ConsentText:       dbutils.StringValue(row, "CONSENT_TEXT"),
		HelpTextSnapshot:  dbutils.NullableString(row, "HELP_TEXT_SNAPSHOT"),
		IPAddress:         dbutils.NullableString(row, "IP_ADDRESS"),
		UserAgent:         dbutils.NullableString(row, "USER_AGENT"),
		RecordedAt:        dbutils.Int64Value(row, "RECORDED_AT"),
		CreatedTime:       dbutils.Int64Value(row, "CREATED_TIME"),
		UpdatedTime:       dbutils.Int64Value(row, "UPDATED_TIME"),
	}
}
