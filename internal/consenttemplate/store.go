package consenttemplate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/leadflow/consent-service/internal/consenttemplate/model"
	dbmodel "github.com/leadflow/consent-service/internal/system/database/model"
	"github.com/leadflow/consent-service/internal/system/database/provider"
	dbutils "github.com/leadflow/consent-service/internal/system/database/utils"
)

const templateColumns = "ID, CONSENT_TYPE, FORM_TYPE, TITLE, CONTENT, HELP_TEXT, VERSION, IS_ACTIVE, IS_REQUIRED, TAGS, CREATED_BY_USER_ID, CREATED_TIME, UPDATED_TIME"

// DBQuery objects for all consent template operations
var (
	QueryCreateTemplate = dbmodel.DBQuery{
		ID: "CREATE_CONSENT_TEMPLATE",
		Query: "INSERT INTO CONSENT_TEMPLATE (" + templateColumns + ") " +
			"VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
	}

	QueryGetTemplateByID = dbmodel.DBQuery{
		ID:    "GET_CONSENT_TEMPLATE_BY_ID",
		Query: "SELECT " + templateColumns + " FROM CONSENT_TEMPLATE WHERE ID = ?",
	}

	// The IN list is expanded at runtime.
	QueryGetTemplatesByIDs = dbmodel.DBQuery{
		ID:    "GET_CONSENT_TEMPLATES_BY_IDS",
		Query: "SELECT " + templateColumns + " FROM CONSENT_TEMPLATE WHERE ID IN (%s)",
	}

	QueryListActiveTemplates = dbmodel.DBQuery{
		ID: "LIST_ACTIVE_CONSENT_TEMPLATES",
		Query: "SELECT " + templateColumns + " FROM CONSENT_TEMPLATE WHERE FORM_TYPE = ? AND IS_ACTIVE = 1 " +
			"ORDER BY CONSENT_TYPE ASC, VERSION DESC",
	}

	QueryListAllTemplates = dbmodel.DBQuery{
		ID: "LIST_ALL_CONSENT_TEMPLATES",
		Query: "SELECT " + templateColumns + " FROM CONSENT_TEMPLATE WHERE FORM_TYPE = ? " +
			"ORDER BY CONSENT_TYPE ASC, VERSION DESC",
	}

	QueryGetActiveTemplateByType = dbmodel.DBQuery{
		ID: "GET_ACTIVE_CONSENT_TEMPLATE_BY_TYPE",
		Query: "SELECT " + templateColumns + " FROM CONSENT_TEMPLATE " +
			"WHERE FORM_TYPE = ? AND CONSENT_TYPE = ? AND IS_ACTIVE = 1",
	}

	QueryDeactivateTemplate = dbmodel.DBQuery{
		ID:    "DEACTIVATE_CONSENT_TEMPLATE",
		Query: "UPDATE CONSENT_TEMPLATE SET IS_ACTIVE = 0, UPDATED_TIME = ? WHERE ID = ? AND IS_ACTIVE = 1",
	}

	QueryUpdateTemplate = dbmodel.DBQuery{
		ID: "UPDATE_CONSENT_TEMPLATE",
		Query: "UPDATE CONSENT_TEMPLATE SET TITLE = ?, CONTENT = ?, HELP_TEXT = ?, VERSION = ?, IS_ACTIVE = ?, " +
			"IS_REQUIRED = ?, TAGS = ?, UPDATED_TIME = ? WHERE ID = ?",
	}
)

// ErrTemplateNotActive is returned by Deactivate when the row is missing or was already deactivated.
var ErrTemplateNotActive = errors.New("consent template is not active")

// ConsentTemplateStore defines the data access operations for consent templates
type ConsentTemplateStore interface {
	GetByID(ctx context.Context, templateID string) (*model.ConsentTemplate, error)
	GetByIDs(ctx context.Context, templateIDs []string) (map[string]*model.ConsentTemplate, error)
	List(ctx context.Context, formType string, includeInactive bool) ([]model.ConsentTemplate, error)
	GetActiveByType(ctx context.Context, formType string, consentType model.ConsentType) ([]model.ConsentTemplate, error)

	Create(tx dbmodel.TxInterface, template *model.ConsentTemplate) error
	Update(tx dbmodel.TxInterface, template *model.ConsentTemplate) error
	Deactivate(tx dbmodel.TxInterface, templateID string, updatedTime int64) error
}

type store struct {
	dbClient provider.DBClientInterface
}

func newConsentTemplateStore(dbClient provider.DBClientInterface) ConsentTemplateStore {
	return &store{dbClient: dbClient}
}

func (s *store) Create(tx dbmodel.TxInterface, t *model.ConsentTemplate) error {
	tags, err := encodeTags(t.Tags)
	if err != nil {
		return err
	}
	_, err = tx.Exec(QueryCreateTemplate.Query,
		t.ID, string(t.ConsentType), t.FormType, t.Title, t.Content, t.HelpText, t.Version,
		t.IsActive, t.IsRequired, tags, t.CreatedByUserID, t.CreatedTime, t.UpdatedTime)
	return err
}

func (s *store) Update(tx dbmodel.TxInterface, t *model.ConsentTemplate) error {
	tags, err := encodeTags(t.Tags)
	if err != nil {
		return err
	}
	_, err = tx.Exec(QueryUpdateTemplate.Query,
		t.Title, t.Content, t.HelpText, t.Version, t.IsActive, t.IsRequired, tags, t.UpdatedTime, t.ID)
	return err
}

func (s *store) Deactivate(tx dbmodel.TxInterface, templateID string, updatedTime int64) error {
	result, err := tx.Exec(QueryDeactivateTemplate.Query, updatedTime, templateID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrTemplateNotActive
	}
	return nil
}

func (s *store) GetByID(ctx context.Context, templateID string) (*model.ConsentTemplate, error) {
	rows, err := s.dbClient.Query(ctx, QueryGetTemplateByID, templateID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return mapToConsentTemplate(rows[0]), nil
}

// GetByIDs resolves every requested ID in a single query. Unknown IDs are absent from the result.
func (s *store) GetByIDs(ctx context.Context, templateIDs []string) (map[string]*model.ConsentTemplate, error) {
	result := make(map[string]*model.ConsentTemplate, len(templateIDs))
	if len(templateIDs) == 0 {
		return result, nil
	}

	query := QueryGetTemplatesByIDs.WithQuery(
		fmt.Sprintf(QueryGetTemplatesByIDs.Query, dbutils.BuildInPlaceholders(len(templateIDs))))
	args := make([]interface{}, len(templateIDs))
	for i, id := range templateIDs {
		args[i] = id
	}

	rows, err := s.dbClient.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		t := mapToConsentTemplate(row)
		result[t.ID] = t
	}
	return result, nil
}

func (s *store) List(ctx context.Context, formType string, includeInactive bool) ([]model.ConsentTemplate, error) {
	query := QueryListActiveTemplates
	if includeInactive {
		query = QueryListAllTemplates
	}
	rows, err := s.dbClient.Query(ctx, query, formType)
	if err != nil {
		return nil, err
	}
	return mapToConsentTemplates(rows), nil
}

func (s *store) GetActiveByType(ctx context.Context, formType string, consentType model.ConsentType) ([]model.ConsentTemplate, error) {
	rows, err := s.dbClient.Query(ctx, QueryGetActiveTemplateByType, formType, string(consentType))
	if err != nil {
		return nil, err
	}
	return mapToConsentTemplates(rows), nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("failed to encode tags: %w", err)
	}
	return string(b), nil
}

func mapToConsentTemplates(rows []map[string]interface{}) []model.ConsentTemplate {
	templates := make([]model.ConsentTemplate, 0, len(rows))
	for _, row := range rows {
		if t := mapToConsentTemplate(row); t != nil {
			templates = append(templates, *t)
		}
	}
	return templates
}

func mapToConsentTemplate(row map[string]interface{}) *model.ConsentTemplate {
	if row == nil {
		return nil
	}

	t := &model.ConsentTemplate{
		ID:              dbutils.StringValue(row, "ID"),
		ConsentType:     model.ConsentType(dbutils.StringValue(row, "CONSENT_TYPE")),
		FormType:        dbutils.StringValue(row, "FORM_TYPE"),
		Title:           dbutils.StringValue(row, "TITLE"),
		Content:         dbutils.StringValue(row, "CONTENT"),
		HelpText:        dbutils.NullableString(row, "HELP_TEXT"),
		Version:         int(dbutils.Int64Value(row, "VERSION")),
		IsActive:        dbutils.BoolValue(row, "IS_ACTIVE"),
		IsRequired:      dbutils.BoolValue(row, "IS_REQUIRED"),
		CreatedByUserID: dbutils.NullableString(row, "CREATED_BY_USER_ID"),
		CreatedTime:     dbutils.Int64Value(row, "CREATED_TIME"),
		UpdatedTime:     dbutils.Int64Value(row, "UPDATED_TIME"),
		Tags:            []string{},
	}

	if raw := dbutils.StringValue(row, "TAGS"); raw != "" {
		var tags []string
		if err := json.Unmarshal([]byte(raw), &tags); err == nil {
			t.Tags = tags
		}
	}

	return t
}
