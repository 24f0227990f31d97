// Package storetest builds store registries over go-sqlmock for service tests.
package storetest

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/leadflow/consent-service/internal/system/database/provider"
	"github.com/leadflow/consent-service/internal/system/stores"
)

// NewRegistry returns a registry whose transactions run against a sqlmock connection.
// Expectations are verified when the test ends.
func NewRegistry(t *testing.T) (*stores.StoreRegistry, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet sql expectations: %v", err)
		}
		db.Close()
	})
	return stores.NewStoreRegistry(provider.NewDBClient(sqlx.NewDb(db, "sqlmock"), "mysql")), mock
}

// NewClient returns a DB client over sqlmock for store tests.
func NewClient(t *testing.T) (provider.DBClientInterface, sqlmock.Sqlmock) {
	t.Helper()
	registry, mock := NewRegistry(t)
	return registry.DBClient(), mock
}
