package stores

import (
	"context"

	dbmodel "github.com/leadflow/consent-service/internal/system/database/model"
	"github.com/leadflow/consent-service/internal/system/database/provider"
	"github.com/leadflow/consent-service/internal/system/log"
)

// StoreRegistry holds references to all stores in the application
// Each store is held as interface{} to avoid circular dependencies
// Services type-assert to their needed store interfaces
type StoreRegistry struct {
	dbClient provider.DBClientInterface

	ConsentTemplate interface{} // consenttemplate.ConsentTemplateStore
	ApplicationForm interface{} // applicationform.ApplicationFormStore
	ConsentRecord   interface{} // consentrecord.ConsentRecordStore
	Notification    interface{} // notification.NotificationLogStore
	Audit           interface{} // audit.AuditStore
}

// NewStoreRegistry creates an empty registry bound to dbClient. Modules fill in their store on Initialize.
func NewStoreRegistry(dbClient provider.DBClientInterface) *StoreRegistry {
	return &StoreRegistry{dbClient: dbClient}
}

// DBClient returns the client stores were built on.
func (r *StoreRegistry) DBClient() provider.DBClientInterface {
	return r.dbClient
}

// ExecuteTransaction executes multiple store operations in a single transaction.
// The first failing operation rolls the whole transaction back and its error is returned unchanged.
func (r *StoreRegistry) ExecuteTransaction(ctx context.Context, queries []func(tx dbmodel.TxInterface) error) error {
	logger := log.WithContext(ctx).With(log.String(log.LoggerKeyComponentName, "StoreRegistry"))
	logger.Debug("Starting transaction", log.Int("query_count", len(queries)))

	tx, err := r.dbClient.BeginTx(ctx)
	if err != nil {
		logger.Error("Failed to begin transaction", log.Error(err))
		return err
	}

	for i, query := range queries {
		if err := query(tx); err != nil {
			logger.Warn("Transaction query failed, rolling back",
				log.Error(err),
				log.Int("failed_query_index", i),
			)
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("Rollback failed", log.Error(rbErr))
			}
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		logger.Error("Failed to commit transaction", log.Error(err))
		return err
	}

	logger.Debug("Transaction committed successfully", log.Int("query_count", len(queries)))
	return nil
}
