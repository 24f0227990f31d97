/*
 * Copyright (c) 2025, WSO2 LLC. (https://www.wso2.com).
 *
 * WSO2 LLC. licenses this file to you under the Apache License,
 * Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

// Package provider exposes the query client every store reads and writes through.
package provider

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/leadflow/consent-service/internal/system/database/model"
	"github.com/leadflow/consent-service/internal/system/log"
)

// DBClientInterface is the store-facing database contract.
type DBClientInterface interface {
	// Query runs a read and returns every row as a column-name keyed map. Text columns are returned as string.
	Query(ctx context.Context, query model.DBQuery, args ...interface{}) ([]map[string]interface{}, error)
	// Execute runs a single write outside a transaction and returns the affected row count.
	Execute(ctx context.Context, query model.DBQuery, args ...interface{}) (int64, error)
	BeginTx(ctx context.Context) (model.TxInterface, error)
}

type dbClient struct {
	db     *sqlx.DB
	dbType string
}

// NewDBClient wraps an open sqlx handle.
func NewDBClient(db *sqlx.DB, dbType string) DBClientInterface {
	return &dbClient{db: db, dbType: dbType}
}

func (c *dbClient) Query(ctx context.Context, query model.DBQuery, args ...interface{}) ([]map[string]interface{}, error) {
	logger := log.WithContext(ctx).With(log.String(log.LoggerKeyComponentName, "DBClient"))
	logger.Debug("Executing query", log.String("query_id", query.ID), log.String("db_type", c.dbType))

	rows, err := c.db.QueryxContext(ctx, query.Query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s failed: %w", query.ID, err)
	}
	defer rows.Close()

	results := make([]map[string]interface{}, 0)
	for rows.Next() {
		row := make(map[string]interface{})
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("scan %s failed: %w", query.ID, err)
		}
		for key, value := range row {
			if b, ok := value.([]byte); ok {
				row[key] = string(b)
			}
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s failed: %w", query.ID, err)
	}

	return results, nil
}

func (c *dbClient) Execute(ctx context.Context, query model.DBQuery, args ...interface{}) (int64, error) {
	result, err := c.db.ExecContext(ctx, query.Query, args...)
	if err != nil {
		return 0, fmt.Errorf("execute %s failed: %w", query.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected for %s: %w", query.ID, err)
	}
	return affected, nil
}

func (c *dbClient) BeginTx(ctx context.Context) (model.TxInterface, error) {
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return model.NewTx(tx.Tx), nil
}
