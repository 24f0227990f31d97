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

// Package database opens the MySQL connection pool the stores share.
package database

import (
	"context"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/leadflow/consent-service/internal/system/config"
	"github.com/leadflow/consent-service/internal/system/log"
)

const (
	connectAttempts = 5
	connectBackoff  = 2 * time.Second
	pingTimeout     = 5 * time.Second
)

// DB is the shared connection pool.
type DB struct {
	*sqlx.DB
}

// Initialize opens the pool and waits for the server to answer a ping. The database container often
// starts after the service, so the ping is retried a few times before giving up.
func Initialize(cfg *config.DatabaseConfig) (*DB, error) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, "Database"))
	logger.Info("Connecting to database...",
		log.String("type", cfg.Type),
		log.String("hostname", cfg.Hostname),
		log.Int("port", cfg.Port),
		log.String("database", cfg.Database))

	conn, err := sqlx.Open(cfg.Type, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	db := &DB{DB: conn}
	for attempt := 1; ; attempt++ {
		err = db.HealthCheck(context.Background())
		if err == nil {
			break
		}
		if attempt == connectAttempts {
			_ = conn.Close()
			return nil, err
		}
		logger.Warn("Database not reachable yet", log.Int("attempt", attempt), log.Error(err))
		time.Sleep(connectBackoff)
	}

	logger.Info("Connected to database")
	return db, nil
}

// HealthCheck pings the server with a bounded timeout.
func (db *DB) HealthCheck(ctx context.Context) error {
	if db.DB == nil {
		return fmt.Errorf("database connection is not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// Close releases the pool.
func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	log.GetLogger().With(log.String(log.LoggerKeyComponentName, "Database")).Info("Closing database connection...")
	return db.DB.Close()
}
