/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/mongo"
)

var (
	globalMu      sync.RWMutex
	initMu        sync.Mutex
	globalFactory *BaseDatabaseFactory
	globalConfig  *Config
)

func currentFactory() *BaseDatabaseFactory {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalFactory
}

// GetDB returns the global database handle, or nil before InitDB.
func GetDB() *mongo.Database {
	if f := currentFactory(); f != nil {
		return f.GetDB()
	}
	return nil
}

// GetClient returns the global client, or nil before InitDB.
func GetClient() *mongo.Client {
	if m := GetDatabaseManager(); m != nil {
		return m.GetClient()
	}
	return nil
}

// IsConnected reports whether the global connection is up.
func IsConnected() bool {
	m := GetDatabaseManager()
	return m != nil && m.IsConnected()
}

// GetDatabaseManager returns the global database manager.
func GetDatabaseManager() AbstractDatabaseManager {
	if f := currentFactory(); f != nil {
		return f.GetManager()
	}
	return nil
}

// GetDatabaseFactory returns the global database factory.
func GetDatabaseFactory() *BaseDatabaseFactory {
	return currentFactory()
}

// InitDB initializes the global connection using the provided configuration.
func InitDB(cfg *Config) (*mongo.Database, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: database configuration cannot be empty", ErrInvalidConfig)
	}
	return InitDatabaseWithOptions(context.Background(), cfg, cfg.DataMigrateConfig.EnableMigrateOnStartup)
}

// InitDBWithURI connects the global connection to uri and selects dbName,
// using the default configuration otherwise.
func InitDBWithURI(ctx context.Context, uri, dbName string) (*mongo.Database, error) {
	cfg := DefaultConfig()
	cfg.ConnectionConfig.URI = uri
	cfg.ConnectionConfig.DBName = dbName
	return InitDatabaseWithOptions(ctx, cfg, cfg.DataMigrateConfig.EnableMigrateOnStartup)
}

// InitDatabaseWithOptions initializes the database and optionally runs
// migrations. A previous global connection is closed.
func InitDatabaseWithOptions(ctx context.Context, cfg *Config, runMigrations bool) (*mongo.Database, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: database configuration cannot be empty", ErrInvalidConfig)
	}
	factory := NewDatabaseFactory()
	if _, err := factory.CreateFromFullConfig(cfg); err != nil {
		return nil, fmt.Errorf("failed to create database manager: %w", err)
	}
	if err := factory.InitializeDatabase(ctx, runMigrations); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	setGlobal(ctx, factory, cfg)
	return factory.GetDB(), nil
}

// InitDBWithClient makes an existing client the global connection.
func InitDBWithClient(client *mongo.Client, dbName string) *mongo.Database {
	factory := NewDatabaseFactory()
	factory.UseManager(NewDatabaseManagerFromClient(client, dbName, WithLogger(factory.logger)))
	cfg := DefaultConfig()
	cfg.ConnectionConfig.DBName = dbName
	setGlobal(context.Background(), factory, cfg)
	return factory.GetDB()
}

func setGlobal(ctx context.Context, f *BaseDatabaseFactory, cfg *Config) {
	globalMu.Lock()
	prev := globalFactory
	globalFactory, globalConfig = f, cfg
	globalMu.Unlock()
	if prev != nil && prev != f {
		_ = prev.Close(ctx)
	}
}

// EnsureConnected returns the global database, connecting from the
// MONGO_DB_CONNECTION_STRING and MONGO_DB_NAME environment variables when
// InitDB has not been called. Without them it returns ErrNotConnected.
func EnsureConnected(ctx context.Context) (*mongo.Database, error) {
	if IsConnected() {
		return GetDB(), nil
	}
	initMu.Lock()
	defer initMu.Unlock()
	if IsConnected() {
		return GetDB(), nil
	}

	env, ok := lookupEnv(EnvConnectionString, EnvDatabaseName)
	if !ok {
		return nil, ErrNotConnected
	}
	return InitDBWithURI(ctx, env[EnvConnectionString], env[EnvDatabaseName])
}

// CloseDB closes the global connection.
func CloseDB(ctx context.Context) error {
	globalMu.Lock()
	f := globalFactory
	globalFactory, globalConfig = nil, nil
	globalMu.Unlock()
	if f != nil {
		return f.Close(ctx)
	}
	return nil
}

// GetHealthStatus returns the current database health status.
func GetHealthStatus(ctx context.Context) *HealthStatus {
	if f := currentFactory(); f != nil {
		return f.GetHealthStatus(ctx)
	}
	return &HealthStatus{LastError: "Database not initialized"}
}

// GetDatabaseStats returns global connection pool statistics.
func GetDatabaseStats() *DBStats {
	if f := currentFactory(); f != nil {
		return f.GetStats()
	}
	return &DBStats{}
}

// RunMigrations syncs registered models and runs pending migrations on the
// global connection.
func RunMigrations(ctx context.Context) error {
	m := GetDatabaseManager()
	if m == nil {
		return ErrNotInitialized
	}
	return m.RunMigrations(ctx)
}

// InitData seeds the global connection from the configured data directory.
func InitData(ctx context.Context) error {
	m := GetDatabaseManager()
	if m == nil {
		return ErrNotInitialized
	}
	return m.InitData(ctx)
}

// GetConfig returns the configuration the global connection was created with.
func GetConfig() *Config {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalConfig
}
