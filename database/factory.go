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
	"os"
	"time"

	"github.com/tomoncle/mongeasy/utils"
	"go.mongodb.org/mongo-driver/mongo"
)

// Environment variables read by the factory. The first two are also used by
// EnsureConnected to connect lazily.
const (
	EnvConnectionString = "MONGO_DB_CONNECTION_STRING"
	EnvDatabaseName     = "MONGO_DB_NAME"
)

// BaseDatabaseFactory creates and manages a configured database manager and
// provides helpers for initialization, health checks, and statistics.
type BaseDatabaseFactory struct {
	manager  AbstractDatabaseManager
	logger   Logger
	dataInit DataInitConfig
}

// NewDatabaseFactory returns a new database factory using the global logger.
func NewDatabaseFactory() *BaseDatabaseFactory {
	return &BaseDatabaseFactory{
		logger: GetLogger(),
	}
}

// CreateFromConfig constructs a database manager from the given connection
// configuration, applying environment overrides and setting the factory logger.
func (f *BaseDatabaseFactory) CreateFromConfig(cfg *ConnectionConfig, opts ...ManagerOption) (AbstractDatabaseManager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: database configuration cannot be empty", ErrInvalidConfig)
	}

	f.overrideFromEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts = append([]ManagerOption{WithLogger(f.logger)}, opts...)
	f.manager = NewDatabaseManager(cfg, opts...)
	return f.manager, nil
}

// CreateFromFullConfig is CreateFromConfig carrying the migration and seed
// settings of cfg into the manager.
func (f *BaseDatabaseFactory) CreateFromFullConfig(cfg *Config, opts ...ManagerOption) (AbstractDatabaseManager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: database configuration cannot be empty", ErrInvalidConfig)
	}
	f.dataInit = cfg.DataInitConfig
	opts = append([]ManagerOption{
		WithMigrateConfig(cfg.DataMigrateConfig),
		WithDataInitConfig(cfg.DataInitConfig),
	}, opts...)
	return f.CreateFromConfig(&cfg.ConnectionConfig, opts...)
}

// UseManager installs an already built manager, typically one made by
// NewDatabaseManagerFromClient.
func (f *BaseDatabaseFactory) UseManager(m AbstractDatabaseManager) {
	f.manager = m
}

// overrideFromEnv overrides configuration values from environment variables.
func (f *BaseDatabaseFactory) overrideFromEnv(cfg *ConnectionConfig) {
	cfg.URI = utils.EnvDefaultString(EnvConnectionString, cfg.URI)
	cfg.DBName = utils.EnvDefaultString(EnvDatabaseName, cfg.DBName)
	cfg.Host = utils.EnvDefaultString("MONGO_DB_HOST", cfg.Host)
	cfg.Port = utils.EnvDefaultInt("MONGO_DB_PORT", cfg.Port)
	cfg.Username = utils.EnvDefaultString("MONGO_DB_USERNAME", cfg.Username)
	cfg.Password = utils.EnvDefaultString("MONGO_DB_PASSWORD", cfg.Password)
	cfg.AuthSource = utils.EnvDefaultString("MONGO_DB_AUTH_SOURCE", cfg.AuthSource)
	cfg.ReplicaSet = utils.EnvDefaultString("MONGO_DB_REPLICA_SET", cfg.ReplicaSet)

	// pool
	if n := utils.EnvDefaultInt("MONGO_DB_MAX_POOL_SIZE", -1); n >= 0 {
		cfg.MaxPoolSize = uint64(n)
	}
	if n := utils.EnvDefaultInt("MONGO_DB_MIN_POOL_SIZE", -1); n >= 0 {
		cfg.MinPoolSize = uint64(n)
	}
	cfg.ConnectTimeout = utils.EnvDefaultDuration("MONGO_DB_CONNECT_TIMEOUT", cfg.ConnectTimeout)

	// retries and reconnect
	cfg.ConnectRetries = utils.EnvDefaultInt("MONGO_DB_CONNECT_RETRIES", cfg.ConnectRetries)
	cfg.RetryInterval = utils.EnvDefaultDuration("MONGO_DB_RETRY_INTERVAL", cfg.RetryInterval)
	cfg.EnableReconnect = utils.EnvDefaultBool("MONGO_DB_ENABLE_RECONNECT", cfg.EnableReconnect)
	cfg.ReconnectInterval = utils.EnvDefaultDuration("MONGO_DB_RECONNECT_INTERVAL", cfg.ReconnectInterval)

	// logging
	cfg.EnableCommandLog = utils.EnvDefaultBool("MONGO_DB_ENABLE_COMMAND_LOG", cfg.EnableCommandLog)
	cfg.SlowCommandTime = utils.EnvDefaultDuration("MONGO_DB_SLOW_COMMAND_TIME", cfg.SlowCommandTime)
}

// InitializeDatabase connects to the database, then optionally runs
// migrations and seeds data.
func (f *BaseDatabaseFactory) InitializeDatabase(ctx context.Context, runMigrations bool) error {
	if f.manager == nil {
		return ErrNotInitialized
	}

	if err := f.manager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if runMigrations {
		if err := f.manager.RunMigrations(ctx); err != nil {
			return fmt.Errorf("failed to run database migrations: %w", err)
		}
	}
	if f.dataInit.AutoInitOnStartup && !(runMigrations && f.dataInit.AutoInitOnMigration) {
		if err := f.manager.InitData(ctx); err != nil {
			return fmt.Errorf("failed to initialize data: %w", err)
		}
	}
	f.logger.Info("Database initialization completed!")
	return nil
}

// GetManager returns the underlying database manager.
func (f *BaseDatabaseFactory) GetManager() AbstractDatabaseManager {
	return f.manager
}

// GetDB returns the database handle, or nil if not initialized.
func (f *BaseDatabaseFactory) GetDB() *mongo.Database {
	if f.manager == nil {
		return nil
	}
	return f.manager.GetDB()
}

// SetLogger sets the logger on the factory and the underlying manager.
func (f *BaseDatabaseFactory) SetLogger(logger Logger) {
	f.logger = logger
	if f.manager != nil {
		f.manager.SetLogger(logger)
	}
}

// Close closes the connection managed by the factory.
func (f *BaseDatabaseFactory) Close(ctx context.Context) error {
	if f.manager == nil {
		return nil
	}
	return f.manager.Disconnect(ctx)
}

// GetHealthStatus returns the current database health status from the manager.
func (f *BaseDatabaseFactory) GetHealthStatus(ctx context.Context) *HealthStatus {
	if f.manager == nil {
		return &HealthStatus{
			LastError:     "Database manager not initialized",
			LastCheckTime: time.Now(),
		}
	}
	return f.manager.HealthCheck(ctx)
}

// GetStats returns connection pool statistics from the manager.
func (f *BaseDatabaseFactory) GetStats() *DBStats {
	if f.manager == nil {
		return &DBStats{}
	}
	return f.manager.GetStats()
}

func lookupEnv(keys ...string) (map[string]string, bool) {
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		v, ok := os.LookupEnv(k)
		if !ok || v == "" {
			return nil, false
		}
		out[k] = v
	}
	return out, true
}
