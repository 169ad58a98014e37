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
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type defaultDatabaseManager struct {
	config   *ConnectionConfig
	migrate  DataMigrateConfig
	dataInit DataInitConfig
	client   *mongo.Client
	db       *mongo.Database
	hooks    []CommandHook
	metrics  *MetricsMonitor
	stats    *poolStats
	external bool

	mu           sync.RWMutex
	connected    bool
	lastError    error
	healthStatus *HealthStatus
	stopHealth   context.CancelFunc

	// reconnectTries and logger are used by the health check goroutine
	// while Connect holds mu.
	reconnectTries atomic.Int32
	logMu          sync.RWMutex
	logger         Logger
}

// ManagerOption customises a manager created by NewDatabaseManager.
type ManagerOption func(*defaultDatabaseManager)

func WithLogger(l Logger) ManagerOption {
	return func(dm *defaultDatabaseManager) {
		if l != nil {
			dm.logger = l
		}
	}
}

// WithCommandHooks adds hooks to the command monitor in addition to the ones
// enabled by the connection config.
func WithCommandHooks(hooks ...CommandHook) ManagerOption {
	return func(dm *defaultDatabaseManager) { dm.hooks = append(dm.hooks, hooks...) }
}

// WithMetrics uses m instead of a monitor built from the config.
func WithMetrics(m *MetricsMonitor) ManagerOption {
	return func(dm *defaultDatabaseManager) { dm.metrics = m }
}

func WithMigrateConfig(c DataMigrateConfig) ManagerOption {
	return func(dm *defaultDatabaseManager) { dm.migrate = c }
}

func WithDataInitConfig(c DataInitConfig) ManagerOption {
	return func(dm *defaultDatabaseManager) { dm.dataInit = c }
}

// NewDatabaseManager returns an AbstractDatabaseManager backed by the MongoDB
// driver. If config is nil, a sensible default configuration is used.
func NewDatabaseManager(config *ConnectionConfig, opts ...ManagerOption) AbstractDatabaseManager {
	if config == nil {
		config = DefaultConnectionConfig()
	}
	defaults := DefaultConfig()
	dm := &defaultDatabaseManager{
		config:       config,
		migrate:      defaults.DataMigrateConfig,
		dataInit:     defaults.DataInitConfig,
		logger:       GetLogger(),
		stats:        &poolStats{},
		healthStatus: &HealthStatus{},
	}
	for _, opt := range opts {
		opt(dm)
	}
	if dm.metrics == nil && config.EnableMetrics {
		dm.metrics = NewMetricsMonitor(config.MetricsNamespace)
	}
	return dm
}

// NewDatabaseManagerFromClient wraps a client connected elsewhere. The manager
// never disconnects or re-creates such a client.
func NewDatabaseManagerFromClient(client *mongo.Client, dbName string, opts ...ManagerOption) AbstractDatabaseManager {
	cfg := DefaultConnectionConfig()
	cfg.DBName = dbName
	cfg.HealthCheckInterval = 0
	dm := NewDatabaseManager(cfg, opts...).(*defaultDatabaseManager)
	dm.client = client
	dm.db = client.Database(dbName)
	dm.external = true
	dm.connected = true
	return dm
}

func (dm *defaultDatabaseManager) Connect(ctx context.Context) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.connected && dm.client != nil {
		return nil
	}
	if dm.external {
		return ErrNotConnected
	}
	if err := dm.config.Validate(); err != nil {
		dm.lastError = err
		return err
	}

	start := time.Now()
	client, err := dm.connectWithRetry(ctx)
	if err != nil {
		dm.lastError = err
		return err
	}

	dm.client = client
	dm.db = client.Database(dm.config.DBName)
	dm.connected = true
	dm.lastError = nil
	dm.reconnectTries.Store(0)

	if dm.config.HealthCheckInterval > 0 && dm.stopHealth == nil {
		dm.startHealthCheck()
	}

	dm.log().Info("Database connected successfully",
		"uri", dm.config.Redacted(), "database", dm.config.DBName, "took", time.Since(start).Round(time.Millisecond))
	return nil
}

func (dm *defaultDatabaseManager) clientOptions() *options.ClientOptions {
	c := dm.config
	opts := options.Client().ApplyURI(c.BuildURI())
	if c.AppName != "" {
		opts.SetAppName(c.AppName)
	}
	if c.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(c.MaxPoolSize)
	}
	if c.MinPoolSize > 0 {
		opts.SetMinPoolSize(c.MinPoolSize)
	}
	if c.MaxConnIdleTime > 0 {
		opts.SetMaxConnIdleTime(c.MaxConnIdleTime)
	}
	if c.ConnectTimeout > 0 {
		opts.SetConnectTimeout(c.ConnectTimeout)
	}
	if c.ServerSelectionTimeout > 0 {
		opts.SetServerSelectionTimeout(c.ServerSelectionTimeout)
	}
	if c.OperationTimeout > 0 {
		opts.SetTimeout(c.OperationTimeout)
	}

	hooks := append([]CommandHook{}, dm.hooks...)
	if c.EnableCommandLog {
		hooks = append(hooks, NewCommandLogHook(true, true, nil))
	}
	if c.SlowCommandTime > 0 {
		hooks = append(hooks, NewSlowCommandHook(true, c.SlowCommandTime, nil))
	}
	poolHandlers := []func(*event.PoolEvent){dm.stats.PoolEvent}
	if dm.metrics != nil {
		hooks = append(hooks, dm.metrics)
		poolHandlers = append(poolHandlers, dm.metrics.PoolEvent)
	}
	opts.SetMonitor(NewCommandMonitor(hooks...))
	opts.SetPoolMonitor(newPoolMonitor(poolHandlers...))
	return opts
}

// connectBackOff waits RetryInterval before the second attempt and multiplies
// the wait by RetryMultiplier for each further attempt. ConnectRetries counts
// attempts, not retries.
func (dm *defaultDatabaseManager) connectBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = dm.config.RetryInterval
	if b.InitialInterval <= 0 {
		b.InitialInterval = time.Second
	}
	b.Multiplier = dm.config.RetryMultiplier
	if b.Multiplier < 1 {
		b.Multiplier = 1
	}
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	retries := dm.config.ConnectRetries - 1
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

func (dm *defaultDatabaseManager) connectWithRetry(ctx context.Context) (*mongo.Client, error) {
	opts := dm.clientOptions()
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	var client *mongo.Client
	attempt := 0
	op := func() error {
		attempt++
		c, err := mongo.Connect(ctx, opts)
		if err != nil {
			return backoff.Permanent(err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, dm.pingTimeout())
		defer cancel()
		if err := c.Ping(pingCtx, readpref.Primary()); err != nil {
			_ = c.Disconnect(context.Background())
			return err
		}
		client = c
		return nil
	}
	notify := func(err error, next time.Duration) {
		dm.log().Warn("Database not ready, retrying", "attempt", attempt, "next_try_in", next, "error", err)
	}

	if err := backoff.RetryNotify(op, dm.connectBackOff(ctx), notify); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectFailed, err)
	}
	return client, nil
}

func (dm *defaultDatabaseManager) pingTimeout() time.Duration {
	if dm.config.ServerSelectionTimeout > 0 {
		return dm.config.ServerSelectionTimeout + time.Second
	}
	return 30 * time.Second
}

func (dm *defaultDatabaseManager) Disconnect(ctx context.Context) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.stopHealth != nil {
		dm.stopHealth()
		dm.stopHealth = nil
	}
	return dm.closeClient(ctx)
}

// closeClient must be called with dm.mu held.
func (dm *defaultDatabaseManager) closeClient(ctx context.Context) error {
	if dm.client == nil {
		return nil
	}
	var err error
	if !dm.external {
		err = dm.client.Disconnect(ctx)
	}
	dm.client = nil
	dm.db = nil
	dm.connected = false

	if err != nil {
		dm.log().Error("Failed to close database connection", "error", err)
	} else {
		dm.log().Info("Database connection closed")
	}
	return err
}

// Reconnect drops the current client and connects again. The health check
// loop keeps running.
func (dm *defaultDatabaseManager) Reconnect(ctx context.Context) error {
	if dm.external {
		return dm.Ping(ctx)
	}
	dm.log().Info("Attempting to reconnect to the database")

	dm.mu.Lock()
	if err := dm.closeClient(ctx); err != nil {
		dm.log().Warn("Error disconnecting existing connection", "error", err)
	}
	dm.mu.Unlock()

	return dm.Connect(ctx)
}

func (dm *defaultDatabaseManager) Ping(ctx context.Context) error {
	dm.mu.RLock()
	client := dm.client
	dm.mu.RUnlock()

	if client == nil {
		return ErrNotInitialized
	}
	return client.Ping(ctx, readpref.Primary())
}

func (dm *defaultDatabaseManager) IsConnected() bool {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.connected && dm.client != nil
}

func (dm *defaultDatabaseManager) GetClient() *mongo.Client {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.client
}

func (dm *defaultDatabaseManager) GetDB() *mongo.Database {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.db
}

func (dm *defaultDatabaseManager) GetMetrics() *MetricsMonitor {
	return dm.metrics
}

func (dm *defaultDatabaseManager) HealthCheck(ctx context.Context) *HealthStatus {
	start := time.Now()
	dm.mu.RLock()
	client := dm.client
	status := &HealthStatus{LastCheckTime: start, Connected: dm.connected, MaxPoolSize: dm.config.MaxPoolSize}
	dm.mu.RUnlock()

	if client == nil {
		status.LastError = "Database not initialized"
		return status
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()
	err := client.Ping(ctxTimeout, readpref.Primary())
	status.ResponseTime = time.Since(start)

	stats := dm.stats.snapshot(dm.config.MaxPoolSize)
	status.OpenConns = stats.OpenConns
	status.InUse = stats.InUse

	dm.mu.Lock()
	defer dm.mu.Unlock()
	if err != nil {
		status.Connected = false
		status.LastError = err.Error()
		dm.lastError = err
	} else {
		status.Healthy = true
		status.Connected = true
		dm.lastError = nil
	}
	dm.healthStatus = status
	return status
}

// startHealthCheck must be called with dm.mu held.
func (dm *defaultDatabaseManager) startHealthCheck() {
	ctx, cancel := context.WithCancel(context.Background())
	dm.stopHealth = cancel
	interval := dm.config.HealthCheckInterval

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				checkCtx, checkCancel := context.WithTimeout(ctx, time.Second*10)
				status := dm.HealthCheck(checkCtx)
				checkCancel()
				if !status.Healthy && dm.config.EnableReconnect {
					dm.handleReconnect(ctx)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (dm *defaultDatabaseManager) handleReconnect(ctx context.Context) {
	if tries := dm.reconnectTries.Load(); int(tries) >= dm.config.MaxReconnectTries {
		dm.log().Error("Max reconnect attempts reached, stopping", "tries", tries)
		return
	}
	try := dm.reconnectTries.Add(1)
	dm.log().Info("Starting database reconnect", "try", try)

	select {
	case <-time.After(dm.config.ReconnectInterval):
	case <-ctx.Done():
		return
	}

	timeout := dm.config.ConnectTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	reconnectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := dm.Reconnect(reconnectCtx); err != nil {
		dm.log().Error("Reconnect failed", "error", err, "try", try)
		return
	}
	dm.reconnectTries.Store(0)
	dm.log().Info("Reconnect succeeded")
}

func (dm *defaultDatabaseManager) GetStats() *DBStats {
	return dm.stats.snapshot(dm.config.MaxPoolSize)
}

func (dm *defaultDatabaseManager) RunMigrations(ctx context.Context) error {
	db := dm.GetDB()
	if db == nil {
		return ErrNotInitialized
	}
	if err := NewMigrationManager(db, dm.migrate, dm.log()).RunMigrations(ctx); err != nil {
		return err
	}
	if dm.dataInit.AutoInitOnMigration {
		return dm.InitData(ctx)
	}
	return nil
}

func (dm *defaultDatabaseManager) InitData(ctx context.Context) error {
	db := dm.GetDB()
	if db == nil {
		return ErrNotInitialized
	}
	return NewSeedManager(db, dm.dataInit, dm.log()).InitData(ctx)
}

func (dm *defaultDatabaseManager) SetLogger(logger Logger) {
	if logger == nil {
		return
	}
	dm.logMu.Lock()
	defer dm.logMu.Unlock()
	dm.logger = logger
}

func (dm *defaultDatabaseManager) log() Logger {
	dm.logMu.RLock()
	defer dm.logMu.RUnlock()
	return dm.logger
}

// LastError returns the error of the last failed connect or health check.
func (dm *defaultDatabaseManager) LastError() error {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.lastError
}
