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
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

// AbstractDatabaseManager defines the operations for managing a MongoDB
// connection, running migrations, seeding data, and reporting health.
type AbstractDatabaseManager interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Reconnect(ctx context.Context) error
	Ping(ctx context.Context) error
	HealthCheck(ctx context.Context) *HealthStatus
	IsConnected() bool
	GetClient() *mongo.Client
	GetDB() *mongo.Database
	RunMigrations(ctx context.Context) error
	InitData(ctx context.Context) error
	GetStats() *DBStats
	GetMetrics() *MetricsMonitor
	SetLogger(logger Logger)
}

// AbstractDatabaseConfigProvider exposes configuration loading.
type AbstractDatabaseConfigProvider interface {
	ConfigLoader() *Config
}

// HealthStatus holds the result of a health check against the deployment.
type HealthStatus struct {
	Healthy       bool          `json:"healthy"`
	Connected     bool          `json:"connected"`
	ResponseTime  time.Duration `json:"response_time"`
	OpenConns     int64         `json:"open_conns"`
	InUse         int64         `json:"in_use"`
	MaxPoolSize   uint64        `json:"max_pool_size"`
	LastError     string        `json:"last_error,omitempty"`
	LastCheckTime time.Time     `json:"last_check_time"`
}

// DBStats is a snapshot of the driver connection pool, built from pool events.
type DBStats struct {
	MaxPoolSize        uint64 `json:"max_pool_size"`
	OpenConns          int64  `json:"open_conns"`
	InUse              int64  `json:"in_use"`
	Idle               int64  `json:"idle"`
	ConnectionsCreated int64  `json:"connections_created"`
	ConnectionsClosed  int64  `json:"connections_closed"`
	CheckOutFailed     int64  `json:"check_out_failed"`
	PoolCleared        int64  `json:"pool_cleared"`
}

// ConnectionConfig describes how to reach a MongoDB deployment and tune the
// driver. URI takes precedence over the host fields.
type ConnectionConfig struct {
	URI        string `json:"uri" yaml:"uri" mapstructure:"uri"`
	Host       string `json:"host" yaml:"host" mapstructure:"host"`
	Port       int    `json:"port" yaml:"port" mapstructure:"port"`
	Username   string `json:"username" yaml:"username" mapstructure:"username"`
	Password   string `json:"password" yaml:"password" mapstructure:"password"`
	AuthSource string `json:"auth_source" yaml:"auth_source" mapstructure:"auth_source"`
	ReplicaSet string `json:"replica_set" yaml:"replica_set" mapstructure:"replica_set"`
	DBName     string `json:"dbname" yaml:"dbname" mapstructure:"dbname"`
	AppName    string `json:"app_name" yaml:"app_name" mapstructure:"app_name"`

	MaxPoolSize            uint64        `json:"max_pool_size" yaml:"max_pool_size" mapstructure:"max_pool_size"`
	MinPoolSize            uint64        `json:"min_pool_size" yaml:"min_pool_size" mapstructure:"min_pool_size"`
	MaxConnIdleTime        time.Duration `json:"max_conn_idle_time" yaml:"max_conn_idle_time" mapstructure:"max_conn_idle_time"`
	ConnectTimeout         time.Duration `json:"connect_timeout" yaml:"connect_timeout" mapstructure:"connect_timeout"`
	ServerSelectionTimeout time.Duration `json:"server_selection_timeout" yaml:"server_selection_timeout" mapstructure:"server_selection_timeout"`
	OperationTimeout       time.Duration `json:"operation_timeout" yaml:"operation_timeout" mapstructure:"operation_timeout"`

	// Connect retries: attempt i waits RetryInterval * RetryMultiplier^(i-1).
	ConnectRetries  int           `json:"connect_retries" yaml:"connect_retries" mapstructure:"connect_retries"`
	RetryInterval   time.Duration `json:"retry_interval" yaml:"retry_interval" mapstructure:"retry_interval"`
	RetryMultiplier float64       `json:"retry_multiplier" yaml:"retry_multiplier" mapstructure:"retry_multiplier"`

	EnableReconnect     bool          `json:"enable_reconnect" yaml:"enable_reconnect" mapstructure:"enable_reconnect"`
	ReconnectInterval   time.Duration `json:"reconnect_interval" yaml:"reconnect_interval" mapstructure:"reconnect_interval"`
	MaxReconnectTries   int           `json:"max_reconnect_tries" yaml:"max_reconnect_tries" mapstructure:"max_reconnect_tries"`
	HealthCheckInterval time.Duration `json:"health_check_interval" yaml:"health_check_interval" mapstructure:"health_check_interval"`

	EnableCommandLog bool          `json:"enable_command_log" yaml:"enable_command_log" mapstructure:"enable_command_log"`
	SlowCommandTime  time.Duration `json:"slow_command_time" yaml:"slow_command_time" mapstructure:"slow_command_time"`
	EnableMetrics    bool          `json:"enable_metrics" yaml:"enable_metrics" mapstructure:"enable_metrics"`
	MetricsNamespace string        `json:"metrics_namespace" yaml:"metrics_namespace" mapstructure:"metrics_namespace"`
}

// BuildURI returns URI when set, otherwise a mongodb:// URI assembled from the
// host fields.
func (c *ConnectionConfig) BuildURI() string {
	if c.URI != "" {
		return c.URI
	}
	host := c.Host
	if host == "" {
		host = "localhost"
	}
	port := c.Port
	if port == 0 {
		port = 27017
	}
	u := url.URL{Scheme: "mongodb", Host: host + ":" + strconv.Itoa(port), Path: "/"}
	if c.Username != "" {
		u.User = url.UserPassword(c.Username, c.Password)
	}
	q := url.Values{}
	if c.AuthSource != "" {
		q.Set("authSource", c.AuthSource)
	}
	if c.ReplicaSet != "" {
		q.Set("replicaSet", c.ReplicaSet)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Validate checks the fields Connect depends on.
func (c *ConnectionConfig) Validate() error {
	if c.DBName == "" {
		return fmt.Errorf("%w: database name is required", ErrInvalidConfig)
	}
	uri := c.BuildURI()
	if !strings.HasPrefix(uri, "mongodb://") && !strings.HasPrefix(uri, "mongodb+srv://") {
		return fmt.Errorf("%w: connection string must start with mongodb:// or mongodb+srv://", ErrInvalidConfig)
	}
	if c.RetryMultiplier != 0 && c.RetryMultiplier < 1 {
		return fmt.Errorf("%w: retry multiplier must be at least 1", ErrInvalidConfig)
	}
	return nil
}

// Redacted returns the connection URI with the password masked, for logs.
func (c *ConnectionConfig) Redacted() string {
	u, err := url.Parse(c.BuildURI())
	if err != nil {
		return "<invalid uri>"
	}
	return u.Redacted()
}

// DataMigrateConfig controls collection, validator, and index sync on startup.
type DataMigrateConfig struct {
	EnableMigrateOnStartup bool   `json:"enable_migrate_on_startup" yaml:"enable_migrate_on_startup" mapstructure:"enable_migrate_on_startup"`
	EnableSchemaSync       bool   `json:"enable_schema_sync" yaml:"enable_schema_sync" mapstructure:"enable_schema_sync"`
	AllowValidatorUpdate   bool   `json:"allow_validator_update" yaml:"allow_validator_update" mapstructure:"allow_validator_update"`
	AllowIndexAdd          bool   `json:"allow_index_add" yaml:"allow_index_add" mapstructure:"allow_index_add"`
	AllowIndexDrop         bool   `json:"allow_index_drop" yaml:"allow_index_drop" mapstructure:"allow_index_drop"`
	ValidationLevel        string `json:"validation_level" yaml:"validation_level" mapstructure:"validation_level"`
	ValidationAction       string `json:"validation_action" yaml:"validation_action" mapstructure:"validation_action"`
	MigrationCollection    string `json:"migration_collection" yaml:"migration_collection" mapstructure:"migration_collection"`
}

// DataInitConfig controls data seeding behavior and environment selection.
type DataInitConfig struct {
	AutoInitOnStartup   bool   `json:"auto_init_on_startup" yaml:"auto_init_on_startup" mapstructure:"auto_init_on_startup"`
	AutoInitOnMigration bool   `json:"auto_init_on_migration" yaml:"auto_init_on_migration" mapstructure:"auto_init_on_migration"`
	Filepath            string `json:"filepath" yaml:"filepath" mapstructure:"filepath"`
	Environment         string `json:"environment" yaml:"environment" mapstructure:"environment"`
}

// Config aggregates connection, migration, and data initialization settings.
type Config struct {
	ConnectionConfig  ConnectionConfig  `json:"connection_config" yaml:"connection_config" mapstructure:"connection_config"`
	DataMigrateConfig DataMigrateConfig `json:"data_migrate_config" yaml:"data_migrate_config" mapstructure:"data_migrate_config"`
	DataInitConfig    DataInitConfig    `json:"data_init_config" yaml:"data_init_config" mapstructure:"data_init_config"`
}

// DefaultConnectionConfig returns a connection config with sensible defaults.
func DefaultConnectionConfig() *ConnectionConfig {
	return &ConnectionConfig{
		Host:                   "localhost",
		Port:                   27017,
		MaxPoolSize:            100,
		MaxConnIdleTime:        time.Minute * 30,
		ConnectTimeout:         time.Second * 10,
		ServerSelectionTimeout: time.Second * 10,
		ConnectRetries:         3,
		RetryInterval:          time.Second,
		RetryMultiplier:        2,
		EnableReconnect:        true,
		ReconnectInterval:      time.Second * 5,
		MaxReconnectTries:      3,
		HealthCheckInterval:    time.Minute * 5,
		SlowCommandTime:        time.Second * 2,
		MetricsNamespace:       "mongeasy",
	}
}

// DefaultConfig returns a Config holding DefaultConnectionConfig and the
// default migration and seed settings.
func DefaultConfig() *Config {
	return &Config{
		ConnectionConfig: *DefaultConnectionConfig(),
		DataMigrateConfig: DataMigrateConfig{
			ValidationLevel:     "strict",
			ValidationAction:    "error",
			MigrationCollection: DefaultMigrationCollection,
		},
		DataInitConfig: DataInitConfig{
			Filepath:    "data",
			Environment: "dev",
		},
	}
}
