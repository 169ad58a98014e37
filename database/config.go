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
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides read by LoadConfig, e.g.
// MONGEASY_CONNECTION_CONFIG_DBNAME.
const EnvPrefix = "MONGEASY"

// LoadConfig reads a YAML, JSON or TOML config file on top of DefaultConfig.
// Every key can be overridden from the environment. An empty path reads the
// environment only.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, DefaultConfig())

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it during
// Unmarshal.
func setDefaults(v *viper.Viper, d *Config) {
	c := d.ConnectionConfig
	for key, val := range map[string]any{
		"uri":                      c.URI,
		"host":                     c.Host,
		"port":                     c.Port,
		"username":                 c.Username,
		"password":                 c.Password,
		"auth_source":              c.AuthSource,
		"replica_set":              c.ReplicaSet,
		"dbname":                   c.DBName,
		"app_name":                 c.AppName,
		"max_pool_size":            c.MaxPoolSize,
		"min_pool_size":            c.MinPoolSize,
		"max_conn_idle_time":       c.MaxConnIdleTime,
		"connect_timeout":          c.ConnectTimeout,
		"server_selection_timeout": c.ServerSelectionTimeout,
		"operation_timeout":        c.OperationTimeout,
		"connect_retries":          c.ConnectRetries,
		"retry_interval":           c.RetryInterval,
		"retry_multiplier":         c.RetryMultiplier,
		"enable_reconnect":         c.EnableReconnect,
		"reconnect_interval":       c.ReconnectInterval,
		"max_reconnect_tries":      c.MaxReconnectTries,
		"health_check_interval":    c.HealthCheckInterval,
		"enable_command_log":       c.EnableCommandLog,
		"slow_command_time":        c.SlowCommandTime,
		"enable_metrics":           c.EnableMetrics,
		"metrics_namespace":        c.MetricsNamespace,
	} {
		v.SetDefault("connection_config."+key, val)
	}

	m := d.DataMigrateConfig
	for key, val := range map[string]any{
		"enable_migrate_on_startup": m.EnableMigrateOnStartup,
		"enable_schema_sync":        m.EnableSchemaSync,
		"allow_validator_update":    m.AllowValidatorUpdate,
		"allow_index_add":           m.AllowIndexAdd,
		"allow_index_drop":          m.AllowIndexDrop,
		"validation_level":          m.ValidationLevel,
		"validation_action":         m.ValidationAction,
		"migration_collection":      m.MigrationCollection,
	} {
		v.SetDefault("data_migrate_config."+key, val)
	}

	i := d.DataInitConfig
	for key, val := range map[string]any{
		"auto_init_on_startup":   i.AutoInitOnStartup,
		"auto_init_on_migration": i.AutoInitOnMigration,
		"filepath":               i.Filepath,
		"environment":            i.Environment,
	} {
		v.SetDefault("data_init_config."+key, val)
	}
}
