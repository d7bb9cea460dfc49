/*
 * Copyright 2025 Google LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
package config

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/GoogleCloudPlatform/hive-table-sink/internal/sink"
)

// EnvPrefix is the prefix of environment variables overriding config keys,
// e.g. HIVE_SINK_METASTORE_HOST for metastore.host.
const EnvPrefix = "HIVE_SINK"

// SupportedDialects lists the metastore backing database dialects.
var SupportedDialects = []string{"postgres", "cloudsqlpostgres", "mysql", "cloudsqlmysql", "sqlserver", "cloudsqlsqlserver"}

// Config holds all configuration for the application
type Config struct {
	Metastore MetastoreConfig `mapstructure:"metastore"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Session   SessionConfig   `mapstructure:"session"`
	Sink      SinkConfig      `mapstructure:"sink"`
	Log       LogConfig       `mapstructure:"log"`
}

// MetastoreConfig holds the connection configuration of the database backing
// the Hive Metastore.
type MetastoreConfig struct {
	Dialect                        string      `mapstructure:"dialect"`
	Host                           string      `mapstructure:"host"`
	Port                           int         `mapstructure:"port"`
	User                           string      `mapstructure:"user"`
	Password                       string      `mapstructure:"password"`
	DBName                         string      `mapstructure:"database"`
	SSLMode                        string      `mapstructure:"ssl_mode"`
	CloudSQLInstanceConnectionName string      `mapstructure:"cloudsql_instance_connection_name"`
	UsePrivateIP                   bool        `mapstructure:"use_private_ip"`
	Retry                          RetryConfig `mapstructure:"retry"`
}

// RetryConfig configures retries of metastore calls. MaxAttempts of 1 disables retries.
type RetryConfig struct {
	MaxAttempts       int           `mapstructure:"max_attempts"`
	InitialBackoff    time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff        time.Duration `mapstructure:"max_backoff"`
	BackoffMultiplier float64       `mapstructure:"backoff_multiplier"`
}

// CatalogConfig describes the catalog owning the target tables. Properties are
// written as "key=value" entries because property keys are case sensitive.
type CatalogConfig struct {
	Name           string              `mapstructure:"name"`
	StorageEntries []string            `mapstructure:"storage_properties"`
	BackendEntries []string            `mapstructure:"backend_config"`
	Broker         string              `mapstructure:"broker_name"`
	Brokers        map[string][]string `mapstructure:"brokers"`

	storageProps map[string]string
	backendProps map[string]string
}

// SessionConfig is the session context of statements bound by the CLI.
type SessionConfig struct {
	User      string `mapstructure:"user"`
	TextCodec string `mapstructure:"text_compression"`
}

// SinkConfig holds sink binder settings.
type SinkConfig struct {
	StagingRoot string `mapstructure:"staging_root"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var (
	_ sink.Catalog        = (*CatalogConfig)(nil)
	_ sink.BrokerResolver = (*CatalogConfig)(nil)
	_ sink.Session        = SessionConfig{}
)

// flagKeys maps command line flag names to config keys.
var flagKeys = map[string]string{
	"dialect":                           "metastore.dialect",
	"host":                              "metastore.host",
	"port":                              "metastore.port",
	"username":                          "metastore.user",
	"password":                          "metastore.password",
	"database":                          "metastore.database",
	"cloudsql-instance-connection-name": "metastore.cloudsql_instance_connection_name",
	"cloudsql-use-private-ip":           "metastore.use_private_ip",
	"session-user":                      "session.user",
	"staging-root":                      "sink.staging_root",
	"log-level":                         "log.level",
	"log-format":                        "log.format",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("metastore.dialect", "mysql")
	v.SetDefault("metastore.host", "localhost")
	v.SetDefault("metastore.port", 0)
	v.SetDefault("metastore.user", "")
	v.SetDefault("metastore.password", "")
	v.SetDefault("metastore.database", "metastore")
	v.SetDefault("metastore.ssl_mode", "disable")
	v.SetDefault("metastore.cloudsql_instance_connection_name", "")
	v.SetDefault("metastore.use_private_ip", false)
	v.SetDefault("metastore.retry.max_attempts", 1)
	v.SetDefault("metastore.retry.initial_backoff", 100*time.Millisecond)
	v.SetDefault("metastore.retry.max_backoff", 2*time.Second)
	v.SetDefault("metastore.retry.backoff_multiplier", 2.0)
	v.SetDefault("catalog.name", "hive")
	v.SetDefault("catalog.storage_properties", []string{})
	v.SetDefault("catalog.backend_config", []string{})
	v.SetDefault("catalog.broker_name", "")
	v.SetDefault("session.user", "")
	v.SetDefault("session.text_compression", "")
	v.SetDefault("sink.staging_root", sink.DefaultStagingRoot)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Default returns the configuration used when no file, env or flag overrides it.
func Default() *Config {
	cfg, _ := Load("", nil)
	return cfg
}

// Load reads configuration from the optional file at path, HIVE_SINK_*
// environment variables and the given flags, in increasing precedence.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Catalog.parse(); err != nil {
		return nil, err
	}
	cfg.Metastore.Dialect = strings.ToLower(strings.TrimSpace(cfg.Metastore.Dialect))
	return &cfg, nil
}

// Validate checks that the configuration is usable for connecting to the metastore.
func (c *Config) Validate() error {
	if err := ValidateDialect(c.Metastore.Dialect); err != nil {
		return err
	}
	m := c.Metastore
	if strings.HasPrefix(m.Dialect, "cloudsql") {
		if m.CloudSQLInstanceConnectionName == "" {
			return fmt.Errorf("cloudsql_instance_connection_name is required for dialect %s", m.Dialect)
		}
	} else if m.Host == "" {
		return fmt.Errorf("metastore host is required")
	}
	if m.Port < 0 || m.Port > 65535 {
		return fmt.Errorf("invalid metastore port: %d", m.Port)
	}
	if m.Retry.MaxAttempts < 1 {
		return fmt.Errorf("metastore retry max_attempts must be at least 1, got %d", m.Retry.MaxAttempts)
	}
	if c.Catalog.Broker != "" {
		if _, err := c.Catalog.BrokerAddresses(context.Background(), c.Catalog.Broker); err != nil {
			return err
		}
	}
	return nil
}

// ValidateDialect returns an error unless dialect is one of SupportedDialects.
func ValidateDialect(dialect string) error {
	for _, d := range SupportedDialects {
		if dialect == d {
			return nil
		}
	}
	return fmt.Errorf("unsupported dialect: %s (only %s are supported)", dialect, strings.Join(SupportedDialects, ", "))
}

func (c *CatalogConfig) parse() error {
	var err error
	if c.storageProps, err = parseProperties(c.StorageEntries); err != nil {
		return fmt.Errorf("catalog storage_properties: %w", err)
	}
	if c.backendProps, err = parseProperties(c.BackendEntries); err != nil {
		return fmt.Errorf("catalog backend_config: %w", err)
	}
	return nil
}

func parseProperties(entries []string) (map[string]string, error) {
	props := make(map[string]string, len(entries))
	for _, e := range entries {
		k, v, ok := strings.Cut(e, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("malformed property %q, expected key=value", e)
		}
		props[k] = strings.TrimSpace(v)
	}
	return props, nil
}

// StorageProperties implements sink.Catalog.
func (c *CatalogConfig) StorageProperties() map[string]string { return c.storageProps }

// BackendConfig implements sink.Catalog.
func (c *CatalogConfig) BackendConfig() map[string]string { return c.backendProps }

// BrokerName implements sink.Catalog.
func (c *CatalogConfig) BrokerName() string { return c.Broker }

// BrokerAddresses resolves a broker name from the brokers section. Viper
// lower-cases map keys, so the lookup is case insensitive.
func (c *CatalogConfig) BrokerAddresses(_ context.Context, brokerName string) ([]sink.BrokerAddress, error) {
	endpoints, ok := c.Brokers[strings.ToLower(brokerName)]
	if !ok || len(endpoints) == 0 {
		return nil, fmt.Errorf("broker %q is not configured", brokerName)
	}
	addrs := make([]sink.BrokerAddress, 0, len(endpoints))
	for _, ep := range endpoints {
		host, portStr, err := net.SplitHostPort(strings.TrimSpace(ep))
		if err != nil {
			return nil, fmt.Errorf("broker %q has malformed endpoint %q: %w", brokerName, ep, err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("broker %q has malformed port in %q: %w", brokerName, ep, err)
		}
		addrs = append(addrs, sink.BrokerAddress{Host: host, Port: port})
	}
	return addrs, nil
}

// CurrentUser implements sink.Session.
func (s SessionConfig) CurrentUser() string { return s.User }

// TextCompression implements sink.Session.
func (s SessionConfig) TextCompression() string { return s.TextCodec }
