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
package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GoogleCloudPlatform/hive-table-sink/internal/config"
	"github.com/GoogleCloudPlatform/hive-table-sink/internal/logging"
	"github.com/GoogleCloudPlatform/hive-table-sink/internal/metastore"
	_ "github.com/GoogleCloudPlatform/hive-table-sink/internal/metastore/mysql"
	_ "github.com/GoogleCloudPlatform/hive-table-sink/internal/metastore/postgres"
	_ "github.com/GoogleCloudPlatform/hive-table-sink/internal/metastore/sqlserver"
	"github.com/GoogleCloudPlatform/hive-table-sink/internal/sink"
)

var (
	configFile string
	tablesFlag string
	defaultDB  string

	appConfig *config.Config
	logger    = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "hive_sink_binder",
	Short: "Bind INSERT targets on Hive tables to sink descriptors",
	Long: `hive_sink_binder reads Hive table metadata from the metastore database and
produces the sink descriptor an execution engine needs to write into the table:
file format, compression, text serde, staging and target locations, partitions.`,
	SilenceUsage:      true,
	PersistentPreRunE: initFlagsAndConfig,
}

// initFlagsAndConfig loads configuration from file, environment and flags.
func initFlagsAndConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	l, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	appConfig = cfg
	logger = l
	zap.ReplaceGlobals(logger)
	return nil
}

func setupMetastore(ctx context.Context) (*metastore.DB, error) {
	if err := appConfig.Validate(); err != nil {
		return nil, err
	}
	db, err := metastore.New(ctx, appConfig.Metastore, logger)
	if err != nil {
		logger.Error("failed to connect to metastore", zap.Error(err))
		return nil, fmt.Errorf("failed to connect to metastore: %w", err)
	}
	return db, nil
}

// partitionLister wraps db in a RetryingLister when retries are configured.
func partitionLister(db *metastore.DB) sink.PartitionLister {
	opts := metastore.RetryOptionsFromConfig(appConfig.Metastore.Retry)
	if opts.MaxAttempts <= 1 {
		return db
	}
	return metastore.NewRetryingLister(db, opts, logger)
}

func newHiveTableSink(db *metastore.DB) *sink.HiveTableSink {
	return sink.NewHiveTableSink(partitionLister(db), appConfig.Session,
		sink.WithLogger(logger),
		sink.WithStagingRoot(appConfig.Sink.StagingRoot),
		sink.WithBrokerResolver(&appConfig.Catalog),
	)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	defer func() { _ = logger.Sync() }()
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Path to a YAML/JSON/TOML config file (env vars use the HIVE_SINK_ prefix)")

	// Metastore connection flags
	flags.String("dialect", "", fmt.Sprintf("Metastore database dialect (%s)", strings.Join(config.SupportedDialects, ", ")))
	flags.String("host", "", "Metastore database host")
	flags.Int("port", 0, "Metastore database port")
	flags.String("username", "", "Metastore database username")
	flags.String("password", "", "Metastore database password")
	flags.String("database", "", "Metastore database name")
	flags.String("cloudsql-instance-connection-name", "", "Cloud SQL instance connection name (for Cloud SQL dialects)")
	flags.Bool("cloudsql-use-private-ip", false, "Use private IP for Cloud SQL connection (Cloud SQL)")

	// Session and sink flags
	flags.String("session-user", "", "Session user owning the staging directory")
	flags.String("staging-root", "", "Staging root for filesystem and broker writes (default "+sink.DefaultStagingRoot+")")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.String("log-format", "", "Log format (console or json)")

	flags.StringVar(&tablesFlag, "tables", "", "Tables to process: db.table, db.[t1,t2] or table with --default-database - MANDATORY")
	flags.StringVar(&defaultDB, "default-database", "default", "Hive database for unqualified table names")

	rootCmd.AddCommand(bindCmd)
	rootCmd.AddCommand(listPartitionsCmd)
	rootCmd.AddCommand(explainCmd)
}
