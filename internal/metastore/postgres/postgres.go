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
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"strings"

	"cloud.google.com/go/cloudsqlconn"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"

	"github.com/GoogleCloudPlatform/hive-table-sink/internal/config"
	"github.com/GoogleCloudPlatform/hive-table-sink/internal/metastore"
)

const defaultPort = 5432

// postgresHandler implements metastore.DialectHandler for metastores backed by
// PostgreSQL. The Hive schema there uses upper-case quoted identifiers.
type postgresHandler struct{}

var _ metastore.DialectHandler = (*postgresHandler)(nil)

// CreateCloudSQLPool for PostgreSQL
func (h postgresHandler) CreateCloudSQLPool(cfg config.MetastoreConfig) (*sql.DB, error) {
	if cfg.User == "" || cfg.DBName == "" || cfg.CloudSQLInstanceConnectionName == "" {
		return nil, fmt.Errorf("missing required CloudSQL connection parameter (user, database, instance)")
	}
	instance := cfg.CloudSQLInstanceConnectionName

	pgxCfg, err := pgx.ParseConfig(keywordDSN(map[string]string{
		"user":     cfg.User,
		"password": cfg.Password,
		"database": cfg.DBName,
	}))
	if err != nil {
		return nil, fmt.Errorf("pgx.ParseConfig: %w", err)
	}

	var opts []cloudsqlconn.Option
	if cfg.UsePrivateIP {
		opts = append(opts, cloudsqlconn.WithDefaultDialOptions(cloudsqlconn.WithPrivateIP()))
	}
	d, err := cloudsqlconn.NewDialer(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("cloudsqlconn.NewDialer: %w", err)
	}
	pgxCfg.DialFunc = func(ctx context.Context, network, addr string) (net.Conn, error) {
		return d.Dial(ctx, instance)
	}

	dbPool, err := sql.Open("pgx", stdlib.RegisterConnConfig(pgxCfg))
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	return dbPool, nil
}

// CreateStandardPool creates a PostgreSQL pool through lib/pq.
func (h postgresHandler) CreateStandardPool(cfg config.MetastoreConfig) (*sql.DB, error) {
	dbPool, err := sql.Open("postgres", standardDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	return dbPool, nil
}

func standardDSN(cfg config.MetastoreConfig) string {
	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return keywordDSN(map[string]string{
		"host":     cfg.Host,
		"port":     strconv.Itoa(port),
		"user":     cfg.User,
		"password": cfg.Password,
		"dbname":   cfg.DBName,
		"sslmode":  sslMode,
	})
}

var dsnKeyOrder = []string{"host", "port", "user", "password", "database", "dbname", "sslmode"}

// keywordDSN builds a libpq keyword/value string, quoting values as needed.
func keywordDSN(kv map[string]string) string {
	var parts []string
	for _, k := range dsnKeyOrder {
		v, ok := kv[k]
		if !ok || v == "" {
			continue
		}
		if strings.ContainsAny(v, " '\\") {
			v = "'" + strings.NewReplacer("\\", "\\\\", "'", "\\'").Replace(v) + "'"
		}
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, " ")
}

// QuoteIdentifier for PostgreSQL
func (h postgresHandler) QuoteIdentifier(name string) string {
	return pq.QuoteIdentifier(name)
}

func (h postgresHandler) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

func init() {
	metastore.RegisterDialectHandler("postgres", postgresHandler{})
	metastore.RegisterDialectHandler("cloudsqlpostgres", postgresHandler{})
}
