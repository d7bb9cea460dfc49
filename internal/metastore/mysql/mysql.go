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
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strings"

	"cloud.google.com/go/cloudsqlconn"
	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/GoogleCloudPlatform/hive-table-sink/internal/config"
	"github.com/GoogleCloudPlatform/hive-table-sink/internal/metastore"
)

const defaultPort = 3306

// mysqlHandler implements metastore.DialectHandler for metastores backed by MySQL.
type mysqlHandler struct{}

var _ metastore.DialectHandler = (*mysqlHandler)(nil)

func (h mysqlHandler) CreateCloudSQLPool(cfg config.MetastoreConfig) (*sql.DB, error) {
	if cfg.User == "" || cfg.Password == "" || cfg.DBName == "" || cfg.CloudSQLInstanceConnectionName == "" {
		return nil, fmt.Errorf("missing required CloudSQL connection parameter (user, password, database, instance)")
	}
	instance := cfg.CloudSQLInstanceConnectionName

	d, err := cloudsqlconn.NewDialer(context.Background(), cloudsqlconn.WithLazyRefresh())
	if err != nil {
		return nil, fmt.Errorf("cloudsqlconn.NewDialer: %w", err)
	}

	var opts []cloudsqlconn.DialOption
	if cfg.UsePrivateIP {
		opts = append(opts, cloudsqlconn.WithPrivateIP())
	}

	network := "cloudsql-" + instance
	mysql.RegisterDialContext(network, func(ctx context.Context, addr string) (net.Conn, error) {
		conn, dialErr := d.Dial(ctx, instance, opts...)
		if dialErr != nil {
			zap.L().Error("cloud sql dial failed", zap.String("instance", instance), zap.Error(dialErr))
		}
		return conn, dialErr
	})

	mysqlCfg := baseConfig(cfg)
	mysqlCfg.Net = network
	mysqlCfg.Addr = instance

	dbPool, err := sql.Open("mysql", mysqlCfg.FormatDSN())
	if err != nil {
		mysql.DeregisterDialContext(network)
		d.Close()
		return nil, fmt.Errorf("sql.Open failed for CloudSQL MySQL: %w", err)
	}
	return dbPool, nil
}

func (h mysqlHandler) CreateStandardPool(cfg config.MetastoreConfig) (*sql.DB, error) {
	dbPool, err := sql.Open("mysql", standardDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("sql.Open (standard mysql): %w", err)
	}
	return dbPool, nil
}

func standardDSN(cfg config.MetastoreConfig) string {
	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}
	mysqlCfg := baseConfig(cfg)
	mysqlCfg.Net = "tcp"
	mysqlCfg.Addr = net.JoinHostPort(cfg.Host, fmt.Sprint(port))
	return mysqlCfg.FormatDSN()
}

func baseConfig(cfg config.MetastoreConfig) *mysql.Config {
	mysqlCfg := mysql.NewConfig()
	mysqlCfg.User = cfg.User
	mysqlCfg.Passwd = cfg.Password
	mysqlCfg.DBName = cfg.DBName
	mysqlCfg.AllowNativePasswords = true
	mysqlCfg.ParseTime = true
	return mysqlCfg
}

func (h mysqlHandler) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (h mysqlHandler) Placeholder(int) string { return "?" }

func init() {
	metastore.RegisterDialectHandler("mysql", mysqlHandler{})
	metastore.RegisterDialectHandler("cloudsqlmysql", mysqlHandler{})
}
