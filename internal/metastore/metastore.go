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

// Package metastore reads table and partition metadata straight from the
// relational database backing a Hive Metastore.
package metastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/GoogleCloudPlatform/hive-table-sink/internal/config"
	"github.com/GoogleCloudPlatform/hive-table-sink/internal/sink"
)

// DialectHandler abstracts the differences between metastore backing databases.
type DialectHandler interface {
	CreateCloudSQLPool(cfg config.MetastoreConfig) (*sql.DB, error)
	CreateStandardPool(cfg config.MetastoreConfig) (*sql.DB, error)
	QuoteIdentifier(name string) string
	// Placeholder returns the bind parameter marker for the n-th argument, 1-based.
	Placeholder(n int) string
}

var (
	dialectHandlers = make(map[string]DialectHandler)
	mu              sync.RWMutex
)

func RegisterDialectHandler(dialect string, handler DialectHandler) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := dialectHandlers[dialect]; exists {
		zap.L().Warn("dialect handler is being overwritten", zap.String("dialect", dialect))
	}
	dialectHandlers[dialect] = handler
}

func GetDialectHandler(dialect string) (DialectHandler, error) {
	mu.RLock()
	defer mu.RUnlock()
	handler, ok := dialectHandlers[dialect]
	if !ok {
		return nil, &ErrInvalidInput{Msg: fmt.Sprintf("unsupported metastore dialect: %s", dialect)}
	}
	return handler, nil
}

// DB holds the metastore connection pool and dialect handler.
type DB struct {
	Pool    *sql.DB
	Handler DialectHandler
	Config  config.MetastoreConfig
	Logger  *zap.Logger
}

var _ sink.PartitionLister = (*DB)(nil)

// New opens a pool for cfg.Dialect and verifies it with a ping.
func New(ctx context.Context, cfg config.MetastoreConfig, logger *zap.Logger) (*DB, error) {
	handler, err := GetDialectHandler(cfg.Dialect)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var pool *sql.DB
	if strings.HasPrefix(cfg.Dialect, "cloudsql") {
		pool, err = handler.CreateCloudSQLPool(cfg)
	} else {
		pool, err = handler.CreateStandardPool(cfg)
	}
	if err != nil {
		return nil, &ErrDatabaseConnection{Msg: fmt.Sprintf("failed to create pool for dialect %s", cfg.Dialect), Err: err}
	}

	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, &ErrDatabaseConnection{Msg: fmt.Sprintf("ping failed for dialect %s", cfg.Dialect), Err: err}
	}

	logger.Debug("connected to metastore",
		zap.String("dialect", cfg.Dialect),
		zap.String("database", cfg.DBName))
	return &DB{Pool: pool, Handler: handler, Config: cfg, Logger: logger}, nil
}

func (db *DB) Ping(ctx context.Context) error {
	if db.Pool == nil {
		return &ErrDatabaseConnection{Msg: "connection pool is not initialized"}
	}
	if err := db.Pool.PingContext(ctx); err != nil {
		return &ErrDatabaseConnection{Msg: "ping failed", Err: err}
	}
	return nil
}

func (db *DB) Close() error {
	if db.Pool != nil {
		return db.Pool.Close()
	}
	db.logger().Warn("attempted to close a nil metastore connection pool")
	return nil
}

func (db *DB) logger() *zap.Logger {
	if db.Logger == nil {
		return zap.NewNop()
	}
	return db.Logger
}

// ListPartitions returns the partitions of dbName.tableName in metastore
// order, each with its values in partition-key order.
func (db *DB) ListPartitions(ctx context.Context, dbName, tableName string) ([]sink.Partition, error) {
	if err := db.ready(); err != nil {
		return nil, err
	}
	dbName, tableName = normalizeName(dbName), normalizeName(tableName)

	rows, err := db.Pool.QueryContext(ctx, db.render(listPartitionsSQL), dbName, tableName)
	if err != nil {
		return nil, queryError(ctx, fmt.Sprintf("listing partitions of %s.%s", dbName, tableName), err)
	}
	defer rows.Close()

	parts := []sink.Partition{}
	var current int64 = -1
	for rows.Next() {
		var (
			partID      int64
			inputFormat sql.NullString
			location    sql.NullString
			value       sql.NullString
		)
		if err := rows.Scan(&partID, &inputFormat, &location, &value); err != nil {
			return nil, &ErrQueryExecution{Msg: "scanning partition row", Err: err}
		}
		if partID != current || len(parts) == 0 {
			current = partID
			parts = append(parts, sink.Partition{
				Values: []string{},
				SD:     sink.StorageDescriptor{InputFormat: inputFormat.String, Location: location.String},
			})
		}
		if value.Valid {
			p := &parts[len(parts)-1]
			p.Values = append(p.Values, value.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(ctx, "iterating partition rows", err)
	}

	db.logger().Debug("listed partitions",
		zap.String("db", dbName),
		zap.String("table", tableName),
		zap.Int("count", len(parts)))
	return parts, nil
}

// GetTable loads the schema, storage descriptor, serde and table parameters of
// dbName.tableName. The returned table's Catalog is set to catalog.
func (db *DB) GetTable(ctx context.Context, dbName, tableName string, catalog sink.Catalog) (*sink.TargetTable, error) {
	if err := db.ready(); err != nil {
		return nil, err
	}
	dbName, tableName = normalizeName(dbName), normalizeName(tableName)
	qualified := dbName + "." + tableName

	var (
		tblID       int64
		sdID        int64
		cdID        sql.NullInt64
		serdeID     sql.NullInt64
		inputFormat sql.NullString
		location    sql.NullString
		numBuckets  sql.NullInt64
		serdeLib    sql.NullString
	)
	err := db.Pool.QueryRowContext(ctx, db.render(getTableSQL), dbName, tableName).
		Scan(&tblID, &sdID, &cdID, &serdeID, &inputFormat, &location, &numBuckets, &serdeLib)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &ErrTableNotFound{DBName: dbName, TableName: tableName}
	}
	if err != nil {
		return nil, queryError(ctx, "loading table "+qualified, err)
	}

	table := &sink.TargetTable{
		DBName:  dbName,
		Name:    tableName,
		Catalog: catalog,
		SD: sink.StorageDescriptor{
			InputFormat: inputFormat.String,
			Location:    location.String,
			NumBuckets:  int(numBuckets.Int64),
			SerdeLib:    serdeLib.String,
			SerdeParams: map[string]string{},
		},
		Params: map[string]string{},
	}
	if !numBuckets.Valid {
		table.SD.NumBuckets = -1
	}

	if cdID.Valid {
		cols, err := db.columns(ctx, getColumnsSQL, cdID.Int64, false)
		if err != nil {
			return nil, err
		}
		table.Columns = append(table.Columns, cols...)
	}
	partKeys, err := db.columns(ctx, getPartitionKeysSQL, tblID, true)
	if err != nil {
		return nil, err
	}
	table.Columns = append(table.Columns, partKeys...)

	if table.SD.BucketColumns, err = db.bucketColumns(ctx, sdID); err != nil {
		return nil, err
	}
	if table.Params, err = db.params(ctx, getTableParamsSQL, tblID); err != nil {
		return nil, err
	}
	if serdeID.Valid {
		if table.SD.SerdeParams, err = db.params(ctx, getSerdeParamsSQL, serdeID.Int64); err != nil {
			return nil, err
		}
	}

	db.logger().Debug("loaded table",
		zap.String("table", qualified),
		zap.Int("columns", len(table.Columns)),
		zap.Int("partition_keys", len(partKeys)))
	return table, nil
}

func (db *DB) columns(ctx context.Context, tmpl string, id int64, partitionKeys bool) ([]sink.Column, error) {
	rows, err := db.Pool.QueryContext(ctx, db.render(tmpl), id)
	if err != nil {
		return nil, queryError(ctx, "loading columns", err)
	}
	defer rows.Close()

	var cols []sink.Column
	for rows.Next() {
		var name string
		var typ sql.NullString
		if err := rows.Scan(&name, &typ); err != nil {
			return nil, &ErrQueryExecution{Msg: "scanning column row", Err: err}
		}
		cols = append(cols, sink.Column{Name: name, Type: typ.String, IsPartitionKey: partitionKeys})
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(ctx, "iterating column rows", err)
	}
	return cols, nil
}

func (db *DB) bucketColumns(ctx context.Context, sdID int64) ([]string, error) {
	rows, err := db.Pool.QueryContext(ctx, db.render(getBucketColumnsSQL), sdID)
	if err != nil {
		return nil, queryError(ctx, "loading bucketing columns", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s sql.NullString
		if err := rows.Scan(&s); err != nil {
			return nil, &ErrQueryExecution{Msg: "scanning bucketing column", Err: err}
		}
		if s.Valid {
			out = append(out, s.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(ctx, "iterating bucketing columns", err)
	}
	return out, nil
}

func (db *DB) params(ctx context.Context, tmpl string, id int64) (map[string]string, error) {
	rows, err := db.Pool.QueryContext(ctx, db.render(tmpl), id)
	if err != nil {
		return nil, queryError(ctx, "loading parameters", err)
	}
	defer rows.Close()

	params := map[string]string{}
	for rows.Next() {
		var key string
		var value sql.NullString
		if err := rows.Scan(&key, &value); err != nil {
			return nil, &ErrQueryExecution{Msg: "scanning parameter row", Err: err}
		}
		params[key] = value.String
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(ctx, "iterating parameter rows", err)
	}
	return params, nil
}

func (db *DB) ready() error {
	if db.Pool == nil {
		return &ErrDatabaseConnection{Msg: "connection pool is not initialized"}
	}
	if db.Handler == nil {
		return &ErrInvalidInput{Msg: "dialect handler not initialized"}
	}
	return nil
}

// Hive stores database and table names lower-cased.
func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
