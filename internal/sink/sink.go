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

// Package sink binds a write into an external table to a fully resolved sink
// descriptor the execution layer can run without further metadata lookups.
package sink

import (
	"context"
)

// ExplainLevel controls how much detail SinkDescriptor.Explain prints.
type ExplainLevel int

const (
	ExplainBrief ExplainLevel = iota
	ExplainNormal
	ExplainVerbose
)

// DataSink is implemented once per external table kind.
type DataSink interface {
	SupportedFileFormatTypes() map[FileFormat]struct{}
	Bind(ctx context.Context, table *TargetTable, writeCtx *InsertContext) (*SinkDescriptor, error)
}

// PartitionLister lists all partitions of a table in metastore order.
type PartitionLister interface {
	ListPartitions(ctx context.Context, dbName, tableName string) ([]Partition, error)
}

// Catalog exposes the storage configuration of the catalog owning a table.
type Catalog interface {
	StorageProperties() map[string]string
	// BackendConfig is handed to the execution layer verbatim.
	BackendConfig() map[string]string
	BrokerName() string
}

// BrokerResolver resolves a broker name to its endpoints.
type BrokerResolver interface {
	BrokerAddresses(ctx context.Context, brokerName string) ([]BrokerAddress, error)
}

// Session is the statement's user context.
type Session interface {
	CurrentUser() string
	TextCompression() string
}
