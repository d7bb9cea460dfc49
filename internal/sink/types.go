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
package sink

// FileFormat is the physical file format the execution engine writes.
type FileFormat string

const (
	FormatCSVPlain FileFormat = "CSV_PLAIN"
	FormatORC      FileFormat = "ORC"
	FormatParquet  FileFormat = "PARQUET"
	FormatText     FileFormat = "TEXT"
)

// FileType classifies the storage backend a location lives on.
type FileType string

const (
	FileTypeObjectStore FileType = "OBJECT_STORE"
	FileTypeFilesystem  FileType = "FILESYSTEM"
	FileTypeBroker      FileType = "BROKER"
)

// ColumnKind tags a sink column as a partition key or a regular data column.
type ColumnKind string

const (
	ColumnKindPartitionKey ColumnKind = "PARTITION_KEY"
	ColumnKindRegular      ColumnKind = "REGULAR"
)

// Column is one column of the target table schema.
type Column struct {
	Name           string
	Type           string
	IsPartitionKey bool
}

// StorageDescriptor is the remote (metastore) storage description of a table
// or partition.
type StorageDescriptor struct {
	InputFormat   string
	Location      string
	BucketColumns []string
	NumBuckets    int
	SerdeLib      string
	SerdeParams   map[string]string
}

// TargetTable is a read-only snapshot of the table being written to.
type TargetTable struct {
	DBName  string
	Name    string
	Columns []Column
	SD      StorageDescriptor
	Params  map[string]string
	Catalog Catalog
}

// PartitionColumnNames returns the partition key column names in schema order.
func (t *TargetTable) PartitionColumnNames() []string {
	var names []string
	for _, c := range t.Columns {
		if c.IsPartitionKey {
			names = append(names, c.Name)
		}
	}
	return names
}

// Partition is an existing partition as reported by the metastore.
type Partition struct {
	Values []string
	SD     StorageDescriptor
}

// SinkColumn is a column of the sink descriptor.
type SinkColumn struct {
	Name string     `json:"name"`
	Kind ColumnKind `json:"kind"`
}

// Bucketing is passed through from the table storage descriptor.
type Bucketing struct {
	Columns     []string `json:"columns"`
	BucketCount int      `json:"bucketCount"`
}

// SerdeSpec holds the text serialization settings.
type SerdeSpec struct {
	FieldDelim      string `json:"fieldDelim"`
	LineDelim       string `json:"lineDelim"`
	CollectionDelim string `json:"collectionDelim"`
	MapKVDelim      string `json:"mapKvDelim"`
	EscapeChar      *byte  `json:"escapeChar,omitempty"`
	NullFormat      string `json:"nullFormat"`
}

// LocationSpec describes where the engine writes and where the data ends up.
type LocationSpec struct {
	WritePath         string   `json:"writePath"`
	OriginalWritePath string   `json:"originalWritePath"`
	TargetPath        string   `json:"targetPath"`
	FileType          FileType `json:"fileType"`
}

// PartitionDescriptor describes one existing partition of the target table.
type PartitionDescriptor struct {
	Values   []string     `json:"values"`
	Format   FileFormat   `json:"format"`
	Location LocationSpec `json:"location"`
}

// BrokerAddress is a broker endpoint used for broker-mediated file access.
type BrokerAddress struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// SinkDescriptor is the fully resolved write plan handed to the execution layer.
type SinkDescriptor struct {
	DBName          string                `json:"database"`
	TableName       string                `json:"table"`
	Columns         []SinkColumn          `json:"columns"`
	Bucketing       Bucketing             `json:"bucketing"`
	Format          FileFormat            `json:"format"`
	Compression     string                `json:"compression"`
	Serde           SerdeSpec             `json:"serde"`
	Location        LocationSpec          `json:"location"`
	Partitions      []PartitionDescriptor `json:"partitions"`
	Overwrite       bool                  `json:"overwrite"`
	BackendConfig   map[string]string     `json:"backendConfig"`
	BrokerAddresses []BrokerAddress       `json:"brokerAddresses,omitempty"`
}

// InsertContext carries statement-level write state. Bind reads Overwrite and
// fills in WritePath and FileType so commit logic knows where data was staged.
type InsertContext struct {
	Overwrite bool
	WritePath string
	FileType  FileType
}
