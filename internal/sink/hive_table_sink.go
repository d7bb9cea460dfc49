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

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// HiveTableSink binds writes into Hive tables. It holds no per-statement
// state and may be shared between goroutines.
type HiveTableSink struct {
	metastore    PartitionLister
	brokers      BrokerResolver
	session      Session
	stagingRoot  string
	newStagingID func() string
	logger       *zap.Logger
}

var _ DataSink = (*HiveTableSink)(nil)

// Option configures a HiveTableSink.
type Option func(*HiveTableSink)

// WithLogger sets the logger used for bind diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(s *HiveTableSink) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStagingRoot overrides DefaultStagingRoot.
func WithStagingRoot(root string) Option {
	return func(s *HiveTableSink) { s.stagingRoot = root }
}

// WithStagingIDFunc overrides how the leaf directory of a staging path is named.
func WithStagingIDFunc(fn func() string) Option {
	return func(s *HiveTableSink) { s.newStagingID = fn }
}

// WithBrokerResolver sets the resolver used for broker-mediated locations.
func WithBrokerResolver(brokers BrokerResolver) Option {
	return func(s *HiveTableSink) { s.brokers = brokers }
}

// NewHiveTableSink creates a sink binder backed by the given metastore and session.
func NewHiveTableSink(metastore PartitionLister, session Session, opts ...Option) *HiveTableSink {
	s := &HiveTableSink{
		metastore:   metastore,
		session:     session,
		stagingRoot: DefaultStagingRoot,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SupportedFileFormatTypes returns the formats a Hive table sink can write.
func (s *HiveTableSink) SupportedFileFormatTypes() map[FileFormat]struct{} {
	return hiveSupportedFormats
}

// Bind resolves table into a SinkDescriptor. When writeCtx is not nil its
// overwrite flag is copied into the descriptor and the resolved write path and
// file type are reported back through it. No descriptor is returned, and
// writeCtx is left untouched, if any step fails.
func (s *HiveTableSink) Bind(ctx context.Context, table *TargetTable, writeCtx *InsertContext) (*SinkDescriptor, error) {
	if table == nil {
		return nil, &ErrInvalidInput{Msg: "target table is nil"}
	}
	if s.metastore == nil {
		return nil, &ErrInvalidInput{Msg: "metastore client is not configured"}
	}
	log := s.logger.With(zap.String("db", table.DBName), zap.String("table", table.Name))

	format, err := resolveFileFormat(table.SD.InputFormat, s.SupportedFileFormatTypes())
	if err != nil {
		return nil, err
	}

	desc := &SinkDescriptor{
		DBName:    table.DBName,
		TableName: table.Name,
		Columns:   sinkColumns(table),
		Bucketing: Bucketing{
			Columns:     append([]string{}, table.SD.BucketColumns...),
			BucketCount: table.SD.NumBuckets,
		},
		Format: format,
	}

	var user, textCompression string
	if s.session != nil {
		user = s.session.CurrentUser()
		textCompression = s.session.TextCompression()
	}

	resolver := NewLocationResolver(table.Catalog, s.stagingRoot)
	resolver.NewStagingID = s.newStagingID
	desc.Location, err = resolver.ResolveTable(table.SD.Location, user)
	if err != nil {
		return nil, err
	}
	log.Debug("resolved table location",
		zap.String("write_path", desc.Location.WritePath),
		zap.String("target_path", desc.Location.TargetPath),
		zap.String("file_type", string(desc.Location.FileType)))

	desc.Compression = ResolveCompression(format, table.Params, textCompression)
	desc.Serde = ResolveSerde(table.SD.SerdeLib, table.Params, table.SD.SerdeParams)

	if desc.Location.FileType == FileTypeBroker {
		desc.BrokerAddresses, err = s.brokerAddresses(ctx, resolver.BrokerName)
		if err != nil {
			return nil, err
		}
	}

	desc.Partitions, err = enumeratePartitions(ctx, s.metastore, resolver, table.DBName, table.Name, s.SupportedFileFormatTypes())
	if err != nil {
		return nil, err
	}

	desc.BackendConfig = map[string]string{}
	if table.Catalog != nil {
		for k, v := range table.Catalog.BackendConfig() {
			desc.BackendConfig[k] = v
		}
	}

	if writeCtx != nil {
		desc.Overwrite = writeCtx.Overwrite
		// Object stores report the human-facing form, not the native one.
		if desc.Location.FileType == FileTypeObjectStore {
			writeCtx.WritePath = desc.Location.OriginalWritePath
		} else {
			writeCtx.WritePath = desc.Location.WritePath
		}
		writeCtx.FileType = desc.Location.FileType
	}

	log.Info("bound hive table sink",
		zap.String("format", string(desc.Format)),
		zap.String("compression", desc.Compression),
		zap.Int("partitions", len(desc.Partitions)),
		zap.Bool("overwrite", desc.Overwrite))
	return desc, nil
}

func (s *HiveTableSink) brokerAddresses(ctx context.Context, brokerName string) ([]BrokerAddress, error) {
	if s.brokers == nil {
		return nil, &ErrInvalidInput{Msg: "location requires a broker but no broker resolver is configured"}
	}
	addrs, err := s.brokers.BrokerAddresses(ctx, brokerName)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve broker %q: %w", brokerName, err)
	}
	if len(addrs) == 0 {
		return nil, &ErrInvalidInput{Msg: fmt.Sprintf("broker %q has no addresses", brokerName)}
	}
	return addrs, nil
}

// sinkColumns tags every schema column, in schema order, by membership in the
// table's partition column set.
func sinkColumns(table *TargetTable) []SinkColumn {
	partNames := make(map[string]struct{})
	for _, name := range table.PartitionColumnNames() {
		partNames[name] = struct{}{}
	}
	columns := make([]SinkColumn, 0, len(table.Columns))
	for _, col := range table.Columns {
		kind := ColumnKindRegular
		if _, ok := partNames[col.Name]; ok {
			kind = ColumnKindPartitionKey
		}
		columns = append(columns, SinkColumn{Name: col.Name, Kind: kind})
	}
	return columns
}

// Explain renders the descriptor for EXPLAIN output.
func (d *SinkDescriptor) Explain(prefix string, level ExplainLevel) string {
	var b strings.Builder
	b.WriteString(prefix + "HIVE TABLE SINK\n")
	if level == ExplainBrief {
		return b.String()
	}
	fmt.Fprintf(&b, "%s  table: %s.%s\n", prefix, d.DBName, d.TableName)
	fmt.Fprintf(&b, "%s  format: %s, compression: %s\n", prefix, d.Format, d.Compression)
	fmt.Fprintf(&b, "%s  location: %s (%s)\n", prefix, d.Location.TargetPath, d.Location.FileType)
	if d.Location.WritePath != d.Location.TargetPath {
		fmt.Fprintf(&b, "%s  write path: %s\n", prefix, d.Location.WritePath)
	}
	if d.Overwrite {
		fmt.Fprintf(&b, "%s  overwrite: true\n", prefix)
	}
	fmt.Fprintf(&b, "%s  partitions: %d\n", prefix, len(d.Partitions))
	if level == ExplainVerbose {
		for _, p := range d.Partitions {
			fmt.Fprintf(&b, "%s    [%s] %s %s\n", prefix, strings.Join(p.Values, ", "), p.Format, p.Location.TargetPath)
		}
	}
	return b.String()
}
