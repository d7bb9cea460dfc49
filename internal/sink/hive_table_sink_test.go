package sink

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestTable(inputFormat, location string, catalog Catalog) *TargetTable {
	return &TargetTable{
		DBName: "sales",
		Name:   "orders",
		Columns: []Column{
			{Name: "id", Type: "bigint"},
			{Name: "amount", Type: "decimal(10,2)"},
			{Name: "dt", Type: "string", IsPartitionKey: true},
			{Name: "region", Type: "string", IsPartitionKey: true},
		},
		SD: StorageDescriptor{
			InputFormat:   inputFormat,
			Location:      location,
			BucketColumns: []string{"id"},
			NumBuckets:    8,
			SerdeLib:      lazySimpleSerde,
		},
		Params:  map[string]string{},
		Catalog: catalog,
	}
}

func emptyLister() *MockPartitionLister {
	lister := new(MockPartitionLister)
	lister.On("ListPartitions", mock.Anything, mock.Anything, mock.Anything).Return([]Partition{}, nil)
	return lister
}

func newTestSink(t *testing.T, lister PartitionLister, session Session, opts ...Option) *HiveTableSink {
	t.Helper()
	opts = append([]Option{WithStagingIDFunc(fixedStagingID), WithLogger(zaptest.NewLogger(t))}, opts...)
	return NewHiveTableSink(lister, session, opts...)
}

func TestBind_ObjectStoreParquetWithoutPartitions(t *testing.T) {
	catalog := &fakeCatalog{}
	table := newTestTable(parquetInputFormat, "s3://bucket/warehouse/t", catalog)
	s := newTestSink(t, emptyLister(), fakeSession{user: "alice", textCompression: "gzip"})

	desc, err := s.Bind(context.Background(), table, nil)
	require.NoError(t, err)

	assert.Equal(t, FormatParquet, desc.Format)
	assert.Equal(t, "s3://bucket/warehouse/t", desc.Location.TargetPath)
	assert.Equal(t, "s3://bucket/warehouse/t", desc.Location.OriginalWritePath)
	assert.Equal(t, "s3://bucket/warehouse/t", desc.Location.WritePath)
	assert.Equal(t, FileTypeObjectStore, desc.Location.FileType)
	assert.NotContains(t, desc.Location.WritePath, DefaultStagingRoot)
	assert.Empty(t, desc.Partitions)
	assert.Equal(t, CompressionPlain, desc.Compression)
	assert.Nil(t, desc.BrokerAddresses)
	assert.False(t, desc.Overwrite)
}

func TestBind_FilesystemORCIsStaged(t *testing.T) {
	table := newTestTable(orcInputFormat, "hdfs://nn/warehouse/t", &fakeCatalog{})
	s := newTestSink(t, emptyLister(), fakeSession{user: "alice"})

	desc, err := s.Bind(context.Background(), table, nil)
	require.NoError(t, err)

	assert.Equal(t, FormatORC, desc.Format)
	assert.Equal(t, "hdfs://nn/tmp/.hive_staging/alice/"+fixedStagingID(), desc.Location.WritePath)
	assert.Equal(t, desc.Location.WritePath, desc.Location.OriginalWritePath)
	assert.Equal(t, "hdfs://nn/warehouse/t", desc.Location.TargetPath)
	assert.Equal(t, FileTypeFilesystem, desc.Location.FileType)
}

func TestBind_ParquetIgnoresSessionCompression(t *testing.T) {
	table := newTestTable(parquetInputFormat, "hdfs://nn/warehouse/t", &fakeCatalog{})
	s := newTestSink(t, emptyLister(), fakeSession{user: "alice", textCompression: "snappy"})

	desc, err := s.Bind(context.Background(), table, nil)
	require.NoError(t, err)
	assert.Equal(t, "plain", desc.Compression)
}

func TestBind_TextUsesSessionCompressionAndSerde(t *testing.T) {
	table := newTestTable(textInputFormat, "hdfs://nn/warehouse/t", &fakeCatalog{})
	table.SD.SerdeParams = map[string]string{PropFieldDelim: ",", PropEscapeDelim: `\`}
	s := newTestSink(t, emptyLister(), fakeSession{user: "alice", textCompression: "GZIP"})

	desc, err := s.Bind(context.Background(), table, nil)
	require.NoError(t, err)
	assert.Equal(t, FormatText, desc.Format)
	assert.Equal(t, "gzip", desc.Compression)
	assert.Equal(t, ",", desc.Serde.FieldDelim)
	require.NotNil(t, desc.Serde.EscapeChar)
	assert.Equal(t, byte('\\'), *desc.Serde.EscapeChar)
}

func TestBind_ColumnsTaggedByPartitionMembership(t *testing.T) {
	table := newTestTable(orcInputFormat, "s3://bucket/warehouse/t", &fakeCatalog{})
	s := newTestSink(t, emptyLister(), fakeSession{user: "alice"})

	desc, err := s.Bind(context.Background(), table, nil)
	require.NoError(t, err)

	assert.Equal(t, []SinkColumn{
		{Name: "id", Kind: ColumnKindRegular},
		{Name: "amount", Kind: ColumnKindRegular},
		{Name: "dt", Kind: ColumnKindPartitionKey},
		{Name: "region", Kind: ColumnKindPartitionKey},
	}, desc.Columns)
	assert.Equal(t, Bucketing{Columns: []string{"id"}, BucketCount: 8}, desc.Bucketing)
}

func TestBind_UnsupportedFormat(t *testing.T) {
	lister := new(MockPartitionLister)
	table := newTestTable("org.apache.hadoop.hive.ql.io.avro.AvroContainerInputFormat", "s3://bucket/t", &fakeCatalog{})
	s := newTestSink(t, lister, fakeSession{user: "alice"})

	desc, err := s.Bind(context.Background(), table, nil)
	assert.Nil(t, desc)
	var unsupported *ErrUnsupportedFormat
	require.True(t, errors.As(err, &unsupported))
	lister.AssertNotCalled(t, "ListPartitions", mock.Anything, mock.Anything, mock.Anything)
}

func TestBind_LocationFailureLeavesWriteContextUntouched(t *testing.T) {
	table := newTestTable(orcInputFormat, "ftp://host/warehouse/t", &fakeCatalog{})
	s := newTestSink(t, emptyLister(), fakeSession{user: "alice"})
	writeCtx := &InsertContext{Overwrite: true}

	desc, err := s.Bind(context.Background(), table, writeCtx)
	assert.Nil(t, desc)
	var locErr *ErrLocationResolution
	require.True(t, errors.As(err, &locErr))
	assert.Equal(t, InsertContext{Overwrite: true}, *writeCtx)
}

func TestBind_MetastoreFailureAbortsBind(t *testing.T) {
	listErr := errors.New("metastore unavailable")
	lister := new(MockPartitionLister)
	lister.On("ListPartitions", mock.Anything, "sales", "orders").Return(nil, listErr)
	table := newTestTable(orcInputFormat, "hdfs://nn/warehouse/t", &fakeCatalog{})
	s := newTestSink(t, lister, fakeSession{user: "alice"})
	writeCtx := &InsertContext{}

	desc, err := s.Bind(context.Background(), table, writeCtx)
	assert.Nil(t, desc)
	assert.True(t, errors.Is(err, listErr))
	assert.Empty(t, writeCtx.WritePath)
}

func TestBind_WriteContextFeedback(t *testing.T) {
	t.Run("staged write", func(t *testing.T) {
		table := newTestTable(orcInputFormat, "hdfs://nn/warehouse/t", &fakeCatalog{})
		s := newTestSink(t, emptyLister(), fakeSession{user: "alice"})
		writeCtx := &InsertContext{Overwrite: true}

		desc, err := s.Bind(context.Background(), table, writeCtx)
		require.NoError(t, err)
		assert.True(t, desc.Overwrite)
		assert.Equal(t, desc.Location.WritePath, writeCtx.WritePath)
		assert.Equal(t, FileTypeFilesystem, writeCtx.FileType)
	})

	t.Run("object store write", func(t *testing.T) {
		table := newTestTable(orcInputFormat, "s3a://bucket/warehouse/t", &fakeCatalog{})
		s := newTestSink(t, emptyLister(), fakeSession{user: "alice"})
		writeCtx := &InsertContext{}

		desc, err := s.Bind(context.Background(), table, writeCtx)
		require.NoError(t, err)
		assert.False(t, desc.Overwrite)
		assert.Equal(t, "s3://bucket/warehouse/t", desc.Location.WritePath)
		assert.Equal(t, "s3a://bucket/warehouse/t", writeCtx.WritePath)
		assert.Equal(t, FileTypeObjectStore, writeCtx.FileType)
	})
}

func TestBind_BrokerAddresses(t *testing.T) {
	catalog := &fakeCatalog{brokerName: "hdfs_broker"}
	brokers := staticBrokers{"hdfs_broker": {{Host: "10.0.0.1", Port: 8000}, {Host: "10.0.0.2", Port: 8000}}}
	table := newTestTable(orcInputFormat, "hdfs://nn/warehouse/t", catalog)

	s := newTestSink(t, emptyLister(), fakeSession{user: "alice"}, WithBrokerResolver(brokers))
	desc, err := s.Bind(context.Background(), table, nil)
	require.NoError(t, err)
	assert.Equal(t, FileTypeBroker, desc.Location.FileType)
	assert.Equal(t, brokers["hdfs_broker"], desc.BrokerAddresses)

	t.Run("no resolver", func(t *testing.T) {
		s := newTestSink(t, emptyLister(), fakeSession{user: "alice"})
		_, err := s.Bind(context.Background(), table, nil)
		assert.Error(t, err)
	})

	t.Run("unknown broker", func(t *testing.T) {
		s := newTestSink(t, emptyLister(), fakeSession{user: "alice"}, WithBrokerResolver(staticBrokers{}))
		_, err := s.Bind(context.Background(), table, nil)
		assert.Error(t, err)
	})
}

func TestBind_PartitionsAndBackendConfig(t *testing.T) {
	catalog := &fakeCatalog{backendConfig: map[string]string{"dfs.nameservices": "nn", "hadoop.username": "hive"}}
	lister := new(MockPartitionLister)
	lister.On("ListPartitions", mock.Anything, "sales", "orders").Return([]Partition{
		{Values: []string{"2024-01-01", "us"}, SD: StorageDescriptor{InputFormat: orcInputFormat, Location: "hdfs://nn/warehouse/t/dt=2024-01-01/region=us"}},
		{Values: []string{"2024-01-01", "eu"}, SD: StorageDescriptor{InputFormat: parquetInputFormat, Location: "hdfs://nn/warehouse/t/dt=2024-01-01/region=eu"}},
	}, nil).Once()
	table := newTestTable(orcInputFormat, "hdfs://nn/warehouse/t", catalog)

	s := newTestSink(t, lister, fakeSession{user: "alice"})
	desc, err := s.Bind(context.Background(), table, nil)
	require.NoError(t, err)

	require.Len(t, desc.Partitions, 2)
	assert.Equal(t, []string{"2024-01-01", "us"}, desc.Partitions[0].Values)
	assert.Equal(t, FormatParquet, desc.Partitions[1].Format)
	assert.Equal(t, catalog.backendConfig, desc.BackendConfig)

	// The descriptor owns its copy of the backend config.
	desc.BackendConfig["extra"] = "x"
	assert.NotContains(t, catalog.backendConfig, "extra")
	lister.AssertExpectations(t)
}

func TestBind_DescriptorJSONShape(t *testing.T) {
	lister := new(MockPartitionLister)
	lister.On("ListPartitions", mock.Anything, "sales", "orders").Return([]Partition{
		{Values: []string{"2024-01-01", "us"}, SD: StorageDescriptor{InputFormat: orcInputFormat, Location: "hdfs://nn/warehouse/t/dt=2024-01-01/region=us"}},
	}, nil)
	table := newTestTable(orcInputFormat, "hdfs://nn/warehouse/t", &fakeCatalog{})
	table.SD.BucketColumns = nil
	table.SD.NumBuckets = -1

	desc, err := newTestSink(t, lister, fakeSession{user: "alice"}).Bind(context.Background(), table, nil)
	require.NoError(t, err)
	out, err := json.Marshal(desc)
	require.NoError(t, err)

	var decoded struct {
		Bucketing struct {
			Columns []string `json:"columns"`
		} `json:"bucketing"`
		Partitions []struct {
			Location map[string]any `json:"location"`
		} `json:"partitions"`
	}
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.NotNil(t, decoded.Bucketing.Columns)
	assert.Empty(t, decoded.Bucketing.Columns)
	require.Len(t, decoded.Partitions, 1)
	assert.Contains(t, decoded.Partitions[0].Location, "originalWritePath")
	assert.Contains(t, string(out), `"columns":[]`)
}

func TestBind_InvalidInput(t *testing.T) {
	s := newTestSink(t, emptyLister(), fakeSession{user: "alice"})
	_, err := s.Bind(context.Background(), nil, nil)
	var invalid *ErrInvalidInput
	assert.True(t, errors.As(err, &invalid))

	s = NewHiveTableSink(nil, fakeSession{user: "alice"})
	_, err = s.Bind(context.Background(), newTestTable(orcInputFormat, "s3://bucket/t", nil), nil)
	assert.True(t, errors.As(err, &invalid))
}

func TestBind_MissingUserFailsStagedWrite(t *testing.T) {
	table := newTestTable(orcInputFormat, "hdfs://nn/warehouse/t", &fakeCatalog{})
	s := newTestSink(t, emptyLister(), nil)

	_, err := s.Bind(context.Background(), table, nil)
	var locErr *ErrLocationResolution
	assert.True(t, errors.As(err, &locErr))
}

func TestSupportedFileFormatTypes(t *testing.T) {
	s := NewHiveTableSink(nil, nil)
	formats := s.SupportedFileFormatTypes()
	assert.Len(t, formats, 4)
	for _, f := range []FileFormat{FormatCSVPlain, FormatORC, FormatParquet, FormatText} {
		assert.Contains(t, formats, f)
	}
}

func TestSinkDescriptorExplain(t *testing.T) {
	table := newTestTable(orcInputFormat, "hdfs://nn/warehouse/t", &fakeCatalog{})
	lister := new(MockPartitionLister)
	lister.On("ListPartitions", mock.Anything, mock.Anything, mock.Anything).Return([]Partition{
		{Values: []string{"2024-01-01", "us"}, SD: StorageDescriptor{InputFormat: orcInputFormat, Location: "hdfs://nn/warehouse/t/dt=2024-01-01/region=us"}},
	}, nil)
	s := newTestSink(t, lister, fakeSession{user: "alice"})
	desc, err := s.Bind(context.Background(), table, &InsertContext{Overwrite: true})
	require.NoError(t, err)

	assert.Equal(t, "  HIVE TABLE SINK\n", desc.Explain("  ", ExplainBrief))

	normal := desc.Explain("", ExplainNormal)
	assert.Contains(t, normal, "table: sales.orders")
	assert.Contains(t, normal, "format: ORC, compression: plain")
	assert.Contains(t, normal, "write path: hdfs://nn/tmp/.hive_staging/alice/")
	assert.Contains(t, normal, "overwrite: true")
	assert.Contains(t, normal, "partitions: 1")
	assert.NotContains(t, normal, "[2024-01-01, us]")

	verbose := desc.Explain("", ExplainVerbose)
	assert.True(t, strings.Contains(verbose, "[2024-01-01, us] ORC hdfs://nn/warehouse/t/dt=2024-01-01/region=us"))
}
