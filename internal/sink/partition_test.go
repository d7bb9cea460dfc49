package sink

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestEnumeratePartitions_PreservesMetastoreOrder(t *testing.T) {
	ctx := context.Background()
	lister := new(MockPartitionLister)
	lister.On("ListPartitions", ctx, "sales", "orders").Return([]Partition{
		{Values: []string{"2024-01-02", "us"}, SD: StorageDescriptor{InputFormat: orcInputFormat, Location: "hdfs://nn/w/orders/dt=2024-01-02/region=us"}},
		{Values: []string{"2024-01-01", "eu"}, SD: StorageDescriptor{InputFormat: parquetInputFormat, Location: "s3://bucket/orders/dt=2024-01-01/region=eu"}},
		{Values: []string{"2024-01-01", "us"}, SD: StorageDescriptor{InputFormat: textInputFormat, Location: "hdfs://nn/w/orders/dt=2024-01-01/region=us"}},
	}, nil).Once()

	parts, err := EnumeratePartitions(ctx, lister, newTestResolver(nil, ""), "sales", "orders")
	require.NoError(t, err)
	require.Len(t, parts, 3)

	assert.Equal(t, []string{"2024-01-02", "us"}, parts[0].Values)
	assert.Equal(t, FormatORC, parts[0].Format)
	assert.Equal(t, FileTypeFilesystem, parts[0].Location.FileType)
	assert.Equal(t, parts[0].Location.TargetPath, parts[0].Location.WritePath)

	assert.Equal(t, []string{"2024-01-01", "eu"}, parts[1].Values)
	assert.Equal(t, FormatParquet, parts[1].Format)
	assert.Equal(t, FileTypeObjectStore, parts[1].Location.FileType)
	assert.Equal(t, "s3://bucket/orders/dt=2024-01-01/region=eu", parts[1].Location.WritePath)

	assert.Equal(t, FormatText, parts[2].Format)
	assert.Empty(t, parts[2].Location.OriginalWritePath)

	lister.AssertExpectations(t)
	lister.AssertNumberOfCalls(t, "ListPartitions", 1)
}

func TestEnumeratePartitions_Empty(t *testing.T) {
	lister := new(MockPartitionLister)
	lister.On("ListPartitions", mock.Anything, "db", "t").Return(nil, nil)

	parts, err := EnumeratePartitions(context.Background(), lister, newTestResolver(nil, ""), "db", "t")
	require.NoError(t, err)
	assert.NotNil(t, parts)
	assert.Empty(t, parts)
}

func TestEnumeratePartitions_MetastoreError(t *testing.T) {
	connErr := errors.New("connection reset by peer")
	lister := new(MockPartitionLister)
	lister.On("ListPartitions", mock.Anything, "db", "t").Return(nil, connErr)

	_, err := EnumeratePartitions(context.Background(), lister, newTestResolver(nil, ""), "db", "t")
	require.Error(t, err)
	assert.True(t, errors.Is(err, connErr))
	var msErr *ErrMetastore
	assert.True(t, errors.As(err, &msErr))
}

func TestEnumeratePartitions_UnsupportedPartitionFormat(t *testing.T) {
	lister := new(MockPartitionLister)
	lister.On("ListPartitions", mock.Anything, "db", "t").Return([]Partition{
		{Values: []string{"a"}, SD: StorageDescriptor{InputFormat: "org.apache.hadoop.hive.ql.io.RCFileInputFormat", Location: "hdfs://nn/t/p=a"}},
	}, nil)

	_, err := EnumeratePartitions(context.Background(), lister, newTestResolver(nil, ""), "db", "t")
	var unsupported *ErrUnsupportedFormat
	assert.True(t, errors.As(err, &unsupported))
}

func TestEnumeratePartitions_BadPartitionLocation(t *testing.T) {
	lister := new(MockPartitionLister)
	lister.On("ListPartitions", mock.Anything, "db", "t").Return([]Partition{
		{Values: []string{"a"}, SD: StorageDescriptor{InputFormat: orcInputFormat, Location: "ftp://host/t/p=a"}},
	}, nil)

	_, err := EnumeratePartitions(context.Background(), lister, newTestResolver(nil, ""), "db", "t")
	var locErr *ErrLocationResolution
	assert.True(t, errors.As(err, &locErr))
}
