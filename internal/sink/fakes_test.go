package sink

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type fakeCatalog struct {
	storageProps  map[string]string
	backendConfig map[string]string
	brokerName    string
}

func (c *fakeCatalog) StorageProperties() map[string]string { return c.storageProps }
func (c *fakeCatalog) BackendConfig() map[string]string     { return c.backendConfig }
func (c *fakeCatalog) BrokerName() string                   { return c.brokerName }

type fakeSession struct {
	user            string
	textCompression string
}

func (s fakeSession) CurrentUser() string     { return s.user }
func (s fakeSession) TextCompression() string { return s.textCompression }

// MockPartitionLister records ListPartitions calls.
type MockPartitionLister struct {
	mock.Mock
}

func (m *MockPartitionLister) ListPartitions(ctx context.Context, dbName, tableName string) ([]Partition, error) {
	args := m.Called(ctx, dbName, tableName)
	parts, _ := args.Get(0).([]Partition)
	return parts, args.Error(1)
}

type staticBrokers map[string][]BrokerAddress

func (b staticBrokers) BrokerAddresses(_ context.Context, name string) ([]BrokerAddress, error) {
	return b[name], nil
}

const (
	orcInputFormat     = "org.apache.hadoop.hive.ql.io.orc.OrcInputFormat"
	parquetInputFormat = "org.apache.hadoop.hive.ql.io.parquet.MapredParquetInputFormat"
	textInputFormat    = "org.apache.hadoop.mapred.TextInputFormat"
)

func fixedStagingID() string { return "0123456789abcdef0123456789abcdef" }
