package metastore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/GoogleCloudPlatform/hive-table-sink/internal/config"
	"github.com/GoogleCloudPlatform/hive-table-sink/internal/sink"
)

type MockLister struct {
	mock.Mock
}

func (m *MockLister) ListPartitions(ctx context.Context, dbName, tableName string) ([]sink.Partition, error) {
	args := m.Called(ctx, dbName, tableName)
	parts, _ := args.Get(0).([]sink.Partition)
	return parts, args.Error(1)
}

var fastRetry = RetryOptions{
	MaxAttempts:       3,
	InitialBackoff:    time.Millisecond,
	MaxBackoff:        5 * time.Millisecond,
	BackoffMultiplier: 2,
}

func TestRetryingLister_RetriesTransientErrors(t *testing.T) {
	lister := new(MockLister)
	want := []sink.Partition{{Values: []string{"a"}}}
	lister.On("ListPartitions", mock.Anything, "db", "t").
		Return(nil, &ErrQueryExecution{Msg: "deadlock"}).Twice()
	lister.On("ListPartitions", mock.Anything, "db", "t").Return(want, nil).Once()

	r := NewRetryingLister(lister, fastRetry, zaptest.NewLogger(t))
	got, err := r.ListPartitions(context.Background(), "db", "t")
	require.NoError(t, err)
	assert.Equal(t, want, got)
	lister.AssertNumberOfCalls(t, "ListPartitions", 3)
}

func TestRetryingLister_GivesUpAfterMaxAttempts(t *testing.T) {
	lister := new(MockLister)
	lister.On("ListPartitions", mock.Anything, "db", "t").
		Return(nil, &ErrDatabaseConnection{Msg: "refused"})

	r := NewRetryingLister(lister, fastRetry, nil)
	_, err := r.ListPartitions(context.Background(), "db", "t")
	var connErr *ErrDatabaseConnection
	assert.True(t, errors.As(err, &connErr))
	lister.AssertNumberOfCalls(t, "ListPartitions", 3)
}

func TestRetryingLister_DoesNotRetryPermanentErrors(t *testing.T) {
	lister := new(MockLister)
	lister.On("ListPartitions", mock.Anything, "db", "t").
		Return(nil, &ErrTableNotFound{DBName: "db", TableName: "t"})

	r := NewRetryingLister(lister, fastRetry, nil)
	_, err := r.ListPartitions(context.Background(), "db", "t")
	assert.Error(t, err)
	lister.AssertNumberOfCalls(t, "ListPartitions", 1)
}

func TestRetryingLister_SingleAttemptByDefault(t *testing.T) {
	lister := new(MockLister)
	lister.On("ListPartitions", mock.Anything, "db", "t").
		Return(nil, &ErrTimeout{Msg: "slow"})

	r := NewRetryingLister(lister, DefaultRetryOptions, nil)
	_, err := r.ListPartitions(context.Background(), "db", "t")
	assert.Error(t, err)
	lister.AssertNumberOfCalls(t, "ListPartitions", 1)
}

func TestRetryingLister_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	lister := new(MockLister)
	lister.On("ListPartitions", mock.Anything, "db", "t").
		Run(func(mock.Arguments) { cancel() }).
		Return(nil, &ErrQueryExecution{Msg: "deadlock"})

	opts := fastRetry
	opts.InitialBackoff = time.Second
	opts.MaxBackoff = time.Second
	r := NewRetryingLister(lister, opts, nil)
	_, err := r.ListPartitions(ctx, "db", "t")
	var cancelled *ErrCancelled
	assert.True(t, errors.As(err, &cancelled))
	lister.AssertNumberOfCalls(t, "ListPartitions", 1)
}

func TestRetryingLister_FeedsEnumeratePartitions(t *testing.T) {
	lister := new(MockLister)
	lister.On("ListPartitions", mock.Anything, "db", "t").
		Return(nil, &ErrQueryExecution{Msg: "deadlock"}).Once()
	lister.On("ListPartitions", mock.Anything, "db", "t").Return([]sink.Partition{
		{Values: []string{"2024"}, SD: sink.StorageDescriptor{
			InputFormat: "org.apache.hadoop.hive.ql.io.orc.OrcInputFormat",
			Location:    "hdfs://nn/t/y=2024",
		}},
	}, nil).Once()

	r := NewRetryingLister(lister, fastRetry, nil)
	parts, err := sink.EnumeratePartitions(context.Background(), r, &sink.LocationResolver{}, "db", "t")
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Equal(t, sink.FormatORC, parts[0].Format)
}

func TestRetryOptionsFromConfig(t *testing.T) {
	opts := RetryOptionsFromConfig(config.RetryConfig{MaxAttempts: 0, BackoffMultiplier: 0.5, InitialBackoff: time.Second})
	assert.Equal(t, 1, opts.MaxAttempts)
	assert.Equal(t, 1.0, opts.BackoffMultiplier)
	assert.Equal(t, time.Second, opts.InitialBackoff)
}
