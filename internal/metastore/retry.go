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
package metastore

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/GoogleCloudPlatform/hive-table-sink/internal/config"
	"github.com/GoogleCloudPlatform/hive-table-sink/internal/sink"
)

// RetryOptions configures the retry behavior
type RetryOptions struct {
	MaxAttempts       int           // Maximum number of attempts, including the first
	InitialBackoff    time.Duration // Initial backoff duration
	MaxBackoff        time.Duration // Maximum backoff duration
	BackoffMultiplier float64       // Multiplier for exponential backoff
}

// DefaultRetryOptions performs a single attempt.
var DefaultRetryOptions = RetryOptions{
	MaxAttempts:       1,
	InitialBackoff:    100 * time.Millisecond,
	MaxBackoff:        2 * time.Second,
	BackoffMultiplier: 2.0,
}

// RetryOptionsFromConfig converts the metastore retry section.
func RetryOptionsFromConfig(cfg config.RetryConfig) RetryOptions {
	opts := RetryOptions{
		MaxAttempts:       cfg.MaxAttempts,
		InitialBackoff:    cfg.InitialBackoff,
		MaxBackoff:        cfg.MaxBackoff,
		BackoffMultiplier: cfg.BackoffMultiplier,
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.BackoffMultiplier < 1 {
		opts.BackoffMultiplier = 1
	}
	return opts
}

// isRetryableError determines if an error should trigger a retry
func isRetryableError(err error) bool {
	var (
		connErr    *ErrDatabaseConnection
		timeoutErr *ErrTimeout
		queryErr   *ErrQueryExecution
	)
	return errors.As(err, &connErr) || errors.As(err, &timeoutErr) || errors.As(err, &queryErr)
}

// withRetry executes the given operation with retry logic
func withRetry[T any](ctx context.Context, opts RetryOptions, logger *zap.Logger, op func(context.Context) (T, error)) (T, error) {
	var lastErr error
	var result T

	for attempt := 0; attempt < opts.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			if lastErr == nil {
				lastErr = &ErrCancelled{Msg: "operation cancelled by context", Err: ctx.Err()}
			}
			return result, lastErr
		}

		result, lastErr = op(ctx)
		if lastErr == nil {
			return result, nil
		}
		if !isRetryableError(lastErr) || attempt == opts.MaxAttempts-1 {
			return result, lastErr
		}

		backoff := time.Duration(float64(opts.InitialBackoff) * math.Pow(opts.BackoffMultiplier, float64(attempt)))
		if backoff > opts.MaxBackoff {
			backoff = opts.MaxBackoff
		}
		logger.Warn("metastore operation failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", backoff),
			zap.Error(lastErr))

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return result, &ErrCancelled{Msg: "operation cancelled during backoff", Err: ctx.Err()}
		case <-timer.C:
		}
	}

	return result, lastErr
}

// RetryingLister retries transient ListPartitions failures of the wrapped lister.
type RetryingLister struct {
	Lister  sink.PartitionLister
	Options RetryOptions
	Logger  *zap.Logger
}

var _ sink.PartitionLister = (*RetryingLister)(nil)

// NewRetryingLister wraps lister. A nil logger discards retry warnings.
func NewRetryingLister(lister sink.PartitionLister, opts RetryOptions, logger *zap.Logger) *RetryingLister {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryingLister{Lister: lister, Options: opts, Logger: logger}
}

func (r *RetryingLister) ListPartitions(ctx context.Context, dbName, tableName string) ([]sink.Partition, error) {
	return withRetry(ctx, r.Options, r.Logger, func(ctx context.Context) ([]sink.Partition, error) {
		return r.Lister.ListPartitions(ctx, dbName, tableName)
	})
}
