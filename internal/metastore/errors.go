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
	"fmt"
)

// ErrDatabaseConnection represents errors that occur while connecting to the metastore database
type ErrDatabaseConnection struct {
	Msg string
	Err error
}

// ErrQueryExecution represents errors that occur during metastore query execution
type ErrQueryExecution struct {
	Msg string
	Err error
}

// ErrInvalidInput represents errors related to invalid input parameters
type ErrInvalidInput struct {
	Msg string
	Err error
}

// ErrTimeout represents timeout errors during operations
type ErrTimeout struct {
	Msg string
	Err error
}

// ErrCancelled represents errors when an operation is cancelled
type ErrCancelled struct {
	Msg string
	Err error
}

// ErrTableNotFound is returned when the metastore has no such table
type ErrTableNotFound struct {
	DBName    string
	TableName string
}

func (e *ErrDatabaseConnection) Error() string {
	return withCause("metastore connection error: "+e.Msg, e.Err)
}

func (e *ErrDatabaseConnection) Unwrap() error { return e.Err }

func (e *ErrQueryExecution) Error() string {
	return withCause("metastore query error: "+e.Msg, e.Err)
}

func (e *ErrQueryExecution) Unwrap() error { return e.Err }

func (e *ErrInvalidInput) Error() string {
	return withCause("invalid input error: "+e.Msg, e.Err)
}

func (e *ErrInvalidInput) Unwrap() error { return e.Err }

func (e *ErrTimeout) Error() string {
	return withCause("timeout error: "+e.Msg, e.Err)
}

func (e *ErrTimeout) Unwrap() error { return e.Err }

func (e *ErrCancelled) Error() string {
	return withCause("operation cancelled: "+e.Msg, e.Err)
}

func (e *ErrCancelled) Unwrap() error { return e.Err }

func (e *ErrTableNotFound) Error() string {
	return fmt.Sprintf("table %s.%s not found in metastore", e.DBName, e.TableName)
}

func withCause(msg string, err error) string {
	if err == nil {
		return msg
	}
	return fmt.Sprintf("%s: %v", msg, err)
}

// queryError classifies a failed query by the state of its context.
func queryError(ctx context.Context, msg string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &ErrTimeout{Msg: msg, Err: err}
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		return &ErrCancelled{Msg: msg, Err: err}
	default:
		return &ErrQueryExecution{Msg: msg, Err: err}
	}
}
