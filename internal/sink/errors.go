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
	"fmt"
)

// ErrUnsupportedFormat is returned when a table or partition input format does
// not map to a writable file format.
type ErrUnsupportedFormat struct {
	Format string
}

// ErrLocationResolution represents a malformed location or a location whose
// storage backend cannot be classified.
type ErrLocationResolution struct {
	Location string
	Msg      string
	Err      error
}

// ErrMetastore wraps failures returned by the metastore collaborator.
type ErrMetastore struct {
	Msg string
	Err error
}

// ErrInvalidInput represents errors related to invalid bind arguments
type ErrInvalidInput struct {
	Msg string
}

func (e *ErrUnsupportedFormat) Error() string {
	return fmt.Sprintf("unsupported input format type: %s", e.Format)
}

func (e *ErrLocationResolution) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to resolve location %q: %s: %v", e.Location, e.Msg, e.Err)
	}
	return fmt.Sprintf("failed to resolve location %q: %s", e.Location, e.Msg)
}

func (e *ErrLocationResolution) Unwrap() error {
	return e.Err
}

func (e *ErrMetastore) Error() string {
	return fmt.Sprintf("metastore error: %s: %v", e.Msg, e.Err)
}

func (e *ErrMetastore) Unwrap() error {
	return e.Err
}

func (e *ErrInvalidInput) Error() string {
	return fmt.Sprintf("invalid input error: %s", e.Msg)
}
