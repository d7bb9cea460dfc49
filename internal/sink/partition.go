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
)

// EnumeratePartitions lists the existing partitions of the table once and
// resolves a format and location for each, preserving metastore order.
// TODO: page through the listing once PartitionLister exposes a cursor; very
// large tables are currently materialized in one call.
func EnumeratePartitions(ctx context.Context, lister PartitionLister, resolver *LocationResolver, dbName, tableName string) ([]PartitionDescriptor, error) {
	return enumeratePartitions(ctx, lister, resolver, dbName, tableName, hiveSupportedFormats)
}

func enumeratePartitions(ctx context.Context, lister PartitionLister, resolver *LocationResolver, dbName, tableName string, supported map[FileFormat]struct{}) ([]PartitionDescriptor, error) {
	parts, err := lister.ListPartitions(ctx, dbName, tableName)
	if err != nil {
		return nil, &ErrMetastore{Msg: fmt.Sprintf("list partitions of %s.%s", dbName, tableName), Err: err}
	}

	descriptors := make([]PartitionDescriptor, 0, len(parts))
	for _, p := range parts {
		format, err := resolveFileFormat(p.SD.InputFormat, supported)
		if err != nil {
			return nil, err
		}
		loc, err := resolver.ResolvePartition(p.SD.Location)
		if err != nil {
			return nil, err
		}
		values := make([]string, len(p.Values))
		copy(values, p.Values)
		descriptors = append(descriptors, PartitionDescriptor{
			Values:   values,
			Format:   format,
			Location: loc,
		})
	}
	return descriptors, nil
}
