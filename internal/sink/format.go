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
	"strings"
)

// hiveSupportedFormats is the set of formats a Hive table sink can write.
var hiveSupportedFormats = map[FileFormat]struct{}{
	FormatCSVPlain: {},
	FormatORC:      {},
	FormatParquet:  {},
	FormatText:     {},
}

// ResolveFileFormat maps a metastore input format (usually an InputFormat class
// name such as org.apache.hadoop.hive.ql.io.orc.OrcInputFormat) to a FileFormat.
func ResolveFileFormat(inputFormat string) (FileFormat, error) {
	return resolveFileFormat(inputFormat, hiveSupportedFormats)
}

func resolveFileFormat(inputFormat string, supported map[FileFormat]struct{}) (FileFormat, error) {
	var format FileFormat
	lower := strings.ToLower(inputFormat)
	switch {
	case strings.Contains(lower, "orc"):
		format = FormatORC
	case strings.Contains(lower, "parquet"):
		format = FormatParquet
	case strings.Contains(lower, "text"):
		format = FormatText
	case strings.Contains(lower, "csv"):
		format = FormatCSVPlain
	}
	if _, ok := supported[format]; !ok {
		return "", &ErrUnsupportedFormat{Format: inputFormat}
	}
	return format, nil
}

// IsTextLike reports whether the format is a delimited text format.
func (f FileFormat) IsTextLike() bool {
	return f == FormatCSVPlain || f == FormatText
}
