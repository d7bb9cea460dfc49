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

const (
	PropORCCompress        = "orc.compress"
	PropParquetCompression = "parquet.compression"
	PropTextCompression    = "text.compression"

	CompressionPlain = "plain"
)

var compressionAliases = map[string]string{
	"none":         CompressionPlain,
	"uncompressed": CompressionPlain,
	"gz":           "gzip",
}

// ResolveCompression picks the codec for the given format. The format specific
// table property wins, then the session default (text formats only), then plain.
func ResolveCompression(format FileFormat, tableParams map[string]string, sessionDefault string) string {
	var codec string
	switch format {
	case FormatORC:
		codec = tableParams[PropORCCompress]
	case FormatParquet:
		codec = tableParams[PropParquetCompression]
	case FormatCSVPlain, FormatText:
		codec = tableParams[PropTextCompression]
		if strings.TrimSpace(codec) == "" {
			codec = sessionDefault
		}
	}
	return normalizeCompression(codec)
}

func normalizeCompression(codec string) string {
	codec = strings.ToLower(strings.TrimSpace(codec))
	if codec == "" {
		return CompressionPlain
	}
	if alias, ok := compressionAliases[codec]; ok {
		return alias
	}
	return codec
}
