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
	"strconv"
	"unicode/utf8"
)

// Serde property keys as stored in the metastore.
const (
	PropFieldDelim           = "field.delim"
	PropSerializationFormat  = "serialization.format"
	PropLineDelim            = "line.delim"
	PropCollectionDelim      = "collection.delim"
	PropCollectionDelimHive2 = "colelction.delim" // misspelled key written by Hive 2.x
	PropMapKVDelim           = "mapkey.delim"
	PropEscapeDelim          = "escape.delim"
	PropNullFormat           = "serialization.null.format"
)

const (
	DefaultFieldDelim      = "\x01"
	DefaultLineDelim       = "\n"
	DefaultCollectionDelim = "\x02"
	DefaultMapKVDelim      = "\x03"
	DefaultNullFormat      = `\N`
)

var multiDelimitSerdes = map[string]struct{}{
	"org.apache.hadoop.hive.serde2.MultiDelimitSerDe":         {},
	"org.apache.hadoop.hive.contrib.serde2.MultiDelimitSerDe": {},
}

// IsMultiDelimitSerde reports whether serdeLib accepts multi-character field delimiters.
func IsMultiDelimitSerde(serdeLib string) bool {
	_, ok := multiDelimitSerdes[serdeLib]
	return ok
}

// ResolveSerde builds the serde settings for a table. Table parameters take
// precedence over serde parameters. It never fails; absent keys use defaults.
func ResolveSerde(serdeLib string, tableParams, serdeParams map[string]string) SerdeSpec {
	lookup := func(key string) (string, bool) {
		if v, ok := tableParams[key]; ok {
			return v, true
		}
		v, ok := serdeParams[key]
		return v, ok
	}
	firstPresent := func(def string, keys ...string) string {
		for _, k := range keys {
			if v, ok := lookup(k); ok && v != "" {
				return v
			}
		}
		return def
	}

	fieldDelim := firstPresent(DefaultFieldDelim, PropFieldDelim, PropSerializationFormat)
	if !IsMultiDelimitSerde(serdeLib) {
		fieldDelim = singleByteDelimiter(fieldDelim)
	}

	spec := SerdeSpec{
		FieldDelim:      fieldDelim,
		LineDelim:       singleByteDelimiter(firstPresent(DefaultLineDelim, PropLineDelim)),
		CollectionDelim: singleByteDelimiter(firstPresent(DefaultCollectionDelim, PropCollectionDelim, PropCollectionDelimHive2)),
		MapKVDelim:      singleByteDelimiter(firstPresent(DefaultMapKVDelim, PropMapKVDelim)),
		NullFormat:      firstPresent(DefaultNullFormat, PropNullFormat),
	}
	if esc, ok := lookup(PropEscapeDelim); ok && esc != "" {
		b := escapeByte(esc)
		spec.EscapeChar = &b
	}
	return spec
}

// singleByteDelimiter resolves a delimiter property to one character. Values
// that parse as a signed byte ("1", "-2") denote the Latin-1 character of that
// byte; anything else resolves to its first character.
func singleByteDelimiter(v string) string {
	if v == "" {
		return v
	}
	if n, err := strconv.ParseInt(v, 10, 8); err == nil {
		return string(rune((n + 256) % 256))
	}
	_, size := utf8.DecodeRuneInString(v)
	return v[:size]
}

func escapeByte(v string) byte {
	if n, err := strconv.ParseInt(v, 10, 8); err == nil {
		return byte((n + 256) % 256)
	}
	return v[0]
}
