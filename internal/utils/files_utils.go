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
package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// TableRef names a table in the metastore.
type TableRef struct {
	DBName    string
	TableName string
}

func (r TableRef) String() string { return r.DBName + "." + r.TableName }

// ParseTablesFlag parses a comma separated list of tables. Entries are
// "db.table", "table" (in defaultDB) or "db.[t1,t2]" for several tables of one
// database. Duplicates are dropped, order is kept.
func ParseTablesFlag(tablesFlag, defaultDB string) ([]TableRef, error) {
	var refs []TableRef
	seen := make(map[TableRef]bool)
	add := func(ref TableRef) {
		if !seen[ref] {
			seen[ref] = true
			refs = append(refs, ref)
		}
	}

	tablesFlag = strings.ReplaceAll(tablesFlag, " ", "")
	for _, part := range SplitOutsideBrackets(tablesFlag) {
		if part == "" {
			continue
		}
		dbName, rest := defaultDB, part
		if i := strings.Index(part, "."); i != -1 && (strings.Index(part, "[") == -1 || i < strings.Index(part, "[")) {
			dbName, rest = part[:i], part[i+1:]
		}
		if dbName == "" {
			return nil, fmt.Errorf("no database given for table %q", part)
		}

		if strings.HasPrefix(rest, "[") {
			if !strings.HasSuffix(rest, "]") {
				return nil, fmt.Errorf("missing closing bracket in: %s", part)
			}
			for _, t := range strings.Split(rest[1:len(rest)-1], ",") {
				if t == "" {
					return nil, fmt.Errorf("empty table name in: %s", part)
				}
				add(TableRef{DBName: dbName, TableName: t})
			}
			continue
		}
		if rest == "" || strings.ContainsAny(rest, "[].") {
			return nil, fmt.Errorf("invalid table reference: %s", part)
		}
		add(TableRef{DBName: dbName, TableName: rest})
	}
	return refs, nil
}

// SplitOutsideBrackets Helper function to split string by commas that are not within brackets
func SplitOutsideBrackets(s string) []string {
	var result []string
	var current strings.Builder
	inBrackets := false

	for _, char := range s {
		switch char {
		case '[':
			inBrackets = true
			current.WriteRune(char)
		case ']':
			inBrackets = false
			current.WriteRune(char)
		case ',':
			if inBrackets {
				current.WriteRune(char)
			} else {
				result = append(result, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(char)
		}
	}

	if current.Len() > 0 {
		result = append(result, current.String())
	}
	return result
}

func GetDefaultOutputFilePath(ref TableRef, commandName string) string {
	switch commandName {
	case "list-partitions":
		return fmt.Sprintf("%s_partitions.txt", ref)
	case "explain":
		return fmt.Sprintf("%s_sink_explain.txt", ref)
	default: // bind
		return fmt.Sprintf("%s_sink.json", ref)
	}
}

// WriteJSON writes v as indented JSON followed by a newline.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// WriteOutput calls write with stdout when path is "" or "-", and with the
// created file otherwise.
func WriteOutput(path string, write func(io.Writer) error) error {
	if path == "" || path == "-" {
		return write(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close output file %s: %w", path, err)
	}
	return nil
}
