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
	"os"
	"strconv"
)

// Query templates over the Hive Metastore schema. ${NAME} expands to a quoted
// identifier and $n to the dialect's n-th bind parameter.
const (
	listPartitionsSQL = `SELECT p.${PART_ID}, s.${INPUT_FORMAT}, s.${LOCATION}, v.${PART_KEY_VAL}
FROM ${PARTITIONS} p
JOIN ${TBLS} t ON p.${TBL_ID} = t.${TBL_ID}
JOIN ${DBS} d ON t.${DB_ID} = d.${DB_ID}
JOIN ${SDS} s ON p.${SD_ID} = s.${SD_ID}
LEFT JOIN ${PARTITION_KEY_VALS} v ON v.${PART_ID} = p.${PART_ID}
WHERE d.${NAME} = $1 AND t.${TBL_NAME} = $2
ORDER BY p.${PART_NAME}, p.${PART_ID}, v.${INTEGER_IDX}`

	getTableSQL = `SELECT t.${TBL_ID}, s.${SD_ID}, s.${CD_ID}, s.${SERDE_ID}, s.${INPUT_FORMAT}, s.${LOCATION}, s.${NUM_BUCKETS}, se.${SLIB}
FROM ${TBLS} t
JOIN ${DBS} d ON t.${DB_ID} = d.${DB_ID}
JOIN ${SDS} s ON t.${SD_ID} = s.${SD_ID}
LEFT JOIN ${SERDES} se ON s.${SERDE_ID} = se.${SERDE_ID}
WHERE d.${NAME} = $1 AND t.${TBL_NAME} = $2`

	getColumnsSQL = `SELECT ${COLUMN_NAME}, ${TYPE_NAME}
FROM ${COLUMNS_V2}
WHERE ${CD_ID} = $1
ORDER BY ${INTEGER_IDX}`

	getPartitionKeysSQL = `SELECT ${PKEY_NAME}, ${PKEY_TYPE}
FROM ${PARTITION_KEYS}
WHERE ${TBL_ID} = $1
ORDER BY ${INTEGER_IDX}`

	getBucketColumnsSQL = `SELECT ${BUCKET_COL_NAME}
FROM ${BUCKETING_COLS}
WHERE ${SD_ID} = $1
ORDER BY ${INTEGER_IDX}`

	getTableParamsSQL = `SELECT ${PARAM_KEY}, ${PARAM_VALUE}
FROM ${TABLE_PARAMS}
WHERE ${TBL_ID} = $1`

	getSerdeParamsSQL = `SELECT ${PARAM_KEY}, ${PARAM_VALUE}
FROM ${SERDE_PARAMS}
WHERE ${SERDE_ID} = $1`
)

// render expands a query template for the DB's dialect.
func (db *DB) render(tmpl string) string {
	return renderQuery(db.Handler, tmpl)
}

func renderQuery(h DialectHandler, tmpl string) string {
	return os.Expand(tmpl, func(name string) string {
		if n, err := strconv.Atoi(name); err == nil {
			return h.Placeholder(n)
		}
		return h.QuoteIdentifier(name)
	})
}
