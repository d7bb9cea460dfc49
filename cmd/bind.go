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
package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GoogleCloudPlatform/hive-table-sink/internal/metastore"
	"github.com/GoogleCloudPlatform/hive-table-sink/internal/sink"
	"github.com/GoogleCloudPlatform/hive-table-sink/internal/utils"
)

var (
	overwrite   bool
	bindOutFile string
)

var bindCmd = &cobra.Command{
	Use:     "bind",
	Short:   "Bind INSERT targets and write their sink descriptors as JSON",
	Long:    `Loads each table from the metastore, binds it as an INSERT target and writes the resulting sink descriptor as JSON.`,
	Example: `./hive_sink_binder bind --dialect mysql --host hms-db --username hive --password pass --database metastore --session-user etl --tables sales.orders --overwrite`,
	RunE:    runBind,
}

// boundTable is a table together with the descriptor and write context of its bind.
type boundTable struct {
	Ref        utils.TableRef
	Descriptor *sink.SinkDescriptor
	Write      sink.InsertContext
}

// bindTables binds every table named by --tables against the metastore.
func bindTables(ctx context.Context, overwrite bool) ([]boundTable, error) {
	refs, err := utils.ParseTablesFlag(tablesFlag, defaultDB)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("--tables is required")
	}

	db, err := setupMetastore(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	hiveSink := newHiveTableSink(db)
	var bound []boundTable
	for _, ref := range refs {
		desc, writeCtx, err := bindTable(ctx, db, hiveSink, ref, overwrite)
		if err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", ref, err)
		}
		bound = append(bound, boundTable{Ref: ref, Descriptor: desc, Write: writeCtx})
	}
	return bound, nil
}

func bindTable(ctx context.Context, db *metastore.DB, hiveSink sink.DataSink, ref utils.TableRef, overwrite bool) (*sink.SinkDescriptor, sink.InsertContext, error) {
	table, err := db.GetTable(ctx, ref.DBName, ref.TableName, &appConfig.Catalog)
	if err != nil {
		return nil, sink.InsertContext{}, err
	}
	writeCtx := sink.InsertContext{Overwrite: overwrite}
	desc, err := hiveSink.Bind(ctx, table, &writeCtx)
	if err != nil {
		return nil, sink.InsertContext{}, err
	}
	return desc, writeCtx, nil
}

func runBind(cmd *cobra.Command, args []string) error {
	logger.Info("starting bind operation",
		zap.String("dialect", appConfig.Metastore.Dialect),
		zap.String("tables", tablesFlag),
		zap.Bool("overwrite", overwrite))

	bound, err := bindTables(cmd.Context(), overwrite)
	if err != nil {
		return err
	}

	if bindOutFile != "" {
		descs := make([]*sink.SinkDescriptor, 0, len(bound))
		for _, b := range bound {
			descs = append(descs, b.Descriptor)
		}
		var v any = descs
		if len(descs) == 1 {
			v = descs[0]
		}
		if err := utils.WriteOutput(bindOutFile, func(w io.Writer) error { return utils.WriteJSON(w, v) }); err != nil {
			return err
		}
	} else {
		for _, b := range bound {
			path := utils.GetDefaultOutputFilePath(b.Ref, "bind")
			if err := utils.WriteOutput(path, func(w io.Writer) error { return utils.WriteJSON(w, b.Descriptor) }); err != nil {
				return err
			}
			fmt.Printf("Sink descriptor for %s written to: %s\n", b.Ref, path)
		}
	}

	logger.Info("bind operation completed", zap.Int("tables", len(bound)))
	return nil
}

func init() {
	bindCmd.Flags().BoolVar(&overwrite, "overwrite", false, "Bind as INSERT OVERWRITE")
	bindCmd.Flags().StringVarP(&bindOutFile, "out_file", "o", "", "File to write descriptors to, - for stdout (optional, defaults to <db>.<table>_sink.json per table)")
}
