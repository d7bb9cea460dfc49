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
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GoogleCloudPlatform/hive-table-sink/internal/sink"
	"github.com/GoogleCloudPlatform/hive-table-sink/internal/utils"
)

var listOutFile string

var listPartitionsCmd = &cobra.Command{
	Use:     "list-partitions",
	Short:   "List the partitions of tables with their resolved format and location",
	Example: `./hive_sink_binder list-partitions --config hms.yaml --tables sales.orders`,
	RunE:    runListPartitions,
}

func runListPartitions(cmd *cobra.Command, args []string) error {
	refs, err := utils.ParseTablesFlag(tablesFlag, defaultDB)
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		return fmt.Errorf("--tables is required")
	}

	ctx := cmd.Context()
	db, err := setupMetastore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	resolver := sink.NewLocationResolver(&appConfig.Catalog, appConfig.Sink.StagingRoot)
	lister := partitionLister(db)

	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TABLE\tPARTITION\tFORMAT\tFILE TYPE\tLOCATION")
	for _, ref := range refs {
		parts, err := sink.EnumeratePartitions(ctx, lister, resolver, ref.DBName, ref.TableName)
		if err != nil {
			return fmt.Errorf("failed to list partitions of %s: %w", ref, err)
		}
		for _, p := range parts {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", ref, strings.Join(p.Values, "/"), p.Format, p.Location.FileType, p.Location.TargetPath)
		}
		logger.Debug("listed partitions", zap.Stringer("table", ref), zap.Int("count", len(parts)))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	return utils.WriteOutput(listOutFile, func(w io.Writer) error {
		_, err := io.WriteString(w, sb.String())
		return err
	})
}

func init() {
	listPartitionsCmd.Flags().StringVarP(&listOutFile, "out_file", "o", "-", "File to write the listing to, - for stdout")
}
