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

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GoogleCloudPlatform/hive-table-sink/internal/sink"
	"github.com/GoogleCloudPlatform/hive-table-sink/internal/utils"
)

var (
	explainVerbose bool
	explainBrief   bool
	explainOutFile string
)

var explainCmd = &cobra.Command{
	Use:     "explain",
	Short:   "Print the plan text of the sink bound for each table",
	Example: `./hive_sink_binder explain --config hms.yaml --tables sales.orders --verbose`,
	RunE:    runExplain,
}

func explainLevel() sink.ExplainLevel {
	switch {
	case explainVerbose:
		return sink.ExplainVerbose
	case explainBrief:
		return sink.ExplainBrief
	default:
		return sink.ExplainNormal
	}
}

func runExplain(cmd *cobra.Command, args []string) error {
	if explainVerbose && explainBrief {
		return fmt.Errorf("--verbose and --brief are mutually exclusive")
	}
	bound, err := bindTables(cmd.Context(), overwrite)
	if err != nil {
		return err
	}

	var sb strings.Builder
	for _, b := range bound {
		fmt.Fprintf(&sb, "%s:\n", b.Ref)
		sb.WriteString(b.Descriptor.Explain("  ", explainLevel()))
	}
	if err := utils.WriteOutput(explainOutFile, func(w io.Writer) error {
		_, err := io.WriteString(w, sb.String())
		return err
	}); err != nil {
		return err
	}

	logger.Debug("explain operation completed", zap.Int("tables", len(bound)))
	return nil
}

func init() {
	explainCmd.Flags().BoolVar(&explainVerbose, "verbose", false, "Include per-partition details")
	explainCmd.Flags().BoolVar(&explainBrief, "brief", false, "Print only the sink header")
	explainCmd.Flags().BoolVar(&overwrite, "overwrite", false, "Explain an INSERT OVERWRITE bind")
	explainCmd.Flags().StringVarP(&explainOutFile, "out_file", "o", "-", "File to write the plan text to, - for stdout")
}
