// File: cmd/report.go
package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/ares-cli/internal/observability"
	"github.com/xkilldash9x/ares-cli/internal/rl"
)

func newReportCmd() *cobra.Command {
	var outputPath string

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Generate the aggregate performance report",
		Long: `Reads the experience store and prints the performance report:
overall success and detection rates, the best-performing strategies,
and the most frequent failure patterns.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()
			ctx := cmd.Context()

			store, closeStore, err := buildExperienceStore(ctx, appCfg.Experience, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			loop := rl.NewLoop(store, appCfg.Policy, logger)
			report, err := loop.PerformanceReport(ctx)
			if err != nil {
				return fmt.Errorf("failed to generate performance report: %w", err)
			}

			data, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode performance report: %w", err)
			}

			if outputPath != "" {
				if err := os.WriteFile(outputPath, data, 0o644); err != nil {
					return fmt.Errorf("failed to write report to %s: %w", outputPath, err)
				}
				logger.Info("Performance report written", zap.String("path", outputPath))
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	reportCmd.Flags().StringVarP(&outputPath, "output", "o", "", "write the report to a file instead of stdout")
	return reportCmd
}

func init() {
	rootCmd.AddCommand(newReportCmd())
}
