// -- cmd/report.go --
package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/auditlens/auditlens/internal/engine"
	"github.com/auditlens/auditlens/internal/observability"
	"github.com/auditlens/auditlens/internal/results"
)

var reportCategory string

var reportCmd = &cobra.Command{
	Use:   "report [report files...]",
	Short: "Print per-severity summary counts for normalized reports.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportCategory, "category", "static", "analysis category (static, dynamic, performance, ai)")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	logger := observability.GetLogger()

	category, err := parseCategory(reportCategory)
	if err != nil {
		return err
	}
	factory := engine.NewFactory(variantTable(), logger)

	totals := map[string]int{}
	for _, path := range args {
		payload, err := loadEnvelope(path)
		if err != nil {
			return err
		}
		report := results.Build(category, factory.Adapter(category, payload), logger)
		for severity, count := range report.Summary {
			totals[severity] += count
		}
	}

	out := cmd.OutOrStdout()
	severities := make([]string, 0, len(totals))
	for severity := range totals {
		severities = append(severities, severity)
	}
	sort.Strings(severities)
	for _, severity := range severities {
		fmt.Fprintf(out, "%s: %d\n", severity, totals[severity])
	}
	return nil
}
