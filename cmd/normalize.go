// -- cmd/normalize.go --
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	json "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/auditlens/auditlens/internal/engine"
	"github.com/auditlens/auditlens/internal/observability"
	"github.com/auditlens/auditlens/internal/results"
	"github.com/auditlens/auditlens/internal/store"
)

var (
	normalizeCategory string
	normalizeTool     string
	normalizeFinding  string
	normalizeStore    bool
)

// dbPool is what the store path needs from a connection pool.
type dbPool interface {
	store.DBPool
	Close()
}

// newDBPool connects the production pool. Tests swap this for a mock.
var newDBPool = func(ctx context.Context, url string) (dbPool, error) {
	return pgxpool.New(ctx, url)
}

var normalizeCmd = &cobra.Command{
	Use:   "normalize [report files...]",
	Short: "Normalize raw analysis-report JSON into canonical findings.",
	Long: `Reads one or more raw tool-report envelopes, resolves the requested
category payload inside each, and prints the normalized report as JSON.
Files are processed concurrently; the engine is stateless and safe to share.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runNormalize,
}

func init() {
	normalizeCmd.Flags().StringVar(&normalizeCategory, "category", "static", "analysis category (static, dynamic, performance, ai)")
	normalizeCmd.Flags().StringVar(&normalizeTool, "tool", "", "print the per-tool view for this tool instead of the full report")
	normalizeCmd.Flags().StringVar(&normalizeFinding, "finding", "", "print the detail view for this finding id instead of the full report")
	normalizeCmd.Flags().BoolVar(&normalizeStore, "store", false, "persist normalized reports to the configured database")
	rootCmd.AddCommand(normalizeCmd)
}

func parseCategory(s string) (engine.Category, error) {
	switch engine.Category(s) {
	case engine.CategoryStatic, engine.CategoryDynamic, engine.CategoryPerformance, engine.CategoryAI:
		return engine.Category(s), nil
	default:
		return "", fmt.Errorf("unknown category %q", s)
	}
}

// variantTable converts the configured resolver variants into the engine's
// table, falling back to compiled-in defaults when unconfigured.
func variantTable() engine.VariantTable {
	if len(appConfig.Resolver.Variants) == 0 {
		return nil
	}
	table := engine.VariantTable{}
	for category, names := range appConfig.Resolver.Variants {
		table[engine.Category(category)] = names
	}
	return table
}

// loadEnvelope decodes one report file. Undecodable JSON is rejected here;
// the engine only ever sees syntactically valid payloads.
func loadEnvelope(path string) (engine.Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var payload engine.Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return payload, nil
}

func runNormalize(cmd *cobra.Command, args []string) error {
	logger := observability.GetLogger()

	category, err := parseCategory(normalizeCategory)
	if err != nil {
		return err
	}
	factory := engine.NewFactory(variantTable(), logger)

	type outcome struct {
		adapter engine.Adapter
		report  *results.Report
	}
	outcomes := make([]outcome, len(args))

	g := new(errgroup.Group)
	g.SetLimit(appConfig.Engine.Workers)
	for i, path := range args {
		i, path := i, path
		g.Go(func() error {
			payload, err := loadEnvelope(path)
			if err != nil {
				return err
			}
			adapter := factory.Adapter(category, payload)
			outcomes[i] = outcome{
				adapter: adapter,
				report:  results.Build(category, adapter, logger),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if normalizeStore {
		// The command context, not a context tied to the now-finished
		// normalization group.
		ctx := cmd.Context()
		pool, err := newDBPool(ctx, appConfig.Database.URL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()
		st, err := store.New(ctx, pool, logger)
		if err != nil {
			return err
		}
		for _, o := range outcomes {
			if err := st.SaveReport(ctx, o.report); err != nil {
				return err
			}
		}
	}

	out := cmd.OutOrStdout()
	for i, o := range outcomes {
		switch {
		case normalizeFinding != "":
			detail := o.adapter.Detail(normalizeFinding)
			if detail == nil {
				logger.Warn("Finding not found",
					zap.String("finding_id", normalizeFinding),
					zap.String("file", args[i]))
				fmt.Fprintln(out, "null")
				continue
			}
			if err := printJSON(out, detail); err != nil {
				return err
			}
		case normalizeTool != "":
			if err := printJSON(out, o.adapter.ToolData(normalizeTool)); err != nil {
				return err
			}
		default:
			buf, err := o.report.ToJSON()
			if err != nil {
				return fmt.Errorf("failed to encode report: %w", err)
			}
			fmt.Fprintln(out, string(buf))
		}
	}
	return nil
}

func printJSON(w io.Writer, v interface{}) error {
	buf, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	buf = append(buf, '\n')
	_, err = w.Write(buf)
	return err
}
