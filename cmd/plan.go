package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/nethalo/pg-rebuild-table/internal/catalog"
	"github.com/nethalo/pg-rebuild-table/internal/output"
	"github.com/nethalo/pg-rebuild-table/internal/pgconn"
	"github.com/nethalo/pg-rebuild-table/internal/plan"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var planCmd = &cobra.Command{
	Use:          "plan [schema.table]",
	Short:        "Assess a table rebuild before running it",
	SilenceUsage: true,
	Long: `Introspect a table and report:
  - Its current size
  - Whether it can be rebuilt at all (primary key, partition parent)
  - Risk level and recommended copy method (direct vs chunked)
  - Warnings about partition membership and dependent objects`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		schemaName, tableName := splitTableName(args[0])

		connCfg := connectionConfigFromFlags()
		if connCfg.Database == "" {
			return fmt.Errorf("database not specified: use -d flag")
		}

		ctx := context.Background()
		pool, err := pgconn.Connect(ctx, connCfg)
		if err != nil {
			return fmt.Errorf("connection failed: %w", err)
		}
		defer pool.Close()

		t, err := catalog.Load(ctx, pool, schemaName, tableName)
		if err != nil {
			return fmt.Errorf("loading table metadata: %w", err)
		}

		var tableBytes int64
		if err := pool.QueryRow(ctx, "select pg_total_relation_size($1)", t.TableFullName()).Scan(&tableBytes); err != nil {
			return fmt.Errorf("measuring table size: %w", err)
		}

		chunkLimit, _ := cmd.Flags().GetInt("chunk-limit")
		onlySwitch, _ := cmd.Flags().GetBool("only-switch")
		onlyValidate, _ := cmd.Flags().GetBool("only-validate-constraints")

		result := plan.Classify(plan.Input{
			Table:        t,
			TableBytes:   tableBytes,
			ChunkLimit:   chunkLimit,
			OnlySwitch:   onlySwitch,
			OnlyValidate: onlyValidate,
		})

		format := viper.GetString("format")
		renderer := output.NewRenderer(format, os.Stdout)
		renderer.RenderPlan(result)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.Flags().Int("chunk-limit", 10000, "Rows per chunked copy batch (0 disables chunking)")
	planCmd.Flags().Bool("only-switch", false, "Assume only the switch step will run")
	planCmd.Flags().Bool("only-validate-constraints", false, "Assume only constraint validation will run")
}

// splitTableName splits a "schema.table" argument, defaulting to the
// public schema when no schema is given.
func splitTableName(arg string) (schema, table string) {
	parts := strings.SplitN(arg, ".", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return "public", parts[0]
}
