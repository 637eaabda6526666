package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/nethalo/pg-rebuild-table/internal/pgconn"
	"github.com/nethalo/pg-rebuild-table/internal/rebuildtable"
	"go.uber.org/zap"

	"github.com/spf13/cobra"
)

var rebuildCmd = &cobra.Command{
	Use:          "rebuild [schema.table]",
	Short:        "Rebuild a table online",
	SilenceUsage: true,
	Long: `Rebuild a Postgres table online: build a shadow copy, capture
concurrent writes via a trigger-fed delta table, bulk-copy existing
rows in chunks, then swap the shadow into place under a brief
exclusive lock.

Pass --clean to remove a previous attempt's shadow/delta objects
instead of running a rebuild. Pass --only-switch or
--only-validate-constraints to resume a prior run at that step.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		schemaName, tableName := splitTableName(args[0])

		connCfg := connectionConfigFromFlags()
		if connCfg.Database == "" {
			return fmt.Errorf("database not specified: use -d flag")
		}

		opts, err := optionsFromFlags(cmd)
		if err != nil {
			return err
		}

		ctx := context.Background()
		pool, err := pgconn.Connect(ctx, connCfg)
		if err != nil {
			return fmt.Errorf("connection failed: %w", err)
		}
		defer pool.Close()

		verbose, _ := cmd.Flags().GetBool("verbose")
		log, err := newLogger(verbose)
		if err != nil {
			return fmt.Errorf("building logger: %w", err)
		}
		defer log.Sync()

		runner := &rebuildtable.Runner{Pool: pool, Log: log}
		return runner.Run(ctx, schemaName, tableName, opts)
	},
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	}
	return cfg.Build()
}

func optionsFromFlags(cmd *cobra.Command) (rebuildtable.Options, error) {
	clean, _ := cmd.Flags().GetBool("clean")
	onlySwitch, _ := cmd.Flags().GetBool("only-switch")
	onlyValidate, _ := cmd.Flags().GetBool("only-validate-constraints")
	makeBackup, _ := cmd.Flags().GetBool("make-backup")
	reorderColumns, _ := cmd.Flags().GetBool("reorder-columns")
	setColumnOrder, _ := cmd.Flags().GetString("set-column-order")
	setDataType, _ := cmd.Flags().GetStringSlice("set-data-type")
	additionalCondition, _ := cmd.Flags().GetString("additional-condition")
	chunkLimit, _ := cmd.Flags().GetInt("chunk-limit")
	statementTimeout, _ := cmd.Flags().GetInt("statement-timeout")
	lockTimeout, _ := cmd.Flags().GetString("lock-timeout")
	workMem, _ := cmd.Flags().GetString("work-mem")

	opts := rebuildtable.Options{
		Clean:                   clean,
		OnlySwitch:              onlySwitch,
		OnlyValidateConstraints: onlyValidate,
		MakeBackup:              makeBackup,
		ReorderColumns:          reorderColumns,
		AdditionalCondition:     additionalCondition,
		ChunkLimit:              chunkLimit,
		StatementTimeoutMillis:  statementTimeout,
		LockTimeout:             lockTimeout,
		WorkMem:                 workMem,
	}

	if setColumnOrder != "" {
		opts.SetColumnOrder = splitAndTrim(setColumnOrder)
	}

	for _, pair := range setDataType {
		name, typ, ok := strings.Cut(pair, "=")
		if !ok {
			return opts, fmt.Errorf("--set-data-type expects column=type, got %q", pair)
		}
		opts.SetDataType = append(opts.SetDataType, rebuildtable.ColumnTypeOverride{
			Name: strings.TrimSpace(name),
			Type: strings.TrimSpace(typ),
		})
	}

	return opts, nil
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

func init() {
	rootCmd.AddCommand(rebuildCmd)
	rebuildCmd.Flags().Bool("clean", false, "Remove a previous attempt's shadow/delta objects instead of rebuilding")
	rebuildCmd.Flags().Bool("only-switch", false, "Resume at the swap step only")
	rebuildCmd.Flags().Bool("only-validate-constraints", false, "Resume at constraint validation only")
	rebuildCmd.Flags().Bool("make-backup", false, "Keep the retired source table instead of dropping it")
	rebuildCmd.Flags().Bool("reorder-columns", false, "Reorder columns to minimize padding (fixed-width columns first, widest to narrowest)")
	rebuildCmd.Flags().String("set-column-order", "", "Comma-separated explicit column order")
	rebuildCmd.Flags().StringSlice("set-data-type", nil, "column=newtype pairs to change during rebuild, may repeat")
	rebuildCmd.Flags().String("additional-condition", "", "Extra WHERE clause restricting which rows are copied")
	rebuildCmd.Flags().Int("chunk-limit", 10000, "Rows per chunked copy batch (0 disables chunking)")
	rebuildCmd.Flags().Int("statement-timeout", 900000, "Postgres statement_timeout in milliseconds for each copy chunk (0 leaves server default)")
	rebuildCmd.Flags().String("lock-timeout", "1s", "Postgres lock_timeout for trigger install and the swap transaction, e.g. \"5s\"")
	rebuildCmd.Flags().String("work-mem", "1GB", "Postgres work_mem for each copy chunk")
}
