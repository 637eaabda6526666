// Package rebuildtable is the top-level orchestrator: it drives
// internal/catalog, internal/objectbuilder, internal/delta,
// internal/copier, internal/swap, and internal/lifecycle through the
// full rebuild sequence spec section 2 describes, in the control-flow
// shape original_source/pg_rebuild_table/main.py's PgRebuildTable.start
// lays out.
package rebuildtable

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/nethalo/pg-rebuild-table/internal/acl"
	"github.com/nethalo/pg-rebuild-table/internal/catalog"
	"github.com/nethalo/pg-rebuild-table/internal/copier"
	"github.com/nethalo/pg-rebuild-table/internal/delta"
	"github.com/nethalo/pg-rebuild-table/internal/lifecycle"
	"github.com/nethalo/pg-rebuild-table/internal/objectbuilder"
	"github.com/nethalo/pg-rebuild-table/internal/pgconn"
	"github.com/nethalo/pg-rebuild-table/internal/retry"
	"github.com/nethalo/pg-rebuild-table/internal/swap"
)

// ColumnTypeOverride pairs a column name with a replacement type, the
// set_data_type CLI option.
type ColumnTypeOverride struct {
	Name string
	Type string
}

// Options mirrors the control-flow surface spec section 6 describes.
type Options struct {
	Clean                   bool
	OnlySwitch              bool
	OnlyValidateConstraints bool
	MakeBackup              bool
	ReorderColumns          bool
	SetColumnOrder          []string
	SetDataType             []ColumnTypeOverride
	AdditionalCondition     string
	ChunkLimit              int
	StatementTimeoutMillis  int
	LockTimeout             string
	WorkMem                 string
}

// restrictedToSteps reproduces main.py's self.only_steps list: when either
// only-switch or only-validate-constraints is set, the full build path
// (create/copy/index/analyze) is skipped and only the selected step(s)
// run.
func (o Options) restrictedToSteps() bool {
	return o.OnlySwitch || o.OnlyValidateConstraints
}

// Runner drives one rebuild end to end against a single pooled
// connection. zap gives structured phase logging in the style the
// teacher's CLI commands use for status output.
type Runner struct {
	Pool *pgxpool.Pool
	Log  *zap.Logger
}

// applyColumnOrdering mutates t.Columns per the reorder/explicit-order/
// type-override options, in the order main.py's start() applies them —
// reorder first, explicit order second (mutually exclusive in practice),
// type overrides last.
func applyColumnOrdering(t *catalog.SourceTable, opts Options) error {
	if opts.ReorderColumns {
		t.Columns = catalog.ComputeOrderedColumns(t.Columns, t.PKColumns)
	}

	if len(opts.SetColumnOrder) > 0 {
		ordered := make([]catalog.Column, 0, len(t.Columns))
		for _, name := range opts.SetColumnOrder {
			c, ok := t.ColumnByName(name)
			if !ok {
				return retry.Config(fmt.Errorf("rebuildtable: set_column_order references unknown column %q", name))
			}
			ordered = append(ordered, c)
		}
		if len(ordered) != len(t.Columns) {
			return retry.Config(fmt.Errorf("rebuildtable: set_column_order must list every column exactly once (got %d, table has %d)", len(ordered), len(t.Columns)))
		}
		t.Columns = ordered
	}

	for _, override := range opts.SetDataType {
		for i, c := range t.Columns {
			if c.Name == override.Name && c.Type != override.Type {
				t.Columns[i].Type = override.Type
			}
		}
	}
	return nil
}

// conn adapts internal/pgconn.Conn — satisfied by both *pgxpool.Pool and
// pgx.Tx — to the narrow Executor/Execer interfaces internal/delta,
// internal/copier, and internal/swap expect.
type conn struct {
	db pgconn.Conn
}

func (c conn) Exec(ctx context.Context, sql string) error {
	if sql == "" {
		return nil
	}
	_, err := c.db.Exec(ctx, sql)
	return err
}

func (c conn) ApplyDelta(ctx context.Context, t *catalog.SourceTable) (int, error) {
	var rows int
	err := c.db.QueryRow(ctx, delta.ApplyDeltaCall(t)).Scan(&rows)
	return rows, err
}

func (c conn) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return c.db.Query(ctx, sql, args...)
}

// boundExecutor binds a *catalog.SourceTable to conn.ApplyDelta so it
// satisfies swap.Executor, which takes no table argument.
type boundExecutor struct {
	conn conn
	t    *catalog.SourceTable
}

func (b boundExecutor) Exec(ctx context.Context, sql string) error { return b.conn.Exec(ctx, sql) }
func (b boundExecutor) ApplyDelta(ctx context.Context) (int, error) {
	return b.conn.ApplyDelta(ctx, b.t)
}

// runTx begins a transaction on the pool, runs fn against a conn bound
// to it, and commits on success or rolls back on error/panic unwind —
// the transaction boundary every spec section 4.2/4.3/4.4 "in one
// transaction" requirement and the copier's per-chunk isolation need.
func (r *Runner) runTx(ctx context.Context, fn func(context.Context, conn) error) error {
	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if err := fn(ctx, conn{db: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// execTx runs a single combined statement inside its own transaction —
// shorthand for the common case of runTx's fn just executing one SQL
// string.
func (r *Runner) execTx(ctx context.Context, sql string) error {
	return r.runTx(ctx, func(ctx context.Context, c conn) error {
		return c.Exec(ctx, sql)
	})
}

// Run executes the rebuild for one table, following spec section 2's
// ordering: bootstrap, (full build: object/delta/trigger/copy/index/
// analyze), switch, validate constraints — each gated by Options the
// way main.py's only_steps list gates them.
func (r *Runner) Run(ctx context.Context, schemaName, tableName string, opts Options) error {
	c := conn{db: r.Pool}

	t, err := catalog.Load(ctx, r.Pool, schemaName, tableName)
	if err != nil {
		return fmt.Errorf("rebuildtable: %w", err)
	}

	if t.IsChildExists {
		return retry.Precondition(fmt.Errorf("rebuildtable: %s.%s is a partitioned parent, rebuild its leaf partitions instead", schemaName, tableName))
	}
	if len(t.PKColumns) == 0 {
		return retry.Precondition(fmt.Errorf("rebuildtable: %s.%s has no primary key", schemaName, tableName))
	}

	if opts.Clean {
		return runCleanup(ctx, c, t, true)
	}

	if err := applyColumnOrdering(t, opts); err != nil {
		return err
	}

	for _, stmt := range lifecycle.BootstrapStatements() {
		if err := c.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("rebuildtable: bootstrap: %w", err)
		}
	}

	bound := boundExecutor{conn: c, t: t}

	if !opts.restrictedToSteps() {
		r.Log.Info("rebuild starting", zap.String("table", t.TableFullName()))

		if err := c.Exec(ctx, lifecycle.RecordStart(t)); err != nil {
			return fmt.Errorf("rebuildtable: record start: %w", err)
		}

		// Object Builder runs as one transaction (spec section 4.2).
		if err := r.execTx(ctx, strings.Join(objectbuilder.BuildAll(t), "\n")); err != nil {
			return fmt.Errorf("rebuildtable: create shadow table: %w", err)
		}

		// Delta table, trigger function, apply function also run as
		// one transaction (spec section 4.3).
		deltaObjects := strings.Join([]string{delta.CreateDeltaTable(t), delta.CreateTriggerFunction(t), delta.CreateApplyFunction(t)}, "\n")
		if err := r.execTx(ctx, deltaObjects); err != nil {
			return fmt.Errorf("rebuildtable: create delta objects: %w", err)
		}

		if err := delta.InstallTrigger(ctx, r.Log, bound, t, opts.LockTimeout); err != nil {
			return fmt.Errorf("rebuildtable: install delta trigger: %w", err)
		}

		copyTx := func(ctx context.Context, fn func(context.Context, copier.Execer) error) error {
			return r.runTx(ctx, func(ctx context.Context, c conn) error { return fn(ctx, c) })
		}
		if err := copier.CopyAll(ctx, t, opts.AdditionalCondition, opts.ChunkLimit, opts.StatementTimeoutMillis, opts.WorkMem, copyTx); err != nil {
			return fmt.Errorf("rebuildtable: copy data: %w", err)
		}

		for {
			stmt, ok := t.PopIndex()
			if !ok {
				break
			}
			if err := c.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("rebuildtable: create index: %w", err)
			}
		}

		if err := c.Exec(ctx, fmt.Sprintf("analyze %s;", t.ShadowFullName())); err != nil {
			return fmt.Errorf("rebuildtable: analyze: %w", err)
		}
	}

	if opts.OnlySwitch || !opts.restrictedToSteps() {
		midSwapCleanup := func(t *catalog.SourceTable) []string { return lifecycle.CleanupStatements(t, false) }
		swapOpts := swap.Options{MakeBackup: opts.MakeBackup, LockTimeout: opts.LockTimeout}
		if err := swap.Run(ctx, r.Log, bound, t, swapOpts, renderGrants, midSwapCleanup); err != nil {
			return fmt.Errorf("rebuildtable: switch table: %w", err)
		}
		if err := c.Exec(ctx, lifecycle.RecordAfterSwapSize(t)); err != nil {
			return fmt.Errorf("rebuildtable: record swap size: %w", err)
		}
	}

	if opts.OnlyValidateConstraints || !opts.restrictedToSteps() {
		if err := validateConstraints(ctx, c, t, r.Log); err != nil {
			return err
		}
	}

	return c.Exec(ctx, lifecycle.RecordStop(t))
}

// validateConstraints runs each pending NOT VALID constraint validation
// independently, logging and continuing past failures — a single bad
// constraint should not abort validating the rest (spec section 4.7).
func validateConstraints(ctx context.Context, c conn, t *catalog.SourceTable, log *zap.Logger) error {
	for _, stmt := range t.ValidateConstraints {
		if err := c.Exec(ctx, stmt); err != nil {
			log.Warn("constraint validation failed", zap.String("statement", stmt), zap.Error(err))
		}
	}
	return nil
}

// renderGrants adapts catalog.ACLParams, the shape metadata introspection
// produces, to internal/acl.Descriptor so internal/swap never needs to
// import internal/acl directly.
func renderGrants(p catalog.ACLParams) string {
	return acl.RenderGrants(acl.Descriptor{ACL: p.ACL, ObjType: p.ObjType, ObjName: p.ObjName, SubObjName: p.Name})
}

func runCleanup(ctx context.Context, c conn, t *catalog.SourceTable, full bool) error {
	for _, stmt := range lifecycle.CleanupStatements(t, full) {
		if err := c.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("rebuildtable: cleanup: %w", err)
		}
	}
	return nil
}
