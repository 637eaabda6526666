// Package swap performs the atomic cutover from the live source table to
// its populated shadow: drain remaining delta rows, take an ACCESS
// EXCLUSIVE lock, detach/attach partition membership, rename or drop the
// old table, rename the shadow into place, and restore every dependent
// object, the Swap Coordinator spec section 4.6 describes. Ground truth
// is original_source/pg_rebuild_table/main.py's _switch_table.
package swap

import (
	"context"
	"fmt"
	"strings"

	"github.com/nethalo/pg-rebuild-table/internal/catalog"
	"github.com/nethalo/pg-rebuild-table/internal/retry"
	"go.uber.org/zap"
)

// MinDeltaRows is the convergence threshold: the pre-lock drain loop
// keeps applying delta batches until a batch processes this few rows or
// fewer, at which point the remaining backlog is small enough to finish
// under the exclusive lock without an unacceptably long stall.
const MinDeltaRows = 10000

// ServiceSchema is the schema that holds renamed backup tables and
// progress bookkeeping (internal/lifecycle).
const ServiceSchema = "rebuild_table"

// Executor is the narrow surface the swap needs: run a statement, or
// run the apply-delta function and get back the row count it processed.
type Executor interface {
	Exec(ctx context.Context, sql string) error
	ApplyDelta(ctx context.Context) (int, error)
}

// Options controls cutover behavior the caller (internal/rebuildtable)
// derived from CLI flags.
type Options struct {
	MakeBackup bool
	// LockTimeout is the caller-supplied session setting (spec section
	// 6), re-asserted with SET LOCAL at the start of the swap
	// transaction so a slow lock acquisition fails fast and retries
	// rather than stalling the workload indefinitely. Empty skips it.
	LockTimeout string
}

// DrainUntilConverged repeatedly applies pending delta batches until a
// batch processes MinDeltaRows rows or fewer, so the final lock-held
// drain has little work left.
func DrainUntilConverged(ctx context.Context, exec Executor) error {
	for {
		rows, err := exec.ApplyDelta(ctx)
		if err != nil {
			return fmt.Errorf("swap: drain delta: %w", err)
		}
		if rows <= MinDeltaRows {
			return nil
		}
	}
}

const partitionConstraintName = "rebuild_table__partition_constraintdef"

// AddPartitionConstraint emits the temporary CHECK constraint that lets
// the shadow table validate a declarative partition's bound before it is
// attached, elided when the table isn't a declarative partition.
func AddPartitionConstraint(t *catalog.SourceTable) string {
	if t.DeclarativePartitionExpr == "" {
		return ""
	}
	return fmt.Sprintf("alter table %s add constraint %s check %s;",
		t.ShadowFullName(), partitionConstraintName, t.PartitionConstraintDef)
}

// detachOrUninherit emits the statement that severs the source table
// from its parent before the rename, covering both declarative
// partitioning (detach) and legacy table inheritance (no inherit).
func detachOrUninherit(t *catalog.SourceTable) string {
	if t.InhParent == "" {
		return ""
	}
	if t.DeclarativePartitionExpr != "" {
		return fmt.Sprintf("alter table %s detach partition %s;", t.InhParent, t.TableFullName())
	}
	return fmt.Sprintf("alter table %s no inherit %s;", t.TableFullName(), t.InhParent)
}

// attachOrInherit emits the statement (and, for declarative partitions,
// the constraint-drop that follows it) that re-establishes partition
// membership on the renamed table.
func attachOrInherit(t *catalog.SourceTable) []string {
	if t.InhParent == "" {
		return nil
	}
	if t.DeclarativePartitionExpr != "" {
		return []string{
			fmt.Sprintf("alter table %s attach partition %s %s;", t.InhParent, t.TableFullName(), t.DeclarativePartitionExpr),
			fmt.Sprintf("alter table %s drop constraint %s;", t.TableFullName(), partitionConstraintName),
		}
	}
	return []string{fmt.Sprintf("alter table %s inherit %s;", t.TableFullName(), t.InhParent)}
}

// retireSourceTable emits the statement(s) that remove the old table
// from its live name, either by renaming it into the service schema
// (make_backup) or dropping it outright.
func retireSourceTable(t *catalog.SourceTable, makeBackup bool) []string {
	if makeBackup {
		return []string{
			fmt.Sprintf(`alter table %s rename to %s;`, t.TableFullName(), t.BackupFullName()),
			fmt.Sprintf(`alter table "%s".%s set schema %s;`, t.SchemaName, t.BackupFullName(), ServiceSchema),
		}
	}
	return []string{fmt.Sprintf("drop table %s;", t.TableFullName())}
}

// columnACLGrants renders the per-column GRANT statements carried over
// from the source table's ACL (spec section 4.6's restoration list).
func columnACLGrants(t *catalog.SourceTable, render func(catalog.ACLParams) string) []string {
	var out []string
	for _, c := range t.Columns {
		if len(c.ACL) == 0 {
			continue
		}
		out = append(out, render(catalog.ACLParams{ACL: c.ACL, ObjType: "column", ObjName: t.TableFullName(), Name: c.Name}))
	}
	return out
}

// RestoreStatements returns, in spec section 4.6's exact order, every
// statement that re-creates the source table's dependent objects on the
// newly-renamed table, excluding the rename/attach/retire steps already
// run earlier in the swap transaction. render turns a catalog.ACLParams
// into GRANT statements; internal/rebuildtable passes an adapter over
// internal/acl.RenderGrants, so this package does not import acl.
func RestoreStatements(t *catalog.SourceTable, render func(catalog.ACLParams) string) []string {
	var out []string
	add := func(s string) {
		if s != "" {
			out = append(out, s)
		}
	}
	add(strings.Join(t.RenameIndexes, "\n"))
	add(strings.Join(t.CreateConstraints, "\n"))
	add(strings.Join(t.CreateRules, "\n"))
	add(strings.Join(t.CreateTriggers, "\n"))
	add(strings.Join(t.CreateViews, "\n"))
	add(strings.Join(t.CommentViews, "\n"))
	for _, g := range columnACLGrants(t, render) {
		add(g)
	}
	for _, p := range t.ViewACLToGrantsParams {
		add(render(p))
	}
	add(strings.Join(t.CreateFunctions, "\n"))
	for _, p := range t.FunctionACLToGrantsParams {
		add(render(p))
	}
	add(strings.Join(t.AddPublicationNames, "\n"))
	add(fmt.Sprintf("alter table %s reset (autovacuum_enabled);", t.TableFullName()))
	return out
}

// applyDeltaStatement is the bare "select <apply fn>();" call, used
// inside the critical section where the drained row count isn't needed
// for control flow (only DrainUntilConverged reads it).
func applyDeltaStatement(t *catalog.SourceTable) string {
	return fmt.Sprintf(`select "%s"."%s__apply_delta"();`, t.SchemaName, t.TableName)
}

// criticalSectionSQL composes every statement spec section 4.6's swap
// transaction runs, steps 1 through 15, as one multi-statement string.
// Postgres executes a multi-statement string sent in a single protocol
// message as one implicit transaction, so this single exec.Exec call is
// what makes the cutover atomic: either every statement here lands, or
// (on any error, most commonly the lock acquisition itself) none of them
// do and the retry loop tries the whole sequence again.
func criticalSectionSQL(t *catalog.SourceTable, opts Options, render func(catalog.ACLParams) string, midSwapCleanup func(*catalog.SourceTable) []string) string {
	var stmts []string
	add := func(s string) {
		if s != "" {
			stmts = append(stmts, s)
		}
	}

	if opts.LockTimeout != "" {
		add(fmt.Sprintf("set local lock_timeout = '%s';", opts.LockTimeout))
	}
	add(applyDeltaStatement(t))
	add(t.CancelAutovacuumStatement())
	add(fmt.Sprintf("lock table %s in access exclusive mode;", t.TableFullName()))
	add(applyDeltaStatement(t))

	add(strings.Join(t.DropFunctions, "\n"))
	add(strings.Join(t.DropViews, "\n"))
	add(strings.Join(t.DropConstraints, "\n"))
	add(strings.Join(t.AlterSequences, "\n"))
	add(detachOrUninherit(t))

	for _, stmt := range retireSourceTable(t, opts.MakeBackup) {
		add(stmt)
	}
	for _, stmt := range midSwapCleanup(t) {
		add(stmt)
	}

	add(fmt.Sprintf("alter table %s rename to %q;", t.ShadowFullName(), t.TableName))

	for _, stmt := range attachOrInherit(t) {
		add(stmt)
	}
	for _, stmt := range RestoreStatements(t, render) {
		add(stmt)
	}

	return strings.Join(stmts, "\n")
}

// Run performs the full cutover: drain, lock, detach, retire, rename,
// reattach, restore (spec section 4.6). The pre-lock drain and the
// partition-constraint add run as their own statements; the lock
// acquisition through the final restore runs as the single combined
// statement criticalSectionSQL builds, so the retry loop can re-run the
// whole cutover atomically on lock contention.
func Run(ctx context.Context, log *zap.Logger, exec Executor, t *catalog.SourceTable, opts Options, render func(catalog.ACLParams) string, midSwapCleanup func(*catalog.SourceTable) []string) error {
	if err := DrainUntilConverged(ctx, exec); err != nil {
		return err
	}

	if stmt := AddPartitionConstraint(t); stmt != "" {
		if err := exec.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("swap: add partition constraint: %w", err)
		}
	}

	sql := criticalSectionSQL(t, opts, render, midSwapCleanup)
	return retry.Forever(ctx, log, retry.IsLockNotAvailable, func(ctx context.Context) error {
		return exec.Exec(ctx, sql)
	})
}
