// Package delta builds the change-data-capture machinery spec section
// 4.3 describes: an unlogged delta table, the row-level trigger function
// that feeds it, and the apply function the Swap Coordinator drains
// before and during the final lock. Ground truth is
// original_source/pg_rebuild_table/main.py's _create_objects_delta.
package delta

import (
	"context"
	"fmt"
	"strings"

	"github.com/nethalo/pg-rebuild-table/internal/catalog"
	"github.com/nethalo/pg-rebuild-table/internal/retry"
	"go.uber.org/zap"
)

// TriggerName is the fixed name of the row-level trigger installed on
// the source table.
const TriggerName = "z_rebuild_table__delta"

// CreateDeltaTable emits the "create unlogged table ... like ... excluding
// all" statement plus the delta_id/delta_op bookkeeping columns.
func CreateDeltaTable(t *catalog.SourceTable) string {
	return fmt.Sprintf(
		"create unlogged table %s(like %s excluding all);\n"+
			"alter table %s set (autovacuum_enabled = false);\n"+
			"alter table %s add column delta_id serial;\n"+
			"alter table %s add column delta_op \"char\";",
		t.DeltaFullName(), t.TableFullName(),
		t.DeltaFullName(),
		t.DeltaFullName(),
		t.DeltaFullName(),
	)
}

// CreateTriggerFunction emits the plpgsql trigger function that mirrors
// every insert/update/delete on the source into the delta table.
func CreateTriggerFunction(t *catalog.SourceTable) string {
	return fmt.Sprintf(`create or replace function %s() returns trigger as $$
begin
  if tg_op = 'INSERT' then
    insert into %s
      values (new.*, default, 'i');

  elsif tg_op = 'UPDATE' then
    insert into %s
      values (new.*, default, 'u');

  elsif tg_op = 'DELETE' then
    insert into %s
      values (old.*, default, 'd');

    return old;
  end if;

  return new;
end;
$$ language plpgsql security definer;`, t.DeltaFullName(), t.DeltaFullName(), t.DeltaFullName(), t.DeltaFullName())
}

// applyFunctionFullName is the fully-quoted name of the per-table apply
// function that drains the delta table into the shadow.
func applyFunctionFullName(t *catalog.SourceTable) string {
	return fmt.Sprintf(`"%s"."%s__apply_delta"`, t.SchemaName, t.TableName)
}

// CreateApplyFunction emits the plpgsql function that, in one call,
// deletes every pending delta row (returning them in insertion order) and
// replays each against the shadow table: insert-or-ignore for 'i',
// update-by-primary-key for 'u' (elided when the table has no non-PK
// columns), delete-by-primary-key for 'd'. Returns the number of rows
// applied so callers can detect convergence (spec section 4.6).
func CreateApplyFunction(t *catalog.SourceTable) string {
	columns := make([]string, len(t.Columns))
	valColumns := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		columns[i] = c.Name
		valColumns[i] = "r." + c.Name
	}
	where := make([]string, len(t.PKColumns))
	for i, c := range t.PKColumns {
		where[i] = fmt.Sprintf("t.%s = r.%s", c, c)
	}
	whereClause := strings.Join(where, " and ")

	var setColumns []string
	for _, c := range t.NonPKColumns() {
		setColumns = append(setColumns, fmt.Sprintf("%s = r.%s", c.Name, c.Name))
	}

	updateBranch := ""
	if len(setColumns) > 0 {
		updateBranch = fmt.Sprintf(`

        elsif r.delta_op = 'u' then
          update %s t
             set %s
           where %s;`, t.ShadowFullName(), strings.Join(setColumns, ","), whereClause)
	}

	return fmt.Sprintf(`create or replace function %s() returns integer as $$
declare
  r record;
  rows integer := 0;
begin
  for r in with d as (
             delete from %s
             returning *
           )
           select *
             from d
            order by delta_id
  loop
    if r.delta_op = 'i' then
      insert into %s(%s)
        values (%s)
        on conflict do nothing;%s

    elsif r.delta_op = 'd' then
      delete from %s t
       where %s;
    end if;

    rows := rows + 1;
  end loop;

  return rows;
end;
$$ language plpgsql security definer;`,
		applyFunctionFullName(t),
		t.DeltaFullName(),
		t.ShadowFullName(), strings.Join(columns, ", "), strings.Join(valColumns, ", "),
		updateBranch,
		t.ShadowFullName(), whereClause,
	)
}

// ApplyDeltaCall is the statement that invokes the apply function and
// returns the number of rows it processed.
func ApplyDeltaCall(t *catalog.SourceTable) string {
	return fmt.Sprintf("select %s() as rows;", applyFunctionFullName(t))
}

// CreateTriggerStatement emits the "create trigger" statement that wires
// the trigger function onto the live source table.
func CreateTriggerStatement(t *catalog.SourceTable) string {
	return fmt.Sprintf(
		`create trigger %q after insert or delete or update on %s for each row execute procedure %s();`,
		TriggerName, t.TableFullName(), t.DeltaFullName(),
	)
}

// Executor is the narrow surface InstallTrigger needs: a single
// statement execution inside whatever transaction/lock_timeout scope the
// caller has already established.
type Executor interface {
	Exec(ctx context.Context, sql string) error
}

// InstallTrigger installs the delta trigger on the live source table,
// retrying indefinitely on lock contention per spec section 4.3 (the
// table may be under heavy concurrent write load). Each attempt sets
// lock_timeout for the attempt, cancels any autovacuum worker that might
// be holding a conflicting lock on the table, then creates the trigger —
// all three statements sent as one multi-statement call so Postgres runs
// them as a single implicit transaction and a lock-timeout abort rolls
// the whole attempt back cleanly. lockTimeout is the caller-supplied
// session setting (spec section 6); empty skips the SET LOCAL.
func InstallTrigger(ctx context.Context, log *zap.Logger, exec Executor, t *catalog.SourceTable, lockTimeout string) error {
	var stmts []string
	if lockTimeout != "" {
		stmts = append(stmts, fmt.Sprintf("set local lock_timeout = '%s';", lockTimeout))
	}
	stmts = append(stmts, t.CancelAutovacuumStatement(), CreateTriggerStatement(t))
	combined := strings.Join(stmts, "\n")

	return retry.Forever(ctx, log, retry.IsLockNotAvailable, func(ctx context.Context) error {
		return exec.Exec(ctx, combined)
	})
}
