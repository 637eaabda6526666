// Package lifecycle manages the rebuild's bookkeeping: the service
// schema that holds renamed backups and per-table progress rows, and the
// cleanup routine that tears down shadow/delta objects on an explicit
// --clean or mid-swap (spec section 4.7, plus the progress-tracking
// supplement SPEC_FULL.md section 6.7). Ground truth is
// original_source/pg_rebuild_table/main.py's _cleanup and start()'s
// service-schema bootstrap.
package lifecycle

import (
	"fmt"

	"github.com/nethalo/pg-rebuild-table/internal/catalog"
	"github.com/nethalo/pg-rebuild-table/internal/delta"
)

// ServiceSchema is the schema holding backup tables and progress rows.
const ServiceSchema = "rebuild_table"

// ProgressTable is the fully-qualified progress-tracking table name.
const ProgressTable = `"rebuild_table"."table"`

// BootstrapStatements returns the idempotent "create schema/table if not
// exists" statements that must run before any rebuild, regardless of
// which steps are selected (SPEC_FULL.md section 6.7).
func BootstrapStatements() []string {
	return []string{
		fmt.Sprintf(`create schema if not exists %q;`, ServiceSchema),
		fmt.Sprintf(`create table if not exists %s(
  schema_name text,
  table_name text,
  last_start_time timestamp,
  last_stop_time timestamp,
  before_table_size bigint,
  before_total_size bigint,
  after_table_size bigint,
  after_total_size bigint,
  constraint pk_table primary key(schema_name, table_name));`, ProgressTable),
	}
}

// RecordStart upserts the progress row for a fresh run, capturing the
// table's size before any shadow object exists.
func RecordStart(t *catalog.SourceTable) string {
	return fmt.Sprintf(`
insert into %s(schema_name, table_name, last_start_time, before_table_size, before_total_size)
  values ('%s', '%s', now(), pg_table_size('%s'), pg_total_relation_size('%s'))
on conflict on constraint pk_table
do update set last_start_time = now();`,
		ProgressTable, t.SchemaName, t.TableName, t.TableFullName(), t.TableFullName())
}

// RecordAfterSwapSize updates the progress row with the rebuilt table's
// size, run once the swap has landed the shadow under the live name.
func RecordAfterSwapSize(t *catalog.SourceTable) string {
	return fmt.Sprintf(`
update %s t
   set after_table_size = pg_table_size('%s'),
       after_total_size = pg_total_relation_size('%s')
 where t.schema_name = '%s' and t.table_name = '%s';`,
		ProgressTable, t.TableFullName(), t.TableFullName(), t.SchemaName, t.TableName)
}

// RecordStop marks the run's completion time, run once at the end of
// every successful invocation without --clean, regardless of which steps
// ran. A --clean run or a run that returns an error does not reach it.
func RecordStop(t *catalog.SourceTable) string {
	return fmt.Sprintf(`
update %s t
   set last_stop_time = now()
 where t.schema_name = '%s' and t.table_name = '%s';`,
		ProgressTable, t.SchemaName, t.TableName)
}

// CleanupStatements returns the statements that tear down the
// shadow/delta objects for a table. When full is true (the --clean CLI
// path) it also drops the trigger on
// the live source table and the shadow table itself. When false (the
// mid-swap partial cleanup, called after the shadow has already been
// renamed into place) it instead drops the trigger left on the renamed
// backup copy in the service schema, since the live table no longer
// carries it.
func CleanupStatements(t *catalog.SourceTable, full bool) []string {
	var out []string
	if full {
		out = append(out,
			fmt.Sprintf(`drop trigger if exists %q on %s;`, delta.TriggerName, t.TableFullName()),
			fmt.Sprintf(`drop table if exists %s;`, t.ShadowFullName()),
		)
	} else {
		out = append(out, fmt.Sprintf(`drop trigger if exists %q on %s.%s;`, delta.TriggerName, ServiceSchema, t.BackupFullName()))
	}
	out = append(out,
		fmt.Sprintf(`drop function if exists "%s"."%s__apply_delta";`, t.SchemaName, t.TableName),
		fmt.Sprintf(`drop function if exists %s();`, t.DeltaFullName()),
		fmt.Sprintf(`drop table if exists %s;`, t.DeltaFullName()),
	)
	return out
}
