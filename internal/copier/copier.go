// Package copier builds the bulk-copy queries that move rows from the
// live source table into its shadow, the Chunked Copier spec section
// 4.4 describes. A chunked copy is resumable: each batch returns the
// last primary-key values it inserted, which feed the lexicographic
// "keyset" predicate for the next batch. Ground truth is
// original_source/pg_rebuild_table/main.py's _get_copy_query/_copy_data.
package copier

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/nethalo/pg-rebuild-table/internal/catalog"
)

// PKValue is one row's primary-key column values, keyed by column name,
// rendered as the literal SQL text to compare against (quoting is the
// caller's responsibility — values come back from pgx scans of the
// source table's own columns and are re-literalized via fmt).
type PKValue map[string]string

// pkPredicate builds the "keyset" WHERE clause that selects rows
// lexicographically after pkValue across the primary key's column order:
// (pk1 > v1) or (pk1 = v1 and pk2 > v2) or (pk1 = v1 and pk2 = v2 and pk3 > v3) ...
// An empty/nil pkValue means "from the start" and yields no predicate.
func pkPredicate(pkColumns []string, pkValue PKValue) string {
	if len(pkValue) == 0 {
		return ""
	}
	var groups []string
	var seen []string
	for _, k := range pkColumns {
		var parts []string
		for _, c := range seen {
			parts = append(parts, fmt.Sprintf("t.%s = %s", c, pkValue[c]))
		}
		parts = append(parts, fmt.Sprintf("t.%s > %s", k, pkValue[k]))
		groups = append(groups, "("+strings.Join(parts, " and ")+")")
		seen = append(seen, k)
	}
	return fmt.Sprintf("where (%s)", strings.Join(groups, " or "))
}

// BuildQuery returns the INSERT ... SELECT statement for one copy batch.
// When chunkLimit > 0 and the table has a primary key, it builds the
// chunked keyset-scan form (spec section 4.4) that also returns the
// inserted row count and the last row of the batch, so the caller can
// extract the next PKValue and detect completion (an empty result set).
// Otherwise it builds a single unconditional INSERT ... SELECT covering
// the whole table.
func BuildQuery(t *catalog.SourceTable, additionalCondition string, chunkLimit int, pkValue PKValue) string {
	additional := ""
	if additionalCondition != "" {
		additional = "where " + additionalCondition
	}

	insCols := make([]string, len(t.Columns))
	selCols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		insCols[i] = c.Name
		selCols[i] = "t." + c.Name
	}

	if chunkLimit > 0 && len(t.PKColumns) > 0 {
		pkCols := make([]string, len(t.PKColumns))
		for i, c := range t.PKColumns {
			pkCols[i] = "t." + c
		}
		pkOrderBy := strings.Join(pkCols, ", ")
		predicate := pkPredicate(t.PKColumns, pkValue)

		return fmt.Sprintf(`
with w_t as (
  select t.*,
         max(t.___rn) over() ___max_rn
    from (select t.*,
                 row_number() over() as ___rn
            from (select t.*
                    from %s t
                   %s
                   order by %s
                   limit %d) t) t
),
w_i as (
  insert into %s(%s)
    select %s
      from w_t t
     %s
     order by %s
  returning *
)
select (select count(1)
          from w_i i) as inserted_count,
       t.*
  from w_t t
 where t.___max_rn = t.___rn;
`, t.TableFullName(), predicate, pkOrderBy, chunkLimit,
			t.ShadowFullName(), strings.Join(insCols, ", "), strings.Join(selCols, ", "), additional, pkOrderBy)
	}

	return fmt.Sprintf(`
insert into %s(%s)
  select %s
    from %s t
   %s
`, t.ShadowFullName(), strings.Join(insCols, ", "), strings.Join(selCols, ", "), t.TableFullName(), additional)
}

// Execer is the narrow pgx surface the copy loop needs: Query for the
// chunked (row-returning) form, Exec for the unconditional single-shot
// form.
type Execer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string) error
}

// sessionSettingStatements renders the "set local statement_timeout"/
// "set local work_mem" statements each chunk's own transaction runs
// before its copy query (spec section 4.4), skipping settings the
// caller left unset.
func sessionSettingStatements(statementTimeoutMillis int, workMem string) string {
	var stmts []string
	if statementTimeoutMillis > 0 {
		stmts = append(stmts, fmt.Sprintf("set local statement_timeout = %d;", statementTimeoutMillis))
	}
	if workMem != "" {
		stmts = append(stmts, fmt.Sprintf("set local work_mem = '%s';", workMem))
	}
	return strings.Join(stmts, "\n")
}

// CopyAll drives the chunked copy loop to completion: repeatedly builds
// and runs a batch query, advancing the keyset cursor from each batch's
// trailing row, until a batch returns no rows. With chunkLimit <= 0 (or
// no primary key) it instead runs the single unconditional copy. Each
// batch (or the single unbounded copy) runs inside its own transaction
// via runTx, with statement_timeout/work_mem set locally for just that
// transaction, so a stuck batch can be cancelled and retried without
// dragging down the whole copy (spec section 4.4).
func CopyAll(ctx context.Context, t *catalog.SourceTable, additionalCondition string, chunkLimit, statementTimeoutMillis int, workMem string, runTx func(context.Context, func(context.Context, Execer) error) error) error {
	settings := sessionSettingStatements(statementTimeoutMillis, workMem)

	if chunkLimit <= 0 || len(t.PKColumns) == 0 {
		query := BuildQuery(t, additionalCondition, 0, nil)
		return runTx(ctx, func(ctx context.Context, exec Execer) error {
			if settings != "" {
				if err := exec.Exec(ctx, settings); err != nil {
					return err
				}
			}
			return exec.Exec(ctx, query)
		})
	}

	var pkValue PKValue
	for {
		query := BuildQuery(t, additionalCondition, chunkLimit, pkValue)
		var next PKValue
		err := runTx(ctx, func(ctx context.Context, exec Execer) error {
			if settings != "" {
				if err := exec.Exec(ctx, settings); err != nil {
					return err
				}
			}
			n, err := scanBatch(ctx, exec, query, t.PKColumns)
			next = n
			return err
		})
		if err != nil {
			return fmt.Errorf("copier: batch failed: %w", err)
		}
		if next == nil {
			return nil
		}
		pkValue = next
	}
}

// scanBatch runs one chunked batch and extracts the trailing row's
// primary-key values as the next cursor. Returns nil, nil when the batch
// produced no row (copy complete: the w_t CTE's source slice was empty).
func scanBatch(ctx context.Context, exec Execer, query string, pkColumns []string) (PKValue, error) {
	rows, err := exec.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	row, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	next := make(PKValue, len(pkColumns))
	for _, c := range pkColumns {
		next[c] = fmt.Sprintf("'%v'", row[c])
	}
	return next, nil
}
