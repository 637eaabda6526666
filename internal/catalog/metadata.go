// Package catalog holds the frozen snapshot of a source table and everything
// that must be reconstructed on its shadow: the Metadata Model.
package catalog

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
)

//go:embed sql/table_info_query.sql
var tableInfoQuery string

// Column describes one column of the source table.
type Column struct {
	Name       string
	Type       string
	Collate    string
	NotNull    bool `json:"not_null"`
	Default    string
	Comment    string
	Statistics *int
	ACL        []string
}

// ACLParams describes an ACL-bearing object for the grants renderer
// (internal/acl): a view, function, or procedure, plus its privileges.
type ACLParams struct {
	ACL     []string
	ObjType string
	ObjName string
	Name    string // sub-object name (column), empty for table-level objects
}

// SourceTable is the live table being rebuilt, and every dependent object
// that must be preserved across the rebuild. Populated once by Load;
// internal/rebuildtable may mutate Columns (reorder, type override) before
// any shadow object is built, per spec section 4.1.
type SourceTable struct {
	SchemaName string
	TableName  string

	Columns        []Column
	PKColumns      []string
	OrderedColumns []Column // not populated by Load; reorder_columns reorders Columns via ComputeOrderedColumns

	StorageParameters []string
	// ReplicaIdentity is the keyword form ALTER TABLE ... REPLICA IDENTITY
	// expects ("default", "nothing", "full", or "using index <name>"), not
	// the raw pg_class.relreplident char — the introspection query
	// translates it before it ever reaches Go.
	ReplicaIdentity        string
	Comment                string
	CreateCheckConstraints []string
	GrantPrivileges        []string

	// CreateIndexes is a LIFO stack: PopIndex consumes entries one at a
	// time so a struct snapshot mid-run reflects exactly the work left.
	CreateIndexes []string

	CreateConstraints   []string
	ValidateConstraints []string
	DropConstraints     []string

	CreateTriggers []string
	CreateRules    []string
	CreateViews    []string
	CommentViews   []string
	DropViews      []string

	CreateFunctions []string
	DropFunctions   []string
	AlterSequences  []string
	RenameIndexes   []string

	AddPublicationNames []string

	ViewACLToGrantsParams     []ACLParams
	FunctionACLToGrantsParams []ACLParams

	// Partition linkage. InhParent is the parent's regclass text, empty
	// if this table does not inherit/attach to anything.
	InhParent                      string
	DeclarativePartitionExpr       string
	PartitionConstraintDef         string
	IsChildExists                  bool // true if this table is itself a partition parent
}

// TableFullName is the fully-quoted source identifier.
func (t *SourceTable) TableFullName() string {
	return fmt.Sprintf(`"%s"."%s"`, t.SchemaName, t.TableName)
}

// ShadowFullName is the fully-quoted shadow-table identifier.
func (t *SourceTable) ShadowFullName() string {
	return fmt.Sprintf(`"%s"."%s__new"`, t.SchemaName, t.TableName)
}

// DeltaFullName is the fully-quoted delta-table identifier.
func (t *SourceTable) DeltaFullName() string {
	return fmt.Sprintf(`"%s"."%s__delta"`, t.SchemaName, t.TableName)
}

// BackupFullName is the fully-quoted identifier the source is renamed to
// when make_backup is set, before it is moved into the service schema.
func (t *SourceTable) BackupFullName() string {
	return fmt.Sprintf(`"%s__%s"`, t.SchemaName, t.TableName)
}

// CancelAutovacuumStatement returns the pg_cancel_backend query run
// immediately before any operation that needs an ACCESS EXCLUSIVE lock
// (trigger install, swap) so a long-running autovacuum worker on this
// table doesn't stall it. The match is a regex against
// pg_stat_activity.query rather than relname, which is imprecise and
// may hit an unrelated backend whose query text happens to mention the
// table name (spec section 9, open question a) — kept as-is.
func (t *SourceTable) CancelAutovacuumStatement() string {
	return fmt.Sprintf(`select pg_cancel_backend(pid) from pg_stat_activity where state = 'active' and backend_type = 'autovacuum worker' and query ~ '%s';`, t.TableName)
}

// NonPKColumns returns columns that are not part of the primary key, in
// Columns order. An empty result means the apply function's UPDATE branch
// is elided entirely (spec section 4.3).
func (t *SourceTable) NonPKColumns() []Column {
	pk := make(map[string]bool, len(t.PKColumns))
	for _, c := range t.PKColumns {
		pk[c] = true
	}
	var out []Column
	for _, c := range t.Columns {
		if !pk[c.Name] {
			out = append(out, c)
		}
	}
	return out
}

// ColumnByName looks up a column by name in Columns.
func (t *SourceTable) ColumnByName(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// PopIndex pops the next pending index-creation statement off the stack.
// An empty stack (ok == false) signals "done" (spec section 4.1, 4.5).
func (t *SourceTable) PopIndex() (stmt string, ok bool) {
	n := len(t.CreateIndexes)
	if n == 0 {
		return "", false
	}
	stmt = t.CreateIndexes[n-1]
	t.CreateIndexes = t.CreateIndexes[:n-1]
	return stmt, true
}

// Querier is the narrow pgx surface catalog.Load needs, so callers can pass
// a *pgx.Conn, a transaction, or a test double.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// rawRow mirrors the embedded introspection query's result shape: nested
// structures travel as jsonb so one round trip populates the whole record.
type rawRow struct {
	SchemaName               string
	TableName                string
	Columns                  []byte
	PKColumns                []string
	StorageParameters        []string
	ReplicaIdentity          string
	TableComment             string
	IsChildExists            bool
	InhParent                string
	DeclarativePartitionExpr string
}

// Load runs the introspection query for (schema, table) and returns a
// frozen SourceTable. The query text itself is opaque to this function —
// it is neither parsed nor modified, only bound and scanned (spec section 6).
func Load(ctx context.Context, q Querier, schema, table string) (*SourceTable, error) {
	var raw rawRow
	row := q.QueryRow(ctx, tableInfoQuery, schema, table)
	if err := row.Scan(
		&raw.SchemaName,
		&raw.TableName,
		&raw.Columns,
		&raw.PKColumns,
		&raw.StorageParameters,
		&raw.ReplicaIdentity,
		&raw.TableComment,
		&raw.IsChildExists,
		&raw.InhParent,
		&raw.DeclarativePartitionExpr,
	); err != nil {
		return nil, fmt.Errorf("catalog: loading %q.%q: %w", schema, table, err)
	}

	var cols []Column
	if len(raw.Columns) > 0 {
		if err := json.Unmarshal(raw.Columns, &cols); err != nil {
			return nil, fmt.Errorf("catalog: decoding columns for %q.%q: %w", schema, table, err)
		}
	}

	t := &SourceTable{
		SchemaName:               raw.SchemaName,
		TableName:                raw.TableName,
		Columns:                  cols,
		PKColumns:                raw.PKColumns,
		StorageParameters:        raw.StorageParameters,
		ReplicaIdentity:          raw.ReplicaIdentity,
		Comment:                  raw.TableComment,
		IsChildExists:            raw.IsChildExists,
		InhParent:                raw.InhParent,
		DeclarativePartitionExpr: raw.DeclarativePartitionExpr,
	}
	return t, nil
}
