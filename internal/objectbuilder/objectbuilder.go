// Package objectbuilder emits the statements that create the shadow table's
// own structure (columns, comments, statistics, storage parameters,
// replica identity, table grants, check constraints), the Object Builder
// spec section 4.2 describes. Indexes, other constraints, triggers, views
// and functions are not built here; internal/swap restores them during the
// cutover. It never executes anything itself;
// callers (internal/rebuildtable) run the returned statements against a
// catalog.Querier/executor.
package objectbuilder

import (
	"fmt"
	"strings"

	"github.com/nethalo/pg-rebuild-table/internal/catalog"
)

// stripDefaultCast removes a cast to columnType (the column's current
// type, or its leaf name with or without a "public." prefix) from a
// default expression, e.g. "'active'::character varying" -> "'active'".
// A cast to any other type is left in place. Ported from untype_default
// in original_source/pg_rebuild_table/main.py.
func stripDefaultCast(def, columnType string) string {
	out := strings.ReplaceAll(def, "'::"+columnType, "'")
	if parts := strings.Split(columnType, "."); len(parts) > 0 {
		out = strings.ReplaceAll(out, "'::public."+parts[len(parts)-1], "'")
		out = strings.ReplaceAll(out, "'::"+parts[len(parts)-1], "'")
	}
	return out
}

// columnDef renders one column of the shadow table's CREATE TABLE list.
func columnDef(c catalog.Column) string {
	def := fmt.Sprintf("%s %s", c.Name, c.Type)
	if c.Collate != "" {
		def += fmt.Sprintf(" collate %s", c.Collate)
	}
	if c.NotNull {
		def += " not null"
	}
	if c.Default != "" {
		def += fmt.Sprintf(" default %s", stripDefaultCast(c.Default, c.Type))
	}
	return def
}

// CreateTableNew emits the CREATE TABLE statement for the shadow table,
// in the column order t.Columns currently holds (the caller is
// responsible for having already applied reorder/explicit-order/type
// overrides to t.Columns before calling this).
func CreateTableNew(t *catalog.SourceTable) string {
	defs := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		defs[i] = columnDef(c)
	}
	return fmt.Sprintf("create table %s(%s)", t.ShadowFullName(), strings.Join(defs, ", "))
}

// ColumnComments emits "comment on column" statements for columns that
// carry one.
func ColumnComments(t *catalog.SourceTable) string {
	var lines []string
	for _, c := range t.Columns {
		if c.Comment != "" {
			lines = append(lines, fmt.Sprintf("comment on column %s.%s is %s;", t.ShadowFullName(), c.Name, c.Comment))
		}
	}
	return strings.Join(lines, "\n")
}

// ColumnStatistics emits "alter table ... alter ... set statistics" for
// columns with a non-default statistics target.
func ColumnStatistics(t *catalog.SourceTable) string {
	var lines []string
	for _, c := range t.Columns {
		if c.Statistics != nil {
			lines = append(lines, fmt.Sprintf("alter table only %s alter %s set statistics %d;", t.ShadowFullName(), c.Name, *c.Statistics))
		}
	}
	return strings.Join(lines, "\n")
}

// StorageParameters joins the source table's raw reloptions statements
// (already fully-formed SQL fragments from introspection) as-is.
func StorageParameters(t *catalog.SourceTable) string {
	return strings.Join(t.StorageParameters, "\n")
}

// DisableAutovacuum turns off autovacuum on the shadow table for the
// duration of the build; re-enabled at the end of the swap.
func DisableAutovacuum(t *catalog.SourceTable) string {
	return fmt.Sprintf("alter table %s set (autovacuum_enabled = false);", t.ShadowFullName())
}

// GrantPrivileges joins the pre-rendered grant statements captured at
// introspection time (table-level ACL, independent of internal/acl's
// per-dependent-object rendering).
func GrantPrivileges(t *catalog.SourceTable) string {
	return strings.Join(t.GrantPrivileges, "\n")
}

// ReplicaIdentity emits the shadow table's replica identity statement,
// matching the source's.
func ReplicaIdentity(t *catalog.SourceTable) string {
	if t.ReplicaIdentity == "" {
		return ""
	}
	return fmt.Sprintf("alter table %s replica identity %s;", t.ShadowFullName(), t.ReplicaIdentity)
}

// TableComment emits the source table's own comment, already fully
// formed SQL text (or empty) from introspection.
func TableComment(t *catalog.SourceTable) string {
	return t.Comment
}

// CheckConstraints joins the pre-rendered CHECK constraint DDL captured
// at introspection time.
func CheckConstraints(t *catalog.SourceTable) string {
	return strings.Join(t.CreateCheckConstraints, "\n")
}

// BuildAll runs every shadow-table statement builder in the order spec
// section 4.2 lists, returning them as a single ordered slice so the
// caller can execute them inside one transaction, skipping empties.
func BuildAll(t *catalog.SourceTable) []string {
	builders := []func(*catalog.SourceTable) string{
		CreateTableNew,
		ColumnComments,
		ColumnStatistics,
		StorageParameters,
		DisableAutovacuum,
		GrantPrivileges,
		ReplicaIdentity,
		TableComment,
		CheckConstraints,
	}
	var out []string
	for _, b := range builders {
		if stmt := b(t); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
