package lifecycle

import (
	"strings"
	"testing"

	"github.com/nethalo/pg-rebuild-table/internal/catalog"
)

func tableFixture() *catalog.SourceTable {
	return &catalog.SourceTable{SchemaName: "public", TableName: "orders"}
}

func TestBootstrapStatementsAreIdempotent(t *testing.T) {
	stmts := BootstrapStatements()
	for _, s := range stmts {
		if !strings.Contains(s, "if not exists") {
			t.Errorf("expected idempotent DDL, got %q", s)
		}
	}
}

func TestCleanupStatementsFull(t *testing.T) {
	stmts := CleanupStatements(tableFixture(), true)
	joined := strings.Join(stmts, "\n")
	if !strings.Contains(joined, `drop trigger if exists "z_rebuild_table__delta" on "public"."orders"`) {
		t.Errorf("expected trigger drop on the live table, got:\n%s", joined)
	}
	if !strings.Contains(joined, `drop table if exists "public"."orders__new"`) {
		t.Errorf("expected shadow table drop, got:\n%s", joined)
	}
}

func TestCleanupStatementsPartial(t *testing.T) {
	stmts := CleanupStatements(tableFixture(), false)
	joined := strings.Join(stmts, "\n")
	if strings.Contains(joined, "__new") {
		t.Errorf("partial cleanup should not reference the shadow table, got:\n%s", joined)
	}
	if !strings.Contains(joined, ServiceSchema) {
		t.Errorf("expected service-schema-qualified trigger drop, got:\n%s", joined)
	}
}

func TestRecordStartIncludesTableIdentity(t *testing.T) {
	stmt := RecordStart(tableFixture())
	if !strings.Contains(stmt, "'public'") || !strings.Contains(stmt, "'orders'") {
		t.Errorf("expected schema/table literals in progress insert, got %q", stmt)
	}
}
