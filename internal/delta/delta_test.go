package delta

import (
	"context"
	"strings"
	"testing"

	"github.com/nethalo/pg-rebuild-table/internal/catalog"
	"go.uber.org/zap"
)

func tableFixture() *catalog.SourceTable {
	return &catalog.SourceTable{
		SchemaName: "public",
		TableName:  "orders",
		Columns: []catalog.Column{
			{Name: "id", Type: "integer"},
			{Name: "status", Type: "text"},
		},
		PKColumns: []string{"id"},
	}
}

func TestCreateApplyFunctionIncludesUpdateBranch(t *testing.T) {
	tbl := tableFixture()
	fn := CreateApplyFunction(tbl)
	if !strings.Contains(fn, "delta_op = 'u'") {
		t.Errorf("expected update branch for a table with non-PK columns, got:\n%s", fn)
	}
	if !strings.Contains(fn, `t.id = r.id`) {
		t.Errorf("expected PK predicate, got:\n%s", fn)
	}
}

func TestCreateApplyFunctionElidesUpdateBranchWhenAllPK(t *testing.T) {
	tbl := &catalog.SourceTable{
		SchemaName: "public",
		TableName:  "link",
		Columns:    []catalog.Column{{Name: "a", Type: "integer"}, {Name: "b", Type: "integer"}},
		PKColumns:  []string{"a", "b"},
	}
	fn := CreateApplyFunction(tbl)
	if strings.Contains(fn, "delta_op = 'u'") {
		t.Errorf("expected update branch to be elided for an all-PK table, got:\n%s", fn)
	}
}

func TestCreateTriggerStatement(t *testing.T) {
	tbl := tableFixture()
	stmt := CreateTriggerStatement(tbl)
	if !strings.Contains(stmt, TriggerName) {
		t.Errorf("expected trigger name in statement, got %q", stmt)
	}
	if !strings.Contains(stmt, `"public"."orders"`) {
		t.Errorf("expected source table name in statement, got %q", stmt)
	}
}

type fakeExecutor struct {
	calls int
	fail  int
	err   error
}

func (f *fakeExecutor) Exec(ctx context.Context, sql string) error {
	f.calls++
	if f.calls <= f.fail {
		return f.err
	}
	return nil
}

func TestInstallTriggerSucceeds(t *testing.T) {
	tbl := tableFixture()
	exec := &fakeExecutor{}
	if err := InstallTrigger(context.Background(), zap.NewNop(), exec, tbl, "5s"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exec.calls != 1 {
		t.Fatalf("expected 1 call, got %d", exec.calls)
	}
}
