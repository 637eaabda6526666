package copier

import (
	"strings"
	"testing"

	"github.com/nethalo/pg-rebuild-table/internal/catalog"
)

func tableFixture() *catalog.SourceTable {
	return &catalog.SourceTable{
		SchemaName: "public",
		TableName:  "orders",
		Columns: []catalog.Column{
			{Name: "id", Type: "integer"},
			{Name: "region", Type: "text"},
			{Name: "amount", Type: "numeric"},
		},
		PKColumns: []string{"region", "id"},
	}
}

func TestPKPredicateEmptyForStart(t *testing.T) {
	if got := pkPredicate([]string{"id"}, nil); got != "" {
		t.Fatalf("expected empty predicate for nil cursor, got %q", got)
	}
}

func TestPKPredicateSingleColumn(t *testing.T) {
	got := pkPredicate([]string{"id"}, PKValue{"id": "'5'"})
	want := "where (t.id > '5')"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestPKPredicateCompositeKey(t *testing.T) {
	got := pkPredicate([]string{"region", "id"}, PKValue{"region": "'us'", "id": "'5'"})
	want := "where ((t.region > 'us') or (t.region = 'us' and t.id > '5'))"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestPKPredicateThreeColumns(t *testing.T) {
	got := pkPredicate([]string{"a", "b", "c"}, PKValue{"a": "'1'", "b": "'2'", "c": "'3'"})
	want := "where ((t.a > '1') or (t.a = '1' and t.b > '2') or (t.a = '1' and t.b = '2' and t.c > '3'))"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestBuildQueryChunked(t *testing.T) {
	tbl := tableFixture()
	q := BuildQuery(tbl, "", 500, nil)
	if !strings.Contains(q, "limit 500") {
		t.Errorf("expected chunk limit in query, got:\n%s", q)
	}
	if !strings.Contains(q, "w_t") || !strings.Contains(q, "w_i") {
		t.Errorf("expected chunked CTE shape, got:\n%s", q)
	}
	if !strings.Contains(q, `order by t.region, t.id`) {
		t.Errorf("expected PK order-by, got:\n%s", q)
	}
}

func TestBuildQueryUnchunked(t *testing.T) {
	tbl := tableFixture()
	q := BuildQuery(tbl, "status = 'active'", 0, nil)
	if strings.Contains(q, "w_t") {
		t.Errorf("expected plain insert-select without chunking, got:\n%s", q)
	}
	if !strings.Contains(q, "where status = 'active'") {
		t.Errorf("expected additional condition applied, got:\n%s", q)
	}
}

func TestBuildQueryNoChunkingWithoutPK(t *testing.T) {
	tbl := tableFixture()
	tbl.PKColumns = nil
	q := BuildQuery(tbl, "", 500, nil)
	if strings.Contains(q, "w_t") {
		t.Errorf("expected unchunked form when there is no primary key, got:\n%s", q)
	}
}
