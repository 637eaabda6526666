package catalog

import "testing"

func TestComputeOrderedColumns(t *testing.T) {
	cols := []Column{
		{Name: "a", Type: "int2"},
		{Name: "b", Type: "int8"},
		{Name: "c", Type: "int4"},
		{Name: "id", Type: "int"},
	}

	got := ComputeOrderedColumns(cols, []string{"id"})

	want := []string{"b", "id", "c", "a"}
	if len(got) != len(want) {
		t.Fatalf("got %d columns, want %d", len(got), len(want))
	}
	for i, name := range want {
		if got[i].Name != name {
			t.Errorf("position %d: got %q, want %q", i, got[i].Name, name)
		}
	}

	// original slice must be untouched
	if cols[0].Name != "a" {
		t.Errorf("ComputeOrderedColumns mutated its input")
	}
}

func TestPopIndex(t *testing.T) {
	tbl := &SourceTable{CreateIndexes: []string{"create index a", "create index b", "create index c"}}

	var popped []string
	for {
		stmt, ok := tbl.PopIndex()
		if !ok {
			break
		}
		popped = append(popped, stmt)
	}

	if len(popped) != 3 {
		t.Fatalf("got %d pops, want 3", len(popped))
	}
	if len(tbl.CreateIndexes) != 0 {
		t.Errorf("stack not drained: %v", tbl.CreateIndexes)
	}
	if _, ok := tbl.PopIndex(); ok {
		t.Errorf("PopIndex on empty stack should report ok=false")
	}
}

func TestNonPKColumns(t *testing.T) {
	tbl := &SourceTable{
		Columns:   []Column{{Name: "id"}, {Name: "v"}, {Name: "w"}},
		PKColumns: []string{"id"},
	}
	got := tbl.NonPKColumns()
	if len(got) != 2 || got[0].Name != "v" || got[1].Name != "w" {
		t.Fatalf("unexpected NonPKColumns result: %+v", got)
	}

	onlyPK := &SourceTable{
		Columns:   []Column{{Name: "id"}},
		PKColumns: []string{"id"},
	}
	if got := onlyPK.NonPKColumns(); len(got) != 0 {
		t.Errorf("expected no non-PK columns, got %+v", got)
	}
}
