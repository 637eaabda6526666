package plan

import (
	"testing"

	"github.com/nethalo/pg-rebuild-table/internal/catalog"
)

func baseTable() *catalog.SourceTable {
	return &catalog.SourceTable{SchemaName: "public", TableName: "orders", PKColumns: []string{"id"}}
}

func TestClassifyBlocksParentPartition(t *testing.T) {
	tbl := baseTable()
	tbl.IsChildExists = true
	r := Classify(Input{Table: tbl})
	if r.Method != ExecBlocked || r.Risk != RiskDangerous {
		t.Fatalf("expected blocked/dangerous for a partition parent, got %+v", r)
	}
}

func TestClassifyBlocksNoPrimaryKey(t *testing.T) {
	tbl := baseTable()
	tbl.PKColumns = nil
	r := Classify(Input{Table: tbl})
	if r.Method != ExecBlocked {
		t.Fatalf("expected blocked without a primary key, got %+v", r)
	}
}

func TestClassifySafeSmallUnchunked(t *testing.T) {
	r := Classify(Input{Table: baseTable(), TableBytes: 1024})
	if r.Risk != RiskSafe || r.Method != ExecDirect {
		t.Fatalf("expected safe/direct for a small table, got %+v", r)
	}
}

func TestClassifyDangerousLargeUnchunked(t *testing.T) {
	r := Classify(Input{Table: baseTable(), TableBytes: 20 * 1024 * 1024 * 1024})
	if r.Risk != RiskDangerous || r.Method != ExecDirect {
		t.Fatalf("expected dangerous/direct for a large unchunked table, got %+v", r)
	}
}

func TestClassifyCautionLargeChunked(t *testing.T) {
	r := Classify(Input{Table: baseTable(), TableBytes: 20 * 1024 * 1024 * 1024, ChunkLimit: 5000})
	if r.Risk != RiskCaution || r.Method != ExecChunked {
		t.Fatalf("expected caution/chunked for a large chunked table, got %+v", r)
	}
}

func TestClassifyWarnsOnPartitionMembership(t *testing.T) {
	tbl := baseTable()
	tbl.InhParent = `"public"."orders_parent"`
	r := Classify(Input{Table: tbl, TableBytes: 1024})
	if len(r.Warnings) == 0 {
		t.Fatalf("expected a partition-membership warning, got none")
	}
}
