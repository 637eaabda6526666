package catalog

import (
	"sort"
	"strings"
)

// typeAlignment approximates Postgres's on-disk column width for the
// purposes of column reordering, in bytes. Unknown/variable-length types
// sort last, widest-known-type first, matching the "descending alignment"
// heuristic spec section 4.1's OrderedColumns and section 8 scenario 4
// describe.
var typeAlignment = map[string]int{
	"bigint": 8, "int8": 8, "double precision": 8, "float8": 8, "bigserial": 8, "timestamp": 8, "timestamptz": 8, "timestamp without time zone": 8, "timestamp with time zone": 8, "bigint[]": 8,
	"integer": 4, "int": 4, "int4": 4, "real": 4, "float4": 4, "serial": 4, "date": 4,
	"smallint": 2, "int2": 2, "smallserial": 2,
	"boolean": 1, "bool": 1, "char": 1, "\"char\"": 1,
}

func alignmentOf(sqlType string) int {
	t := strings.ToLower(strings.TrimSpace(sqlType))
	if w, ok := typeAlignment[t]; ok {
		return w
	}
	// Parametrized types (numeric(p,s), varchar(n), ...) and anything else
	// unrecognized: treat as variable-length, sorts after all fixed-width
	// columns but keeps relative (stable) order among themselves.
	return 0
}

// ComputeOrderedColumns returns cols reordered by descending alignment.
// Within an alignment tier, primary-key columns sort ahead of non-PK
// columns; remaining ties break by original position (a stable sort).
// This is the alternative column order used when reorder_columns is
// requested (spec section 3, section 4.1, section 8 scenario 4), whose
// worked example — (a int2, b int8, c int4, id int primary key) becoming
// b, id, c, a — requires the PK tie-break: id and c share alignment 4,
// and id being the primary key is what puts it ahead of c.
func ComputeOrderedColumns(cols []Column, pkColumns []string) []Column {
	pk := make(map[string]bool, len(pkColumns))
	for _, name := range pkColumns {
		pk[name] = true
	}

	out := make([]Column, len(cols))
	copy(out, cols)
	sort.SliceStable(out, func(i, j int) bool {
		ai, aj := alignmentOf(out[i].Type), alignmentOf(out[j].Type)
		if ai != aj {
			return ai > aj
		}
		return pk[out[i].Name] && !pk[out[j].Name]
	})
	return out
}
