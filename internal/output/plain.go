package output

import (
	"fmt"
	"io"

	"github.com/nethalo/pg-rebuild-table/internal/pgconn"
	"github.com/nethalo/pg-rebuild-table/internal/plan"
)

// PlainRenderer produces unformatted text output safe for piping.
type PlainRenderer struct {
	w io.Writer
}

func (r *PlainRenderer) RenderPlan(result *plan.Result) {
	fmt.Fprintf(r.w, "=== pg-rebuild-table — %s.%s ===\n\n", result.SchemaName, result.TableName)

	fmt.Fprintf(r.w, "Table size:    %s\n", humanBytes(result.TableBytes))
	fmt.Fprintln(r.w)

	for _, w := range result.Warnings {
		fmt.Fprintf(r.w, "WARNING: %s\n", w)
	}
	if len(result.Warnings) > 0 {
		fmt.Fprintln(r.w)
	}

	fmt.Fprintf(r.w, "--- Recommendation ---\n")
	fmt.Fprintf(r.w, "Risk:          %s\n", result.Risk)
	fmt.Fprintf(r.w, "Method:        %s\n", result.Method)
	fmt.Fprintf(r.w, "%s\n", result.Recommendation)
}

func (r *PlainRenderer) RenderConnection(cfg pgconn.ConnectionConfig) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	if cfg.Socket != "" {
		addr = cfg.Socket
	}

	fmt.Fprintf(r.w, "=== pg-rebuild-table — Connection Info ===\n\n")
	fmt.Fprintf(r.w, "Connected to:  %s\n", addr)
	fmt.Fprintf(r.w, "Database:      %s\n", cfg.Database)
	fmt.Fprintf(r.w, "TLS mode:      %s\n", cfg.TLSMode)
}
