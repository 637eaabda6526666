package output

import (
	"fmt"
	"io"

	"github.com/nethalo/pg-rebuild-table/internal/pgconn"
	"github.com/nethalo/pg-rebuild-table/internal/plan"
)

// MarkdownRenderer produces markdown output for documentation/tickets.
type MarkdownRenderer struct {
	w io.Writer
}

func (r *MarkdownRenderer) RenderPlan(result *plan.Result) {
	fmt.Fprintf(r.w, "# pg-rebuild-table — %s.%s\n\n", result.SchemaName, result.TableName)

	fmt.Fprintf(r.w, "## Table\n\n")
	fmt.Fprintf(r.w, "| Property | Value |\n|---|---|\n")
	fmt.Fprintf(r.w, "| Table | `%s.%s` |\n", result.SchemaName, result.TableName)
	fmt.Fprintf(r.w, "| Size | %s |\n\n", humanBytes(result.TableBytes))

	if len(result.Warnings) > 0 {
		fmt.Fprintf(r.w, "## ⚠ Warnings\n\n")
		for _, w := range result.Warnings {
			fmt.Fprintf(r.w, "- %s\n", w)
		}
		fmt.Fprintln(r.w)
	}

	riskEmoji := map[plan.RiskLevel]string{
		plan.RiskSafe:      "✅",
		plan.RiskCaution:   "⚠️",
		plan.RiskDangerous: "❌",
	}
	fmt.Fprintf(r.w, "## %s Recommendation: %s\n\n", riskEmoji[result.Risk], result.Risk)
	fmt.Fprintf(r.w, "**Method:** %s\n\n", result.Method)
	fmt.Fprintf(r.w, "%s\n", result.Recommendation)
}

func (r *MarkdownRenderer) RenderConnection(cfg pgconn.ConnectionConfig) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	if cfg.Socket != "" {
		addr = cfg.Socket
	}

	fmt.Fprintf(r.w, "# pg-rebuild-table — Connection Info\n\n")
	fmt.Fprintf(r.w, "| Property | Value |\n|---|---|\n")
	fmt.Fprintf(r.w, "| Host | `%s` |\n", addr)
	fmt.Fprintf(r.w, "| Database | %s |\n", cfg.Database)
	fmt.Fprintf(r.w, "| TLS mode | %s |\n", cfg.TLSMode)
}
