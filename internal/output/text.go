package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/nethalo/pg-rebuild-table/internal/pgconn"
	"github.com/nethalo/pg-rebuild-table/internal/plan"
)

// TextRenderer produces Lip Gloss styled terminal output.
type TextRenderer struct {
	w io.Writer
}

func (r *TextRenderer) RenderPlan(result *plan.Result) {
	width := 60

	header := TitleStyle.Render(fmt.Sprintf("pg-rebuild-table — %s.%s", result.SchemaName, result.TableName))
	fmt.Fprintln(r.w)

	metaLines := []string{
		r.labelValue("Table size:", humanBytes(result.TableBytes)),
		r.labelValue("Method:", r.colorMethod(result.Method)),
	}
	metaBox := BoxStyle.Width(width).Render(header + "\n" + strings.Join(metaLines, "\n"))
	fmt.Fprintln(r.w, metaBox)

	if len(result.Warnings) > 0 {
		for _, w := range result.Warnings {
			warnBox := WarningBoxStyle.Width(width).Render(
				WarningText.Render(IconWarning+" Warning") + "\n" + w,
			)
			fmt.Fprintln(r.w, warnBox)
		}
	}

	r.renderRecommendation(result, width)
	fmt.Fprintln(r.w)
}

func (r *TextRenderer) renderRecommendation(result *plan.Result, width int) {
	var icon, label string
	var style = BoxStyle

	switch result.Risk {
	case plan.RiskSafe:
		icon = IconSafe
		label = "Safe to run."
		style = SafeBoxStyle
	case plan.RiskCaution:
		icon = IconWarning
		label = "Proceed with caution."
		style = WarningBoxStyle
	case plan.RiskDangerous:
		icon = IconDanger
		label = "Dangerous — action required."
		style = DangerBoxStyle
	}

	title := TitleStyle.Render("Recommendation")
	content := fmt.Sprintf("%s\n%s %s\n\n%s\n\nMethod: %s", title, icon, label, result.Recommendation, result.Method)
	recBox := style.Width(width).Render(content)
	fmt.Fprintln(r.w, recBox)
}

func (r *TextRenderer) RenderConnection(cfg pgconn.ConnectionConfig) {
	width := 60
	fmt.Fprintln(r.w)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	if cfg.Socket != "" {
		addr = cfg.Socket
	}
	lines := []string{
		r.labelValue("Connected to:", addr),
		r.labelValue("Database:", cfg.Database),
		r.labelValue("TLS mode:", cfg.TLSMode),
	}

	title := TitleStyle.Render("pg-rebuild-table — Connection Info")
	box := SafeBoxStyle.Width(width).Render(title + "\n" + strings.Join(lines, "\n"))
	fmt.Fprintln(r.w, box)
	fmt.Fprintln(r.w)
}

func (r *TextRenderer) labelValue(label, value string) string {
	return LabelStyle.Render(label) + " " + ValueStyle.Render(value)
}

func (r *TextRenderer) colorMethod(method plan.ExecutionMethod) string {
	switch method {
	case plan.ExecDirect:
		return SafeText.Render(string(method))
	case plan.ExecChunked:
		return WarningText.Render(string(method))
	case plan.ExecBlocked:
		return DangerText.Render(string(method))
	default:
		return string(method)
	}
}

func humanBytes(b int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)
	switch {
	case b >= GB:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(GB))
	case b >= MB:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(MB))
	case b >= KB:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(KB))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
