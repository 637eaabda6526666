package output

import (
	"encoding/json"
	"io"

	"github.com/nethalo/pg-rebuild-table/internal/pgconn"
	"github.com/nethalo/pg-rebuild-table/internal/plan"
)

// JSONRenderer produces machine-readable JSON output.
type JSONRenderer struct {
	w io.Writer
}

type jsonPlanOutput struct {
	Schema string `json:"schema_name"`
	Table  string `json:"table_name"`

	TableSizeBytes int64    `json:"table_size_bytes"`
	TableSizeHuman string   `json:"table_size_human"`
	Risk           string   `json:"risk"`
	Method         string   `json:"recommended_method"`
	Recommendation string   `json:"recommendation"`
	Warnings       []string `json:"warnings,omitempty"`
}

func (r *JSONRenderer) RenderPlan(result *plan.Result) {
	out := jsonPlanOutput{
		Schema:         result.SchemaName,
		Table:          result.TableName,
		TableSizeBytes: result.TableBytes,
		TableSizeHuman: humanBytes(result.TableBytes),
		Risk:           string(result.Risk),
		Method:         string(result.Method),
		Recommendation: result.Recommendation,
		Warnings:       result.Warnings,
	}

	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	enc.Encode(out)
}

type jsonConnectionOutput struct {
	Host     string `json:"host"`
	Port     int    `json:"port,omitempty"`
	Socket   string `json:"socket,omitempty"`
	Database string `json:"database"`
	TLSMode  string `json:"tls_mode"`
}

func (r *JSONRenderer) RenderConnection(cfg pgconn.ConnectionConfig) {
	out := jsonConnectionOutput{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Socket:   cfg.Socket,
		Database: cfg.Database,
		TLSMode:  cfg.TLSMode,
	}
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	enc.Encode(out)
}
