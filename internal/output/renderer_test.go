package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/nethalo/pg-rebuild-table/internal/pgconn"
	"github.com/nethalo/pg-rebuild-table/internal/plan"
)

func sampleResult() *plan.Result {
	return &plan.Result{
		SchemaName:     "public",
		TableName:      "orders",
		TableBytes:     2048,
		Risk:           plan.RiskCaution,
		Method:         plan.ExecChunked,
		Recommendation: "chunked copy recommended",
		Warnings:       []string{"table is a partition"},
	}
}

func TestNewRendererSelectsFormat(t *testing.T) {
	cases := map[string]any{
		"json":     &JSONRenderer{},
		"markdown": &MarkdownRenderer{},
		"plain":    &PlainRenderer{},
		"text":     &TextRenderer{},
		"":         &TextRenderer{},
	}
	for format, want := range cases {
		got := NewRenderer(format, &bytes.Buffer{})
		if fieldType(got) != fieldType(want) {
			t.Errorf("format %q: got %T, want %T", format, got, want)
		}
	}
}

func fieldType(v any) string {
	switch v.(type) {
	case *JSONRenderer:
		return "json"
	case *MarkdownRenderer:
		return "markdown"
	case *PlainRenderer:
		return "plain"
	case *TextRenderer:
		return "text"
	}
	return "unknown"
}

func TestJSONRendererRenderPlan(t *testing.T) {
	var buf bytes.Buffer
	r := &JSONRenderer{w: &buf}
	r.RenderPlan(sampleResult())

	var decoded jsonPlanOutput
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if decoded.Table != "orders" || decoded.Risk != "CAUTION" {
		t.Fatalf("unexpected decoded output: %+v", decoded)
	}
}

func TestPlainRendererRenderPlan(t *testing.T) {
	var buf bytes.Buffer
	r := &PlainRenderer{w: &buf}
	r.RenderPlan(sampleResult())
	out := buf.String()
	if !strings.Contains(out, "orders") || !strings.Contains(out, "CAUTION") {
		t.Fatalf("expected table name and risk in plain output, got:\n%s", out)
	}
}

func TestMarkdownRendererRenderConnection(t *testing.T) {
	var buf bytes.Buffer
	r := &MarkdownRenderer{w: &buf}
	r.RenderConnection(pgconn.ConnectionConfig{Host: "db.internal", Port: 5432, Database: "app"})
	out := buf.String()
	if !strings.Contains(out, "db.internal") || !strings.Contains(out, "app") {
		t.Fatalf("expected host/database in markdown output, got:\n%s", out)
	}
}
