package acl

import (
	"strings"
	"testing"
)

func TestRenderGrantsEmpty(t *testing.T) {
	if got := RenderGrants(Descriptor{ObjType: "table", ObjName: `"public"."t"`}); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}

func TestRenderGrantsTableAll(t *testing.T) {
	d := Descriptor{
		ACL:     []string{"alice=arwdDxt/postgres"},
		ObjType: "table",
		ObjName: `"public"."t"`,
	}
	got := RenderGrants(d)
	want := `grant all on table "public"."t" to alice;`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRenderGrantsTablePartial(t *testing.T) {
	d := Descriptor{
		ACL:     []string{"bob=ar/postgres"},
		ObjType: "table",
		ObjName: `"public"."t"`,
	}
	got := RenderGrants(d)
	want := `grant select, insert on table "public"."t" to bob;`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRenderGrantsExcludesOwnerRoles(t *testing.T) {
	d := Descriptor{
		ACL:     []string{"postgres=arwdDxt/postgres", "gpadmin=arwdDxt/postgres"},
		ObjType: "table",
		ObjName: `"public"."t"`,
	}
	if got := RenderGrants(d); got != "" {
		t.Fatalf("expected excluded roles to render nothing, got %q", got)
	}
}

func TestRenderGrantsColumn(t *testing.T) {
	d := Descriptor{
		ACL:        []string{"alice=r/postgres"},
		ObjType:    "column",
		ObjName:    `"public"."t"`,
		SubObjName: "email",
	}
	got := RenderGrants(d)
	if !strings.Contains(got, `(email)`) {
		t.Fatalf("expected column-qualified grant, got %q", got)
	}
	if !strings.Contains(got, "on table ") {
		t.Fatalf("expected column ACL to render as a table-level grant, got %q", got)
	}
}

func TestRenderGrantsFunctionRevokesPublicWhenAbsent(t *testing.T) {
	d := Descriptor{
		ACL:     []string{"alice=X/postgres"},
		ObjType: "function",
		ObjName: `"public"."f"()`,
	}
	got := RenderGrants(d)
	lines := strings.Split(got, "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "revoke all on function") {
		t.Fatalf("expected leading revoke-all line, got %q", got)
	}
}

func TestRenderGrantsFunctionSkipsRevokeWhenPublicDefaultPresent(t *testing.T) {
	d := Descriptor{
		ACL:     []string{"=X/postgres", "alice=X/postgres"},
		ObjType: "function",
		ObjName: `"public"."f"()`,
	}
	got := RenderGrants(d)
	if strings.Contains(got, "revoke all") {
		t.Fatalf("default public ACL present, should not emit a revoke: %q", got)
	}
}

func TestRenderGrantsPublicRole(t *testing.T) {
	d := Descriptor{
		ACL:     []string{"=r/postgres"},
		ObjType: "table",
		ObjName: `"public"."t"`,
	}
	got := RenderGrants(d)
	want := `grant select on table "public"."t" to public;`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
