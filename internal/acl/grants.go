// Package acl renders Postgres ACL entries into GRANT statements. This is
// the "ACL-to-grant-statement renderer" spec section 1 calls an external
// collaborator — the core treats it as the pure function
// render_grants(acl, object_kind, object_name, sub_object?) -> sql_text.
// Ported from original_source/pg_rebuild_table/acl.py.
package acl

import (
	"fmt"
	"sort"
	"strings"
)

// aclMap maps a raw Postgres ACL privilege letter to its SQL keyword.
var aclMap = map[byte]string{
	'a': "insert",
	'r': "select",
	'w': "update",
	'd': "delete",
	'D': "truncate",
	'x': "references",
	't': "trigger",
	'X': "execute",
	'U': "usage",
	'C': "create",
	'T': "temp",
	'c': "connect",
}

// aclOrder fixes the canonical ordering used when rendering a multi-privilege grant.
const aclOrder = "rawdDxtXUCTc"

// grantAllPattern is the privilege-letter set that means "ALL" for each
// object kind a rebuilt table's dependents can be.
var grantAllPattern = map[string]string{
	"column":   "arwx",
	"table":    "arwdDxt",
	"sequence": "Urw",
	"view":     "arwdDxt",
	"function": "X",
	"procedure": "X",
}

func grantAllWithOption(objType string) string {
	base, ok := grantAllPattern[objType]
	if !ok {
		return ""
	}
	return strings.Join(strings.Split(base, ""), "*") + "*"
}

// functionPublicACL lists the default public ACL entries Postgres attaches
// to a function owned by one of these roles; present, they mean "no
// explicit REVOKE is needed". This hard-codes two specific role names
// exactly as acl.py does — a known blemish (spec section 9, open question
// (c)) carried through rather than generalized.
var functionPublicACL = []string{"=X/postgres", "=X/gpadmin"}

// excludedRoles never receive a rendered GRANT: ownership roles whose
// privileges are implicit. Hard-coded verbatim from acl.py; see the
// package doc comment and spec section 9(c).
var excludedRoles = map[string]bool{"postgres": true, "gpadmin": true}

// Descriptor is the ACL input shape spec section 6 describes: a list of
// raw ACL entries plus the kind/name of the object they apply to, and
// (for columns) the sub-object name.
type Descriptor struct {
	ACL        []string
	ObjType    string // "table", "column", "view", "sequence", "function", "procedure"
	ObjName    string // fully-quoted object identifier
	SubObjName string // column name, only set when ObjType == "column"
}

// resolvePerm turns a raw privilege-letter string into SQL keywords,
// collapsing to ALL (optionally "WITH GRANT OPTION") when the letters
// exactly match the object kind's full privilege set.
func resolvePerm(objType, perm string) (rendered string, grantOption string) {
	if grantAllPattern[objType] == perm {
		return "all", ""
	}
	if grantAllWithOption(objType) == perm {
		return "all", " with grant option"
	}
	letters := []byte(perm)
	sort.SliceStable(letters, func(i, j int) bool {
		return strings.IndexByte(aclOrder, letters[i]) < strings.IndexByte(aclOrder, letters[j])
	})
	words := make([]string, 0, len(letters))
	for _, c := range letters {
		if word, ok := aclMap[c]; ok {
			words = append(words, word)
		}
	}
	return strings.Join(words, ", "), ""
}

// RenderGrants turns a Descriptor into the SQL GRANT statements that
// reproduce its ACL on a new object, the pure function spec section 1
// describes. Returns "" if the descriptor has no ACL entries.
func RenderGrants(d Descriptor) string {
	if len(d.ACL) == 0 {
		return ""
	}

	acl := append([]string(nil), d.ACL...)
	var stmts []string

	if d.ObjType == "function" || d.ObjType == "procedure" {
		hadPublicDefault := false
		for i, entry := range acl {
			for _, fpa := range functionPublicACL {
				if entry == fpa {
					acl = append(acl[:i], acl[i+1:]...)
					hadPublicDefault = true
					break
				}
			}
			if hadPublicDefault {
				break
			}
		}
		if !hadPublicDefault {
			stmts = append(stmts, fmt.Sprintf("revoke all on %s %s from public;", d.ObjType, d.ObjName))
		}
	}

	normalized := make([]string, len(acl))
	for i, entry := range acl {
		if strings.HasPrefix(entry, "=") {
			normalized[i] = "public" + entry
		} else {
			normalized[i] = entry
		}
	}
	sort.Strings(normalized)

	objType := d.ObjType
	for _, entry := range normalized {
		roleAndPerm, _, ok := strings.Cut(entry, "/") // format: role=perm/grantor
		if !ok {
			roleAndPerm = entry
		}
		role, perm, ok := strings.Cut(roleAndPerm, "=")
		if !ok {
			continue
		}
		if excludedRoles[role] {
			continue
		}

		subObj := ""
		if d.SubObjName != "" {
			subObj = fmt.Sprintf("(%s) ", d.SubObjName)
		}

		rendered, grantOption := resolvePerm(objType, perm)
		grantObjType := objType
		if grantObjType == "column" {
			grantObjType = "table"
		}
		stmts = append(stmts, fmt.Sprintf("grant %s%s %son %s %s to %s;",
			rendered, grantOption, subObj, grantObjType, d.ObjName, role))
	}

	return strings.Join(stmts, "\n")
}
