// Package authz expands caller roles through a casbin role hierarchy so a
// route that allows "manager" also admits callers holding "admin" when the
// policy says admin inherits manager.
package authz

import (
	"bufio"
	"fmt"
	"sort"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`

// RoleHierarchy answers which roles a set of roles implies.
type RoleHierarchy struct {
	enforcer *casbin.SyncedEnforcer
}

func newEnforcer(params ...any) (*casbin.SyncedEnforcer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("authz: model: %w", err)
	}
	e, err := casbin.NewSyncedEnforcer(append([]any{m}, params...)...)
	if err != nil {
		return nil, fmt.Errorf("authz: %w", err)
	}
	return e, nil
}

// LoadRoleHierarchy reads a casbin policy CSV whose "g, child, parent"
// lines declare inheritance. "p" lines are accepted and ignored.
func LoadRoleHierarchy(path string) (*RoleHierarchy, error) {
	e, err := newEnforcer(fileadapter.NewAdapter(path))
	if err != nil {
		return nil, err
	}
	return &RoleHierarchy{enforcer: e}, nil
}

// ParseRoleHierarchy builds a hierarchy from inline policy text, one
// "g, child, parent" rule per line. Blank lines and # comments are skipped.
func ParseRoleHierarchy(policy string) (*RoleHierarchy, error) {
	e, err := newEnforcer()
	if err != nil {
		return nil, err
	}

	sc := bufio.NewScanner(strings.NewReader(policy))
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, ",")
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		if len(fields) != 3 || fields[0] != "g" || fields[1] == "" || fields[2] == "" {
			return nil, fmt.Errorf("authz: line %d: expected \"g, child, parent\", got %q", n, line)
		}
		if _, err := e.AddGroupingPolicy(normalize(fields[1]), normalize(fields[2])); err != nil {
			return nil, fmt.Errorf("authz: line %d: %w", n, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return &RoleHierarchy{enforcer: e}, nil
}

// Expand returns roles plus every role they inherit, deduplicated and sorted.
// Roles are compared case-insensitively.
func (h *RoleHierarchy) Expand(roles []string) []string {
	seen := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		r = normalize(r)
		if r == "" {
			continue
		}
		seen[r] = struct{}{}
		implied, err := h.enforcer.GetImplicitRolesForUser(r)
		if err != nil {
			continue
		}
		for _, ir := range implied {
			seen[normalize(ir)] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for r := range seen {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// Rules lists the inheritance rules as child/parent pairs.
func (h *RoleHierarchy) Rules() [][2]string {
	policy, _ := h.enforcer.GetGroupingPolicy()
	out := make([][2]string, 0, len(policy))
	for _, rule := range policy {
		if len(rule) >= 2 {
			out = append(out, [2]string{rule[0], rule[1]})
		}
	}
	return out
}

func normalize(r string) string {
	return strings.ToLower(strings.TrimSpace(r))
}
