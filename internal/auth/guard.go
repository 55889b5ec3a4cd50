package auth

import (
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/insurai/portal/internal/models"
)

// guardModel is a plain RBAC model whose objects are path patterns.
const guardModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch2(r.obj, p.obj) && (p.act == "*" || r.act == p.act)
`

// anyRole is the casbin group every portal role belongs to.
const anyRole = "portal_user"

// routeTrees maps each role to the dashboard and API trees it may enter.
var routeTrees = map[models.Role][]string{
	models.RoleEmployee: {"/employee", "/employee/*", "/api/employee/*"},
	models.RoleHR:       {"/hr", "/hr/*", "/api/hr/*"},
	models.RoleAdmin:    {"/admin", "/admin/*", "/api/admin/*"},
	models.RoleAgent:    {"/agent", "/agent/*", "/api/agent/*"},
}

// sharedTrees are open to every signed-in role.
var sharedTrees = []string{
	"/api/auth/me",
	"/api/auth/logout",
	"/api/notifications",
	"/api/notifications/*",
	"/api/reports",
	"/api/reports/*",
}

// Guard gates route trees by role. It is a navigation convenience for the UI:
// the backend re-checks the bearer token and role on every call.
type Guard struct {
	enforcer *casbin.Enforcer
}

// NewGuard builds the enforcer with the portal's route policy.
func NewGuard() (*Guard, error) {
	m, err := model.NewModelFromString(guardModel)
	if err != nil {
		return nil, fmt.Errorf("guard: load model: %w", err)
	}
	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("guard: create enforcer: %w", err)
	}

	for role, trees := range routeTrees {
		for _, tree := range trees {
			if _, err := enforcer.AddPolicy(role.String(), tree, "*"); err != nil {
				return nil, fmt.Errorf("guard: add policy: %w", err)
			}
		}
		if _, err := enforcer.AddGroupingPolicy(role.String(), anyRole); err != nil {
			return nil, fmt.Errorf("guard: add grouping: %w", err)
		}
	}
	for _, tree := range sharedTrees {
		if _, err := enforcer.AddPolicy(anyRole, tree, "*"); err != nil {
			return nil, fmt.Errorf("guard: add policy: %w", err)
		}
	}

	return &Guard{enforcer: enforcer}, nil
}

// Allow reports whether a principal holding role may use method on path.
// The role is matched case-insensitively; an unknown role is always denied.
func (g *Guard) Allow(role, path, method string) (bool, error) {
	parsed, err := models.ParseRole(role)
	if err != nil {
		return false, nil
	}
	return g.enforcer.Enforce(parsed.String(), path, strings.ToUpper(method))
}

// HomePath returns the dashboard root for a role.
func HomePath(role models.Role) string {
	return "/" + role.String()
}

// RoleMatches compares a stored role with a required role, ignoring case.
func RoleMatches(have, want string) bool {
	have = strings.TrimSpace(have)
	return have != "" && strings.EqualFold(have, strings.TrimSpace(want))
}
