// Package rbac maps portal roles to permissions. The role set mirrors the
// reporting hierarchy: district inspectors file, regional departments roll
// up, the ministry sees everything.
package rbac

import (
	"sort"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

type Permission = string

const (
	PermReportsView   Permission = "reports.view"
	PermReportsSave   Permission = "reports.save"
	PermReportsSubmit Permission = "reports.submit"
	PermReportsRollup Permission = "reports.rollup"
	PermAnalyticsView Permission = "analytics.view"
	PermOrgsView      Permission = "orgs.view"
	PermIncidentsEdit Permission = "incidents.edit"
	PermAuditView     Permission = "audit.view"
	PermAccountsEdit  Permission = "accounts.manage"
)

const (
	RoleMCHS     = "mchs"
	RoleDCHS     = "dchs"
	RoleDistrict = "district"
)

const modelText = `
[request_definition]
r = sub, obj

[policy_definition]
p = sub, obj

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj
`

// grants is the static policy table. Inheritance runs district < dchs < mchs,
// so each row lists only what the tier adds. District deliberately lacks
// reports.rollup and orgs.view: it reports for its own unit only.
var grants = map[string][]Permission{
	RoleDistrict: {
		PermReportsView, PermReportsSave, PermReportsSubmit,
		PermIncidentsEdit, PermAnalyticsView,
	},
	RoleDCHS: {PermReportsRollup, PermOrgsView},
	RoleMCHS: {PermAuditView, PermAccountsEdit},
}

var roleInheritance = [][2]string{
	{RoleDCHS, RoleDistrict},
	{RoleMCHS, RoleDCHS},
}

// Policy answers role/permission queries. It is immutable after construction
// and safe for concurrent use.
type Policy struct {
	enforcer *casbin.Enforcer
}

func NewPolicy() (*Policy, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}
	for role, perms := range grants {
		for _, perm := range perms {
			if _, err := e.AddPolicy(role, string(perm)); err != nil {
				return nil, err
			}
		}
	}
	for _, pair := range roleInheritance {
		if _, err := e.AddGroupingPolicy(pair[0], pair[1]); err != nil {
			return nil, err
		}
	}
	return &Policy{enforcer: e}, nil
}

func (p *Policy) Allowed(role string, perm Permission) bool {
	ok, err := p.enforcer.Enforce(role, string(perm))
	return err == nil && ok
}

// Permissions lists every permission a role holds, inherited ones included,
// sorted for stable output.
func (p *Policy) Permissions(role string) []Permission {
	perms, err := p.enforcer.GetImplicitPermissionsForUser(role)
	if err != nil {
		return nil
	}
	out := make([]Permission, 0, len(perms))
	for _, rule := range perms {
		if len(rule) >= 2 {
			out = append(out, Permission(rule[1]))
		}
	}
	sort.Strings(out)
	return out
}

// KnownRole reports whether role is one the policy table recognizes.
func KnownRole(role string) bool {
	switch role {
	case RoleMCHS, RoleDCHS, RoleDistrict:
		return true
	}
	return false
}
