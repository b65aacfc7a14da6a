package rbac

import (
	"strings"

	"github.com/salesdesk/salesdesk/internal/shared"
)

// Policy evaluates role grants. It is the single authorization entry point of
// the contract and analytics services.
type Policy struct {
	grants map[string]map[string]struct{}
}

// DefaultGrants returns the built-in role to permission table.
func DefaultGrants() map[string][]string {
	all := shared.ContractScopes()
	managerPerms := make([]string, 0, len(all))
	for _, p := range all {
		if p != shared.PermContractsDelete {
			managerPerms = append(managerPerms, p)
		}
	}
	return map[string][]string{
		shared.RoleAdmin:   all,
		shared.RoleManager: managerPerms,
		shared.RoleSales: {
			shared.PermContractsView,
			shared.PermPeriodsUpdateGoal,
			shared.PermAnalyticsView,
		},
		shared.RoleClient: {
			shared.PermContractsView,
			shared.PermAnalyticsView,
		},
		shared.RoleSystem: {
			shared.PermContractsView,
			shared.PermPeriodsRefreshPerf,
			shared.PermAnalyticsView,
		},
	}
}

// NewPolicy builds a Policy from a role to permissions table. A nil table
// selects DefaultGrants.
func NewPolicy(grants map[string][]string) *Policy {
	if grants == nil {
		grants = DefaultGrants()
	}
	p := &Policy{grants: make(map[string]map[string]struct{}, len(grants))}
	for role, perms := range grants {
		set := make(map[string]struct{}, len(perms))
		for _, perm := range normalizePermissions(perms) {
			set[perm] = struct{}{}
		}
		p.grants[strings.ToLower(role)] = set
	}
	return p
}

// Can reports whether actor may perform action on resource. Client-portal
// users are additionally confined to resources of their own client.
func (p *Policy) Can(actor shared.Actor, action string, resource Resource) bool {
	if p == nil {
		return false
	}
	role := strings.ToLower(strings.TrimSpace(actor.Role))
	perms, ok := p.grants[role]
	if !ok {
		return false
	}
	if _, ok := perms[strings.ToLower(action)]; !ok {
		return false
	}
	if role == shared.RoleClient {
		if actor.ClientID == nil || resource.ClientID != *actor.ClientID {
			return false
		}
	}
	return true
}

// Permissions returns the permissions granted to role.
func (p *Policy) Permissions(role string) []string {
	if p == nil {
		return nil
	}
	perms := p.grants[strings.ToLower(role)]
	out := make([]string, 0, len(perms))
	for perm := range perms {
		out = append(out, perm)
	}
	return out
}
