package service

import "github.com/sandeepkv93/siteops-service/internal/domain"

// RoleAuthorizer answers permission checks from the static role map. The
// map is expanded into sets once at construction.
type RoleAuthorizer struct {
	grants map[domain.Role]map[string]struct{}
}

func NewRoleAuthorizer() *RoleAuthorizer {
	a := &RoleAuthorizer{grants: map[domain.Role]map[string]struct{}{}}
	for _, role := range []domain.Role{domain.RoleAdmin, domain.RoleManager, domain.RoleSupervisor} {
		set := map[string]struct{}{}
		for _, p := range domain.PermissionsForRole(role) {
			set[p] = struct{}{}
		}
		a.grants[role] = set
	}
	return a
}

func (a *RoleAuthorizer) HasPermission(role domain.Role, required string) bool {
	set, ok := a.grants[role]
	if !ok {
		return false
	}
	_, ok = set[required]
	return ok
}

func (a *RoleAuthorizer) Permissions(role domain.Role) []string {
	return domain.PermissionsForRole(role)
}
