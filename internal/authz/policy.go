package authz

import "fmt"

// The role authority table is declarative data: each role composes permission
// groups explicitly, there is no inheritance and no implicit fallback. The
// table is built once at package init and read-only afterwards.

var viewerGrants = []Permission{
	PermTicketsView,
	PermInventoryView,
	PermWarrantiesView,
	PermInvoicesView,
	PermCustomersView,
	PermReportsView,
}

var technicianGrants = []Permission{
	PermTicketsCreate,
	PermTicketsEdit,
	PermInventoryEdit,
	PermWarrantiesEdit,
	PermCustomersEdit,
}

var managerGrants = []Permission{
	PermTicketsAssign,
	PermTicketsDelete,
	PermInventoryCreate,
	PermInventoryDelete,
	PermInvoicesCreate,
	PermInvoicesVoid,
	PermUsersView,
	PermUsersInvite,
	PermSettingsView,
}

var adminGrants = []Permission{
	PermUsersEdit,
	PermSettingsEdit,
}

var authorityTable = map[Role]map[Permission]struct{}{
	RoleViewer:     permissionSet(viewerGrants),
	RoleTechnician: permissionSet(viewerGrants, technicianGrants),
	RoleManager:    permissionSet(viewerGrants, technicianGrants, managerGrants),
	RoleAdmin:      permissionSet(viewerGrants, technicianGrants, managerGrants, adminGrants),
}

func permissionSet(groups ...[]Permission) map[Permission]struct{} {
	set := make(map[Permission]struct{})
	for _, group := range groups {
		for _, p := range group {
			set[p] = struct{}{}
		}
	}
	return set
}

// PermissionsFor returns the permission set granted to the role. An
// unrecognized role is a programming error: role values are validated at every
// boundary, so a miss here means a new role was added without an authority
// entry.
func PermissionsFor(role Role) map[Permission]struct{} {
	set, ok := authorityTable[role]
	if !ok {
		panic(fmt.Sprintf("authz: no authority entry for role %q", role))
	}
	return set
}

// GrantedPermissions returns the role's permissions as a slice, ordered by the
// canonical taxonomy order.
func GrantedPermissions(role Role) []Permission {
	set := PermissionsFor(role)
	out := make([]Permission, 0, len(set))
	for _, p := range AllPermissions() {
		if _, ok := set[p]; ok {
			out = append(out, p)
		}
	}
	return out
}
