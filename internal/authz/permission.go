package authz

// Permission is an atomic, namespaced capability token of the form
// "<resource>.<action>". The set of valid tokens is closed: permissions are
// declared here once and are never user-editable.
type Permission string

// Ticket permissions.
const (
	PermTicketsView   Permission = "tickets.view"
	PermTicketsCreate Permission = "tickets.create"
	PermTicketsEdit   Permission = "tickets.edit"
	PermTicketsAssign Permission = "tickets.assign"
	PermTicketsDelete Permission = "tickets.delete"
)

// Inventory permissions.
const (
	PermInventoryView   Permission = "inventory.view"
	PermInventoryCreate Permission = "inventory.create"
	PermInventoryEdit   Permission = "inventory.edit"
	PermInventoryDelete Permission = "inventory.delete"
)

// Warranty permissions.
const (
	PermWarrantiesView Permission = "warranties.view"
	PermWarrantiesEdit Permission = "warranties.edit"
)

// Invoice permissions.
const (
	PermInvoicesView   Permission = "invoices.view"
	PermInvoicesCreate Permission = "invoices.create"
	PermInvoicesVoid   Permission = "invoices.void"
)

// Customer permissions.
const (
	PermCustomersView Permission = "customers.view"
	PermCustomersEdit Permission = "customers.edit"
)

// User and role management permissions.
const (
	PermUsersView   Permission = "users.view"
	PermUsersInvite Permission = "users.invite"
	PermUsersEdit   Permission = "users.edit"
)

// Reporting and settings permissions.
const (
	PermReportsView  Permission = "reports.view"
	PermSettingsView Permission = "settings.view"
	PermSettingsEdit Permission = "settings.edit"
)

// AllPermissions returns every declared permission token.
func AllPermissions() []Permission {
	return []Permission{
		PermTicketsView,
		PermTicketsCreate,
		PermTicketsEdit,
		PermTicketsAssign,
		PermTicketsDelete,
		PermInventoryView,
		PermInventoryCreate,
		PermInventoryEdit,
		PermInventoryDelete,
		PermWarrantiesView,
		PermWarrantiesEdit,
		PermInvoicesView,
		PermInvoicesCreate,
		PermInvoicesVoid,
		PermCustomersView,
		PermCustomersEdit,
		PermUsersView,
		PermUsersInvite,
		PermUsersEdit,
		PermReportsView,
		PermSettingsView,
		PermSettingsEdit,
	}
}

// Strings converts a permission slice into plain string tokens for
// serialization.
func Strings(perms []Permission) []string {
	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = string(p)
	}
	return out
}
