// Package policy centralizes every role/action permission decision.
// It is a pure lookup table: no I/O, no request state, so services and
// handlers consult the same rules the UI renders from.
package policy

import "betonflow/internal/model"

// Action identifiers for every gated operation.
type Action string

const (
	OrderCreate      Action = "order.create"
	OrderApprove     Action = "order.approve"
	OrderSetPriority Action = "order.set_priority"
	OrderUpdate      Action = "order.update"
	OrderDelete      Action = "order.delete"
	InvoiceCreate    Action = "invoice.create"
	InvoiceUpdate    Action = "invoice.update"
	InvoiceSubmit    Action = "invoice.submit_driver_actions"
	DirectoryWrite   Action = "directory.write"
	UserManage       Action = "user.manage"
)

type rule struct {
	roles    map[string]bool
	statuses map[string]bool // order statuses the action is valid in; nil means any
}

func roles(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

func statuses(names ...string) map[string]bool {
	return roles(names...)
}

var rules = map[Action]rule{
	OrderCreate: {
		roles: roles(model.RoleAdmin, model.RoleDirector, model.RoleAccountant,
			model.RoleManager, model.RoleDispatcher),
	},
	OrderApprove: {
		roles:    roles(model.RoleDirector),
		statuses: statuses(model.OrderPending),
	},
	OrderSetPriority: {
		roles:    roles(model.RoleDirector),
		statuses: statuses(model.OrderPending),
	},
	OrderUpdate: {
		roles:    roles(model.RoleDirector, model.RoleAccountant),
		statuses: statuses(model.OrderPending),
	},
	OrderDelete: {
		roles:    roles(model.RoleDirector, model.RoleAccountant),
		statuses: statuses(model.OrderPending),
	},
	InvoiceCreate: {
		roles: roles(model.RoleAdmin, model.RoleDirector, model.RoleDispatcher),
	},
	InvoiceUpdate: {
		roles: roles(model.RoleAdmin, model.RoleDirector, model.RoleDispatcher),
	},
	InvoiceSubmit: {
		roles: roles(model.RoleDriver),
	},
	DirectoryWrite: {
		roles: roles(model.RoleAdmin, model.RoleDirector, model.RoleAccountant),
	},
	UserManage: {
		roles: roles(model.RoleAdmin),
	},
}

// Per-resource extra writers on top of the DirectoryWrite base set.
var directoryExtraWriters = map[string]map[string]bool{
	"drivers":   roles(model.RoleDispatcher),
	"vehicles":  roles(model.RoleDispatcher),
	"materials": roles(model.RoleSupply),
}

// Allow reports whether role may perform action on an order currently in
// orderStatus. Pass an empty status for actions that do not depend on it.
// admin and developer pass every role check (developer is the service
// account used by internal tooling).
func Allow(role string, action Action, orderStatus string) bool {
	r, ok := rules[action]
	if !ok {
		return false
	}
	if !r.roles[role] && role != model.RoleAdmin && role != model.RoleDeveloper {
		return false
	}
	if r.statuses != nil && !r.statuses[orderStatus] {
		return false
	}
	return true
}

// RoleAllowed reports whether role may ever perform action, regardless of
// order status. Lets callers tell a permission failure (403) apart from a
// wrong-state failure (400).
func RoleAllowed(role string, action Action) bool {
	r, ok := rules[action]
	if !ok {
		return false
	}
	return r.roles[role] || role == model.RoleAdmin || role == model.RoleDeveloper
}

// AllowDirectoryWrite is Allow for directory mutations, honoring the
// per-resource extra writer roles.
func AllowDirectoryWrite(role, resource string) bool {
	if Allow(role, DirectoryWrite, "") {
		return true
	}
	return directoryExtraWriters[resource][role]
}

// CanViewMoney reports whether role may see prices, totals and invoice
// amounts.
func CanViewMoney(role string) bool {
	switch role {
	case model.RoleAdmin, model.RoleDeveloper, model.RoleDirector,
		model.RoleAccountant, model.RoleManager:
		return true
	}
	return false
}
