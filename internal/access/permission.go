package access

import (
	"fmt"

	"github.com/orgtasks/backend/internal/models"
)

// Permission is a single capability granted to a role.
type Permission string

const (
	PermCreateTask   Permission = "create_task"
	PermReadTask     Permission = "read_task"
	PermUpdateTask   Permission = "update_task"
	PermDeleteTask   Permission = "delete_task"
	PermViewAuditLog Permission = "view_audit_log"
	PermManageUsers  Permission = "manage_users"
)

// Permissions lists every known permission.
var Permissions = []Permission{
	PermCreateTask,
	PermReadTask,
	PermUpdateTask,
	PermDeleteTask,
	PermViewAuditLog,
	PermManageUsers,
}

// Valid reports whether p is a known permission.
func (p Permission) Valid() bool {
	for _, known := range Permissions {
		if p == known {
			return true
		}
	}
	return false
}

// PermissionTable maps every role to the permissions it holds.
// The zero value denies everything; build one with NewPermissionTable.
type PermissionTable struct {
	grants map[models.Role]map[Permission]struct{}
}

// NewPermissionTable validates and copies the given mapping. Every role in
// models.Roles must have an entry and every permission must be known.
func NewPermissionTable(m map[models.Role][]Permission) (PermissionTable, error) {
	grants := make(map[models.Role]map[Permission]struct{}, len(m))
	for role, perms := range m {
		if !role.Valid() {
			return PermissionTable{}, fmt.Errorf("access: unknown role %q in permission table", role)
		}
		set := make(map[Permission]struct{}, len(perms))
		for _, p := range perms {
			if !p.Valid() {
				return PermissionTable{}, fmt.Errorf("access: unknown permission %q for role %q", p, role)
			}
			set[p] = struct{}{}
		}
		grants[role] = set
	}
	for _, role := range models.Roles {
		if _, ok := grants[role]; !ok {
			return PermissionTable{}, fmt.Errorf("access: role %q has no permission table entry", role)
		}
	}
	return PermissionTable{grants: grants}, nil
}

// Has reports whether role holds perm. Unknown roles and unlisted permissions are denied.
func (t PermissionTable) Has(role models.Role, perm Permission) bool {
	set, ok := t.grants[role]
	if !ok {
		return false
	}
	_, ok = set[perm]
	return ok
}

// Granted returns the permissions held by role, in declaration order.
func (t PermissionTable) Granted(role models.Role) []Permission {
	var out []Permission
	for _, p := range Permissions {
		if t.Has(role, p) {
			out = append(out, p)
		}
	}
	return out
}

var defaultTable = mustPermissionTable(map[models.Role][]Permission{
	models.RoleOwner: {
		PermCreateTask,
		PermReadTask,
		PermUpdateTask,
		PermDeleteTask,
		PermViewAuditLog,
		PermManageUsers,
	},
	models.RoleAdmin: {
		PermCreateTask,
		PermReadTask,
		PermUpdateTask,
		PermDeleteTask,
		PermViewAuditLog,
	},
	models.RoleViewer: {
		PermReadTask,
	},
})

// DefaultPermissionTable returns the built-in role to permission mapping.
func DefaultPermissionTable() PermissionTable {
	return defaultTable
}

func mustPermissionTable(m map[models.Role][]Permission) PermissionTable {
	t, err := NewPermissionTable(m)
	if err != nil {
		panic(err)
	}
	return t
}
