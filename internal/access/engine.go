// Package access decides what a role may do and which organizations an
// identity may see. Every decision is a plain value computed from the
// arguments; nothing here performs I/O or keeps mutable state.
package access

import (
	"errors"

	"github.com/google/uuid"

	"github.com/orgtasks/backend/internal/models"
)

var (
	// ErrInsufficientPermission is returned by callers that convert a denied permission check into an error.
	ErrInsufficientPermission = errors.New("access: insufficient permission")
	// ErrOrganizationAccessDenied is returned by callers that convert a denied organization check into an error.
	ErrOrganizationAccessDenied = errors.New("access: organization access denied")
)

// Engine combines the permission table with organization hierarchy rules.
// It is safe for concurrent use.
type Engine struct {
	table PermissionTable
}

// NewEngine creates an engine over the given table.
func NewEngine(table PermissionTable) *Engine {
	return &Engine{table: table}
}

// HasPermission reports whether role holds perm.
func (e *Engine) HasPermission(role models.Role, perm Permission) bool {
	return e.table.Has(role, perm)
}

// Permissions returns the permissions role holds.
func (e *Engine) Permissions(role models.Role) []Permission {
	return e.table.Granted(role)
}

// CanAccessOrganization reports whether a member of viewerOrgID may access
// data of targetOrgID. Access flows down the tree only: the same org or any
// of its descendants, never a parent or sibling.
func (e *Engine) CanAccessOrganization(viewerOrgID, targetOrgID uuid.UUID, snapshot []models.Organization) bool {
	if viewerOrgID == targetOrgID {
		return true
	}
	return NewHierarchy(snapshot).IsDescendant(viewerOrgID, targetOrgID)
}

// AccessibleOrganizationIDs returns the organizations whose data an identity
// may see. ownOrgID always comes first. Owners and admins also see every
// descendant; viewers see only their own organization.
func (e *Engine) AccessibleOrganizationIDs(role models.Role, ownOrgID uuid.UUID, snapshot []models.Organization) []uuid.UUID {
	ids := []uuid.UUID{ownOrgID}
	if !seesDescendants(role) {
		return ids
	}
	return append(ids, NewHierarchy(snapshot).DescendantIDs(ownOrgID)...)
}

// CanViewOrganization is the role-aware form of CanAccessOrganization and
// agrees with AccessibleOrganizationIDs: viewers reach only their own organization.
func (e *Engine) CanViewOrganization(role models.Role, viewerOrgID, targetOrgID uuid.UUID, snapshot []models.Organization) bool {
	if viewerOrgID == targetOrgID {
		return true
	}
	return seesDescendants(role) && e.CanAccessOrganization(viewerOrgID, targetOrgID, snapshot)
}

func seesDescendants(role models.Role) bool {
	return role == models.RoleOwner || role == models.RoleAdmin
}
