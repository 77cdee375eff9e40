package models

import (
	"time"

	"github.com/google/uuid"
)

// Organization is one node of the organization forest. A nil ParentID marks a root.
// OwnerID is nil until the owning user has been created.
type Organization struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	ParentID  *uuid.UUID `json:"parent_id,omitempty"`
	OwnerID   *uuid.UUID `json:"owner_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// IsRoot reports whether the organization has no parent.
func (o Organization) IsRoot() bool {
	return o.ParentID == nil
}
