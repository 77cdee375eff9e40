package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditLog records one successful state-changing or read request.
type AuditLog struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"user_id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Action         string    `json:"action"`
	Resource       string    `json:"resource"`
	ResourceID     string    `json:"resource_id"`
	IPAddress      string    `json:"ip_address,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}
