package audit

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orgtasks/backend/internal/models"
)

// Repository handles audit log persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an audit repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert stores an entry. Inserting the same ID twice is a no-op.
func (r *Repository) Insert(ctx context.Context, e *models.AuditLog) error {
	const q = `INSERT INTO audit_logs (id, user_id, organization_id, action, resource, resource_id, ip_address, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`
	_, err := r.pool.Exec(ctx, q, e.ID, e.UserID, e.OrganizationID, e.Action, e.Resource, e.ResourceID, e.IPAddress, e.Timestamp)
	return err
}

// ListByOrganizations returns one page of entries recorded in orgIDs, newest first, and the total count.
func (r *Repository) ListByOrganizations(ctx context.Context, orgIDs []uuid.UUID, page, limit int) ([]models.AuditLog, int, error) {
	if len(orgIDs) == 0 {
		return []models.AuditLog{}, 0, nil
	}
	ids := make([]string, len(orgIDs))
	for i, id := range orgIDs {
		ids[i] = id.String()
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM audit_logs WHERE organization_id = ANY($1::uuid[])`, ids).
		Scan(&total); err != nil {
		return nil, 0, err
	}

	const q = `SELECT id, user_id, organization_id, action, resource, resource_id, ip_address, timestamp
		FROM audit_logs
		WHERE organization_id = ANY($1::uuid[])
		ORDER BY timestamp DESC, id
		LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, q, ids, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	list := []models.AuditLog{}
	for rows.Next() {
		var e models.AuditLog
		if err := rows.Scan(&e.ID, &e.UserID, &e.OrganizationID, &e.Action, &e.Resource, &e.ResourceID,
			&e.IPAddress, &e.Timestamp); err != nil {
			return nil, 0, err
		}
		list = append(list, e)
	}
	return list, total, rows.Err()
}
