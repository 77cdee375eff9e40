package organizations

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orgtasks/backend/internal/models"
	"github.com/orgtasks/backend/pkg/database"
)

// ErrNotFound is returned when an organization does not exist.
var ErrNotFound = errors.New("organizations: not found")

const orgColumns = `id, name, parent_id, owner_id, created_at, updated_at`

// Repository handles organization persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an organizations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Snapshot returns every organization as one point-in-time forest, ordered by creation.
// Access decisions for a request are made against a single snapshot.
func (r *Repository) Snapshot(ctx context.Context) ([]models.Organization, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+orgColumns+` FROM organizations ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Organization{}
	for rows.Next() {
		var o models.Organization
		if err := rows.Scan(&o.ID, &o.Name, &o.ParentID, &o.OwnerID, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, o)
	}
	return list, rows.Err()
}

// GetByID returns an organization by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	var o models.Organization
	err := r.pool.QueryRow(ctx, `SELECT `+orgColumns+` FROM organizations WHERE id = $1`, id).
		Scan(&o.ID, &o.Name, &o.ParentID, &o.OwnerID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// Create inserts an organization. A nil ParentID creates a root; an unknown
// parent returns ErrNotFound.
func (r *Repository) Create(ctx context.Context, org *models.Organization) error {
	const q = `INSERT INTO organizations (name, parent_id)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, org.Name, org.ParentID).Scan(&org.ID, &org.CreatedAt, &org.UpdatedAt)
	if err = database.MapError(err); errors.Is(err, database.ErrForeignKeyViolation) {
		return fmt.Errorf("%w: parent %s", ErrNotFound, org.ParentID)
	}
	return err
}

// SetOwner records the owning user of an organization.
func (r *Repository) SetOwner(ctx context.Context, orgID, ownerID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE organizations SET owner_id = $2, updated_at = NOW() WHERE id = $1`, orgID, ownerID)
	if err != nil {
		return database.MapError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
