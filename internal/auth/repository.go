package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orgtasks/backend/internal/models"
	"github.com/orgtasks/backend/pkg/database"
)

const userColumns = `id, email, password_hash, first_name, last_name, role, organization_id, created_at, updated_at`

// Repository handles user persistence and implements CredentialStore.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByEmail returns a user by (lower-cased) email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, NormalizeEmail(email))
}

func (r *Repository) getOne(ctx context.Context, q string, arg any) (*models.User, error) {
	var u models.User
	var role string
	err := r.pool.QueryRow(ctx, q, arg).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&role, &u.OrganizationID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	u.Role = models.Role(role)
	return &u, nil
}

// ListByOrganizations returns users belonging to any of orgIDs, ordered by first name.
func (r *Repository) ListByOrganizations(ctx context.Context, orgIDs []uuid.UUID) ([]models.UserPublic, error) {
	if len(orgIDs) == 0 {
		return []models.UserPublic{}, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users
		WHERE organization_id = ANY($1::uuid[])
		ORDER BY first_name, last_name, email`, uuidStrings(orgIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.UserPublic{}
	for rows.Next() {
		var u models.User
		var role string
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
			&role, &u.OrganizationID, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		u.Role = models.Role(role)
		list = append(list, u.ToPublic())
	}
	return list, rows.Err()
}

// CreateUserParams holds the fields for a new user. Password is plain text.
type CreateUserParams struct {
	Email          string
	Password       string
	FirstName      string
	LastName       string
	Role           models.Role
	OrganizationID uuid.UUID
}

// Create hashes the password and inserts a new user. A duplicate email
// returns ErrEmailTaken.
func (r *Repository) Create(ctx context.Context, p CreateUserParams) (*models.User, error) {
	if !p.Role.Valid() {
		p.Role = models.RoleViewer
	}
	hash, err := HashPassword(p.Password)
	if err != nil {
		return nil, err
	}
	const q = `INSERT INTO users (email, password_hash, first_name, last_name, role, organization_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + userColumns
	var u models.User
	var role string
	err = r.pool.QueryRow(ctx, q, NormalizeEmail(p.Email), hash, p.FirstName, p.LastName, string(p.Role), p.OrganizationID).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &role, &u.OrganizationID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		err = database.MapError(err)
		if errors.Is(err, database.ErrUniqueViolation) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	u.Role = models.Role(role)
	return &u, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
