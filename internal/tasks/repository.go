package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orgtasks/backend/internal/models"
	"github.com/orgtasks/backend/pkg/database"
)

// ErrNotFound is returned when a task does not exist.
var ErrNotFound = errors.New("tasks: not found")

const taskColumns = `id, title, description, status, category, priority, due_date,
	assigned_to_id, created_by_id, organization_id, created_at, updated_at`

// Repository handles task persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a tasks repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanTask(row pgx.Row, t *models.Task) error {
	var status, category string
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &status, &category, &t.Priority, &t.DueDate,
		&t.AssignedToID, &t.CreatedByID, &t.OrganizationID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return err
	}
	t.Status = models.TaskStatus(status)
	t.Category = models.TaskCategory(category)
	return nil
}

// Create inserts a task and fills its generated fields. A missing assignee or
// organization surfaces as database.ErrForeignKeyViolation.
func (r *Repository) Create(ctx context.Context, t *models.Task) error {
	const q = `INSERT INTO tasks (title, description, status, category, priority, due_date,
			assigned_to_id, created_by_id, organization_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + taskColumns
	return database.MapError(scanTask(r.pool.QueryRow(ctx, q, t.Title, t.Description, string(t.Status), string(t.Category),
		t.Priority, t.DueDate, t.AssignedToID, t.CreatedByID, t.OrganizationID), t))
}

// GetByID returns a task by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	var t models.Task
	if err := scanTask(r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id), &t); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// List returns one page of tasks matching p and the total number of matches.
func (r *Repository) List(ctx context.Context, p ListParams) ([]models.Task, int, error) {
	if len(p.OrganizationIDs) == 0 {
		return []models.Task{}, 0, nil
	}
	ids := make([]string, len(p.OrganizationIDs))
	for i, id := range p.OrganizationIDs {
		ids[i] = id.String()
	}
	where := []string{"organization_id = ANY($1::uuid[])"}
	args := []any{ids}
	if p.Status != "" {
		args = append(args, string(p.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if p.Category != "" {
		args = append(args, string(p.Category))
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if p.AssignedToID != nil {
		args = append(args, *p.AssignedToID)
		where = append(where, fmt.Sprintf("assigned_to_id = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tasks WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	column, ok := sortColumns[p.SortBy]
	if !ok {
		column = "created_at"
	}
	dir := "ASC"
	if p.Descending {
		dir = "DESC"
	}
	args = append(args, p.Limit, p.Offset())
	q := fmt.Sprintf(`SELECT %s FROM tasks WHERE %s ORDER BY %s %s NULLS LAST, id LIMIT $%d OFFSET $%d`,
		taskColumns, cond, column, dir, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	list := []models.Task{}
	for rows.Next() {
		var t models.Task
		if err := scanTask(rows, &t); err != nil {
			return nil, 0, err
		}
		list = append(list, t)
	}
	return list, total, rows.Err()
}

// Update writes the mutable fields of t.
func (r *Repository) Update(ctx context.Context, t *models.Task) error {
	const q = `UPDATE tasks SET title = $2, description = $3, status = $4, category = $5, priority = $6,
			due_date = $7, assigned_to_id = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + taskColumns
	err := scanTask(r.pool.QueryRow(ctx, q, t.ID, t.Title, t.Description, string(t.Status), string(t.Category),
		t.Priority, t.DueDate, t.AssignedToID), t)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return database.MapError(err)
}

// Delete removes a task.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
