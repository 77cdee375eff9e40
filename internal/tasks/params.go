package tasks

import (
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/orgtasks/backend/internal/models"
	"github.com/orgtasks/backend/pkg/response"
)

const (
	DefaultPriority = 3
	MinPriority     = 1
	MaxPriority     = 5
)

// sortColumns maps the accepted sort_by values to SQL columns. Nothing else reaches ORDER BY.
var sortColumns = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"due_date":   "due_date",
	"priority":   "priority",
	"title":      "title",
	"status":     "status",
}

// ListParams filters and pages a task listing.
type ListParams struct {
	OrganizationIDs []uuid.UUID
	Status          models.TaskStatus
	Category        models.TaskCategory
	AssignedToID    *uuid.UUID
	SortBy          string
	Descending      bool
	Page            int
	Limit           int
}

// Offset returns the number of rows to skip.
func (p ListParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Query is the subset of URL query access ParseListParams needs.
type Query interface {
	Query(key string) string
}

// ParseListParams reads filters, sorting and paging from the request query.
func ParseListParams(q Query) (ListParams, error) {
	p := ListParams{SortBy: "created_at", Descending: true}
	p.Page, p.Limit = response.ParsePaging(q.Query("page"), q.Query("limit"))
	if v := q.Query("status"); v != "" {
		p.Status = models.TaskStatus(v)
		if !p.Status.Valid() {
			return p, errors.New("invalid status")
		}
	}
	if v := q.Query("category"); v != "" {
		p.Category = models.TaskCategory(v)
		if !p.Category.Valid() {
			return p, errors.New("invalid category")
		}
	}
	if v := q.Query("assigned_to_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return p, errors.New("invalid assigned_to_id")
		}
		p.AssignedToID = &id
	}
	if v := q.Query("sort_by"); v != "" {
		if _, ok := sortColumns[v]; !ok {
			return p, errors.New("invalid sort_by")
		}
		p.SortBy = v
	}
	switch strings.ToLower(q.Query("sort_order")) {
	case "", "desc":
	case "asc":
		p.Descending = false
	default:
		return p, errors.New("invalid sort_order")
	}
	return p, nil
}
