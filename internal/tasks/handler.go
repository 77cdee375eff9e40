package tasks

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/orgtasks/backend/internal/access"
	"github.com/orgtasks/backend/internal/audit"
	"github.com/orgtasks/backend/internal/auth"
	"github.com/orgtasks/backend/internal/models"
	"github.com/orgtasks/backend/pkg/database"
	"github.com/orgtasks/backend/pkg/response"
)

// Store persists tasks. GetByID, Update and Delete return ErrNotFound for unknown ids.
type Store interface {
	Create(ctx context.Context, t *models.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	List(ctx context.Context, p ListParams) ([]models.Task, int, error)
	Update(ctx context.Context, t *models.Task) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// UserFinder resolves assignees. It returns auth.ErrUserNotFound for unknown ids.
type UserFinder interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Snapshotter loads the current organization forest.
type Snapshotter interface {
	Snapshot(ctx context.Context) ([]models.Organization, error)
}

// CreateTaskRequest is the body for POST /tasks. The assignee defaults to the caller.
type CreateTaskRequest struct {
	Title        string              `json:"title" binding:"required"`
	Description  string              `json:"description"`
	Category     models.TaskCategory `json:"category" binding:"required"`
	Priority     *int                `json:"priority"`
	DueDate      *time.Time          `json:"due_date"`
	AssignedToID *uuid.UUID          `json:"assigned_to_id"`
}

// UpdateTaskRequest is the body for PUT /tasks/:id. Absent fields are left unchanged.
type UpdateTaskRequest struct {
	Title        *string              `json:"title"`
	Description  *string              `json:"description"`
	Status       *models.TaskStatus   `json:"status"`
	Category     *models.TaskCategory `json:"category"`
	Priority     *int                 `json:"priority"`
	DueDate      *time.Time           `json:"due_date"`
	AssignedToID *uuid.UUID           `json:"assigned_to_id"`
}

// ListResponse is one page of tasks.
type ListResponse struct {
	Tasks      []models.Task       `json:"tasks"`
	Pagination response.Pagination `json:"pagination"`
}

// Handler handles task HTTP endpoints. Permissions are enforced by the router;
// the handler enforces organization scoping.
type Handler struct {
	store  Store
	users  UserFinder
	orgs   Snapshotter
	engine *access.Engine
	logger *zap.Logger
}

// NewHandler creates a tasks handler.
func NewHandler(store Store, users UserFinder, orgs Snapshotter, engine *access.Engine, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, users: users, orgs: orgs, engine: engine, logger: logger}
}

// Create handles POST /tasks.
func (h *Handler) Create(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		response.Unauthorized(c, "not authenticated")
		return
	}
	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "title and category are required")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || len(req.Title) > 255 {
		response.BadRequest(c, "title must be 1-255 characters")
		return
	}
	if !req.Category.Valid() {
		response.BadRequest(c, "invalid category")
		return
	}
	priority := DefaultPriority
	if req.Priority != nil {
		priority = *req.Priority
	}
	if priority < MinPriority || priority > MaxPriority {
		response.BadRequest(c, "priority must be between 1 and 5")
		return
	}

	ctx := c.Request.Context()
	snapshot, ok := h.snapshot(c)
	if !ok {
		return
	}
	assigneeID, assigneeOrg := claims.UserID, claims.OrganizationID
	if req.AssignedToID != nil && *req.AssignedToID != claims.UserID {
		assignee, ok := h.resolveAssignee(c, *req.AssignedToID)
		if !ok {
			return
		}
		assigneeID, assigneeOrg = assignee.ID, assignee.OrganizationID
	}
	if !h.engine.CanAccessOrganization(claims.OrganizationID, assigneeOrg, snapshot) {
		response.Forbidden(c, "cannot assign a task to a user outside your organization")
		return
	}

	task := &models.Task{
		Title:          req.Title,
		Description:    req.Description,
		Status:         models.TaskStatusTodo,
		Category:       req.Category,
		Priority:       priority,
		DueDate:        req.DueDate,
		AssignedToID:   assigneeID,
		CreatedByID:    claims.UserID,
		OrganizationID: assigneeOrg,
	}
	if err := h.store.Create(ctx, task); err != nil {
		if errors.Is(err, database.ErrForeignKeyViolation) {
			response.BadRequest(c, "assigned user not found")
			return
		}
		h.logger.Error("create task", zap.Error(err))
		response.Internal(c, "failed to create task")
		return
	}
	audit.SetResourceID(c, task.ID.String())
	response.Created(c, task)
}

// List handles GET /tasks with optional status, category, assigned_to_id,
// sort_by, sort_order, page and limit query parameters.
func (h *Handler) List(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		response.Unauthorized(c, "not authenticated")
		return
	}
	params, err := ParseListParams(c)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	snapshot, ok := h.snapshot(c)
	if !ok {
		return
	}
	params.OrganizationIDs = h.engine.AccessibleOrganizationIDs(claims.Role, claims.OrganizationID, snapshot)
	list, total, err := h.store.List(c.Request.Context(), params)
	if err != nil {
		h.logger.Error("list tasks", zap.Error(err))
		response.Internal(c, "failed to list tasks")
		return
	}
	response.OK(c, ListResponse{Tasks: list, Pagination: response.NewPagination(params.Page, params.Limit, total)})
}

// Update handles PUT /tasks/:id.
func (h *Handler) Update(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		response.Unauthorized(c, "not authenticated")
		return
	}
	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if msg := validateUpdate(&req); msg != "" {
		response.BadRequest(c, msg)
		return
	}
	task, snapshot, ok := h.loadAccessible(c, claims)
	if !ok {
		return
	}

	if req.AssignedToID != nil && *req.AssignedToID != task.AssignedToID {
		assignee, ok := h.resolveAssignee(c, *req.AssignedToID)
		if !ok {
			return
		}
		if !h.engine.CanAccessOrganization(claims.OrganizationID, assignee.OrganizationID, snapshot) {
			response.Forbidden(c, "assignee is outside your organization")
			return
		}
		task.AssignedToID = assignee.ID
	}
	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Status != nil {
		task.Status = *req.Status
	}
	if req.Category != nil {
		task.Category = *req.Category
	}
	if req.Priority != nil {
		task.Priority = *req.Priority
	}
	if req.DueDate != nil {
		task.DueDate = req.DueDate
	}

	if err := h.store.Update(c.Request.Context(), task); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "task not found")
			return
		}
		if errors.Is(err, database.ErrForeignKeyViolation) {
			response.BadRequest(c, "assigned user not found")
			return
		}
		h.logger.Error("update task", zap.String("task_id", task.ID.String()), zap.Error(err))
		response.Internal(c, "failed to update task")
		return
	}
	response.OK(c, task)
}

// Delete handles DELETE /tasks/:id.
func (h *Handler) Delete(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		response.Unauthorized(c, "not authenticated")
		return
	}
	task, _, ok := h.loadAccessible(c, claims)
	if !ok {
		return
	}
	if err := h.store.Delete(c.Request.Context(), task.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "task not found")
			return
		}
		h.logger.Error("delete task", zap.String("task_id", task.ID.String()), zap.Error(err))
		response.Internal(c, "failed to delete task")
		return
	}
	response.Message(c, "task deleted")
}

// loadAccessible fetches the task named by :id and checks the caller may
// reach its organization. It writes the error response itself.
func (h *Handler) loadAccessible(c *gin.Context, claims *auth.AccessClaims) (*models.Task, []models.Organization, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid task id")
		return nil, nil, false
	}
	task, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "task not found")
			return nil, nil, false
		}
		h.logger.Error("get task", zap.String("task_id", id.String()), zap.Error(err))
		response.Internal(c, "failed to load task")
		return nil, nil, false
	}
	snapshot, ok := h.snapshot(c)
	if !ok {
		return nil, nil, false
	}
	if !h.engine.CanAccessOrganization(claims.OrganizationID, task.OrganizationID, snapshot) {
		response.Forbidden(c, "access to this task is denied")
		return nil, nil, false
	}
	return task, snapshot, true
}

func (h *Handler) resolveAssignee(c *gin.Context, id uuid.UUID) (*models.User, bool) {
	user, err := h.users.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			response.BadRequest(c, "assigned user not found")
			return nil, false
		}
		h.logger.Error("get assignee", zap.String("user_id", id.String()), zap.Error(err))
		response.Internal(c, "failed to load assignee")
		return nil, false
	}
	return user, true
}

func (h *Handler) snapshot(c *gin.Context) ([]models.Organization, bool) {
	snapshot, err := h.orgs.Snapshot(c.Request.Context())
	if err != nil {
		h.logger.Error("load organizations", zap.Error(err))
		response.Internal(c, "failed to load organizations")
		return nil, false
	}
	return snapshot, true
}

func validateUpdate(req *UpdateTaskRequest) string {
	if req.Title != nil {
		t := strings.TrimSpace(*req.Title)
		if t == "" || len(t) > 255 {
			return "title must be 1-255 characters"
		}
		req.Title = &t
	}
	if req.Status != nil && !req.Status.Valid() {
		return "invalid status"
	}
	if req.Category != nil && !req.Category.Valid() {
		return "invalid category"
	}
	if req.Priority != nil && (*req.Priority < MinPriority || *req.Priority > MaxPriority) {
		return "priority must be between 1 and 5"
	}
	return ""
}
