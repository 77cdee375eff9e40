package audit

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/orgtasks/backend/internal/access"
	"github.com/orgtasks/backend/internal/auth"
	"github.com/orgtasks/backend/internal/models"
	"github.com/orgtasks/backend/pkg/response"
)

// Lister pages audit entries of a set of organizations.
type Lister interface {
	ListByOrganizations(ctx context.Context, orgIDs []uuid.UUID, page, limit int) ([]models.AuditLog, int, error)
}

// Snapshotter loads the current organization forest.
type Snapshotter interface {
	Snapshot(ctx context.Context) ([]models.Organization, error)
}

// ListResponse is one page of the audit log.
type ListResponse struct {
	Logs       []models.AuditLog   `json:"logs"`
	Pagination response.Pagination `json:"pagination"`
}

// Handler serves the audit log.
type Handler struct {
	logs   Lister
	orgs   Snapshotter
	engine *access.Engine
	logger *zap.Logger
}

// NewHandler creates an audit handler.
func NewHandler(logs Lister, orgs Snapshotter, engine *access.Engine, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{logs: logs, orgs: orgs, engine: engine, logger: logger}
}

// List handles GET /audit-log?page=&limit=.
func (h *Handler) List(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		response.Unauthorized(c, "not authenticated")
		return
	}
	page, limit := response.ParsePaging(c.Query("page"), c.Query("limit"))
	snapshot, err := h.orgs.Snapshot(c.Request.Context())
	if err != nil {
		h.logger.Error("load organizations", zap.Error(err))
		response.Internal(c, "failed to load organizations")
		return
	}
	orgIDs := h.engine.AccessibleOrganizationIDs(claims.Role, claims.OrganizationID, snapshot)
	logs, total, err := h.logs.ListByOrganizations(c.Request.Context(), orgIDs, page, limit)
	if err != nil {
		h.logger.Error("list audit logs", zap.Error(err))
		response.Internal(c, "failed to fetch audit logs")
		return
	}
	response.OK(c, ListResponse{Logs: logs, Pagination: response.NewPagination(page, limit, total)})
}
