package organizations

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

// Snapshotter loads the current organization forest.
type Snapshotter interface {
	Snapshot(ctx context.Context) ([]models.Organization, error)
}

// Handler handles organization HTTP endpoints.
type Handler struct {
	orgs   Snapshotter
	engine *access.Engine
	logger *zap.Logger
}

// NewHandler creates an organizations handler.
func NewHandler(orgs Snapshotter, engine *access.Engine, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{orgs: orgs, engine: engine, logger: logger}
}

// List handles GET /organizations. Own organization first, then visible descendants.
func (h *Handler) List(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		response.Unauthorized(c, "not authenticated")
		return
	}
	snapshot, err := h.orgs.Snapshot(c.Request.Context())
	if err != nil {
		h.logger.Error("load organizations", zap.Error(err))
		response.Internal(c, "failed to load organizations")
		return
	}
	byID := make(map[uuid.UUID]models.Organization, len(snapshot))
	for _, o := range snapshot {
		byID[o.ID] = o
	}
	list := []models.Organization{}
	for _, id := range h.engine.AccessibleOrganizationIDs(claims.Role, claims.OrganizationID, snapshot) {
		if o, ok := byID[id]; ok {
			list = append(list, o)
		}
	}
	response.OK(c, list)
}

// Get handles GET /organizations/:id. Visibility matches List.
func (h *Handler) Get(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		response.Unauthorized(c, "not authenticated")
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid organization id")
		return
	}
	snapshot, err := h.orgs.Snapshot(c.Request.Context())
	if err != nil {
		h.logger.Error("load organizations", zap.Error(err))
		response.Internal(c, "failed to load organizations")
		return
	}
	var found *models.Organization
	for i := range snapshot {
		if snapshot[i].ID == id {
			found = &snapshot[i]
			break
		}
	}
	if found == nil {
		response.NotFound(c, "organization not found")
		return
	}
	if !h.engine.CanViewOrganization(claims.Role, claims.OrganizationID, id, snapshot) {
		response.Forbidden(c, "access to this organization is denied")
		return
	}
	response.OK(c, found)
}
