package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/orgtasks/backend/internal/access"
	"github.com/orgtasks/backend/internal/models"
	"github.com/orgtasks/backend/pkg/response"
)

const (
	// RefreshCookieName is the cookie carrying the refresh token.
	RefreshCookieName = "refresh_token"
	// RefreshCookiePath scopes the cookie to the refresh endpoint.
	RefreshCookiePath = "/auth/refresh"
)

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse is returned on login. The refresh token travels only in the cookie.
type LoginResponse struct {
	Token string            `json:"token"`
	User  models.UserPublic `json:"user"`
}

// RefreshResponse is returned on a successful refresh.
type RefreshResponse struct {
	Token string `json:"token"`
}

// CookieOptions controls the refresh cookie attributes.
type CookieOptions struct {
	Domain string
	Secure bool
}

// UserLister lists users of a set of organizations.
type UserLister interface {
	ListByOrganizations(ctx context.Context, orgIDs []uuid.UUID) ([]models.UserPublic, error)
}

// OrganizationSnapshotter loads the current organization forest.
type OrganizationSnapshotter interface {
	Snapshot(ctx context.Context) ([]models.Organization, error)
}

// Handler handles auth and user HTTP endpoints.
type Handler struct {
	gateway *Gateway
	users   UserLister
	orgs    OrganizationSnapshotter
	engine  *access.Engine
	cookie  CookieOptions
	logger  *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(gateway *Gateway, users UserLister, orgs OrganizationSnapshotter, engine *access.Engine, cookie CookieOptions, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{gateway: gateway, users: users, orgs: orgs, engine: engine, cookie: cookie, logger: logger}
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "email and password are required")
		return
	}

	session, err := h.gateway.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrInvalidCredentials):
			response.Unauthorized(c, "invalid credentials")
		default:
			h.logger.Error("login failed", zap.Error(err))
			response.Internal(c, "login failed")
		}
		return
	}

	h.setRefreshCookie(c, session.RefreshToken, int(h.gateway.Tokens().RefreshTTL().Seconds()))
	response.OK(c, LoginResponse{Token: session.AccessToken, User: session.User})
}

// Refresh handles POST /auth/refresh. Any failure clears the refresh cookie.
func (h *Handler) Refresh(c *gin.Context) {
	token, err := c.Cookie(RefreshCookieName)
	if err != nil || token == "" {
		h.clearRefreshCookie(c)
		response.Unauthorized(c, "refresh token required")
		return
	}

	accessToken, _, err := h.gateway.Refresh(c.Request.Context(), token)
	if err != nil {
		h.clearRefreshCookie(c)
		switch {
		case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrUserNotFound):
			response.Unauthorized(c, "invalid refresh token")
		default:
			h.logger.Error("refresh failed", zap.Error(err))
			response.Internal(c, "refresh failed")
		}
		return
	}
	response.OK(c, RefreshResponse{Token: accessToken})
}

// Logout handles DELETE /auth/refresh. The cookie is cleared even when the token is already invalid.
func (h *Handler) Logout(c *gin.Context) {
	token, _ := c.Cookie(RefreshCookieName)
	h.clearRefreshCookie(c)
	if token != "" {
		if err := h.gateway.Logout(c.Request.Context(), token); err != nil && !errors.Is(err, ErrInvalidToken) {
			h.logger.Error("logout failed", zap.Error(err))
			response.Internal(c, "logout failed")
			return
		}
	}
	response.NoContent(c)
}

// Me handles GET /auth/me and returns the identity carried by the access token.
func (h *Handler) Me(c *gin.Context) {
	claims, ok := ClaimsFromContext(c)
	if !ok {
		response.Unauthorized(c, "not authenticated")
		return
	}
	response.OK(c, gin.H{
		"id":              claims.UserID,
		"email":           claims.Email,
		"first_name":      claims.FirstName,
		"last_name":       claims.LastName,
		"role":            claims.Role,
		"organization_id": claims.OrganizationID,
		"permissions":     h.engine.Permissions(claims.Role),
	})
}

// ListUsers handles GET /users. Results are limited to the caller's accessible organizations.
func (h *Handler) ListUsers(c *gin.Context) {
	claims, ok := ClaimsFromContext(c)
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
	orgIDs := h.engine.AccessibleOrganizationIDs(claims.Role, claims.OrganizationID, snapshot)
	users, err := h.users.ListByOrganizations(c.Request.Context(), orgIDs)
	if err != nil {
		h.logger.Error("list users", zap.Error(err))
		response.Internal(c, "failed to list users")
		return
	}
	c.JSON(http.StatusOK, response.Body{Success: true, Data: gin.H{"users": users, "total": len(users)}})
}

func (h *Handler) setRefreshCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(RefreshCookieName, token, maxAge, RefreshCookiePath, h.cookie.Domain, h.cookie.Secure, true)
}

func (h *Handler) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(RefreshCookieName, "", -1, RefreshCookiePath, h.cookie.Domain, h.cookie.Secure, true)
}
