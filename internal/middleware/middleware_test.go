package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/orgtasks/backend/internal/access"
	"github.com/orgtasks/backend/internal/auth"
	"github.com/orgtasks/backend/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTokens(t *testing.T) *auth.TokenService {
	t.Helper()
	tokens, err := auth.NewTokenService("middleware-test-secret")
	require.NoError(t, err)
	return tokens
}

func issue(t *testing.T, tokens *auth.TokenService, role models.Role) (string, *models.User) {
	t.Helper()
	user := &models.User{ID: uuid.New(), Email: "m@example.com", Role: role, OrganizationID: uuid.New()}
	token, err := tokens.IssueAccessToken(user)
	require.NoError(t, err)
	return token, user
}

func TestAuthenticate(t *testing.T) {
	tokens := newTokens(t)
	token, user := issue(t, tokens, models.RoleAdmin)
	refresh, err := tokens.IssueRefreshToken(user.ID)
	require.NoError(t, err)

	var seen *auth.AccessClaims
	r := gin.New()
	r.GET("/x", Authenticate(tokens), func(c *gin.Context) {
		seen, _ = auth.ClaimsFromContext(c)
		c.Status(http.StatusOK)
	})

	tests := []struct {
		name   string
		header string
		code   int
	}{
		{"valid", "Bearer " + token, http.StatusOK},
		{"lower-case scheme", "bearer " + token, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"garbage", "Bearer nope", http.StatusUnauthorized},
		{"refresh token", "Bearer " + refresh, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			require.Equal(t, tt.code, rec.Code)
			if tt.code == http.StatusOK {
				require.NotNil(t, seen)
				require.Equal(t, user.ID, seen.UserID)
				require.Equal(t, user.OrganizationID, seen.OrganizationID)
			} else {
				require.Nil(t, seen)
			}
		})
	}
}

func TestRequirePermission(t *testing.T) {
	tokens := newTokens(t)
	engine := access.NewEngine(access.DefaultPermissionTable())

	r := gin.New()
	r.Use(Authenticate(tokens))
	r.GET("/tasks", RequirePermission(engine, access.PermReadTask), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.DELETE("/tasks", RequirePermission(engine, access.PermDeleteTask), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/users", RequirePermission(engine, access.PermManageUsers), func(c *gin.Context) { c.Status(http.StatusOK) })

	tests := []struct {
		role   models.Role
		method string
		path   string
		code   int
	}{
		{models.RoleViewer, http.MethodGet, "/tasks", http.StatusOK},
		{models.RoleViewer, http.MethodDelete, "/tasks", http.StatusForbidden},
		{models.RoleViewer, http.MethodGet, "/users", http.StatusForbidden},
		{models.RoleAdmin, http.MethodDelete, "/tasks", http.StatusOK},
		{models.RoleAdmin, http.MethodGet, "/users", http.StatusForbidden},
		{models.RoleOwner, http.MethodGet, "/users", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(string(tt.role)+" "+tt.method+" "+tt.path, func(t *testing.T) {
			token, _ := issue(t, tokens, tt.role)
			req := httptest.NewRequest(tt.method, tt.path, nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			require.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestRequirePermissionWithoutClaims(t *testing.T) {
	engine := access.NewEngine(access.DefaultPermissionTable())
	r := gin.New()
	r.GET("/x", RequirePermission(engine, access.PermReadTask), func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://app.example.com"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "http://app.example.com")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "http://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://app.example.com")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestCORSWildcardHasNoCredentials(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"*"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "http://anything.example.com")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestLoggerRecordsUser(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	tokens := newTokens(t)
	token, user := issue(t, tokens, models.RoleViewer)

	r := gin.New()
	r.Use(Logger(zap.New(core)))
	r.GET("/ok", Authenticate(tokens), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(httptest.NewRecorder(), req)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))

	entries := logs.All()
	require.Len(t, entries, 2)
	require.Equal(t, zapcore.InfoLevel, entries[0].Level)
	require.Equal(t, user.ID.String(), entries[0].ContextMap()["user_id"])
	require.Equal(t, zapcore.WarnLevel, entries[1].Level)
	require.NotContains(t, entries[1].ContextMap(), "user_id")
}
