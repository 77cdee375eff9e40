package audit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/orgtasks/backend/internal/access"
	"github.com/orgtasks/backend/internal/auth"
	"github.com/orgtasks/backend/internal/models"
	"github.com/orgtasks/backend/pkg/queue"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type recorder struct {
	payloads []queue.AuditPayload
	err      error
}

func (r *recorder) EnqueueAudit(_ context.Context, p queue.AuditPayload) error {
	if r.err != nil {
		return r.err
	}
	r.payloads = append(r.payloads, p)
	return nil
}

func withClaims(claims *auth.AccessClaims) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims != nil {
			auth.SetClaims(c, claims)
		}
	}
}

func TestRecordEnqueuesSuccessfulRequests(t *testing.T) {
	rec := &recorder{}
	claims := &auth.AccessClaims{UserID: uuid.New(), Role: models.RoleAdmin, OrganizationID: uuid.New()}
	created := uuid.NewString()

	r := gin.New()
	r.PUT("/tasks/:id", withClaims(claims), Record(rec, access.PermUpdateTask, "task", nil), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.POST("/tasks", withClaims(claims), Record(rec, access.PermCreateTask, "task", nil), func(c *gin.Context) {
		SetResourceID(c, created)
		c.Status(http.StatusCreated)
	})
	r.GET("/tasks", withClaims(claims), Record(rec, access.PermReadTask, "task", nil), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	taskID := uuid.NewString()
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPut, "/tasks/"+taskID, nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/tasks", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/tasks", nil))

	require.Len(t, rec.payloads, 3)
	require.Equal(t, "update_task", rec.payloads[0].Action)
	require.Equal(t, taskID, rec.payloads[0].ResourceID)
	require.Equal(t, claims.UserID, rec.payloads[0].UserID)
	require.Equal(t, claims.OrganizationID, rec.payloads[0].OrganizationID)
	require.Equal(t, "task", rec.payloads[0].Resource)
	require.False(t, rec.payloads[0].Timestamp.IsZero())
	require.Equal(t, created, rec.payloads[1].ResourceID)
	require.Equal(t, "N/A", rec.payloads[2].ResourceID)
}

func TestRecordSkipsFailuresAndAnonymous(t *testing.T) {
	rec := &recorder{}
	claims := &auth.AccessClaims{UserID: uuid.New(), Role: models.RoleAdmin, OrganizationID: uuid.New()}

	r := gin.New()
	r.DELETE("/denied/:id", withClaims(claims), Record(rec, access.PermDeleteTask, "task", nil), func(c *gin.Context) {
		c.Status(http.StatusForbidden)
	})
	r.DELETE("/anon/:id", withClaims(nil), Record(rec, access.PermDeleteTask, "task", nil), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/denied/1", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/anon/1", nil))
	require.Empty(t, rec.payloads)
}

func TestRecordEnqueueFailureKeepsResponse(t *testing.T) {
	rec := &recorder{err: errors.New("redis down")}
	claims := &auth.AccessClaims{UserID: uuid.New(), Role: models.RoleOwner, OrganizationID: uuid.New()}

	r := gin.New()
	r.GET("/tasks", withClaims(claims), Record(rec, access.PermReadTask, "task", nil), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tasks", nil))
	require.Equal(t, http.StatusOK, w.Code)
}

type fakeLister struct {
	gotOrgIDs   []uuid.UUID
	page, limit int
}

func (f *fakeLister) ListByOrganizations(_ context.Context, orgIDs []uuid.UUID, page, limit int) ([]models.AuditLog, int, error) {
	f.gotOrgIDs, f.page, f.limit = orgIDs, page, limit
	return []models.AuditLog{{ID: uuid.New(), Action: "read_task"}}, 120, nil
}

type fakeSnapshot []models.Organization

func (f fakeSnapshot) Snapshot(context.Context) ([]models.Organization, error) { return f, nil }

func TestListAuditLog(t *testing.T) {
	root, child := uuid.New(), uuid.New()
	orgs := fakeSnapshot{{ID: root}, {ID: child, ParentID: &root}}
	lister := &fakeLister{}
	h := NewHandler(lister, orgs, access.NewEngine(access.DefaultPermissionTable()), nil)

	r := gin.New()
	r.GET("/audit-log", withClaims(&auth.AccessClaims{UserID: uuid.New(), Role: models.RoleOwner, OrganizationID: root}), h.List)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/audit-log?page=2&limit=500", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []uuid.UUID{root, child}, lister.gotOrgIDs)
	require.Equal(t, 2, lister.page)
	require.Equal(t, 100, lister.limit)

	var resp struct {
		Data ListResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Logs, 1)
	require.Equal(t, 120, resp.Data.Pagination.Total)
	require.Equal(t, 2, resp.Data.Pagination.Pages)
}
