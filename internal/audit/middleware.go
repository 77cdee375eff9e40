// Package audit records successful task operations and serves the audit log.
package audit

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/orgtasks/backend/internal/access"
	"github.com/orgtasks/backend/internal/auth"
	"github.com/orgtasks/backend/pkg/queue"
)

const (
	contextResourceID = "audit_resource_id"
	noResourceID      = "N/A"
)

// Enqueuer hands audit entries to the background writer.
type Enqueuer interface {
	EnqueueAudit(ctx context.Context, payload queue.AuditPayload) error
}

// SetResourceID names the resource a handler acted on when it is not in the
// route's :id parameter, such as a freshly created task.
func SetResourceID(c *gin.Context, id string) {
	c.Set(contextResourceID, id)
}

// Record returns a middleware that enqueues an audit entry after the handler
// finishes with a status below 400 for an authenticated caller. Enqueue
// failures are logged and never change the response.
func Record(enq Enqueuer, action access.Permission, resource string, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Status() >= 400 {
			return
		}
		claims, ok := auth.ClaimsFromContext(c)
		if !ok {
			return
		}
		payload := queue.AuditPayload{
			UserID:         claims.UserID,
			OrganizationID: claims.OrganizationID,
			Action:         string(action),
			Resource:       resource,
			ResourceID:     resourceID(c),
			IPAddress:      c.ClientIP(),
			Timestamp:      time.Now().UTC(),
		}
		ctx := context.WithoutCancel(c.Request.Context())
		if err := enq.EnqueueAudit(ctx, payload); err != nil {
			logger.Error("enqueue audit entry",
				zap.String("action", payload.Action),
				zap.String("user_id", payload.UserID.String()),
				zap.Error(err))
		}
	}
}

func resourceID(c *gin.Context) string {
	if id := c.GetString(contextResourceID); id != "" {
		return id
	}
	if id := c.Param("id"); id != "" {
		return id
	}
	return noResourceID
}
