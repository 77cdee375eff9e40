package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/orgtasks/backend/internal/models"
	"github.com/orgtasks/backend/pkg/queue"
)

// JobQueue is the queue side the worker needs.
type JobQueue interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// AuditWriter persists audit entries. Writing the same entry twice must be harmless.
type AuditWriter interface {
	Insert(ctx context.Context, e *models.AuditLog) error
}

// AuditProcessor drains audit jobs into the database.
type AuditProcessor struct {
	store   AuditWriter
	queue   JobQueue
	logger  *zap.Logger
	backoff *backoff.ExponentialBackOff
}

// NewAuditProcessor creates an audit log processor. After a failure the loop
// pauses with exponential backoff capped at queue.RetryBackoff; a success resets it.
func NewAuditProcessor(store AuditWriter, q JobQueue, logger *zap.Logger) *AuditProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = queue.RetryBackoff
	return &AuditProcessor{store: store, queue: q, logger: logger, backoff: b}
}

// Process executes one audit job.
func (p *AuditProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeAuditLog {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.AuditPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	entry := &models.AuditLog{
		ID:             payload.ID,
		UserID:         payload.UserID,
		OrganizationID: payload.OrganizationID,
		Action:         payload.Action,
		Resource:       payload.Resource,
		ResourceID:     payload.ResourceID,
		IPAddress:      payload.IPAddress,
		Timestamp:      payload.Timestamp,
	}
	if err := p.store.Insert(ctx, entry); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	p.logger.Debug("audit entry written", zap.String("audit_id", entry.ID.String()), zap.String("action", entry.Action))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *AuditProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("audit worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
			continue
		}
		p.backoff.Reset()
	}
}

func (p *AuditProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff.NextBackOff())
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
