//go:build integration

package queue

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"
)

func setupRedis(t *testing.T, ctx context.Context) *redis.Client {
	t.Helper()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestQueueAgainstRedis(t *testing.T) {
	ctx := context.Background()
	client := setupRedis(t, ctx)
	q := NewQueue(client, zaptest.NewLogger(t))

	empty, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.Nil(t, empty)

	payload := AuditPayload{UserID: uuid.New(), OrganizationID: uuid.New(), Action: "create_task",
		Resource: "task", ResourceID: "N/A", Timestamp: time.Now().UTC()}
	require.NoError(t, q.EnqueueAudit(ctx, payload))

	job, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)
	require.Equal(t, JobTypeAuditLog, job.Type)

	for attempt := 1; attempt < MaxRetries; attempt++ {
		require.NoError(t, q.Retry(ctx, job))
		require.Equal(t, int64(1), client.LLen(ctx, QueueAudit).Val())
		job, err = q.Dequeue(ctx)
		require.NoError(t, err)
		require.Equal(t, attempt, job.Attempt)
	}
	require.NoError(t, q.Retry(ctx, job))
	require.Zero(t, client.LLen(ctx, QueueAudit).Val())
	require.Equal(t, int64(1), client.LLen(ctx, QueueDLQ).Val())

	require.NoError(t, client.RPush(ctx, QueueAudit, "not json").Err())
	skipped, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.Nil(t, skipped)
}
