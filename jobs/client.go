package jobs

import (
	"context"

	"github.com/hibiken/asynq"
)

// Client submits reconcile jobs to the queue.
type Client struct {
	client     *asynq.Client
	maxRetries int
}

// NewClient constructs an Asynq client. maxRetries bounds the retries of each
// enqueued reconciliation; zero keeps the Asynq default.
func NewClient(redisOpts asynq.RedisClientOpt, maxRetries int) *Client {
	return &Client{client: asynq.NewClient(redisOpts), maxRetries: maxRetries}
}

// EnqueueReconcileTenant enqueues a reconciliation of one tenant.
func (c *Client) EnqueueReconcileTenant(ctx context.Context, tenantID int64) (*asynq.TaskInfo, error) {
	task, err := NewReconcileTenantTask(tenantID)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, c.options()...)
}

// ScheduleReconcile queues a tenant reconciliation that failed inline.
func (c *Client) ScheduleReconcile(ctx context.Context, tenantID int64) error {
	_, err := c.EnqueueReconcileTenant(ctx, tenantID)
	return err
}

// EnqueueReconcileAll enqueues a reconciliation of every tenant.
func (c *Client) EnqueueReconcileAll(ctx context.Context) (*asynq.TaskInfo, error) {
	return c.client.EnqueueContext(ctx, NewReconcileAllTask(), c.options()...)
}

func (c *Client) options() []asynq.Option {
	if c.maxRetries > 0 {
		return []asynq.Option{asynq.MaxRetry(c.maxRetries)}
	}
	return nil
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}
