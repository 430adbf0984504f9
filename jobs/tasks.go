// Package jobs defines the background tasks that keep narrative insights warm.
package jobs

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskInsightsWarmup regenerates the cached narrative for a scope.
	TaskInsightsWarmup = "insights:warmup"
)

// InsightsWarmupPayload selects the scope to warm. An empty scope means the
// unfiltered dashboard.
type InsightsWarmupPayload struct {
	Scope string `json:"scope"`
}

// NewInsightsWarmupTask constructs an insights warmup task.
func NewInsightsWarmupTask(payload InsightsWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInsightsWarmup, data), nil
}

// Client submits jobs to the queue.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts)}
}

// EnqueueInsightsWarmup enqueues a warmup task.
func (c *Client) EnqueueInsightsWarmup(ctx context.Context, payload InsightsWarmupPayload) (*asynq.TaskInfo, error) {
	task, err := NewInsightsWarmupTask(payload)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault))
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}
