package queue

import (
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/shorts-radar/shorts-discovery-go/pkg/logger"
)

// Client wraps an asynq client for enqueueing pipeline tasks.
type Client struct {
	asynqClient *asynq.Client
}

// NewClient creates a new queue client.
func NewClient(redisAddr string) (*Client, error) {
	redisOpt, err := ParseRedisURL(redisAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	return &Client{
		asynqClient: asynq.NewClient(redisOpt),
	}, nil
}

// Close closes the client connection.
func (c *Client) Close() error {
	return c.asynqClient.Close()
}

// EnqueueChartDiscovery enqueues a chart discovery run.
func (c *Client) EnqueueChartDiscovery() error {
	task := asynq.NewTask(TypeDiscoveryChart, nil)

	info, err := c.asynqClient.Enqueue(task,
		asynq.MaxRetry(2),
		asynq.Timeout(20*time.Minute),
		asynq.Queue("discovery"),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	logger.Log.Info("Enqueued chart discovery", zap.String("taskId", info.ID))
	return nil
}

// EnqueueSearchDiscovery enqueues a search discovery run.
func (c *Client) EnqueueSearchDiscovery(novelty bool) error {
	payload := NewDiscoverySearchTask(novelty, map[string]interface{}{
		"source":      "manual",
		"enqueued_at": time.Now().Format(time.RFC3339),
	})

	payloadBytes, err := payload.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	task := asynq.NewTask(TypeDiscoverySearch, payloadBytes)

	info, err := c.asynqClient.Enqueue(task,
		asynq.MaxRetry(2),
		asynq.Timeout(20*time.Minute),
		asynq.Queue("discovery"),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	logger.Log.Info("Enqueued search discovery",
		zap.String("taskId", info.ID),
		zap.Bool("novelty", novelty),
	)
	return nil
}

// EnqueueMetricsRecompute enqueues a metrics recompute.
func (c *Client) EnqueueMetricsRecompute() error {
	task := asynq.NewTask(TypeMetricsRecompute, nil)

	info, err := c.asynqClient.Enqueue(task,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Queue("metrics"),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	logger.Log.Info("Enqueued metrics recompute", zap.String("taskId", info.ID))
	return nil
}
