package queue

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/shorts-radar/shorts-discovery-go/internal/service"
	"github.com/shorts-radar/shorts-discovery-go/internal/youtube"
	"github.com/shorts-radar/shorts-discovery-go/pkg/logger"
)

// TaskHandler processes scheduled pipeline tasks.
type TaskHandler struct {
	discovery     *service.DiscoveryService
	metricsEngine *service.MetricsEngine
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(discovery *service.DiscoveryService, metricsEngine *service.MetricsEngine) *TaskHandler {
	return &TaskHandler{
		discovery:     discovery,
		metricsEngine: metricsEngine,
	}
}

// Register wires the task types into the asynq mux.
func (h *TaskHandler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeDiscoveryChart, h.HandleChartDiscovery)
	mux.HandleFunc(TypeDiscoverySearch, h.HandleSearchDiscovery)
	mux.HandleFunc(TypeMetricsRecompute, h.HandleMetricsRecompute)
}

// HandleChartDiscovery runs a chart discovery pass.
func (h *TaskHandler) HandleChartDiscovery(ctx context.Context, _ *asynq.Task) error {
	run, stats, err := h.discovery.RunChartDiscovery(ctx)
	if err != nil {
		if youtube.IsQuotaExhausted(err) {
			// Retrying immediately would burn the same dead pool. Skip and let the
			// next scheduled run pick up when quotas reset.
			logger.Log.Warn("chart discovery skipped: quota exhausted", zap.Error(err))
			return fmt.Errorf("quota exhausted: %w: %w", err, asynq.SkipRetry)
		}
		return fmt.Errorf("chart discovery: %w", err)
	}

	logger.Log.Info("scheduled chart discovery finished",
		zap.String("runId", run.ID.String()),
		zap.Int("shortsUpserted", stats.ShortsUpserted),
	)
	return nil
}

// HandleSearchDiscovery runs a search discovery pass.
func (h *TaskHandler) HandleSearchDiscovery(ctx context.Context, task *asynq.Task) error {
	novelty := false
	if len(task.Payload()) > 0 {
		payload, err := UnmarshalDiscoverySearchPayload(task.Payload())
		if err != nil {
			return fmt.Errorf("invalid payload: %w: %w", err, asynq.SkipRetry)
		}
		novelty = payload.Novelty
	}

	run, stats, err := h.discovery.RunSearchDiscovery(ctx, novelty)
	if err != nil {
		if youtube.IsQuotaExhausted(err) {
			logger.Log.Warn("search discovery skipped: quota exhausted", zap.Error(err))
			return fmt.Errorf("quota exhausted: %w: %w", err, asynq.SkipRetry)
		}
		return fmt.Errorf("search discovery: %w", err)
	}

	logger.Log.Info("scheduled search discovery finished",
		zap.String("runId", run.ID.String()),
		zap.Bool("novelty", novelty),
		zap.Int("shortsUpserted", stats.ShortsUpserted),
	)
	return nil
}

// HandleMetricsRecompute rebuilds the derived channel metrics.
func (h *TaskHandler) HandleMetricsRecompute(ctx context.Context, _ *asynq.Task) error {
	channels, err := h.metricsEngine.Recompute(ctx)
	if err != nil {
		return fmt.Errorf("metrics recompute: %w", err)
	}

	logger.Log.Info("scheduled metrics recompute finished", zap.Int("channels", channels))
	return nil
}
