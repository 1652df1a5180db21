// Package handler contains the gin HTTP handlers for the trigger and query surface.
package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shorts-radar/shorts-discovery-go/internal/models"
	"github.com/shorts-radar/shorts-discovery-go/internal/service"
	"github.com/shorts-radar/shorts-discovery-go/internal/youtube"
	"github.com/shorts-radar/shorts-discovery-go/pkg/logger"
)

// RunEnqueuer hands trigger requests to the background queue instead of
// running them inline.
type RunEnqueuer interface {
	EnqueueChartDiscovery() error
	EnqueueSearchDiscovery(novelty bool) error
	EnqueueMetricsRecompute() error
}

// DiscoverHandler exposes the operator-triggered discovery and metrics endpoints.
type DiscoverHandler struct {
	discovery     *service.DiscoveryService
	metricsEngine *service.MetricsEngine
	enqueuer      RunEnqueuer
	shortSeconds  string
}

// NewDiscoverHandler creates a new DiscoverHandler. shortSeconds is the configured
// duration band, echoed in trigger responses for operator sanity checks.
func NewDiscoverHandler(discovery *service.DiscoveryService, metricsEngine *service.MetricsEngine, minSeconds, maxSeconds int) *DiscoverHandler {
	return &DiscoverHandler{
		discovery:     discovery,
		metricsEngine: metricsEngine,
		shortSeconds:  fmt.Sprintf("%d-%d", minSeconds, maxSeconds),
	}
}

// SetEnqueuer enables async triggering. Without it, async requests are refused.
func (h *DiscoverHandler) SetEnqueuer(enqueuer RunEnqueuer) {
	h.enqueuer = enqueuer
}

// TriggerDiscovery handles POST /api/v1/discover.
//
// Query parameters:
//   - strategy: "chart" (default) or "search"
//   - novelty: "1"/"true" to restrict search seeding to unseen channels
//   - async: "1"/"true" to enqueue the run on the worker queue instead of
//     running it inline
func (h *DiscoverHandler) TriggerDiscovery(c *gin.Context) {
	strategy := c.DefaultQuery("strategy", "chart")
	novelty := boolParam(c, "novelty")

	if boolParam(c, "async") {
		h.enqueueDiscovery(c, strategy, novelty)
		return
	}

	var (
		run   *models.DiscoveryRun
		stats *models.RunStats
		err   error
	)

	switch strategy {
	case "chart":
		run, stats, err = h.discovery.RunChartDiscovery(c.Request.Context())
	case "search":
		run, stats, err = h.discovery.RunSearchDiscovery(c.Request.Context(), novelty)
	default:
		c.JSON(http.StatusBadRequest, models.TriggerResponseDTO{
			OK:    false,
			Error: fmt.Sprintf("unknown strategy %q (want chart or search)", strategy),
		})
		return
	}

	if err != nil {
		logger.Log.Error("discovery run failed",
			zap.String("strategy", strategy),
			zap.Error(err),
		)

		resp := models.TriggerResponseDTO{
			OK:           false,
			Stats:        stats,
			ShortSeconds: h.shortSeconds,
			Error:        "discovery run failed",
		}
		if run != nil {
			resp.RunID = run.ID.String()
		}

		status := http.StatusInternalServerError
		if youtube.IsQuotaExhausted(err) {
			// Committed partial writes stay; the caller learns the pool ran dry.
			status = http.StatusTooManyRequests
			resp.Error = "api quota exhausted across all credentials"
		}

		c.JSON(status, resp)
		return
	}

	c.JSON(http.StatusOK, models.TriggerResponseDTO{
		OK:           true,
		RunID:        run.ID.String(),
		Stats:        stats,
		ShortSeconds: h.shortSeconds,
	})
}

func (h *DiscoverHandler) enqueueDiscovery(c *gin.Context, strategy string, novelty bool) {
	if h.enqueuer == nil {
		c.JSON(http.StatusServiceUnavailable, models.TriggerResponseDTO{
			OK:    false,
			Error: "background queue not configured",
		})
		return
	}

	var err error
	switch strategy {
	case "chart":
		err = h.enqueuer.EnqueueChartDiscovery()
	case "search":
		err = h.enqueuer.EnqueueSearchDiscovery(novelty)
	default:
		c.JSON(http.StatusBadRequest, models.TriggerResponseDTO{
			OK:    false,
			Error: fmt.Sprintf("unknown strategy %q (want chart or search)", strategy),
		})
		return
	}

	if err != nil {
		logger.Log.Error("failed to enqueue discovery run",
			zap.String("strategy", strategy),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, models.TriggerResponseDTO{
			OK:    false,
			Error: "failed to enqueue discovery run",
		})
		return
	}

	c.JSON(http.StatusAccepted, models.TriggerResponseDTO{
		OK:           true,
		Queued:       true,
		ShortSeconds: h.shortSeconds,
	})
}

// RecomputeMetrics handles POST /api/v1/metrics/recompute. Accepts the same
// async query parameter as TriggerDiscovery.
func (h *DiscoverHandler) RecomputeMetrics(c *gin.Context) {
	if boolParam(c, "async") {
		if h.enqueuer == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ok":    false,
				"error": "background queue not configured",
			})
			return
		}
		if err := h.enqueuer.EnqueueMetricsRecompute(); err != nil {
			logger.Log.Error("failed to enqueue metrics recompute", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{
				"ok":    false,
				"error": "failed to enqueue metrics recompute",
			})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"ok": true, "queued": true})
		return
	}

	channels, err := h.metricsEngine.Recompute(c.Request.Context())
	if err != nil {
		logger.Log.Error("metrics recompute failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"ok":    false,
			"error": "metrics recompute failed",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":       true,
		"channels": channels,
	})
}