package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/shorts-radar/shorts-discovery-go/internal/db/repository"
	"github.com/shorts-radar/shorts-discovery-go/internal/models"
	"github.com/shorts-radar/shorts-discovery-go/pkg/logger"
)

// MetricsEngine recomputes the derived per-channel metrics over the recent window.
// Every invocation is a full recompute across all tracked channels; the stored table
// is replaced wholesale, which makes repeated runs idempotent and safe to trigger
// while ingestion is writing.
type MetricsEngine struct {
	videos     repository.VideoRepository
	metrics    repository.MetricsRepository
	recentDays int
	now        func() time.Time
}

// NewMetricsEngine creates an engine aggregating over the given trailing window in days.
func NewMetricsEngine(videos repository.VideoRepository, metrics repository.MetricsRepository, recentDays int) *MetricsEngine {
	return &MetricsEngine{
		videos:     videos,
		metrics:    metrics,
		recentDays: recentDays,
		now:        time.Now,
	}
}

// Recompute rebuilds channel metrics and returns the number of channels covered.
func (e *MetricsEngine) Recompute(ctx context.Context) (int, error) {
	now := e.now()
	since := now.Add(-time.Duration(e.recentDays) * 24 * time.Hour)

	aggregates, err := e.videos.RecentShortAggregates(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("aggregate recent shorts: %w", err)
	}

	rows := buildMetricsRows(aggregates, e.recentDays, now)

	if err := e.metrics.ReplaceAll(ctx, rows); err != nil {
		return 0, fmt.Errorf("replace channel metrics: %w", err)
	}

	logger.Log.Info("channel metrics recomputed",
		zap.Int("channels", len(rows)),
		zap.Int("recentDays", e.recentDays),
	)

	return len(rows), nil
}

// buildMetricsRows derives the metric values from raw aggregates. The average is
// defined only when the channel has in-window shorts; the views-per-subscriber ratio
// is defined only when the average is defined and the subscriber count is positive.
// Undefined values stay nil, never zero and never infinity.
func buildMetricsRows(aggregates []repository.ShortAggregate, recentDays int, computedAt time.Time) []*models.ChannelMetrics {
	rows := make([]*models.ChannelMetrics, 0, len(aggregates))

	for _, agg := range aggregates {
		row := &models.ChannelMetrics{
			ChannelID:        agg.ChannelID,
			RecentDays:       recentDays,
			RecentShortCount: agg.ShortCount,
			RecentTotalViews: agg.TotalViews,
			ComputedAt:       computedAt,
		}

		if agg.ShortCount > 0 {
			avg := float64(agg.TotalViews) / float64(agg.ShortCount)
			row.RecentAvgViews = &avg

			if agg.SubscriberCount != nil && *agg.SubscriberCount > 0 {
				ratio := avg / float64(*agg.SubscriberCount)
				row.RatioViewsPerSub = &ratio
			}
		}

		rows = append(rows, row)
	}

	return rows
}
