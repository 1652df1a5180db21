package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shorts-radar/shorts-discovery-go/internal/db"
	"github.com/shorts-radar/shorts-discovery-go/internal/models"
)

// MetricsRepository stores the derived per-channel metrics. The table is treated as a
// cache: every recompute replaces it wholesale inside one transaction, never patches
// individual rows.
type MetricsRepository interface {
	ReplaceAll(ctx context.Context, rows []*models.ChannelMetrics) error
}

type metricsRepository struct {
	pool *pgxpool.Pool
}

// NewMetricsRepository creates a new MetricsRepository.
func NewMetricsRepository(pool *pgxpool.Pool) MetricsRepository {
	return &metricsRepository{pool: pool}
}

const insertMetricsQuery = `
	INSERT INTO channel_metrics (channel_id, recent_days, recent_short_count,
	                             recent_total_views, recent_avg_views, ratio_views_per_sub, computed_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
`

func (r *metricsRepository) ReplaceAll(ctx context.Context, rows []*models.ChannelMetrics) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return db.WrapError(err, "begin metrics transaction")
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.Exec(ctx, `DELETE FROM channel_metrics`); err != nil {
		return db.WrapError(err, "clear channel metrics")
	}

	batch := &pgx.Batch{}
	for _, m := range rows {
		batch.Queue(insertMetricsQuery,
			m.ChannelID,
			m.RecentDays,
			m.RecentShortCount,
			m.RecentTotalViews,
			m.RecentAvgViews,
			m.RatioViewsPerSub,
			m.ComputedAt,
		)
	}

	results := tx.SendBatch(ctx, batch)
	for range rows {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return db.WrapError(err, "insert channel metrics")
		}
	}
	if err := results.Close(); err != nil {
		return db.WrapError(err, "close metrics batch")
	}

	if err := tx.Commit(ctx); err != nil {
		return db.WrapError(err, "commit channel metrics")
	}

	return nil
}
