// Package repository implements the ingestion store and query surface over PostgreSQL.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shorts-radar/shorts-discovery-go/internal/db"
	"github.com/shorts-radar/shorts-discovery-go/internal/models"
)

// ChannelRepository defines operations for managing channels.
type ChannelRepository interface {
	// UpsertChannels inserts or refreshes a batch of channels keyed by external ID.
	// Nil fields in a row never clobber previously stored values.
	UpsertChannels(ctx context.Context, channels []*models.Channel) (int, error)

	// GetChannelByID retrieves a single channel by external ID.
	GetChannelByID(ctx context.Context, channelID string) (*models.Channel, error)

	// RefreshedSince returns the set of channel IDs updated at or after the given time.
	// Novelty-mode discovery uses it to steer runs toward unseen channels.
	RefreshedSince(ctx context.Context, since time.Time) (map[string]struct{}, error)
}

type channelRepository struct {
	pool *pgxpool.Pool
}

// NewChannelRepository creates a new ChannelRepository.
func NewChannelRepository(pool *pgxpool.Pool) ChannelRepository {
	return &channelRepository{pool: pool}
}

const upsertChannelQuery = `
	INSERT INTO channels (channel_id, title, country, published_at, subscriber_count,
	                      video_count, view_count, discovery_run_id, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
	ON CONFLICT (channel_id) DO UPDATE
	SET title = COALESCE(EXCLUDED.title, channels.title),
	    country = COALESCE(EXCLUDED.country, channels.country),
	    published_at = COALESCE(EXCLUDED.published_at, channels.published_at),
	    subscriber_count = COALESCE(EXCLUDED.subscriber_count, channels.subscriber_count),
	    video_count = COALESCE(EXCLUDED.video_count, channels.video_count),
	    view_count = COALESCE(EXCLUDED.view_count, channels.view_count),
	    discovery_run_id = COALESCE(EXCLUDED.discovery_run_id, channels.discovery_run_id),
	    updated_at = NOW()
`

func (r *channelRepository) UpsertChannels(ctx context.Context, channels []*models.Channel) (int, error) {
	if len(channels) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, ch := range channels {
		batch.Queue(upsertChannelQuery,
			ch.ChannelID,
			ch.Title,
			ch.Country,
			ch.PublishedAt,
			ch.SubscriberCount,
			ch.VideoCount,
			ch.ViewCount,
			ch.DiscoveryRunID,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := range channels {
		if _, err := results.Exec(); err != nil {
			return i, db.WrapError(err, fmt.Sprintf("upsert channel %s", channels[i].ChannelID))
		}
	}

	return len(channels), nil
}

func (r *channelRepository) GetChannelByID(ctx context.Context, channelID string) (*models.Channel, error) {
	query := `
		SELECT channel_id, title, country, published_at, subscriber_count,
		       video_count, view_count, discovery_run_id, created_at, updated_at
		FROM channels
		WHERE channel_id = $1
	`

	channel := &models.Channel{}
	err := r.pool.QueryRow(ctx, query, channelID).Scan(
		&channel.ChannelID,
		&channel.Title,
		&channel.Country,
		&channel.PublishedAt,
		&channel.SubscriberCount,
		&channel.VideoCount,
		&channel.ViewCount,
		&channel.DiscoveryRunID,
		&channel.CreatedAt,
		&channel.UpdatedAt,
	)
	if err != nil {
		return nil, db.WrapError(err, "get channel by id")
	}

	return channel, nil
}

func (r *channelRepository) RefreshedSince(ctx context.Context, since time.Time) (map[string]struct{}, error) {
	query := `SELECT channel_id FROM channels WHERE updated_at >= $1`

	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		return nil, db.WrapError(err, "channels refreshed since")
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan channel id: %w", err)
		}
		ids[id] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate channel ids: %w", err)
	}

	return ids, nil
}
