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

// ShortAggregate is the per-channel raw aggregate the metrics engine recomputes from.
// SubscriberCount is nil when the channel never reported one.
type ShortAggregate struct {
	ChannelID       string
	SubscriberCount *int64
	ShortCount      int
	TotalViews      int64
}

// VideoRepository defines operations for managing videos and the time-windowed
// queries the eligibility and metrics engines run over them.
type VideoRepository interface {
	// UpsertVideos inserts or refreshes a batch of videos keyed by external ID.
	UpsertVideos(ctx context.Context, videos []*models.Video) (int, error)

	// GetVideoByID retrieves a single video by external ID.
	GetVideoByID(ctx context.Context, videoID string) (*models.Video, error)

	// ChannelIDsWithShortsSince returns distinct channel IDs with at least one short
	// published at or after the given time.
	ChannelIDsWithShortsSince(ctx context.Context, since time.Time) ([]string, error)

	// ChannelIDsWithLongformSince returns distinct channel IDs with at least one
	// non-short video published at or after the given time.
	ChannelIDsWithLongformSince(ctx context.Context, since time.Time) ([]string, error)

	// RecentShortAggregates returns, for every tracked channel, the count and total
	// view count of shorts published at or after the given time.
	RecentShortAggregates(ctx context.Context, since time.Time) ([]ShortAggregate, error)
}

type videoRepository struct {
	pool *pgxpool.Pool
}

// NewVideoRepository creates a new VideoRepository.
func NewVideoRepository(pool *pgxpool.Pool) VideoRepository {
	return &videoRepository{pool: pool}
}

const upsertVideoQuery = `
	INSERT INTO videos (video_id, channel_id, title, published_at, duration_seconds,
	                    is_short, view_count, like_count, comment_count, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
	ON CONFLICT (video_id) DO UPDATE
	SET title = COALESCE(EXCLUDED.title, videos.title),
	    published_at = COALESCE(EXCLUDED.published_at, videos.published_at),
	    duration_seconds = EXCLUDED.duration_seconds,
	    is_short = EXCLUDED.is_short,
	    view_count = COALESCE(EXCLUDED.view_count, videos.view_count),
	    like_count = COALESCE(EXCLUDED.like_count, videos.like_count),
	    comment_count = COALESCE(EXCLUDED.comment_count, videos.comment_count),
	    updated_at = NOW()
`

func (r *videoRepository) UpsertVideos(ctx context.Context, videos []*models.Video) (int, error) {
	if len(videos) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, v := range videos {
		batch.Queue(upsertVideoQuery,
			v.VideoID,
			v.ChannelID,
			v.Title,
			v.PublishedAt,
			v.DurationSeconds,
			v.IsShort,
			v.ViewCount,
			v.LikeCount,
			v.CommentCount,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := range videos {
		if _, err := results.Exec(); err != nil {
			return i, db.WrapError(err, fmt.Sprintf("upsert video %s", videos[i].VideoID))
		}
	}

	return len(videos), nil
}

func (r *videoRepository) GetVideoByID(ctx context.Context, videoID string) (*models.Video, error) {
	query := `
		SELECT video_id, channel_id, title, published_at, duration_seconds,
		       is_short, view_count, like_count, comment_count, created_at, updated_at
		FROM videos
		WHERE video_id = $1
	`

	video := &models.Video{}
	err := r.pool.QueryRow(ctx, query, videoID).Scan(
		&video.VideoID,
		&video.ChannelID,
		&video.Title,
		&video.PublishedAt,
		&video.DurationSeconds,
		&video.IsShort,
		&video.ViewCount,
		&video.LikeCount,
		&video.CommentCount,
		&video.CreatedAt,
		&video.UpdatedAt,
	)
	if err != nil {
		return nil, db.WrapError(err, "get video by id")
	}

	return video, nil
}

func (r *videoRepository) ChannelIDsWithShortsSince(ctx context.Context, since time.Time) ([]string, error) {
	query := `SELECT DISTINCT channel_id FROM videos WHERE is_short AND published_at >= $1`
	return r.channelIDs(ctx, query, since, "channels with shorts since")
}

func (r *videoRepository) ChannelIDsWithLongformSince(ctx context.Context, since time.Time) ([]string, error) {
	query := `SELECT DISTINCT channel_id FROM videos WHERE NOT is_short AND published_at >= $1`
	return r.channelIDs(ctx, query, since, "channels with longform since")
}

func (r *videoRepository) channelIDs(ctx context.Context, query string, since time.Time, operation string) ([]string, error) {
	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		return nil, db.WrapError(err, operation)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan channel id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate channel ids: %w", err)
	}

	return ids, nil
}

func (r *videoRepository) RecentShortAggregates(ctx context.Context, since time.Time) ([]ShortAggregate, error) {
	query := `
		SELECT c.channel_id, c.subscriber_count,
		       COUNT(v.video_id), COALESCE(SUM(v.view_count), 0)
		FROM channels c
		LEFT JOIN videos v
		  ON v.channel_id = c.channel_id AND v.is_short AND v.published_at >= $1
		GROUP BY c.channel_id, c.subscriber_count
	`

	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		return nil, db.WrapError(err, "recent short aggregates")
	}
	defer rows.Close()

	var aggregates []ShortAggregate
	for rows.Next() {
		var agg ShortAggregate
		if err := rows.Scan(&agg.ChannelID, &agg.SubscriberCount, &agg.ShortCount, &agg.TotalViews); err != nil {
			return nil, fmt.Errorf("scan short aggregate: %w", err)
		}
		aggregates = append(aggregates, agg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate short aggregates: %w", err)
	}

	return aggregates, nil
}
