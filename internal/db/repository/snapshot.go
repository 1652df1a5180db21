package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shorts-radar/shorts-discovery-go/internal/db"
	"github.com/shorts-radar/shorts-discovery-go/internal/models"
)

// SnapshotRepository appends point-in-time captures of volatile counters. Snapshots
// are write-once: nothing here updates or deletes them (retention is an external
// concern).
type SnapshotRepository interface {
	InsertChannelSnapshots(ctx context.Context, snapshots []*models.ChannelSnapshot) (int, error)
	InsertVideoSnapshots(ctx context.Context, snapshots []*models.VideoSnapshot) (int, error)
}

type snapshotRepository struct {
	pool *pgxpool.Pool
}

// NewSnapshotRepository creates a new SnapshotRepository.
func NewSnapshotRepository(pool *pgxpool.Pool) SnapshotRepository {
	return &snapshotRepository{pool: pool}
}

func (r *snapshotRepository) InsertChannelSnapshots(ctx context.Context, snapshots []*models.ChannelSnapshot) (int, error) {
	if len(snapshots) == 0 {
		return 0, nil
	}

	rows := make([][]any, 0, len(snapshots))
	for _, s := range snapshots {
		rows = append(rows, []any{s.ChannelID, s.CapturedAt, s.SubscriberCount, s.VideoCount, s.ViewCount})
	}

	count, err := r.pool.CopyFrom(ctx,
		pgx.Identifier{"channel_snapshots"},
		[]string{"channel_id", "captured_at", "subscriber_count", "video_count", "view_count"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return 0, db.WrapError(err, "insert channel snapshots")
	}

	return int(count), nil
}

func (r *snapshotRepository) InsertVideoSnapshots(ctx context.Context, snapshots []*models.VideoSnapshot) (int, error) {
	if len(snapshots) == 0 {
		return 0, nil
	}

	rows := make([][]any, 0, len(snapshots))
	for _, s := range snapshots {
		rows = append(rows, []any{s.VideoID, s.CapturedAt, s.ViewCount, s.LikeCount, s.CommentCount})
	}

	count, err := r.pool.CopyFrom(ctx,
		pgx.Identifier{"video_snapshots"},
		[]string{"video_id", "captured_at", "view_count", "like_count", "comment_count"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return 0, db.WrapError(err, "insert video snapshots")
	}

	return int(count), nil
}
