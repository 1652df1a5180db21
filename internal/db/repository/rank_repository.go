package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shorts-radar/shorts-discovery-go/internal/db"
	"github.com/shorts-radar/shorts-discovery-go/internal/models"
)

// RankRepository executes composed ranking queries over the channel/metrics join.
type RankRepository interface {
	Query(ctx context.Context, spec *RankSpec, maxResults int) ([]*models.RankedChannel, error)
}

type rankRepository struct {
	pool *pgxpool.Pool
}

// NewRankRepository creates a new RankRepository.
func NewRankRepository(pool *pgxpool.Pool) RankRepository {
	return &rankRepository{pool: pool}
}

func (r *rankRepository) Query(ctx context.Context, spec *RankSpec, maxResults int) ([]*models.RankedChannel, error) {
	query, args, err := BuildRankQuery(spec, maxResults)
	if err != nil {
		return nil, fmt.Errorf("compose rank query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, db.WrapError(err, "rank channels")
	}
	defer rows.Close()

	var results []*models.RankedChannel
	for rows.Next() {
		row := &models.RankedChannel{}
		err := rows.Scan(
			&row.ChannelID,
			&row.Title,
			&row.Country,
			&row.PublishedAt,
			&row.SubscriberCount,
			&row.VideoCount,
			&row.ViewCount,
			&row.RecentShortCount,
			&row.RecentAvgViews,
			&row.RatioViewsPerSub,
		)
		if err != nil {
			return nil, fmt.Errorf("scan ranked channel: %w", err)
		}
		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ranked channels: %w", err)
	}

	return results, nil
}
