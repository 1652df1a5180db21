package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shorts-radar/shorts-discovery-go/internal/db"
	"github.com/shorts-radar/shorts-discovery-go/internal/models"
)

// DiscoveryRunRepository records one row per discovery execution. Rows are immutable
// after creation.
type DiscoveryRunRepository interface {
	Create(ctx context.Context, run *models.DiscoveryRun) error
	LatestRunID(ctx context.Context) (uuid.UUID, error)
}

type discoveryRunRepository struct {
	pool *pgxpool.Pool
}

// NewDiscoveryRunRepository creates a new DiscoveryRunRepository.
func NewDiscoveryRunRepository(pool *pgxpool.Pool) DiscoveryRunRepository {
	return &discoveryRunRepository{pool: pool}
}

func (r *discoveryRunRepository) Create(ctx context.Context, run *models.DiscoveryRun) error {
	query := `
		INSERT INTO discovery_runs (id, strategy, created_at)
		VALUES ($1, $2, NOW())
		RETURNING created_at
	`

	err := r.pool.QueryRow(ctx, query, run.ID, run.Strategy).Scan(&run.CreatedAt)
	if err != nil {
		return db.WrapError(err, "create discovery run")
	}

	return nil
}

func (r *discoveryRunRepository) LatestRunID(ctx context.Context) (uuid.UUID, error) {
	query := `SELECT id FROM discovery_runs ORDER BY created_at DESC LIMIT 1`

	var id uuid.UUID
	if err := r.pool.QueryRow(ctx, query).Scan(&id); err != nil {
		return uuid.Nil, db.WrapError(err, "latest discovery run")
	}

	return id, nil
}
