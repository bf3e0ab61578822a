package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/k1nque/org-directory/internal/domain"
)

// BuildingRepository provides Postgres-backed building reads. Coordinates
// are stored as geography(Point,4326); reads extract latitude/longitude
// with ST_Y/ST_X.
type BuildingRepository struct {
	pool *pgxpool.Pool
}

// NewBuildingRepository constructs a BuildingRepository.
func NewBuildingRepository(pool *pgxpool.Pool) *BuildingRepository {
	return &BuildingRepository{pool: pool}
}

const buildingColumns = `id, address, ST_Y(location::geometry), ST_X(location::geometry), created_at, updated_at`

// Get returns the building or nil when the id does not exist.
func (r *BuildingRepository) Get(ctx context.Context, id int64) (*domain.Building, error) {
	const query = `SELECT ` + buildingColumns + ` FROM buildings WHERE id=$1`

	var b domain.Building
	err := r.pool.QueryRow(ctx, query, id).
		Scan(&b.ID, &b.Address, &b.Location.Lat, &b.Location.Lon, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storageErr("get building", err)
	}
	return &b, nil
}

// List returns a page of buildings ordered by id plus the total count.
func (r *BuildingRepository) List(ctx context.Context, page domain.PageRequest) ([]domain.Building, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM buildings`).Scan(&total); err != nil {
		return nil, 0, storageErr("count buildings", err)
	}

	const query = `SELECT ` + buildingColumns + ` FROM buildings ORDER BY id LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, page.Limit, page.Offset)
	if err != nil {
		return nil, 0, storageErr("list buildings", err)
	}
	defer rows.Close()

	buildings := make([]domain.Building, 0, page.Limit)
	for rows.Next() {
		var b domain.Building
		if err := rows.Scan(&b.ID, &b.Address, &b.Location.Lat, &b.Location.Lon, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, 0, storageErr("list buildings", err)
		}
		buildings = append(buildings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, storageErr("list buildings", err)
	}
	return buildings, total, nil
}
