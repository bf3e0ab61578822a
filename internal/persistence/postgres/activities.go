package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/k1nque/org-directory/internal/domain"
	"github.com/k1nque/org-directory/internal/events"
)

// ActivityRepository provides Postgres-backed taxonomy persistence.
type ActivityRepository struct {
	pool *pgxpool.Pool
}

// NewActivityRepository constructs an ActivityRepository.
func NewActivityRepository(pool *pgxpool.Pool) *ActivityRepository {
	return &ActivityRepository{pool: pool}
}

const activityColumns = `id, name, parent_id, level, created_at, updated_at`

func scanActivity(row pgx.Row) (*domain.Activity, error) {
	var a domain.Activity
	if err := row.Scan(&a.ID, &a.Name, &a.ParentID, &a.Level, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

// Get returns the activity or nil when the id does not exist.
func (r *ActivityRepository) Get(ctx context.Context, id int64) (*domain.Activity, error) {
	const query = `SELECT ` + activityColumns + ` FROM activities WHERE id=$1`

	activity, err := scanActivity(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storageErr("get activity", err)
	}
	return activity, nil
}

// ChildrenOf returns direct children ordered by id.
func (r *ActivityRepository) ChildrenOf(ctx context.Context, parentID int64) ([]domain.Activity, error) {
	const query = `SELECT ` + activityColumns + ` FROM activities WHERE parent_id=$1 ORDER BY id`

	rows, err := r.pool.Query(ctx, query, parentID)
	if err != nil {
		return nil, storageErr("list children", err)
	}
	defer rows.Close()
	return collectActivities(rows, "list children")
}

// ListAll returns every activity ordered by id, for tree assembly.
func (r *ActivityRepository) ListAll(ctx context.Context) ([]domain.Activity, error) {
	const query = `SELECT ` + activityColumns + ` FROM activities ORDER BY id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, storageErr("list activities", err)
	}
	defer rows.Close()
	return collectActivities(rows, "list activities")
}

// List returns a flat page ordered by (level, name, id); level 0 means
// all levels.
func (r *ActivityRepository) List(ctx context.Context, level int, page domain.PageRequest) ([]domain.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities`
	args := []interface{}{page.Limit, page.Offset}
	if level != 0 {
		query += ` WHERE level=$3`
		args = append(args, level)
	}
	query += ` ORDER BY level, name, id LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storageErr("list activities", err)
	}
	defer rows.Close()
	return collectActivities(rows, "list activities")
}

// Insert persists the node and records the activity.created outbox event
// in the same transaction. Duplicate names surface as a conflict.
func (r *ActivityRepository) Insert(ctx context.Context, activity domain.Activity) (*domain.Activity, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, storageErr("insert activity", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	const stmt = `INSERT INTO activities (name, parent_id, level, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$4) RETURNING id`

	if err := tx.QueryRow(ctx, stmt, activity.Name, activity.ParentID, activity.Level, now).Scan(&activity.ID); err != nil {
		return nil, mapInsertError("insert activity", err)
	}
	activity.CreatedAt = now
	activity.UpdatedAt = now

	if err := insertOutboxEvent(ctx, tx, "activity", activity.ID, events.TypeActivityCreated, events.TopicActivities, events.ActivityCreated{
		ActivityID: activity.ID,
		Name:       activity.Name,
		ParentID:   activity.ParentID,
		Level:      activity.Level,
		OccurredAt: now,
	}); err != nil {
		return nil, storageErr("insert activity outbox", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storageErr("insert activity", err)
	}
	return &activity, nil
}

func collectActivities(rows pgx.Rows, op string) ([]domain.Activity, error) {
	activities := make([]domain.Activity, 0)
	for rows.Next() {
		var a domain.Activity
		if err := rows.Scan(&a.ID, &a.Name, &a.ParentID, &a.Level, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, storageErr(op, err)
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(op, err)
	}
	return activities, nil
}
