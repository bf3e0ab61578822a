// Package postgres implements the domain repositories on top of
// PostgreSQL with PostGIS. Spatial predicates run on the geography type,
// so radius distances follow the spheroidal model.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/k1nque/org-directory/internal/domain"
)

const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
)

func storageErr(op string, err error) error {
	return &domain.StorageError{Op: op, Err: err}
}

// mapInsertError translates constraint failures into domain errors. The
// level CHECK mirrors the insert-time depth validation, so tripping it
// means a concurrent re-parenting raced the check; it is still reported
// as a validation failure.
func mapInsertError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", domain.ErrConflict, pgErr.ConstraintName)
		case pgCheckViolation:
			return domain.Validation("constraint %s violated", pgErr.ConstraintName)
		}
	}
	return storageErr(op, err)
}

// insertOutboxEvent records a domain event inside the caller's
// transaction so delivery shares the insert's fate.
func insertOutboxEvent(ctx context.Context, tx pgx.Tx, aggregateType string, aggregateID int64, eventType, topic string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, partition_key, payload)
        VALUES ($1,$2,$3,$4,$5,$6)`

	id := strconv.FormatInt(aggregateID, 10)
	_, err = tx.Exec(ctx, stmt, aggregateType, id, eventType, topic, id, body)
	return err
}
