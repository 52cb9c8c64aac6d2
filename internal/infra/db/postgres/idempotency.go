package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"stayhub/internal/app/middleware"
)

// IdempotencyStore records command outcomes outside any transaction, so a
// rolled back failure is still replayed.
type IdempotencyStore struct {
	Pool *pgxpool.Pool
}

func (s IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	rec := middleware.IdempotencyRecord{Key: key}
	err := s.Pool.QueryRow(ctx, `SELECT payload, error, occurred_at FROM idempotency_keys WHERE key = $1`, key).
		Scan(&rec.Payload, &rec.Error, &rec.OccurredAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return middleware.IdempotencyRecord{}, false, nil
		}
		return middleware.IdempotencyRecord{}, false, err
	}
	return rec, true, nil
}

func (s IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	const upsert = `INSERT INTO idempotency_keys (key, payload, error, occurred_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (key) DO UPDATE SET payload = EXCLUDED.payload, error = EXCLUDED.error, occurred_at = EXCLUDED.occurred_at`
	_, err := s.Pool.Exec(ctx, upsert, rec.Key, rec.Payload, rec.Error, rec.OccurredAt)
	return err
}

var _ middleware.IdempotencyStore = IdempotencyStore{}
