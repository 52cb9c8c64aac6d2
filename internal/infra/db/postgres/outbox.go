package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	appoutbox "stayhub/internal/app/outbox"
	infraoutbox "stayhub/internal/infra/outbox"
)

// OutboxStore keeps outbox records in app_outbox, inside the command's
// transaction when one is in the context.
type OutboxStore struct {
	Pool *pgxpool.Pool
}

func (s OutboxStore) Add(ctx context.Context, record appoutbox.EventRecord) error {
	headers, err := json.Marshal(nonNilHeaders(record.Headers))
	if err != nil {
		return err
	}
	const insert = `INSERT INTO app_outbox (id, name, payload, occurred_at, aggregate, headers, state, next_attempt_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, now())`
	_, err = querierFrom(ctx, s.Pool).Exec(ctx, insert,
		record.ID, record.Name, record.Payload, record.OccurredAt, record.Aggregate, headers, infraoutbox.StateNew)
	if err != nil {
		return fmt.Errorf("failed to add outbox record: %w", err)
	}
	return nil
}

func (s OutboxStore) Flush(context.Context) error {
	return nil
}

// Claim takes the oldest due record, skipping rows another worker holds.
func (s OutboxStore) Claim(ctx context.Context, workerID string) (*infraoutbox.EventDocument, error) {
	const claim = `UPDATE app_outbox SET state = $1, claimed_by = $2, claimed_at = now()
WHERE id = (
    SELECT id FROM app_outbox
    WHERE state IN ($3, $4) AND next_attempt_at <= now()
    ORDER BY next_attempt_at
    LIMIT 1
    FOR UPDATE SKIP LOCKED
)
RETURNING id, name, payload, occurred_at, aggregate, headers, state, attempts, next_attempt_at, claimed_by`
	var (
		doc     infraoutbox.EventDocument
		headers []byte
	)
	err := s.Pool.QueryRow(ctx, claim, infraoutbox.StateClaimed, workerID, infraoutbox.StateNew, infraoutbox.StateFailed).Scan(
		&doc.ID, &doc.Name, &doc.Payload, &doc.OccurredAt, &doc.Aggregate, &headers,
		&doc.State, &doc.Attempts, &doc.NextAttempt, &doc.ClaimedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to claim outbox record: %w", err)
	}
	if len(headers) > 0 {
		if err := json.Unmarshal(headers, &doc.Headers); err != nil {
			return nil, fmt.Errorf("outbox record %s headers: %w", doc.ID, err)
		}
	}
	return &doc, nil
}

func (s OutboxStore) MarkSent(ctx context.Context, id string) error {
	_, err := s.Pool.Exec(ctx, `UPDATE app_outbox SET state = $2, sent_at = now() WHERE id = $1`, id, infraoutbox.StateSent)
	return err
}

func (s OutboxStore) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	const update = `UPDATE app_outbox
SET state = $2, next_attempt_at = $3, last_error = $4, attempts = attempts + 1
WHERE id = $1`
	_, err := s.Pool.Exec(ctx, update, id, infraoutbox.StateFailed, next, errMsg)
	return err
}

func nonNilHeaders(h map[string]string) map[string]string {
	if h == nil {
		return map[string]string{}
	}
	return h
}

var (
	_ appoutbox.Outbox  = OutboxStore{}
	_ infraoutbox.Store = OutboxStore{}
)
