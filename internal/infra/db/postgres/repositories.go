package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"stayhub/internal/domain/occupancy"
	"stayhub/internal/domain/property"
	"stayhub/internal/domain/shared/daterange"
)

type PropertyRepository struct {
	db querier
}

func (r PropertyRepository) ByID(ctx context.Context, id property.ID) (*property.Property, error) {
	const query = `SELECT id, name, rooms_spec::text, layout::text FROM properties WHERE id = $1`
	var (
		p                 property.Property
		rawID             int64
		roomsSpec, layout pgtype.Text
	)
	err := r.db.QueryRow(ctx, query, int64(id)).Scan(&rawID, &p.Name, &roomsSpec, &layout)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, property.ErrPropertyNotFound
		}
		return nil, fmt.Errorf("failed to load property %d: %w", id, err)
	}
	p.ID = property.ID(rawID)
	if roomsSpec.Valid {
		p.RoomsSpec = property.Document(roomsSpec.String)
	}
	if layout.Valid {
		p.Layout = property.Document(layout.String)
	}
	return &p, nil
}

type BookingRepository struct {
	db querier
}

func (r BookingRepository) FindActiveBookings(ctx context.Context, q occupancy.Query) ([]occupancy.Booking, error) {
	query, args := bookingQuery(q)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	out := make([]occupancy.Booking, 0)
	for rows.Next() {
		var (
			b          occupancy.Booking
			propertyID int64
			status     string
			roomCode   pgtype.Text
			amount     pgtype.Numeric
			checkIn    time.Time
			checkOut   time.Time
		)
		if err := rows.Scan(&b.ID, &propertyID, &checkIn, &checkOut, &status, &roomCode, &b.GuestName, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		b.PropertyID = property.ID(propertyID)
		b.Stay = daterange.DateRange{Start: checkIn.UTC(), End: checkOut.UTC()}
		b.Status = occupancy.BookingStatus(status)
		b.RoomCode = roomCode.String
		if b.TotalAmount, err = numericToFloat(amount); err != nil {
			return nil, fmt.Errorf("booking %d total_amount: %w", b.ID, err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during bookings iteration: %w", err)
	}
	return out, nil
}

func bookingQuery(q occupancy.Query) (string, []any) {
	statuses := make([]string, 0, len(occupancy.ActiveStatuses))
	for _, s := range occupancy.ActiveStatuses {
		statuses = append(statuses, string(s))
	}
	var sb strings.Builder
	sb.WriteString(`SELECT id, property_id, check_in, check_out, status, room_code, guest_name, total_amount
FROM bookings
WHERE property_id = $1 AND status = ANY($2) AND check_in < $3 AND check_out > $4`)
	args := []any{int64(q.PropertyID), statuses, q.Window.End, q.Window.Start}
	if q.RoomCode != "" {
		args = append(args, q.RoomCode)
		fmt.Fprintf(&sb, " AND room_code = $%d", len(args))
	}
	sb.WriteString(" ORDER BY check_in, id")
	return sb.String(), args
}

// numericToFloat reads a NUMERIC column, NULL staying nil.
func numericToFloat(n pgtype.Numeric) (*float64, error) {
	if !n.Valid {
		return nil, nil
	}
	f, err := n.Float64Value()
	if err != nil {
		return nil, err
	}
	v := f.Float64
	return &v, nil
}

type BlockRepository struct {
	db querier
}

const blockColumns = `id, property_id, start_date, end_date, room_code, source, beds_blocked`

func (r BlockRepository) FindBlocks(ctx context.Context, q occupancy.BlockQuery) ([]occupancy.Block, error) {
	query, args := blockQuery(q)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query blocks: %w", err)
	}
	defer rows.Close()

	out := make([]occupancy.Block, 0)
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during blocks iteration: %w", err)
	}
	return out, nil
}

func blockQuery(q occupancy.BlockQuery) (string, []any) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + blockColumns + `
FROM room_blocks
WHERE property_id = $1 AND start_date < $2 AND end_date > $3`)
	args := []any{int64(q.PropertyID), q.Window.End, q.Window.Start}
	if q.RoomCode != "" {
		args = append(args, q.RoomCode)
		fmt.Fprintf(&sb, " AND room_code = $%d", len(args))
	}
	if q.ExcludeID != 0 {
		args = append(args, q.ExcludeID)
		fmt.Fprintf(&sb, " AND id <> $%d", len(args))
	}
	sb.WriteString(" ORDER BY start_date, id")
	return sb.String(), args
}

func (r BlockRepository) ByID(ctx context.Context, id int64) (*occupancy.Block, error) {
	row := r.db.QueryRow(ctx, `SELECT `+blockColumns+` FROM room_blocks WHERE id = $1`, id)
	b, err := scanBlock(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, occupancy.ErrBlockNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r BlockRepository) Save(ctx context.Context, b *occupancy.Block) error {
	roomCode := pgtype.Text{String: b.RoomCode, Valid: b.RoomCode != ""}
	if b.ID == 0 {
		const insert = `INSERT INTO room_blocks (property_id, start_date, end_date, room_code, source, beds_blocked)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
		err := r.db.QueryRow(ctx, insert, int64(b.PropertyID), b.Period.Start, b.Period.End, roomCode, b.Source, b.BedsBlocked).Scan(&b.ID)
		if err != nil {
			return fmt.Errorf("failed to insert block: %w", err)
		}
		return nil
	}
	const update = `UPDATE room_blocks
SET property_id = $2, start_date = $3, end_date = $4, room_code = $5, source = $6, beds_blocked = $7
WHERE id = $1`
	tag, err := r.db.Exec(ctx, update, b.ID, int64(b.PropertyID), b.Period.Start, b.Period.End, roomCode, b.Source, b.BedsBlocked)
	if err != nil {
		return fmt.Errorf("failed to update block %d: %w", b.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return occupancy.ErrBlockNotFound
	}
	return nil
}

func (r BlockRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM room_blocks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete block %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return occupancy.ErrBlockNotFound
	}
	return nil
}

func scanBlock(row pgx.Row) (occupancy.Block, error) {
	var (
		b          occupancy.Block
		propertyID int64
		start, end time.Time
		roomCode   pgtype.Text
	)
	if err := row.Scan(&b.ID, &propertyID, &start, &end, &roomCode, &b.Source, &b.BedsBlocked); err != nil {
		return occupancy.Block{}, err
	}
	b.PropertyID = property.ID(propertyID)
	b.Period = daterange.DateRange{Start: start.UTC(), End: end.UTC()}
	b.RoomCode = roomCode.String
	return b, nil
}
