package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/hotel-ops-backend/internal/txn"
)

type Repository interface {
	// Provision creates the unoccupied entry for a newly created room.
	Provision(ctx context.Context, roomID, hotelID string) error

	GetByRoom(ctx context.Context, roomID string) (*Entry, error)
	ListByHotel(ctx context.Context, hotelID string) ([]*Entry, error)

	// RoomOccupied reports whether the room currently holds a booking.
	RoomOccupied(ctx context.Context, roomID string) (bool, error)

	// LockRooms locks the ledger entries for the given rooms with
	// SELECT ... FOR UPDATE in ascending room id order and returns them.
	// Must run inside a transaction; the bounded lock wait applies.
	LockRooms(ctx context.Context, roomIDs []string) ([]*Entry, error)

	// FindByBooking returns the entry currently holding the booking, or
	// ErrEntryNotFound when the booking occupies no room. An error of kind
	// invariant is returned if more than one entry claims the booking.
	FindByBooking(ctx context.Context, bookingID string) (*Entry, error)

	SetOccupant(ctx context.Context, roomID, bookingID string, since, expectedCheckout time.Time, staffID string) error
	UpdateExpectedCheckout(ctx context.Context, roomID string, expectedCheckout time.Time) error
	ClearOccupant(ctx context.Context, roomID string) error
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

const entryColumns = "room_id, hotel_id, coalesce(booking_id::text, ''), occupied_since, expected_checkout, coalesce(assigned_by::text, ''), updated_at"

func (r *pgxRepository) Provision(ctx context.Context, roomID, hotelID string) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.room_ledger").
		Columns("room_id", "hotel_id").
		Values(roomID, hotelID).
		ToSql()
	if err != nil {
		return fmt.Errorf("build provision ledger query failed: %w", err)
	}

	q := txn.QuerierFromContext(ctx, r.pool)
	if _, err := q.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("provision ledger entry failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByRoom(ctx context.Context, roomID string) (*Entry, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(entryColumns).
		From("public.room_ledger").
		Where(squirrel.Eq{"room_id": roomID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get ledger query failed: %w", err)
	}

	q := txn.QuerierFromContext(ctx, r.pool)
	e, err := scanEntry(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("get ledger entry failed: %w", err)
	}
	return e, nil
}

func (r *pgxRepository) ListByHotel(ctx context.Context, hotelID string) ([]*Entry, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(entryColumns).
		From("public.room_ledger").
		Where(squirrel.Eq{"hotel_id": hotelID}).
		OrderBy("room_id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list ledger query failed: %w", err)
	}

	q := txn.QuerierFromContext(ctx, r.pool)
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries failed: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry failed: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (r *pgxRepository) RoomOccupied(ctx context.Context, roomID string) (bool, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select("booking_id IS NOT NULL").
		From("public.room_ledger").
		Where(squirrel.Eq{"room_id": roomID}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build room occupied query failed: %w", err)
	}

	q := txn.QuerierFromContext(ctx, r.pool)
	var occupied bool
	if err := q.QueryRow(ctx, query, args...).Scan(&occupied); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrEntryNotFound
		}
		return false, fmt.Errorf("room occupied check failed: %w", err)
	}
	return occupied, nil
}

func (r *pgxRepository) LockRooms(ctx context.Context, roomIDs []string) ([]*Entry, error) {
	ordered := txn.OrderedIDs(roomIDs)

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(entryColumns).
		From("public.room_ledger").
		Where(squirrel.Eq{"room_id": ordered}).
		OrderBy("room_id ASC").
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build lock ledger query failed: %w", err)
	}

	q := txn.QuerierFromContext(ctx, r.pool)
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, txn.MapError(fmt.Errorf("lock ledger entries failed: %w", err))
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan locked ledger entry failed: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, txn.MapError(fmt.Errorf("lock ledger entries failed: %w", err))
	}
	if len(entries) != len(ordered) {
		return nil, ErrEntryNotFound
	}
	return entries, nil
}

func (r *pgxRepository) FindByBooking(ctx context.Context, bookingID string) (*Entry, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(entryColumns).
		From("public.room_ledger").
		Where(squirrel.Eq{"booking_id": bookingID}).
		OrderBy("room_id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find by booking query failed: %w", err)
	}

	q := txn.QuerierFromContext(ctx, r.pool)
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find ledger entry by booking failed: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry failed: %w", err)
		}
		entries = append(entries, e)
	}
	switch len(entries) {
	case 0:
		return nil, ErrEntryNotFound
	case 1:
		return entries[0], nil
	default:
		// Never expected: requires manual reconciliation, never auto-healed.
		return nil, newDoubleOccupancyViolation(bookingID, entries)
	}
}

func (r *pgxRepository) SetOccupant(ctx context.Context, roomID, bookingID string, since, expectedCheckout time.Time, staffID string) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.room_ledger").
		Set("booking_id", bookingID).
		Set("occupied_since", since).
		Set("expected_checkout", expectedCheckout).
		Set("assigned_by", staffID).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"room_id": roomID}).
		// Guard at the store level too: overwriting an active reference
		// would silently evict the holder.
		Where(squirrel.Eq{"booking_id": nil}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set occupant query failed: %w", err)
	}

	q := txn.QuerierFromContext(ctx, r.pool)
	ct, err := q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("set occupant failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (r *pgxRepository) UpdateExpectedCheckout(ctx context.Context, roomID string, expectedCheckout time.Time) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.room_ledger").
		Set("expected_checkout", expectedCheckout).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"room_id": roomID}).
		Where("booking_id IS NOT NULL").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update expected checkout query failed: %w", err)
	}

	q := txn.QuerierFromContext(ctx, r.pool)
	ct, err := q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update expected checkout failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (r *pgxRepository) ClearOccupant(ctx context.Context, roomID string) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.room_ledger").
		Set("booking_id", nil).
		Set("occupied_since", nil).
		Set("expected_checkout", nil).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"room_id": roomID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build clear occupant query failed: %w", err)
	}

	q := txn.QuerierFromContext(ctx, r.pool)
	ct, err := q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("clear occupant failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	err := row.Scan(
		&e.RoomID, &e.HotelID, &e.BookingID, &e.OccupiedSince,
		&e.ExpectedCheckout, &e.AssignedBy, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
