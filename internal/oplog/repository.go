package oplog

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/hotel-ops-backend/internal/txn"
)

type Repository interface {
	// Append writes one entry. It must be called inside the transaction of
	// the mutation it records so the entry commits with the mutation or not
	// at all.
	Append(ctx context.Context, e *Entry) error
	List(ctx context.Context, filter Filter) ([]*Entry, int, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func (r *pgxRepository) Append(ctx context.Context, e *Entry) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.operation_log").
		Columns("hotel_id", "booking_id", "room_id", "operation", "actor", "before_value", "after_value").
		Values(e.HotelID, nullable(e.BookingID), nullable(e.RoomID), e.Operation, e.Actor, e.Before, e.After).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build append oplog query failed: %w", err)
	}

	q := txn.QuerierFromContext(ctx, r.pool)
	return q.QueryRow(ctx, query, args...).Scan(&e.ID, &e.CreatedAt)
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Entry, int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select(
		"id", "hotel_id", "coalesce(booking_id::text, '')", "coalesce(room_id::text, '')",
		"operation", "actor", "before_value", "after_value", "created_at",
		"count(*) OVER() as total_count",
	).From("public.operation_log")

	if filter.HotelID != "" {
		query = query.Where(squirrel.Eq{"hotel_id": filter.HotelID})
	}
	if filter.BookingID != "" {
		query = query.Where(squirrel.Eq{"booking_id": filter.BookingID})
	}
	if filter.RoomID != "" {
		query = query.Where(squirrel.Eq{"room_id": filter.RoomID})
	}
	if filter.Operation != "" {
		query = query.Where(squirrel.Eq{"operation": filter.Operation})
	}

	query = query.OrderBy("created_at DESC, id DESC")

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 50
	}
	offset := (filter.Page - 1) * filter.PageSize
	query = query.Limit(uint64(filter.PageSize)).Offset(uint64(offset))

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list oplog query failed: %w", err)
	}

	q := txn.QuerierFromContext(ctx, r.pool)
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list oplog failed: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	var total int
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID, &e.HotelID, &e.BookingID, &e.RoomID,
			&e.Operation, &e.Actor, &e.Before, &e.After, &e.CreatedAt, &total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan oplog entry failed: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, total, nil
}

// nullable maps an empty id to NULL so optional foreign keys stay honest.
func nullable(id string) any {
	if id == "" {
		return nil
	}
	return id
}
