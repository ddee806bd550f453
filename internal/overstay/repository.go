package overstay

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/hotel-ops-backend/internal/txn"
)

type Repository interface {
	// CreateIfAbsent inserts a new OPEN incident unless one already exists
	// for the same (booking, expected checkout date). Returns true when a
	// row was created. This is what makes detection idempotent per episode.
	CreateIfAbsent(ctx context.Context, i *Incident) (bool, error)

	GetByID(ctx context.Context, id string) (*Incident, error)
	List(ctx context.Context, filter Filter) ([]*Incident, int, error)

	// LockByID locks the incident row FOR UPDATE. Must run in a transaction.
	LockByID(ctx context.Context, id string) (*Incident, error)

	// LockActionableByBooking locks the booking's OPEN or ACKED incidents.
	LockActionableByBooking(ctx context.Context, bookingID string) ([]*Incident, error)

	Update(ctx context.Context, i *Incident) error
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

const incidentColumns = `id, hotel_id, booking_id, room_id, expected_checkout_date, detected_at,
status, acknowledged_at, coalesce(acknowledged_by::text, ''), resolved_at, coalesce(resolved_by::text, '')`

func (r *pgxRepository) CreateIfAbsent(ctx context.Context, i *Incident) (bool, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.overstay_incidents").
		Columns("hotel_id", "booking_id", "room_id", "expected_checkout_date", "status").
		Values(i.HotelID, i.BookingID, i.RoomID, i.ExpectedCheckoutDate, StatusOpen).
		Suffix("ON CONFLICT (booking_id, expected_checkout_date) DO NOTHING RETURNING id, detected_at").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build create incident query failed: %w", err)
	}

	q := txn.QuerierFromContext(ctx, r.pool)
	err = q.QueryRow(ctx, query, args...).Scan(&i.ID, &i.DetectedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// Conflict path: this episode was already detected.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create incident failed: %w", err)
	}
	i.Status = StatusOpen
	return true, nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Incident, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(incidentColumns).
		From("public.overstay_incidents").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get incident query failed: %w", err)
	}

	q := txn.QuerierFromContext(ctx, r.pool)
	i, err := scanIncident(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get incident failed: %w", err)
	}
	return i, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Incident, int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select(incidentColumns + ", count(*) OVER() as total_count").
		From("public.overstay_incidents")

	if filter.HotelID != "" {
		query = query.Where(squirrel.Eq{"hotel_id": filter.HotelID})
	}
	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"status": filter.Status})
	}

	query = query.OrderBy("detected_at DESC")

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize
	query = query.Limit(uint64(filter.PageSize)).Offset(uint64(offset))

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list incidents query failed: %w", err)
	}

	q := txn.QuerierFromContext(ctx, r.pool)
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list incidents failed: %w", err)
	}
	defer rows.Close()

	var incidents []*Incident
	var total int
	for rows.Next() {
		var i Incident
		if err := rows.Scan(
			&i.ID, &i.HotelID, &i.BookingID, &i.RoomID, &i.ExpectedCheckoutDate, &i.DetectedAt,
			&i.Status, &i.AcknowledgedAt, &i.AcknowledgedBy, &i.ResolvedAt, &i.ResolvedBy, &total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan incident failed: %w", err)
		}
		incidents = append(incidents, &i)
	}
	return incidents, total, nil
}

func (r *pgxRepository) LockByID(ctx context.Context, id string) (*Incident, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(incidentColumns).
		From("public.overstay_incidents").
		Where(squirrel.Eq{"id": id}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build lock incident query failed: %w", err)
	}

	q := txn.QuerierFromContext(ctx, r.pool)
	i, err := scanIncident(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, txn.MapError(fmt.Errorf("lock incident failed: %w", err))
	}
	return i, nil
}

func (r *pgxRepository) LockActionableByBooking(ctx context.Context, bookingID string) ([]*Incident, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(incidentColumns).
		From("public.overstay_incidents").
		Where(squirrel.Eq{"booking_id": bookingID}).
		Where(squirrel.Eq{"status": []string{string(StatusOpen), string(StatusAcked)}}).
		OrderBy("id ASC").
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build lock incidents query failed: %w", err)
	}

	q := txn.QuerierFromContext(ctx, r.pool)
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, txn.MapError(fmt.Errorf("lock incidents by booking failed: %w", err))
	}
	defer rows.Close()

	var incidents []*Incident
	for rows.Next() {
		var i Incident
		if err := rows.Scan(
			&i.ID, &i.HotelID, &i.BookingID, &i.RoomID, &i.ExpectedCheckoutDate, &i.DetectedAt,
			&i.Status, &i.AcknowledgedAt, &i.AcknowledgedBy, &i.ResolvedAt, &i.ResolvedBy,
		); err != nil {
			return nil, fmt.Errorf("scan incident failed: %w", err)
		}
		incidents = append(incidents, &i)
	}
	return incidents, rows.Err()
}

func (r *pgxRepository) Update(ctx context.Context, i *Incident) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.overstay_incidents").
		Set("status", i.Status).
		Set("acknowledged_at", i.AcknowledgedAt).
		Set("acknowledged_by", nullable(i.AcknowledgedBy)).
		Set("resolved_at", i.ResolvedAt).
		Set("resolved_by", nullable(i.ResolvedBy)).
		Where(squirrel.Eq{"id": i.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update incident query failed: %w", err)
	}

	q := txn.QuerierFromContext(ctx, r.pool)
	ct, err := q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update incident failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanIncident(row pgx.Row) (*Incident, error) {
	var i Incident
	err := row.Scan(
		&i.ID, &i.HotelID, &i.BookingID, &i.RoomID, &i.ExpectedCheckoutDate, &i.DetectedAt,
		&i.Status, &i.AcknowledgedAt, &i.AcknowledgedBy, &i.ResolvedAt, &i.ResolvedBy,
	)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func nullable(id string) any {
	if id == "" {
		return nil
	}
	return id
}
