package booking

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
	Create(ctx context.Context, b *Booking) error
	GetByID(ctx context.Context, id string) (*Booking, error)
	List(ctx context.Context, filter Filter) ([]*Booking, int, error)

	// Update persists the mutable lifecycle fields. Callers hold the row
	// lock; Update never widens the write set beyond the given booking.
	Update(ctx context.Context, b *Booking) error

	// LockByIDs locks booking rows with SELECT ... FOR UPDATE in ascending
	// id order (the global lock order) and returns them keyed by id.
	LockByIDs(ctx context.Context, ids []string) (map[string]*Booking, error)

	// OverlapIDs returns ids of active bookings (pending approval,
	// confirmed or in house) whose date range overlaps [start, end) on the
	// given room, excluding excludeID. Used to build the lock set for
	// assignment and move.
	OverlapIDs(ctx context.Context, roomID string, start, end time.Time, excludeID string) ([]string, error)

	// Sweep candidate selectors. All three lock with FOR UPDATE SKIP LOCKED
	// so a sweep never waits on an interactive operation; a skipped row is
	// picked up on the next cycle. Must run inside a transaction.
	LockExpiryCandidates(ctx context.Context, hotelID string, now time.Time, limit int) ([]*Booking, error)
	LockPaymentTimeoutCandidates(ctx context.Context, hotelID string, now time.Time, limit int) ([]*Booking, error)
	LockNoShowCandidates(ctx context.Context, hotelID string, checkInOnOrBefore time.Time, limit int) ([]*Booking, error)
	LockOverstayCandidates(ctx context.Context, hotelID string, checkOutOnOrBefore time.Time, limit int) ([]*Booking, error)

	FindByPaymentRef(ctx context.Context, ref string) (*Booking, error)

	CreateExtension(ctx context.Context, e *Extension) error
	ListExtensions(ctx context.Context, bookingID string) ([]*Extension, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

// activeStatuses are the statuses that reserve a room for a date range.
var activeStatuses = []string{
	string(StatusPendingApproval), string(StatusConfirmed), string(StatusInHouse),
}

const bookingColumns = `id, hotel_id, guest_name, room_id, check_in, check_out, status,
paid_at, approval_deadline_at, expired_at, checked_in_at, checked_out_at, decision_at, refunded_at,
coalesce(payment_ref, ''), amount_cents, currency, created_at, updated_at`

func (r *pgxRepository) Create(ctx context.Context, b *Booking) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.bookings").
		Columns("hotel_id", "guest_name", "room_id", "check_in", "check_out", "status", "amount_cents", "currency").
		Values(b.HotelID, b.GuestName, b.RoomID, b.CheckIn, b.CheckOut, b.Status, b.AmountCents, b.Currency).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create booking query failed: %w", err)
	}

	q := txn.QuerierFromContext(ctx, r.pool)
	return q.QueryRow(ctx, query, args...).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Booking, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(bookingColumns).
		From("public.bookings").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get booking query failed: %w", err)
	}

	q := txn.QuerierFromContext(ctx, r.pool)
	b, err := scanBooking(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get booking failed: %w", err)
	}
	return b, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Booking, int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select(bookingColumns + ", count(*) OVER() as total_count").
		From("public.bookings")

	if filter.HotelID != "" {
		query = query.Where(squirrel.Eq{"hotel_id": filter.HotelID})
	}
	if filter.RoomID != "" {
		query = query.Where(squirrel.Eq{"room_id": filter.RoomID})
	}
	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"status": filter.Status})
	}
	// Date range filtering (intersection logic)
	if filter.From != nil {
		query = query.Where(squirrel.GtOrEq{"check_out": filter.From})
	}
	if filter.To != nil {
		query = query.Where(squirrel.LtOrEq{"check_in": filter.To})
	}

	orderBy := "check_in"
	if filter.SortBy != "" {
		orderBy = filter.SortBy
	}
	orderDir := "DESC"
	if filter.SortOrder != "" {
		orderDir = filter.SortOrder
	}
	query = query.OrderBy(orderBy + " " + orderDir)

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
		return nil, 0, fmt.Errorf("build list bookings query failed: %w", err)
	}

	q := txn.QuerierFromContext(ctx, r.pool)
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings failed: %w", err)
	}
	defer rows.Close()

	var bookings []*Booking
	var total int
	for rows.Next() {
		b, err := scanBookingWithTotal(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan booking failed: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, total, nil
}

func (r *pgxRepository) Update(ctx context.Context, b *Booking) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.bookings").
		Set("room_id", b.RoomID).
		Set("check_out", b.CheckOut).
		Set("status", b.Status).
		Set("paid_at", b.PaidAt).
		Set("approval_deadline_at", b.ApprovalDeadlineAt).
		Set("expired_at", b.ExpiredAt).
		Set("checked_in_at", b.CheckedInAt).
		Set("checked_out_at", b.CheckedOutAt).
		Set("decision_at", b.DecisionAt).
		Set("refunded_at", b.RefundedAt).
		Set("payment_ref", b.PaymentRef).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": b.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update booking query failed: %w", err)
	}

	q := txn.QuerierFromContext(ctx, r.pool)
	ct, err := q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update booking failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) LockByIDs(ctx context.Context, ids []string) (map[string]*Booking, error) {
	ordered := txn.OrderedIDs(ids)

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(bookingColumns).
		From("public.bookings").
		Where(squirrel.Eq{"id": ordered}).
		OrderBy("id ASC").
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build lock bookings query failed: %w", err)
	}

	q := txn.QuerierFromContext(ctx, r.pool)
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, txn.MapError(fmt.Errorf("lock bookings failed: %w", err))
	}
	defer rows.Close()

	locked := make(map[string]*Booking, len(ordered))
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan locked booking failed: %w", err)
		}
		locked[b.ID] = b
	}
	if err := rows.Err(); err != nil {
		return nil, txn.MapError(fmt.Errorf("lock bookings failed: %w", err))
	}
	return locked, nil
}

func (r *pgxRepository) OverlapIDs(ctx context.Context, roomID string, start, end time.Time, excludeID string) ([]string, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select("id").
		From("public.bookings").
		Where(squirrel.Eq{"room_id": roomID}).
		Where(squirrel.Eq{"status": activeStatuses}).
		Where(squirrel.Lt{"check_in": end}).
		Where(squirrel.Gt{"check_out": start})

	if excludeID != "" {
		query = query.Where(squirrel.NotEq{"id": excludeID})
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build overlap query failed: %w", err)
	}

	q := txn.QuerierFromContext(ctx, r.pool)
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query overlapping bookings failed: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan overlap id failed: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *pgxRepository) LockExpiryCandidates(ctx context.Context, hotelID string, now time.Time, limit int) ([]*Booking, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(bookingColumns).
		From("public.bookings").
		Where(squirrel.Eq{"hotel_id": hotelID}).
		Where(squirrel.Eq{"status": StatusPendingApproval}).
		Where(squirrel.Lt{"approval_deadline_at": now}).
		Where("expired_at IS NULL").
		OrderBy("id ASC").
		Limit(uint64(limit)).
		Suffix("FOR UPDATE SKIP LOCKED").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build expiry candidates query failed: %w", err)
	}
	return r.queryBookings(ctx, query, args)
}

func (r *pgxRepository) LockPaymentTimeoutCandidates(ctx context.Context, hotelID string, now time.Time, limit int) ([]*Booking, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(bookingColumns).
		From("public.bookings").
		Where(squirrel.Eq{"hotel_id": hotelID}).
		Where(squirrel.Eq{"status": StatusPendingPayment}).
		Where("paid_at IS NULL").
		Where(squirrel.Lt{"check_in": now}).
		OrderBy("id ASC").
		Limit(uint64(limit)).
		Suffix("FOR UPDATE SKIP LOCKED").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build payment timeout candidates query failed: %w", err)
	}
	return r.queryBookings(ctx, query, args)
}

func (r *pgxRepository) LockNoShowCandidates(ctx context.Context, hotelID string, checkInOnOrBefore time.Time, limit int) ([]*Booking, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(bookingColumns).
		From("public.bookings").
		Where(squirrel.Eq{"hotel_id": hotelID}).
		Where(squirrel.Eq{"status": StatusConfirmed}).
		Where("checked_in_at IS NULL").
		Where(squirrel.LtOrEq{"check_in": checkInOnOrBefore}).
		OrderBy("id ASC").
		Limit(uint64(limit)).
		Suffix("FOR UPDATE SKIP LOCKED").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build no-show candidates query failed: %w", err)
	}
	return r.queryBookings(ctx, query, args)
}

func (r *pgxRepository) LockOverstayCandidates(ctx context.Context, hotelID string, checkOutOnOrBefore time.Time, limit int) ([]*Booking, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(bookingColumns).
		From("public.bookings").
		Where(squirrel.Eq{"hotel_id": hotelID}).
		Where(squirrel.Eq{"status": StatusInHouse}).
		Where(squirrel.LtOrEq{"check_out": checkOutOnOrBefore}).
		OrderBy("id ASC").
		Limit(uint64(limit)).
		Suffix("FOR UPDATE SKIP LOCKED").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build overstay candidates query failed: %w", err)
	}
	return r.queryBookings(ctx, query, args)
}

func (r *pgxRepository) FindByPaymentRef(ctx context.Context, ref string) (*Booking, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(bookingColumns).
		From("public.bookings").
		Where(squirrel.Eq{"payment_ref": ref}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find by payment ref query failed: %w", err)
	}

	q := txn.QuerierFromContext(ctx, r.pool)
	b, err := scanBooking(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find booking by payment ref failed: %w", err)
	}
	return b, nil
}

func (r *pgxRepository) CreateExtension(ctx context.Context, e *Extension) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.booking_extensions").
		Columns("booking_id", "old_check_out", "new_check_out", "payment_ref", "staff_id").
		Values(e.BookingID, e.OldCheckOut, e.NewCheckOut, e.PaymentRef, e.StaffID).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create extension query failed: %w", err)
	}

	q := txn.QuerierFromContext(ctx, r.pool)
	return q.QueryRow(ctx, query, args...).Scan(&e.ID, &e.CreatedAt)
}

func (r *pgxRepository) ListExtensions(ctx context.Context, bookingID string) ([]*Extension, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select("id", "booking_id", "old_check_out", "new_check_out", "payment_ref", "staff_id", "created_at").
		From("public.booking_extensions").
		Where(squirrel.Eq{"booking_id": bookingID}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list extensions query failed: %w", err)
	}

	q := txn.QuerierFromContext(ctx, r.pool)
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list extensions failed: %w", err)
	}
	defer rows.Close()

	var exts []*Extension
	for rows.Next() {
		var e Extension
		if err := rows.Scan(&e.ID, &e.BookingID, &e.OldCheckOut, &e.NewCheckOut, &e.PaymentRef, &e.StaffID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan extension failed: %w", err)
		}
		exts = append(exts, &e)
	}
	return exts, nil
}

func (r *pgxRepository) queryBookings(ctx context.Context, query string, args []any) ([]*Booking, error) {
	q := txn.QuerierFromContext(ctx, r.pool)
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bookings failed: %w", err)
	}
	defer rows.Close()

	var bookings []*Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking failed: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	err := row.Scan(
		&b.ID, &b.HotelID, &b.GuestName, &b.RoomID, &b.CheckIn, &b.CheckOut, &b.Status,
		&b.PaidAt, &b.ApprovalDeadlineAt, &b.ExpiredAt, &b.CheckedInAt, &b.CheckedOutAt,
		&b.DecisionAt, &b.RefundedAt, &b.PaymentRef, &b.AmountCents, &b.Currency,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func scanBookingWithTotal(rows pgx.Rows, total *int) (*Booking, error) {
	var b Booking
	err := rows.Scan(
		&b.ID, &b.HotelID, &b.GuestName, &b.RoomID, &b.CheckIn, &b.CheckOut, &b.Status,
		&b.PaidAt, &b.ApprovalDeadlineAt, &b.ExpiredAt, &b.CheckedInAt, &b.CheckedOutAt,
		&b.DecisionAt, &b.RefundedAt, &b.PaymentRef, &b.AmountCents, &b.Currency,
		&b.CreatedAt, &b.UpdatedAt, total,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
