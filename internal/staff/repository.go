package staff

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines methods for accessing staff accounts in storage.
type Repository interface {
	GetByEmail(ctx context.Context, email string) (*Staff, error)
	GetByID(ctx context.Context, id string) (*Staff, error)
	Create(ctx context.Context, s *Staff) error
	UpdateLastLogin(ctx context.Context, id string, t time.Time) error
	ListByHotel(ctx context.Context, hotelID string) ([]*Staff, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

const staffColumns = `id, hotel_id, email, password_hash, coalesce(display_name, ''), role, is_active, created_at, last_login_at`

func (r *pgxRepository) GetByEmail(ctx context.Context, email string) (*Staff, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(staffColumns).
		From("public.staff").
		Where(squirrel.Eq{"email": email}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get staff query failed: %w", err)
	}

	s, err := scanStaff(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get staff by email failed: %w", err)
	}
	return s, nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Staff, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(staffColumns).
		From("public.staff").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get staff query failed: %w", err)
	}

	s, err := scanStaff(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get staff by id failed: %w", err)
	}
	return s, nil
}

func (r *pgxRepository) Create(ctx context.Context, s *Staff) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.staff").
		Columns("hotel_id", "email", "password_hash", "display_name", "role", "is_active").
		Values(s.HotelID, s.Email, s.PasswordHash, s.DisplayName, s.Role, s.IsActive).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create staff query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&s.ID, &s.CreatedAt); err != nil {
		var e *pgconn.PgError
		if errors.As(err, &e) && e.Code == pgerrcode.UniqueViolation {
			return ErrEmailAlreadyUsed
		}
		return fmt.Errorf("create staff failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) UpdateLastLogin(ctx context.Context, id string, t time.Time) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.staff").
		Set("last_login_at", t).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update last login query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update last login failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) ListByHotel(ctx context.Context, hotelID string) ([]*Staff, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(staffColumns).
		From("public.staff").
		Where(squirrel.Eq{"hotel_id": hotelID}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list staff query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list staff failed: %w", err)
	}
	defer rows.Close()

	var members []*Staff
	for rows.Next() {
		var s Staff
		if err := rows.Scan(
			&s.ID, &s.HotelID, &s.Email, &s.PasswordHash, &s.DisplayName,
			&s.Role, &s.IsActive, &s.CreatedAt, &s.LastLoginAt,
		); err != nil {
			return nil, fmt.Errorf("scan staff failed: %w", err)
		}
		members = append(members, &s)
	}
	return members, rows.Err()
}

func scanStaff(row pgx.Row) (*Staff, error) {
	var s Staff
	err := row.Scan(
		&s.ID, &s.HotelID, &s.Email, &s.PasswordHash, &s.DisplayName,
		&s.Role, &s.IsActive, &s.CreatedAt, &s.LastLoginAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
