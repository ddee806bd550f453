package hotel

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
	Create(ctx context.Context, h *Hotel) error
	GetByID(ctx context.Context, id string) (*Hotel, error)
	List(ctx context.Context) ([]*Hotel, error)
	Update(ctx context.Context, h *Hotel) error
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

const hotelColumns = "id, name, timezone, approval_sla_minutes, overstay_detection_hour, no_show_cutoff_hour, same_day_approval_cap_hour, created_at"

func (r *pgxRepository) Create(ctx context.Context, h *Hotel) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.hotels").
		Columns("name", "timezone", "approval_sla_minutes", "overstay_detection_hour",
			"no_show_cutoff_hour", "same_day_approval_cap_hour").
		Values(h.Name, h.Timezone, h.ApprovalSLAMinutes, h.OverstayDetectionHour,
			h.NoShowCutoffHour, h.SameDayApprovalCapHour).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create hotel query failed: %w", err)
	}

	q := txn.QuerierFromContext(ctx, r.pool)
	return q.QueryRow(ctx, query, args...).Scan(&h.ID, &h.CreatedAt)
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Hotel, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(hotelColumns).
		From("public.hotels").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get hotel query failed: %w", err)
	}

	q := txn.QuerierFromContext(ctx, r.pool)
	h, err := scanHotel(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get hotel failed: %w", err)
	}
	return h, nil
}

func (r *pgxRepository) List(ctx context.Context) ([]*Hotel, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(hotelColumns).
		From("public.hotels").
		OrderBy("name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list hotels query failed: %w", err)
	}

	q := txn.QuerierFromContext(ctx, r.pool)
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list hotels failed: %w", err)
	}
	defer rows.Close()

	var hotels []*Hotel
	for rows.Next() {
		h, err := scanHotel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan hotel failed: %w", err)
		}
		hotels = append(hotels, h)
	}
	return hotels, nil
}

func (r *pgxRepository) Update(ctx context.Context, h *Hotel) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.hotels").
		Set("name", h.Name).
		Set("timezone", h.Timezone).
		Set("approval_sla_minutes", h.ApprovalSLAMinutes).
		Set("overstay_detection_hour", h.OverstayDetectionHour).
		Set("no_show_cutoff_hour", h.NoShowCutoffHour).
		Set("same_day_approval_cap_hour", h.SameDayApprovalCapHour).
		Where(squirrel.Eq{"id": h.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update hotel query failed: %w", err)
	}

	q := txn.QuerierFromContext(ctx, r.pool)
	ct, err := q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update hotel failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanHotel(row pgx.Row) (*Hotel, error) {
	var h Hotel
	err := row.Scan(
		&h.ID, &h.Name, &h.Timezone, &h.ApprovalSLAMinutes, &h.OverstayDetectionHour,
		&h.NoShowCutoffHour, &h.SameDayApprovalCapHour, &h.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &h, nil
}
