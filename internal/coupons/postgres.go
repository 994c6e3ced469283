package coupons

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hamikdash/storefront/internal/models"
)

const couponColumns = `id, code, discount, type, min_amount, max_discount, valid_from, valid_until,
	is_active, usage_count, max_usage, created_at`

// PostgresStore persists coupons in the coupons table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed coupon store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func scanCoupon(row pgx.Row) (*models.Coupon, error) {
	var c models.Coupon
	var typ string
	err := row.Scan(&c.ID, &c.Code, &c.Discount, &typ, &c.MinAmount, &c.MaxDiscount, &c.ValidFrom, &c.ValidUntil,
		&c.IsActive, &c.UsageCount, &c.MaxUsage, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c.Type = models.CouponType(typ)
	return &c, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]models.Coupon, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+couponColumns+` FROM coupons ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *c)
	}
	return list, rows.Err()
}

func (s *PostgresStore) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	return scanCoupon(s.pool.QueryRow(ctx, `SELECT `+couponColumns+` FROM coupons WHERE LOWER(code) = LOWER($1)`, code))
}

func (s *PostgresStore) Insert(ctx context.Context, c *models.Coupon) error {
	const q = `INSERT INTO coupons (` + couponColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := s.pool.Exec(ctx, q, c.ID, c.Code, c.Discount, string(c.Type), c.MinAmount, c.MaxDiscount,
		c.ValidFrom, c.ValidUntil, c.IsActive, c.UsageCount, c.MaxUsage, c.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrConflict
	}
	return err
}

// Update locks the row for the duration of fn.
func (s *PostgresStore) Update(ctx context.Context, id string, fn func(*models.Coupon) error) (*models.Coupon, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	c, err := scanCoupon(tx.QueryRow(ctx, `SELECT `+couponColumns+` FROM coupons WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, err
	}
	if err := fn(c); err != nil {
		return nil, err
	}
	const q = `UPDATE coupons SET code = $2, discount = $3, type = $4, min_amount = $5, max_discount = $6,
		valid_from = $7, valid_until = $8, is_active = $9, usage_count = $10, max_usage = $11
		WHERE id = $1`
	_, err = tx.Exec(ctx, q, id, c.Code, c.Discount, string(c.Type), c.MinAmount, c.MaxDiscount,
		c.ValidFrom, c.ValidUntil, c.IsActive, c.UsageCount, c.MaxUsage)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	c.ID = id
	return c, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM coupons WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) IncrementUsage(ctx context.Context, code string) (*models.Coupon, error) {
	c, err := scanCoupon(s.pool.QueryRow(ctx, `UPDATE coupons SET usage_count = usage_count + 1
		WHERE LOWER(code) = LOWER($1) AND usage_count < max_usage
		RETURNING `+couponColumns, code))
	if !errors.Is(err, ErrNotFound) {
		return c, err
	}
	// Distinguish a missing code from an exhausted one.
	if _, findErr := s.FindByCode(ctx, code); findErr != nil {
		return nil, findErr
	}
	return nil, ErrLimitReached
}
