package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hamikdash/storefront/internal/models"
)

const txColumns = `id, provider, status, amount, currency, coupon_code, provider_ref, payment_url,
	response_code, customer_info, items, created_at, updated_at`

// PostgresStore persists transactions in the payment_transactions table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed transaction store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func scanTx(row pgx.Row) (*models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.ID, &t.Provider, &t.Status, &t.Amount, &t.Currency, &t.CouponCode, &t.ProviderRef,
		&t.PaymentURL, &t.ResponseCode, &t.CustomerInfo, &t.Items, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *PostgresStore) Create(ctx context.Context, t *models.Transaction) error {
	const q = `INSERT INTO payment_transactions (` + txColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := s.pool.Exec(ctx, q, t.ID, t.Provider, t.Status, t.Amount, t.Currency, t.CouponCode, t.ProviderRef,
		t.PaymentURL, t.ResponseCode, t.CustomerInfo, t.Items, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert transaction %s: %w", t.ID, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*models.Transaction, error) {
	return scanTx(s.pool.QueryRow(ctx, `SELECT `+txColumns+` FROM payment_transactions WHERE id = $1`, id))
}

// Update locks the row for the duration of fn.
func (s *PostgresStore) Update(ctx context.Context, id string, fn func(*models.Transaction) error) (*models.Transaction, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	t, err := scanTx(tx.QueryRow(ctx, `SELECT `+txColumns+` FROM payment_transactions WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, err
	}
	if err := fn(t); err != nil {
		return nil, err
	}
	const q = `UPDATE payment_transactions SET status = $2, provider_ref = $3, payment_url = $4,
		response_code = $5, updated_at = $6 WHERE id = $1`
	if _, err := tx.Exec(ctx, q, id, t.Status, t.ProviderRef, t.PaymentURL, t.ResponseCode, t.UpdatedAt); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return t, nil
}
