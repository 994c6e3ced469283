package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hamikdash/storefront/internal/models"
)

// PostgresStore keeps order payloads as jsonb in the orders table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed order store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Save(ctx context.Context, o models.Order) (int, bool, error) {
	var formID *string
	if id := o.FormID(); id != "" {
		formID = &id
	}
	var created bool
	if formID == nil {
		created = true
		if _, err := s.pool.Exec(ctx, `INSERT INTO orders (form_id, payload) VALUES (NULL, $1)`, o); err != nil {
			return 0, false, fmt.Errorf("insert order: %w", err)
		}
	} else {
		// xmax = 0 only for freshly inserted rows.
		const q = `INSERT INTO orders (form_id, payload) VALUES ($1, $2)
			ON CONFLICT (form_id) WHERE form_id IS NOT NULL
			DO UPDATE SET payload = EXCLUDED.payload, received_at = NOW()
			RETURNING (xmax = 0)`
		if err := s.pool.QueryRow(ctx, q, *formID, o).Scan(&created); err != nil {
			return 0, false, fmt.Errorf("upsert order %s: %w", *formID, err)
		}
	}
	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders`).Scan(&total); err != nil {
		return 0, created, fmt.Errorf("count orders: %w", err)
	}
	return total, created, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]models.Order, error) {
	rows, err := s.pool.Query(ctx, `SELECT payload FROM orders ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Order{}
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(&o); err != nil {
			return nil, err
		}
		list = append(list, o)
	}
	return list, rows.Err()
}

func (s *PostgresStore) GetByFormID(ctx context.Context, formID string) (models.Order, error) {
	var o models.Order
	err := s.pool.QueryRow(ctx, `SELECT payload FROM orders WHERE form_id = $1`, formID).Scan(&o)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (s *PostgresStore) Clear(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `TRUNCATE orders`)
	return err
}
