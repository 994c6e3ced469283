// Package products serves the catalog stored in the managed Postgres database.
package products

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hamikdash/storefront/internal/models"
)

// ErrNotFound is returned for an unknown product id.
var ErrNotFound = errors.New("product not found")

// Repository is product persistence.
type Repository interface {
	List(ctx context.Context, category string) ([]models.Product, error)
	Get(ctx context.Context, id string) (*models.Product, error)
	Create(ctx context.Context, p *models.Product) error
	Update(ctx context.Context, p *models.Product) error
	Delete(ctx context.Context, id string) error
}

const productColumns = `id, name, name_en, description, description_en, price, category, images, colors,
	in_stock, created_at, updated_at`

// PostgresRepository reads and writes the products table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a product repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func scanProduct(row pgx.Row) (*models.Product, error) {
	var p models.Product
	err := row.Scan(&p.ID, &p.Name, &p.NameEn, &p.Description, &p.DescriptionEn, &p.Price, &p.Category,
		&p.Images, &p.Colors, &p.InStock, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns products newest first, optionally filtered by category.
func (r *PostgresRepository) List(ctx context.Context, category string) ([]models.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products`
	var args []interface{}
	if category != "" {
		q += ` WHERE category = $1`
		args = append(args, category)
	}
	q += ` ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	list := []models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *p)
	}
	return list, rows.Err()
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Product, error) {
	return scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
}

func (r *PostgresRepository) Create(ctx context.Context, p *models.Product) error {
	const q = `INSERT INTO products (name, name_en, description, description_en, price, category, images, colors, in_stock)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, p.Name, p.NameEn, p.Description, p.DescriptionEn, p.Price, p.Category,
		nonNilImages(p.Images), nonNilColors(p.Colors), p.InStock).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (r *PostgresRepository) Update(ctx context.Context, p *models.Product) error {
	p.UpdatedAt = time.Now()
	const q = `UPDATE products SET name = $2, name_en = $3, description = $4, description_en = $5, price = $6,
		category = $7, images = $8, colors = $9, in_stock = $10, updated_at = $11 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, p.ID, p.Name, p.NameEn, p.Description, p.DescriptionEn, p.Price, p.Category,
		nonNilImages(p.Images), nonNilColors(p.Colors), p.InStock, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update product %s: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func nonNilImages(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func nonNilColors(v []models.Color) []models.Color {
	if v == nil {
		return []models.Color{}
	}
	return v
}
