package payments

import (
	"context"

	"github.com/hamikdash/storefront/internal/models"
)

// Store persists payment transactions keyed by correlation id.
type Store interface {
	Create(ctx context.Context, tx *models.Transaction) error
	Get(ctx context.Context, id string) (*models.Transaction, error)
	// Update applies fn to the stored transaction atomically and returns the result.
	Update(ctx context.Context, id string, fn func(*models.Transaction) error) (*models.Transaction, error)
}
