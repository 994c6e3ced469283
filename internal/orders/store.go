// Package orders records order payloads posted by payment webhooks and callbacks.
package orders

import (
	"context"
	"errors"

	"github.com/hamikdash/storefront/internal/models"
)

// ErrNotFound is returned when no order matches a formId.
var ErrNotFound = errors.New("order not found")

// Store persists orders. Orders with a formId are upserted on it; others are appended.
type Store interface {
	// Save returns the number of stored orders and whether the order was new.
	Save(ctx context.Context, o models.Order) (total int, created bool, err error)
	List(ctx context.Context) ([]models.Order, error)
	GetByFormID(ctx context.Context, formID string) (models.Order, error)
	Clear(ctx context.Context) error
}
