// Package coupons holds promotional codes and the discount math applied to cart totals.
package coupons

import (
	"context"
	"errors"

	"github.com/hamikdash/storefront/internal/models"
)

// Error kinds. Handlers map them to HTTP statuses with errors.Is.
var (
	ErrNotFound     = errors.New("coupon not found")
	ErrInvalid      = errors.New("coupon not valid at this time")
	ErrLimitReached = errors.New("coupon usage limit reached")
	ErrConflict     = errors.New("coupon code already exists")
	ErrBadRequest   = errors.New("bad coupon request")
)

// Error is a user-facing coupon failure of a given kind.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Store persists coupons. Codes are matched case-insensitively. Implementations make
// Insert, Update and IncrementUsage atomic with respect to each other.
type Store interface {
	List(ctx context.Context) ([]models.Coupon, error)
	// FindByCode returns the coupon regardless of state, or ErrNotFound.
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
	// Insert fails with ErrConflict when the code is taken.
	Insert(ctx context.Context, c *models.Coupon) error
	// Update applies fn to the stored coupon under the store's lock/transaction.
	Update(ctx context.Context, id string, fn func(*models.Coupon) error) (*models.Coupon, error)
	Delete(ctx context.Context, id string) error
	// IncrementUsage bumps usageCount by one unless it already reached maxUsage.
	IncrementUsage(ctx context.Context, code string) (*models.Coupon, error)
}
