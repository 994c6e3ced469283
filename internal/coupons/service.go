package coupons

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hamikdash/storefront/internal/models"
	"github.com/hamikdash/storefront/pkg/utils"
)

const (
	defaultMaxUsage     = 100
	defaultValidityDays = 365
	dateLayout          = "2006-01-02"
)

// CreateParams is the body for creating a coupon. Pointer fields distinguish "absent"
// from zero so defaults can be applied.
type CreateParams struct {
	Code        string   `json:"code" yaml:"code"`
	Discount    *float64 `json:"discount" yaml:"discount"`
	Type        string   `json:"type" yaml:"type"`
	MinAmount   *float64 `json:"minAmount" yaml:"minAmount"`
	MaxDiscount *float64 `json:"maxDiscount" yaml:"maxDiscount"`
	ValidFrom   string   `json:"validFrom" yaml:"validFrom"`
	ValidUntil  string   `json:"validUntil" yaml:"validUntil"`
	IsActive    *bool    `json:"isActive" yaml:"isActive"`
	MaxUsage    *int     `json:"maxUsage" yaml:"maxUsage"`
}

// UpdateParams is a partial coupon; non-nil fields overwrite the stored values.
type UpdateParams struct {
	Code        *string  `json:"code"`
	Discount    *float64 `json:"discount"`
	Type        *string  `json:"type"`
	MinAmount   *float64 `json:"minAmount"`
	MaxDiscount *float64 `json:"maxDiscount"`
	ValidFrom   *string  `json:"validFrom"`
	ValidUntil  *string  `json:"validUntil"`
	IsActive    *bool    `json:"isActive"`
	UsageCount  *int     `json:"usageCount"`
	MaxUsage    *int     `json:"maxUsage"`
}

// Service validates and applies coupons on top of a Store.
type Service struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a coupon service.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger, now: time.Now}
}

// List returns all coupons in any state.
func (s *Service) List(ctx context.Context) ([]models.Coupon, error) {
	return s.store.List(ctx)
}

// GetByCode returns a coupon that is usable right now.
func (s *Service) GetByCode(ctx context.Context, code string) (*models.Coupon, error) {
	c, err := s.store.FindByCode(ctx, strings.TrimSpace(code))
	if errors.Is(err, ErrNotFound) || (err == nil && !c.IsActive) {
		return nil, newError(ErrNotFound, "Invalid coupon code")
	}
	if err != nil {
		return nil, fmt.Errorf("find coupon: %w", err)
	}
	now := s.now()
	if now.Before(c.ValidFrom) || now.After(c.ValidUntil) {
		return nil, newError(ErrInvalid, "Coupon has expired or is not yet valid")
	}
	if c.UsageCount >= c.MaxUsage {
		return nil, newError(ErrLimitReached, "Coupon usage limit reached")
	}
	return c, nil
}

// Create validates p, fills defaults and stores the coupon.
func (s *Service) Create(ctx context.Context, p CreateParams) (*models.Coupon, error) {
	code := strings.TrimSpace(p.Code)
	if code == "" || p.Discount == nil || p.Type == "" {
		return nil, newError(ErrBadRequest, "Code, discount and type are required")
	}
	typ := models.CouponType(p.Type)
	if !typ.Valid() {
		return nil, newError(ErrBadRequest, "Type must be percentage or fixed")
	}
	if *p.Discount <= 0 {
		return nil, newError(ErrBadRequest, "Discount must be positive")
	}

	now := s.now().UTC()
	c := &models.Coupon{
		ID:          uuid.New().String(),
		Code:        code,
		Discount:    *p.Discount,
		Type:        typ,
		MaxDiscount: *p.Discount,
		ValidFrom:   startOfDay(now),
		ValidUntil:  endOfDay(now.AddDate(0, 0, defaultValidityDays)),
		IsActive:    true,
		MaxUsage:    defaultMaxUsage,
		CreatedAt:   now,
	}
	if p.MinAmount != nil {
		c.MinAmount = *p.MinAmount
	}
	if p.MaxDiscount != nil {
		c.MaxDiscount = *p.MaxDiscount
	}
	if p.IsActive != nil {
		c.IsActive = *p.IsActive
	}
	if p.MaxUsage != nil {
		c.MaxUsage = *p.MaxUsage
	}
	var err error
	if p.ValidFrom != "" {
		if c.ValidFrom, err = parseDate(p.ValidFrom, false); err != nil {
			return nil, err
		}
	}
	if p.ValidUntil != "" {
		if c.ValidUntil, err = parseDate(p.ValidUntil, true); err != nil {
			return nil, err
		}
	}

	if err := s.store.Insert(ctx, c); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, newError(ErrConflict, "Coupon code already exists")
		}
		return nil, fmt.Errorf("insert coupon: %w", err)
	}
	s.logger.Info("coupon created", zap.String("code", c.Code), zap.String("type", string(c.Type)))
	return c, nil
}

// Update shallow-merges p into the stored coupon.
func (s *Service) Update(ctx context.Context, id string, p UpdateParams) (*models.Coupon, error) {
	c, err := s.store.Update(ctx, id, func(c *models.Coupon) error {
		return p.applyTo(c)
	})
	switch {
	case errors.Is(err, ErrNotFound):
		return nil, newError(ErrNotFound, "Coupon not found")
	case errors.Is(err, ErrConflict):
		return nil, newError(ErrConflict, "Coupon code already exists")
	}
	return c, err
}

// Delete removes a coupon by id.
func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.store.Delete(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return newError(ErrNotFound, "Coupon not found")
	}
	return err
}

// Apply computes the discount for totalAmount. It never consumes a usage.
func (s *Service) Apply(ctx context.Context, code string, totalAmount float64) (*models.CouponResult, error) {
	c, err := s.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if totalAmount < c.MinAmount {
		return nil, newError(ErrBadRequest, "Minimum order amount is ₪"+utils.TrimAmount(c.MinAmount))
	}
	discount := Discount(c, totalAmount)
	return &models.CouponResult{
		Code:           c.Code,
		Type:           c.Type,
		Discount:       c.Discount,
		DiscountAmount: discount,
		OriginalAmount: totalAmount,
		FinalAmount:    math.Max(0, totalAmount-discount),
	}, nil
}

// Redeem consumes one usage of code. Called once per completed order.
func (s *Service) Redeem(ctx context.Context, code string) (*models.Coupon, error) {
	c, err := s.store.IncrementUsage(ctx, strings.TrimSpace(code))
	switch {
	case errors.Is(err, ErrNotFound):
		return nil, newError(ErrNotFound, "Invalid coupon code")
	case errors.Is(err, ErrLimitReached):
		return nil, newError(ErrLimitReached, "Coupon usage limit reached")
	case err != nil:
		return nil, fmt.Errorf("redeem coupon: %w", err)
	}
	s.logger.Info("coupon redeemed", zap.String("code", c.Code), zap.Int("usage_count", c.UsageCount))
	return c, nil
}

// Discount is the amount c takes off total, capped at MaxDiscount. Not rounded.
func Discount(c *models.Coupon, total float64) float64 {
	var d float64
	switch c.Type {
	case models.CouponPercentage:
		d = total * c.Discount / 100
	case models.CouponFixed:
		d = c.Discount
	}
	return math.Min(d, c.MaxDiscount)
}

func (p UpdateParams) applyTo(c *models.Coupon) error {
	if p.Code != nil {
		code := strings.TrimSpace(*p.Code)
		if code == "" {
			return newError(ErrBadRequest, "Code cannot be empty")
		}
		c.Code = code
	}
	if p.Discount != nil {
		if *p.Discount <= 0 {
			return newError(ErrBadRequest, "Discount must be positive")
		}
		c.Discount = *p.Discount
	}
	if p.Type != nil {
		t := models.CouponType(*p.Type)
		if !t.Valid() {
			return newError(ErrBadRequest, "Type must be percentage or fixed")
		}
		c.Type = t
	}
	if p.MinAmount != nil {
		c.MinAmount = *p.MinAmount
	}
	if p.MaxDiscount != nil {
		c.MaxDiscount = *p.MaxDiscount
	}
	if p.IsActive != nil {
		c.IsActive = *p.IsActive
	}
	if p.UsageCount != nil {
		c.UsageCount = *p.UsageCount
	}
	if p.MaxUsage != nil {
		c.MaxUsage = *p.MaxUsage
	}
	var err error
	if p.ValidFrom != nil {
		if c.ValidFrom, err = parseDate(*p.ValidFrom, false); err != nil {
			return err
		}
	}
	if p.ValidUntil != nil {
		if c.ValidUntil, err = parseDate(*p.ValidUntil, true); err != nil {
			return err
		}
	}
	return nil
}

// parseDate accepts RFC3339 or a bare date; a bare validUntil date covers the whole day.
func parseDate(s string, until bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, newError(ErrBadRequest, "Invalid date: "+s)
	}
	if until {
		return endOfDay(t), nil
	}
	return t, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).Add(24*time.Hour - time.Millisecond)
}
