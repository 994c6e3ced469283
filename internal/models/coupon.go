package models

import "time"

// CouponType is percentage or fixed.
type CouponType string

const (
	CouponPercentage CouponType = "percentage"
	CouponFixed      CouponType = "fixed"
)

// Valid reports whether t is a known coupon type.
func (t CouponType) Valid() bool {
	return t == CouponPercentage || t == CouponFixed
}

// Coupon is a promotional code. Discount is a percent for percentage coupons and a
// currency amount for fixed ones.
type Coupon struct {
	ID          string     `json:"id" yaml:"id"`
	Code        string     `json:"code" yaml:"code"`
	Discount    float64    `json:"discount" yaml:"discount"`
	Type        CouponType `json:"type" yaml:"type"`
	MinAmount   float64    `json:"minAmount" yaml:"minAmount"`
	MaxDiscount float64    `json:"maxDiscount" yaml:"maxDiscount"`
	ValidFrom   time.Time  `json:"validFrom" yaml:"validFrom"`
	ValidUntil  time.Time  `json:"validUntil" yaml:"validUntil"`
	IsActive    bool       `json:"isActive" yaml:"isActive"`
	UsageCount  int        `json:"usageCount" yaml:"usageCount"`
	MaxUsage    int        `json:"maxUsage" yaml:"maxUsage"`
	CreatedAt   time.Time  `json:"createdAt" yaml:"-"`
}

// CouponResult is the outcome of applying a coupon to a cart total.
type CouponResult struct {
	Code           string     `json:"code"`
	Type           CouponType `json:"type"`
	Discount       float64    `json:"discount"`
	DiscountAmount float64    `json:"discountAmount"`
	OriginalAmount float64    `json:"originalAmount"`
	FinalAmount    float64    `json:"finalAmount"`
}
