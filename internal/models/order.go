package models

import (
	"encoding/json"
	"time"
)

// ReceivedAtLayout matches the ISO-8601 UTC form browsers produce (millisecond precision).
const ReceivedAtLayout = "2006-01-02T15:04:05.000Z"

// Order is an arbitrary order payload as posted by the payment/invoicing webhook. It is
// stored and returned verbatim; the typed accessors below read the well-known keys.
type Order map[string]interface{}

// FormID returns the order's formId as a string ("" when absent).
func (o Order) FormID() string {
	return stringField(o["formId"])
}

// Status returns the free-text status field.
func (o Order) Status() string {
	return stringField(o["status"])
}

// CouponCode returns the coupon code the order was placed with, if any.
func (o Order) CouponCode() string {
	return stringField(o["couponCode"])
}

// StampReceivedAt sets receivedAt when it is missing and returns the (possibly existing) value.
func (o Order) StampReceivedAt(now time.Time) string {
	if v := stringField(o["receivedAt"]); v != "" {
		return v
	}
	v := now.UTC().Format(ReceivedAtLayout)
	o["receivedAt"] = v
	return v
}

// Details decodes the known order fields for rendering.
func (o Order) Details() OrderDetails {
	var d OrderDetails
	raw, err := json.Marshal(o)
	if err != nil {
		return d
	}
	// Tolerant decode: wrong-typed fields are left zero.
	_ = json.Unmarshal(raw, &d)
	return d
}

// OrderDetails is the typed view of an Order used by notifications and invoicing.
type OrderDetails struct {
	FormID            string          `json:"formId"`
	Status            string          `json:"status"`
	DocumentID        string          `json:"documentId"`
	PaymentID         string          `json:"paymentId"`
	Amount            interface{}     `json:"amount"`
	Currency          string          `json:"currency"`
	CustomerInfo      CustomerInfo    `json:"customerInfo"`
	Items             json.RawMessage `json:"items"`
	PurchaseTimestamp string          `json:"purchaseTimestamp"`
	Dedication        string          `json:"dedication"`
	CouponCode        string          `json:"couponCode"`
	ReceivedAt        string          `json:"receivedAt"`
}

// OrderItem is one purchased line.
type OrderItem struct {
	ProductID     string  `json:"productId,omitempty"`
	Name          string  `json:"name"`
	NameEn        string  `json:"nameEn,omitempty"`
	Quantity      int     `json:"quantity"`
	Price         float64 `json:"price"`
	SelectedColor *Color  `json:"selectedColor,omitempty"`
}

// CustomerInfo is the checkout customer profile.
type CustomerInfo struct {
	FullName   string `json:"fullName"`
	FirstName  string `json:"firstName,omitempty"`
	LastName   string `json:"lastName,omitempty"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address,omitempty"`
	City       string `json:"city,omitempty"`
	ZipCode    string `json:"zipCode,omitempty"`
	Notes      string `json:"notes,omitempty"`
	Dedication string `json:"dedication,omitempty"`
}

// Name returns FullName or "First Last".
func (c CustomerInfo) Name() string {
	if c.FullName != "" {
		return c.FullName
	}
	if c.FirstName != "" && c.LastName != "" {
		return c.FirstName + " " + c.LastName
	}
	return c.FirstName + c.LastName
}

// AmountText renders the amount whatever its JSON type ("" when absent).
func (d OrderDetails) AmountText() string {
	return stringField(d.Amount)
}

// ItemList decodes Items leniently: a non-array value yields nil, never an error.
func (d OrderDetails) ItemList() []OrderItem {
	if len(d.Items) == 0 {
		return nil
	}
	var items []OrderItem
	if err := json.Unmarshal(d.Items, &items); err != nil {
		return nil
	}
	return items
}

func stringField(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	case float64:
		return formatFloat(s)
	default:
		return ""
	}
}
