// Package cart implements the storefront cart model: line addressing by product and color,
// merge-on-add, and totals.
package cart

import (
	"github.com/hamikdash/storefront/internal/models"
)

// Item is a cart line: a product snapshot plus quantity and an optional color.
type Item struct {
	ProductID     string        `json:"id" binding:"required"`
	Name          string        `json:"name"`
	NameEn        string        `json:"nameEn,omitempty"`
	Price         float64       `json:"price"`
	Quantity      int           `json:"quantity"`
	SelectedColor *models.Color `json:"selectedColor,omitempty"`
}

// UniqueID addresses a line: the product id, suffixed with the color name when one is chosen.
func (i Item) UniqueID() string {
	if i.SelectedColor != nil && i.SelectedColor.Name != "" {
		return i.ProductID + "-" + i.SelectedColor.Name
	}
	return i.ProductID
}

// LineTotal is price times quantity.
func (i Item) LineTotal() float64 {
	return i.Price * float64(i.Quantity)
}

// Cart is an ordered list of lines with unique UniqueIDs.
type Cart struct {
	Items []Item `json:"items"`
}

// Add merges item into an existing line with the same UniqueID or appends it.
// A non-positive quantity counts as one.
func (c *Cart) Add(item Item) {
	if item.Quantity <= 0 {
		item.Quantity = 1
	}
	if i := c.index(item.UniqueID()); i >= 0 {
		c.Items[i].Quantity += item.Quantity
		return
	}
	c.Items = append(c.Items, item)
}

// Remove drops the line with uniqueID. It reports whether a line was removed.
func (c *Cart) Remove(uniqueID string) bool {
	i := c.index(uniqueID)
	if i < 0 {
		return false
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	return true
}

// UpdateQuantity sets a line's quantity; zero or less removes the line.
func (c *Cart) UpdateQuantity(uniqueID string, quantity int) bool {
	if quantity <= 0 {
		return c.Remove(uniqueID)
	}
	i := c.index(uniqueID)
	if i < 0 {
		return false
	}
	c.Items[i].Quantity = quantity
	return true
}

// Count is the total number of units.
func (c *Cart) Count() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

// Subtotal sums line totals in float64, unrounded.
func (c *Cart) Subtotal() float64 {
	var sum float64
	for _, it := range c.Items {
		sum += it.LineTotal()
	}
	return sum
}

// OrderItems converts lines to the order item shape carried to providers and orders.
func (c *Cart) OrderItems() []models.OrderItem {
	out := make([]models.OrderItem, 0, len(c.Items))
	for _, it := range c.Items {
		out = append(out, models.OrderItem{
			ProductID:     it.ProductID,
			Name:          it.Name,
			NameEn:        it.NameEn,
			Quantity:      it.Quantity,
			Price:         it.Price,
			SelectedColor: it.SelectedColor,
		})
	}
	return out
}

func (c *Cart) index(uniqueID string) int {
	for i := range c.Items {
		if c.Items[i].UniqueID() == uniqueID {
			return i
		}
	}
	return -1
}

// FromItems builds a cart by adding each item in order, merging duplicates.
func FromItems(items []Item) *Cart {
	c := &Cart{}
	for _, it := range items {
		c.Add(it)
	}
	return c
}
