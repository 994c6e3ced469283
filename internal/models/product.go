package models

import (
	"strconv"
	"time"
)

// Color is a selectable product color.
type Color struct {
	Name string `json:"name"`
	Hex  string `json:"hex,omitempty"`
}

// Product is a catalog item stored in the managed database.
type Product struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	NameEn        string    `json:"nameEn"`
	Description   string    `json:"description"`
	DescriptionEn string    `json:"descriptionEn"`
	Price         float64   `json:"price"`
	Category      string    `json:"category"`
	Images        []string  `json:"images"`
	Colors        []Color   `json:"colors"`
	InStock       bool      `json:"inStock"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
