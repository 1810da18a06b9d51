package domain

import (
	"math"
	"time"
)

// Currency is the ISO code every price is denominated in.
const Currency = "RUB"

// MinorUnitsPerMajor is the number of kopecks in a rouble.
const MinorUnitsPerMajor = 100

// MaxPrice is the largest accepted product price in major units. Keep the
// lte tags on request and seed prices in sync.
const MaxPrice = 1_000_000_000

// Product is a catalog entry. Price is in minor units.
type Product struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Slug         string    `json:"slug"`
	Description  string    `json:"description"`
	Price        int64     `json:"price"`
	QuantityLeft int       `json:"quantity_left"`
	Logo         string    `json:"logo,omitempty"`
	CreatedBy    string    `json:"created_by,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// InStock reports whether at least one unit is left.
func (p *Product) InStock() bool {
	return p.QuantityLeft > 0
}

// DisplayPrice is the price in major units.
func (p *Product) DisplayPrice() float64 {
	return ToMajorUnits(p.Price)
}

// ValidPrice reports whether major is a finite price in [0, MaxPrice].
func ValidPrice(major float64) bool {
	return !math.IsNaN(major) && major >= 0 && major <= MaxPrice
}

// ToMinorUnits converts a major-unit amount, rounding to the nearest kopeck.
// major must satisfy ValidPrice.
func ToMinorUnits(major float64) int64 {
	return int64(math.Round(major * MinorUnitsPerMajor))
}

// ToMajorUnits converts minor units to major units.
func ToMajorUnits(minor int64) float64 {
	return float64(minor) / MinorUnitsPerMajor
}
