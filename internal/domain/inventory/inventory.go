package inventory

import (
	"errors"
	"time"
)

var (
	ErrNotFound    = errors.New("inventory: product not found")
	ErrFetchFailed = errors.New("inventory: fetch failed")
)

// Status is what presentation shows on a product's stock badge.
type Status string

const (
	StatusInStock    Status = "in_stock"
	StatusOutOfStock Status = "out_of_stock"
	StatusUnknown    Status = "unknown"
)

// Item is the last known stock of one canonical product.
type Item struct {
	ProductName string
	Quantity    int
	UpdatedAt   time.Time
}

// NewItem returns an item; negative quantities are clamped to zero.
func NewItem(productName string, quantity int) *Item {
	return &Item{
		ProductName: productName,
		Quantity:    ClampStock(quantity),
		UpdatedAt:   time.Now().UTC(),
	}
}

// Status reports the badge for this item. A degraded store cannot vouch for any count.
func (i *Item) Status(degraded bool) Status {
	return StatusFor(i.Quantity, degraded)
}

// StatusFor reports the badge for a stock count.
func StatusFor(quantity int, degraded bool) Status {
	switch {
	case degraded:
		return StatusUnknown
	case quantity > 0:
		return StatusInStock
	default:
		return StatusOutOfStock
	}
}

// ClampStock coerces a stock count into the valid range.
func ClampStock(quantity int) int {
	if quantity < 0 {
		return 0
	}
	return quantity
}
