package cart

import (
	"errors"
)

var (
	ErrOutOfStock         = errors.New("cart: product is out of stock")
	ErrStockLimitExceeded = errors.New("cart: quantity would exceed available stock")
	ErrInvalidPrice       = errors.New("cart: unit price must be greater than zero")
)

// StockReader answers how many units of a canonical product are known to be available.
// Unknown products report 0.
type StockReader interface {
	StockOf(productName string) int
}

// StockFunc adapts a function to StockReader.
type StockFunc func(productName string) int

func (f StockFunc) StockOf(productName string) int { return f(productName) }

// Line is one product in the cart, priced at the moment it was first added.
type Line struct {
	ProductName string
	Quantity    int
	UnitPrice   int64
}

// Total is UnitPrice × Quantity.
func (l Line) Total() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// Adjustment records a line changed by Reconcile.
type Adjustment struct {
	ProductName string
	From        int
	To          int
}

// Removed reports whether the line left the cart.
func (a Adjustment) Removed() bool { return a.To == 0 }

// Cart is an insertion-ordered set of lines keyed by canonical product name.
// Every successful mutation leaves 0 < Quantity <= StockOf(ProductName) for the touched line;
// a rejected mutation leaves the cart unchanged.
type Cart struct {
	stock StockReader
	lines []Line
}

func New(stock StockReader) *Cart {
	return &Cart{stock: stock}
}

// Add puts one unit of the product in the cart.
func (c *Cart) Add(productName string, unitPrice int64) error {
	if unitPrice <= 0 {
		return ErrInvalidPrice
	}
	available := c.stock.StockOf(productName)
	if available <= 0 {
		return ErrOutOfStock
	}

	idx := c.indexOf(productName)
	if idx < 0 {
		c.lines = append(c.lines, Line{ProductName: productName, Quantity: 1, UnitPrice: unitPrice})
		return nil
	}
	if c.lines[idx].Quantity >= available {
		return ErrStockLimitExceeded
	}
	c.lines[idx].Quantity++
	return nil
}

// ChangeQuantity moves a line's quantity by delta. A result of zero or less removes the line.
// It reports whether the cart changed; a missing line is a no-op.
func (c *Cart) ChangeQuantity(productName string, delta int) (bool, error) {
	idx := c.indexOf(productName)
	if idx < 0 {
		return false, nil
	}

	current := c.lines[idx].Quantity
	available := c.stock.StockOf(productName)
	// compare before adding so a huge delta cannot wrap around
	if delta > 0 && delta > available-current {
		return false, ErrStockLimitExceeded
	}

	newQty := current + delta
	switch {
	case newQty <= 0:
		c.removeAt(idx)
		return true, nil
	case newQty <= available:
		c.lines[idx].Quantity = newQty
		return newQty != current, nil
	default:
		return false, ErrStockLimitExceeded
	}
}

// Remove drops the product's line. It is idempotent and reports whether a line was removed.
func (c *Cart) Remove(productName string) bool {
	idx := c.indexOf(productName)
	if idx < 0 {
		return false
	}
	c.removeAt(idx)
	return true
}

// Reconcile clamps every line down to the current stock, dropping lines whose product sold out.
func (c *Cart) Reconcile() []Adjustment {
	var adjustments []Adjustment
	kept := c.lines[:0]
	for _, l := range c.lines {
		available := c.stock.StockOf(l.ProductName)
		if l.Quantity <= available {
			kept = append(kept, l)
			continue
		}
		to := available
		if to < 0 {
			to = 0
		}
		adjustments = append(adjustments, Adjustment{ProductName: l.ProductName, From: l.Quantity, To: to})
		if to > 0 {
			l.Quantity = to
			kept = append(kept, l)
		}
	}
	c.lines = kept
	return adjustments
}

func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

// Lines returns a copy of the lines in insertion order.
func (c *Cart) Lines() []Line {
	return append([]Line(nil), c.lines...)
}

// Line returns the line for productName, if any.
func (c *Cart) Line(productName string) (Line, bool) {
	idx := c.indexOf(productName)
	if idx < 0 {
		return Line{}, false
	}
	return c.lines[idx], true
}

func (c *Cart) TotalItemCount() int {
	total := 0
	for _, l := range c.lines {
		total += l.Quantity
	}
	return total
}

func (c *Cart) indexOf(productName string) int {
	for i, l := range c.lines {
		if l.ProductName == productName {
			return i
		}
	}
	return -1
}

func (c *Cart) removeAt(idx int) {
	c.lines = append(c.lines[:idx], c.lines[idx+1:]...)
}
