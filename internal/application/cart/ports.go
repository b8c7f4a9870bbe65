package cart

import domcart "github.com/Zhima-Mochi/honeyshop/internal/domain/cart"

//go:generate mockgen -source=ports.go -package cart -destination ports_mock.go

// IDGenerator mints and validates session identifiers.
type IDGenerator interface {
	NewID() string
	Valid(id string) bool
}

// StockReader is the read side of the inventory store that carts validate against.
type StockReader = domcart.StockReader
