package pricing

import "github.com/Zhima-Mochi/honeyshop/internal/domain/cart"

const (
	// FreeShippingThreshold is the subtotal (yen) from which shipping is free.
	FreeShippingThreshold int64 = 5000
	// FlatShippingFee is charged below the threshold.
	FlatShippingFee int64 = 600
)

// Summary is the derived price of a cart snapshot. It is never stored.
type Summary struct {
	Lines       []cart.Line
	ItemCount   int
	Subtotal    int64
	ShippingFee int64
	Total       int64
}

// Empty reports whether there is nothing to order. An empty cart still prices with the flat
// shipping fee, so callers must check Empty before showing a total.
func (s Summary) Empty() bool { return len(s.Lines) == 0 }

// Calculate prices lines.
func Calculate(lines []cart.Line) Summary {
	s := Summary{Lines: append([]cart.Line(nil), lines...)}
	for _, l := range lines {
		s.Subtotal += l.Total()
		s.ItemCount += l.Quantity
	}
	s.ShippingFee = ShippingFee(s.Subtotal)
	s.Total = s.Subtotal + s.ShippingFee
	return s
}

// ShippingFee returns the fee for a subtotal.
func ShippingFee(subtotal int64) int64 {
	if subtotal >= FreeShippingThreshold {
		return 0
	}
	return FlatShippingFee
}
