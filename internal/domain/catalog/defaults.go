package catalog

// The storefront sells two jar sizes of wildflower honey. The spreadsheet uses half-width
// parentheses; product cards historically used full-width ones, which Normalize folds away.
const (
	Wildflower300g = "百花蜜(300g)"
	Wildflower500g = "百花蜜(500g)"
)

// DefaultProducts is the product table of the storefront.
func DefaultProducts() []Product {
	return []Product{
		{
			Name:      Wildflower300g,
			UnitPrice: 1500,
			Display:   Display{Label: "百花蜜（300g）", StockID: "stock-300g", ButtonID: "btn-300g"},
		},
		{
			Name:      Wildflower500g,
			UnitPrice: 2300,
			Display:   Display{Label: "百花蜜（500g）", StockID: "stock-500g", ButtonID: "btn-500g"},
		},
	}
}

// DefaultAliases lists spellings seen in older page variants.
func DefaultAliases() map[string]string {
	return map[string]string{
		"Honey-300g":  Wildflower300g,
		"Honey-500g":  Wildflower500g,
		"百花蜜 300g": Wildflower300g,
		"百花蜜 500g": Wildflower500g,
	}
}

// Default returns the storefront catalog.
func Default() *Catalog {
	return MustNew(DefaultProducts(), DefaultAliases())
}
