package catalog

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/width"
)

var (
	ErrUnknownProduct = errors.New("catalog: unknown product")
	ErrDuplicateName  = errors.New("catalog: name resolves to more than one product")
	ErrInvalidPrice   = errors.New("catalog: unit price must be greater than zero")
)

// Product is one physical item for sale, keyed by its canonical name.
type Product struct {
	Name      string
	UnitPrice int64
	Display   Display
}

// Display holds the presentation bindings of a product.
type Display struct {
	Label    string
	StockID  string
	ButtonID string
}

// Catalog is the single table of sellable products. It also owns the total mapping from every
// accepted spelling of a name to the canonical one.
type Catalog struct {
	products []Product
	byName   map[string]int
	aliases  map[string]string
}

// New builds a catalog. aliases maps legacy or alternative spellings to canonical names; both
// sides are normalised before use.
func New(products []Product, aliases map[string]string) (*Catalog, error) {
	c := &Catalog{
		products: make([]Product, 0, len(products)),
		byName:   make(map[string]int, len(products)),
		aliases:  make(map[string]string, len(aliases)),
	}
	for _, p := range products {
		key := Normalize(p.Name)
		if key == "" {
			return nil, fmt.Errorf("catalog: empty product name")
		}
		if p.UnitPrice <= 0 {
			return nil, fmt.Errorf("%w: %s", ErrInvalidPrice, p.Name)
		}
		if _, dup := c.byName[key]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateName, p.Name)
		}
		p.Name = key
		if p.Display.Label == "" {
			p.Display.Label = key
		}
		c.byName[key] = len(c.products)
		c.products = append(c.products, p)
	}
	for alias, canonical := range aliases {
		a, target := Normalize(alias), Normalize(canonical)
		if _, ok := c.byName[target]; !ok {
			return nil, fmt.Errorf("%w: alias %q points to %q", ErrUnknownProduct, alias, canonical)
		}
		if _, clash := c.byName[a]; clash && a != target {
			return nil, fmt.Errorf("%w: alias %q", ErrDuplicateName, alias)
		}
		c.aliases[a] = target
	}
	return c, nil
}

// MustNew is like New but panics on an invalid table.
func MustNew(products []Product, aliases map[string]string) *Catalog {
	c, err := New(products, aliases)
	if err != nil {
		panic(err)
	}
	return c
}

// Normalize folds a display spelling into its storage form: surrounding spaces trimmed and
// full-width characters (parentheses, digits, latin letters) narrowed.
func Normalize(name string) string {
	return strings.TrimSpace(width.Narrow.String(strings.TrimSpace(name)))
}

// Resolve maps any accepted spelling of a product name to its canonical name.
func (c *Catalog) Resolve(name string) (string, error) {
	key := Normalize(name)
	if _, ok := c.byName[key]; ok {
		return key, nil
	}
	if canonical, ok := c.aliases[key]; ok {
		return canonical, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProduct, name)
}

// Lookup resolves name and returns its product.
func (c *Catalog) Lookup(name string) (Product, error) {
	canonical, err := c.Resolve(name)
	if err != nil {
		return Product{}, err
	}
	return c.products[c.byName[canonical]], nil
}

// Products returns the catalog in declaration order.
func (c *Catalog) Products() []Product {
	return append([]Product(nil), c.products...)
}

// Names returns canonical names in declaration order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.products))
	for i, p := range c.products {
		out[i] = p.Name
	}
	return out
}
