package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	c := Default()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "canonical", input: "百花蜜(300g)", want: Wildflower300g},
		{name: "full-width parentheses", input: "百花蜜（300g）", want: Wildflower300g},
		{name: "full-width digits", input: "百花蜜（５００ｇ）", want: Wildflower500g},
		{name: "surrounding spaces", input: "  百花蜜(500g) ", want: Wildflower500g},
		{name: "alias", input: "Honey-300g", want: Wildflower300g},
		{name: "full-width alias", input: "Ｈｏｎｅｙ-300g", want: Wildflower300g},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Resolve(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("unknown", func(t *testing.T) {
		_, err := c.Resolve("アカシア蜜(300g)")
		assert.ErrorIs(t, err, ErrUnknownProduct)
	})
}

func TestNew(t *testing.T) {
	t.Run("display spellings collapse to one product", func(t *testing.T) {
		_, err := New([]Product{
			{Name: "百花蜜(300g)", UnitPrice: 1500},
			{Name: "百花蜜（300g）", UnitPrice: 1500},
		}, nil)
		assert.ErrorIs(t, err, ErrDuplicateName)
	})

	t.Run("alias must point at a product", func(t *testing.T) {
		_, err := New(DefaultProducts(), map[string]string{"Honey-1kg": "百花蜜(1kg)"})
		assert.ErrorIs(t, err, ErrUnknownProduct)
	})

	t.Run("price must be positive", func(t *testing.T) {
		_, err := New([]Product{{Name: "百花蜜(300g)"}}, nil)
		assert.ErrorIs(t, err, ErrInvalidPrice)
	})

	t.Run("names keep declaration order", func(t *testing.T) {
		c := Default()
		assert.Equal(t, []string{Wildflower300g, Wildflower500g}, c.Names())

		p, err := c.Lookup("百花蜜（500g）")
		require.NoError(t, err)
		assert.EqualValues(t, 2300, p.UnitPrice)
		assert.Equal(t, "stock-500g", p.Display.StockID)
	})
}
