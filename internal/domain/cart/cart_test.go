package cart

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	honey300 = "百花蜜(300g)"
	honey500 = "百花蜜(500g)"
)

type fixedStock map[string]int

func (s fixedStock) StockOf(name string) int { return s[name] }

func TestAdd(t *testing.T) {
	t.Run("adds up to stock then rejects", func(t *testing.T) {
		// given
		c := New(fixedStock{honey300: 3})

		// when
		for i := 0; i < 3; i++ {
			require.NoError(t, c.Add(honey300, 1500))
		}
		err := c.Add(honey300, 1500)

		// then
		assert.ErrorIs(t, err, ErrStockLimitExceeded)
		line, ok := c.Line(honey300)
		require.True(t, ok)
		assert.Equal(t, 3, line.Quantity)
	})

	t.Run("out of stock", func(t *testing.T) {
		c := New(fixedStock{honey300: 0})

		err := c.Add(honey300, 1500)

		assert.ErrorIs(t, err, ErrOutOfStock)
		assert.True(t, c.IsEmpty())
	})

	t.Run("unknown product is out of stock", func(t *testing.T) {
		c := New(fixedStock{})

		assert.ErrorIs(t, c.Add("アカシア蜜", 1800), ErrOutOfStock)
	})

	t.Run("keeps price captured at first add", func(t *testing.T) {
		c := New(fixedStock{honey300: 5})

		require.NoError(t, c.Add(honey300, 1500))
		require.NoError(t, c.Add(honey300, 9999))

		line, _ := c.Line(honey300)
		assert.EqualValues(t, 1500, line.UnitPrice)
		assert.EqualValues(t, 3000, line.Total())
	})

	t.Run("rejects non-positive price", func(t *testing.T) {
		c := New(fixedStock{honey300: 5})

		assert.ErrorIs(t, c.Add(honey300, 0), ErrInvalidPrice)
		assert.True(t, c.IsEmpty())
	})

	t.Run("lines keep insertion order", func(t *testing.T) {
		c := New(fixedStock{honey300: 5, honey500: 5})

		require.NoError(t, c.Add(honey500, 2300))
		require.NoError(t, c.Add(honey300, 1500))
		require.NoError(t, c.Add(honey500, 2300))

		lines := c.Lines()
		require.Len(t, lines, 2)
		assert.Equal(t, honey500, lines[0].ProductName)
		assert.Equal(t, honey300, lines[1].ProductName)
		assert.Equal(t, 3, c.TotalItemCount())
	})
}

func TestChangeQuantity(t *testing.T) {
	t.Run("large negative delta removes the line", func(t *testing.T) {
		c := New(fixedStock{honey300: 5})
		require.NoError(t, c.Add(honey300, 1500))
		require.NoError(t, c.Add(honey300, 1500))

		changed, err := c.ChangeQuantity(honey300, -100)

		require.NoError(t, err)
		assert.True(t, changed)
		assert.True(t, c.IsEmpty())
	})

	t.Run("sets quantity within stock", func(t *testing.T) {
		c := New(fixedStock{honey300: 5})
		require.NoError(t, c.Add(honey300, 1500))

		changed, err := c.ChangeQuantity(honey300, 4)

		require.NoError(t, err)
		assert.True(t, changed)
		line, _ := c.Line(honey300)
		assert.Equal(t, 5, line.Quantity)
	})

	t.Run("rejects beyond stock and leaves line", func(t *testing.T) {
		c := New(fixedStock{honey300: 2})
		require.NoError(t, c.Add(honey300, 1500))

		changed, err := c.ChangeQuantity(honey300, 2)

		assert.ErrorIs(t, err, ErrStockLimitExceeded)
		assert.False(t, changed)
		line, _ := c.Line(honey300)
		assert.Equal(t, 1, line.Quantity)
	})

	t.Run("huge positive delta is rejected without touching the line", func(t *testing.T) {
		c := New(fixedStock{honey300: 5})
		require.NoError(t, c.Add(honey300, 1500))
		require.NoError(t, c.Add(honey300, 1500))

		changed, err := c.ChangeQuantity(honey300, math.MaxInt)

		assert.ErrorIs(t, err, ErrStockLimitExceeded)
		assert.False(t, changed)
		line, ok := c.Line(honey300)
		require.True(t, ok)
		assert.Equal(t, 2, line.Quantity)
	})

	t.Run("huge negative delta removes the line", func(t *testing.T) {
		c := New(fixedStock{honey300: 5})
		require.NoError(t, c.Add(honey300, 1500))

		changed, err := c.ChangeQuantity(honey300, math.MinInt)

		require.NoError(t, err)
		assert.True(t, changed)
		assert.True(t, c.IsEmpty())
	})

	t.Run("missing line is a no-op", func(t *testing.T) {
		c := New(fixedStock{honey300: 2})

		changed, err := c.ChangeQuantity(honey300, 1)

		require.NoError(t, err)
		assert.False(t, changed)
		assert.True(t, c.IsEmpty())
	})

	t.Run("zero delta reports no change", func(t *testing.T) {
		c := New(fixedStock{honey300: 2})
		require.NoError(t, c.Add(honey300, 1500))

		changed, err := c.ChangeQuantity(honey300, 0)

		require.NoError(t, err)
		assert.False(t, changed)
	})
}

func TestRemove(t *testing.T) {
	c := New(fixedStock{honey300: 2, honey500: 2})
	require.NoError(t, c.Add(honey300, 1500))
	require.NoError(t, c.Add(honey500, 2300))

	assert.True(t, c.Remove(honey300))
	assert.False(t, c.Remove(honey300))

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, honey500, lines[0].ProductName)
}

func TestReconcile(t *testing.T) {
	stock := fixedStock{honey300: 5, honey500: 5}
	c := New(stock)
	for i := 0; i < 4; i++ {
		require.NoError(t, c.Add(honey300, 1500))
	}
	require.NoError(t, c.Add(honey500, 2300))

	// stock drops after a refresh
	stock[honey300] = 2
	stock[honey500] = 0

	adjustments := c.Reconcile()

	assert.Equal(t, []Adjustment{
		{ProductName: honey300, From: 4, To: 2},
		{ProductName: honey500, From: 1, To: 0},
	}, adjustments)
	assert.True(t, adjustments[1].Removed())
	assert.Equal(t, []Line{{ProductName: honey300, Quantity: 2, UnitPrice: 1500}}, c.Lines())
	assert.Empty(t, c.Reconcile())
}

func TestInvariantHoldsForRandomSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	names := []string{honey300, honey500, "アカシア蜜"}

	for run := 0; run < 200; run++ {
		stock := fixedStock{honey300: rng.Intn(5), honey500: rng.Intn(5)}
		c := New(stock)

		for step := 0; step < 50; step++ {
			name := names[rng.Intn(len(names))]
			before := c.Lines()
			var err error
			switch rng.Intn(3) {
			case 0:
				err = c.Add(name, 1500)
			case 1:
				_, err = c.ChangeQuantity(name, rng.Intn(9)-4)
			default:
				c.Remove(name)
			}
			if err != nil {
				assert.Equal(t, before, c.Lines(), "rejected mutation must not change the cart")
			}
			for _, l := range c.Lines() {
				assert.Greater(t, l.Quantity, 0)
				assert.LessOrEqual(t, l.Quantity, stock.StockOf(l.ProductName))
			}
		}
	}
}
