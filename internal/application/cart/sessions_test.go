package cart

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/Zhima-Mochi/honeyshop/internal/domain/catalog"
)

func TestSessions(t *testing.T) {
	t.Run("new mints an id and registers the cart", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		ids := NewMockIDGenerator(ctrl)
		ids.EXPECT().NewID().Return("a")

		sessions := NewSessions(ids, catalog.Default(), newStock(nil), nil, nil, 0)
		id, svc := sessions.New()

		assert.Equal(t, "a", id)
		assert.Same(t, svc, sessions.Get("a"))
		assert.Equal(t, 1, sessions.Len())
	})

	t.Run("valid delegates to the generator", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		ids := NewMockIDGenerator(ctrl)
		ids.EXPECT().Valid("good").Return(true)
		ids.EXPECT().Valid("bad").Return(false)

		sessions := NewSessions(ids, catalog.Default(), newStock(nil), nil, nil, 0)

		assert.True(t, sessions.Valid("good"))
		assert.False(t, sessions.Valid("bad"))
		assert.False(t, sessions.Valid(""))
	})

	t.Run("carts are isolated per session", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		sessions := NewSessions(NewMockIDGenerator(ctrl), catalog.Default(),
			newStock(map[string]int{catalog.Wildflower300g: 3}), nil, nil, 0)

		_, err := sessions.Get("a").Add(context.Background(), catalog.Wildflower300g)
		require.NoError(t, err)

		assert.Equal(t, 1, sessions.Get("a").Snapshot().ItemCount)
		assert.True(t, sessions.Get("b").Snapshot().Empty())
		all := sessions.All()
		require.Len(t, all, 2)
		assert.Equal(t, "a", all[0].SessionID())
	})

	t.Run("sweep drops idle sessions", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		sessions := NewSessions(NewMockIDGenerator(ctrl), catalog.Default(), newStock(nil), nil, nil, time.Hour)
		sessions.Get("a")

		assert.Equal(t, 0, sessions.Sweep(time.Now()))
		assert.Equal(t, 1, sessions.Sweep(time.Now().Add(2*time.Hour)))
		assert.Equal(t, 0, sessions.Len())
	})

	t.Run("zero ttl keeps sessions", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		sessions := NewSessions(NewMockIDGenerator(ctrl), catalog.Default(), newStock(nil), nil, nil, 0)
		sessions.Get("a")

		assert.Equal(t, 0, sessions.Sweep(time.Now().Add(24*time.Hour)))
	})
}
