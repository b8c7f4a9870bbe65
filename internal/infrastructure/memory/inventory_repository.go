package memory

import (
	"context"
	"sort"
	"sync"

	domain "github.com/Zhima-Mochi/honeyshop/internal/domain/inventory"
)

// InventoryRepository keeps the last known stock per canonical product in process memory.
type InventoryRepository struct {
	mu    sync.RWMutex
	items map[string]*domain.Item
}

func NewInventoryRepository() *InventoryRepository {
	return &InventoryRepository{
		items: make(map[string]*domain.Item),
	}
}

func (r *InventoryRepository) Get(ctx context.Context, productName string) (*domain.Item, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[productName]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneItem(item), nil
}

// Save overwrites the stored item; concurrent refreshes resolve last-writer-wins per product.
func (r *InventoryRepository) Save(ctx context.Context, item *domain.Item) error {
	_ = ctx
	if item == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[item.ProductName] = cloneItem(item)
	return nil
}

// List returns all items ordered by product name.
func (r *InventoryRepository) List(ctx context.Context) ([]*domain.Item, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Item, 0, len(r.items))
	for _, item := range r.items {
		out = append(out, cloneItem(item))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductName < out[j].ProductName })
	return out, nil
}

func cloneItem(item *domain.Item) *domain.Item {
	if item == nil {
		return nil
	}
	clone := *item
	return &clone
}
