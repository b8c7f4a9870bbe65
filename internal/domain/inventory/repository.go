package inventory

import (
	"context"
)

// Repository holds the last known stock per canonical product name.
type Repository interface {
	Get(ctx context.Context, productName string) (*Item, error)
	Save(ctx context.Context, item *Item) error
	List(ctx context.Context) ([]*Item, error)
}
