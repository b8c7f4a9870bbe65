package inventory

import "time"

// StockUpdatedEvent carries the badge state of one product after a refresh attempt.
type StockUpdatedEvent struct {
	ProductName string
	Quantity    int
	Status      Status
	OccurredAt  time.Time
}

func (StockUpdatedEvent) EventName() string { return "inventory.stock_updated" }

func NewStockUpdatedEvent(productName string, quantity int, status Status) StockUpdatedEvent {
	return StockUpdatedEvent{
		ProductName: productName,
		Quantity:    quantity,
		Status:      status,
		OccurredAt:  time.Now().UTC(),
	}
}

// RefreshedEvent is emitted after a successful refresh, once all products are updated.
type RefreshedEvent struct {
	Products   int
	Skipped    []string
	OccurredAt time.Time
}

func (RefreshedEvent) EventName() string { return "inventory.refreshed" }

func NewRefreshedEvent(products int, skipped []string) RefreshedEvent {
	return RefreshedEvent{
		Products:   products,
		Skipped:    skipped,
		OccurredAt: time.Now().UTC(),
	}
}

// DegradedEvent is emitted when a refresh fails and prior stock values are kept.
type DegradedEvent struct {
	Reason     string
	OccurredAt time.Time
}

func (DegradedEvent) EventName() string { return "inventory.degraded" }

func NewDegradedEvent(reason string) DegradedEvent {
	return DegradedEvent{
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	}
}
