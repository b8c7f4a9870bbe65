package cart

import "time"

// Actions carried by ChangedEvent.
const (
	ActionAdd       = "add"
	ActionChange    = "change_quantity"
	ActionRemove    = "remove"
	ActionReconcile = "reconcile"
)

// ChangedEvent is the full cart state after a mutation. Summary values are derived by the
// pricing package at publish time.
type ChangedEvent struct {
	SessionID   string
	Action      string
	ProductName string
	Lines       []Line
	ItemCount   int
	Subtotal    int64
	ShippingFee int64
	Total       int64
	OccurredAt  time.Time
}

func (ChangedEvent) EventName() string { return "cart.changed" }

// RejectedEvent reports a mutation refused for stock reasons.
type RejectedEvent struct {
	SessionID   string
	Action      string
	ProductName string
	Reason      string
	OccurredAt  time.Time
}

func (RejectedEvent) EventName() string { return "cart.rejected" }

func NewRejectedEvent(sessionID, action, productName, reason string) RejectedEvent {
	return RejectedEvent{
		SessionID:   sessionID,
		Action:      action,
		ProductName: productName,
		Reason:      reason,
		OccurredAt:  time.Now().UTC(),
	}
}
