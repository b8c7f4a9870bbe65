package analytics

import (
	"context"

	domcart "github.com/Zhima-Mochi/honeyshop/internal/domain/cart"
	domoutbox "github.com/Zhima-Mochi/honeyshop/internal/domain/outbox"
	"github.com/Zhima-Mochi/honeyshop/internal/observability"
	"github.com/Zhima-Mochi/honeyshop/internal/observability/logctx"
)

const componentAnalytics = "analytics"

// Tracker turns cart notifications into shopper analytics: a cart_events_total sample and one
// structured log line per event. It only observes; it never changes cart state.
type Tracker struct {
	events observability.Counter // cart_events_total{event,action}
	log    observability.Logger
}

func NewTracker(tel observability.Observability) *Tracker {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Tracker{
		events: tel.Metrics().Counter(observability.MCartEvents),
		log:    tel.Logger().With(observability.F("component", componentAnalytics)),
	}
}

// Register subscribes the tracker to every cart event.
func (t *Tracker) Register(sub domoutbox.Subscriber) {
	sub.Subscribe(domcart.ChangedEvent{}.EventName(), t.handle)
	sub.Subscribe(domcart.RejectedEvent{}.EventName(), t.handle)
}

func (t *Tracker) handle(ctx context.Context, e domoutbox.Event) error {
	logger := logctx.FromOr(ctx, t.log)

	switch evt := e.(type) {
	case domcart.ChangedEvent:
		t.events.Add(1,
			observability.L("event", evt.EventName()),
			observability.L("action", evt.Action),
		)
		logger.Info("cart_changed",
			observability.F("session_id", evt.SessionID),
			observability.F("action", evt.Action),
			observability.F("product", evt.ProductName),
			observability.F("item_count", evt.ItemCount),
			observability.F("subtotal", evt.Subtotal),
			observability.F("shipping_fee", evt.ShippingFee),
			observability.F("total", evt.Total),
		)
	case domcart.RejectedEvent:
		t.events.Add(1,
			observability.L("event", evt.EventName()),
			observability.L("action", evt.Action),
		)
		logger.Info("cart_rejected",
			observability.F("session_id", evt.SessionID),
			observability.F("action", evt.Action),
			observability.F("product", evt.ProductName),
			observability.F("reason", evt.Reason),
		)
	}
	return nil
}
