package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Zhima-Mochi/honeyshop/internal/application"
	"github.com/Zhima-Mochi/honeyshop/internal/domain/catalog"
	domcart "github.com/Zhima-Mochi/honeyshop/internal/domain/cart"
	domoutbox "github.com/Zhima-Mochi/honeyshop/internal/domain/outbox"
	"github.com/Zhima-Mochi/honeyshop/internal/domain/pricing"
	"github.com/Zhima-Mochi/honeyshop/internal/observability"
	"github.com/Zhima-Mochi/honeyshop/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	cartService = "cart-service"
	spanPrefix  = "UC."

	useCaseCartAdd       = "cart.add"
	useCaseCartChange    = "cart.change_quantity"
	useCaseCartRemove    = "cart.remove"
	useCaseCartReconcile = "cart.reconcile"
)

var (
	ErrUnknownProduct     = catalog.ErrUnknownProduct
	ErrOutOfStock         = domcart.ErrOutOfStock
	ErrStockLimitExceeded = domcart.ErrStockLimitExceeded
)

// Service owns one session's cart. The mutex is held from mutation through the synchronous
// cart.changed notification, so subscribers always observe mutations in order.
type Service struct {
	sessionID string
	catalog   *catalog.Catalog
	publisher domoutbox.Publisher

	log          observability.Logger
	tracer       observability.Tracer
	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}

	mu         sync.Mutex
	cart       *domcart.Cart
	lastActive time.Time
}

// NewService creates an empty cart for sessionID. publisher must deliver synchronously.
func NewService(
	sessionID string,
	cat *catalog.Catalog,
	stock StockReader,
	publisher domoutbox.Publisher,
	tel observability.Observability,
) *Service {
	if tel == nil {
		tel = observability.Nop()
	}
	if publisher == nil {
		publisher = domoutbox.NopPublisher()
	}
	return &Service{
		sessionID: sessionID,
		catalog:   cat,
		publisher: publisher,
		log: tel.Logger().With(
			observability.F("service", cartService),
			observability.F("session_id", sessionID),
		),
		tracer:       tel.Tracer(),
		reqCounter:   tel.Metrics().Counter(observability.MUsecaseRequests),
		durHistogram: tel.Metrics().Histogram(observability.MUsecaseDuration),
		cart:         domcart.New(stock),
		lastActive:   time.Now(),
	}
}

func (s *Service) SessionID() string { return s.sessionID }

// LastActive is the time of the last user mutation or read.
func (s *Service) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Snapshot prices the current lines.
func (s *Service) Snapshot() pricing.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()
	return pricing.Calculate(s.cart.Lines())
}

// Add puts one unit of the product named displayName in the cart.
func (s *Service) Add(ctx context.Context, displayName string) (pricing.Summary, error) {
	return s.mutate(ctx, useCaseCartAdd, domcart.ActionAdd, displayName,
		func(product catalog.Product) (bool, error) {
			if err := s.cart.Add(product.Name, product.UnitPrice); err != nil {
				return false, err
			}
			return true, nil
		})
}

// ChangeQuantity moves the line's quantity by delta; a missing line is a no-op.
func (s *Service) ChangeQuantity(ctx context.Context, displayName string, delta int) (pricing.Summary, error) {
	return s.mutate(ctx, useCaseCartChange, domcart.ActionChange, displayName,
		func(product catalog.Product) (bool, error) {
			return s.cart.ChangeQuantity(product.Name, delta)
		})
}

// Remove drops the product's line. Removing an absent line succeeds without notifying.
func (s *Service) Remove(ctx context.Context, displayName string) (pricing.Summary, error) {
	return s.mutate(ctx, useCaseCartRemove, domcart.ActionRemove, displayName,
		func(product catalog.Product) (bool, error) {
			return s.cart.Remove(product.Name), nil
		})
}

// Reconcile clamps the cart to current stock and notifies once when anything changed.
func (s *Service) Reconcile(ctx context.Context) ([]domcart.Adjustment, error) {
	var adjustments []domcart.Adjustment
	err := s.instrument(ctx, useCaseCartReconcile, "", func(ctx context.Context, logger observability.Logger) (string, error) {
		s.mu.Lock()
		defer s.mu.Unlock()

		adjustments = s.cart.Reconcile()
		if len(adjustments) == 0 {
			return application.OutcomeSuccess, nil
		}
		for _, a := range adjustments {
			logger.Info("cart_line_clamped",
				observability.F("product", a.ProductName),
				observability.F("from", a.From),
				observability.F("to", a.To),
			)
		}
		s.notifyChanged(ctx, logger, domcart.ActionReconcile, "", pricing.Calculate(s.cart.Lines()))
		return application.OutcomeSuccess, nil
	})
	return adjustments, err
}

func (s *Service) mutate(
	ctx context.Context,
	useCase, action, displayName string,
	apply func(product catalog.Product) (bool, error),
) (pricing.Summary, error) {
	var summary pricing.Summary
	err := s.instrument(ctx, useCase, displayName, func(ctx context.Context, logger observability.Logger) (string, error) {
		product, err := s.catalog.Lookup(displayName)
		if err != nil {
			return application.OutcomeRejected, err
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		s.lastActive = time.Now()

		changed, err := apply(product)
		summary = pricing.Calculate(s.cart.Lines())
		if err != nil {
			if errors.Is(err, domcart.ErrOutOfStock) || errors.Is(err, domcart.ErrStockLimitExceeded) {
				s.publish(ctx, logger, domcart.NewRejectedEvent(s.sessionID, action, product.Name, err.Error()))
				return application.OutcomeRejected, err
			}
			return application.OutcomeError, err
		}
		if changed {
			s.notifyChanged(ctx, logger, action, product.Name, summary)
		}
		return application.OutcomeSuccess, nil
	})
	return summary, err
}

// instrument wraps fn in the use case span, RED metrics and the use_case_done log.
func (s *Service) instrument(
	ctx context.Context,
	useCase, product string,
	fn func(ctx context.Context, logger observability.Logger) (string, error),
) error {
	fields := []observability.Field{observability.F("use_case", useCase)}
	if product != "" {
		fields = append(fields, observability.F("product", product))
	}
	ctx, logger := logctx.Enrich(ctx, s.log, fields...)

	ctx, span := s.tracer.Start(ctx, spanPrefix+useCase,
		attribute.String("use_case", useCase),
		attribute.String("cart.session_id", s.sessionID),
	)
	start := time.Now()

	outcome, err := fn(ctx, logger)

	status := "OK"
	if err != nil {
		status = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, status)
	} else {
		span.SetStatus(codes.Ok, status)
	}
	span.End()

	latency := time.Since(start).Seconds()
	s.reqCounter.Add(1,
		observability.L("use_case", useCase),
		observability.L("outcome", outcome),
	)
	s.durHistogram.Observe(latency, observability.L("use_case", useCase))

	done := []observability.Field{
		observability.F("outcome", outcome),
		observability.F("status", status),
		observability.F("latency_seconds", latency),
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		done = append(done,
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}
	logger.Info("use_case_done", done...)
	return err
}

func (s *Service) notifyChanged(ctx context.Context, logger observability.Logger, action, productName string, summary pricing.Summary) {
	s.publish(ctx, logger, domcart.ChangedEvent{
		SessionID:   s.sessionID,
		Action:      action,
		ProductName: productName,
		Lines:       summary.Lines,
		ItemCount:   summary.ItemCount,
		Subtotal:    summary.Subtotal,
		ShippingFee: summary.ShippingFee,
		Total:       summary.Total,
		OccurredAt:  time.Now().UTC(),
	})
}

func (s *Service) publish(ctx context.Context, logger observability.Logger, e domoutbox.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		logger.Warn("cart_event_publish_failed",
			observability.F("event", e.EventName()),
			observability.F("error", err),
		)
	}
}
