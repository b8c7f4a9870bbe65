package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/honeyshop/internal/application"
	dominv "github.com/Zhima-Mochi/honeyshop/internal/domain/inventory"
	domoutbox "github.com/Zhima-Mochi/honeyshop/internal/domain/outbox"
	"github.com/Zhima-Mochi/honeyshop/internal/observability"
	"github.com/Zhima-Mochi/honeyshop/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	reconcilerService         = "cart_reconciler"
	useCaseReconcileInventory = "cart.worker.inventory_refreshed"
)

// Reconciler clamps every session's cart to freshly fetched stock. It reacts to
// inventory.refreshed only: a degraded refresh leaves stock untouched, so there is nothing to do.
type Reconciler struct {
	subscriber domoutbox.Subscriber
	sessions   *Sessions
	tracer     observability.Tracer

	log          observability.Logger
	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
}

func NewReconciler(subscriber domoutbox.Subscriber, sessions *Sessions, tel observability.Observability) *Reconciler {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Reconciler{
		subscriber:   subscriber,
		sessions:     sessions,
		tracer:       tel.Tracer(),
		log:          tel.Logger().With(observability.F("service", reconcilerService)),
		reqCounter:   tel.Metrics().Counter(observability.MUsecaseRequests),
		durHistogram: tel.Metrics().Histogram(observability.MUsecaseDuration),
	}
}

func (w *Reconciler) Start() {
	if w.subscriber == nil || w.sessions == nil {
		return
	}
	w.subscriber.Subscribe(dominv.RefreshedEvent{}.EventName(), w.handleRefreshed)
}

func (w *Reconciler) handleRefreshed(ctx context.Context, e domoutbox.Event) error {
	if _, ok := e.(dominv.RefreshedEvent); !ok {
		w.count(application.OutcomeIgnored)
		return nil
	}

	ctx, span := w.tracer.Start(ctx, spanPrefix+"InventoryRefreshed",
		attribute.String("use_case", useCaseReconcileInventory),
		attribute.String("event", e.EventName()),
	)
	ctx, logger := logctx.Enrich(ctx, w.log,
		observability.F("use_case", useCaseReconcileInventory),
		observability.F("event", e.EventName()),
	)
	start := time.Now()
	outcome, status := application.OutcomeSuccess, "OK"
	touched := 0

	var errs []error
	for _, svc := range w.sessions.All() {
		adjustments, err := svc.Reconcile(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("cart: reconcile session %s: %w", svc.SessionID(), err))
			continue
		}
		if len(adjustments) > 0 {
			touched++
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		outcome, status = application.OutcomeError, "RECONCILE_FAILED"
		span.RecordError(err)
		span.SetStatus(codes.Error, status)
	} else {
		span.SetStatus(codes.Ok, status)
	}
	span.End()

	latency := time.Since(start).Seconds()
	w.count(outcome)
	w.durHistogram.Observe(latency, observability.L("use_case", useCaseReconcileInventory))
	logger.Info("use_case_done",
		observability.F("outcome", outcome),
		observability.F("status", status),
		observability.F("latency_seconds", latency),
		observability.F("carts_adjusted", touched),
	)
	return err
}

func (w *Reconciler) count(outcome string) {
	w.reqCounter.Add(1,
		observability.L("use_case", useCaseReconcileInventory),
		observability.L("outcome", outcome),
	)
}
