package inventory

import (
	"context"
	"time"

	"github.com/Zhima-Mochi/honeyshop/internal/application"
	"github.com/Zhima-Mochi/honeyshop/internal/observability"
	"github.com/Zhima-Mochi/honeyshop/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	inventoryService        = "inventory-service"
	useCaseInventoryRefresh = "inventory.refresh"
	spanPrefix              = "UC."
	refreshSpanName         = "RefreshInventory"
)

// Refresh triggers.
const (
	TriggerStartup  = "startup"
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
)

// RefreshCommand asks for one refresh of the inventory store.
type RefreshCommand struct {
	Trigger string
}

// Refresher is the store operation the use case wraps.
type Refresher interface {
	Refresh(ctx context.Context) RefreshResult
}

type RefreshInventoryUseCase struct {
	store        Refresher
	log          observability.Logger
	tracer       observability.Tracer
	reqCounter   observability.Counter
	durHistogram observability.Histogram
}

var _ application.UseCase[RefreshCommand, *RefreshResult] = (*RefreshInventoryUseCase)(nil)

func NewRefreshInventoryUseCase(store Refresher, tel observability.Observability) *RefreshInventoryUseCase {
	if tel == nil {
		tel = observability.Nop()
	}
	return &RefreshInventoryUseCase{
		store:        store,
		log:          tel.Logger().With(observability.F("service", inventoryService)),
		tracer:       tel.Tracer(),
		reqCounter:   tel.Metrics().Counter(observability.MUsecaseRequests),
		durHistogram: tel.Metrics().Histogram(observability.MUsecaseDuration),
	}
}

// Execute refreshes the store. A failed fetch is not an error here: it is reported through
// RefreshResult.Degraded so the schedule keeps running.
func (uc *RefreshInventoryUseCase) Execute(ctx context.Context, cmd RefreshCommand) (_ *RefreshResult, err error) {
	logger := logctx.FromOr(ctx, uc.log).With(
		observability.F("use_case", useCaseInventoryRefresh),
		observability.F("trigger", cmd.Trigger),
	)

	ctx, span := uc.tracer.Start(ctx, spanPrefix+refreshSpanName,
		attribute.String("use_case", useCaseInventoryRefresh),
		attribute.String("inventory.trigger", cmd.Trigger),
	)
	start := time.Now()
	outcome, statusText := application.OutcomeSuccess, "OK"
	var result RefreshResult

	defer func() {
		if result.Err != nil {
			span.RecordError(result.Err)
			span.SetStatus(codes.Error, statusText)
		} else {
			span.SetStatus(codes.Ok, statusText)
		}
		span.End()

		latency := time.Since(start).Seconds()
		uc.reqCounter.Add(1,
			observability.L("use_case", useCaseInventoryRefresh),
			observability.L("outcome", outcome),
		)
		uc.durHistogram.Observe(latency,
			observability.L("use_case", useCaseInventoryRefresh),
		)

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", statusText),
			observability.F("latency_seconds", latency),
			observability.F("updated", result.Updated),
		}
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			fields = append(fields,
				observability.F("trace_id", sc.TraceID().String()),
				observability.F("span_id", sc.SpanID().String()),
			)
		}
		if len(result.Skipped) > 0 {
			fields = append(fields, observability.F("skipped", result.Skipped))
		}
		if result.Err != nil {
			fields = append(fields, observability.F("error", result.Err.Error()))
		}
		logger.Info("use_case_done", fields...)
	}()

	result = uc.store.Refresh(logctx.With(ctx, logger))
	if result.Degraded {
		outcome, statusText = application.OutcomeDegraded, "FETCH_FAILED"
	} else {
		span.AddEvent("inventory.refreshed",
			trace.WithAttributes(attribute.Int("inventory.updated", result.Updated)),
		)
	}

	return &result, nil
}
