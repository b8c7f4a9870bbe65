package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/Zhima-Mochi/honeyshop/internal/application"
	domcart "github.com/Zhima-Mochi/honeyshop/internal/domain/cart"
	domcheckout "github.com/Zhima-Mochi/honeyshop/internal/domain/checkout"
	"github.com/Zhima-Mochi/honeyshop/internal/domain/pricing"
	"github.com/Zhima-Mochi/honeyshop/internal/observability"
	"github.com/Zhima-Mochi/honeyshop/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	checkoutService     = "checkout-service"
	useCaseCheckoutLink = "checkout.build_link"
	spanPrefix          = "UC."
)

var ErrEmptyCart = domcheckout.ErrEmptyCart

// LinkBuilder renders cart lines into the order form handoff URL.
type LinkBuilder interface {
	Build(lines []domcart.Line) (string, error)
}

type BuildLinkCommand struct {
	SessionID string
	Lines     []domcart.Line
}

type BuildLinkResult struct {
	URL     string
	Summary pricing.Summary
}

// BuildLinkUseCase produces the handoff URL for a cart snapshot. It performs no network call.
type BuildLinkUseCase struct {
	builder LinkBuilder

	log          observability.Logger
	tracer       observability.Tracer
	reqCounter   observability.Counter
	durHistogram observability.Histogram
}

var _ application.UseCase[BuildLinkCommand, *BuildLinkResult] = (*BuildLinkUseCase)(nil)

func NewBuildLinkUseCase(builder LinkBuilder, tel observability.Observability) *BuildLinkUseCase {
	if tel == nil {
		tel = observability.Nop()
	}
	return &BuildLinkUseCase{
		builder:      builder,
		log:          tel.Logger().With(observability.F("service", checkoutService)),
		tracer:       tel.Tracer(),
		reqCounter:   tel.Metrics().Counter(observability.MUsecaseRequests),
		durHistogram: tel.Metrics().Histogram(observability.MUsecaseDuration),
	}
}

func (uc *BuildLinkUseCase) Execute(ctx context.Context, cmd BuildLinkCommand) (_ *BuildLinkResult, err error) {
	ctx, logger := logctx.Enrich(ctx, uc.log,
		observability.F("use_case", useCaseCheckoutLink),
		observability.F("session_id", cmd.SessionID),
	)
	ctx, span := uc.tracer.Start(ctx, spanPrefix+"BuildCheckoutLink",
		attribute.String("use_case", useCaseCheckoutLink),
		attribute.Int("checkout.lines", len(cmd.Lines)),
	)
	start := time.Now()
	outcome, status := application.OutcomeSuccess, "OK"
	summary := pricing.Calculate(cmd.Lines)

	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, status)
		} else {
			span.SetStatus(codes.Ok, status)
		}
		span.End()

		latency := time.Since(start).Seconds()
		uc.reqCounter.Add(1,
			observability.L("use_case", useCaseCheckoutLink),
			observability.L("outcome", outcome),
		)
		uc.durHistogram.Observe(latency, observability.L("use_case", useCaseCheckoutLink))

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", status),
			observability.F("latency_seconds", latency),
			observability.F("item_count", summary.ItemCount),
			observability.F("total", summary.Total),
		}
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			fields = append(fields,
				observability.F("trace_id", sc.TraceID().String()),
				observability.F("span_id", sc.SpanID().String()),
			)
		}
		logger.Info("use_case_done", fields...)
	}()

	link, err := uc.builder.Build(cmd.Lines)
	if err != nil {
		if errors.Is(err, domcheckout.ErrEmptyCart) {
			outcome, status = application.OutcomeRejected, "EMPTY_CART"
		} else {
			outcome, status = application.OutcomeError, "BUILD_FAILED"
		}
		return nil, err
	}

	return &BuildLinkResult{URL: link, Summary: summary}, nil
}
