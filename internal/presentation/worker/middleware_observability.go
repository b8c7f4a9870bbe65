package workerpresentation

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/Zhima-Mochi/honeyshop/internal/observability"
	"github.com/Zhima-Mochi/honeyshop/internal/observability/logctx"
)

// WithEventContext injects a run-scoped logger for background executions: a run_id (taken
// from attrs or generated), trace/span ids of the span already on ctx, and the remaining
// low-cardinality attrs such as use_case or trigger.
func WithEventContext(ctx context.Context, base observability.Logger, attrs map[string]string) context.Context {
	if base == nil {
		base = observability.NopLogger()
	}

	runID := attrs["run_id"]
	if runID == "" {
		runID = uuid.NewString()
	}
	fields := make([]observability.Field, 0, len(attrs)+3)
	fields = append(fields, observability.F("run_id", runID))

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}
	for k, v := range attrs {
		if k == "run_id" || v == "" {
			continue
		}
		fields = append(fields, observability.F(k, v))
	}

	return logctx.With(ctx, base.With(fields...))
}
