package observability

import (
	"github.com/Zhima-Mochi/honeyshop/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/honeyshop/internal/observability"
)

type provider struct {
	tracer  observability.Tracer
	logger  observability.Logger
	metrics observability.Metrics
}

type registeredMetrics struct {
	counters   map[observability.MetricKey]observability.Counter
	histograms map[observability.MetricKey]observability.Histogram
	gauges     map[observability.MetricKey]observability.Gauge
}

func (m *registeredMetrics) Counter(name observability.MetricKey) observability.Counter {
	if c, ok := m.counters[name]; ok && c != nil {
		return c
	}
	return observability.NopCounter()
}

func (m *registeredMetrics) Histogram(name observability.MetricKey) observability.Histogram {
	if h, ok := m.histograms[name]; ok && h != nil {
		return h
	}
	return observability.NopHistogram()
}

func (m *registeredMetrics) Gauge(name observability.MetricKey) observability.Gauge {
	if g, ok := m.gauges[name]; ok && g != nil {
		return g
	}
	return observability.NopGauge()
}

// Instruments groups the metric instruments handed to New.
type Instruments struct {
	Counters   map[observability.MetricKey]observability.Counter
	Histograms map[observability.MetricKey]observability.Histogram
	Gauges     map[observability.MetricKey]observability.Gauge
}

// New assembles an Observability provider backed by the supplied tracer, logger, and metric instruments.
func New(tracer observability.Tracer, logger observability.Logger, in Instruments) observability.Observability {
	if tracer == nil {
		tracer = observability.NopTracer()
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	m := &registeredMetrics{
		counters:   make(map[observability.MetricKey]observability.Counter, len(in.Counters)),
		histograms: make(map[observability.MetricKey]observability.Histogram, len(in.Histograms)),
		gauges:     make(map[observability.MetricKey]observability.Gauge, len(in.Gauges)),
	}
	for k, v := range in.Counters {
		if v != nil {
			m.counters[k] = v
		}
	}
	for k, v := range in.Histograms {
		if v != nil {
			m.histograms[k] = v
		}
	}
	for k, v := range in.Gauges {
		if v != nil {
			m.gauges[k] = v
		}
	}

	return &provider{
		tracer:  tracer,
		logger:  logger,
		metrics: m,
	}
}

// RegisterInstruments creates every metric the service reports on the given registry.
func RegisterInstruments(r prometrics.Registry) Instruments {
	return Instruments{
		Counters: map[observability.MetricKey]observability.Counter{
			observability.MUsecaseRequests:  r.Counter(string(observability.MUsecaseRequests), "Total number of use case invocations.", "use_case", "outcome"),
			observability.MHTTPRequests:     r.Counter(string(observability.MHTTPRequests), "Total number of HTTP requests.", "method", "route", "status"),
			observability.MExternalRequests: r.Counter(string(observability.MExternalRequests), "Total number of calls to external dependencies.", "peer", "endpoint", "outcome"),
			observability.MCartEvents:       r.Counter(string(observability.MCartEvents), "Cart events observed by the analytics hook.", "event", "action"),
		},
		Histograms: map[observability.MetricKey]observability.Histogram{
			observability.MUsecaseDuration:         r.Histogram(string(observability.MUsecaseDuration), "Duration of use case execution in seconds.", nil, "use_case"),
			observability.MHTTPRequestDuration:     r.Histogram(string(observability.MHTTPRequestDuration), "Duration of HTTP requests in seconds.", nil, "method", "route", "status"),
			observability.MExternalRequestDuration: r.Histogram(string(observability.MExternalRequestDuration), "Duration of calls to external dependencies in seconds.", nil, "peer", "endpoint"),
		},
		Gauges: map[observability.MetricKey]observability.Gauge{
			observability.MInventoryStockLevel: r.Gauge(string(observability.MInventoryStockLevel), "Last known stock per canonical product.", "product"),
			observability.MInventoryDegraded:   r.Gauge(string(observability.MInventoryDegraded), "1 while the inventory store serves possibly stale stock."),
			observability.MCartSessions:        r.Gauge(string(observability.MCartSessions), "Live cart sessions after the last sweep."),
		},
	}
}

func (p *provider) Tracer() observability.Tracer {
	return p.tracer
}

func (p *provider) Logger() observability.Logger {
	return p.logger
}

func (p *provider) Metrics() observability.Metrics {
	if p.metrics == nil {
		return observability.NopMetrics()
	}
	return p.metrics
}
