// Package telemetry defines the OpenTelemetry instruments sitelog records.
package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/thebtf/sitelog"

// Metrics holds the instruments. A nil *Metrics records nothing.
type Metrics struct {
	chatRequests  metric.Int64Counter
	chatDuration  metric.Float64Histogram
	chatTokens    metric.Int64Counter
	taskFailures  metric.Int64Counter
	httpRequests  metric.Int64Counter
	httpDurations metric.Float64Histogram
}

// New creates the instruments on mp, or on the global provider when mp is nil.
func New(mp metric.MeterProvider) (*Metrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(instrumentationName)

	var (
		m   Metrics
		err error
	)
	if m.chatRequests, err = meter.Int64Counter("sitelog.chat.requests",
		metric.WithDescription("Chat turns by outcome status")); err != nil {
		return nil, err
	}
	if m.chatDuration, err = meter.Float64Histogram("sitelog.chat.duration",
		metric.WithDescription("Chat turn latency"), metric.WithUnit("ms")); err != nil {
		return nil, err
	}
	if m.chatTokens, err = meter.Int64Counter("sitelog.chat.tokens",
		metric.WithDescription("Tokens consumed by chat completions")); err != nil {
		return nil, err
	}
	if m.taskFailures, err = meter.Int64Counter("sitelog.tasks.failures",
		metric.WithDescription("Best-effort task failures by task name")); err != nil {
		return nil, err
	}
	if m.httpRequests, err = meter.Int64Counter("sitelog.http.requests",
		metric.WithDescription("HTTP requests by route and status")); err != nil {
		return nil, err
	}
	if m.httpDurations, err = meter.Float64Histogram("sitelog.http.duration",
		metric.WithDescription("HTTP request latency"), metric.WithUnit("ms")); err != nil {
		return nil, err
	}
	return &m, nil
}

// RecordChat records one chat turn.
func (m *Metrics) RecordChat(ctx context.Context, status string, elapsed time.Duration, tokens int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("status", status))
	m.chatRequests.Add(ctx, 1, attrs)
	m.chatDuration.Record(ctx, float64(elapsed.Milliseconds()), attrs)
	if tokens > 0 {
		m.chatTokens.Add(ctx, int64(tokens))
	}
}

// RecordTaskFailure counts a failed best-effort task.
func (m *Metrics) RecordTaskFailure(ctx context.Context, task string) {
	if m == nil {
		return
	}
	m.taskFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("task", task)))
}

// Middleware records request counts and latency keyed by the chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		attrs := metric.WithAttributes(
			attribute.String("method", r.Method),
			attribute.String("route", route),
			attribute.Int("status", status),
		)
		m.httpRequests.Add(r.Context(), 1, attrs)
		m.httpDurations.Record(r.Context(), float64(time.Since(start).Milliseconds()), attrs)
	})
}
