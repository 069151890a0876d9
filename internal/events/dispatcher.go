// Package events records business telemetry events.
package events

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/dhawalhost/manageusers/pkg/observability"
)

// Dispatcher publishes telemetry events to the log, the metrics registry and
// the active trace span.
type Dispatcher struct {
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewDispatcher creates a new event dispatcher. metrics may be nil.
func NewDispatcher(logger *zap.Logger, metrics *observability.Metrics) *Dispatcher {
	return &Dispatcher{logger: logger, metrics: metrics}
}

// Track records one event with its properties.
func (d *Dispatcher) Track(ctx context.Context, name string, properties map[string]string) {
	keys := make([]string, 0, len(properties))
	for k := range properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]zap.Field, 0, len(keys)+1)
	attrs := make([]attribute.KeyValue, 0, len(keys))
	fields = append(fields, zap.String("event", name))
	for _, k := range keys {
		fields = append(fields, zap.String(k, properties[k]))
		attrs = append(attrs, attribute.String(k, properties[k]))
	}

	d.logger.Info("telemetry event", fields...)
	if d.metrics != nil {
		d.metrics.TelemetryEvents.WithLabelValues(name).Inc()
	}
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}
