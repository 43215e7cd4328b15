package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

// SetupTracing installs the global TracerProvider. Root spans are sampled at
// ratio and finished spans are written to log as span_finished entries. A
// ratio <= 0 keeps the no-op provider. The returned func flushes and stops it.
func SetupTracing(service string, ratio float64, log *zap.Logger) func(context.Context) error {
	if ratio <= 0 {
		return func(context.Context) error { return nil }
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
		sdktrace.WithBatcher(NewLogExporter(log)),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", service))),
	)
	otel.SetTracerProvider(tp)
	log.Info("tracing_enabled", zap.Float64("sample_ratio", ratio))
	return tp.Shutdown
}

// LogExporter is a sdktrace.SpanExporter that logs every span.
type LogExporter struct{ log *zap.Logger }

func NewLogExporter(log *zap.Logger) *LogExporter { return &LogExporter{log: log} }

func (e *LogExporter) ExportSpans(_ context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, s := range spans {
		sc := s.SpanContext()
		fields := []zap.Field{
			zap.String("span", s.Name()),
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
			zap.Duration("duration", s.EndTime().Sub(s.StartTime())),
			zap.String("status", s.Status().Code.String()),
		}
		if p := s.Parent(); p.IsValid() {
			fields = append(fields, zap.String("parent_span_id", p.SpanID().String()))
		}
		for _, kv := range s.Attributes() {
			fields = append(fields, zap.String(string(kv.Key), kv.Value.Emit()))
		}
		e.log.Info("span_finished", fields...)
	}
	return nil
}

func (e *LogExporter) Shutdown(context.Context) error { return nil }
