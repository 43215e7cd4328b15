// Package metrics owns the Prometheus collectors and the use-case wrapper that
// records RED metrics, an OpenTelemetry span and a completion log line.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/MikeMC777/tienda-ecom/internal/apperr"
	"github.com/MikeMC777/tienda-ecom/internal/logging"
)

type Metrics struct {
	HTTPRequests    *prometheus.CounterVec   // http_requests_total{method,route,status}
	HTTPDuration    *prometheus.HistogramVec // http_request_duration_seconds{method,route}
	UseCaseRequests *prometheus.CounterVec   // usecase_requests_total{use_case,outcome}
	UseCaseDuration *prometheus.HistogramVec // usecase_duration_seconds{use_case}
	JobRuns         *prometheus.CounterVec   // job_runs_total{job,outcome}
	JobAffected     *prometheus.CounterVec   // job_rows_affected_total{job}
	Receipts        *prometheus.CounterVec   // receipts_total{outcome}
}

// New registers every collector on reg. Passing prometheus.DefaultRegisterer
// exposes them through promhttp.Handler().
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		UseCaseRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "usecase_requests_total",
			Help: "Total number of use case invocations.",
		}, []string{"use_case", "outcome"}),
		UseCaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "usecase_duration_seconds",
			Help:    "Duration of use case execution in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"use_case"}),
		JobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "job_runs_total",
			Help: "Maintenance job executions by outcome.",
		}, []string{"job", "outcome"}),
		JobAffected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "job_rows_affected_total",
			Help: "Rows touched by maintenance jobs.",
		}, []string{"job"}),
		Receipts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "receipts_total",
			Help: "Receipt notifications by outcome (sent, failed, dropped).",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.HTTPRequests, m.HTTPDuration, m.UseCaseRequests, m.UseCaseDuration,
		m.JobRuns, m.JobAffected, m.Receipts)
	return m
}

// Outcome is "success" for nil and the apperr kind name otherwise.
func Outcome(err error) string {
	if err == nil {
		return "success"
	}
	return apperr.KindOf(err).String()
}

// UseCase opens a span named after useCase and returns the matching finisher,
// meant to be deferred with the named error result:
//
//	ctx, done := s.metrics.UseCase(ctx, tracer, "cart.add_item")
//	defer func() { done(err) }()
//
// A nil *Metrics still traces and logs.
func (m *Metrics) UseCase(ctx context.Context, tracer trace.Tracer, useCase string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := tracer.Start(ctx, useCase, trace.WithAttributes(attrs...))
	start := time.Now()
	logger := logging.FromContext(ctx)

	return ctx, func(err error) {
		lat := time.Since(start)
		outcome := Outcome(err)

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		} else {
			span.SetStatus(codes.Ok, "OK")
		}
		span.End()

		if m != nil {
			m.UseCaseRequests.WithLabelValues(useCase, outcome).Inc()
			m.UseCaseDuration.WithLabelValues(useCase).Observe(lat.Seconds())
		}

		fields := []zap.Field{
			zap.String("use_case", useCase),
			zap.String("outcome", outcome),
			zap.Duration("latency", lat),
		}
		switch {
		case err == nil:
			logger.Debug("use_case_done", fields...)
		case apperr.KindOf(err) == apperr.Internal || apperr.KindOf(err) == apperr.StockInconsistency:
			logger.Error("use_case_done", append(fields, zap.Error(err))...)
		default:
			logger.Info("use_case_done", append(fields, zap.Error(err))...)
		}
	}
}

func (m *Metrics) JobDone(job string, affected int64, err error) {
	if m == nil {
		return
	}
	m.JobRuns.WithLabelValues(job, Outcome(err)).Inc()
	if affected > 0 {
		m.JobAffected.WithLabelValues(job).Add(float64(affected))
	}
}

func (m *Metrics) Receipt(outcome string) {
	if m == nil {
		return
	}
	m.Receipts.WithLabelValues(outcome).Inc()
}
