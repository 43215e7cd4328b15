package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel"

	"github.com/MikeMC777/tienda-ecom/internal/apperr"
)

func TestUseCaseRecordsOutcome(t *testing.T) {
	m := New(prometheus.NewRegistry())
	tracer := otel.Tracer("test")

	_, done := m.UseCase(context.Background(), tracer, "cart.add_item")
	done(nil)
	_, done = m.UseCase(context.Background(), tracer, "cart.add_item")
	done(apperr.Invalid("bad quantity"))
	_, done = m.UseCase(context.Background(), tracer, "cart.add_item")
	done(errors.New("db down"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.UseCaseRequests.WithLabelValues("cart.add_item", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UseCaseRequests.WithLabelValues("cart.add_item", "invalid_input")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UseCaseRequests.WithLabelValues("cart.add_item", "internal")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics

	_, done := m.UseCase(context.Background(), otel.Tracer("test"), "order.create")
	done(nil)
	m.JobDone("cart_purge", 3, nil)
	m.Receipt("sent")
}

func TestJobDone(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.JobDone("order_promote_pending", 4, nil)
	m.JobDone("order_promote_pending", 0, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.JobRuns.WithLabelValues("order_promote_pending", "success")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.JobAffected.WithLabelValues("order_promote_pending")))
}
