package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/MikeMC777/tienda-ecom/internal/logging"
	"github.com/MikeMC777/tienda-ecom/internal/metrics"
)

type stubJob struct {
	name     string
	affected int64
	err      error
	sawLog   bool
	deadline bool
}

func (j *stubJob) Name() string { return j.name }

func (j *stubJob) Run(ctx context.Context) (int64, error) {
	_, j.deadline = ctx.Deadline()
	j.sawLog = logging.FromContext(ctx) != zap.L()
	return j.affected, j.err
}

func TestRunNow_RecordsOutcome(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := metrics.New(prometheus.NewRegistry())
	s := New(zap.New(core), WithMetrics(m), WithJobTimeout(time.Second))

	ok := &stubJob{name: "cart_purge_empty", affected: 3}
	n, err := s.RunNow(context.Background(), ok)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.True(t, ok.deadline, "runs are bounded")
	assert.True(t, ok.sawLog, "job logger is in the context")

	bad := &stubJob{name: "order_promote_pending", err: errors.New("db down")}
	_, err = s.RunNow(context.Background(), bad)
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobRuns.WithLabelValues("cart_purge_empty", "success")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.JobAffected.WithLabelValues("cart_purge_empty")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobRuns.WithLabelValues("order_promote_pending", "internal")))

	assert.Len(t, logs.FilterMessage("job_run_done").All(), 1)
	assert.Len(t, logs.FilterMessage("job_run_failed").All(), 1)
}

func TestRegister_RejectsBadSpec(t *testing.T) {
	s := New(zap.NewNop())
	assert.Error(t, s.Register("every hour", &stubJob{name: "x"}))
	assert.NoError(t, s.Register("0 * * * *", &stubJob{name: "x"}))
	assert.NoError(t, s.Register("0 0 * * *", &stubJob{name: "y"}))
}

func TestStartStop(t *testing.T) {
	s := New(zap.NewNop())
	require.NoError(t, s.Register("0 * * * *", &stubJob{name: "x"}))
	s.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}
