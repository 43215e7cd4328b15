package notify

import (
	"context"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/MikeMC777/tienda-ecom/internal/metrics"
)

// Dispatcher queues receipts and sends them from a small worker pool. Enqueue
// never blocks: a full queue drops the receipt and logs it. Consecutive send
// failures open the breaker so a dead broker is not hammered.
type Dispatcher struct {
	sender  Sender
	log     *zap.Logger
	metrics *metrics.Metrics
	breaker *gobreaker.CircuitBreaker[struct{}]
	queue   chan Receipt
	workers int
	timeout time.Duration

	mu        sync.RWMutex
	closed    bool
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

type DispatcherOption func(*Dispatcher)

func WithWorkers(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

func WithQueueSize(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queue = make(chan Receipt, n)
		}
	}
}

func WithMetrics(m *metrics.Metrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

func WithSendTimeout(t time.Duration) DispatcherOption {
	return func(d *Dispatcher) { d.timeout = t }
}

func NewDispatcher(sender Sender, log *zap.Logger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		sender:  sender,
		log:     log,
		queue:   make(chan Receipt, 256),
		workers: 2,
		timeout: 5 * time.Second,
	}
	for _, o := range opts {
		o(d)
	}
	d.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "receipt-sender",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 5 },
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("breaker_state_changed",
				zap.String("breaker", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
	return d
}

func (d *Dispatcher) Start() {
	d.startOnce.Do(func() {
		for i := 0; i < d.workers; i++ {
			d.wg.Add(1)
			go d.work()
		}
	})
}

// Enqueue hands r to the workers. It reports false if r was dropped.
func (d *Dispatcher) Enqueue(r Receipt) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.drop(r, "dispatcher_stopped")
		return false
	}
	select {
	case d.queue <- r:
		return true
	default:
		d.drop(r, "queue_full")
		return false
	}
}

func (d *Dispatcher) drop(r Receipt, reason string) {
	d.metrics.Receipt("dropped")
	d.log.Warn("receipt_dropped", zap.String("order_id", r.OrderID), zap.String("reason", reason))
}

// Stop closes the queue and waits for the workers to drain it or for ctx to
// expire, whichever comes first.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.stopOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for r := range d.queue {
		d.send(r)
	}
}

func (d *Dispatcher) send(r Receipt) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	_, err := d.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, d.sender.Send(ctx, r)
	})
	if err != nil {
		d.metrics.Receipt("failed")
		d.log.Error("receipt_send_failed", zap.String("order_id", r.OrderID), zap.Error(err))
		return
	}
	d.metrics.Receipt("sent")
	d.log.Info("receipt_sent", zap.String("order_id", r.OrderID))
}
