// Package reconcile applies a verified gateway payment to the order, the
// catalog stock and the buyer's cart.
package reconcile

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/MikeMC777/tienda-ecom/internal/apperr"
	"github.com/MikeMC777/tienda-ecom/internal/keylock"
	"github.com/MikeMC777/tienda-ecom/internal/logging"
	"github.com/MikeMC777/tienda-ecom/internal/metrics"
	"github.com/MikeMC777/tienda-ecom/internal/notify"
	"github.com/MikeMC777/tienda-ecom/internal/order"
	"github.com/MikeMC777/tienda-ecom/internal/payment"
	"github.com/MikeMC777/tienda-ecom/internal/product"
)

var tracer = otel.Tracer("github.com/MikeMC777/tienda-ecom/internal/reconcile")

type Orders interface {
	GetByID(ctx context.Context, id string) (*order.Order, error)
	MarkPaid(ctx context.Context, id string, to order.Status, at time.Time) (bool, error)
	UnmarkPaid(ctx context.Context, id string) error
}

// Settler is implemented by order stores that can mark an order paid and
// decrement its stock in one transaction. Stores without it get MarkPaid,
// Reserve and UnmarkPaid on failure.
type Settler interface {
	SettlePaid(ctx context.Context, id string, to order.Status, at time.Time, lines []product.Line) (bool, error)
}

type Carts interface {
	Clear(ctx context.Context, userID string) error
}

type Notifier interface {
	Enqueue(r notify.Receipt) bool
}

// Reconciler settles paid orders. The status change and the stock decrement
// succeed together or not at all; cart clearing and the receipt are best
// effort and never fail a settled payment.
type Reconciler struct {
	orders    Orders
	inventory product.Inventory
	carts     Carts
	notifier  Notifier
	locks     *keylock.Map
	metrics   *metrics.Metrics
	settled   order.Status
	now       func() time.Time
}

type Option func(*Reconciler)

func WithMetrics(m *metrics.Metrics) Option { return func(r *Reconciler) { r.metrics = m } }

func WithClock(now func() time.Time) Option { return func(r *Reconciler) { r.now = now } }

// WithSettledStatus picks the status a paid order moves to. Shipped by default.
func WithSettledStatus(s order.Status) Option { return func(r *Reconciler) { r.settled = s } }

func New(orders Orders, inventory product.Inventory, carts Carts, notifier Notifier, opts ...Option) *Reconciler {
	r := &Reconciler{
		orders:    orders,
		inventory: inventory,
		carts:     carts,
		notifier:  notifier,
		locks:     keylock.New(),
		settled:   order.StatusShipped,
		now:       time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Apply settles tx against its order. Replaying an already settled
// transaction returns the order unchanged.
func (r *Reconciler) Apply(ctx context.Context, tx *payment.Transaction) (_ *order.Order, err error) {
	ctx, done := r.metrics.UseCase(ctx, tracer, "payment.reconcile",
		attribute.String("order_id", tx.OrderID), attribute.String("transaction_uuid", tx.TransactionUUID))
	defer func() { done(err) }()

	log := logging.FromContext(ctx).With(zap.String("order_id", tx.OrderID))

	// replays of one order wait for the first settlement to finish
	unlock := r.locks.Lock(tx.OrderID)
	defer unlock()

	o, err := r.load(ctx, tx.OrderID)
	if err != nil {
		return nil, err
	}
	if o.PaidAt != nil {
		log.Info("payment_already_reconciled")
		return o, nil
	}
	if o.Status != order.StatusPending {
		return nil, apperr.Newf(apperr.InvalidInput, "Order is %s and cannot be paid", o.Status)
	}
	if !tx.Amount.Equal(o.Total) {
		log.Warn("payment_amount_mismatch",
			zap.String("paid", tx.Amount.String()), zap.String("total", o.Total.String()))
		return nil, apperr.New(apperr.InvalidInput, "Paid amount does not match order total")
	}

	lines := make([]product.Line, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, product.Line{ProductID: l.ProductID, Quantity: l.Quantity})
	}

	paidAt := r.now().UTC()
	ok, err := r.settle(ctx, o.ID, paidAt, lines)
	if errors.Is(err, product.ErrInsufficientStock) {
		return nil, apperr.Wrap(apperr.StockInconsistency, "Insufficient stock to fulfil paid order", err)
	}
	if err != nil {
		return nil, apperr.Internalf(err, "settle order")
	}
	if !ok {
		// Lost a race with another callback or a status change.
		cur, err := r.load(ctx, o.ID)
		if err != nil {
			return nil, err
		}
		if cur.PaidAt != nil {
			log.Info("payment_already_reconciled")
			return cur, nil
		}
		return nil, apperr.Newf(apperr.InvalidInput, "Order is %s and cannot be paid", cur.Status)
	}

	o.Status, o.PaidAt = r.settled, &paidAt

	if o.FromCart && r.carts != nil {
		if err := r.carts.Clear(ctx, o.UserID); err != nil {
			log.Warn("payment_cart_clear_failed", zap.String("user_id", o.UserID), zap.Error(err))
		}
	}
	if r.notifier != nil {
		r.notifier.Enqueue(receiptFor(o, paidAt))
	}

	log.Info("payment_reconciled",
		zap.String("status", string(o.Status)), zap.String("amount", tx.Amount.String()))
	return o, nil
}

// settle marks the order paid and takes its stock, both or neither.
func (r *Reconciler) settle(ctx context.Context, id string, at time.Time, lines []product.Line) (bool, error) {
	if st, ok := r.orders.(Settler); ok {
		return st.SettlePaid(ctx, id, r.settled, at, lines)
	}

	ok, err := r.orders.MarkPaid(ctx, id, r.settled, at)
	if err != nil || !ok {
		return false, err
	}
	if err := r.inventory.Reserve(ctx, lines, product.Decrement); err != nil {
		if uerr := r.orders.UnmarkPaid(ctx, id); uerr != nil {
			logging.FromContext(ctx).Error("payment_unmark_failed", zap.String("order_id", id), zap.Error(uerr))
		}
		return false, err
	}
	return true, nil
}

func (r *Reconciler) load(ctx context.Context, id string) (*order.Order, error) {
	o, err := r.orders.GetByID(ctx, id)
	if errors.Is(err, order.ErrNotFound) {
		return nil, apperr.NotFoundf("Order not found")
	}
	if err != nil {
		return nil, apperr.Internalf(err, "load order")
	}
	return o, nil
}

func receiptFor(o *order.Order, paidAt time.Time) notify.Receipt {
	lines := make([]notify.ReceiptLine, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, notify.ReceiptLine{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			LineTotal:   l.LineTotal,
		})
	}
	return notify.Receipt{
		OrderID:       o.ID,
		UserID:        o.UserID,
		Total:         o.Total,
		PaymentMethod: string(o.PaymentMethod),
		Lines:         lines,
		PaidAt:        paidAt,
	}
}
