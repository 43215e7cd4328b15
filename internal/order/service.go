// Package order builds price-locked orders from carts or explicit product
// lists and drives their status lifecycle.
package order

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/MikeMC777/tienda-ecom/internal/apperr"
	"github.com/MikeMC777/tienda-ecom/internal/cart"
	"github.com/MikeMC777/tienda-ecom/internal/identity"
	"github.com/MikeMC777/tienda-ecom/internal/keylock"
	"github.com/MikeMC777/tienda-ecom/internal/logging"
	"github.com/MikeMC777/tienda-ecom/internal/metrics"
	"github.com/MikeMC777/tienda-ecom/internal/product"
)

var tracer = otel.Tracer("github.com/MikeMC777/tienda-ecom/internal/order")

type Catalog interface {
	GetByID(ctx context.Context, id string) (*product.Product, error)
}

// Carts is the slice of the cart manager checkout needs. Checkout runs place
// under the cart owner's lock and empties the cart when place asks for it.
type Carts interface {
	Checkout(ctx context.Context, userID string, place func(*cart.Cart) (bool, error)) error
}

type Service struct {
	repo      Repository
	catalog   Catalog
	inventory product.Inventory
	carts     Carts
	locks     *keylock.Map
	metrics   *metrics.Metrics
	newID     func() string
	now       func() time.Time
}

type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func WithIDGenerator(f func() string) Option { return func(s *Service) { s.newID = f } }

// NewID is a uuid without hyphens, so a transaction id "<orderId>-<uuid>"
// splits back to the order id at its first hyphen.
func NewID() string { return strings.ReplaceAll(uuid.NewString(), "-", "") }

func NewService(repo Repository, catalog Catalog, inventory product.Inventory, carts Carts, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		catalog:   catalog,
		inventory: inventory,
		carts:     carts,
		locks:     keylock.New(),
		newID:     NewID,
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Create prices every requested line from the catalog and persists a Pending
// order. Nothing is written unless every product exists and is in stock.
func (s *Service) Create(ctx context.Context, userID string, req CreateOrderRequest) (_ *Order, err error) {
	ctx, done := s.metrics.UseCase(ctx, tracer, "order.create",
		attribute.String("user_id", userID), attribute.Int("lines", len(req.Products)))
	defer func() { done(err) }()

	if len(req.Products) == 0 || req.PaymentMethod == "" {
		return nil, apperr.Invalid("All fields are required")
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	return s.build(ctx, userID, req.Products, req.PaymentMethod, false)
}

// Checkout turns the caller's cart into an order. Prices come from the
// catalog at checkout time, not from the cart snapshot. A cash-on-delivery
// checkout empties the cart right away; a gateway checkout leaves that to
// payment reconciliation.
func (s *Service) Checkout(ctx context.Context, userID string, method PaymentMethod) (_ *Order, err error) {
	ctx, done := s.metrics.UseCase(ctx, tracer, "order.checkout", attribute.String("user_id", userID))
	defer func() { done(err) }()

	if method == "" {
		return nil, apperr.Invalid("All fields are required")
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	var o *Order
	err = s.carts.Checkout(ctx, userID, func(c *cart.Cart) (bool, error) {
		items := make([]CreateOrderItem, 0, len(c.Items))
		for _, it := range c.Items {
			items = append(items, CreateOrderItem{ProductID: it.ProductID, Quantity: it.Quantity})
		}
		built, err := s.build(ctx, userID, items, method, true)
		if err != nil {
			return false, err
		}
		o = built
		return method == PaymentCashOnDelivery, nil
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Service) build(ctx context.Context, userID string, items []CreateOrderItem, method PaymentMethod, fromCart bool) (*Order, error) {
	if !method.Valid() {
		return nil, apperr.Invalid("Invalid payment method")
	}

	lines := make([]Line, 0, len(items))
	reserve := make([]product.Line, 0, len(items))
	for _, it := range items {
		if it.ProductID == "" || it.Quantity <= 0 {
			return nil, apperr.Invalid("Product ID and valid quantity are required")
		}
		p, err := s.catalog.GetByID(ctx, it.ProductID)
		if errors.Is(err, product.ErrNotFound) {
			return nil, apperr.NotFoundf("Product with ID %s not found", it.ProductID)
		}
		if err != nil {
			return nil, apperr.Internalf(err, "lookup product %s", it.ProductID)
		}
		lines = append(lines, Line{
			ProductID:    p.ID,
			ProductName:  p.Name,
			ProductImage: p.Image,
			UnitPrice:    p.Price,
			Quantity:     it.Quantity,
			LineTotal:    p.Price.Mul(decimal.NewFromInt(int64(it.Quantity))),
		})
		reserve = append(reserve, product.Line{ProductID: p.ID, Quantity: it.Quantity})
	}

	if err := s.inventory.Reserve(ctx, reserve, product.CheckOnly); err != nil {
		var short *product.ShortageError
		if errors.As(err, &short) {
			return nil, apperr.Wrap(apperr.InsufficientStock, "Insufficient stock", err)
		}
		return nil, apperr.Internalf(err, "check stock")
	}

	now := s.now().UTC()
	o := &Order{
		ID:            s.newID(),
		UserID:        userID,
		Lines:         lines,
		Total:         SumLines(lines),
		PaymentMethod: method,
		Status:        StatusPending,
		FromCart:      fromCart,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, o); err != nil {
		return nil, apperr.Internalf(err, "create order")
	}
	logging.FromContext(ctx).Info("order_created",
		zap.String("order_id", o.ID), zap.String("user_id", userID),
		zap.String("total", o.Total.StringFixed(2)), zap.String("payment_method", string(method)),
		zap.Bool("from_cart", fromCart))
	return o, nil
}

// Get returns one of the caller's orders. Someone else's order looks missing.
func (s *Service) Get(ctx context.Context, userID, id string) (_ *Order, err error) {
	ctx, done := s.metrics.UseCase(ctx, tracer, "order.get", attribute.String("order_id", id))
	defer func() { done(err) }()

	return s.owned(ctx, identity.Identity{UserID: userID}, id)
}

func (s *Service) owned(ctx context.Context, who identity.Identity, id string) (*Order, error) {
	if id == "" {
		return nil, apperr.Invalid("Order ID is required")
	}
	o, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFoundf("Order not found or not authorized")
	}
	if err != nil {
		return nil, apperr.Internalf(err, "load order")
	}
	if o.UserID != who.UserID && !who.IsAdmin {
		return nil, apperr.NotFoundf("Order not found or not authorized")
	}
	return o, nil
}

func (s *Service) List(ctx context.Context, userID string) (_ []Order, err error) {
	ctx, done := s.metrics.UseCase(ctx, tracer, "order.list", attribute.String("user_id", userID))
	defer func() { done(err) }()

	out, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Internalf(err, "list orders")
	}
	if len(out) == 0 {
		return nil, apperr.NotFoundf("No orders found for this user")
	}
	return out, nil
}

func (s *Service) ListAll(ctx context.Context, limit, offset int) (_ []Order, err error) {
	ctx, done := s.metrics.UseCase(ctx, tracer, "order.list_all")
	defer func() { done(err) }()

	limit, offset = NormalizePage(limit, offset)
	out, err := s.repo.ListAll(ctx, limit, offset)
	if err != nil {
		return nil, apperr.Internalf(err, "list orders")
	}
	return out, nil
}

// Update applies a status transition and/or the fulfillment flag. Owners may
// only cancel, and only before payment; admins may make any allowed transition
// and confirm fulfillment. Cancelling a paid order restores no stock and is
// logged as paid_order_cancelled for refund handling.
func (s *Service) Update(ctx context.Context, who identity.Identity, id string, req UpdateOrderRequest) (_ *Order, err error) {
	ctx, done := s.metrics.UseCase(ctx, tracer, "order.update",
		attribute.String("order_id", id), attribute.String("status", string(req.Status)))
	defer func() { done(err) }()

	if req.Status == "" && req.FulfillmentConfirmed == nil {
		return nil, apperr.Invalid("Nothing to update")
	}
	o, err := s.owned(ctx, who, id)
	if err != nil {
		return nil, err
	}

	if req.Status != "" {
		if !req.Status.Valid() {
			return nil, apperr.Invalid("Invalid order status")
		}
		if !who.IsAdmin && req.Status != StatusCancelled {
			return nil, apperr.New(apperr.Unauthorized, "Only admins can change the order status")
		}
		if !who.IsAdmin && o.PaidAt != nil {
			return nil, apperr.Invalid("Paid orders cannot be cancelled")
		}
		if !CanTransition(o.Status, req.Status) {
			return nil, apperr.Newf(apperr.InvalidInput, "Cannot change order status from %s to %s", o.Status, req.Status)
		}
		err := s.repo.UpdateStatus(ctx, o.ID, o.Status, req.Status)
		switch {
		case errors.Is(err, ErrNotFound):
			return nil, apperr.NotFoundf("Order not found or not authorized")
		case errors.Is(err, ErrStatusChanged):
			return nil, apperr.Invalid("Order status changed, please retry")
		case err != nil:
			return nil, apperr.Internalf(err, "update order status")
		}
		if req.Status == StatusCancelled && o.PaidAt != nil {
			logging.FromContext(ctx).Warn("paid_order_cancelled",
				zap.String("order_id", o.ID), zap.String("user_id", o.UserID),
				zap.String("total", o.Total.StringFixed(2)), zap.String("cancelled_by", who.UserID))
		}
	}

	if req.FulfillmentConfirmed != nil {
		if !who.IsAdmin {
			return nil, apperr.New(apperr.Unauthorized, "Only admins can confirm fulfillment")
		}
		if err := s.repo.SetFulfillmentConfirmed(ctx, o.ID, *req.FulfillmentConfirmed); err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, apperr.NotFoundf("Order not found or not authorized")
			}
			return nil, apperr.Internalf(err, "confirm fulfillment")
		}
	}

	updated, err := s.repo.GetByID(ctx, o.ID)
	if err != nil {
		return nil, apperr.Internalf(err, "reload order")
	}
	return updated, nil
}

// Delete removes one of the caller's orders while it is still Pending or
// already Cancelled.
func (s *Service) Delete(ctx context.Context, userID, id string) (err error) {
	ctx, done := s.metrics.UseCase(ctx, tracer, "order.delete", attribute.String("order_id", id))
	defer func() { done(err) }()

	o, err := s.owned(ctx, identity.Identity{UserID: userID}, id)
	if err != nil {
		return err
	}
	if o.Status != StatusPending && o.Status != StatusCancelled {
		return apperr.Invalid("Only pending or cancelled orders can be deleted")
	}
	if o.PaidAt != nil {
		return apperr.Invalid("Paid orders cannot be deleted")
	}
	err = s.repo.Delete(ctx, o.ID)
	switch {
	case errors.Is(err, ErrNotFound):
		return apperr.NotFoundf("Order not found or not authorized")
	case errors.Is(err, ErrStatusChanged):
		return apperr.Invalid("Order status changed, please retry")
	case err != nil:
		return apperr.Internalf(err, "delete order")
	}
	return nil
}
