package cart

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
	"github.com/MikeMC777/tienda-ecom/internal/product"
)

var tracer = otel.Tracer("github.com/MikeMC777/tienda-ecom/internal/cart")

// Catalog is the read side of the product catalog the cart needs.
type Catalog interface {
	GetByID(ctx context.Context, id string) (*product.Product, error)
}

// Manager owns every cart mutation. Read-modify-write sequences for one user
// run under that user's lock, so concurrent adds never lose an update.
type Manager struct {
	repo    Repository
	catalog Catalog
	locks   *keylock.Map
	metrics *metrics.Metrics
	now     func() time.Time
}

type Option func(*Manager)

func WithMetrics(m *metrics.Metrics) Option { return func(mg *Manager) { mg.metrics = m } }

func WithClock(now func() time.Time) Option { return func(mg *Manager) { mg.now = now } }

func NewManager(repo Repository, catalog Catalog, opts ...Option) *Manager {
	m := &Manager{
		repo:    repo,
		catalog: catalog,
		locks:   keylock.New(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// AddItem validates against the catalog, then merges into the user's cart,
// creating it if needed. An existing line is incremented without re-checking
// stock for the combined quantity.
func (m *Manager) AddItem(ctx context.Context, userID, productID string, quantity int) (_ *Cart, err error) {
	ctx, done := m.metrics.UseCase(ctx, tracer, "cart.add_item",
		attribute.String("user_id", userID), attribute.String("product_id", productID))
	defer func() { done(err) }()

	if productID == "" || quantity <= 0 {
		return nil, apperr.Invalid("Product ID and valid quantity are required")
	}

	p, err := m.catalog.GetByID(ctx, productID)
	if errors.Is(err, product.ErrNotFound) {
		return nil, apperr.NotFoundf("Product not found")
	}
	if err != nil {
		return nil, apperr.Internalf(err, "lookup product %s", productID)
	}
	if p.Stock < quantity {
		return nil, apperr.New(apperr.InsufficientStock, "Insufficient stock")
	}

	unlock := m.locks.Lock(userID)
	defer unlock()

	now := m.now().UTC()
	c, err := m.repo.GetForUpdate(ctx, userID)
	switch {
	case errors.Is(err, ErrNotFound):
		c = &Cart{UserID: userID, Items: []Item{}, CreatedAt: now}
	case err != nil:
		return nil, apperr.Internalf(err, "load cart")
	}

	if i := c.find(productID); i >= 0 {
		c.Items[i].Quantity += quantity
	} else {
		c.Items = append(c.Items, Item{
			ProductID:    productID,
			Quantity:     quantity,
			ProductName:  p.Name,
			ProductPrice: p.Price,
			ProductImage: p.Image,
		})
	}
	c.UpdatedAt = now

	if err := m.repo.Save(ctx, c); err != nil {
		return nil, apperr.Internalf(err, "save cart")
	}
	logging.FromContext(ctx).Info("cart_item_added",
		zap.String("user_id", userID), zap.String("product_id", productID), zap.Int("quantity", quantity))
	return c, nil
}

// Get returns the cart; a missing or empty cart is NotFound.
func (m *Manager) Get(ctx context.Context, userID string) (_ *Cart, err error) {
	ctx, done := m.metrics.UseCase(ctx, tracer, "cart.get", attribute.String("user_id", userID))
	defer func() { done(err) }()

	c, err := m.repo.Get(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFoundf("Cart is empty")
	}
	if err != nil {
		return nil, apperr.Internalf(err, "load cart")
	}
	if len(c.Items) == 0 {
		return nil, apperr.NotFoundf("Cart is empty")
	}
	return c, nil
}

// UpdateItem sets a line to quantity, removing it at zero. No stock check.
func (m *Manager) UpdateItem(ctx context.Context, userID, productID string, quantity int) (_ *Cart, err error) {
	ctx, done := m.metrics.UseCase(ctx, tracer, "cart.update_item",
		attribute.String("user_id", userID), attribute.String("product_id", productID))
	defer func() { done(err) }()

	if productID == "" || quantity < 0 {
		return nil, apperr.Invalid("Product ID and valid quantity are required")
	}

	unlock := m.locks.Lock(userID)
	defer unlock()

	c, err := m.repo.GetForUpdate(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFoundf("Cart not found")
	}
	if err != nil {
		return nil, apperr.Internalf(err, "load cart")
	}

	i := c.find(productID)
	if i < 0 {
		return nil, apperr.NotFoundf("Product not found in cart")
	}
	if quantity == 0 {
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
	} else {
		c.Items[i].Quantity = quantity
	}
	c.UpdatedAt = m.now().UTC()

	if err := m.repo.Save(ctx, c); err != nil {
		return nil, apperr.Internalf(err, "save cart")
	}
	return c, nil
}

// Clear empties the cart but keeps the record.
func (m *Manager) Clear(ctx context.Context, userID string) (err error) {
	ctx, done := m.metrics.UseCase(ctx, tracer, "cart.clear", attribute.String("user_id", userID))
	defer func() { done(err) }()

	unlock := m.locks.Lock(userID)
	defer unlock()

	c, err := m.repo.GetForUpdate(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFoundf("Cart not found")
	}
	if err != nil {
		return apperr.Internalf(err, "load cart")
	}
	c.Items = []Item{}
	c.UpdatedAt = m.now().UTC()
	if err := m.repo.Save(ctx, c); err != nil {
		return apperr.Internalf(err, "save cart")
	}
	return nil
}

// Checkout hands a copy of the user's cart to place while holding the user's
// lock. When place returns true the cart is emptied before the lock is
// released, so an item added meanwhile is kept for the next order. A missing
// or empty cart is NotFound and place is not called.
func (m *Manager) Checkout(ctx context.Context, userID string, place func(*Cart) (bool, error)) (err error) {
	ctx, done := m.metrics.UseCase(ctx, tracer, "cart.checkout", attribute.String("user_id", userID))
	defer func() { done(err) }()

	unlock := m.locks.Lock(userID)
	defer unlock()

	c, err := m.repo.GetForUpdate(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFoundf("Cart is empty")
	}
	if err != nil {
		return apperr.Internalf(err, "load cart")
	}
	if len(c.Items) == 0 {
		return apperr.NotFoundf("Cart is empty")
	}

	empty, err := place(c.Clone())
	if err != nil || !empty {
		return err
	}
	c.Items = []Item{}
	c.UpdatedAt = m.now().UTC()
	if err := m.repo.Save(ctx, c); err != nil {
		// the order is already placed
		logging.FromContext(ctx).Warn("checkout_cart_clear_failed", zap.String("user_id", userID), zap.Error(err))
	}
	return nil
}
