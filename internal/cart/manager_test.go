package cart

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeMC777/tienda-ecom/internal/apperr"
	"github.com/MikeMC777/tienda-ecom/internal/product"
)

func newManager(t *testing.T) (*Manager, *MemRepo) {
	t.Helper()
	catalog := product.NewMemRepo(
		product.Product{ID: "A", Name: "Apple", Price: decimal.NewFromInt(10), Image: "a.png", Stock: 5},
		product.Product{ID: "B", Name: "Banana", Price: decimal.RequireFromString("2.50"), Stock: 0},
	)
	repo := NewMemRepo()
	return NewManager(repo, catalog), repo
}

func TestAddItem_SnapshotsAndSums(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)

	_, err := m.AddItem(ctx, "U", "A", 2)
	require.NoError(t, err)
	c, err := m.AddItem(ctx, "U", "A", 3)
	require.NoError(t, err)

	require.Len(t, c.Items, 1)
	it := c.Items[0]
	assert.Equal(t, 5, it.Quantity)
	assert.Equal(t, "Apple", it.ProductName)
	assert.True(t, it.ProductPrice.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, "a.png", it.ProductImage)

	got, err := m.Get(ctx, "U")
	require.NoError(t, err)
	assert.Equal(t, 5, got.Items[0].Quantity)
}

func TestAddItem_IncrementSkipsStockRecheck(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)

	_, err := m.AddItem(ctx, "U", "A", 5)
	require.NoError(t, err)
	c, err := m.AddItem(ctx, "U", "A", 5)
	require.NoError(t, err)
	assert.Equal(t, 10, c.Items[0].Quantity)
}

func TestAddItem_Errors(t *testing.T) {
	ctx := context.Background()
	m, repo := newManager(t)

	cases := []struct {
		name      string
		productID string
		qty       int
		kind      apperr.Kind
		msg       string
	}{
		{"zero quantity", "A", 0, apperr.InvalidInput, "Product ID and valid quantity are required"},
		{"negative quantity", "A", -1, apperr.InvalidInput, "Product ID and valid quantity are required"},
		{"missing product id", "", 1, apperr.InvalidInput, "Product ID and valid quantity are required"},
		{"unknown product", "ZZZ", 1, apperr.NotFound, "Product not found"},
		{"over stock", "A", 6, apperr.InsufficientStock, "Insufficient stock"},
		{"out of stock", "B", 1, apperr.InsufficientStock, "Insufficient stock"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := m.AddItem(ctx, "U", tc.productID, tc.qty)
			require.Error(t, err)
			assert.Equal(t, tc.kind, apperr.KindOf(err))
			assert.Equal(t, tc.msg, apperr.MessageOf(err))
		})
	}

	_, err := repo.Get(ctx, "U")
	assert.ErrorIs(t, err, ErrNotFound, "failed adds never create a cart")
}

func TestGet_EmptyIsNotFound(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)

	_, err := m.Get(ctx, "nobody")
	assert.Equal(t, "Cart is empty", apperr.MessageOf(err))

	_, err = m.AddItem(ctx, "U", "A", 1)
	require.NoError(t, err)
	require.NoError(t, m.Clear(ctx, "U"))

	_, err = m.Get(ctx, "U")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpdateItem(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)
	_, err := m.AddItem(ctx, "U", "A", 2)
	require.NoError(t, err)

	c, err := m.UpdateItem(ctx, "U", "A", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, c.Items[0].Quantity, "overwrite, no stock check")

	c, err = m.UpdateItem(ctx, "U", "A", 0)
	require.NoError(t, err)
	assert.Empty(t, c.Items, "zero removes the line")

	_, err = m.UpdateItem(ctx, "U", "A", 1)
	assert.Equal(t, "Product not found in cart", apperr.MessageOf(err))

	_, err = m.UpdateItem(ctx, "U", "A", -1)
	assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))

	_, err = m.UpdateItem(ctx, "other", "A", 1)
	assert.Equal(t, "Cart not found", apperr.MessageOf(err))
}

func TestClear_NoCart(t *testing.T) {
	m, _ := newManager(t)
	err := m.Clear(context.Background(), "ghost")
	assert.Equal(t, "Cart not found", apperr.MessageOf(err))
}

func TestAddItem_ConcurrentSameUser(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.AddItem(ctx, "U", "A", 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	c, err := m.Get(ctx, "U")
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 2, c.Items[0].Quantity)
}

func TestPurgeJob_IdempotentAndNonDestructive(t *testing.T) {
	ctx := context.Background()
	repo := NewMemRepo()
	old := time.Now().Add(-40 * 24 * time.Hour)
	require.NoError(t, repo.Save(ctx, &Cart{UserID: "stale", Items: []Item{}, UpdatedAt: old}))
	require.NoError(t, repo.Save(ctx, &Cart{UserID: "fresh", Items: []Item{}, UpdatedAt: time.Now()}))
	require.NoError(t, repo.Save(ctx, &Cart{UserID: "full", Items: []Item{{ProductID: "A", Quantity: 1}}, UpdatedAt: old}))

	job := NewPurgeJob(repo, 30*24*time.Hour)
	n1, err := job.Run(ctx)
	require.NoError(t, err)
	n2, err := job.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(1), n1)
	assert.Equal(t, n1, n2)
	for _, id := range []string{"stale", "fresh", "full"} {
		_, err := repo.Get(ctx, id)
		assert.NoError(t, err, "cart %s must survive the purge", id)
	}
	full, _ := repo.Get(ctx, "full")
	assert.Len(t, full.Items, 1)
}

func TestCheckout(t *testing.T) {
	ctx := context.Background()

	t.Run("empty cart never reaches place", func(t *testing.T) {
		m, _ := newManager(t)
		called := false
		err := m.Checkout(ctx, "U", func(*Cart) (bool, error) { called = true; return true, nil })
		assert.Equal(t, "Cart is empty", apperr.MessageOf(err))
		assert.False(t, called)
	})

	t.Run("place failure keeps the cart", func(t *testing.T) {
		m, _ := newManager(t)
		_, err := m.AddItem(ctx, "U", "A", 2)
		require.NoError(t, err)

		boom := apperr.Invalid("nope")
		err = m.Checkout(ctx, "U", func(*Cart) (bool, error) { return true, boom })
		assert.ErrorIs(t, err, boom)

		c, err := m.Get(ctx, "U")
		require.NoError(t, err)
		assert.Equal(t, 2, c.Items[0].Quantity)
	})

	t.Run("empties only when asked", func(t *testing.T) {
		m, _ := newManager(t)
		_, err := m.AddItem(ctx, "U", "A", 1)
		require.NoError(t, err)

		require.NoError(t, m.Checkout(ctx, "U", func(c *Cart) (bool, error) {
			assert.Len(t, c.Items, 1)
			return false, nil
		}))
		_, err = m.Get(ctx, "U")
		require.NoError(t, err)

		require.NoError(t, m.Checkout(ctx, "U", func(*Cart) (bool, error) { return true, nil }))
		_, err = m.Get(ctx, "U")
		assert.Equal(t, "Cart is empty", apperr.MessageOf(err))
	})
}
