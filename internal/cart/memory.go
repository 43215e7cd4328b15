package cart

import (
	"context"
	"sync"
	"time"
)

type MemRepo struct {
	mu    sync.RWMutex
	carts map[string]*Cart
}

func NewMemRepo() *MemRepo {
	return &MemRepo{carts: make(map[string]*Cart)}
}

func (r *MemRepo) Get(_ context.Context, userID string) (*Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.carts[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return c.Clone(), nil
}

func (r *MemRepo) GetForUpdate(ctx context.Context, userID string) (*Cart, error) {
	return r.Get(ctx, userID)
}

func (r *MemRepo) Save(_ context.Context, c *Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.carts[c.UserID] = c.Clone()
	return nil
}

func (r *MemRepo) PurgeEmpty(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, c := range r.carts {
		if len(c.Items) == 0 && c.UpdatedAt.Before(before) {
			c.Items = []Item{}
			n++
		}
	}
	return n, nil
}
