package order

import (
	"context"
	"sort"
	"sync"
	"time"
)

type MemRepo struct {
	mu     sync.RWMutex
	orders map[string]*Order
}

func NewMemRepo() *MemRepo {
	return &MemRepo{orders: make(map[string]*Order)}
}

func (r *MemRepo) Create(_ context.Context, o *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[o.ID] = o.Clone()
	return nil
}

func (r *MemRepo) GetByID(_ context.Context, id string) (*Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o.Clone(), nil
}

func (r *MemRepo) sorted(keep func(*Order) bool) []Order {
	r.mu.RLock()
	out := make([]Order, 0, len(r.orders))
	for _, o := range r.orders {
		if keep(o) {
			out = append(out, *o.Clone())
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (r *MemRepo) ListByUser(_ context.Context, userID string) ([]Order, error) {
	return r.sorted(func(o *Order) bool { return o.UserID == userID }), nil
}

func (r *MemRepo) ListAll(_ context.Context, limit, offset int) ([]Order, error) {
	limit, offset = NormalizePage(limit, offset)
	all := r.sorted(func(*Order) bool { return true })
	if offset >= len(all) {
		return []Order{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *MemRepo) UpdateStatus(_ context.Context, id string, from, to Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return ErrNotFound
	}
	if o.Status != from {
		return ErrStatusChanged
	}
	o.Status = to
	o.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemRepo) SetFulfillmentConfirmed(_ context.Context, id string, confirmed bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.FulfillmentConfirmed = confirmed
	o.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return ErrNotFound
	}
	if o.PaidAt != nil || (o.Status != StatusPending && o.Status != StatusCancelled) {
		return ErrStatusChanged
	}
	delete(r.orders, id)
	return nil
}

func (r *MemRepo) MarkPaid(_ context.Context, id string, to Status, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.Status != StatusPending || o.PaidAt != nil {
		return false, nil
	}
	t := at
	o.Status, o.PaidAt, o.UpdatedAt = to, &t, time.Now().UTC()
	return true, nil
}

func (r *MemRepo) UnmarkPaid(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.orders[id]; ok && o.PaidAt != nil {
		o.Status, o.PaidAt, o.UpdatedAt = StatusPending, nil, time.Now().UTC()
	}
	return nil
}

func (r *MemRepo) PromotePending(_ context.Context, f PromoteFilter, to Status) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, o := range r.orders {
		if o.Status != StatusPending || o.CreatedAt.After(f.CreatedBefore) {
			continue
		}
		if f.ConfirmedOnly && !o.FulfillmentConfirmed {
			continue
		}
		o.Status = to
		o.UpdatedAt = time.Now().UTC()
		n++
	}
	return n, nil
}
