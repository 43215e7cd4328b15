package product

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemRepo is the in-memory catalog used with STORE=memory and in tests.
type MemRepo struct {
	mu    sync.RWMutex
	items map[string]Product
	now   func() time.Time
}

func NewMemRepo(seed ...Product) *MemRepo {
	r := &MemRepo{items: make(map[string]Product), now: time.Now}
	for _, p := range seed {
		r.items[p.ID] = p
	}
	return r
}

func (r *MemRepo) Create(_ context.Context, p *Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	r.items[p.ID] = *p
	return nil
}

func (r *MemRepo) GetByID(_ context.Context, id string) (*Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (r *MemRepo) List(_ context.Context, q Query) ([]Product, error) {
	q = q.Normalize()
	needle := strings.ToLower(q.Q)

	r.mu.RLock()
	out := make([]Product, 0, len(r.items))
	for _, p := range r.items {
		if needle != "" &&
			!strings.Contains(strings.ToLower(p.Name), needle) &&
			!strings.Contains(strings.ToLower(p.Description), needle) &&
			!strings.Contains(strings.ToLower(p.Category), needle) {
			continue
		}
		out = append(out, p)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if q.Offset >= len(out) {
		return []Product{}, nil
	}
	end := q.Offset + q.Limit
	if end > len(out) {
		end = len(out)
	}
	return out[q.Offset:end], nil
}

func (r *MemRepo) Update(_ context.Context, p *Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.items[p.ID]
	if !ok {
		return ErrNotFound
	}
	p.CreatedAt = cur.CreatedAt
	p.UpdatedAt = r.now().UTC()
	r.items[p.ID] = *p
	return nil
}

func (r *MemRepo) Delete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return false, nil
	}
	delete(r.items, id)
	return true, nil
}

// Reserve holds the write lock for the whole check-then-decrement so it is
// all-or-nothing like the Postgres version.
func (r *MemRepo) Reserve(_ context.Context, lines []Line, mode ReserveMode) error {
	merged := mergeLines(lines)

	r.mu.Lock()
	defer r.mu.Unlock()

	var shortages []Shortage
	for _, l := range merged {
		available := r.items[l.ProductID].Stock
		if available < l.Quantity {
			shortages = append(shortages, Shortage{ProductID: l.ProductID, Requested: l.Quantity, Available: available})
		}
	}
	if len(shortages) > 0 {
		return &ShortageError{Shortages: shortages}
	}
	if mode == CheckOnly {
		return nil
	}
	now := r.now().UTC()
	for _, l := range merged {
		p := r.items[l.ProductID]
		p.Stock -= l.Quantity
		p.UpdatedAt = now
		r.items[l.ProductID] = p
	}
	return nil
}
