package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/MikeMC777/tienda-ecom/internal/db"
)

var ErrNotFound = errors.New("cart not found")

type Repository interface {
	Get(ctx context.Context, userID string) (*Cart, error)
	// GetForUpdate reads the stored cart, never a cached copy. Mutations
	// read through it under the owner's lock.
	GetForUpdate(ctx context.Context, userID string) (*Cart, error)
	// Save upserts the whole cart.
	Save(ctx context.Context, c *Cart) error
	// PurgeEmpty reasserts empty items on carts untouched since before.
	// Cart rows are never deleted.
	PurgeEmpty(ctx context.Context, before time.Time) (int64, error)
}

type PGRepo struct{ db db.Pool }

func NewPGRepo(pool db.Pool) *PGRepo { return &PGRepo{db: pool} }

func (r *PGRepo) Get(ctx context.Context, userID string) (*Cart, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var (
		c   = Cart{UserID: userID}
		raw []byte
	)
	err := r.db.QueryRow(ctx, `
		SELECT items, created_at, updated_at FROM carts WHERE user_id = $1
	`, userID).Scan(&raw, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cart: get: %w", err)
	}
	if err := json.Unmarshal(raw, &c.Items); err != nil {
		return nil, fmt.Errorf("cart: decode items: %w", err)
	}
	if c.Items == nil {
		c.Items = []Item{}
	}
	return &c, nil
}

func (r *PGRepo) GetForUpdate(ctx context.Context, userID string) (*Cart, error) {
	return r.Get(ctx, userID)
}

func (r *PGRepo) Save(ctx context.Context, c *Cart) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	items := c.Items
	if items == nil {
		items = []Item{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("cart: encode items: %w", err)
	}
	if _, err := r.db.Exec(ctx, `
		INSERT INTO carts (user_id, items, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET items = EXCLUDED.items, updated_at = EXCLUDED.updated_at
	`, c.UserID, raw, c.CreatedAt, c.UpdatedAt); err != nil {
		return fmt.Errorf("cart: save: %w", err)
	}
	return nil
}

func (r *PGRepo) PurgeEmpty(ctx context.Context, before time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE carts SET items = '[]'::jsonb
		WHERE updated_at < $1 AND jsonb_array_length(items) = 0
	`, before)
	if err != nil {
		return 0, fmt.Errorf("cart: purge: %w", err)
	}
	return tag.RowsAffected(), nil
}
