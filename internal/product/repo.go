// File: internal/product/repo.go
// Package product provides the catalog repository, its PostgreSQL and in-memory
// implementations, and the stock reservation used by orders and payments.
package product

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/MikeMC777/tienda-ecom/internal/db"
)

var (
	ErrNotFound = errors.New("product not found")
)

type Query struct {
	Q      string
	Limit  int
	Offset int
}

// Normalize clamps paging to the accepted range.
func (q Query) Normalize() Query {
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	q.Q = strings.TrimSpace(q.Q)
	return q
}

type Repository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context, q Query) ([]Product, error)
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) (bool, error)
}

type PGRepo struct{ db db.Pool }

func NewPGRepo(pool db.Pool) *PGRepo { return &PGRepo{db: pool} }

const productColumns = `id, name, description, category, image, product_type, rating, price::text, stock, created_at, updated_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var (
		p     Product
		price string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.Image, &p.Type,
		&p.Rating, &price, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("product %s: bad price %q: %w", p.ID, price, err)
	}
	p.Price = d
	return &p, nil
}

func (r *PGRepo) Create(ctx context.Context, p *Product) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		INSERT INTO products (id, name, description, category, image, product_type, rating, price, stock, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW(),NOW())
	`, p.ID, p.Name, p.Description, p.Category, p.Image, p.Type, p.Rating, p.Price.String(), p.Stock)
	if err != nil {
		return fmt.Errorf("product: create: %w", err)
	}
	return nil
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (*Product, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	p, err := scanProduct(r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("product: get: %w", err)
	}
	return p, nil
}

func (r *PGRepo) List(ctx context.Context, q Query) ([]Product, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	q = q.Normalize()
	rows, err := r.db.Query(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE ($1 = '' OR name ILIKE '%'||$1||'%' OR description ILIKE '%'||$1||'%' OR category ILIKE '%'||$1||'%')
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, q.Q, q.Limit, q.Offset)
	if err != nil {
		return nil, fmt.Errorf("product: list: %w", err)
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("product: list: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *PGRepo) Update(ctx context.Context, p *Product) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE products
		SET name = $2, description = $3, category = $4, image = $5, product_type = $6,
		    rating = $7, price = $8, stock = $9, updated_at = NOW()
		WHERE id = $1
	`, p.ID, p.Name, p.Description, p.Category, p.Image, p.Type, p.Rating, p.Price.String(), p.Stock)
	if err != nil {
		return fmt.Errorf("product: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) Delete(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cmd, err := r.db.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return false, fmt.Errorf("product: delete: %w", err)
	}
	return cmd.RowsAffected() > 0, nil
}

// Reserve locks every product row (SELECT ... FOR UPDATE in Decrement mode),
// reports all shortages at once, and only decrements when every line fits.
// Unknown products count as zero available.
func (r *PGRepo) Reserve(ctx context.Context, lines []Line, mode ReserveMode) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if len(lines) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("product: reserve: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := ReserveTx(ctx, tx, lines, mode); err != nil {
		return err
	}
	if mode == CheckOnly {
		return nil
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("product: reserve: commit: %w", err)
	}
	return nil
}

// ReserveTx is Reserve on a transaction owned by the caller, for writes that
// must commit together with the stock change. It never commits or rolls back.
func ReserveTx(ctx context.Context, tx pgx.Tx, lines []Line, mode ReserveMode) error {
	merged := mergeLines(lines)
	if len(merged) == 0 {
		return nil
	}

	lock := ""
	if mode == Decrement {
		lock = " FOR UPDATE"
	}

	var shortages []Shortage
	for _, l := range merged {
		var available int
		err := tx.QueryRow(ctx, `SELECT stock FROM products WHERE id = $1`+lock, l.ProductID).Scan(&available)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("product: reserve: %w", err)
		}
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

	for _, l := range merged {
		if _, err := tx.Exec(ctx, `UPDATE products SET stock = stock - $2, updated_at = NOW() WHERE id = $1`,
			l.ProductID, l.Quantity); err != nil {
			return fmt.Errorf("product: reserve: decrement %s: %w", l.ProductID, err)
		}
	}
	return nil
}
