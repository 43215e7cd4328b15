package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/MikeMC777/tienda-ecom/internal/db"
	"github.com/MikeMC777/tienda-ecom/internal/product"
)

var (
	ErrNotFound = errors.New("order not found")
	// ErrStatusChanged means the row no longer had the expected status.
	ErrStatusChanged = errors.New("order status changed")
)

// Page bounds for ListAll.
const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// NormalizePage clamps a requested page to what ListAll serves.
func NormalizePage(limit, offset int) (int, int) {
	if limit <= 0 || limit > MaxPageSize {
		limit = DefaultPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// PromoteFilter selects the Pending orders a promotion pass may move.
type PromoteFilter struct {
	CreatedBefore time.Time
	ConfirmedOnly bool
}

type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	ListAll(ctx context.Context, limit, offset int) ([]Order, error)
	// UpdateStatus moves id from one status to another, failing with
	// ErrStatusChanged if the stored status is not from.
	UpdateStatus(ctx context.Context, id string, from, to Status) error
	SetFulfillmentConfirmed(ctx context.Context, id string, confirmed bool) error
	// Delete removes an unpaid Pending or Cancelled order. It fails with
	// ErrStatusChanged when the row exists but no longer qualifies.
	Delete(ctx context.Context, id string) error
	// MarkPaid settles a Pending, unpaid order. It returns false when the
	// conditional update matched nothing.
	MarkPaid(ctx context.Context, id string, to Status, at time.Time) (bool, error)
	// UnmarkPaid undoes MarkPaid, back to Pending.
	UnmarkPaid(ctx context.Context, id string) error
	PromotePending(ctx context.Context, f PromoteFilter, to Status) (int64, error)
}

type PGRepo struct{ db db.Pool }

func NewPGRepo(pool db.Pool) *PGRepo { return &PGRepo{db: pool} }

const orderColumns = `id, user_id, status, payment_method, total::text, from_cart, fulfillment_confirmed, paid_at, created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var (
		o              Order
		status, method string
		total          string
	)
	if err := row.Scan(&o.ID, &o.UserID, &status, &method, &total, &o.FromCart,
		&o.FulfillmentConfirmed, &o.PaidAt, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	d, err := decimal.NewFromString(total)
	if err != nil {
		return nil, fmt.Errorf("order %s: bad total %q: %w", o.ID, total, err)
	}
	o.Status, o.PaymentMethod, o.Total = Status(status), PaymentMethod(method), d
	o.Lines = []Line{}
	return &o, nil
}

func (r *PGRepo) Create(ctx context.Context, o *Order) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("order: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		INSERT INTO orders (id, user_id, status, payment_method, total, from_cart, fulfillment_confirmed, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, o.ID, o.UserID, string(o.Status), string(o.PaymentMethod), o.Total.String(), o.FromCart,
		o.FulfillmentConfirmed, o.CreatedAt, o.UpdatedAt); err != nil {
		return fmt.Errorf("order: insert: %w", err)
	}

	for i, l := range o.Lines {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, position, product_id, product_name, product_image, quantity, price, line_total)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`, uuid.NewString(), o.ID, i, l.ProductID, l.ProductName, l.ProductImage, l.Quantity,
			l.UnitPrice.String(), l.LineTotal.String()); err != nil {
			return fmt.Errorf("order: insert line %d: %w", i, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("order: commit: %w", err)
	}
	return nil
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (*Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	o, err := scanOrder(r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("order: get: %w", err)
	}
	if err := r.attachLines(ctx, []*Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *PGRepo) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return r.list(ctx, `
		SELECT `+orderColumns+` FROM orders WHERE user_id=$1
		ORDER BY created_at DESC
	`, userID)
}

func (r *PGRepo) ListAll(ctx context.Context, limit, offset int) ([]Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	limit, offset = NormalizePage(limit, offset)
	return r.list(ctx, `
		SELECT `+orderColumns+` FROM orders
		ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`, limit, offset)
}

func (r *PGRepo) list(ctx context.Context, sql string, args ...any) ([]Order, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("order: list: %w", err)
	}
	var ptrs []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("order: list: %w", err)
		}
		ptrs = append(ptrs, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("order: list: %w", err)
	}

	if err := r.attachLines(ctx, ptrs); err != nil {
		return nil, err
	}
	out := make([]Order, 0, len(ptrs))
	for _, o := range ptrs {
		out = append(out, *o)
	}
	return out, nil
}

// attachLines loads the items of every order in one query.
func (r *PGRepo) attachLines(ctx context.Context, orders []*Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, 0, len(orders))
	byID := make(map[string]*Order, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
		byID[o.ID] = o
	}

	rows, err := r.db.Query(ctx, `
		SELECT order_id, product_id, product_name, product_image, quantity, price::text, line_total::text
		FROM order_items WHERE order_id = ANY($1)
		ORDER BY order_id, position
	`, ids)
	if err != nil {
		return fmt.Errorf("order: lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID      string
			l            Line
			price, total string
		)
		if err := rows.Scan(&orderID, &l.ProductID, &l.ProductName, &l.ProductImage, &l.Quantity, &price, &total); err != nil {
			return fmt.Errorf("order: lines: %w", err)
		}
		if l.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return fmt.Errorf("order %s: bad price %q: %w", orderID, price, err)
		}
		if l.LineTotal, err = decimal.NewFromString(total); err != nil {
			return fmt.Errorf("order %s: bad line total %q: %w", orderID, total, err)
		}
		if o, ok := byID[orderID]; ok {
			o.Lines = append(o.Lines, l)
		}
	}
	return rows.Err()
}

func (r *PGRepo) UpdateStatus(ctx context.Context, id string, from, to Status) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE orders SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`, id, string(from), string(to))
	if err != nil {
		return fmt.Errorf("order: update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.missingOrChanged(ctx, id)
	}
	return nil
}

func (r *PGRepo) missingOrChanged(ctx context.Context, id string) error {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("order: exists: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrStatusChanged
}

func (r *PGRepo) SetFulfillmentConfirmed(ctx context.Context, id string, confirmed bool) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE orders SET fulfillment_confirmed = $2, updated_at = NOW() WHERE id = $1
	`, id, confirmed)
	if err != nil {
		return fmt.Errorf("order: confirm fulfillment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		DELETE FROM orders
		WHERE id = $1 AND paid_at IS NULL AND status IN ('Pending', 'Cancelled')
	`, id)
	if err != nil {
		return fmt.Errorf("order: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.missingOrChanged(ctx, id)
	}
	return nil
}

func (r *PGRepo) MarkPaid(ctx context.Context, id string, to Status, at time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE orders SET status = $2, paid_at = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'Pending' AND paid_at IS NULL
	`, id, string(to), at)
	if err != nil {
		return false, fmt.Errorf("order: mark paid: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// SettlePaid is MarkPaid and a stock decrement for lines committed in one
// transaction. A shortage rolls both back and comes out as a
// *product.ShortageError.
func (r *PGRepo) SettlePaid(ctx context.Context, id string, to Status, at time.Time, lines []product.Line) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, fmt.Errorf("order: settle: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE orders SET status = $2, paid_at = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'Pending' AND paid_at IS NULL
	`, id, string(to), at)
	if err != nil {
		return false, fmt.Errorf("order: settle: mark paid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	if err := product.ReserveTx(ctx, tx, lines, product.Decrement); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("order: settle: commit: %w", err)
	}
	return true, nil
}

func (r *PGRepo) UnmarkPaid(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := r.db.Exec(ctx, `
		UPDATE orders SET status = 'Pending', paid_at = NULL, updated_at = NOW()
		WHERE id = $1 AND paid_at IS NOT NULL
	`, id); err != nil {
		return fmt.Errorf("order: unmark paid: %w", err)
	}
	return nil
}

func (r *PGRepo) PromotePending(ctx context.Context, f PromoteFilter, to Status) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE orders SET status = $1, updated_at = NOW()
		WHERE status = 'Pending' AND created_at <= $2 AND ($3 = FALSE OR fulfillment_confirmed)
	`, string(to), f.CreatedBefore, f.ConfirmedOnly)
	if err != nil {
		return 0, fmt.Errorf("order: promote pending: %w", err)
	}
	return tag.RowsAffected(), nil
}
