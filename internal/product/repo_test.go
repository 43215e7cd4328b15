package product

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestPGRepo_GetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		mock := newMock(t)
		now := time.Now().UTC()
		mock.ExpectQuery(regexp.QuoteMeta(`FROM products WHERE id=$1`)).
			WithArgs("p1").
			WillReturnRows(pgxmock.NewRows([]string{
				"id", "name", "description", "category", "image", "product_type", "rating", "price", "stock", "created_at", "updated_at",
			}).AddRow("p1", "Keyboard", "RGB", "peripherals", "kb.png", "new", 4.5, "19.99", 3, now, now))

		p, err := NewPGRepo(mock).GetByID(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, "Keyboard", p.Name)
		assert.True(t, p.Price.Equal(decimal.RequireFromString("19.99")))
		assert.Equal(t, 3, p.Stock)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta(`FROM products WHERE id=$1`)).
			WithArgs("nope").
			WillReturnError(pgx.ErrNoRows)

		_, err := NewPGRepo(mock).GetByID(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestPGRepo_Reserve(t *testing.T) {
	ctx := context.Background()
	selectForUpdate := regexp.QuoteMeta(`SELECT stock FROM products WHERE id = $1 FOR UPDATE`)
	decrement := regexp.QuoteMeta(`UPDATE products SET stock = stock - $2`)

	t.Run("decrements every line atomically", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(selectForUpdate).WithArgs("p1").WillReturnRows(pgxmock.NewRows([]string{"stock"}).AddRow(5))
		mock.ExpectQuery(selectForUpdate).WithArgs("p2").WillReturnRows(pgxmock.NewRows([]string{"stock"}).AddRow(1))
		mock.ExpectExec(decrement).WithArgs("p1", 3).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectExec(decrement).WithArgs("p2", 1).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectCommit()

		// p1 appears twice and is merged into one locked row
		err := NewPGRepo(mock).Reserve(ctx, []Line{
			{ProductID: "p2", Quantity: 1},
			{ProductID: "p1", Quantity: 1},
			{ProductID: "p1", Quantity: 2},
		}, Decrement)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("shortage rolls back without decrementing", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(selectForUpdate).WithArgs("p1").WillReturnRows(pgxmock.NewRows([]string{"stock"}).AddRow(1))
		mock.ExpectQuery(selectForUpdate).WithArgs("p2").WillReturnError(pgx.ErrNoRows)
		mock.ExpectRollback()

		err := NewPGRepo(mock).Reserve(ctx, []Line{
			{ProductID: "p1", Quantity: 2},
			{ProductID: "p2", Quantity: 1},
		}, Decrement)

		var se *ShortageError
		require.True(t, errors.As(err, &se))
		assert.ErrorIs(t, err, ErrInsufficientStock)
		assert.Equal(t, []Shortage{
			{ProductID: "p1", Requested: 2, Available: 1},
			{ProductID: "p2", Requested: 1, Available: 0},
		}, se.Shortages)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("check only never writes", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT stock FROM products WHERE id = $1`)).
			WithArgs("p1").WillReturnRows(pgxmock.NewRows([]string{"stock"}).AddRow(9))
		mock.ExpectRollback()

		require.NoError(t, NewPGRepo(mock).Reserve(ctx, []Line{{ProductID: "p1", Quantity: 9}}, CheckOnly))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
