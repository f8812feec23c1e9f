package product

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (Repository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewRepository(db), mock, func() { db.Close() }
}

func productColumns() []string {
	return []string{
		"id", "name", "description", "price", "stock_quantity",
		"category_id", "category_name", "is_available", "image_url",
		"era", "original_owner", "historical_info", "created_at",
	}
}

func TestList(t *testing.T) {
	ctx := context.Background()

	t.Run("Search matches name and original owner", func(t *testing.T) {
		repo, mock, done := newMockDB(t)
		defer done()

		mock.ExpectQuery(`SELECT (.+) FROM products p`).
			WithArgs("%joséphine%").
			WillReturnRows(sqlmock.NewRows(productColumns()).
				AddRow("prod-1", "Diadème impérial", nil, "12500.00", 1,
					nil, nil, true, nil, "Premier Empire", "Joséphine de Beauharnais", nil, time.Now()))

		products, err := repo.List(ctx, ListFilter{Search: "joséphine"})
		require.NoError(t, err)
		require.Len(t, products, 1)
		assert.Equal(t, "Diadème impérial", products[0].Name)
	})

	t.Run("Category and availability filters", func(t *testing.T) {
		repo, mock, done := newMockDB(t)
		defer done()

		mock.ExpectQuery(`SELECT (.+) FROM products p (.+)is_available = TRUE(.+)category_id`).
			WithArgs("cat-1").
			WillReturnRows(sqlmock.NewRows(productColumns()))

		products, err := repo.List(ctx, ListFilter{CategoryID: "cat-1", OnlyAvailable: true})
		require.NoError(t, err)
		assert.Empty(t, products)
	})
}

func TestGetByIDMissing(t *testing.T) {
	ctx := context.Background()

	repo, mock, done := newMockDB(t)
	defer done()

	mock.ExpectQuery(`SELECT (.+) FROM products p`).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows(productColumns()))

	_, err := repo.GetByID(ctx, "ghost")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestUpdateMissing(t *testing.T) {
	ctx := context.Background()

	repo, mock, done := newMockDB(t)
	defer done()

	mock.ExpectExec(`UPDATE products SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(ctx, "ghost", UpsertParams{Name: "x"})
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestDecrementStock(t *testing.T) {
	ctx := context.Background()

	t.Run("Decrements while stock suffices", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE products`).
			WithArgs(2, "prod-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		tx, err := db.BeginTx(ctx, nil)
		require.NoError(t, err)

		require.NoError(t, DecrementStock(ctx, tx, "prod-1", 2))
		require.NoError(t, tx.Commit())
	})

	t.Run("Refuses when stock would go negative", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE products`).
			WithArgs(5, "prod-1").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		tx, err := db.BeginTx(ctx, nil)
		require.NoError(t, err)

		assert.ErrorIs(t, DecrementStock(ctx, tx, "prod-1", 5), ErrInsufficientStock)
		require.NoError(t, tx.Rollback())
	})
}
