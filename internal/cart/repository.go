package cart

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

var ErrItemNotFound = errors.New("cart item not found")

type Repository interface {
	GetCart(ctx context.Context, userID string) ([]Item, error)
	GetItem(ctx context.Context, userID, productID string) (*Item, error)
	Create(ctx context.Context, params AddParams) (*Item, error)
	UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) error
	Remove(ctx context.Context, userID, itemID string) error
	Clear(ctx context.Context, userID string) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetCart(ctx context.Context, userID string) ([]Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ci.id, ci.user_id, ci.product_id, ci.quantity, ci.created_at,
		       p.name, p.price, p.stock_quantity, p.image_url, p.is_available
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.user_id = $1
		ORDER BY ci.created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(
			&it.ID, &it.UserID, &it.ProductID, &it.Quantity, &it.CreatedAt,
			&it.ProductName, &it.UnitPrice, &it.Stock, &it.ImageURL, &it.IsAvailable,
		); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *repository) GetItem(ctx context.Context, userID, productID string) (*Item, error) {
	var it Item
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, product_id, quantity, created_at
		FROM cart_items
		WHERE user_id = $1 AND product_id = $2
	`, userID, productID).Scan(&it.ID, &it.UserID, &it.ProductID, &it.Quantity, &it.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *repository) Create(ctx context.Context, params AddParams) (*Item, error) {
	var it Item
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO cart_items (id, user_id, product_id, quantity)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, product_id, quantity, created_at
	`, uuid.NewString(), params.UserID, params.ProductID, params.Quantity).
		Scan(&it.ID, &it.UserID, &it.ProductID, &it.Quantity, &it.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *repository) UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE cart_items SET quantity = $1
		WHERE id = $2 AND user_id = $3
	`, quantity, itemID, userID)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *repository) Remove(ctx context.Context, userID, itemID string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM cart_items WHERE id = $1 AND user_id = $2
	`, itemID, userID)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *repository) Clear(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	return err
}
