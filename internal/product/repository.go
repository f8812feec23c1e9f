package product

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bijouterie-be/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	Create(ctx context.Context, params UpsertParams) (*Product, error)
	Update(ctx context.Context, id string, params UpsertParams) error
	Delete(ctx context.Context, id string) error
	CountProducts(ctx context.Context) (int64, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Product, error) {
	log := logger.FromCtx(ctx).With(zap.String("method", "List"))

	query := `
		SELECT p.id, p.name, p.description, p.price, p.stock_quantity,
		       p.category_id, c.name, p.is_available, p.image_url,
		       p.era, p.original_owner, p.historical_info, p.created_at
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE 1=1
	`

	args := []any{}
	argIndex := 1

	if filter.OnlyAvailable {
		query += " AND p.is_available = TRUE"
	}

	if filter.Search != "" {
		query += fmt.Sprintf(
			" AND (p.name ILIKE $%d OR p.original_owner ILIKE $%d)",
			argIndex, argIndex,
		)
		args = append(args, "%"+filter.Search+"%")
		argIndex++
	}

	if filter.CategoryID != "" {
		query += fmt.Sprintf(" AND p.category_id = $%d", argIndex)
		args = append(args, filter.CategoryID)
		argIndex++
	}

	query += " ORDER BY p.created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query products", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Description, &p.Price, &p.StockQuantity,
			&p.CategoryID, &p.CategoryName, &p.IsAvailable, &p.ImageURL,
			&p.Era, &p.OriginalOwner, &p.HistoricalInfo, &p.CreatedAt,
		); err != nil {
			log.Error("failed to scan product row", zap.Error(err))
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *repository) GetByID(ctx context.Context, id string) (*Product, error) {
	var p Product
	err := r.db.QueryRowContext(ctx, `
		SELECT p.id, p.name, p.description, p.price, p.stock_quantity,
		       p.category_id, c.name, p.is_available, p.image_url,
		       p.era, p.original_owner, p.historical_info, p.created_at
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.id = $1
	`, id).Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.StockQuantity,
		&p.CategoryID, &p.CategoryName, &p.IsAvailable, &p.ImageURL,
		&p.Era, &p.OriginalOwner, &p.HistoricalInfo, &p.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) Create(ctx context.Context, params UpsertParams) (*Product, error) {
	var p Product
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO products (
			id, name, description, price, stock_quantity,
			category_id, is_available, image_url, era, original_owner, historical_info
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING id, name, description, price, stock_quantity,
		          category_id, is_available, image_url, era, original_owner,
		          historical_info, created_at
	`,
		uuid.NewString(), params.Name, params.Description, params.Price,
		params.StockQuantity, params.CategoryID, params.IsAvailable,
		params.ImageURL, params.Era, params.OriginalOwner, params.HistoricalInfo,
	).Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.StockQuantity,
		&p.CategoryID, &p.IsAvailable, &p.ImageURL,
		&p.Era, &p.OriginalOwner, &p.HistoricalInfo, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) Update(ctx context.Context, id string, params UpsertParams) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE products SET
			name = $1, description = $2, price = $3, stock_quantity = $4,
			category_id = $5, is_available = $6, image_url = $7,
			era = $8, original_owner = $9, historical_info = $10
		WHERE id = $11
	`,
		params.Name, params.Description, params.Price, params.StockQuantity,
		params.CategoryID, params.IsAvailable, params.ImageURL,
		params.Era, params.OriginalOwner, params.HistoricalInfo, id,
	)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *repository) CountProducts(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n)
	return n, err
}

// DecrementStock is the conditional decrement used at order finalization:
// it only succeeds while enough stock remains, so stock never goes negative
// even when two checkouts race. Callers pass the transaction they run in.
func DecrementStock(ctx context.Context, tx *sql.Tx, productID string, qty int) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE products
		SET stock_quantity = stock_quantity - $1
		WHERE id = $2 AND stock_quantity >= $1
	`, qty, productID)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrInsufficientStock
	}
	return nil
}
