package favorite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrFavoriteNotFound = errors.New("favorite not found")

// Favorite is a saved product joined with the catalog fields the wishlist
// page renders.
type Favorite struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	CreatedAt time.Time `json:"created_at"`

	ProductName   string          `json:"product_name"`
	Price         decimal.Decimal `json:"price"`
	ImageURL      *string         `json:"image_url,omitempty"`
	Era           *string         `json:"era,omitempty"`
	OriginalOwner *string         `json:"original_owner,omitempty"`
	IsAvailable   bool            `json:"is_available"`
}

type Repository interface {
	List(ctx context.Context, userID string) ([]Favorite, error)
	Add(ctx context.Context, userID, productID string) error
	Remove(ctx context.Context, userID, productID string) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) List(ctx context.Context, userID string) ([]Favorite, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT f.id, f.product_id, f.created_at,
		       p.name, p.price, p.image_url, p.era, p.original_owner, p.is_available
		FROM favorites f
		JOIN products p ON p.id = f.product_id
		WHERE f.user_id = $1
		ORDER BY f.created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var favorites []Favorite
	for rows.Next() {
		var f Favorite
		if err := rows.Scan(
			&f.ID, &f.ProductID, &f.CreatedAt,
			&f.ProductName, &f.Price, &f.ImageURL, &f.Era, &f.OriginalOwner, &f.IsAvailable,
		); err != nil {
			return nil, err
		}
		favorites = append(favorites, f)
	}
	return favorites, rows.Err()
}

// Add is a no-op when the pair already exists.
func (r *repository) Add(ctx context.Context, userID, productID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO favorites (id, user_id, product_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, product_id) DO NOTHING
	`, uuid.NewString(), userID, productID)
	return err
}

func (r *repository) Remove(ctx context.Context, userID, productID string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM favorites WHERE user_id = $1 AND product_id = $2
	`, userID, productID)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrFavoriteNotFound
	}
	return nil
}
