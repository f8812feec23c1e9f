package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is one cart line joined with the product it references.
type Item struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`

	ProductName  string          `json:"product_name"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Stock        int             `json:"stock"`
	ImageURL     *string         `json:"image_url,omitempty"`
	IsAvailable  bool            `json:"is_available"`
}

type AddParams struct {
	UserID    string
	ProductID string
	Quantity  int
}
