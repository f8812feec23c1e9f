package product

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is one jewelry piece in the catalog. The provenance fields (era,
// original owner, historical info) come straight from the curators.
type Product struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Description    *string         `json:"description,omitempty"`
	Price          decimal.Decimal `json:"price"`
	StockQuantity  int             `json:"stock_quantity"`
	CategoryID     *string         `json:"category_id,omitempty"`
	CategoryName   *string         `json:"category_name,omitempty"`
	IsAvailable    bool            `json:"is_available"`
	ImageURL       *string         `json:"image_url,omitempty"`
	Era            *string         `json:"era,omitempty"`
	OriginalOwner  *string         `json:"original_owner,omitempty"`
	HistoricalInfo *string         `json:"historical_info,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// ListFilter narrows the catalog listing. Search matches the name and the
// original owner, the way the storefront search box works.
type ListFilter struct {
	Search        string
	CategoryID    string
	OnlyAvailable bool
}

type UpsertParams struct {
	Name           string          `json:"name"`
	Description    *string         `json:"description"`
	Price          decimal.Decimal `json:"price"`
	StockQuantity  int             `json:"stock_quantity"`
	CategoryID     *string         `json:"category_id"`
	IsAvailable    bool            `json:"is_available"`
	ImageURL       *string         `json:"image_url"`
	Era            *string         `json:"era"`
	OriginalOwner  *string         `json:"original_owner"`
	HistoricalInfo *string         `json:"historical_info"`
}
