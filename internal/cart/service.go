package cart

import (
	"context"
	"errors"

	"bijouterie-be/internal/product"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("quantity must be greater than zero")
)

type Service interface {
	GetCart(ctx context.Context, userID string) ([]Item, error)
	AddToCart(ctx context.Context, params AddParams) (*Item, error)
	UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) error
	Remove(ctx context.Context, userID, itemID string) error
	Clear(ctx context.Context, userID string) error
}

type service struct {
	repo        Repository
	productRepo product.Repository
}

func NewService(repo Repository, productRepo product.Repository) Service {
	return &service{repo: repo, productRepo: productRepo}
}

func (s *service) GetCart(ctx context.Context, userID string) ([]Item, error) {
	return s.repo.GetCart(ctx, userID)
}

// AddToCart merges the requested quantity into any existing line for the same
// product, validating the merged quantity against current stock.
func (s *service) AddToCart(ctx context.Context, params AddParams) (*Item, error) {
	if params.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	p, err := s.productRepo.GetByID(ctx, params.ProductID)
	if err != nil {
		if errors.Is(err, product.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	if !p.IsAvailable {
		return nil, ErrProductNotFound
	}

	existing, err := s.repo.GetItem(ctx, params.UserID, params.ProductID)
	if err != nil {
		return nil, err
	}

	finalQty := params.Quantity
	if existing != nil {
		finalQty += existing.Quantity
	}

	if finalQty > p.StockQuantity {
		return nil, ErrInsufficientStock
	}

	if existing == nil {
		return s.repo.Create(ctx, params)
	}

	if err := s.repo.UpdateQuantity(ctx, params.UserID, existing.ID, finalQty); err != nil {
		return nil, err
	}
	existing.Quantity = finalQty
	return existing, nil
}

func (s *service) UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	return s.repo.UpdateQuantity(ctx, userID, itemID, quantity)
}

func (s *service) Remove(ctx context.Context, userID, itemID string) error {
	return s.repo.Remove(ctx, userID, itemID)
}

func (s *service) Clear(ctx context.Context, userID string) error {
	return s.repo.Clear(ctx, userID)
}
