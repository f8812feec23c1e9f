package product

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"bijouterie-be/internal/cache"
	"bijouterie-be/internal/logger"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Service interface {
	ListCatalog(ctx context.Context, search, categoryID string) ([]Product, error)
	ListAll(ctx context.Context) ([]Product, error)
	Get(ctx context.Context, id string) (*Product, error)
	Create(ctx context.Context, params UpsertParams) (*Product, error)
	Update(ctx context.Context, id string, params UpsertParams) error
	Delete(ctx context.Context, id string) error
}

type service struct {
	repo Repository
	rdb  *redis.Client
}

func NewService(repo Repository, rdb *redis.Client) Service {
	return &service{repo: repo, rdb: rdb}
}

// ListCatalog serves the storefront listing: available products only, served
// from the short-lived cache when possible.
func (s *service) ListCatalog(ctx context.Context, search, categoryID string) ([]Product, error) {
	key := fmt.Sprintf(cache.KeyCatalog, strings.ToLower(search), categoryID)

	if raw, ok := cache.Get(ctx, s.rdb, key); ok {
		var products []Product
		if err := json.Unmarshal([]byte(raw), &products); err == nil {
			return products, nil
		}
	}

	products, err := s.repo.List(ctx, ListFilter{
		Search:        search,
		CategoryID:    categoryID,
		OnlyAvailable: true,
	})
	if err != nil {
		return nil, err
	}

	if b, err := json.Marshal(products); err == nil {
		cache.Set(ctx, s.rdb, key, string(b), cache.TTLCatalog)
	}

	return products, nil
}

// ListAll is the back-office listing, including unavailable products.
func (s *service) ListAll(ctx context.Context) ([]Product, error) {
	return s.repo.List(ctx, ListFilter{})
}

func (s *service) Get(ctx context.Context, id string) (*Product, error) {
	return s.repo.GetByID(ctx, id)
}

func validateUpsert(params UpsertParams) error {
	if strings.TrimSpace(params.Name) == "" {
		return errors.New("name is required")
	}
	if params.Price.LessThan(decimal.Zero) {
		return errors.New("price must not be negative")
	}
	if params.StockQuantity < 0 {
		return errors.New("stock quantity must not be negative")
	}
	return nil
}

func (s *service) Create(ctx context.Context, params UpsertParams) (*Product, error) {
	if err := validateUpsert(params); err != nil {
		return nil, err
	}

	p, err := s.repo.Create(ctx, params)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to create product",
			zap.String("name", params.Name), zap.Error(err))
		return nil, err
	}

	s.invalidateCatalog(ctx)
	return p, nil
}

func (s *service) Update(ctx context.Context, id string, params UpsertParams) error {
	if err := validateUpsert(params); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, id, params); err != nil {
		return err
	}
	s.invalidateCatalog(ctx)
	return nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateCatalog(ctx)
	return nil
}

func (s *service) invalidateCatalog(ctx context.Context) {
	cache.InvalidatePrefix(ctx, s.rdb, "catalog:")
}
