package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vendaflow/backend-vendas/internal/common"
	"github.com/vendaflow/backend-vendas/internal/obs"
)

// ErrNotFound is returned when a catalog entity does not exist.
var ErrNotFound = errors.New("catalog: not found")

// Product is a sellable item. Price is the authoritative list price at the
// moment an order line is created; it serialises as a decimal string.
type Product struct {
	ID         int64           `json:"id"`
	Code       string          `json:"code"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Conversion *string         `json:"conversion,omitempty"`
}

// Discount is a named tier pairing a discount percentage with the commission
// rate a salesperson earns when the tier is applied.
type Discount struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	Percentage decimal.Decimal `json:"percentage"`
	Commission decimal.Decimal `json:"commission"`
}

// ProductInput captures payload for creating or updating a product.
type ProductInput struct {
	Code       string          `json:"code" validate:"required"`
	Name       string          `json:"name" validate:"required"`
	Price      decimal.Decimal `json:"price"`
	Conversion *string         `json:"conversion"`
}

// DiscountInput captures payload for creating or updating a discount tier.
type DiscountInput struct {
	Name       string          `json:"name" validate:"required"`
	Percentage decimal.Decimal `json:"percentage"`
	Commission decimal.Decimal `json:"commission"`
}

// Store abstracts catalog persistence.
type Store interface {
	CountProducts(ctx context.Context, query string) (int64, error)
	ListProducts(ctx context.Context, query string, limit, offset int32) ([]Product, error)
	GetProduct(ctx context.Context, id int64) (Product, error)
	CreateProduct(ctx context.Context, in ProductInput) (Product, error)
	UpdateProduct(ctx context.Context, id int64, in ProductInput) (Product, error)
	DeleteProduct(ctx context.Context, id int64) error

	ListDiscounts(ctx context.Context) ([]Discount, error)
	GetDiscount(ctx context.Context, id int64) (Discount, error)
	CreateDiscount(ctx context.Context, in DiscountInput) (Discount, error)
	UpdateDiscount(ctx context.Context, id int64, in DiscountInput) (Discount, error)
	DeleteDiscount(ctx context.Context, id int64) error
}

// Service orchestrates catalog queries, input checks, and caching.
type Service struct {
	store        Store
	cache        *Cache
	defaultLimit int
	maxLimit     int
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store        Store
	Cache        *Cache
	DefaultLimit int
	MaxLimit     int
}

// ProductListResult contains list data and pagination metadata.
type ProductListResult struct {
	Items []Product
	Total int64
	Page  int
	Limit int
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("catalog: store is required")
	}
	defaultLimit := cfg.DefaultLimit
	if defaultLimit < 1 {
		defaultLimit = 20
	}
	maxLimit := cfg.MaxLimit
	if maxLimit < 1 {
		maxLimit = 100
	}
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}
	return &Service{
		store:        cfg.Store,
		cache:        cfg.Cache,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}, nil
}

// ListProducts returns a filtered product page. The unfiltered first page is
// served from cache when possible.
func (s *Service) ListProducts(ctx context.Context, query string, page, limit int) (ProductListResult, error) {
	query = strings.TrimSpace(query)
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = s.defaultLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}

	cacheable := query == "" && page == 1 && limit == s.defaultLimit
	if cacheable && s.cache != nil {
		var cached cachedProducts
		ok, err := s.cache.GetJSON(ctx, productListKey, &cached)
		if err == nil && ok {
			cacheResult("products", "hit")
			return ProductListResult{Items: cached.Items, Total: cached.Total, Page: page, Limit: limit}, nil
		}
		cacheResult("products", "miss")
	}

	total, err := s.store.CountProducts(ctx, query)
	if err != nil {
		return ProductListResult{}, fmt.Errorf("count products: %w", err)
	}
	items, err := s.store.ListProducts(ctx, query, int32(limit), int32((page-1)*limit))
	if err != nil {
		return ProductListResult{}, fmt.Errorf("list products: %w", err)
	}
	if cacheable && s.cache != nil {
		_ = s.cache.SetJSON(ctx, productListKey, cachedProducts{Items: items, Total: total})
	}
	return ProductListResult{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// GetProduct returns a single product by id.
func (s *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
	p, err := s.store.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Product{}, common.NotFound("product", err)
		}
		return Product{}, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// CreateProduct validates and stores a new product.
func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (Product, error) {
	if err := validateProduct(in); err != nil {
		return Product{}, err
	}
	p, err := s.store.CreateProduct(ctx, in)
	if err != nil {
		if errors.Is(err, ErrDuplicateCode) {
			return Product{}, common.NewAppError("CONFLICT", "product code already exists", 409, err)
		}
		return Product{}, fmt.Errorf("create product: %w", err)
	}
	s.invalidateProducts(ctx)
	return p, nil
}

// UpdateProduct validates and stores product changes.
func (s *Service) UpdateProduct(ctx context.Context, id int64, in ProductInput) (Product, error) {
	if err := validateProduct(in); err != nil {
		return Product{}, err
	}
	p, err := s.store.UpdateProduct(ctx, id, in)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Product{}, common.NotFound("product", err)
		}
		if errors.Is(err, ErrDuplicateCode) {
			return Product{}, common.NewAppError("CONFLICT", "product code already exists", 409, err)
		}
		return Product{}, fmt.Errorf("update product: %w", err)
	}
	s.invalidateProducts(ctx)
	return p, nil
}

// DeleteProduct removes a product.
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.store.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return common.NotFound("product", err)
		}
		return fmt.Errorf("delete product: %w", err)
	}
	s.invalidateProducts(ctx)
	return nil
}

// ListDiscounts returns every discount tier, cached as one unit since the
// catalog is small and read on every order edit.
func (s *Service) ListDiscounts(ctx context.Context) ([]Discount, error) {
	if s.cache != nil {
		var cached []Discount
		ok, err := s.cache.GetJSON(ctx, discountListKey, &cached)
		if err == nil && ok {
			cacheResult("discounts", "hit")
			return cached, nil
		}
		cacheResult("discounts", "miss")
	}
	rows, err := s.store.ListDiscounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list discounts: %w", err)
	}
	if s.cache != nil {
		_ = s.cache.SetJSON(ctx, discountListKey, rows)
	}
	return rows, nil
}

// GetDiscount returns a single discount tier by id.
func (s *Service) GetDiscount(ctx context.Context, id int64) (Discount, error) {
	d, err := s.store.GetDiscount(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Discount{}, common.NotFound("discount", err)
		}
		return Discount{}, fmt.Errorf("get discount: %w", err)
	}
	return d, nil
}

// CreateDiscount validates and stores a new discount tier.
func (s *Service) CreateDiscount(ctx context.Context, in DiscountInput) (Discount, error) {
	if err := validateDiscount(in); err != nil {
		return Discount{}, err
	}
	d, err := s.store.CreateDiscount(ctx, in)
	if err != nil {
		return Discount{}, fmt.Errorf("create discount: %w", err)
	}
	s.invalidateDiscounts(ctx)
	return d, nil
}

// UpdateDiscount validates and stores tier changes.
func (s *Service) UpdateDiscount(ctx context.Context, id int64, in DiscountInput) (Discount, error) {
	if err := validateDiscount(in); err != nil {
		return Discount{}, err
	}
	d, err := s.store.UpdateDiscount(ctx, id, in)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Discount{}, common.NotFound("discount", err)
		}
		return Discount{}, fmt.Errorf("update discount: %w", err)
	}
	s.invalidateDiscounts(ctx)
	return d, nil
}

// DeleteDiscount removes a discount tier. Orders keep the resolved
// percentage and commission on their items, so deleting a tier never
// rewrites history.
func (s *Service) DeleteDiscount(ctx context.Context, id int64) error {
	if err := s.store.DeleteDiscount(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return common.NotFound("discount", err)
		}
		return fmt.Errorf("delete discount: %w", err)
	}
	s.invalidateDiscounts(ctx)
	return nil
}

func (s *Service) invalidateProducts(ctx context.Context) {
	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, productListKey)
	}
}

func (s *Service) invalidateDiscounts(ctx context.Context) {
	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, discountListKey)
	}
}

func validateProduct(in ProductInput) error {
	if strings.TrimSpace(in.Code) == "" {
		return common.BadRequest("code", "code is required", nil)
	}
	if strings.TrimSpace(in.Name) == "" {
		return common.BadRequest("name", "name is required", nil)
	}
	if in.Price.Sign() <= 0 {
		return common.BadRequest("price", "price must be positive", nil)
	}
	return nil
}

func validateDiscount(in DiscountInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return common.BadRequest("name", "name is required", nil)
	}
	if in.Percentage.Sign() < 0 || in.Percentage.Cmp(decimal.NewFromInt(100)) >= 0 {
		return common.BadRequest("percentage", "percentage must be in [0, 100)", nil)
	}
	if in.Commission.Sign() < 0 {
		return common.BadRequest("commission", "commission must not be negative", nil)
	}
	return nil
}

func cacheResult(object, result string) {
	if obs.CatalogCacheTotal != nil {
		obs.CatalogCacheTotal.WithLabelValues(object, result).Inc()
	}
}

type cachedProducts struct {
	Items []Product `json:"items"`
	Total int64     `json:"total"`
}
