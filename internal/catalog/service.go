package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/cafe-storefront/internal/backend"
	"github.com/noah-isme/cafe-storefront/internal/common"
	"github.com/noah-isme/cafe-storefront/internal/pricing"
)

const (
	listCacheKey      = "storefront:catalog:list"
	detailCachePrefix = "storefront:catalog:product:"
)

// ErrNotFound indicates the requested product does not exist.
var ErrNotFound = errors.New("product not found")

type productSource interface {
	Get(ctx context.Context, path, token string, out any) error
}

// Service loads products from the backend and caches the mapped result.
type Service struct {
	source productSource
	cache  *Cache
	prices pricing.Policy
	logger zerolog.Logger
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Source productSource
	Cache  *Cache
	Prices pricing.Policy
	Logger zerolog.Logger
}

// NewService validates the configuration and builds a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Source == nil {
		return nil, errors.New("catalog: product source is required")
	}
	prices := cfg.Prices
	if !prices.Fallback.IsPositive() {
		prices.Fallback = pricing.DefaultFallbackPrice
	}
	return &Service{source: cfg.Source, cache: cfg.Cache, prices: prices, logger: cfg.Logger}, nil
}

// ListProducts returns the whole catalog.
func (s *Service) ListProducts(ctx context.Context) ([]Product, error) {
	return readThrough(ctx, s.cache, s.logger, listCacheKey, func(ctx context.Context) ([]Product, error) {
		var rows []backend.Product
		if err := s.source.Get(ctx, "/products", "", &rows); err != nil {
			s.logger.Error().Err(err).Msg("error fetching products")
			return nil, upstreamError(err)
		}
		products := make([]Product, 0, len(rows))
		for _, row := range rows {
			products = append(products, FromBackend(row, s.prices))
		}
		return products, nil
	})
}

// GetProduct returns a single product by its identifier.
func (s *Service) GetProduct(ctx context.Context, id string) (Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Product{}, common.NewAppError("BAD_REQUEST", "product id is required", http.StatusBadRequest, nil).
			WithDetails(map[string]any{"field": "id"})
	}
	return readThrough(ctx, s.cache, s.logger, detailCachePrefix+id, func(ctx context.Context) (Product, error) {
		var row backend.Product
		if err := s.source.Get(ctx, "/products/"+url.PathEscape(id), "", &row); err != nil {
			if backend.IsStatus(err, http.StatusNotFound) {
				return Product{}, common.NewAppError("NOT_FOUND", ErrNotFound.Error(), http.StatusNotFound, ErrNotFound)
			}
			s.logger.Error().Err(err).Str("product_id", id).Msg("error fetching product")
			return Product{}, upstreamError(err)
		}
		product := FromBackend(row, s.prices)
		if product.ID == "" {
			product.ID = id
		}
		return product, nil
	})
}

func upstreamError(err error) *common.AppError {
	return common.NewAppError("UPSTREAM_ERROR", "Error al cargar los productos", http.StatusBadGateway, err)
}
