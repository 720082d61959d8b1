package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// CatalogService handles admin product maintenance. Listing and filtering
// belong to the reporting layer, not here.
type CatalogService struct {
	catalog Catalog
	cache   ProductCache
	logger  *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(catalog Catalog, cache ProductCache) *CatalogService {
	return &CatalogService{
		catalog: catalog,
		cache:   cache,
		logger:  util.GetLogger(),
	}
}

// generateSKU derives a SKU from the current timestamp's trailing digits.
func generateSKU() string {
	ms := fmt.Sprintf("%d", time.Now().UnixMilli())
	return "SKU-" + ms[len(ms)-6:]
}

// CreateProduct creates a product, generating a SKU when none was given.
func (c *CatalogService) CreateProduct(ctx context.Context, p *models.Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return apperr.New(apperr.ValidationFailed, "product name is required")
	}
	if p.Price < 0 {
		return apperr.New(apperr.ValidationFailed, "price must not be negative")
	}
	if p.StockQuantity < 0 {
		return apperr.New(apperr.ValidationFailed, "stock quantity must not be negative")
	}

	if strings.TrimSpace(p.SKU) == "" {
		p.SKU = generateSKU()
	}

	if err := c.catalog.InsertProduct(ctx, p); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return apperr.Newf(apperr.ValidationFailed, "sku %q is already in use", p.SKU)
		}
		return apperr.Wrap(apperr.StoreUnavailable, "could not create product", err)
	}

	c.logger.Info("Product created", zap.Int64("product_id", p.ID), zap.String("sku", p.SKU))
	return nil
}

// UpdateProduct replaces a product's attributes and drops its cache entry.
func (c *CatalogService) UpdateProduct(ctx context.Context, p *models.Product) error {
	if p.Price < 0 || p.StockQuantity < 0 {
		return apperr.New(apperr.ValidationFailed, "price and stock quantity must not be negative")
	}

	if err := c.catalog.UpdateProduct(ctx, p); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.Newf(apperr.NotFound, "product %d not found", p.ID)
		}
		if errors.Is(err, store.ErrDuplicate) {
			return apperr.Newf(apperr.ValidationFailed, "sku %q is already in use", p.SKU)
		}
		return apperr.Wrap(apperr.StoreUnavailable, "could not update product", err)
	}

	c.invalidate(ctx, p.ID)
	return nil
}

// DeleteProduct removes a product. Historical order items keep their
// frozen name and price.
func (c *CatalogService) DeleteProduct(ctx context.Context, id int64) error {
	if err := c.catalog.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.Newf(apperr.NotFound, "product %d not found", id)
		}
		return apperr.Wrap(apperr.StoreUnavailable, "could not delete product", err)
	}

	c.invalidate(ctx, id)
	return nil
}

// GetProduct reads a single product.
func (c *CatalogService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	p, err := c.catalog.ProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.Newf(apperr.NotFound, "product %d not found", id)
		}
		return nil, apperr.Wrap(apperr.StoreUnavailable, "could not read product", err)
	}
	return p, nil
}

func (c *CatalogService) invalidate(ctx context.Context, id int64) {
	if c.cache == nil {
		return
	}
	if err := c.cache.DeleteProduct(ctx, id); err != nil {
		c.logger.Warn("Product cache invalidation failed",
			zap.Int64("product_id", id), zap.Error(err))
	}
}
