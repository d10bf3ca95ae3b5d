package service

import (
	"context"
	"errors"
	"strings"

	"github.com/gosimple/slug"

	"github.com/iliyamo/shopease-api/internal/apperr"
	"github.com/iliyamo/shopease-api/internal/model"
	"github.com/iliyamo/shopease-api/internal/repository"
)

// Defaults applied to mirror entries created from a client hint.
const (
	DefaultCategory = "general"
	DefaultStock    = 100
)

// CatalogService resolves external product ids against the local mirror
// and fills the mirror on first reference.
type CatalogService struct {
	products ProductStore
}

func NewCatalogService(products ProductStore) *CatalogService {
	return &CatalogService{products: products}
}

// Resolve returns the mirrored product for ref.
func (s *CatalogService) Resolve(ctx context.Context, ref string) (model.Product, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return model.Product{}, apperr.Validation("Product ID is required")
	}
	p, err := s.products.GetProductByExternalRef(ctx, ref)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Product{}, apperr.NotFound("Product not found: " + ref)
	}
	if err != nil {
		return model.Product{}, apperr.Internal("load product", err)
	}
	return p, nil
}

// GetOrCreate resolves ref, creating the mirror entry from hint when it is
// not mirrored yet. A first-time reference without a hint is a validation
// error. Creation is a single atomic upsert, so concurrent first
// references end up with one product.
func (s *CatalogService) GetOrCreate(ctx context.Context, ref string, hint *model.ProductHint) (model.Product, model.Resolution, error) {
	p, err := s.Resolve(ctx, ref)
	if err == nil {
		return p, model.Found, nil
	}
	if !apperr.Is(err, apperr.KindNotFound) {
		return model.Product{}, model.Found, err
	}
	if hint == nil {
		return model.Product{}, model.Found, apperr.Validation("Product details are required for new products")
	}

	candidate, err := productFromHint(strings.TrimSpace(ref), *hint)
	if err != nil {
		return model.Product{}, model.Found, err
	}
	p, how, err := s.products.GetOrCreateProduct(ctx, candidate)
	if err != nil {
		return model.Product{}, model.Found, apperr.Internal("create product", err)
	}
	return p, how, nil
}

func productFromHint(ref string, h model.ProductHint) (model.Product, error) {
	name := strings.TrimSpace(h.Name)
	if name == "" {
		return model.Product{}, apperr.Validation("Product name is required")
	}
	if h.Price.IsNegative() {
		return model.Product{}, apperr.Validation("Product price cannot be negative")
	}
	if h.Price.Round(2).GreaterThan(model.MaxAmount) {
		return model.Product{}, apperr.Validation("Product price is too large")
	}
	stock := DefaultStock
	if h.Stock != nil {
		if *h.Stock < 0 {
			return model.Product{}, apperr.Validation("Product stock cannot be negative")
		}
		stock = *h.Stock
	}
	category := strings.TrimSpace(h.Category)
	if category == "" {
		category = DefaultCategory
	}
	return model.Product{
		ExternalRef: ref,
		Slug:        slug.Make(name),
		Name:        name,
		Description: strings.TrimSpace(h.Description),
		Price:       h.Price.Round(2),
		Image:       strings.TrimSpace(h.Image),
		Category:    category,
		Stock:       stock,
		IsActive:    true,
	}, nil
}
