package catalog

import (
	"context"
	"fmt"

	"stokado/internal/core/actor"
	"stokado/internal/core/apperror"
	"stokado/internal/core/id"
	"stokado/pkg/logger"
)

// Service provides catalog CRUD.
type Service struct {
	repo Repository
}

// NewService creates a new catalog service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) requireWriter(ctx context.Context) error {
	a, err := actor.Require(ctx)
	if err != nil {
		return err
	}
	if !a.CanWrite() {
		return apperror.NewForbidden("viewer role cannot modify catalogs")
	}
	return nil
}

// CreateProduct validates and stores a product.
func (s *Service) CreateProduct(ctx context.Context, p *Product) error {
	if err := s.requireWriter(ctx); err != nil {
		return err
	}
	if err := p.Validate(ctx); err != nil {
		return err
	}
	if err := s.repo.CreateProduct(ctx, p); err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	logger.Info(ctx, "created product", "product_id", p.ID, "code", p.Code)
	return nil
}

// UpdateProduct validates and updates a product with optimistic locking.
func (s *Service) UpdateProduct(ctx context.Context, p *Product) error {
	if err := s.requireWriter(ctx); err != nil {
		return err
	}
	if err := p.Validate(ctx); err != nil {
		return err
	}
	p.Touch()
	if err := s.repo.UpdateProduct(ctx, p); err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

// GetProduct returns a product by ID.
func (s *Service) GetProduct(ctx context.Context, productID id.ID) (*Product, error) {
	return s.repo.GetProduct(ctx, productID)
}

// ListProducts returns products matching the filter.
func (s *Service) ListProducts(ctx context.Context, filter ListFilter) ([]*Product, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return s.repo.ListProducts(ctx, filter)
}

// DeleteProduct soft deletes a product.
func (s *Service) DeleteProduct(ctx context.Context, productID id.ID) error {
	if err := s.requireWriter(ctx); err != nil {
		return err
	}
	p, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return err
	}
	p.MarkDeleted()
	p.Touch()
	return s.repo.UpdateProduct(ctx, p)
}

// CreateVariant validates and stores a variant, checking the parent exists.
func (s *Service) CreateVariant(ctx context.Context, v *Variant) error {
	if err := s.requireWriter(ctx); err != nil {
		return err
	}
	if err := v.Validate(ctx); err != nil {
		return err
	}
	if _, err := s.repo.GetProduct(ctx, v.ProductID); err != nil {
		return err
	}
	if err := s.repo.CreateVariant(ctx, v); err != nil {
		return fmt.Errorf("create variant: %w", err)
	}
	logger.Info(ctx, "created variant", "variant_id", v.ID, "product_id", v.ProductID)
	return nil
}

// GetVariant returns a variant by ID.
func (s *Service) GetVariant(ctx context.Context, variantID id.ID) (*Variant, error) {
	return s.repo.GetVariant(ctx, variantID)
}

// ListVariants returns the variants of a product.
func (s *Service) ListVariants(ctx context.Context, productID id.ID) ([]*Variant, error) {
	return s.repo.ListVariants(ctx, productID)
}

// CreateLocation validates and stores a location.
func (s *Service) CreateLocation(ctx context.Context, l *Location) error {
	if err := s.requireWriter(ctx); err != nil {
		return err
	}
	if err := l.Validate(ctx); err != nil {
		return err
	}
	if err := s.repo.CreateLocation(ctx, l); err != nil {
		return fmt.Errorf("create location: %w", err)
	}
	logger.Info(ctx, "created location", "location_id", l.ID, "code", l.Code)
	return nil
}

// GetLocation returns a location by ID.
func (s *Service) GetLocation(ctx context.Context, locationID id.ID) (*Location, error) {
	return s.repo.GetLocation(ctx, locationID)
}

// ListLocations returns locations matching the filter.
func (s *Service) ListLocations(ctx context.Context, filter ListFilter) ([]*Location, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return s.repo.ListLocations(ctx, filter)
}
