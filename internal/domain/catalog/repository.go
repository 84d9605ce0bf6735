package catalog

import (
	"context"

	"stokado/internal/core/id"
	"stokado/internal/core/types"
)

// ListFilter for catalog listings.
type ListFilter struct {
	Search         string
	IncludeDeleted bool
	Limit          int
	Offset         int
}

// Repository defines storage operations for catalog entities.
type Repository interface {
	// Products

	CreateProduct(ctx context.Context, p *Product) error
	UpdateProduct(ctx context.Context, p *Product) error
	GetProduct(ctx context.Context, productID id.ID) (*Product, error)
	ListProducts(ctx context.Context, filter ListFilter) ([]*Product, error)

	// UpdateLastCost refreshes the last purchase cost on the product or,
	// when variantID is non-nil, on the variant.
	UpdateLastCost(ctx context.Context, productID, variantID id.ID, cost types.Money) error

	// Variants

	CreateVariant(ctx context.Context, v *Variant) error
	GetVariant(ctx context.Context, variantID id.ID) (*Variant, error)
	ListVariants(ctx context.Context, productID id.ID) ([]*Variant, error)

	// Locations

	CreateLocation(ctx context.Context, l *Location) error
	UpdateLocation(ctx context.Context, l *Location) error
	GetLocation(ctx context.Context, locationID id.ID) (*Location, error)
	ListLocations(ctx context.Context, filter ListFilter) ([]*Location, error)
}

// Resolver is the slice of catalog lookups document posting needs.
// The full Repository satisfies it.
type Resolver interface {
	GetProduct(ctx context.Context, productID id.ID) (*Product, error)
	GetVariant(ctx context.Context, variantID id.ID) (*Variant, error)
	GetLocation(ctx context.Context, locationID id.ID) (*Location, error)
	UpdateLastCost(ctx context.Context, productID, variantID id.ID, cost types.Money) error
}
