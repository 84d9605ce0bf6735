package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stokado/internal/core/id"
	"stokado/internal/core/types"
	"stokado/internal/domain/catalog"
	"stokado/internal/infrastructure/storage/postgres"
)

const (
	productsTable  = "cat_products"
	variantsTable  = "cat_variants"
	locationsTable = "cat_locations"
)

// Ensure interface compliance.
var _ catalog.Repository = (*CatalogRepo)(nil)

// CatalogRepo implements catalog.Repository for products, variants, and
// locations.
type CatalogRepo struct {
	products  *BaseCatalogRepo[*catalog.Product]
	variants  *BaseCatalogRepo[*catalog.Variant]
	locations *BaseCatalogRepo[*catalog.Location]
}

// NewCatalogRepo creates a new catalog repository.
func NewCatalogRepo(txm *postgres.TxManager) *CatalogRepo {
	return &CatalogRepo{
		products: NewBaseCatalogRepo(
			txm,
			productsTable,
			postgres.ExtractDBColumns[catalog.Product](),
			func() *catalog.Product { return &catalog.Product{} },
		),
		variants: NewBaseCatalogRepo(
			txm,
			variantsTable,
			postgres.ExtractDBColumns[catalog.Variant](),
			func() *catalog.Variant { return &catalog.Variant{} },
		),
		locations: NewBaseCatalogRepo(
			txm,
			locationsTable,
			postgres.ExtractDBColumns[catalog.Location](),
			func() *catalog.Location { return &catalog.Location{} },
		),
	}
}

func (r *CatalogRepo) CreateProduct(ctx context.Context, p *catalog.Product) error {
	return r.products.Create(ctx, p)
}

func (r *CatalogRepo) UpdateProduct(ctx context.Context, p *catalog.Product) error {
	return r.products.Update(ctx, p)
}

func (r *CatalogRepo) GetProduct(ctx context.Context, productID id.ID) (*catalog.Product, error) {
	return r.products.GetByID(ctx, productID)
}

func (r *CatalogRepo) ListProducts(ctx context.Context, filter catalog.ListFilter) ([]*catalog.Product, error) {
	return r.products.List(ctx, filter)
}

// UpdateLastCost refreshes the last purchase cost. It deliberately skips
// optimistic locking: last cost is derivative data and the write happens
// inside posting transactions, where a version conflict would abort the
// whole posting.
func (r *CatalogRepo) UpdateLastCost(ctx context.Context, productID, variantID id.ID, cost types.Money) error {
	table := productsTable
	target := productID
	if !id.IsNil(variantID) {
		table = variantsTable
		target = variantID
	}

	sql := "UPDATE " + table + " SET last_cost = $1 WHERE id = $2"
	if _, err := r.products.Querier(ctx).Exec(ctx, sql, cost, target); err != nil {
		return fmt.Errorf("update last cost: %w", err)
	}
	return nil
}

func (r *CatalogRepo) CreateVariant(ctx context.Context, v *catalog.Variant) error {
	return r.variants.Create(ctx, v)
}

func (r *CatalogRepo) GetVariant(ctx context.Context, variantID id.ID) (*catalog.Variant, error) {
	return r.variants.GetByID(ctx, variantID)
}

// ListVariants returns the product's variants ordered by code.
func (r *CatalogRepo) ListVariants(ctx context.Context, productID id.ID) ([]*catalog.Variant, error) {
	q := r.variants.Builder().
		Select(postgres.ExtractDBColumns[catalog.Variant]()...).
		From(variantsTable).
		Where(squirrel.Eq{"product_id": productID}).
		Where(squirrel.Eq{"deletion_mark": false}).
		OrderBy("code")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var variants []*catalog.Variant
	if err := pgxscan.Select(ctx, r.variants.Querier(ctx), &variants, sql, args...); err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	return variants, nil
}

func (r *CatalogRepo) CreateLocation(ctx context.Context, l *catalog.Location) error {
	return r.locations.Create(ctx, l)
}

func (r *CatalogRepo) UpdateLocation(ctx context.Context, l *catalog.Location) error {
	return r.locations.Update(ctx, l)
}

func (r *CatalogRepo) GetLocation(ctx context.Context, locationID id.ID) (*catalog.Location, error) {
	return r.locations.GetByID(ctx, locationID)
}

func (r *CatalogRepo) ListLocations(ctx context.Context, filter catalog.ListFilter) ([]*catalog.Location, error) {
	return r.locations.List(ctx, filter)
}
