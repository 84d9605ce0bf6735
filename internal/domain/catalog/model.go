// Package catalog provides the reference data the ledger moves: products,
// their variants, and warehouse locations.
package catalog

import (
	"context"
	"strings"

	"stokado/internal/core/apperror"
	"stokado/internal/core/entity"
	"stokado/internal/core/id"
	"stokado/internal/core/types"
)

// Product is a stock-keeping item.
type Product struct {
	entity.BaseCatalog

	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`
	Unit string `db:"unit" json:"unit"`

	// LotTracked products get FIFO lot allocation on issue when the line
	// does not pin a lot.
	LotTracked bool `db:"lot_tracked" json:"lotTracked"`

	// LastCost is refreshed from posted receipt lines carrying a cost.
	LastCost types.Money `db:"last_cost" json:"lastCost"`
}

// NewProduct creates a product.
func NewProduct(code, name, unit string) *Product {
	return &Product{
		BaseCatalog: entity.NewBaseCatalog(),
		Code:        strings.TrimSpace(code),
		Name:        strings.TrimSpace(name),
		Unit:        unit,
		LastCost:    types.ZeroMoney(),
	}
}

// Validate implements entity.Validatable.
func (p *Product) Validate(ctx context.Context) error {
	if p.Code == "" {
		return apperror.NewValidation("product code is required").WithDetail("field", "code")
	}
	if p.Name == "" {
		return apperror.NewValidation("product name is required").WithDetail("field", "name")
	}
	return nil
}

// Variant is a concrete saleable version of a product (size, color).
type Variant struct {
	entity.BaseCatalog

	ProductID id.ID  `db:"product_id" json:"productId"`
	Code      string `db:"code" json:"code"`
	Name      string `db:"name" json:"name"`

	LastCost types.Money `db:"last_cost" json:"lastCost"`
}

// NewVariant creates a variant of a product.
func NewVariant(productID id.ID, code, name string) *Variant {
	return &Variant{
		BaseCatalog: entity.NewBaseCatalog(),
		ProductID:   productID,
		Code:        strings.TrimSpace(code),
		Name:        strings.TrimSpace(name),
		LastCost:    types.ZeroMoney(),
	}
}

// Validate implements entity.Validatable.
func (v *Variant) Validate(ctx context.Context) error {
	if id.IsNil(v.ProductID) {
		return apperror.NewValidation("variant product is required").WithDetail("field", "productId")
	}
	if v.Code == "" {
		return apperror.NewValidation("variant code is required").WithDetail("field", "code")
	}
	return nil
}

// Location is a stock-holding place: a warehouse, zone, or bin.
type Location struct {
	entity.BaseCatalog

	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`
}

// NewLocation creates a location.
func NewLocation(code, name string) *Location {
	return &Location{
		BaseCatalog: entity.NewBaseCatalog(),
		Code:        strings.TrimSpace(code),
		Name:        strings.TrimSpace(name),
	}
}

// Validate implements entity.Validatable.
func (l *Location) Validate(ctx context.Context) error {
	if l.Code == "" {
		return apperror.NewValidation("location code is required").WithDetail("field", "code")
	}
	if l.Name == "" {
		return apperror.NewValidation("location name is required").WithDetail("field", "name")
	}
	return nil
}
