package dto

import (
	"stokado/internal/core/id"
	"stokado/internal/core/types"
	"stokado/internal/domain/catalog"
)

// --- Products ---

// CreateProductRequest for POST /catalog/products.
type CreateProductRequest struct {
	Code       string `json:"code" binding:"required"`
	Name       string `json:"name" binding:"required"`
	Unit       string `json:"unit,omitempty"`
	LotTracked bool   `json:"lotTracked,omitempty"`
}

// ToEntity converts the request to a domain entity.
func (r *CreateProductRequest) ToEntity() *catalog.Product {
	unit := r.Unit
	if unit == "" {
		unit = "pcs"
	}
	p := catalog.NewProduct(r.Code, r.Name, unit)
	p.LotTracked = r.LotTracked
	return p
}

// UpdateProductRequest for PUT /catalog/products/:id.
type UpdateProductRequest struct {
	Name       *string `json:"name,omitempty"`
	Unit       *string `json:"unit,omitempty"`
	LotTracked *bool   `json:"lotTracked,omitempty"`
}

// ApplyTo applies updates to an existing product.
func (r *UpdateProductRequest) ApplyTo(p *catalog.Product) {
	if r.Name != nil {
		p.Name = *r.Name
	}
	if r.Unit != nil {
		p.Unit = *r.Unit
	}
	if r.LotTracked != nil {
		p.LotTracked = *r.LotTracked
	}
}

// ProductResponse represents a product in API responses.
type ProductResponse struct {
	ID           string `json:"id"`
	Code         string `json:"code"`
	Name         string `json:"name"`
	Unit         string `json:"unit"`
	LotTracked   bool   `json:"lotTracked"`
	LastCost     string `json:"lastCost"`
	DeletionMark bool   `json:"deletionMark,omitempty"`
	Version      int    `json:"version"`
}

// FromProduct converts a product to the response DTO.
func FromProduct(p *catalog.Product) *ProductResponse {
	return &ProductResponse{
		ID:           p.ID.String(),
		Code:         p.Code,
		Name:         p.Name,
		Unit:         p.Unit,
		LotTracked:   p.LotTracked,
		LastCost:     p.LastCost.String(),
		DeletionMark: p.DeletionMark,
		Version:      p.Version,
	}
}

// --- Variants ---

// CreateVariantRequest for POST /catalog/products/:id/variants.
type CreateVariantRequest struct {
	Code string `json:"code" binding:"required"`
	Name string `json:"name,omitempty"`
}

// ToEntity converts the request to a domain entity.
func (r *CreateVariantRequest) ToEntity(productID id.ID) *catalog.Variant {
	return catalog.NewVariant(productID, r.Code, r.Name)
}

// VariantResponse represents a variant in API responses.
type VariantResponse struct {
	ID        string `json:"id"`
	ProductID string `json:"productId"`
	Code      string `json:"code"`
	Name      string `json:"name,omitempty"`
	LastCost  string `json:"lastCost"`
}

// FromVariant converts a variant to the response DTO.
func FromVariant(v *catalog.Variant) *VariantResponse {
	return &VariantResponse{
		ID:        v.ID.String(),
		ProductID: v.ProductID.String(),
		Code:      v.Code,
		Name:      v.Name,
		LastCost:  v.LastCost.String(),
	}
}

// --- Locations ---

// CreateLocationRequest for POST /catalog/locations.
type CreateLocationRequest struct {
	Code string `json:"code" binding:"required"`
	Name string `json:"name" binding:"required"`
}

// ToEntity converts the request to a domain entity.
func (r *CreateLocationRequest) ToEntity() *catalog.Location {
	return catalog.NewLocation(r.Code, r.Name)
}

// LocationResponse represents a location in API responses.
type LocationResponse struct {
	ID           string `json:"id"`
	Code         string `json:"code"`
	Name         string `json:"name"`
	DeletionMark bool   `json:"deletionMark,omitempty"`
}

// FromLocation converts a location to the response DTO.
func FromLocation(l *catalog.Location) *LocationResponse {
	return &LocationResponse{
		ID:           l.ID.String(),
		Code:         l.Code,
		Name:         l.Name,
		DeletionMark: l.DeletionMark,
	}
}

// moneyFromFloat converts an optional request cost to Money.
func moneyFromFloat(v float64) types.Money {
	if v == 0 {
		return types.ZeroMoney()
	}
	return types.NewMoney(v)
}
