package handlers

import (
	"github.com/gin-gonic/gin"

	"stokado/internal/domain/catalog"
	"stokado/internal/infrastructure/http/v1/dto"
)

// CatalogHandler handles product, variant, and location endpoints.
type CatalogHandler struct {
	*BaseHandler
	service *catalog.Service
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(base *BaseHandler, service *catalog.Service) *CatalogHandler {
	return &CatalogHandler{BaseHandler: base, service: service}
}

// --- Products ---

// CreateProduct handles POST /catalog/products.
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req dto.CreateProductRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p := req.ToEntity()
	if err := h.service.CreateProduct(c.Request.Context(), p); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromProduct(p))
}

// UpdateProduct handles PUT /catalog/products/:id.
func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	productID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateProductRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p, err := h.service.GetProduct(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	req.ApplyTo(p)
	if err := h.service.UpdateProduct(c.Request.Context(), p); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromProduct(p))
}

// GetProduct handles GET /catalog/products/:id.
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	productID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	p, err := h.service.GetProduct(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromProduct(p))
}

// ListProducts handles GET /catalog/products.
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	filter := catalog.ListFilter{
		Search:         c.Query("search"),
		IncludeDeleted: c.Query("includeDeleted") == "true",
		Limit:          h.ParseIntQuery(c, "limit", 50),
		Offset:         h.ParseIntQuery(c, "offset", 0),
	}

	products, err := h.service.ListProducts(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]*dto.ProductResponse, len(products))
	for i, p := range products {
		items[i] = dto.FromProduct(p)
	}
	h.OK(c, dto.ListResponse{Items: items, Count: len(items)})
}

// DeleteProduct handles DELETE /catalog/products/:id (soft delete).
func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	productID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteProduct(c.Request.Context(), productID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// --- Variants ---

// CreateVariant handles POST /catalog/products/:id/variants.
func (h *CatalogHandler) CreateVariant(c *gin.Context) {
	productID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.CreateVariantRequest
	if !h.BindJSON(c, &req) {
		return
	}

	v := req.ToEntity(productID)
	if err := h.service.CreateVariant(c.Request.Context(), v); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromVariant(v))
}

// ListVariants handles GET /catalog/products/:id/variants.
func (h *CatalogHandler) ListVariants(c *gin.Context) {
	productID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	variants, err := h.service.ListVariants(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]*dto.VariantResponse, len(variants))
	for i, v := range variants {
		items[i] = dto.FromVariant(v)
	}
	h.OK(c, dto.ListResponse{Items: items, Count: len(items)})
}

// --- Locations ---

// CreateLocation handles POST /catalog/locations.
func (h *CatalogHandler) CreateLocation(c *gin.Context) {
	var req dto.CreateLocationRequest
	if !h.BindJSON(c, &req) {
		return
	}

	l := req.ToEntity()
	if err := h.service.CreateLocation(c.Request.Context(), l); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromLocation(l))
}

// GetLocation handles GET /catalog/locations/:id.
func (h *CatalogHandler) GetLocation(c *gin.Context) {
	locationID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	l, err := h.service.GetLocation(c.Request.Context(), locationID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromLocation(l))
}

// ListLocations handles GET /catalog/locations.
func (h *CatalogHandler) ListLocations(c *gin.Context) {
	filter := catalog.ListFilter{
		Search:         c.Query("search"),
		IncludeDeleted: c.Query("includeDeleted") == "true",
		Limit:          h.ParseIntQuery(c, "limit", 50),
		Offset:         h.ParseIntQuery(c, "offset", 0),
	}

	locations, err := h.service.ListLocations(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]*dto.LocationResponse, len(locations))
	for i, l := range locations {
		items[i] = dto.FromLocation(l)
	}
	h.OK(c, dto.ListResponse{Items: items, Count: len(items)})
}

// RegisterRoutes registers catalog routes.
func (h *CatalogHandler) RegisterRoutes(rg *gin.RouterGroup) {
	products := rg.Group("/products")
	{
		products.POST("", h.CreateProduct)
		products.GET("", h.ListProducts)
		products.GET("/:id", h.GetProduct)
		products.PUT("/:id", h.UpdateProduct)
		products.DELETE("/:id", h.DeleteProduct)
		products.POST("/:id/variants", h.CreateVariant)
		products.GET("/:id/variants", h.ListVariants)
	}

	locations := rg.Group("/locations")
	{
		locations.POST("", h.CreateLocation)
		locations.GET("", h.ListLocations)
		locations.GET("/:id", h.GetLocation)
	}
}
