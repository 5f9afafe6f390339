// internal/handlers/product.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/storefront-backend/internal/services"
	"github.com/javajoker/storefront-backend/internal/utils"
)

type ProductHandler struct {
	productService *services.ProductService
}

func NewProductHandler(productService *services.ProductService) *ProductHandler {
	return &ProductHandler{
		productService: productService,
	}
}

func productSearchParams(c *gin.Context, admin bool) services.ProductSearchParams {
	params := utils.GetPaginationParams(c)
	if !admin {
		params.WithTrashed = false
	}

	searchParams := services.ProductSearchParams{
		PaginationParams: params,
	}
	if categoryIDStr := c.Query("category_id"); categoryIDStr != "" {
		if categoryID, err := strconv.ParseUint(categoryIDStr, 10, 64); err == nil {
			id := uint(categoryID)
			searchParams.CategoryID = &id
		}
	}
	return searchParams
}

// GET /products
func (h *ProductHandler) GetProducts(c *gin.Context) {
	searchParams := productSearchParams(c, false)

	products, total, err := h.productService.ListPublished(c.Request.Context(), searchParams)
	if err != nil {
		utils.HandleServiceError(c, err, "product")
		return
	}

	paginated(c, products, total, searchParams.PaginationParams)
}

// GET /products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := paramID(c, "product")
	if !ok {
		return
	}

	product, err := h.productService.GetPublished(c.Request.Context(), id)
	if err != nil {
		utils.HandleServiceError(c, err, "product")
		return
	}

	utils.SuccessResponse(c, product)
}

// GET /admin/products
func (h *ProductHandler) AdminGetProducts(c *gin.Context) {
	searchParams := productSearchParams(c, true)

	products, total, err := h.productService.ListProducts(c.Request.Context(), searchParams)
	if err != nil {
		utils.HandleServiceError(c, err, "product")
		return
	}

	paginated(c, products, total, searchParams.PaginationParams)
}

// GET /admin/products/:id
func (h *ProductHandler) AdminGetProduct(c *gin.Context) {
	id, ok := paramID(c, "product")
	if !ok {
		return
	}

	product, err := h.productService.GetProduct(c.Request.Context(), id, c.Query("with_trashed") == "true")
	if err != nil {
		utils.HandleServiceError(c, err, "product")
		return
	}

	utils.SuccessResponse(c, product)
}

// POST /admin/products
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req services.CreateProductRequest
	if !bindJSON(c, &req) {
		return
	}

	product, err := h.productService.CreateProduct(c.Request.Context(), &req)
	if err != nil {
		utils.HandleServiceError(c, err, "product")
		return
	}

	utils.CreatedResponse(c, product)
}

// PUT /admin/products/:id
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id, ok := paramID(c, "product")
	if !ok {
		return
	}

	var req services.UpdateProductRequest
	if !bindJSON(c, &req) {
		return
	}

	product, err := h.productService.UpdateProduct(c.Request.Context(), id, &req)
	if err != nil {
		utils.HandleServiceError(c, err, "product")
		return
	}

	utils.SuccessResponse(c, product)
}

// DELETE /admin/products/:id
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id, ok := paramID(c, "product")
	if !ok {
		return
	}

	if err := h.productService.DeleteProduct(c.Request.Context(), id); err != nil {
		utils.HandleServiceError(c, err, "product")
		return
	}

	utils.NoContentResponse(c)
}

// PUT /admin/products/:id/restore
func (h *ProductHandler) RestoreProduct(c *gin.Context) {
	id, ok := paramID(c, "product")
	if !ok {
		return
	}

	product, err := h.productService.RestoreProduct(c.Request.Context(), id)
	if err != nil {
		utils.HandleServiceError(c, err, "product")
		return
	}

	utils.SuccessResponse(c, product)
}

// DELETE /admin/media/:id
func (h *ProductHandler) DeleteMedia(c *gin.Context) {
	id, ok := paramID(c, "media")
	if !ok {
		return
	}

	if err := h.productService.DeleteMedia(c.Request.Context(), id); err != nil {
		utils.HandleServiceError(c, err, "media")
		return
	}

	utils.NoContentResponse(c)
}
