// internal/handlers/category.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/storefront-backend/internal/services"
	"github.com/javajoker/storefront-backend/internal/utils"
)

type CategoryHandler struct {
	categoryService *services.CategoryService
}

func NewCategoryHandler(categoryService *services.CategoryService) *CategoryHandler {
	return &CategoryHandler{
		categoryService: categoryService,
	}
}

// GET /categories
func (h *CategoryHandler) GetCategories(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	params.WithTrashed = false

	categories, total, err := h.categoryService.ListCategories(c.Request.Context(), params)
	if err != nil {
		utils.HandleServiceError(c, err, "category")
		return
	}

	paginated(c, categories, total, params)
}

// GET /categories/:id
func (h *CategoryHandler) GetCategory(c *gin.Context) {
	id, ok := paramID(c, "category")
	if !ok {
		return
	}

	category, err := h.categoryService.GetCategory(c.Request.Context(), id, true, false)
	if err != nil {
		utils.HandleServiceError(c, err, "category")
		return
	}

	utils.SuccessResponse(c, category)
}

// GET /admin/categories
func (h *CategoryHandler) AdminGetCategories(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	categories, total, err := h.categoryService.ListCategories(c.Request.Context(), params)
	if err != nil {
		utils.HandleServiceError(c, err, "category")
		return
	}

	paginated(c, categories, total, params)
}

// GET /admin/categories/:id
func (h *CategoryHandler) AdminGetCategory(c *gin.Context) {
	id, ok := paramID(c, "category")
	if !ok {
		return
	}

	category, err := h.categoryService.GetCategory(c.Request.Context(), id, false, c.Query("with_trashed") == "true")
	if err != nil {
		utils.HandleServiceError(c, err, "category")
		return
	}

	utils.SuccessResponse(c, category)
}

// POST /admin/categories
func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	var req services.CreateCategoryRequest
	if !bindJSON(c, &req) {
		return
	}

	category, err := h.categoryService.CreateCategory(c.Request.Context(), &req)
	if err != nil {
		utils.HandleServiceError(c, err, "category")
		return
	}

	utils.CreatedResponse(c, category)
}

// PUT /admin/categories/:id
func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	id, ok := paramID(c, "category")
	if !ok {
		return
	}

	var req services.UpdateCategoryRequest
	if !bindJSON(c, &req) {
		return
	}

	category, err := h.categoryService.UpdateCategory(c.Request.Context(), id, &req)
	if err != nil {
		utils.HandleServiceError(c, err, "category")
		return
	}

	utils.SuccessResponse(c, category)
}

// DELETE /admin/categories/:id
func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	id, ok := paramID(c, "category")
	if !ok {
		return
	}

	if err := h.categoryService.DeleteCategory(c.Request.Context(), id); err != nil {
		utils.HandleServiceError(c, err, "category")
		return
	}

	utils.NoContentResponse(c)
}

// PUT /admin/categories/:id/restore
func (h *CategoryHandler) RestoreCategory(c *gin.Context) {
	id, ok := paramID(c, "category")
	if !ok {
		return
	}

	category, err := h.categoryService.RestoreCategory(c.Request.Context(), id)
	if err != nil {
		utils.HandleServiceError(c, err, "category")
		return
	}

	utils.SuccessResponse(c, category)
}
