// internal/handlers/order.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/services"
	"github.com/javajoker/storefront-backend/internal/utils"
)

type OrderHandler struct {
	orderService *services.OrderService
}

func NewOrderHandler(orderService *services.OrderService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

// POST /orders
func (h *OrderHandler) Checkout(c *gin.Context) {
	customerID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.CheckoutRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.orderService.Checkout(c.Request.Context(), customerID, &req)
	if err != nil {
		utils.HandleServiceError(c, err, "order")
		return
	}

	utils.CreatedResponse(c, order)
}

// GET /orders
func (h *OrderHandler) GetMyOrders(c *gin.Context) {
	customerID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	params := utils.GetPaginationParamsWithLimit(c, h.orderService.PerPage())
	params.WithTrashed = false

	orders, total, err := h.orderService.ListCustomerOrders(c.Request.Context(), customerID, params)
	if err != nil {
		utils.HandleServiceError(c, err, "order")
		return
	}

	paginated(c, orders, total, params)
}

// GET /orders/:uuid
func (h *OrderHandler) GetMyOrder(c *gin.Context) {
	customerID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	orderUUID, err := uuid.Parse(c.Param("uuid"))
	if err != nil {
		utils.NotFoundResponse(c, "order")
		return
	}

	order, err := h.orderService.GetCustomerOrder(c.Request.Context(), customerID, orderUUID)
	if err != nil {
		utils.HandleServiceError(c, err, "order")
		return
	}

	utils.SuccessResponse(c, order)
}

// GET /admin/orders
func (h *OrderHandler) AdminGetOrders(c *gin.Context) {
	params := services.OrderListParams{
		PaginationParams: utils.GetPaginationParamsWithLimit(c, h.orderService.PerPage()),
	}
	if status := c.Query("status"); status != "" {
		orderStatus := models.OrderStatus(status)
		if orderStatus.Valid() {
			params.Status = &orderStatus
		}
	}

	orders, total, err := h.orderService.ListOrders(c.Request.Context(), params)
	if err != nil {
		utils.HandleServiceError(c, err, "order")
		return
	}

	paginated(c, orders, total, params.PaginationParams)
}

// GET /admin/orders/:id
func (h *OrderHandler) AdminGetOrder(c *gin.Context) {
	id, ok := paramID(c, "order")
	if !ok {
		return
	}

	order, err := h.orderService.GetOrder(c.Request.Context(), id, c.Query("with_trashed") == "true")
	if err != nil {
		utils.HandleServiceError(c, err, "order")
		return
	}

	utils.SuccessResponse(c, order)
}

// POST /admin/orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req services.CreateOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), &req)
	if err != nil {
		utils.HandleServiceError(c, err, "order")
		return
	}

	utils.CreatedResponse(c, order)
}

// PUT /admin/orders/:id
func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	id, ok := paramID(c, "order")
	if !ok {
		return
	}

	var req services.UpdateOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.orderService.UpdateOrder(c.Request.Context(), id, &req)
	if err != nil {
		utils.HandleServiceError(c, err, "order")
		return
	}

	utils.SuccessResponse(c, order)
}

// DELETE /admin/orders/:id
func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	id, ok := paramID(c, "order")
	if !ok {
		return
	}

	if err := h.orderService.DeleteOrder(c.Request.Context(), id); err != nil {
		utils.HandleServiceError(c, err, "order")
		return
	}

	utils.NoContentResponse(c)
}

// PUT /admin/orders/:id/restore
func (h *OrderHandler) RestoreOrder(c *gin.Context) {
	id, ok := paramID(c, "order")
	if !ok {
		return
	}

	order, err := h.orderService.RestoreOrder(c.Request.Context(), id)
	if err != nil {
		utils.HandleServiceError(c, err, "order")
		return
	}

	utils.SuccessResponse(c, order)
}
