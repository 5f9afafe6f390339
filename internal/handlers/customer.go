// internal/handlers/customer.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/storefront-backend/internal/services"
	"github.com/javajoker/storefront-backend/internal/utils"
)

type CustomerHandler struct {
	customerService *services.CustomerService
}

func NewCustomerHandler(customerService *services.CustomerService) *CustomerHandler {
	return &CustomerHandler{
		customerService: customerService,
	}
}

// GET /admin/customers
func (h *CustomerHandler) GetCustomers(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	customers, total, err := h.customerService.ListCustomers(c.Request.Context(), params)
	if err != nil {
		utils.HandleServiceError(c, err, "customer")
		return
	}

	paginated(c, customers, total, params)
}

// GET /admin/customers/:id
func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	id, ok := paramID(c, "customer")
	if !ok {
		return
	}

	customer, err := h.customerService.GetCustomer(c.Request.Context(), id, c.Query("with_trashed") == "true")
	if err != nil {
		utils.HandleServiceError(c, err, "customer")
		return
	}

	utils.SuccessResponse(c, customer)
}

// POST /admin/customers
func (h *CustomerHandler) CreateCustomer(c *gin.Context) {
	var req services.StoreCustomerRequest
	if !bindJSON(c, &req) {
		return
	}

	customer, err := h.customerService.CreateCustomer(c.Request.Context(), &req)
	if err != nil {
		utils.HandleServiceError(c, err, "customer")
		return
	}

	utils.CreatedResponse(c, customer)
}

// PUT /admin/customers/:id
func (h *CustomerHandler) UpdateCustomer(c *gin.Context) {
	id, ok := paramID(c, "customer")
	if !ok {
		return
	}

	var req services.UpdateCustomerRequest
	if !bindJSON(c, &req) {
		return
	}

	customer, err := h.customerService.UpdateCustomer(c.Request.Context(), id, &req)
	if err != nil {
		utils.HandleServiceError(c, err, "customer")
		return
	}

	utils.SuccessResponse(c, customer)
}

// DELETE /admin/customers/:id
func (h *CustomerHandler) DeleteCustomer(c *gin.Context) {
	id, ok := paramID(c, "customer")
	if !ok {
		return
	}

	if err := h.customerService.DeleteCustomer(c.Request.Context(), id); err != nil {
		utils.HandleServiceError(c, err, "customer")
		return
	}

	utils.NoContentResponse(c)
}

// PUT /admin/customers/:id/restore
func (h *CustomerHandler) RestoreCustomer(c *gin.Context) {
	id, ok := paramID(c, "customer")
	if !ok {
		return
	}

	customer, err := h.customerService.RestoreCustomer(c.Request.Context(), id)
	if err != nil {
		utils.HandleServiceError(c, err, "customer")
		return
	}

	utils.SuccessResponse(c, customer)
}
