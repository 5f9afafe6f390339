// internal/handlers/dashboard.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/storefront-backend/internal/services"
	"github.com/javajoker/storefront-backend/internal/utils"
)

type DashboardHandler struct {
	dashboardService *services.DashboardService
}

func NewDashboardHandler(dashboardService *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
	}
}

func dashboardPage(c *gin.Context, pageParam string) utils.PaginationParams {
	page, _ := strconv.Atoi(c.DefaultQuery(pageParam, "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(utils.DefaultPageSize)))
	return utils.NormalizePagination(utils.PaginationParams{Page: page, Limit: limit}, utils.DefaultPageSize)
}

// GET /admin/dashboard
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	params := services.DashboardParams{
		Outstanding: dashboardPage(c, "outstanding_page"),
		Popular:     dashboardPage(c, "popular_page"),
	}

	dashboard, err := h.dashboardService.Build(c.Request.Context(), params)
	if err != nil {
		utils.HandleServiceError(c, err, "dashboard")
		return
	}

	utils.SuccessResponse(c, dashboard)
}
