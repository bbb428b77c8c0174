package handlers

import (
	"net/http"

	"healthcrm/internal/services"

	"github.com/labstack/echo/v4"
)

type DashboardHandlers struct {
	dashboard services.DashboardService
}

func NewDashboardHandlers(dashboard services.DashboardService) *DashboardHandlers {
	return &DashboardHandlers{dashboard: dashboard}
}

func (h *DashboardHandlers) Summary(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	summary, err := h.dashboard.Summary(c.Request().Context(), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}
