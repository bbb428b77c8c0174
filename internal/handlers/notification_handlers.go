package handlers

import (
	"net/http"

	"healthcrm/internal/services"

	"github.com/labstack/echo/v4"
)

// NotificationHandlers serves toasts and the pending action counter
type NotificationHandlers struct {
	notifications services.NotificationService
	status        services.StatusService
}

func NewNotificationHandlers(notifications services.NotificationService, status services.StatusService) *NotificationHandlers {
	return &NotificationHandlers{notifications: notifications, status: status}
}

// Drain returns the caller's queued toasts and clears them.
func (h *NotificationHandlers) Drain(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	toasts, err := h.notifications.Drain(c.Request().Context(), p.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"toasts": toasts})
}

type PendingView struct {
	Pending int `json:"pending"`
}

func (h *NotificationHandlers) Pending(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, PendingView{Pending: h.status.Pending(p.UserID)})
}

func (h *NotificationHandlers) Increment(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, PendingView{Pending: h.status.Increment(p.UserID)})
}

func (h *NotificationHandlers) Decrement(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, PendingView{Pending: h.status.Decrement(p.UserID)})
}
