package handlers

import (
	"net/http"
	"time"

	"healthcrm/internal/services"

	"github.com/labstack/echo/v4"
)

type CalendarHandlers struct {
	calendarService services.CalendarService
}

func NewCalendarHandlers(calendarService services.CalendarService) *CalendarHandlers {
	return &CalendarHandlers{calendarService: calendarService}
}

// List returns the caller's appointments, optionally for one day (?day=YYYY-MM-DD).
func (h *CalendarHandlers) List(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var day *time.Time
	if raw := c.QueryParam("day"); raw != "" {
		d, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return badRequest("day must be formatted as YYYY-MM-DD")
		}
		day = &d
	}
	appointments, err := h.calendarService.List(c.Request().Context(), p.UserID, day)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"appointments": appointments})
}

func (h *CalendarHandlers) Get(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	a, err := h.calendarService.Get(c.Request().Context(), p.UserID, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *CalendarHandlers) Create(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req services.AppointmentRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("Invalid request format")
	}
	a, err := h.calendarService.Create(c.Request().Context(), p.UserID, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *CalendarHandlers) Update(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req services.AppointmentRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("Invalid request format")
	}
	a, err := h.calendarService.Update(c.Request().Context(), p.UserID, c.Param("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *CalendarHandlers) Delete(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	if err := h.calendarService.Delete(c.Request().Context(), p.UserID, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *CalendarHandlers) RelatedEmails(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	emails, err := h.calendarService.RelatedEmails(c.Request().Context(), p.UserID, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"emails": emails})
}

type LinkEmailRequest struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// LinkEmail schedules an appointment from an email.
func (h *CalendarHandlers) LinkEmail(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req LinkEmailRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("Invalid request format")
	}
	a, err := h.calendarService.LinkFromEmail(c.Request().Context(), p.UserID, c.Param("emailId"), req.Start, req.End)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, a)
}
