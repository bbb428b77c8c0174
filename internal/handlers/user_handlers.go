package handlers

import (
	"net/http"

	"healthcrm/internal/services"

	"github.com/labstack/echo/v4"
)

// SettingsHandlers serves the admin settings screen
type SettingsHandlers struct {
	authService services.AuthService
}

func NewSettingsHandlers(authService services.AuthService) *SettingsHandlers {
	return &SettingsHandlers{authService: authService}
}

// ListUsersRequest represents query parameters for listing users
type ListUsersRequest struct {
	Limit  int `query:"limit"`
	Offset int `query:"offset"`
}

// ListUsers lists staff accounts and their roles.
func (h *SettingsHandlers) ListUsers(c echo.Context) error {
	var req ListUsersRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("Invalid query parameters")
	}
	users, err := h.authService.ListUsers(c.Request().Context(), req.Limit, req.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"users":  users,
		"limit":  req.Limit,
		"offset": req.Offset,
	})
}

type CreateUserRequest struct {
	Email    string   `json:"email"`
	Name     string   `json:"name"`
	Password string   `json:"password"`
	Roles    []string `json:"roles"`
}

// CreateUser registers a staff account.
func (h *SettingsHandlers) CreateUser(c echo.Context) error {
	var req CreateUserRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("Invalid request format")
	}
	user, err := h.authService.Register(c.Request().Context(), req.Email, req.Name, req.Password, req.Roles)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, services.UserView{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
		Roles: user.Roles,
	})
}
