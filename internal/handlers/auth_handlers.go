package handlers

import (
	"net/http"
	"time"

	"healthcrm/internal/auth"
	"healthcrm/internal/middleware"
	"healthcrm/internal/services"

	"github.com/labstack/echo/v4"
)

// AuthHandlers serves login, logout and token issue
type AuthHandlers struct {
	authService  services.AuthService
	secureCookie bool
}

func NewAuthHandlers(authService services.AuthService, secureCookie bool) *AuthHandlers {
	return &AuthHandlers{authService: authService, secureCookie: secureCookie}
}

type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	From     string `json:"from" form:"from" query:"from"`
}

type LoginView struct {
	From          string `json:"from"`
	Authenticated bool   `json:"authenticated"`
}

// LoginPage describes the login screen. A caller who is already signed in
// is sent straight on to the preserved location.
func (h *AuthHandlers) LoginPage(c echo.Context) error {
	from := middleware.SafeRedirect(c.QueryParam("from"))
	if _, ok := auth.PrincipalFromContext(c.Request().Context()); ok {
		return c.Redirect(http.StatusFound, from)
	}
	return c.JSON(http.StatusOK, LoginView{From: from})
}

// Login verifies credentials, sets the session cookie and redirects to the
// location the gate preserved.
func (h *AuthHandlers) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("Invalid request format")
	}
	session, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return c.Redirect(http.StatusSeeOther, middleware.SafeRedirect(req.From))
}

type TokenResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
	Roles     []string  `json:"roles"`
}

// Token issues a bearer token for API clients.
func (h *AuthHandlers) Token(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("Invalid request format")
	}
	session, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, TokenResponse{
		Token:     session.Token,
		TokenType: "Bearer",
		ExpiresAt: session.ExpiresAt,
		Roles:     session.Principal.Roles.Names(),
	})
}

// Logout revokes the current session and clears the cookie.
func (h *AuthHandlers) Logout(c echo.Context) error {
	if p, ok := auth.PrincipalFromContext(c.Request().Context()); ok {
		if err := h.authService.Logout(c.Request().Context(), p); err != nil {
			return err
		}
	}
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return c.Redirect(http.StatusSeeOther, middleware.LoginPath)
}
