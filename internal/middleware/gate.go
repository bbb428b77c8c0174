package middleware

import (
	"net/http"
	"net/url"

	"healthcrm/internal/auth"

	"github.com/labstack/echo/v4"
)

const (
	LoginPath = "/login"
	HomePath  = "/dashboard"
)

// Outcome is what the gate does with a request.
type Outcome int

const (
	Render Outcome = iota
	RedirectLogin
	RedirectHome
)

func (o Outcome) String() string {
	switch o {
	case Render:
		return "render"
	case RedirectLogin:
		return "redirect_login"
	case RedirectHome:
		return "redirect_home"
	default:
		return "unknown"
	}
}

type Decision struct {
	Outcome  Outcome
	Location string
}

// Decide gates a protected route. Anonymous callers go to the login page
// carrying the requested location; callers holding none of the required
// roles go home. An empty required set admits any authenticated caller.
func Decide(p *auth.Principal, required auth.RoleSet, requested string) Decision {
	switch {
	case p == nil:
		return Decision{Outcome: RedirectLogin, Location: LoginPath + "?from=" + url.QueryEscape(requested)}
	case p.HasAnyRole(required):
		return Decision{Outcome: Render}
	default:
		return Decision{Outcome: RedirectHome, Location: HomePath}
	}
}

// Gate applies Decide to every request, answering redirects with 302.
func Gate(required auth.RoleSet) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, _ := auth.PrincipalFromContext(c.Request().Context())
			d := Decide(p, required, c.Request().URL.RequestURI())
			if d.Outcome != Render {
				return c.Redirect(http.StatusFound, d.Location)
			}
			return next(c)
		}
	}
}

// SafeRedirect returns from when it is a local absolute path, otherwise the
// home path. It keeps login redirects on this site.
func SafeRedirect(from string) string {
	if from == "" || from[0] != '/' || len(from) > 1 && (from[1] == '/' || from[1] == '\\') {
		return HomePath
	}
	u, err := url.Parse(from)
	if err != nil || u.IsAbs() || u.Host != "" || u.Path == LoginPath {
		return HomePath
	}
	return from
}
