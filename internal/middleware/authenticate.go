package middleware

import (
	"context"
	"errors"

	"healthcrm/internal/auth"
	"healthcrm/internal/common"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// SessionCookie carries the session token for browser clients.
const SessionCookie = "healthcrm_session"

const claimsContextKey = "claims"

// RevocationChecker reports whether a session was ended by logout.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}

// Authenticate attaches an auth.Principal to the request when a valid,
// unrevoked token is presented as a bearer header or session cookie. It
// never rejects a request; route gates decide what an anonymous caller sees.
func Authenticate(tokens *auth.TokenManager, revocations RevocationChecker, log *zap.Logger) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:             claimsContextKey,
		TokenLookup:            "header:Authorization:Bearer ,cookie:" + SessionCookie,
		ContinueOnIgnoredError: true,
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			claims, err := tokens.Parse(token)
			if err != nil {
				return nil, err
			}
			revoked, err := revocations.IsRevoked(c.Request().Context(), claims.ID)
			if err != nil {
				return nil, err
			}
			if revoked {
				return nil, common.ErrTokenRevoked
			}
			return claims, nil
		},
		SuccessHandler: func(c echo.Context) {
			claims, ok := c.Get(claimsContextKey).(*auth.Claims)
			if !ok {
				return
			}
			p, err := auth.PrincipalFromClaims(claims)
			if err != nil {
				log.Debug("token without usable subject", zap.Error(err))
				return
			}
			c.SetRequest(c.Request().WithContext(auth.WithPrincipal(c.Request().Context(), p)))
		},
		ErrorHandler: func(c echo.Context, err error) error {
			if !errors.Is(err, echojwt.ErrJWTMissing) {
				log.Debug("ignoring unusable session token", zap.String("path", c.Path()), zap.Error(err))
			}
			return nil
		},
	})
}
