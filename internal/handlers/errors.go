package handlers

import (
	"context"
	"errors"
	"net/http"

	"healthcrm/internal/auth"
	"healthcrm/internal/common"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// HTTPErrorHandler renders every error returned by a handler as a
// common.ErrorResponse. Not-found errors carry the back path of their screen.
func HTTPErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, resp := errorResponse(err)
		if status >= http.StatusInternalServerError {
			log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, resp)
		}
		if writeErr != nil {
			log.Warn("failed to write error response", zap.Error(writeErr))
		}
	}
}

func errorResponse(err error) (int, *common.ErrorResponse) {
	var (
		httpErr *echo.HTTPError
		nf      *common.NotFoundError
	)
	switch {
	case errors.As(err, &httpErr):
		msg, ok := httpErr.Message.(string)
		if !ok {
			msg = http.StatusText(httpErr.Code)
		}
		return httpErr.Code, common.CreateErrorResponse(codeFor(httpErr.Code), msg, nil)
	case errors.As(err, &nf):
		resp := common.CreateErrorResponse("not_found", nf.Error(), map[string]string{"resource": nf.Resource, "id": nf.ID})
		resp.Error.Back = nf.Back
		return http.StatusNotFound, resp
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound, common.CreateErrorResponse("not_found", err.Error(), nil)
	case errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest, common.CreateErrorResponse("validation_error", err.Error(), nil)
	case errors.Is(err, common.ErrUnauthorized):
		return http.StatusUnauthorized, common.CreateErrorResponse("unauthorized", err.Error(), nil)
	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden, common.CreateErrorResponse("forbidden", err.Error(), nil)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout, common.CreateErrorResponse("request_cancelled", "request was cancelled", nil)
	default:
		return http.StatusInternalServerError, common.CreateErrorResponse("internal_error", "internal server error", nil)
	}
}

func codeFor(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusRequestEntityTooLarge:
		return "payload_too_large"
	case http.StatusTooManyRequests:
		return "rate_limited"
	default:
		if status >= 500 {
			return "internal_error"
		}
		return "error"
	}
}

// principal returns the caller attached by the authenticate middleware.
// Gated routes always have one.
func principal(c echo.Context) (*auth.Principal, error) {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return nil, common.ErrUnauthorized
	}
	return p, nil
}

func badRequest(msg string) error {
	return echo.NewHTTPError(http.StatusBadRequest, msg)
}
