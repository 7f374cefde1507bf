package rest

import (
	"errors"
	"fmt"
	"net/http"

	"postsapi/internal/service"
	"postsapi/pkg/logger"

	"github.com/labstack/echo/v4"
)

// handleError writes err as {"error": "..."} with the matching status.
func handleError(c echo.Context, err error) error {
	status, msg := errorStatus(err)
	if status == http.StatusInternalServerError {
		logger.FromContext(c.Request().Context()).Error("request failed",
			"method", c.Request().Method,
			"path", c.Path(),
			"error", err,
		)
	}
	return c.JSON(status, errorResponse{Error: msg})
}

func errorStatus(err error) (int, string) {
	var httpErr *echo.HTTPError
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "post not found"
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, err.Error()
	case errors.As(err, &httpErr):
		if httpErr.Code >= http.StatusInternalServerError {
			return httpErr.Code, http.StatusText(httpErr.Code)
		}
		return httpErr.Code, fmt.Sprint(httpErr.Message)
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// errorHandler replaces echo's default so routing and middleware errors use
// the same body shape as handler errors.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	if c.Request().Method == http.MethodHead {
		status, _ := errorStatus(err)
		_ = c.NoContent(status)
		return
	}
	_ = handleError(c, err)
}
