package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/shopease-api/internal/apperr"
)

// requestTimeout bounds the storage work of a single request.
const requestTimeout = 5 * time.Second

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// HTTPErrorHandler renders every error returned by a handler or
// middleware as {"message": ...}. Classified errors keep their message;
// anything else is logged and reported as a generic 500.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, msg := http.StatusInternalServerError, "internal server error"
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		status = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(he.Code)
		}
		if he.Internal != nil && status >= http.StatusInternalServerError {
			c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Request().URL.Path, he.Internal)
		}
	case errors.Is(err, context.DeadlineExceeded):
		status, msg = http.StatusServiceUnavailable, "request timed out"
		c.Logger().Warnf("%s %s: %v", c.Request().Method, c.Request().URL.Path, err)
	default:
		kind := apperr.KindOf(err)
		status, msg = kind.Status(), apperr.Message(err)
		if kind == apperr.KindInternal {
			c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Request().URL.Path, err)
			msg = "internal server error"
		}
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, echo.Map{"message": msg})
	}
	if err != nil {
		c.Logger().Error(fmt.Errorf("write error response: %w", err))
	}
}

// badBody is returned when the request body cannot be decoded.
func badBody(err error) error {
	return apperr.Validation("Invalid request body: " + bindMessage(err))
}

func bindMessage(err error) string {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if m, ok := he.Message.(string); ok {
			return m
		}
	}
	return err.Error()
}
