package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bootcamp-directory/internal/apperr"
)

// ErrorHandler renders every error as {"success": false, "message": ...}.
// Application errors use the status of their kind; echo's own errors
// (unknown route, 405, 413, 429) keep their code.  Anything that ends up
// as a 5xx is logged and, unless it is a delivery failure, shown to the
// client as "Server Error".
func ErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var (
			status int
			msg    string
			he     *echo.HTTPError
		)
		if errors.As(err, &he) && !isAppErr(err) {
			status = he.Code
			msg = fmt.Sprint(he.Message)
			if status >= http.StatusInternalServerError {
				msg = "Server Error"
			}
		} else {
			status = apperr.Status(err)
			msg = apperr.Message(err)
		}

		if status >= http.StatusInternalServerError {
			logger.ErrorContext(c.Request().Context(), "request failed",
				slog.String("method", c.Request().Method),
				slog.String("path", c.Path()),
				slog.Int("status", status),
				slog.String("error", err.Error()),
			)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, echo.Map{"success": false, "message": msg})
		}
		if err != nil {
			logger.ErrorContext(c.Request().Context(), "write error response", slog.String("error", err.Error()))
		}
	}
}

func isAppErr(err error) bool {
	var ae *apperr.Error
	return errors.As(err, &ae)
}
