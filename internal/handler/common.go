package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bootcamp-directory/internal/apperr"
	"github.com/iliyamo/bootcamp-directory/internal/middleware"
	"github.com/iliyamo/bootcamp-directory/internal/model"
	"github.com/iliyamo/bootcamp-directory/internal/query"
	"github.com/iliyamo/bootcamp-directory/internal/repository"
)

// dbTimeout bounds every database call made by a handler.
const dbTimeout = 5 * time.Second

func dbCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return dbCtxWith(c, dbTimeout)
}

func dbCtxWith(c echo.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), d)
}

// parseID reads a numeric path parameter.  A malformed id cannot match
// any row, so it is reported as not found.
func parseID(c echo.Context, name string) (uint64, error) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.NotFound(fmt.Sprintf("Resource not found with id of %s", raw))
	}
	return id, nil
}

// bind decodes the request body into dst and runs the registered validator.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return apperr.Validation("Invalid request body")
	}
	return c.Validate(dst)
}

func sendData(c echo.Context, status int, data any) error {
	return c.JSON(status, echo.Map{"success": true, "data": data})
}

func sendList[T any](c echo.Context, items []T) error {
	return c.JSON(http.StatusOK, echo.Map{"success": true, "count": len(items), "data": items})
}

func sendPage(c echo.Context, q query.Query, total int64, docs []query.Document) error {
	return c.JSON(http.StatusOK, query.NewEnvelope(q, total, docs))
}

// notFoundOr turns repository.ErrNotFound into a 404 with msg and any
// other failure into an internal error.
func notFoundOr(err error, msg string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(msg)
	}
	return apperr.Internal(err)
}

// duplicateOr maps unique key violations onto the validation message the
// API has always used for them.
func duplicateOr(err error) error {
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return apperr.Validation("Duplicate field value entered")
	case errors.Is(err, repository.ErrConflict):
		return apperr.NotFound("Referenced resource not found")
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound("Resource not found")
	}
	return apperr.Internal(err)
}

// canModify reports whether u owns the resource or is an admin.
func canModify(u *model.User, ownerID uint64) bool {
	return u != nil && (u.Role == model.RoleAdmin || u.ID == ownerID)
}

func currentUser(c echo.Context) (*model.User, error) {
	u := middleware.CurrentUser(c)
	if u == nil {
		return nil, apperr.Auth("Not authorized to access this route")
	}
	return u, nil
}
