package middleware // middleware provides shared request processing for handlers

import (
	"github.com/labstack/echo/v4" // echo provides middleware chaining and context

	"github.com/iliyamo/bootcamp-directory/internal/model"
	"github.com/iliyamo/bootcamp-directory/internal/service"
)

// Authorize allows the request through only when the identity attached
// by Protect has one of roles.  It must run after Protect; without an
// identity every request is rejected with 401.
func Authorize(roles ...model.Role) echo.MiddlewareFunc {
	// Build the allowed set once per route rather than per request.
	allowed := model.NewRoleSet(roles...)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// nil user is 401, a role outside the set is 403
			if err := service.Authorize(CurrentUser(c), allowed); err != nil {
				return err
			}
			// Otherwise call the next handler in the chain
			return next(c)
		}
	}
}
