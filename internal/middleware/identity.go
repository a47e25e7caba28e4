package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bootcamp-directory/internal/model"
)

// Context keys set by Protect.
const (
	ctxUser   = "user"
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// CurrentUser returns the identity attached by Protect, or nil on
// public routes.
func CurrentUser(c echo.Context) *model.User {
	u, _ := c.Get(ctxUser).(*model.User)
	return u
}

// SetUser attaches an authenticated identity to the request context.
func SetUser(c echo.Context, u *model.User) {
	c.Set(ctxUser, u)
	c.Set(ctxUserID, u.ID)
	c.Set(ctxRole, u.Role)
}

// currentUserID is used for rate limit keys.  It returns "anon" when no
// user is authenticated.
func currentUserID(c echo.Context) string {
	if id, ok := c.Get(ctxUserID).(uint64); ok && id != 0 {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
