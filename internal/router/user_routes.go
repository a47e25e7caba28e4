package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bootcamp-directory/internal/handler"
	"github.com/iliyamo/bootcamp-directory/internal/middleware"
	"github.com/iliyamo/bootcamp-directory/internal/model"
	"github.com/iliyamo/bootcamp-directory/internal/repository"
)

// RegisterUsers registers the admin-only user maintenance routes.
func RegisterUsers(api *echo.Group, u *handler.UserHandler, protect echo.MiddlewareFunc) {
	g := api.Group("/users", protect, middleware.Authorize(model.RoleAdmin))
	g.GET("", u.List, middleware.AdvancedQuery(repository.UserSchema))
	g.POST("", u.Create)
	g.GET("/:id", u.Get)
	g.PUT("/:id", u.Update)
	g.DELETE("/:id", u.Delete)
}
