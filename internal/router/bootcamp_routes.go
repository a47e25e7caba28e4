package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bootcamp-directory/internal/handler"
	"github.com/iliyamo/bootcamp-directory/internal/middleware"
	"github.com/iliyamo/bootcamp-directory/internal/model"
	"github.com/iliyamo/bootcamp-directory/internal/repository"
)

// RegisterBootcamps registers bootcamps together with the courses and
// reviews nested under them.  Public list endpoints go through the
// advanced query and the response cache.
func RegisterBootcamps(api *echo.Group, b *handler.BootcampHandler, c *handler.CourseHandler, r *handler.ReviewHandler,
	protect, cache echo.MiddlewareFunc) {
	publishers := middleware.Authorize(model.RolePublisher, model.RoleAdmin)
	reviewers := middleware.Authorize(model.RoleUser, model.RoleAdmin)

	// ---- Bootcamps ----
	api.GET("/bootcamps", b.List, cache, middleware.AdvancedQuery(repository.BootcampSchema))
	api.POST("/bootcamps", b.Create, protect, publishers)
	api.GET("/bootcamps/radius/:zipcode/:distance", b.WithinRadius)
	api.GET("/bootcamps/:id", b.Get)
	api.PUT("/bootcamps/:id", b.Update, protect, publishers)
	api.DELETE("/bootcamps/:id", b.Delete, protect, publishers)
	api.PUT("/bootcamps/:id/photo", b.UploadPhoto, protect, publishers)

	// ---- Courses ----
	api.GET("/bootcamps/:bootcampId/courses", c.ListByBootcamp)
	api.POST("/bootcamps/:bootcampId/courses", c.Create, protect, publishers)
	api.GET("/courses", c.List, cache, middleware.AdvancedQuery(repository.CourseSchema))
	api.GET("/courses/:id", c.Get)
	api.PUT("/courses/:id", c.Update, protect, publishers)
	api.DELETE("/courses/:id", c.Delete, protect, publishers)

	// ---- Reviews ----
	api.GET("/bootcamps/:bootcampId/reviews", r.ListByBootcamp)
	api.POST("/bootcamps/:bootcampId/reviews", r.Create, protect, reviewers)
	api.GET("/reviews", r.List, cache, middleware.AdvancedQuery(repository.ReviewSchema))
	api.GET("/reviews/:id", r.Get)
	api.PUT("/reviews/:id", r.Update, protect, reviewers)
	api.DELETE("/reviews/:id", r.Delete, protect, reviewers)
}
