// Package router builds the echo instance: global middleware, the
// /api/v1 route table and the operational endpoints.
package router

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/bootcamp-directory/internal/config"
	"github.com/iliyamo/bootcamp-directory/internal/handler"
	"github.com/iliyamo/bootcamp-directory/internal/middleware"
	"github.com/iliyamo/bootcamp-directory/internal/repository"
	"github.com/iliyamo/bootcamp-directory/internal/service"
	"github.com/iliyamo/bootcamp-directory/internal/storage"
	"github.com/iliyamo/bootcamp-directory/internal/validate"
)

// Deps is everything the routes need.  Redis, Geo and Photos may be nil;
// the features that use them degrade instead of failing at startup.
type Deps struct {
	Cfg      config.Config
	Logger   *slog.Logger
	DB       handler.Pinger
	Redis    *redis.Client
	Registry *prometheus.Registry

	Auth      *service.AuthService
	Users     *repository.UserRepo
	Bootcamps *repository.BootcampRepo
	Courses   *repository.CourseRepo
	Reviews   *repository.ReviewRepo
	Geo       handler.Geocoder
	Photos    *storage.Photos
}

// New returns a configured echo instance with every route registered.
func New(d Deps) *echo.Echo {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Registry == nil {
		d.Registry = prometheus.NewRegistry()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validate.Echo{}
	e.HTTPErrorHandler = handler.ErrorHandler(d.Logger)

	// the metrics middleware renders errors itself, so everything inside
	// it reaches the logger as a plain status
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLogger(d.Logger))
	e.Use(middleware.NewMetrics(d.Registry).Middleware())
	e.Use(echomw.Recover())
	e.Use(echomw.Secure())
	e.Use(echomw.CORS())
	e.Use(echomw.BodyLimit("2M"))
	e.Use(middleware.RateLimit(d.Cfg.RateLimit, d.Redis, d.Logger))

	RegisterRoutes(e, d)

	api := e.Group("/api/v1")
	cache := middleware.ResponseCache(d.Cfg.Cache, d.Redis, d.Logger)
	protect := middleware.Protect(d.Auth)

	auth := handler.NewAuthHandler(d.Auth, handler.CookieConfig{
		ExpireDays: d.Cfg.Auth.CookieExpireDays,
		Secure:     d.Cfg.IsProduction(),
	})
	auth.PublicURL = d.Cfg.PublicURL
	RegisterAuth(api, auth, protect)
	RegisterBootcamps(api,
		handler.NewBootcampHandler(d.Bootcamps, d.Courses, d.Geo, d.Photos, d.Logger),
		handler.NewCourseHandler(d.Courses, d.Bootcamps),
		handler.NewReviewHandler(d.Reviews, d.Bootcamps),
		protect, cache)
	RegisterUsers(api, handler.NewUserHandler(d.Users, d.Cfg.Auth.BcryptCost), protect)
	return e
}

// RegisterRoutes registers the operational endpoints: the health check
// and the Prometheus scrape target.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health(d.DB))
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{})))
}
