package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bootcamp-directory/internal/handler"
)

// RegisterAuth registers the session routes under /auth plus the reset
// alias that emailed links point at.
func RegisterAuth(api *echo.Group, a *handler.AuthHandler, protect echo.MiddlewareFunc) {
	g := api.Group("/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.GET("/logout", a.Logout)
	g.POST("/forgotpassword", a.ForgotPassword)
	g.PUT("/resetpassword/:resettoken", a.ResetPassword)

	g.GET("/me", a.Me, protect)
	g.PUT("/updatedetails", a.UpdateDetails, protect)
	g.PUT("/updatepassword", a.UpdatePassword, protect)

	api.PUT("/resetpassword/:resettoken", a.ResetPassword)
}
