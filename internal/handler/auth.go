package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bootcamp-directory/internal/apperr"
	"github.com/iliyamo/bootcamp-directory/internal/middleware"
	"github.com/iliyamo/bootcamp-directory/internal/service"
	"github.com/iliyamo/bootcamp-directory/internal/utils"
)

// CookieConfig controls the session cookie written next to every token
// response.
type CookieConfig struct {
	ExpireDays int
	Secure     bool // set in production
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Auth   *service.AuthService
	Cookie CookieConfig

	// PublicURL, when set, replaces scheme and Host in reset links.
	PublicURL string
}

func NewAuthHandler(auth *service.AuthService, cookie CookieConfig) *AuthHandler {
	return &AuthHandler{Auth: auth, Cookie: cookie}
}

// ----- DTOs -----

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updatePasswordReq struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type forgotPasswordReq struct {
	Email string `json:"email"`
}

type resetPasswordReq struct {
	Password string `json:"password"`
}

type tokenResp struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
}

// sendTokenResponse sets the session cookie and returns the token in
// the body as well.
func (h *AuthHandler) sendTokenResponse(c echo.Context, status int, sess utils.Session) error {
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    sess.Token,
		Path:     "/",
		Expires:  time.Now().Add(time.Duration(h.Cookie.ExpireDays) * 24 * time.Hour),
		HttpOnly: true,
		Secure:   h.Cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return c.JSON(status, tokenResp{Success: true, Token: sess.Token})
}

// Register handles POST /api/v1/auth/register.
func (h *AuthHandler) Register(c echo.Context) error {
	var req service.RegisterInput
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("Invalid request body")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	_, sess, err := h.Auth.Register(ctx, req)
	if err != nil {
		return err
	}
	return h.sendTokenResponse(c, http.StatusOK, sess)
}

// Login handles POST /api/v1/auth/login.  Unknown emails and wrong
// passwords produce identical responses.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("Invalid request body")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	_, sess, err := h.Auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return err
	}
	return h.sendTokenResponse(c, http.StatusOK, sess)
}

// Logout handles GET /api/v1/auth/logout by overwriting the cookie.  The
// token itself stays valid until it expires.
func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "none",
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Second),
		HttpOnly: true,
		Secure:   h.Cookie.Secure,
	})
	return sendData(c, http.StatusOK, echo.Map{})
}

// Me handles GET /api/v1/auth/me.
func (h *AuthHandler) Me(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	me, err := h.Auth.Me(ctx, u.ID)
	if err != nil {
		return err
	}
	return sendData(c, http.StatusOK, me)
}

// UpdateDetails handles PUT /api/v1/auth/updatedetails.
func (h *AuthHandler) UpdateDetails(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	// missing fields keep their current value
	req := service.DetailsInput{Name: u.Name, Email: u.Email}
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("Invalid request body")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	updated, err := h.Auth.UpdateDetails(ctx, u, req)
	if err != nil {
		return err
	}
	return sendData(c, http.StatusOK, updated)
}

// UpdatePassword handles PUT /api/v1/auth/updatepassword.
func (h *AuthHandler) UpdatePassword(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	var req updatePasswordReq
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("Invalid request body")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	sess, err := h.Auth.ChangePassword(ctx, u, req.CurrentPassword, req.NewPassword)
	if err != nil {
		return err
	}
	return h.sendTokenResponse(c, http.StatusOK, sess)
}

// ForgotPassword handles POST /api/v1/auth/forgotpassword.  The emailed
// URL points at this server's reset route.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotPasswordReq
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("Invalid request body")
	}
	// Host is client supplied: without PublicURL a forged header sends the
	// victim a reset link to another origin.  Deployments behind a proxy
	// should set PUBLIC_BASE_URL.
	origin := h.PublicURL
	if origin == "" {
		origin = fmt.Sprintf("%s://%s", c.Scheme(), c.Request().Host)
	}
	base := origin + "/api/v1/resetpassword/"

	// mail delivery gets more time than a plain query
	ctx, cancel := dbCtxWith(c, 15*time.Second)
	defer cancel()

	if err := h.Auth.RequestPasswordReset(ctx, req.Email, base); err != nil {
		return err
	}
	return sendData(c, http.StatusOK, "Email sent")
}

// ResetPassword handles PUT /api/v1/auth/resetpassword/:resettoken and
// its alias PUT /api/v1/resetpassword/:resettoken.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordReq
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("Invalid request body")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	_, sess, err := h.Auth.ResetPassword(ctx, c.Param("resettoken"), req.Password)
	if err != nil {
		return err
	}
	return h.sendTokenResponse(c, http.StatusOK, sess)
}
