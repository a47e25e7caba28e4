package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bootcamp-directory/internal/apperr"
	"github.com/iliyamo/bootcamp-directory/internal/model"
)

// SessionCookie is the cookie that carries the session token.
const SessionCookie = "token"

// TokenSource extracts a raw session token from a request.  It returns ""
// when the request carries none.
type TokenSource func(c echo.Context) string

// BearerToken reads "Authorization: Bearer <token>".
func BearerToken(c echo.Context) string {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	// Any other scheme is ignored, not rejected.
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
}

// CookieToken reads the session cookie.  The logout placeholder "none"
// counts as no token.
func CookieToken(c echo.Context) string {
	ck, err := c.Cookie(SessionCookie)
	if err != nil || ck.Value == "none" {
		return ""
	}
	return ck.Value
}

// DefaultTokenSources tries the Authorization header first, then the
// cookie.
var DefaultTokenSources = []TokenSource{BearerToken, CookieToken}

// Authenticator resolves a raw token into an identity.
// *service.AuthService implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.User, error)
}

// Protect rejects requests without a valid session and attaches the
// identity for downstream handlers (see CurrentUser).  Sources are tried
// in order; the first non-empty token is the only one verified.
func Protect(auth Authenticator, sources ...TokenSource) echo.MiddlewareFunc {
	if len(sources) == 0 {
		sources = DefaultTokenSources
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Take the first source that yields a token.  An invalid
			// Bearer token does not fall back to the cookie.
			var token string
			for _, src := range sources {
				if token = src(c); token != "" {
					break
				}
			}
			// No token at all is the same 401 as an invalid one.
			if token == "" {
				return apperr.Auth("Not authorized to access this route")
			}
			// Verify signature and expiry, then load the user so a deleted
			// account loses access immediately.
			u, err := auth.Authenticate(c.Request().Context(), token)
			if err != nil {
				return err
			}
			// Store the identity for handlers and for Authorize.
			SetUser(c, u)
			return next(c)
		}
	}
}
