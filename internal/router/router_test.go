package router

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bootcamp-directory/internal/repository"
	"github.com/iliyamo/bootcamp-directory/internal/service"
)

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

func newTestServer(t *testing.T, db pinger) *echo.Echo {
	t.Helper()
	sqlDB, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	users := repository.NewUserRepo(sqlDB)
	auth := service.NewAuthService(service.AuthConfig{Secret: "s", TokenTTL: time.Hour, BcryptCost: 4}, users, nil, nil, logger)
	return New(Deps{
		Logger:    logger,
		DB:        db,
		Auth:      auth,
		Users:     users,
		Bootcamps: repository.NewBootcampRepo(sqlDB),
		Courses:   repository.NewCourseRepo(sqlDB),
		Reviews:   repository.NewReviewRepo(sqlDB),
	})
}

func get(e *echo.Echo, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	rec := get(newTestServer(t, pinger{}), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = get(newTestServer(t, pinger{err: errors.New("down")}), "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsExposesRequestCounters(t *testing.T) {
	e := newTestServer(t, pinger{})
	get(e, "/healthz")

	rec := get(e, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
	assert.Contains(t, rec.Body.String(), `path="/healthz"`)
}

func TestUnknownRouteUsesErrorEnvelope(t *testing.T) {
	rec := get(newTestServer(t, pinger{}), "/api/v1/nothing-here")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"Not Found"}`, rec.Body.String())
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	e := newTestServer(t, pinger{})
	for _, path := range []string{"/api/v1/auth/me", "/api/v1/users"} {
		rec := get(e, path)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		assert.JSONEq(t, `{"success":false,"message":"Not authorized to access this route"}`, rec.Body.String(), path)
	}
}

func TestMalformedIDIsNotFound(t *testing.T) {
	rec := get(newTestServer(t, pinger{}), "/api/v1/bootcamps/abc")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Resource not found with id of abc")
}

func TestRequestIDHeader(t *testing.T) {
	rec := get(newTestServer(t, pinger{}), "/healthz")
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}
