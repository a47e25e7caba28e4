package handler

import (
	"database/sql/driver"
	"net/http"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/bootcamp-directory/internal/model"
	"github.com/iliyamo/bootcamp-directory/internal/repository"
	"github.com/iliyamo/bootcamp-directory/internal/utils"
	"github.com/iliyamo/bootcamp-directory/internal/validate"
)

func newUserServer(t *testing.T) (*echo.Echo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	h := NewUserHandler(repository.NewUserRepo(db), bcrypt.MinCost)
	admin := &model.User{ID: 1, Role: model.RoleAdmin}
	e := echo.New()
	e.Validator = validate.Echo{}
	e.HTTPErrorHandler = ErrorHandler(discardLogger())
	e.POST("/api/v1/users", h.Create, asUser(admin))
	e.GET("/api/v1/users/:id", h.Get, asUser(admin))
	e.DELETE("/api/v1/users/:id", h.Delete, asUser(admin))
	return e, mock
}

// bcryptOf matches a stored password column holding a bcrypt hash of plain.
type bcryptOf string

func (p bcryptOf) Match(v driver.Value) bool {
	s, ok := v.(string)
	return ok && s != string(p) && utils.VerifyPassword(s, string(p))
}

func TestUserCreate_StoresHashNotPlaintext(t *testing.T) {
	e, mock := newUserServer(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users (name, email, role, password, created_at)")).
		WithArgs("Kim", "kim@example.com", "admin", bcryptOf("s3cret!"), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(12, 1))

	rec := post(e, http.MethodPost, "/api/v1/users",
		`{"name":"Kim","email":"Kim@Example.com","password":"s3cret!","role":"admin"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := rec.Body.String()
	assert.Contains(t, body, `"id":12`)
	assert.Contains(t, body, `"role":"admin"`)
	assert.NotContains(t, body, "password")
	assert.NotContains(t, body, "s3cret!")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserCreate_DefaultsRoleToUser(t *testing.T) {
	e, mock := newUserServer(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("Kim", "kim@example.com", "user", bcryptOf("s3cret!"), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(13, 1))

	rec := post(e, http.MethodPost, "/api/v1/users", `{"name":"Kim","email":"kim@example.com","password":"s3cret!"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserGet_MissingID(t *testing.T) {
	e, mock := newUserServer(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id=? LIMIT 1")).
		WithArgs(uint64(77)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "role", "password",
			"reset_password_token", "reset_password_expire", "created_at"}))

	rec := post(e, http.MethodGet, "/api/v1/users/77", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"User not found with id of 77"}`, rec.Body.String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserDelete_MissingID(t *testing.T) {
	e, mock := newUserServer(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE id=?")).
		WithArgs(uint64(77)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM users WHERE id=?")).
		WithArgs(uint64(77)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	rec := post(e, http.MethodDelete, "/api/v1/users/77", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"User not found with id of 77"}`, rec.Body.String())
}
