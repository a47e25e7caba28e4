package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bootcamp-directory/internal/apperr"
	"github.com/iliyamo/bootcamp-directory/internal/middleware"
	"github.com/iliyamo/bootcamp-directory/internal/model"
	"github.com/iliyamo/bootcamp-directory/internal/repository"
	"github.com/iliyamo/bootcamp-directory/internal/utils"
)

// UserHandler implements the admin-only user maintenance routes.
type UserHandler struct {
	Users      *repository.UserRepo
	BcryptCost int
}

func NewUserHandler(users *repository.UserRepo, bcryptCost int) *UserHandler {
	return &UserHandler{Users: users, BcryptCost: bcryptCost}
}

type createUserReq struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"omitempty,oneof=user publisher admin"`
}

type updateUserReq struct {
	Name  string `json:"name" validate:"required,max=100"`
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,oneof=user publisher admin"`
}

func userNotFound(id uint64) string {
	return fmt.Sprintf("User not found with id of %d", id)
}

// List handles GET /api/v1/users.
func (h *UserHandler) List(c echo.Context) error {
	q := middleware.QueryFrom(c, repository.UserSchema)
	ctx, cancel := dbCtx(c)
	defer cancel()

	docs, total, err := h.Users.List(ctx, q)
	if err != nil {
		return apperr.Internal(err)
	}
	return sendPage(c, q, total, docs)
}

// Get handles GET /api/v1/users/:id.
func (h *UserHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return notFoundOr(err, userNotFound(id))
	}
	return sendData(c, http.StatusOK, u)
}

// Create handles POST /api/v1/users.  Unlike registration it may create
// admins.
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserReq
	if err := bind(c, &req); err != nil {
		return err
	}
	hash, err := utils.HashPassword(req.Password, h.BcryptCost)
	if err != nil {
		return apperr.Internal(err)
	}
	u := &model.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        req.Email,
		Role:         model.Role(req.Role),
		PasswordHash: hash,
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Users.Create(ctx, u); err != nil {
		return duplicateOr(err)
	}
	return sendData(c, http.StatusCreated, u)
}

// Update handles PUT /api/v1/users/:id.  Passwords are not changed here.
func (h *UserHandler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return notFoundOr(err, userNotFound(id))
	}
	req := updateUserReq{Name: u.Name, Email: u.Email, Role: string(u.Role)}
	if err := bind(c, &req); err != nil {
		return err
	}
	u.Name, u.Email, u.Role = strings.TrimSpace(req.Name), req.Email, model.Role(req.Role)
	if err := h.Users.Update(ctx, u); err != nil {
		return duplicateOr(err)
	}
	return sendData(c, http.StatusOK, u)
}

// Delete handles DELETE /api/v1/users/:id.
func (h *UserHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	if err := h.Users.Delete(ctx, id); err != nil {
		return notFoundOr(err, userNotFound(id))
	}
	return sendData(c, http.StatusOK, echo.Map{})
}
