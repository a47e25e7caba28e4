package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bootcamp-directory/internal/apperr"
	"github.com/iliyamo/bootcamp-directory/internal/middleware"
	"github.com/iliyamo/bootcamp-directory/internal/model"
	"github.com/iliyamo/bootcamp-directory/internal/repository"
)

// ReviewHandler serves bootcamp reviews.
type ReviewHandler struct {
	Reviews   *repository.ReviewRepo
	Bootcamps *repository.BootcampRepo
}

func NewReviewHandler(r *repository.ReviewRepo, b *repository.BootcampRepo) *ReviewHandler {
	return &ReviewHandler{Reviews: r, Bootcamps: b}
}

type reviewReq struct {
	Title  string `json:"title" validate:"required,max=100"`
	Text   string `json:"text" validate:"required"`
	Rating int    `json:"rating" validate:"required,gte=1,lte=10"`
}

func reviewNotFound(id uint64) string {
	return fmt.Sprintf("No review found with the id of %d", id)
}

// List handles GET /api/v1/reviews with the advanced query.
func (h *ReviewHandler) List(c echo.Context) error {
	q := middleware.QueryFrom(c, repository.ReviewSchema)
	ctx, cancel := dbCtx(c)
	defer cancel()

	docs, total, err := h.Reviews.List(ctx, q)
	if err != nil {
		return apperr.Internal(err)
	}
	return sendPage(c, q, total, docs)
}

// ListByBootcamp handles GET /api/v1/bootcamps/:bootcampId/reviews.
func (h *ReviewHandler) ListByBootcamp(c echo.Context) error {
	bootcampID, err := parseID(c, "bootcampId")
	if err != nil {
		return err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	reviews, err := h.Reviews.ListByBootcamp(ctx, bootcampID)
	if err != nil {
		return apperr.Internal(err)
	}
	return sendList(c, reviews)
}

// Get handles GET /api/v1/reviews/:id.
func (h *ReviewHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	rv, err := h.Reviews.GetByID(ctx, id)
	if err != nil {
		return notFoundOr(err, reviewNotFound(id))
	}
	return sendData(c, http.StatusOK, rv)
}

// Create handles POST /api/v1/bootcamps/:bootcampId/reviews.  A user may
// review a bootcamp once.
func (h *ReviewHandler) Create(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	bootcampID, err := parseID(c, "bootcampId")
	if err != nil {
		return err
	}
	var req reviewReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	if _, err := h.Bootcamps.GetByID(ctx, bootcampID); err != nil {
		return notFoundOr(err, fmt.Sprintf("No bootcamp with the id of %d", bootcampID))
	}
	// uq_reviews_bootcamp_user turns a second review into ErrDuplicate.
	rv := &model.Review{BootcampID: bootcampID, UserID: u.ID, Title: req.Title, Text: req.Text, Rating: req.Rating}
	if err := h.Reviews.Create(ctx, rv); err != nil {
		return duplicateOr(err)
	}
	return sendData(c, http.StatusCreated, rv)
}

func (h *ReviewHandler) load(c echo.Context) (*model.Review, error) {
	u, err := currentUser(c)
	if err != nil {
		return nil, err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return nil, err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	rv, err := h.Reviews.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, reviewNotFound(id))
	}
	if !canModify(u, rv.UserID) {
		return nil, apperr.Forbidden("Not authorized to update review")
	}
	return rv, nil
}

// Update handles PUT /api/v1/reviews/:id.
func (h *ReviewHandler) Update(c echo.Context) error {
	rv, err := h.load(c)
	if err != nil {
		return err
	}
	// Unset fields keep their stored values.
	req := reviewReq{Title: rv.Title, Text: rv.Text, Rating: rv.Rating}
	if err := bind(c, &req); err != nil {
		return err
	}
	rv.Title, rv.Text, rv.Rating = req.Title, req.Text, req.Rating

	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Reviews.Update(ctx, rv); err != nil {
		return duplicateOr(err)
	}
	return sendData(c, http.StatusOK, rv)
}

// Delete handles DELETE /api/v1/reviews/:id.
func (h *ReviewHandler) Delete(c echo.Context) error {
	rv, err := h.load(c)
	if err != nil {
		return err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Reviews.Delete(ctx, rv); err != nil {
		return notFoundOr(err, reviewNotFound(rv.ID))
	}
	return sendData(c, http.StatusOK, echo.Map{})
}
