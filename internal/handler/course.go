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

// CourseHandler serves courses, both top level and nested under a
// bootcamp.
type CourseHandler struct {
	Courses   *repository.CourseRepo
	Bootcamps *repository.BootcampRepo
}

func NewCourseHandler(c *repository.CourseRepo, b *repository.BootcampRepo) *CourseHandler {
	return &CourseHandler{Courses: c, Bootcamps: b}
}

type courseReq struct {
	Title                string  `json:"title" validate:"required,max=100"`
	Description          string  `json:"description" validate:"required"`
	Weeks                string  `json:"weeks" validate:"required"`
	Tuition              float64 `json:"tuition" validate:"required,gt=0"`
	MinimumSkill         string  `json:"minimumSkill" validate:"required,oneof=beginner intermediate advanced"`
	ScholarshipAvailable bool    `json:"scholarshipAvailable"`
}

func (r courseReq) apply(c *model.Course) {
	c.Title = r.Title
	c.Description = r.Description
	c.Weeks = r.Weeks
	c.Tuition = r.Tuition
	c.MinimumSkill = r.MinimumSkill
	c.ScholarshipAvailable = r.ScholarshipAvailable
}

func courseNotFound(id uint64) string {
	return fmt.Sprintf("No course found with the id of %d", id)
}

// List handles GET /api/v1/courses with the advanced query.
func (h *CourseHandler) List(c echo.Context) error {
	q := middleware.QueryFrom(c, repository.CourseSchema)
	ctx, cancel := dbCtx(c)
	defer cancel()

	docs, total, err := h.Courses.List(ctx, q)
	if err != nil {
		return apperr.Internal(err)
	}
	return sendPage(c, q, total, docs)
}

// ListByBootcamp handles GET /api/v1/bootcamps/:bootcampId/courses.
func (h *CourseHandler) ListByBootcamp(c echo.Context) error {
	bootcampID, err := parseID(c, "bootcampId")
	if err != nil {
		return err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	courses, err := h.Courses.ListByBootcamp(ctx, bootcampID)
	if err != nil {
		return apperr.Internal(err)
	}
	return sendList(c, courses)
}

// Get handles GET /api/v1/courses/:id.
func (h *CourseHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	course, err := h.Courses.GetByID(ctx, id)
	if err != nil {
		return notFoundOr(err, courseNotFound(id))
	}
	return sendData(c, http.StatusOK, course)
}

// Create handles POST /api/v1/bootcamps/:bootcampId/courses.  Only the
// bootcamp owner or an admin may add courses.
func (h *CourseHandler) Create(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	bootcampID, err := parseID(c, "bootcampId")
	if err != nil {
		return err
	}
	var req courseReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	// The parent bootcamp must exist before ownership can be checked.
	b, err := h.Bootcamps.GetByID(ctx, bootcampID)
	if err != nil {
		return notFoundOr(err, fmt.Sprintf("No bootcamp with the id of %d", bootcampID))
	}
	if !canModify(u, b.UserID) {
		return apperr.Forbidden(fmt.Sprintf("User %d is not authorized to add a course to bootcamp %d", u.ID, b.ID))
	}

	// The course belongs to whoever created it, which may be an admin
	// rather than the bootcamp owner.  Create also refreshes average_cost.
	course := &model.Course{BootcampID: b.ID, UserID: u.ID}
	req.apply(course)
	if err := h.Courses.Create(ctx, course); err != nil {
		return duplicateOr(err)
	}
	return sendData(c, http.StatusCreated, course)
}

func (h *CourseHandler) load(c echo.Context, verb string) (*model.Course, error) {
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

	course, err := h.Courses.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, courseNotFound(id))
	}
	if !canModify(u, course.UserID) {
		return nil, apperr.Forbidden(fmt.Sprintf("User %d is not authorized to %s course %d", u.ID, verb, course.ID))
	}
	return course, nil
}

// Update handles PUT /api/v1/courses/:id.
func (h *CourseHandler) Update(c echo.Context) error {
	course, err := h.load(c, "update")
	if err != nil {
		return err
	}
	// Seed the request with the stored values so a partial body only
	// overwrites the fields it names.
	req := courseReq{
		Title: course.Title, Description: course.Description, Weeks: course.Weeks,
		Tuition: course.Tuition, MinimumSkill: course.MinimumSkill, ScholarshipAvailable: course.ScholarshipAvailable,
	}
	if err := bind(c, &req); err != nil {
		return err
	}
	req.apply(course)

	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Courses.Update(ctx, course); err != nil {
		return duplicateOr(err)
	}
	return sendData(c, http.StatusOK, course)
}

// Delete handles DELETE /api/v1/courses/:id.
func (h *CourseHandler) Delete(c echo.Context) error {
	course, err := h.load(c, "delete")
	if err != nil {
		return err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Courses.Delete(ctx, course); err != nil {
		return notFoundOr(err, courseNotFound(course.ID))
	}
	return sendData(c, http.StatusOK, echo.Map{})
}
