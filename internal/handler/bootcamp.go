package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bootcamp-directory/internal/apperr"
	"github.com/iliyamo/bootcamp-directory/internal/geocoder"
	"github.com/iliyamo/bootcamp-directory/internal/middleware"
	"github.com/iliyamo/bootcamp-directory/internal/model"
	"github.com/iliyamo/bootcamp-directory/internal/repository"
	"github.com/iliyamo/bootcamp-directory/internal/storage"
	"github.com/iliyamo/bootcamp-directory/internal/utils"
)

// Geocoder resolves an address or zip code.  *geocoder.Client
// implements it.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*model.Location, error)
}

// BootcampHandler serves the bootcamp resource.
type BootcampHandler struct {
	Bootcamps *repository.BootcampRepo
	Courses   *repository.CourseRepo
	Geo       Geocoder
	Photos    *storage.Photos
	Logger    *slog.Logger
}

func NewBootcampHandler(b *repository.BootcampRepo, c *repository.CourseRepo, geo Geocoder, photos *storage.Photos, logger *slog.Logger) *BootcampHandler {
	if b == nil || c == nil {
		panic("nil repository passed to NewBootcampHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BootcampHandler{Bootcamps: b, Courses: c, Geo: geo, Photos: photos, Logger: logger}
}

type bootcampReq struct {
	Name          string   `json:"name" validate:"required,max=50"`
	Description   string   `json:"description" validate:"required,max=500"`
	Website       string   `json:"website" validate:"omitempty,url"`
	Phone         string   `json:"phone" validate:"omitempty,max=20"`
	Email         string   `json:"email" validate:"omitempty,email"`
	Address       string   `json:"address" validate:"required"`
	Careers       []string `json:"careers" validate:"required,min=1"`
	Housing       bool     `json:"housing"`
	JobAssistance bool     `json:"jobAssistance"`
	JobGuarantee  bool     `json:"jobGuarantee"`
	AcceptGi      bool     `json:"acceptGi"`
}

func reqFromBootcamp(b *model.Bootcamp) bootcampReq {
	return bootcampReq{
		Name: b.Name, Description: b.Description, Website: b.Website, Phone: b.Phone,
		Email: b.Email, Address: b.Address, Careers: b.Careers,
		Housing: b.Housing, JobAssistance: b.JobAssistance, JobGuarantee: b.JobGuarantee, AcceptGi: b.AcceptGi,
	}
}

// check validates the request and the closed set of careers.
func (r bootcampReq) check(c echo.Context) error {
	if err := c.Validate(r); err != nil {
		return err
	}
	for _, career := range r.Careers {
		if !slices.Contains(model.Careers, career) {
			return apperr.Validation(fmt.Sprintf("careers must be one of: %s", strings.Join(model.Careers, ", ")))
		}
	}
	return nil
}

func (r bootcampReq) apply(b *model.Bootcamp) {
	b.Name = strings.TrimSpace(r.Name)
	b.Slug = utils.Slugify(b.Name)
	b.Description = r.Description
	b.Website = r.Website
	b.Phone = r.Phone
	b.Email = r.Email
	b.Address = r.Address
	b.Careers = r.Careers
	b.Housing = r.Housing
	b.JobAssistance = r.JobAssistance
	b.JobGuarantee = r.JobGuarantee
	b.AcceptGi = r.AcceptGi
}

func bootcampNotFound(id uint64) string {
	return fmt.Sprintf("Bootcamp not found with id of %d", id)
}

// locate geocodes address.  Without a configured geocoder the bootcamp
// is stored without a location.
func (h *BootcampHandler) locate(ctx context.Context, address string) (*model.Location, error) {
	if h.Geo == nil {
		return nil, nil
	}
	loc, err := h.Geo.Geocode(ctx, address)
	switch {
	case err == nil:
		return loc, nil
	case errors.Is(err, geocoder.ErrNotConfigured):
		h.Logger.WarnContext(ctx, "geocoder not configured, storing bootcamp without location")
		return nil, nil
	case errors.Is(err, geocoder.ErrNoMatch):
		return nil, apperr.Validation("Could not geocode the given address")
	default:
		return nil, apperr.Delivery("Geocoding failed", err)
	}
}

// List handles GET /api/v1/bootcamps.
func (h *BootcampHandler) List(c echo.Context) error {
	q := middleware.QueryFrom(c, repository.BootcampSchema)
	ctx, cancel := dbCtx(c)
	defer cancel()

	docs, total, err := h.Bootcamps.List(ctx, q)
	if err != nil {
		return apperr.Internal(err)
	}
	return sendPage(c, q, total, docs)
}

// Get handles GET /api/v1/bootcamps/:id and embeds the courses.
func (h *BootcampHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	b, err := h.Bootcamps.GetByID(ctx, id)
	if err != nil {
		return notFoundOr(err, bootcampNotFound(id))
	}
	courses, err := h.Courses.ListByBootcamp(ctx, id)
	if err != nil {
		return apperr.Internal(err)
	}
	b.Courses = make([]model.Course, 0, len(courses))
	for _, cs := range courses {
		b.Courses = append(b.Courses, *cs)
	}
	return sendData(c, http.StatusOK, b)
}

// Create handles POST /api/v1/bootcamps.  A publisher may own one
// bootcamp; admins are not limited.
func (h *BootcampHandler) Create(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	var req bootcampReq
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("Invalid request body")
	}
	if err := req.check(c); err != nil {
		return err
	}
	ctx, cancel := dbCtxWith(c, 2*dbTimeout)
	defer cancel()

	if u.Role != model.RoleAdmin {
		n, err := h.Bootcamps.CountByUser(ctx, u.ID)
		if err != nil {
			return apperr.Internal(err)
		}
		if n > 0 {
			return apperr.Validation(fmt.Sprintf("The user with ID %d has already published a bootcamp", u.ID))
		}
	}

	b := &model.Bootcamp{UserID: u.ID}
	req.apply(b)
	if b.Location, err = h.locate(ctx, b.Address); err != nil {
		return err
	}
	if err := h.Bootcamps.Create(ctx, b); err != nil {
		return duplicateOr(err)
	}
	return sendData(c, http.StatusCreated, b)
}

// load fetches the bootcamp named by the :id parameter and checks that
// the caller may modify it.
func (h *BootcampHandler) load(ctx context.Context, c echo.Context, verb string) (*model.Bootcamp, error) {
	u, err := currentUser(c)
	if err != nil {
		return nil, err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return nil, err
	}
	b, err := h.Bootcamps.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, bootcampNotFound(id))
	}
	if !canModify(u, b.UserID) {
		return nil, apperr.Forbidden(fmt.Sprintf("User %d is not authorized to %s this bootcamp", u.ID, verb))
	}
	return b, nil
}

// Update handles PUT /api/v1/bootcamps/:id.  Fields missing from the
// body keep their value; a changed address is geocoded again.
func (h *BootcampHandler) Update(c echo.Context) error {
	ctx, cancel := dbCtxWith(c, 2*dbTimeout)
	defer cancel()

	b, err := h.load(ctx, c, "update")
	if err != nil {
		return err
	}
	req := reqFromBootcamp(b)
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("Invalid request body")
	}
	if err := req.check(c); err != nil {
		return err
	}
	oldAddress := b.Address
	req.apply(b)
	if b.Address != oldAddress || b.Location == nil {
		if b.Location, err = h.locate(ctx, b.Address); err != nil {
			return err
		}
	}
	if err := h.Bootcamps.Update(ctx, b); err != nil {
		return duplicateOr(err)
	}
	return sendData(c, http.StatusOK, b)
}

// Delete handles DELETE /api/v1/bootcamps/:id.  Courses and reviews of
// the bootcamp are removed with it.
func (h *BootcampHandler) Delete(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()

	b, err := h.load(ctx, c, "delete")
	if err != nil {
		return err
	}
	if err := h.Bootcamps.Delete(ctx, b.ID); err != nil {
		return notFoundOr(err, bootcampNotFound(b.ID))
	}
	return sendData(c, http.StatusOK, echo.Map{})
}

// WithinRadius handles GET /api/v1/bootcamps/radius/:zipcode/:distance
// with the distance in miles.
func (h *BootcampHandler) WithinRadius(c echo.Context) error {
	zipcode := strings.TrimSpace(c.Param("zipcode"))
	miles, err := strconv.ParseFloat(c.Param("distance"), 64)
	if err != nil || miles < 0 {
		return apperr.Validation("Please provide a valid distance in miles")
	}
	if h.Geo == nil {
		return apperr.Delivery("Geocoding is not available", nil)
	}
	ctx, cancel := dbCtxWith(c, 2*dbTimeout)
	defer cancel()

	loc, err := h.Geo.Geocode(ctx, zipcode)
	if err != nil {
		if errors.Is(err, geocoder.ErrNoMatch) {
			return apperr.NotFound(fmt.Sprintf("No location found for zipcode %s", zipcode))
		}
		return apperr.Delivery("Geocoding failed", err)
	}
	camps, err := h.Bootcamps.WithinRadius(ctx, loc.Latitude, loc.Longitude, miles)
	if err != nil {
		return apperr.Internal(err)
	}
	return sendList(c, camps)
}

// UploadPhoto handles PUT /api/v1/bootcamps/:id/photo with a multipart
// "file" field.
func (h *BootcampHandler) UploadPhoto(c echo.Context) error {
	if h.Photos == nil {
		return apperr.Delivery("Problem with file upload", nil)
	}
	ctx, cancel := dbCtxWith(c, 6*dbTimeout)
	defer cancel()

	b, err := h.load(ctx, c, "update")
	if err != nil {
		return err
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return apperr.Validation("Please upload a file")
	}
	name, err := h.Photos.Save(ctx, b.ID, fh)
	switch {
	case errors.Is(err, storage.ErrNotImage):
		return apperr.Validation("Please upload an image file")
	case errors.Is(err, storage.ErrTooLarge):
		return apperr.Validation(fmt.Sprintf("Please upload an image less than %d bytes", h.Photos.MaxSize()))
	case err != nil:
		return apperr.Delivery("Problem with file upload", err)
	}
	if err := h.Bootcamps.UpdatePhoto(ctx, b.ID, name); err != nil {
		return notFoundOr(err, bootcampNotFound(b.ID))
	}
	return sendData(c, http.StatusOK, name)
}
