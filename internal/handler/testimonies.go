package handler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/crusade-registration/internal/middleware"
	"github.com/iliyamo/crusade-registration/internal/model"
	"github.com/iliyamo/crusade-registration/internal/response"
	"github.com/iliyamo/crusade-registration/internal/service"
	"github.com/iliyamo/crusade-registration/internal/validation"
)

// TestimonyHandler serves /api/v1/testimonies and the public category
// list.
type TestimonyHandler struct {
	Testimonies *service.Testimonies
	Categories  *service.Categories
}

func NewTestimonyHandler(testimonies *service.Testimonies, categories *service.Categories) *TestimonyHandler {
	return &TestimonyHandler{Testimonies: testimonies, Categories: categories}
}

// idField decodes an optional id sent as a number, a numeric string or
// null.  An empty string or zero clears the field.
type idField struct {
	Present bool
	Value   *uint64
}

func (f *idField) UnmarshalJSON(b []byte) error {
	f.Present = true
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		f.Value = nil
		return nil
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q", s)
	}
	if id > 0 {
		f.Value = &id
	}
	return nil
}

// input converts f to the nil-means-unchanged form the service takes.
func (f idField) input() **uint64 {
	if !f.Present {
		return nil
	}
	v := f.Value
	return &v
}

type testimonyReq struct {
	Title      *string `json:"title"`
	Content    *string `json:"content"`
	Text       *string `json:"text"`
	EventID    idField `json:"event_id"`
	CategoryID idField `json:"category_id"`
	Image      *string `json:"image"`
}

// body returns the testimony text, preferring content over the legacy
// text key.
func (r testimonyReq) body() *string {
	if r.Content != nil {
		return r.Content
	}
	return r.Text
}

func (r testimonyReq) input() model.TestimonyInput {
	return model.TestimonyInput{
		Title:      r.Title,
		Text:       r.body(),
		EventID:    r.EventID.input(),
		CategoryID: r.CategoryID.input(),
		Image:      r.Image,
	}
}

func viewerID(c echo.Context) uint64 {
	if u := middleware.CurrentUser(c); u != nil {
		return u.ID
	}
	return 0
}

var deleteTestimonyMessages = messages{service.ErrNotTestimonyAuthor: "You can only delete your own testimonies"}

// List pages through the testimonies visible to the caller.
func (h *TestimonyHandler) List(c echo.Context) error {
	page, limit := pageParams(c, service.DefaultTestimonyLimit)
	viewer := viewerID(c)
	f := model.TestimonyFilter{
		Viewer:       viewer,
		Mine:         viewer != 0 && truthy(c.QueryParam("my")),
		EventID:      queryID(c, "event_id"),
		CategoryID:   queryID(c, "category_id"),
		CategorySlug: c.QueryParam("category"),
		Page:         page,
		Limit:        limit,
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.Testimonies.List(ctx, f)
	if err != nil {
		return fail(c, err, "Failed to get testimonies")
	}
	p := res.Pagination
	return response.Paginated(c, res.Testimonies, p.Total, p.Page, p.PerPage, "Testimonies retrieved successfully")
}

// Get returns one testimony if the caller may see it.
func (h *TestimonyHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return response.NotFound(c, "Testimony not found")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	v, err := h.Testimonies.Get(ctx, id, viewerID(c))
	if err != nil {
		return fail(c, err, "Failed to get testimony")
	}
	return response.Success(c, v, "Testimony retrieved successfully")
}

// Create submits a testimony for moderation.
func (h *TestimonyHandler) Create(c echo.Context) error {
	var req testimonyReq
	if err := c.Bind(&req); err != nil {
		return response.Validation(c, validation.Errors{"_": "Invalid request body"})
	}
	validation.TrimStrings(&req)
	errs := validation.Errors{}
	if req.Title == nil || *req.Title == "" {
		errs.Add("title", "Title is required")
	}
	if b := req.body(); b == nil || strings.TrimSpace(*b) == "" {
		errs.Add("text", "Testimony text is required")
	}
	if !errs.Empty() {
		return response.Validation(c, errs)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	v, err := h.Testimonies.Create(ctx, middleware.CurrentUser(c).ID, req.input())
	if err != nil {
		return fail(c, err, "Failed to create testimony")
	}
	return response.Created(c, v, "Testimony submitted successfully")
}

// Update edits a testimony the caller wrote, while it is not approved.
func (h *TestimonyHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return response.NotFound(c, "Testimony not found")
	}
	var req testimonyReq
	if err := c.Bind(&req); err != nil {
		return response.Validation(c, validation.Errors{"_": "Invalid request body"})
	}
	validation.TrimStrings(&req)
	ctx, cancel := requestContext(c)
	defer cancel()

	v, err := h.Testimonies.Update(ctx, middleware.CurrentUser(c).ID, id, req.input())
	if err != nil {
		return fail(c, err, "Failed to update testimony")
	}
	return response.Success(c, v, "Testimony updated successfully")
}

// Delete removes a testimony the caller wrote.
func (h *TestimonyHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return response.NotFound(c, "Testimony not found")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Testimonies.Delete(ctx, middleware.CurrentUser(c).ID, id); err != nil {
		return fail(c, err, "Failed to delete testimony", deleteTestimonyMessages)
	}
	return response.Success(c, nil, "Testimony deleted successfully")
}

// Like toggles the caller's like.
func (h *TestimonyHandler) Like(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return response.NotFound(c, "Testimony not found")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	like, err := h.Testimonies.ToggleLike(ctx, middleware.CurrentUser(c).ID, id)
	if err != nil {
		return fail(c, err, "Failed to toggle like")
	}
	msg := "Testimony unliked"
	if like.Liked {
		msg = "Testimony liked"
	}
	return response.Success(c, like, msg)
}

// ListCategories lists the active testimony categories.
func (h *TestimonyHandler) ListCategories(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	list, err := h.Categories.Active(ctx)
	if err != nil {
		return fail(c, err, "Failed to get categories")
	}
	return response.Success(c, list, "Categories retrieved successfully")
}

// Category finds a category by numeric id or slug.
func (h *TestimonyHandler) Category(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	cat, err := h.Categories.Find(ctx, c.Param("id"))
	if err != nil {
		return fail(c, err, "Failed to get category")
	}
	return response.Success(c, cat, "Category retrieved successfully")
}
