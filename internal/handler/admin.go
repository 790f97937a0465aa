package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/crusade-registration/internal/middleware"
	"github.com/iliyamo/crusade-registration/internal/model"
	"github.com/iliyamo/crusade-registration/internal/response"
	"github.com/iliyamo/crusade-registration/internal/service"
)

const adminTestimonyLimit = 100

// AdminHandler serves the moderation console under /admin/api.
type AdminHandler struct {
	Sessions    *middleware.AdminSessions
	Admin       *service.Admin
	Catalog     *service.Catalog
	Testimonies *service.Testimonies
	Categories  *service.Categories
}

type adminLoginReq struct {
	Username string `json:"username" validate:"required" msg:"required=Username is required"`
	Password string `json:"password" validate:"required" msg:"required=Password is required"`
}

type adminView struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

func viewAdmin(a model.Admin) adminView {
	return adminView{ID: a.ID, Username: a.Username, Name: a.Name, Role: a.Role}
}

// Login checks credentials and opens a session.
func (h *AdminHandler) Login(c echo.Context) error {
	var req adminLoginReq
	if err := bind(c, &req); err != nil {
		return fail(c, err, "Login failed")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	a, err := h.Admin.Login(ctx, req.Username, req.Password)
	if err != nil {
		return fail(c, err, "Login failed")
	}
	if err := h.Sessions.Login(c, a); err != nil {
		return fail(c, err, "Login failed")
	}
	return response.Success(c, viewAdmin(a), "Login successful")
}

func (h *AdminHandler) Logout(c echo.Context) error {
	if err := h.Sessions.Logout(c); err != nil {
		return fail(c, err, "Logout failed")
	}
	return response.Success(c, nil, "Logged out")
}

// CSRFToken exists so clients can read the X-CSRF-Token header before
// their first mutating call.
func (h *AdminHandler) CSRFToken(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}

// Me returns the admin bound to the session.
func (h *AdminHandler) Me(c echo.Context) error {
	return response.Success(c, viewAdmin(*middleware.CurrentAdmin(c)), "Admin retrieved successfully")
}

func (h *AdminHandler) Dashboard(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	d, err := h.Admin.Dashboard(ctx)
	if err != nil {
		return fail(c, err, "Failed to load dashboard")
	}
	return response.Success(c, d, "Dashboard retrieved successfully")
}

// adminUserReq is shared by create and update; update leaves password
// optional.
type adminUserReq struct {
	FullName string `json:"full_name" validate:"required,min=2" msg:"required=Full name is required"`
	Email    string `json:"email" validate:"required,email" msg:"required=Email is required;email=Invalid email format"`
	Password string `json:"password" validate:"omitempty,min=6" msg:"min=Password must be at least 6 characters"`
	Phone    string `json:"phone" validate:"omitempty,phone"`
	Country  string `json:"country" validate:"required" msg:"required=Country is required"`
	City     string `json:"city"`
	Church   string `json:"church"`
}

func (r adminUserReq) input() service.AdminUserInput {
	return service.AdminUserInput{
		FullName: r.FullName,
		Email:    r.Email,
		Password: r.Password,
		Phone:    r.Phone,
		Country:  r.Country,
		City:     r.City,
		Church:   r.Church,
	}
}

func publicUsers(users []model.User) []model.PublicUser {
	out := make([]model.PublicUser, len(users))
	for i, u := range users {
		out[i] = u.Public()
	}
	return out
}

// ListUsers lists users, optionally filtered by ?search=.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	users, err := h.Admin.SearchUsers(ctx, c.QueryParam("search"))
	if err != nil {
		return fail(c, err, "Failed to get users")
	}
	return response.Success(c, publicUsers(users), "Users retrieved successfully")
}

func (h *AdminHandler) CreateUser(c echo.Context) error {
	var req adminUserReq
	if err := bind(c, &req); err != nil {
		return fail(c, err, "Failed to create user")
	}
	if req.Password == "" {
		return response.Validation(c, map[string]string{"password": "Password is required"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Admin.CreateUser(ctx, req.input())
	if err != nil {
		return fail(c, err, "Failed to create user")
	}
	return response.Created(c, u.Public(), "User created successfully")
}

func (h *AdminHandler) UpdateUser(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return response.NotFound(c, "User not found")
	}
	var req adminUserReq
	if err := bind(c, &req); err != nil {
		return fail(c, err, "Failed to update user")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Admin.UpdateUser(ctx, id, req.input())
	if err != nil {
		return fail(c, err, "Failed to update user")
	}
	return response.Success(c, u.Public(), "User updated successfully")
}

func (h *AdminHandler) DeleteUser(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return response.NotFound(c, "User not found")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Admin.DeleteUser(ctx, id); err != nil {
		return fail(c, err, "Failed to delete user")
	}
	return response.Success(c, nil, "User deleted successfully")
}

// ListEvents lists local events with their registration counts.
func (h *AdminHandler) ListEvents(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	events, err := h.Catalog.AdminList(ctx)
	if err != nil {
		return fail(c, err, "Failed to get events")
	}
	return response.Success(c, events, "Events retrieved successfully")
}

func (h *AdminHandler) DeleteEvent(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return response.NotFound(c, "Event not found")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Catalog.AdminDelete(ctx, id); err != nil {
		return fail(c, err, "Failed to delete event")
	}
	return response.Success(c, nil, "Event deleted successfully")
}

func (h *AdminHandler) ListTickets(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	tickets, err := h.Admin.LatestTickets(ctx)
	if err != nil {
		return fail(c, err, "Failed to get tickets")
	}
	return response.Success(c, tickets, "Tickets retrieved successfully")
}

// ListTestimonies lists testimonies of every status, or only ?status=.
func (h *AdminHandler) ListTestimonies(c echo.Context) error {
	status := model.TestimonyStatus(c.QueryParam("status"))
	switch status {
	case "", model.TestimonyPending, model.TestimonyApproved, model.TestimonyRejected:
	default:
		return response.BadRequest(c, "Invalid status filter")
	}
	page, limit := pageParams(c, adminTestimonyLimit)
	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.Testimonies.List(ctx, model.TestimonyFilter{
		Moderation: true,
		Status:     status,
		Page:       page,
		Limit:      limit,
	})
	if err != nil {
		return fail(c, err, "Failed to get testimonies")
	}
	p := res.Pagination
	return response.Paginated(c, res.Testimonies, p.Total, p.Page, p.PerPage, "Testimonies retrieved successfully")
}

func (h *AdminHandler) ApproveTestimony(c echo.Context) error {
	return h.moderate(c, model.TestimonyApproved, "Testimony approved")
}

func (h *AdminHandler) RejectTestimony(c echo.Context) error {
	return h.moderate(c, model.TestimonyRejected, "Testimony rejected")
}

func (h *AdminHandler) moderate(c echo.Context, status model.TestimonyStatus, msg string) error {
	id, ok := pathID(c, "id")
	if !ok {
		return response.NotFound(c, "Testimony not found")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Testimonies.Moderate(ctx, id, status); err != nil {
		return fail(c, err, "Failed to update testimony")
	}
	return response.Success(c, nil, msg)
}

func (h *AdminHandler) DeleteTestimony(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return response.NotFound(c, "Testimony not found")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Testimonies.Remove(ctx, id); err != nil {
		return fail(c, err, "Failed to delete testimony")
	}
	return response.Success(c, nil, "Testimony deleted successfully")
}

// ListCategories lists active and inactive categories.
func (h *AdminHandler) ListCategories(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	list, err := h.Categories.All(ctx)
	if err != nil {
		return fail(c, err, "Failed to get categories")
	}
	return response.Success(c, map[string]any{
		"categories": list,
		"presets":    service.CategoryPresets,
	}, "Categories retrieved successfully")
}

type categoryReq struct {
	Name        string `json:"name" validate:"required" msg:"required=Category name is required"`
	Description string `json:"description"`
	Preset      string `json:"preset"`
	Icon        string `json:"icon"`
	Color       string `json:"color" validate:"omitempty,hexcolor" msg:"hexcolor=Color must be a hex color"`
}

func (h *AdminHandler) CreateCategory(c echo.Context) error {
	var req categoryReq
	if err := bind(c, &req); err != nil {
		return fail(c, err, "Failed to create category")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	cat, err := h.Categories.Create(ctx, service.NewCategoryInput{
		Name:        req.Name,
		Description: req.Description,
		Preset:      req.Preset,
		Icon:        req.Icon,
		Color:       req.Color,
	})
	if err != nil {
		return fail(c, err, "Failed to create category")
	}
	return response.Created(c, cat, "Category created successfully")
}

func (h *AdminHandler) ToggleCategory(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return response.NotFound(c, "Category not found")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	cat, err := h.Categories.Toggle(ctx, id)
	if err != nil {
		return fail(c, err, "Failed to update category")
	}
	return response.Success(c, cat, "Category updated successfully")
}

func (h *AdminHandler) DeleteCategory(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return response.NotFound(c, "Category not found")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Categories.Delete(ctx, id); err != nil {
		return fail(c, err, "Failed to delete category")
	}
	return response.Success(c, nil, "Category deleted successfully")
}
