package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/crusade-registration/internal/middleware"
	"github.com/iliyamo/crusade-registration/internal/model"
	"github.com/iliyamo/crusade-registration/internal/response"
	"github.com/iliyamo/crusade-registration/internal/service"
	"github.com/iliyamo/crusade-registration/internal/utils"
)

// ticketQRSize is the edge length in pixels of ticket QR images.
const ticketQRSize = 320

// UserHandler serves /api/v1/user: the caller's profile, tickets and the
// door-staff tools.
type UserHandler struct {
	Accounts *service.Accounts
	Tickets  *service.Tickets
	CheckIn  *service.CheckIn
	Catalog  *service.Catalog
}

func NewUserHandler(accounts *service.Accounts, tickets *service.Tickets, checkIn *service.CheckIn, catalog *service.Catalog) *UserHandler {
	return &UserHandler{Accounts: accounts, Tickets: tickets, CheckIn: checkIn, Catalog: catalog}
}

type profileReq struct {
	FullName          *string `json:"full_name" validate:"omitempty,min=2"`
	Phone             *string `json:"phone" validate:"omitempty,phone"`
	Country           *string `json:"country"`
	Zone              *string `json:"zone"`
	Church            *string `json:"church"`
	Group             *string `json:"group"`
	KingsChatUsername *string `json:"kingschat_username"`
	Avatar            *string `json:"avatar"`
}

// Profile returns the caller's own record.
func (h *UserHandler) Profile(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Accounts.Profile(ctx, middleware.CurrentUser(c).ID)
	if err != nil {
		return fail(c, err, "Failed to get profile")
	}
	return response.Success(c, u.Public(), "Profile retrieved successfully")
}

// UpdateProfile changes the fields present in the body.
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	var req profileReq
	if err := bind(c, &req); err != nil {
		return fail(c, err, "Failed to update profile")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Accounts.UpdateProfile(ctx, middleware.CurrentUser(c).ID, model.ProfileUpdate{
		FullName:          req.FullName,
		Phone:             req.Phone,
		Country:           req.Country,
		Zone:              req.Zone,
		Church:            req.Church,
		Group:             req.Group,
		KingsChatUsername: req.KingsChatUsername,
		Avatar:            req.Avatar,
	})
	if err != nil {
		return fail(c, err, "Failed to update profile")
	}
	return response.Success(c, u.Public(), "Profile updated successfully")
}

// ListTickets lists the caller's tickets with their events.
func (h *UserHandler) ListTickets(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	list, err := h.Tickets.Mine(ctx, middleware.CurrentUser(c).ID)
	if err != nil {
		return fail(c, err, "Failed to get tickets")
	}
	return response.Success(c, list, "Tickets retrieved successfully")
}

// Ticket shows one ticket by id or qr code.  With verify=true any signed-in
// user sees the ticket and its holder; otherwise a signed-in user sees
// only their own.
func (h *UserHandler) Ticket(c echo.Context) error {
	ref := c.Param("id")
	viewer := middleware.CurrentUser(c)
	ctx, cancel := requestContext(c)
	defer cancel()

	var (
		view model.TicketView
		err  error
	)
	if truthy(c.QueryParam("verify")) {
		if viewer == nil {
			return response.Unauthorized(c, "No token provided")
		}
		view, err = h.Tickets.Verify(ctx, ref)
	} else {
		view, err = h.Tickets.Show(ctx, ref, viewer)
	}
	if err != nil {
		return fail(c, err, "Failed to get ticket")
	}
	return response.Success(c, view, "Ticket retrieved successfully")
}

// TicketQR renders the caller's ticket code as a PNG.
func (h *UserHandler) TicketQR(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	t, err := h.Tickets.Owned(ctx, c.Param("id"), middleware.CurrentUser(c).ID)
	if err != nil {
		return fail(c, err, "Failed to render ticket")
	}
	img, err := utils.QRCodePNG(t.QRCode, ticketQRSize)
	if err != nil {
		return fail(c, err, "Failed to render ticket")
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=86400")
	return c.Blob(http.StatusOK, "image/png", img)
}

// CheckInTicket marks a ticket used on behalf of the event's staff.
func (h *UserHandler) CheckInTicket(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.CheckIn.Run(ctx, *middleware.CurrentUser(c), c.Param("id"))
	if err != nil {
		return fail(c, err, "Failed to check in ticket")
	}
	return response.Success(c, res, "Check-in successful")
}

// Lookup identifies the holder of a scanned qr code.
func (h *UserHandler) Lookup(c echo.Context) error {
	code := c.QueryParam("qr_code")
	if code == "" {
		code = c.QueryParam("qr")
	}
	if code == "" {
		return response.BadRequest(c, "QR code is required")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Tickets.Lookup(ctx, code)
	if err != nil {
		return fail(c, err, "Failed to lookup user")
	}
	return response.Success(c, u, "User found")
}

// Stats returns the caller's participation counters.
func (h *UserHandler) Stats(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	st, err := h.Accounts.Stats(ctx, middleware.CurrentUser(c).ID)
	if err != nil {
		return fail(c, err, "Failed to get stats")
	}
	return response.Success(c, st, "Stats retrieved successfully")
}

// StaffEvents lists the events the caller is staff for.
func (h *UserHandler) StaffEvents(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	events, err := h.Catalog.StaffEvents(ctx, middleware.CurrentUser(c).ID)
	if err != nil {
		return fail(c, err, "Failed to get staff events")
	}
	return response.Success(c, events, "Staff events retrieved successfully")
}
