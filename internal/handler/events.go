package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/crusade-registration/internal/middleware"
	"github.com/iliyamo/crusade-registration/internal/model"
	"github.com/iliyamo/crusade-registration/internal/response"
	"github.com/iliyamo/crusade-registration/internal/service"
)

// EventHandler serves /api/v1/events: the merged catalog, registration
// and the creator's staff tools.
type EventHandler struct {
	Catalog   *service.Catalog
	Registrar *service.Registrar
	Staff     *service.Staff
}

func NewEventHandler(catalog *service.Catalog, registrar *service.Registrar, staff *service.Staff) *EventHandler {
	return &EventHandler{Catalog: catalog, Registrar: registrar, Staff: staff}
}

type createEventReq struct {
	Title       string `json:"title" validate:"required" msg:"required=Title is required"`
	Description string `json:"description" validate:"required" msg:"required=Description is required"`
	Date        string `json:"date" validate:"required,datetime=2006-01-02" msg:"required=Date is required"`
	Time        string `json:"time"`
	Venue       string `json:"venue" validate:"required" msg:"required=Venue is required"`
	Address     string `json:"address"`
	Country     string `json:"country"`
	City        string `json:"city"`
	Category    string `json:"category"`
	Image       string `json:"image"`
	Capacity    *int   `json:"capacity" validate:"omitempty,gte=1"`
}

type addStaffReq struct {
	UserID uint64 `json:"user_id"`
	QRCode string `json:"qr_code"`
	Role   string `json:"role" validate:"omitempty,oneof=checker coordinator usher other" msg:"oneof=Invalid staff role"`
}

var (
	deleteEventMessages = messages{service.ErrNotEventCreator: "Only the event creator can delete this event"}
	attendeesMessages   = messages{service.ErrNotCreatorOrStaff: "Only event creator or staff can view attendees"}
	staffListMessages   = messages{service.ErrNotCreatorOrStaff: "Only event creator or staff can view staff list"}
	addStaffMessages    = messages{service.ErrNotEventCreator: "Only the event creator can add staff"}
	removeStaffMessages = messages{service.ErrNotEventCreator: "Only the event creator can remove staff"}
)

// List serves the merged catalog.  Pagination totals count local events
// only.
func (h *EventHandler) List(c echo.Context) error {
	page, limit := pageParams(c, service.DefaultEventLimit)
	q := service.EventQuery{
		Search:   c.QueryParam("search"),
		Category: c.QueryParam("category"),
		Upcoming: truthy(c.QueryParam("upcoming")),
		Featured: truthy(c.QueryParam("featured")),
		Page:     page,
		Limit:    limit,
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.Catalog.List(ctx, q, middleware.CurrentUser(c))
	if err != nil {
		return fail(c, err, "Failed to get events")
	}
	return response.Paginated(c, res.Events, res.Total, res.Page, res.Limit, "Events retrieved successfully")
}

// Get returns one event, local or external.
func (h *EventHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return response.NotFound(c, "Event not found")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	ev, err := h.Catalog.Get(ctx, id, middleware.CurrentUser(c))
	if err != nil {
		return fail(c, err, "Failed to get event")
	}
	return response.Success(c, ev, "Event retrieved successfully")
}

// Create stores a new local event owned by the caller.
func (h *EventHandler) Create(c echo.Context) error {
	var req createEventReq
	if err := bind(c, &req); err != nil {
		return fail(c, err, "Failed to create event")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	ev, err := h.Catalog.Create(ctx, *middleware.CurrentUser(c), model.NewEventInput{
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
		Time:        req.Time,
		Venue:       req.Venue,
		Address:     req.Address,
		Country:     req.Country,
		City:        req.City,
		Category:    req.Category,
		Image:       req.Image,
		Capacity:    req.Capacity,
	})
	if err != nil {
		return fail(c, err, "Failed to create event")
	}
	return response.Created(c, ev, "Event created successfully")
}

// Delete removes an event with its tickets and staff.
func (h *EventHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return response.NotFound(c, "Event not found")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Catalog.Delete(ctx, middleware.CurrentUser(c).ID, id); err != nil {
		return fail(c, err, "Failed to delete event", deleteEventMessages)
	}
	return response.Success(c, nil, "Event deleted successfully")
}

// Register issues the caller a ticket for the event.
func (h *EventHandler) Register(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return response.NotFound(c, "Event not found")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	reg, err := h.Registrar.Register(ctx, *middleware.CurrentUser(c), id)
	if err != nil {
		return fail(c, err, "Failed to register for event")
	}
	return response.Created(c, model.TicketView{Ticket: reg.Ticket, Event: &reg.Event}, "Registration successful")
}

// MyCrusades lists the events the caller created.
func (h *EventHandler) MyCrusades(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	events, err := h.Catalog.MyCrusades(ctx, middleware.CurrentUser(c).ID)
	if err != nil {
		return fail(c, err, "Failed to get my crusades")
	}
	return response.Success(c, events, "My crusades retrieved successfully")
}

// Attendees pages through an event's tickets for its creator or staff.
func (h *EventHandler) Attendees(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return response.NotFound(c, "Event not found")
	}
	page, limit := pageParams(c, service.DefaultAttendeeLimit)
	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.Staff.Attendees(ctx, middleware.CurrentUser(c).ID, id, page, limit)
	if err != nil {
		return fail(c, err, "Failed to get attendees", attendeesMessages)
	}
	p := res.Pagination
	return response.Paginated(c, res.Attendees, p.Total, p.Page, p.PerPage, "Attendees retrieved successfully")
}

// StaffList returns the event's staff grants.
func (h *EventHandler) StaffList(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return response.NotFound(c, "Event not found")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	staff, err := h.Staff.List(ctx, middleware.CurrentUser(c).ID, id)
	if err != nil {
		return fail(c, err, "Failed to get staff", staffListMessages)
	}
	return response.Success(c, staff, "Staff retrieved successfully")
}

// AddStaff grants a user a role over the event.
func (h *EventHandler) AddStaff(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return response.NotFound(c, "Event not found")
	}
	var req addStaffReq
	if err := bind(c, &req); err != nil {
		return fail(c, err, "Failed to add staff")
	}
	if req.UserID == 0 && req.QRCode == "" {
		return fail(c, service.ErrStaffTargetRequired, "Failed to add staff")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	grant, err := h.Staff.Add(ctx, middleware.CurrentUser(c).ID, id, service.StaffTarget{
		UserID: req.UserID,
		QRCode: req.QRCode,
		Role:   model.StaffRole(req.Role),
	})
	if err != nil {
		return fail(c, err, "Failed to add staff", addStaffMessages)
	}
	return response.Created(c, grant, "Staff added successfully")
}

// RemoveStaff revokes a staff grant.
func (h *EventHandler) RemoveStaff(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return response.NotFound(c, "Event not found")
	}
	staffID, ok := pathID(c, "staffId")
	if !ok {
		return response.NotFound(c, "Staff member not found")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Staff.Remove(ctx, middleware.CurrentUser(c).ID, id, staffID); err != nil {
		return fail(c, err, "Failed to remove staff", removeStaffMessages)
	}
	return response.Success(c, nil, "Staff removed successfully")
}
