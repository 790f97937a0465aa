package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/crusade-registration/internal/response"
	"github.com/iliyamo/crusade-registration/internal/service"
	"github.com/iliyamo/crusade-registration/internal/validation"
)

// requestTimeout bounds the storage work of a single request.
const requestTimeout = 5 * time.Second

// maxPageSize caps the limit query parameter on every listing.
const maxPageSize = 100

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// failure is how an expected service error is presented to the client.
type failure struct {
	status  int
	message string
}

var failures = map[error]failure{
	service.ErrEventNotFound:     {http.StatusNotFound, "Event not found"},
	service.ErrAlreadyRegistered: {http.StatusBadRequest, "You are already registered for this event"},
	service.ErrEventFull:         {http.StatusBadRequest, "This event has reached its capacity"},
	service.ErrNotEventCreator:   {http.StatusForbidden, "Only the event creator can manage this event"},

	service.ErrTicketNotFound:    {http.StatusNotFound, "Ticket not found"},
	service.ErrTicketUsed:        {http.StatusBadRequest, "Ticket has already been used"},
	service.ErrTicketCancelled:   {http.StatusBadRequest, "Ticket has been cancelled"},
	service.ErrNotTicketHolder:   {http.StatusForbidden, "You can only view your own tickets"},
	service.ErrNotCreatorOrStaff: {http.StatusForbidden, "Only event creator or staff can check in tickets"},

	service.ErrStaffTargetRequired: {http.StatusBadRequest, "Either user_id or qr_code is required"},
	service.ErrInvalidStaffRole:    {http.StatusBadRequest, "Invalid staff role"},
	service.ErrStaffQRNotFound:     {http.StatusNotFound, "No user found with this QR code"},
	service.ErrStaffSelf:           {http.StatusBadRequest, "You cannot add yourself as staff"},
	service.ErrAlreadyStaff:        {http.StatusBadRequest, "User is already a staff member for this event"},
	service.ErrStaffNotFound:       {http.StatusNotFound, "Staff member not found"},

	service.ErrTestimonyNotFound:  {http.StatusNotFound, "Testimony not found"},
	service.ErrNotTestimonyAuthor: {http.StatusForbidden, "You can only edit your own testimonies"},
	service.ErrTestimonyApproved:  {http.StatusBadRequest, "Cannot edit approved testimonies"},

	service.ErrNotificationNotFound:  {http.StatusNotFound, "Notification not found"},
	service.ErrNotificationForbidden: {http.StatusForbidden, "You cannot mark this notification as read"},

	service.ErrCategoryNotFound: {http.StatusNotFound, "Category not found"},
	service.ErrCategoryExists:   {http.StatusBadRequest, "A category with this name already exists"},

	service.ErrUserNotFound:        {http.StatusNotFound, "User not found"},
	service.ErrEmailTaken:          {http.StatusBadRequest, "Email already registered"},
	service.ErrInvalidCredentials:  {http.StatusUnauthorized, "Invalid email or password"},
	service.ErrInvalidResetToken:   {http.StatusBadRequest, "Invalid or expired reset token"},
	service.ErrKingsChatAuthFailed: {http.StatusUnauthorized, "Failed to authenticate with KingsChat"},
	service.ErrInvalidAdminLogin:   {http.StatusUnauthorized, "Invalid username or password"},

	service.ErrPaymentsUnavailable: {http.StatusServiceUnavailable, "Donations are currently unavailable"},
}

// messages overrides the default text of a failure for one endpoint.
type messages map[error]string

// fail renders err.  Expected service errors and validation errors map to
// their client responses; anything else is logged and reported as a 500
// carrying only fallback.
func fail(c echo.Context, err error, fallback string, overrides ...messages) error {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		return response.Validation(c, verrs)
	}
	for sentinel, f := range failures {
		if !errors.Is(err, sentinel) {
			continue
		}
		msg := f.message
		for _, o := range overrides {
			if m, ok := o[sentinel]; ok {
				msg = m
			}
		}
		return response.Error(c, f.status, msg)
	}
	zerolog.Ctx(c.Request().Context()).Error().Err(err).
		Str("route", c.Path()).
		Msg(strings.ToLower(fallback))
	return response.ServerError(c, fallback)
}

// bind decodes the body into dst, trims its strings and validates it.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return validation.Errors{"_": "Invalid request body"}
	}
	validation.TrimStrings(dst)
	if errs := validation.Struct(dst); errs != nil {
		return errs
	}
	return nil
}

// pathID parses a numeric path parameter.  ok is false for anything that
// is not a positive integer.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// queryID parses an optional numeric query parameter.
func queryID(c echo.Context, name string) *uint64 {
	id, err := strconv.ParseUint(c.QueryParam(name), 10, 64)
	if err != nil || id == 0 {
		return nil
	}
	return &id
}

// pageParams reads page and limit, applying def when limit is absent.
func pageParams(c echo.Context, def int) (page, limit int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 {
		limit = def
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

// truthy accepts the spellings mobile clients send for boolean flags.
func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
