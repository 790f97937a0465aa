package middleware

// identity.go holds the context accessors shared by the middleware and the
// handlers.  Authenticate stores the resolved user under userKey; the admin
// session guard stores the admin under adminKey.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/crusade-registration/internal/model"
)

const (
	userKey      = "user"
	adminKey     = "admin"
	requestIDKey = "request_id"
)

// CurrentUser returns the authenticated user, or nil for anonymous
// requests.
func CurrentUser(c echo.Context) *model.User {
	u, _ := c.Get(userKey).(*model.User)
	return u
}

// SetUser binds u to the request.
func SetUser(c echo.Context, u *model.User) { c.Set(userKey, u) }

// CurrentAdmin returns the admin bound to the session, or nil.
func CurrentAdmin(c echo.Context) *model.Admin {
	a, _ := c.Get(adminKey).(*model.Admin)
	return a
}

// RequestID returns the id assigned by RequestLogger.
func RequestID(c echo.Context) string {
	id, _ := c.Get(requestIDKey).(string)
	return id
}

// currentUserID keys rate limit buckets.  Anonymous callers share "anon".
func currentUserID(c echo.Context) string {
	if u := CurrentUser(c); u != nil {
		return strconv.FormatUint(u.ID, 10)
	}
	return "anon"
}
