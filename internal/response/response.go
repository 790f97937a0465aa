// Package response renders the JSON envelope every API endpoint answers
// with: {success, message, data?, errors?} plus pagination for listings.
package response

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/crusade-registration/internal/model"
)

// NewTokenHeader carries a silently refreshed token back to the client.
const NewTokenHeader = "x-new-token"

// Envelope is the canonical response body.
type Envelope struct {
	Success    bool              `json:"success"`
	Message    string            `json:"message"`
	Data       any               `json:"data,omitempty"`
	Errors     map[string]string `json:"errors,omitempty"`
	Pagination *model.Pagination `json:"pagination,omitempty"`
}

// Success writes 200 with data.
func Success(c echo.Context, data any, message string) error {
	return c.JSON(http.StatusOK, Envelope{Success: true, Message: message, Data: data})
}

// Created writes 201 with data.
func Created(c echo.Context, data any, message string) error {
	return c.JSON(http.StatusCreated, Envelope{Success: true, Message: message, Data: data})
}

// Paginated writes 200 with a page of items and its pagination block.
func Paginated(c echo.Context, items any, total, page, perPage int, message string) error {
	p := model.NewPagination(total, page, perPage)
	return c.JSON(http.StatusOK, Envelope{Success: true, Message: message, Data: items, Pagination: &p})
}

// Error writes a failure envelope with the given status.
func Error(c echo.Context, status int, message string) error {
	return c.JSON(status, Envelope{Success: false, Message: message})
}

// BadRequest is a domain conflict or malformed request (400).
func BadRequest(c echo.Context, message string) error {
	return Error(c, http.StatusBadRequest, message)
}

// Unauthorized is a missing or invalid credential (401).
func Unauthorized(c echo.Context, message string) error {
	if message == "" {
		message = "Unauthorized"
	}
	return Error(c, http.StatusUnauthorized, message)
}

// Forbidden is an authenticated caller lacking permission (403).
func Forbidden(c echo.Context, message string) error {
	if message == "" {
		message = "Forbidden"
	}
	return Error(c, http.StatusForbidden, message)
}

// NotFound writes 404.
func NotFound(c echo.Context, message string) error {
	if message == "" {
		message = "Not found"
	}
	return Error(c, http.StatusNotFound, message)
}

// Validation writes 422 with per-field messages.
func Validation(c echo.Context, errs map[string]string) error {
	return c.JSON(http.StatusUnprocessableEntity, Envelope{Success: false, Message: "Validation failed", Errors: errs})
}

// ServerError writes 500.  The message must not carry internal detail.
func ServerError(c echo.Context, message string) error {
	if message == "" {
		message = "Internal server error"
	}
	return Error(c, http.StatusInternalServerError, message)
}

// WithNewToken sets the refresh header when token is non-empty.  It must
// run before the body is written.
func WithNewToken(c echo.Context, token string) {
	if token != "" {
		c.Response().Header().Set(NewTokenHeader, token)
	}
}

// HTTPErrorHandler renders framework errors (unknown routes, bad methods,
// bind failures) in the same envelope as handler responses.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	message := "Internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		} else {
			message = http.StatusText(status)
		}
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = Error(c, status, message)
}
