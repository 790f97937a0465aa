package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/crusade-registration/internal/middleware"
	"github.com/iliyamo/crusade-registration/internal/response"
	"github.com/iliyamo/crusade-registration/internal/service"
	"github.com/iliyamo/crusade-registration/internal/validation"
)

const defaultNotificationLimit = 20

// NotificationHandler serves /api/v1/notifications.
type NotificationHandler struct {
	Notifier *service.Notifier
}

func NewNotificationHandler(n *service.Notifier) *NotificationHandler {
	return &NotificationHandler{Notifier: n}
}

type markReadReq struct {
	NotificationID idField `json:"notification_id"`
}

// List returns the caller's notifications, broadcasts included.
func (h *NotificationHandler) List(c echo.Context) error {
	page, limit := pageParams(c, defaultNotificationLimit)
	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.Notifier.List(ctx, middleware.CurrentUser(c).ID, page, limit)
	if err != nil {
		return fail(c, err, "Failed to get notifications")
	}
	return response.Success(c, res, "Notifications retrieved successfully")
}

// MarkRead marks one notification read for the caller.
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	var req markReadReq
	if err := c.Bind(&req); err != nil || req.NotificationID.Value == nil {
		return response.Validation(c, validation.Errors{"notification_id": "Notification ID is required"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Notifier.MarkRead(ctx, middleware.CurrentUser(c).ID, *req.NotificationID.Value); err != nil {
		return fail(c, err, "Failed to mark notification as read")
	}
	return response.Success(c, nil, "Notification marked as read")
}

// MarkAllRead marks everything addressed to the caller as read.
func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Notifier.MarkAllRead(ctx, middleware.CurrentUser(c).ID); err != nil {
		return fail(c, err, "Failed to mark all notifications as read")
	}
	return response.Success(c, nil, "All notifications marked as read")
}
