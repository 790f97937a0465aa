// Package service implements the crusade workflows on top of the
// repositories: catalog merge, registration, check-in, staff, testimonies,
// notifications, accounts, donations and administration.
//
// Expected failures are reported with the sentinel errors below; handlers
// translate them to HTTP responses with errors.Is.  Anything else is an
// infrastructure failure.
package service

import "errors"

var (
	ErrEventNotFound     = errors.New("event not found")
	ErrAlreadyRegistered = errors.New("already registered for this event")
	ErrEventFull         = errors.New("event has reached its capacity")
	ErrNotEventCreator   = errors.New("caller did not create this event")

	ErrTicketNotFound    = errors.New("ticket not found")
	ErrTicketUsed        = errors.New("ticket has already been used")
	ErrTicketCancelled   = errors.New("ticket has been cancelled")
	ErrNotTicketHolder   = errors.New("ticket belongs to another user")
	ErrNotCreatorOrStaff = errors.New("caller is neither creator nor staff")

	ErrStaffTargetRequired = errors.New("either user_id or qr_code is required")
	ErrInvalidStaffRole    = errors.New("invalid staff role")
	ErrStaffQRNotFound     = errors.New("no ticket matches the qr code")
	ErrStaffSelf           = errors.New("cannot add yourself as staff")
	ErrAlreadyStaff        = errors.New("user is already staff for this event")
	ErrStaffNotFound       = errors.New("staff member not found")

	ErrTestimonyNotFound  = errors.New("testimony not found")
	ErrNotTestimonyAuthor = errors.New("caller is not the testimony author")
	ErrTestimonyApproved  = errors.New("approved testimonies cannot be edited")

	ErrNotificationNotFound  = errors.New("notification not found")
	ErrNotificationForbidden = errors.New("notification is addressed to another user")

	ErrCategoryNotFound = errors.New("category not found")
	ErrCategoryExists   = errors.New("a category with this slug already exists")

	ErrUserNotFound        = errors.New("user not found")
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrInvalidResetToken   = errors.New("invalid or expired reset token")
	ErrKingsChatAuthFailed = errors.New("kingschat authentication failed")

	ErrPaymentsUnavailable = errors.New("payments are not configured")
)
