package model

import (
	"encoding/json"
	"time"
)

// NotificationType classifies a notification for client-side rendering.
type NotificationType string

const (
	NotifySystem       NotificationType = "system"
	NotifyEvent        NotificationType = "event"
	NotifyRegistration NotificationType = "registration"
	NotifyTestimony    NotificationType = "testimony"
	NotifyTicket       NotificationType = "ticket"
)

// Recipient addresses a notification to one user or to everyone.  The
// zero value is Broadcast.
type Recipient struct {
	userID uint64
	direct bool
}

// ToUser addresses a single user.
func ToUser(id uint64) Recipient { return Recipient{userID: id, direct: true} }

// Broadcast addresses every user.
func Broadcast() Recipient { return Recipient{} }

// UserID returns the addressed user and true, or 0 and false for broadcasts.
func (r Recipient) UserID() (uint64, bool) { return r.userID, r.direct }

// IsBroadcast reports whether the notification targets everyone.
func (r Recipient) IsBroadcast() bool { return !r.direct }

// Reaches reports whether userID is among the recipients.
func (r Recipient) Reaches(userID uint64) bool { return !r.direct || r.userID == userID }

// MarshalJSON writes the user id, or "all" for broadcasts.
func (r Recipient) MarshalJSON() ([]byte, error) {
	if !r.direct {
		return []byte(`"all"`), nil
	}
	return json.Marshal(r.userID)
}

// Notification is a pull-only message.  Read state is per reader and lives
// in notification_reads.
type Notification struct {
	ID        uint64           `json:"id"`
	Recipient Recipient        `json:"user_id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Data      map[string]any   `json:"data,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	Read      bool             `json:"read"`
}

// NotificationPage is the listing returned to a reader.
type NotificationPage struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   int            `json:"unread_count"`
	Pagination    Pagination     `json:"pagination"`
}

// Pagination describes a page of a larger result set.
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes total_pages as ceil(total/perPage).
func NewPagination(total, page, perPage int) Pagination {
	pages := 0
	if perPage > 0 {
		pages = (total + perPage - 1) / perPage
	}
	return Pagination{Total: total, Page: page, PerPage: perPage, TotalPages: pages}
}
