package model

import (
	"encoding/json"
	"strings"
	"time"
)

// DateLayout is the calendar-date format used for event dates, ticket
// registration dates and the "today" boundary of the catalog.
const DateLayout = "2006-01-02"

// FirstLocalEventID is the lowest id handed to locally created events.  Ids
// below it are reserved for events mirrored from the external feed.
const FirstLocalEventID uint64 = 1000

// DefaultCategory is applied to events created without one and to every
// event from the external feed.
const DefaultCategory = "Crusade"

// Today formats t as a calendar date in UTC.
func Today(t time.Time) string { return t.UTC().Format(DateLayout) }

// Owner says who owns an event: a local user, or the external feed.  The
// zero value is External.
type Owner struct {
	userID uint64
	owned  bool
}

// OwnedBy returns an Owner for a locally created event.
func OwnedBy(userID uint64) Owner { return Owner{userID: userID, owned: true} }

// ExternalOwner returns the Owner of feed-sourced events.
func ExternalOwner() Owner { return Owner{} }

// UserID returns the owning user and true, or 0 and false for external events.
func (o Owner) UserID() (uint64, bool) { return o.userID, o.owned }

// IsExternal reports whether no local user owns the event.
func (o Owner) IsExternal() bool { return !o.owned }

// Is reports whether userID owns the event.
func (o Owner) Is(userID uint64) bool { return o.owned && o.userID == userID }

// MarshalJSON writes the owning user id, or "external".
func (o Owner) MarshalJSON() ([]byte, error) {
	if !o.owned {
		return []byte(`"external"`), nil
	}
	return json.Marshal(o.userID)
}

// UnmarshalJSON accepts what MarshalJSON writes.  null is treated as
// external.
func (o *Owner) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == `"external"` || s == "null" {
		*o = ExternalOwner()
		return nil
	}
	var id uint64
	if err := json.Unmarshal(b, &id); err != nil {
		return err
	}
	*o = OwnedBy(id)
	return nil
}

// Event is a crusade, either stored in the `events` table or decoded from
// the external feed (External=true).
type Event struct {
	ID          uint64     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Date        string     `json:"date"`
	Time        string     `json:"time,omitempty"`
	Venue       string     `json:"venue"`
	Address     string     `json:"address,omitempty"`
	Country     string     `json:"country,omitempty"`
	City        string     `json:"city,omitempty"`
	Category    string     `json:"category"`
	Image       string     `json:"image,omitempty"`
	Capacity    *int       `json:"capacity"`
	Featured    bool       `json:"featured"`
	Owner       Owner      `json:"created_by"`
	External    bool       `json:"external"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// IsUpcoming reports whether the event happens on or after today.
func (e Event) IsUpcoming(today string) bool { return e.Date >= today }

// Capped reports whether registrations are limited, and the limit.
// External events are never capped.
func (e Event) Capped() (int, bool) {
	if e.External || e.Capacity == nil || *e.Capacity <= 0 {
		return 0, false
	}
	return *e.Capacity, true
}

// MatchesSearch performs the case-insensitive substring test applied to
// title, venue and address.
func (e Event) MatchesSearch(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	for _, f := range []string{e.Title, e.Venue, e.Address} {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

// EventFilter describes a catalog query.
type EventFilter struct {
	Search   string
	Category string
	Upcoming bool
	Featured bool
	Today    string // calendar date used for the upcoming predicate
	Page     int
	Limit    int
}

// Offset returns the row offset for the filter's page.
func (f EventFilter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

// EventView decorates an event with the per-request counters different
// endpoints attach.  Nil counters are omitted from the JSON.
type EventView struct {
	Event
	RegistrationCount *int      `json:"registration_count,omitempty"`
	UserRegistered    *bool     `json:"user_registered,omitempty"`
	StaffCount        *int      `json:"staff_count,omitempty"`
	CheckedInCount    *int      `json:"checked_in_count,omitempty"`
	StaffRole         StaffRole `json:"staff_role,omitempty"`
}

// NewEventInput is what a user supplies when creating an event.
type NewEventInput struct {
	Title       string
	Description string
	Date        string
	Time        string
	Venue       string
	Address     string
	Country     string
	City        string
	Category    string
	Image       string
	Capacity    *int
}

// StaffRole is the role granted by an EventStaff record.
type StaffRole string

const (
	StaffChecker     StaffRole = "checker"
	StaffCoordinator StaffRole = "coordinator"
	StaffUsher       StaffRole = "usher"
	StaffOther       StaffRole = "other"
)

// Valid reports whether r is one of the known staff roles.
func (r StaffRole) Valid() bool {
	switch r {
	case StaffChecker, StaffCoordinator, StaffUsher, StaffOther:
		return true
	}
	return false
}

// EventStaff grants a user a role over one event.
type EventStaff struct {
	ID        uint64       `json:"id"`
	EventID   uint64       `json:"event_id"`
	UserID    uint64       `json:"user_id"`
	Role      StaffRole    `json:"role"`
	AddedBy   uint64       `json:"added_by"`
	CreatedAt time.Time    `json:"created_at"`
	User      *UserSummary `json:"user"`
}
