package model

import "time"

// TicketStatus is the lifecycle state of a ticket.  The only transitions
// are active -> used (check-in) and active -> cancelled; used and
// cancelled are terminal.
type TicketStatus string

const (
	TicketActive    TicketStatus = "active"
	TicketUsed      TicketStatus = "used"
	TicketCancelled TicketStatus = "cancelled"
)

// Terminal reports whether no transition leaves s.
func (s TicketStatus) Terminal() bool { return s == TicketUsed || s == TicketCancelled }

// CanTransition reports whether a ticket in state s may move to next.
func (s TicketStatus) CanTransition(next TicketStatus) bool {
	return s == TicketActive && (next == TicketUsed || next == TicketCancelled)
}

// Ticket mirrors a row in `tickets`: one user's claim to attend one event.
type Ticket struct {
	ID               uint64       `json:"id"`
	UserID           uint64       `json:"user_id"`
	EventID          uint64       `json:"event_id"`
	QRCode           string       `json:"qr_code"`
	RegistrationDate string       `json:"registration_date"`
	Status           TicketStatus `json:"status"`
	CheckedInAt      *time.Time   `json:"checked_in_at,omitempty"`
	CheckedInBy      *uint64      `json:"checked_in_by,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// TicketView is a ticket plus whatever context the endpoint attaches.
type TicketView struct {
	Ticket
	Event      *Event       `json:"event"`
	HolderName string       `json:"holder_name,omitempty"`
	Holder     *UserSummary `json:"holder,omitempty"`
	User       *UserSummary `json:"user,omitempty"`
}

// CheckInResult is returned to staff after a successful check-in.
type CheckInResult struct {
	Ticket
	HolderName string `json:"holder_name"`
}

// UserStats aggregates a user's participation counters.
type UserStats struct {
	EventsAttended      int `json:"events_attended"`
	EventsRegistered    int `json:"events_registered"`
	TotalRegistrations  int `json:"total_registrations"`
	Testimonies         int `json:"testimonies"`
	ApprovedTestimonies int `json:"approved_testimonies"`
}
