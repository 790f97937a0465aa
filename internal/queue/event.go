// Package queue defines the ticket.registered message and the broker
// publisher and consumer that exchange it.
package queue

// TicketRegisteredQueue is the durable queue ticket events are routed to.
const TicketRegisteredQueue = "ticket.registered"

// TicketRegisteredEvent is published after a ticket has been stored.  It
// carries everything the confirmation mail needs so the consumer never
// queries the database.
type TicketRegisteredEvent struct {
	TicketID     uint64 `json:"ticket_id"`
	UserID       uint64 `json:"user_id"`
	UserEmail    string `json:"user_email"`
	UserName     string `json:"user_name"`
	EventID      uint64 `json:"event_id"`
	EventTitle   string `json:"event_title"`
	External     bool   `json:"external"`
	QRCode       string `json:"qr_code"`
	RegisteredAt string `json:"registered_at"`
}
