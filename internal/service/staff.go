package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/crusade-registration/internal/model"
	"github.com/iliyamo/crusade-registration/internal/repository"
)

// DefaultAttendeeLimit is the page size of attendee listings.
const DefaultAttendeeLimit = 50

// Staff manages event staff grants and the views reserved to them.
type Staff struct {
	Events   EventStore
	Staff    StaffStore
	Tickets  TicketStore
	Users    UserStore
	Notifier *Notifier
}

// StaffTarget names the user being granted a role, either directly or
// through one of their ticket codes.
type StaffTarget struct {
	UserID uint64
	QRCode string
	Role   model.StaffRole
}

// AttendeePage is one page of an event's tickets with their holders.
type AttendeePage struct {
	Attendees  []model.TicketView
	Pagination model.Pagination
}

func (s *Staff) localEvent(ctx context.Context, id uint64) (model.Event, error) {
	ev, err := s.Events.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Event{}, ErrEventNotFound
	}
	return ev, err
}

// ownedEvent loads eventID and requires actorID to be its creator.
func (s *Staff) ownedEvent(ctx context.Context, eventID, actorID uint64) (model.Event, error) {
	ev, err := s.localEvent(ctx, eventID)
	if err != nil {
		return model.Event{}, err
	}
	if !ev.Owner.Is(actorID) {
		return model.Event{}, ErrNotEventCreator
	}
	return ev, nil
}

// managedEvent loads eventID and requires actorID to be creator or staff.
func (s *Staff) managedEvent(ctx context.Context, eventID, actorID uint64) (model.Event, error) {
	ev, err := s.localEvent(ctx, eventID)
	if err != nil {
		return model.Event{}, err
	}
	ok, err := canManage(ctx, s.Staff, ev, actorID)
	if err != nil {
		return model.Event{}, err
	}
	if !ok {
		return model.Event{}, ErrNotCreatorOrStaff
	}
	return ev, nil
}

// List returns the staff of eventID.
func (s *Staff) List(ctx context.Context, actorID, eventID uint64) ([]model.EventStaff, error) {
	if _, err := s.managedEvent(ctx, eventID, actorID); err != nil {
		return nil, err
	}
	return s.Staff.ListByEvent(ctx, eventID)
}

// Add grants target a role over eventID.  Only the creator may add staff.
func (s *Staff) Add(ctx context.Context, actorID, eventID uint64, target StaffTarget) (model.EventStaff, error) {
	ev, err := s.ownedEvent(ctx, eventID, actorID)
	if err != nil {
		return model.EventStaff{}, err
	}

	role := target.Role
	if role == "" {
		role = model.StaffChecker
	}
	if !role.Valid() {
		return model.EventStaff{}, ErrInvalidStaffRole
	}

	userID := target.UserID
	if userID == 0 {
		if target.QRCode == "" {
			return model.EventStaff{}, ErrStaffTargetRequired
		}
		t, err := s.Tickets.GetByQRCode(ctx, target.QRCode)
		if errors.Is(err, repository.ErrNotFound) {
			return model.EventStaff{}, ErrStaffQRNotFound
		}
		if err != nil {
			return model.EventStaff{}, err
		}
		userID = t.UserID
	}

	member, err := s.Users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.EventStaff{}, ErrUserNotFound
	}
	if err != nil {
		return model.EventStaff{}, err
	}
	if userID == actorID {
		return model.EventStaff{}, ErrStaffSelf
	}

	grant, err := s.Staff.Add(ctx, model.EventStaff{
		EventID: ev.ID,
		UserID:  userID,
		Role:    role,
		AddedBy: actorID,
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return model.EventStaff{}, ErrAlreadyStaff
	}
	if err != nil {
		return model.EventStaff{}, err
	}
	summary := member.Summary()
	grant.User = &summary

	if s.Notifier != nil {
		s.Notifier.Notify(ctx, model.ToUser(userID), model.NotifyEvent,
			"You have been added as staff!",
			fmt.Sprintf("You have been added as %s for %s.", role, ev.Title),
			map[string]any{"event_id": ev.ID})
	}
	return grant, nil
}

// Remove revokes a staff grant.  Only the creator may remove staff.
func (s *Staff) Remove(ctx context.Context, actorID, eventID, staffID uint64) error {
	if _, err := s.ownedEvent(ctx, eventID, actorID); err != nil {
		return err
	}
	err := s.Staff.Remove(ctx, eventID, staffID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrStaffNotFound
	}
	return err
}

// Attendees pages through the tickets of eventID, newest first.
func (s *Staff) Attendees(ctx context.Context, actorID, eventID uint64, page, limit int) (AttendeePage, error) {
	if _, err := s.managedEvent(ctx, eventID, actorID); err != nil {
		return AttendeePage{}, err
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultAttendeeLimit
	}
	rows, total, err := s.Tickets.ListAttendees(ctx, eventID, limit, (page-1)*limit)
	if err != nil {
		return AttendeePage{}, err
	}
	out := make([]model.TicketView, len(rows))
	for i, r := range rows {
		out[i].Ticket = r.Ticket
		if r.User.ID != 0 {
			u := r.User
			out[i].User = &u
		}
	}
	return AttendeePage{Attendees: out, Pagination: model.NewPagination(total, page, limit)}, nil
}
