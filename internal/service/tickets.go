package service

import (
	"context"
	"errors"

	"github.com/iliyamo/crusade-registration/internal/model"
	"github.com/iliyamo/crusade-registration/internal/repository"
)

// Tickets answers ticket queries for holders and door staff.
type Tickets struct {
	Tickets TicketStore
	Users   UserStore
	Catalog *Catalog
}

func (s *Tickets) byRef(ctx context.Context, ref string) (model.Ticket, error) {
	t, err := s.Tickets.GetByRef(ctx, ref)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Ticket{}, ErrTicketNotFound
	}
	return t, err
}

// eventFor resolves the ticket's event, or nil when it no longer exists.
func (s *Tickets) eventFor(ctx context.Context, id uint64) (*model.Event, error) {
	ev, err := s.Catalog.Resolve(ctx, id)
	if errors.Is(err, ErrEventNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// Mine lists userID's tickets, newest first, each with its event.
func (s *Tickets) Mine(ctx context.Context, userID uint64) ([]model.TicketView, error) {
	list, err := s.Tickets.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]model.TicketView, 0, len(list))
	for _, t := range list {
		ev, err := s.eventFor(ctx, t.EventID)
		if err != nil {
			return nil, err
		}
		out = append(out, model.TicketView{Ticket: t, Event: ev})
	}
	return out, nil
}

// Show returns one ticket.  An authenticated viewer may only see their
// own; viewer is nil for anonymous callers.
func (s *Tickets) Show(ctx context.Context, ref string, viewer *model.User) (model.TicketView, error) {
	t, err := s.byRef(ctx, ref)
	if err != nil {
		return model.TicketView{}, err
	}
	if viewer != nil && t.UserID != viewer.ID {
		return model.TicketView{}, ErrNotTicketHolder
	}
	ev, err := s.eventFor(ctx, t.EventID)
	if err != nil {
		return model.TicketView{}, err
	}
	return model.TicketView{Ticket: t, Event: ev}, nil
}

// Verify returns any ticket with its holder, for staff scanning a code.
func (s *Tickets) Verify(ctx context.Context, ref string) (model.TicketView, error) {
	t, err := s.byRef(ctx, ref)
	if err != nil {
		return model.TicketView{}, err
	}
	ev, err := s.eventFor(ctx, t.EventID)
	if err != nil {
		return model.TicketView{}, err
	}
	view := model.TicketView{Ticket: t, Event: ev}
	holder, err := s.Users.GetByID(ctx, t.UserID)
	switch {
	case err == nil:
		sum := holder.Summary()
		view.Holder, view.HolderName = &sum, holder.FullName
	case !errors.Is(err, repository.ErrNotFound):
		return model.TicketView{}, err
	}
	return view, nil
}

// Owned returns ref only when it belongs to userID.
func (s *Tickets) Owned(ctx context.Context, ref string, userID uint64) (model.Ticket, error) {
	t, err := s.byRef(ctx, ref)
	if err != nil {
		return model.Ticket{}, err
	}
	if t.UserID != userID {
		return model.Ticket{}, ErrNotTicketHolder
	}
	return t, nil
}

// Lookup finds the holder of a qr code.
func (s *Tickets) Lookup(ctx context.Context, code string) (model.UserSummary, error) {
	t, err := s.Tickets.GetByQRCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return model.UserSummary{}, ErrStaffQRNotFound
	}
	if err != nil {
		return model.UserSummary{}, err
	}
	u, err := s.Users.GetByID(ctx, t.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.UserSummary{}, ErrUserNotFound
	}
	if err != nil {
		return model.UserSummary{}, err
	}
	return u.Summary(), nil
}
