package service

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/crusade-registration/internal/metrics"
	"github.com/iliyamo/crusade-registration/internal/model"
	"github.com/iliyamo/crusade-registration/internal/repository"
)

// CheckIn admits ticket holders at the door.
type CheckIn struct {
	Tickets TicketStore
	Events  EventStore
	Staff   StaffStore
	Users   UserStore
	Now     func() time.Time
}

// Run marks the ticket identified by ref (numeric id or qr code) as used.
// actor must have created the event or hold a staff grant for it.
func (c *CheckIn) Run(ctx context.Context, actor model.User, ref string) (model.CheckInResult, error) {
	res, err := c.run(ctx, actor, ref)
	metrics.CheckInsTotal.WithLabelValues(checkInOutcome(err)).Inc()
	return res, err
}

func (c *CheckIn) run(ctx context.Context, actor model.User, ref string) (model.CheckInResult, error) {
	t, err := c.Tickets.GetByRef(ctx, ref)
	if errors.Is(err, repository.ErrNotFound) {
		return model.CheckInResult{}, ErrTicketNotFound
	}
	if err != nil {
		return model.CheckInResult{}, err
	}

	ev, err := c.Events.Get(ctx, t.EventID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.CheckInResult{}, ErrEventNotFound
	}
	if err != nil {
		return model.CheckInResult{}, err
	}

	ok, err := canManage(ctx, c.Staff, ev, actor.ID)
	if err != nil {
		return model.CheckInResult{}, err
	}
	if !ok {
		return model.CheckInResult{}, ErrNotCreatorOrStaff
	}

	switch t.Status {
	case model.TicketUsed:
		return model.CheckInResult{}, ErrTicketUsed
	case model.TicketCancelled:
		return model.CheckInResult{}, ErrTicketCancelled
	}

	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	at := now().UTC()
	err = c.Tickets.MarkUsed(ctx, t.ID, actor.ID, at)
	if errors.Is(err, repository.ErrConflict) {
		// Someone else checked the ticket in between the read and the update.
		return model.CheckInResult{}, ErrTicketUsed
	}
	if err != nil {
		return model.CheckInResult{}, err
	}
	t.Status = model.TicketUsed
	t.CheckedInAt = &at
	t.CheckedInBy = &actor.ID

	res := model.CheckInResult{Ticket: t}
	if holder, err := c.Users.GetByID(ctx, t.UserID); err == nil {
		res.HolderName = holder.FullName
	} else if !errors.Is(err, repository.ErrNotFound) {
		return model.CheckInResult{}, err
	}
	return res, nil
}

func checkInOutcome(err error) string {
	switch {
	case err == nil:
		return "admitted"
	case errors.Is(err, ErrTicketUsed):
		return "already_used"
	case errors.Is(err, ErrTicketCancelled):
		return "cancelled"
	case errors.Is(err, ErrNotCreatorOrStaff):
		return "forbidden"
	case errors.Is(err, ErrTicketNotFound), errors.Is(err, ErrEventNotFound):
		return "not_found"
	default:
		return "error"
	}
}

// canManage reports whether userID created ev or staffs it.
func canManage(ctx context.Context, staff StaffStore, ev model.Event, userID uint64) (bool, error) {
	if ev.Owner.Is(userID) {
		return true, nil
	}
	_, err := staff.RoleFor(ctx, ev.ID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}
