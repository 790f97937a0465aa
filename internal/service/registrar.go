package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/crusade-registration/internal/metrics"
	"github.com/iliyamo/crusade-registration/internal/model"
	"github.com/iliyamo/crusade-registration/internal/queue"
	"github.com/iliyamo/crusade-registration/internal/repository"
	"github.com/iliyamo/crusade-registration/internal/utils"
)

// maxCodeAttempts bounds QR regeneration.  With 48 random bits a second
// attempt is already vanishingly rare.
const maxCodeAttempts = 10

// Registrar issues tickets.
type Registrar struct {
	Catalog   *Catalog
	Tickets   TicketStore
	Notifier  *Notifier
	Publisher TicketPublisher // optional
	Log       zerolog.Logger
	Now       func() time.Time
	NewCode   func() (string, error)
}

// Registration is the stored ticket and the event it admits to.
type Registration struct {
	Ticket model.Ticket
	Event  model.Event
}

func (r *Registrar) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Register gives user a ticket for eventID.
func (r *Registrar) Register(ctx context.Context, user model.User, eventID uint64) (Registration, error) {
	ev, err := r.Catalog.Resolve(ctx, eventID)
	if err != nil {
		return Registration{}, err
	}

	exists, err := r.Tickets.Exists(ctx, user.ID, ev.ID)
	if err != nil {
		return Registration{}, err
	}
	if exists {
		return Registration{}, ErrAlreadyRegistered
	}

	if capacity, capped := ev.Capped(); capped {
		n, err := r.Tickets.CountByEvent(ctx, ev.ID)
		if err != nil {
			return Registration{}, err
		}
		if n >= capacity {
			return Registration{}, ErrEventFull
		}
	}

	code, err := r.uniqueCode(ctx)
	if err != nil {
		return Registration{}, err
	}

	now := r.now()
	t, err := r.Tickets.Create(ctx, model.Ticket{
		UserID:           user.ID,
		EventID:          ev.ID,
		QRCode:           code,
		RegistrationDate: model.Today(now),
		Status:           model.TicketActive,
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return Registration{}, ErrAlreadyRegistered
	}
	if err != nil {
		return Registration{}, err
	}
	metrics.TicketsRegisteredTotal.Inc()

	r.announce(ctx, user, ev, t)
	return Registration{Ticket: t, Event: ev}, nil
}

func (r *Registrar) uniqueCode(ctx context.Context) (string, error) {
	gen := r.NewCode
	if gen == nil {
		gen = utils.NewQRCode
	}
	for i := 0; i < maxCodeAttempts; i++ {
		code, err := gen()
		if err != nil {
			return "", err
		}
		taken, err := r.Tickets.QRCodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("no free qr code after %d attempts", maxCodeAttempts)
}

// announce runs the best-effort side effects of a registration.
func (r *Registrar) announce(ctx context.Context, user model.User, ev model.Event, t model.Ticket) {
	if r.Notifier != nil {
		r.Notifier.Notify(ctx, model.ToUser(user.ID), model.NotifyRegistration,
			"Registration Confirmed!",
			fmt.Sprintf("You have successfully registered for %s.", ev.Title),
			map[string]any{"event_id": ev.ID, "ticket_id": t.ID})

		if owner, ok := ev.Owner.UserID(); ok && owner != user.ID {
			r.Notifier.Notify(ctx, model.ToUser(owner), model.NotifyRegistration,
				"New Registration",
				fmt.Sprintf("%s has registered for %s.", user.FullName, ev.Title),
				map[string]any{"event_id": ev.ID, "user_id": user.ID})
		}
	}

	if r.Publisher == nil {
		return
	}
	err := r.Publisher.PublishTicketRegistered(ctx, queue.TicketRegisteredEvent{
		TicketID:     t.ID,
		UserID:       user.ID,
		UserEmail:    user.Email,
		UserName:     user.FullName,
		EventID:      ev.ID,
		EventTitle:   ev.Title,
		External:     ev.External,
		QRCode:       t.QRCode,
		RegisteredAt: t.RegistrationDate,
	})
	if err != nil {
		r.Log.Warn().Err(err).Uint64("ticket_id", t.ID).Msg("ticket.registered not published")
	}
}
