package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/iliyamo/crusade-registration/internal/metrics"
	"github.com/iliyamo/crusade-registration/internal/model"
	"github.com/iliyamo/crusade-registration/internal/repository"
)

// Notifier writes and reads pull-based notifications.  Writes are best
// effort: failures are logged and never surface to the caller.
type Notifier struct {
	Store NotificationStore
	Log   zerolog.Logger
}

func NewNotifier(store NotificationStore, log zerolog.Logger) *Notifier {
	return &Notifier{Store: store, Log: log.With().Str("component", "notifier").Logger()}
}

// Notify stores one notification for recipient.
func (n *Notifier) Notify(ctx context.Context, to model.Recipient, typ model.NotificationType, title, message string, data map[string]any) {
	_, err := n.Store.Create(ctx, model.Notification{
		Recipient: to, Type: typ, Title: title, Message: message, Data: data,
	})
	if err != nil {
		uid, _ := to.UserID()
		n.Log.Warn().Err(err).Uint64("user_id", uid).Str("title", title).Msg("notification not stored")
		return
	}
	metrics.NotificationsTotal.WithLabelValues(string(typ)).Inc()
}

// NotifyNearby tells users located in country and/or city about a newly
// created event.  The creator is skipped.  Nothing is sent when both
// location arguments are empty.
func (n *Notifier) NotifyNearby(ctx context.Context, ev model.Event, creatorID uint64, country, city string) {
	place := city
	if place == "" {
		place = country
	}
	written, err := n.Store.CreateForLocation(ctx, model.Notification{
		Type:    model.NotifyEvent,
		Title:   "New Crusade Near You!",
		Message: fmt.Sprintf("%s is happening in %s. Register now!", ev.Title, place),
		Data:    map[string]any{"event_id": ev.ID},
	}, country, city, creatorID)
	if err != nil {
		n.Log.Warn().Err(err).Uint64("event_id", ev.ID).Msg("nearby notifications not stored")
		return
	}
	metrics.NotificationsTotal.WithLabelValues(string(model.NotifyEvent)).Add(float64(written))
}

// List returns a page of userID's notifications with read flags, the
// unread count and pagination.
func (n *Notifier) List(ctx context.Context, userID uint64, page, limit int) (model.NotificationPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	items, total, err := n.Store.List(ctx, userID, limit, (page-1)*limit)
	if err != nil {
		return model.NotificationPage{}, err
	}
	unread, err := n.Store.UnreadCount(ctx, userID)
	if err != nil {
		return model.NotificationPage{}, err
	}
	return model.NotificationPage{
		Notifications: items,
		UnreadCount:   unread,
		Pagination:    model.NewPagination(total, page, limit),
	}, nil
}

// MarkRead marks a notification read for userID.  Only the addressee, or
// anyone for broadcasts, may do so.
func (n *Notifier) MarkRead(ctx context.Context, userID, id uint64) error {
	note, err := n.Store.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotificationNotFound
	}
	if err != nil {
		return err
	}
	if !note.Recipient.Reaches(userID) {
		return ErrNotificationForbidden
	}
	return n.Store.MarkRead(ctx, id, userID)
}

// MarkAllRead marks every notification visible to userID as read by them.
func (n *Notifier) MarkAllRead(ctx context.Context, userID uint64) error {
	_, err := n.Store.MarkAllRead(ctx, userID)
	return err
}
