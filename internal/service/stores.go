package service

import (
	"context"
	"time"

	"github.com/iliyamo/crusade-registration/internal/model"
	"github.com/iliyamo/crusade-registration/internal/queue"
	"github.com/iliyamo/crusade-registration/internal/repository"
)

// The interfaces below are satisfied by the MySQL repositories; tests
// substitute in-memory fakes.

type EventStore interface {
	List(ctx context.Context, f model.EventFilter) ([]model.Event, int, error)
	Get(ctx context.Context, id uint64) (model.Event, error)
	Create(ctx context.Context, e model.Event) (model.Event, error)
	Delete(ctx context.Context, id uint64) error
	ListByCreator(ctx context.Context, userID uint64) ([]model.Event, error)
	ListAll(ctx context.Context) ([]model.Event, error)
	Count(ctx context.Context) (int, error)
}

// FeedSource serves the external crusade feed.
type FeedSource interface {
	Events(ctx context.Context) []model.Event
	Find(ctx context.Context, id uint64) (model.Event, bool)
}

type TicketStore interface {
	Create(ctx context.Context, t model.Ticket) (model.Ticket, error)
	Exists(ctx context.Context, userID, eventID uint64) (bool, error)
	QRCodeExists(ctx context.Context, code string) (bool, error)
	CountByEvent(ctx context.Context, eventID uint64) (int, error)
	CountByEventStatus(ctx context.Context, eventID uint64, status model.TicketStatus) (int, error)
	GetByID(ctx context.Context, id uint64) (model.Ticket, error)
	GetByQRCode(ctx context.Context, code string) (model.Ticket, error)
	GetByRef(ctx context.Context, ref string) (model.Ticket, error)
	MarkUsed(ctx context.Context, id, by uint64, at time.Time) error
	ListByUser(ctx context.Context, userID uint64) ([]model.Ticket, error)
	ListAttendees(ctx context.Context, eventID uint64, limit, offset int) ([]repository.AttendeeRow, int, error)
	Latest(ctx context.Context, limit int) ([]model.Ticket, error)
	Stats(ctx context.Context, userID uint64) (total, used int, err error)
	CountAll(ctx context.Context, status model.TicketStatus) (int, error)
}

type StaffStore interface {
	RoleFor(ctx context.Context, eventID, userID uint64) (model.StaffRole, error)
	Add(ctx context.Context, s model.EventStaff) (model.EventStaff, error)
	ListByEvent(ctx context.Context, eventID uint64) ([]model.EventStaff, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.EventStaff, error)
	CountByEvent(ctx context.Context, eventID uint64) (int, error)
	Remove(ctx context.Context, eventID, staffID uint64) error
}

type UserStore interface {
	Create(ctx context.Context, u model.User) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	FindByKingsChat(ctx context.Context, username, email string) (model.User, error)
	SetKingsChatUsername(ctx context.Context, id uint64, username string) error
	UpdateProfile(ctx context.Context, id uint64, p model.ProfileUpdate) (model.User, error)
	SetPassword(ctx context.Context, email, hash string) error
	Search(ctx context.Context, search string, limit int) ([]model.User, error)
	AdminUpdate(ctx context.Context, u model.User) error
	Delete(ctx context.Context, id uint64) error
	Count(ctx context.Context) (int, error)
}

type NotificationStore interface {
	Create(ctx context.Context, n model.Notification) (uint64, error)
	CreateForLocation(ctx context.Context, n model.Notification, country, city string, exclude uint64) (int64, error)
	Get(ctx context.Context, id uint64) (model.Notification, error)
	List(ctx context.Context, userID uint64, limit, offset int) ([]model.Notification, int, error)
	UnreadCount(ctx context.Context, userID uint64) (int, error)
	MarkRead(ctx context.Context, id, userID uint64) error
	MarkAllRead(ctx context.Context, userID uint64) (int64, error)
}

type TestimonyStore interface {
	List(ctx context.Context, f model.TestimonyFilter) ([]repository.TestimonyRow, int, error)
	Get(ctx context.Context, id, viewer uint64) (repository.TestimonyRow, error)
	Create(ctx context.Context, t model.Testimony) (uint64, error)
	Update(ctx context.Context, t model.Testimony) error
	SetStatus(ctx context.Context, id uint64, status model.TestimonyStatus) error
	Delete(ctx context.Context, id uint64) error
	ToggleLike(ctx context.Context, id, userID uint64) (bool, int, error)
	CountByUser(ctx context.Context, userID uint64) (total, approved int, err error)
	CountAll(ctx context.Context, status model.TestimonyStatus) (int, error)
}

type CategoryStore interface {
	ListActive(ctx context.Context) ([]model.TestimonyCategory, error)
	ListAll(ctx context.Context) ([]model.TestimonyCategory, error)
	Find(ctx context.Context, ref string) (model.TestimonyCategory, error)
	GetMany(ctx context.Context, ids []uint64) (map[uint64]model.TestimonyCategory, error)
	Create(ctx context.Context, c model.TestimonyCategory) (model.TestimonyCategory, error)
	Toggle(ctx context.Context, id uint64) (model.TestimonyCategory, error)
	Delete(ctx context.Context, id uint64) error
	Count(ctx context.Context) (int, error)
}

type ResetTokenStore interface {
	Replace(ctx context.Context, email, token string, exp time.Time) error
	EmailForToken(ctx context.Context, token string, now time.Time) (string, error)
	Consume(ctx context.Context, token string) error
}

type AdminStore interface {
	GetByUsername(ctx context.Context, username string) (model.Admin, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, a model.Admin) (uint64, error)
}

// TicketPublisher announces new tickets on the message broker.
type TicketPublisher interface {
	PublishTicketRegistered(ctx context.Context, ev queue.TicketRegisteredEvent) error
}
