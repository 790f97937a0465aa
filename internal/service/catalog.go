package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/crusade-registration/internal/model"
	"github.com/iliyamo/crusade-registration/internal/repository"
	"github.com/iliyamo/crusade-registration/internal/sanitize"
)

// DefaultEventLimit is the page size of the catalog.
const DefaultEventLimit = 50

// enrichConcurrency bounds the per-event counter queries run in parallel.
const enrichConcurrency = 8

// EventQuery is a catalog listing request.
type EventQuery struct {
	Search   string
	Category string
	Upcoming bool
	Featured bool
	Page     int
	Limit    int
}

// EventPage is a merged catalog page.  Total counts local matches only.
type EventPage struct {
	Events []model.EventView
	Total  int
	Page   int
	Limit  int
}

// Catalog merges locally stored events with the external feed.
type Catalog struct {
	Events   EventStore
	Feed     FeedSource
	Tickets  TicketStore
	Staff    StaffStore
	Notifier *Notifier
	Now      func() time.Time
}

func (c *Catalog) today() string {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	return model.Today(now())
}

// List returns one merged page of the catalog.
func (c *Catalog) List(ctx context.Context, q EventQuery, viewer *model.User) (EventPage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultEventLimit
	}
	today := c.today()

	local, total, err := c.Events.List(ctx, model.EventFilter{
		Search:   q.Search,
		Category: q.Category,
		Upcoming: q.Upcoming,
		Featured: q.Featured,
		Today:    today,
		Page:     q.Page,
		Limit:    q.Limit,
	})
	if err != nil {
		return EventPage{}, err
	}

	external := filterExternal(c.Feed.Events(ctx), q, today)
	merged := MergeEvents(local, external, today, q.Limit)

	views, err := c.enrich(ctx, merged, viewer)
	if err != nil {
		return EventPage{}, err
	}
	return EventPage{Events: views, Total: total, Page: q.Page, Limit: q.Limit}, nil
}

// filterExternal applies the free-text and upcoming predicates to feed
// events.  Category and featured are not applied: every feed event is a
// featured crusade.
func filterExternal(events []model.Event, q EventQuery, today string) []model.Event {
	out := make([]model.Event, 0, len(events))
	for _, e := range events {
		if !e.MatchesSearch(q.Search) {
			continue
		}
		if q.Upcoming && !e.IsUpcoming(today) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// MergeEvents combines local and external events.  External events whose
// id is also local are dropped.  The result lists upcoming events (date >=
// today) soonest first, then past events most recent first, and is cut to
// limit when limit > 0.
func MergeEvents(local, external []model.Event, today string, limit int) []model.Event {
	seen := make(map[uint64]struct{}, len(local))
	merged := make([]model.Event, 0, len(local)+len(external))
	for _, e := range local {
		seen[e.ID] = struct{}{}
		merged = append(merged, e)
	}
	for _, e := range external {
		if _, dup := seen[e.ID]; dup {
			continue
		}
		seen[e.ID] = struct{}{}
		merged = append(merged, e)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		au, bu := a.IsUpcoming(today), b.IsUpcoming(today)
		switch {
		case au && !bu:
			return true
		case !au && bu:
			return false
		case au:
			return a.Date < b.Date
		default:
			return a.Date > b.Date
		}
	})

	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

// enrich attaches registration_count, and user_registered when viewer is
// known, querying events concurrently.
func (c *Catalog) enrich(ctx context.Context, events []model.Event, viewer *model.User) ([]model.EventView, error) {
	views := make([]model.EventView, len(events))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichConcurrency)

	for i := range events {
		views[i].Event = events[i]
		g.Go(func() error {
			n, err := c.Tickets.CountByEvent(gctx, events[i].ID)
			if err != nil {
				return err
			}
			views[i].RegistrationCount = &n
			if viewer != nil {
				ok, err := c.Tickets.Exists(gctx, viewer.ID, events[i].ID)
				if err != nil {
					return err
				}
				views[i].UserRegistered = &ok
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return views, nil
}

// Resolve finds an event locally and then in the feed.
func (c *Catalog) Resolve(ctx context.Context, id uint64) (model.Event, error) {
	ev, err := c.Events.Get(ctx, id)
	if err == nil {
		return ev, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return model.Event{}, err
	}
	if ev, ok := c.Feed.Find(ctx, id); ok {
		return ev, nil
	}
	return model.Event{}, ErrEventNotFound
}

// Get returns one event with the same decoration as List.
func (c *Catalog) Get(ctx context.Context, id uint64, viewer *model.User) (model.EventView, error) {
	ev, err := c.Resolve(ctx, id)
	if err != nil {
		return model.EventView{}, err
	}
	views, err := c.enrich(ctx, []model.Event{ev}, viewer)
	if err != nil {
		return model.EventView{}, err
	}
	return views[0], nil
}

// Create stores a new event owned by creator.  Country defaults to the
// creator's.  Users in the location given explicitly in the request are
// notified.
func (c *Catalog) Create(ctx context.Context, creator model.User, in model.NewEventInput) (model.Event, error) {
	country := sanitize.Text(in.Country)
	city := sanitize.Text(in.City)

	ev := model.Event{
		Title:       sanitize.Text(in.Title),
		Description: sanitize.HTML(in.Description),
		Date:        in.Date,
		Time:        in.Time,
		Venue:       sanitize.Text(in.Venue),
		Address:     sanitize.Text(in.Address),
		Country:     country,
		City:        city,
		Category:    sanitize.Text(in.Category),
		Image:       in.Image,
		Capacity:    in.Capacity,
		Owner:       model.OwnedBy(creator.ID),
	}
	if ev.Country == "" {
		ev.Country = creator.Country
	}
	if ev.Category == "" {
		ev.Category = model.DefaultCategory
	}

	created, err := c.Events.Create(ctx, ev)
	if errors.Is(err, repository.ErrDuplicate) {
		// Another creator took the same id; the next attempt reads a new max.
		created, err = c.Events.Create(ctx, ev)
	}
	if err != nil {
		return model.Event{}, err
	}

	if c.Notifier != nil && (country != "" || city != "") {
		c.Notifier.NotifyNearby(ctx, created, creator.ID, country, city)
	}
	return created, nil
}

// Delete removes a local event.  Only its creator may do so.
func (c *Catalog) Delete(ctx context.Context, actorID, id uint64) error {
	ev, err := c.Events.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrEventNotFound
	}
	if err != nil {
		return err
	}
	if !ev.Owner.Is(actorID) {
		return ErrNotEventCreator
	}
	return c.Events.Delete(ctx, id)
}

// MyCrusades lists events created by userID with registration and staff
// counts.
func (c *Catalog) MyCrusades(ctx context.Context, userID uint64) ([]model.EventView, error) {
	events, err := c.Events.ListByCreator(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]model.EventView, len(events))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichConcurrency)
	for i := range events {
		views[i].Event = events[i]
		g.Go(func() error {
			regs, err := c.Tickets.CountByEvent(gctx, events[i].ID)
			if err != nil {
				return err
			}
			staff, err := c.Staff.CountByEvent(gctx, events[i].ID)
			if err != nil {
				return err
			}
			views[i].RegistrationCount, views[i].StaffCount = &regs, &staff
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return views, nil
}

// StaffEvents lists the local events userID staffs, newest date first,
// with registration and check-in counts and the user's role.
func (c *Catalog) StaffEvents(ctx context.Context, userID uint64) ([]model.EventView, error) {
	grants, err := c.Staff.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]model.EventView, 0, len(grants))
	for _, gr := range grants {
		ev, err := c.Events.Get(ctx, gr.EventID)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		views = append(views, model.EventView{Event: ev, StaffRole: gr.Role})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichConcurrency)
	for i := range views {
		g.Go(func() error {
			id := views[i].ID
			regs, err := c.Tickets.CountByEvent(gctx, id)
			if err != nil {
				return err
			}
			used, err := c.Tickets.CountByEventStatus(gctx, id, model.TicketUsed)
			if err != nil {
				return err
			}
			views[i].RegistrationCount, views[i].CheckedInCount = &regs, &used
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(views, func(i, j int) bool { return views[i].Date > views[j].Date })
	return views, nil
}

// AdminList lists every local event with its registration count.
func (c *Catalog) AdminList(ctx context.Context) ([]model.EventView, error) {
	events, err := c.Events.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return c.enrich(ctx, events, nil)
}

// AdminDelete removes any local event.
func (c *Catalog) AdminDelete(ctx context.Context, id uint64) error {
	err := c.Events.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrEventNotFound
	}
	return err
}
