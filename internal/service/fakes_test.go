package service

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/crusade-registration/internal/kingschat"
	"github.com/iliyamo/crusade-registration/internal/model"
	"github.com/iliyamo/crusade-registration/internal/queue"
	"github.com/iliyamo/crusade-registration/internal/repository"
)

// In-memory stand-ins for the MySQL repositories.  Every fake is safe for
// concurrent use because the catalog enriches events in parallel.

type fakeEvents struct {
	mu     sync.Mutex
	events map[uint64]model.Event
}

func newFakeEvents(evs ...model.Event) *fakeEvents {
	f := &fakeEvents{events: map[uint64]model.Event{}}
	for _, e := range evs {
		f.events[e.ID] = e
	}
	return f
}

func (f *fakeEvents) sorted() []model.Event {
	out := make([]model.Event, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeEvents) List(_ context.Context, q model.EventFilter) ([]model.Event, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Event{}
	for _, e := range f.sorted() {
		if !e.MatchesSearch(q.Search) || (q.Upcoming && !e.IsUpcoming(q.Today)) {
			continue
		}
		out = append(out, e)
	}
	return out, len(out), nil
}

func (f *fakeEvents) Get(_ context.Context, id uint64) (model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return model.Event{}, repository.ErrNotFound
	}
	return e, nil
}

func (f *fakeEvents) Create(_ context.Context, e model.Event) (model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e.ID = model.FirstLocalEventID
	for id := range f.events {
		if id >= e.ID {
			e.ID = id + 1
		}
	}
	f.events[e.ID] = e
	return e, nil
}

func (f *fakeEvents) Delete(_ context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.events[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.events, id)
	return nil
}

func (f *fakeEvents) ListByCreator(_ context.Context, userID uint64) ([]model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Event{}
	for _, e := range f.sorted() {
		if e.Owner.Is(userID) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEvents) ListAll(_ context.Context) ([]model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sorted(), nil
}

func (f *fakeEvents) Count(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events), nil
}

type fakeFeed struct{ events []model.Event }

func (f *fakeFeed) Events(context.Context) []model.Event { return f.events }

func (f *fakeFeed) Find(_ context.Context, id uint64) (model.Event, bool) {
	for _, e := range f.events {
		if e.ID == id {
			return e, true
		}
	}
	return model.Event{}, false
}

type fakeTickets struct {
	mu      sync.Mutex
	tickets []model.Ticket
	users   *fakeUsers
}

func (f *fakeTickets) Create(_ context.Context, t model.Ticket) (model.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, x := range f.tickets {
		if (x.UserID == t.UserID && x.EventID == t.EventID) || x.QRCode == t.QRCode {
			return model.Ticket{}, repository.ErrDuplicate
		}
	}
	t.ID = uint64(len(f.tickets) + 1)
	if t.Status == "" {
		t.Status = model.TicketActive
	}
	f.tickets = append(f.tickets, t)
	return t, nil
}

func (f *fakeTickets) Exists(_ context.Context, userID, eventID uint64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, x := range f.tickets {
		if x.UserID == userID && x.EventID == eventID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeTickets) QRCodeExists(_ context.Context, code string) (bool, error) {
	_, err := f.GetByQRCode(context.Background(), code)
	return err == nil, nil
}

func (f *fakeTickets) CountByEvent(ctx context.Context, eventID uint64) (int, error) {
	return f.CountByEventStatus(ctx, eventID, "")
}

func (f *fakeTickets) CountByEventStatus(_ context.Context, eventID uint64, status model.TicketStatus) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, x := range f.tickets {
		if x.EventID == eventID && (status == "" || x.Status == status) {
			n++
		}
	}
	return n, nil
}

func (f *fakeTickets) find(match func(model.Ticket) bool) (model.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, x := range f.tickets {
		if match(x) {
			return x, nil
		}
	}
	return model.Ticket{}, repository.ErrNotFound
}

func (f *fakeTickets) GetByID(_ context.Context, id uint64) (model.Ticket, error) {
	return f.find(func(t model.Ticket) bool { return t.ID == id })
}

func (f *fakeTickets) GetByQRCode(_ context.Context, code string) (model.Ticket, error) {
	return f.find(func(t model.Ticket) bool { return t.QRCode == code })
}

func (f *fakeTickets) GetByRef(ctx context.Context, ref string) (model.Ticket, error) {
	if id, err := strconv.ParseUint(ref, 10, 64); err == nil {
		if t, err := f.GetByID(ctx, id); err == nil {
			return t, nil
		}
	}
	return f.GetByQRCode(ctx, ref)
}

func (f *fakeTickets) MarkUsed(_ context.Context, id, by uint64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tickets {
		t := &f.tickets[i]
		if t.ID != id {
			continue
		}
		if t.Status != model.TicketActive {
			return repository.ErrConflict
		}
		t.Status, t.CheckedInAt, t.CheckedInBy = model.TicketUsed, &at, &by
		return nil
	}
	return repository.ErrConflict
}

func (f *fakeTickets) ListByUser(_ context.Context, userID uint64) ([]model.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Ticket{}
	for i := len(f.tickets) - 1; i >= 0; i-- {
		if f.tickets[i].UserID == userID {
			out = append(out, f.tickets[i])
		}
	}
	return out, nil
}

func (f *fakeTickets) ListAttendees(ctx context.Context, eventID uint64, limit, offset int) ([]repository.AttendeeRow, int, error) {
	f.mu.Lock()
	all := []model.Ticket{}
	for i := len(f.tickets) - 1; i >= 0; i-- {
		if f.tickets[i].EventID == eventID {
			all = append(all, f.tickets[i])
		}
	}
	f.mu.Unlock()

	out := []repository.AttendeeRow{}
	for i := offset; i < len(all) && i < offset+limit; i++ {
		row := repository.AttendeeRow{Ticket: all[i]}
		if f.users != nil {
			if u, err := f.users.GetByID(ctx, all[i].UserID); err == nil {
				row.User = u.Summary()
			}
		}
		out = append(out, row)
	}
	return out, len(all), nil
}

func (f *fakeTickets) Latest(_ context.Context, limit int) ([]model.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Ticket{}
	for i := len(f.tickets) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.tickets[i])
	}
	return out, nil
}

func (f *fakeTickets) Stats(_ context.Context, userID uint64) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	total, used := 0, 0
	for _, x := range f.tickets {
		if x.UserID == userID {
			total++
			if x.Status == model.TicketUsed {
				used++
			}
		}
	}
	return total, used, nil
}

func (f *fakeTickets) CountAll(_ context.Context, status model.TicketStatus) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, x := range f.tickets {
		if status == "" || x.Status == status {
			n++
		}
	}
	return n, nil
}

type fakeStaff struct {
	mu     sync.Mutex
	grants []model.EventStaff
}

func (f *fakeStaff) RoleFor(_ context.Context, eventID, userID uint64) (model.StaffRole, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.grants {
		if g.EventID == eventID && g.UserID == userID {
			return g.Role, nil
		}
	}
	return "", repository.ErrNotFound
}

func (f *fakeStaff) Add(_ context.Context, s model.EventStaff) (model.EventStaff, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.grants {
		if g.EventID == s.EventID && g.UserID == s.UserID {
			return model.EventStaff{}, repository.ErrDuplicate
		}
	}
	s.ID = uint64(len(f.grants) + 1)
	f.grants = append(f.grants, s)
	return s, nil
}

func (f *fakeStaff) filter(match func(model.EventStaff) bool) []model.EventStaff {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.EventStaff{}
	for _, g := range f.grants {
		if match(g) {
			out = append(out, g)
		}
	}
	return out
}

func (f *fakeStaff) ListByEvent(_ context.Context, eventID uint64) ([]model.EventStaff, error) {
	return f.filter(func(g model.EventStaff) bool { return g.EventID == eventID }), nil
}

func (f *fakeStaff) ListByUser(_ context.Context, userID uint64) ([]model.EventStaff, error) {
	return f.filter(func(g model.EventStaff) bool { return g.UserID == userID }), nil
}

func (f *fakeStaff) CountByEvent(ctx context.Context, eventID uint64) (int, error) {
	l, _ := f.ListByEvent(ctx, eventID)
	return len(l), nil
}

func (f *fakeStaff) Remove(_ context.Context, eventID, staffID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, g := range f.grants {
		if g.EventID == eventID && g.ID == staffID {
			f.grants = append(f.grants[:i], f.grants[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

type fakeUsers struct {
	mu    sync.Mutex
	users map[uint64]model.User
}

func newFakeUsers(us ...model.User) *fakeUsers {
	f := &fakeUsers{users: map[uint64]model.User{}}
	for _, u := range us {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUsers) Create(_ context.Context, u model.User) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, x := range f.users {
		if x.Email == u.Email {
			return 0, repository.ErrEmailExists
		}
	}
	u.ID = uint64(len(f.users) + 1)
	for {
		if _, taken := f.users[u.ID]; !taken {
			break
		}
		u.ID++
	}
	f.users[u.ID] = u
	return u.ID, nil
}

func (f *fakeUsers) first(match func(model.User) bool) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if match(u) {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	return f.first(func(u model.User) bool { return u.Email == email })
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	return f.first(func(u model.User) bool { return u.ID == id })
}

func (f *fakeUsers) FindByKingsChat(_ context.Context, username, email string) (model.User, error) {
	return f.first(func(u model.User) bool {
		return u.KingsChatUsername == username || (email != "" && u.Email == email)
	})
}

func (f *fakeUsers) update(id uint64, fn func(*model.User)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(&u)
	f.users[id] = u
	return nil
}

func (f *fakeUsers) SetKingsChatUsername(_ context.Context, id uint64, username string) error {
	return f.update(id, func(u *model.User) { u.KingsChatUsername = username })
}

func (f *fakeUsers) UpdateProfile(ctx context.Context, id uint64, p model.ProfileUpdate) (model.User, error) {
	err := f.update(id, func(u *model.User) {
		if p.FullName != nil {
			u.FullName = *p.FullName
		}
		if p.Country != nil {
			u.Country = *p.Country
		}
		if p.Church != nil {
			u.Church = *p.Church
		}
	})
	if err != nil {
		return model.User{}, err
	}
	return f.GetByID(ctx, id)
}

func (f *fakeUsers) SetPassword(ctx context.Context, email, hash string) error {
	u, err := f.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	return f.update(u.ID, func(u *model.User) { u.PasswordHash = hash })
}

func (f *fakeUsers) Search(_ context.Context, _ string, limit int) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.User{}
	for _, u := range f.users {
		if len(out) < limit {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUsers) AdminUpdate(_ context.Context, u model.User) error {
	return f.update(u.ID, func(x *model.User) { *x = u })
}

func (f *fakeUsers) Delete(_ context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeUsers) Count(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users), nil
}

type readKey struct{ note, user uint64 }

type fakeNotes struct {
	mu    sync.Mutex
	notes []model.Notification
	reads map[readKey]bool
	users *fakeUsers
}

func newFakeNotes() *fakeNotes { return &fakeNotes{reads: map[readKey]bool{}} }

func (f *fakeNotes) Create(_ context.Context, n model.Notification) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n.ID = uint64(len(f.notes) + 1)
	f.notes = append(f.notes, n)
	return n.ID, nil
}

func (f *fakeNotes) CreateForLocation(ctx context.Context, n model.Notification, country, city string, exclude uint64) (int64, error) {
	if f.users == nil || (country == "" && city == "") {
		return 0, nil
	}
	var written int64
	for _, u := range f.users.users {
		if u.ID == exclude || (country != "" && u.Country != country) || (city != "" && u.City != city) {
			continue
		}
		n.Recipient = model.ToUser(u.ID)
		if _, err := f.Create(ctx, n); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

func (f *fakeNotes) Get(_ context.Context, id uint64) (model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.notes {
		if n.ID == id {
			return n, nil
		}
	}
	return model.Notification{}, repository.ErrNotFound
}

func (f *fakeNotes) visible(userID uint64) []model.Notification {
	out := []model.Notification{}
	for i := len(f.notes) - 1; i >= 0; i-- {
		n := f.notes[i]
		if n.Recipient.Reaches(userID) {
			n.Read = f.reads[readKey{n.ID, userID}]
			out = append(out, n)
		}
	}
	return out
}

func (f *fakeNotes) List(_ context.Context, userID uint64, limit, offset int) ([]model.Notification, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.visible(userID)
	out := []model.Notification{}
	for i := offset; i < len(all) && i < offset+limit; i++ {
		out = append(out, all[i])
	}
	return out, len(all), nil
}

func (f *fakeNotes) UnreadCount(_ context.Context, userID uint64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, note := range f.visible(userID) {
		if !note.Read {
			n++
		}
	}
	return n, nil
}

func (f *fakeNotes) MarkRead(_ context.Context, id, userID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads[readKey{id, userID}] = true
	return nil
}

func (f *fakeNotes) MarkAllRead(_ context.Context, userID uint64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, note := range f.visible(userID) {
		if !note.Read {
			f.reads[readKey{note.ID, userID}] = true
			n++
		}
	}
	return n, nil
}

func (f *fakeNotes) titles(userID uint64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []string{}
	for _, n := range f.notes {
		if uid, ok := n.Recipient.UserID(); ok && uid == userID {
			out = append(out, n.Title)
		}
	}
	return out
}

type fakeTestimonies struct {
	mu    sync.Mutex
	items map[uint64]model.Testimony
	likes map[readKey]bool
}

func newFakeTestimonies(ts ...model.Testimony) *fakeTestimonies {
	f := &fakeTestimonies{items: map[uint64]model.Testimony{}, likes: map[readKey]bool{}}
	for _, t := range ts {
		f.items[t.ID] = t
	}
	return f
}

func (f *fakeTestimonies) row(t model.Testimony, viewer uint64) repository.TestimonyRow {
	r := repository.TestimonyRow{Testimony: t}
	for k := range f.likes {
		if k.note == t.ID {
			r.Likes++
			if k.user == viewer {
				r.Liked = true
			}
		}
	}
	return r
}

func (f *fakeTestimonies) List(_ context.Context, q model.TestimonyFilter) ([]repository.TestimonyRow, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]uint64, 0, len(f.items))
	for id := range f.items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	out := []repository.TestimonyRow{}
	for _, id := range ids {
		t := f.items[id]
		switch {
		case q.Moderation:
			if q.Status != "" && t.Status != q.Status {
				continue
			}
		case q.Mine:
			if t.UserID != q.Viewer {
				continue
			}
		default:
			if !t.VisibleTo(q.Viewer) {
				continue
			}
		}
		out = append(out, f.row(t, q.Viewer))
	}
	return out, len(out), nil
}

func (f *fakeTestimonies) Get(_ context.Context, id, viewer uint64) (repository.TestimonyRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.items[id]
	if !ok {
		return repository.TestimonyRow{}, repository.ErrNotFound
	}
	return f.row(t, viewer), nil
}

func (f *fakeTestimonies) Create(_ context.Context, t model.Testimony) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t.ID = uint64(len(f.items) + 1)
	t.Status = model.TestimonyPending
	f.items[t.ID] = t
	return t.ID, nil
}

func (f *fakeTestimonies) Update(_ context.Context, t model.Testimony) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[t.ID] = t
	return nil
}

func (f *fakeTestimonies) SetStatus(_ context.Context, id uint64, status model.TestimonyStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	t.Status = status
	f.items[id] = t
	return nil
}

func (f *fakeTestimonies) Delete(_ context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeTestimonies) ToggleLike(_ context.Context, id, userID uint64) (bool, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := readKey{id, userID}
	if f.likes[k] {
		delete(f.likes, k)
	} else {
		f.likes[k] = true
	}
	return f.likes[k], f.row(f.items[id], userID).Likes, nil
}

func (f *fakeTestimonies) CountByUser(_ context.Context, userID uint64) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	total, approved := 0, 0
	for _, t := range f.items {
		if t.UserID == userID {
			total++
			if t.Status == model.TestimonyApproved {
				approved++
			}
		}
	}
	return total, approved, nil
}

func (f *fakeTestimonies) CountAll(_ context.Context, status model.TestimonyStatus) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.items {
		if status == "" || t.Status == status {
			n++
		}
	}
	return n, nil
}

type fakeCategories struct {
	mu   sync.Mutex
	cats []model.TestimonyCategory
}

func (f *fakeCategories) ListActive(_ context.Context) ([]model.TestimonyCategory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.TestimonyCategory{}
	for _, c := range f.cats {
		if c.Active {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCategories) ListAll(_ context.Context) ([]model.TestimonyCategory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.TestimonyCategory{}, f.cats...), nil
}

func (f *fakeCategories) Find(_ context.Context, ref string) (model.TestimonyCategory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.cats {
		if c.Slug == ref || strconv.FormatUint(c.ID, 10) == ref {
			return c, nil
		}
	}
	return model.TestimonyCategory{}, repository.ErrNotFound
}

func (f *fakeCategories) GetMany(_ context.Context, ids []uint64) (map[uint64]model.TestimonyCategory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[uint64]model.TestimonyCategory{}
	for _, id := range ids {
		for _, c := range f.cats {
			if c.ID == id {
				out[id] = c
			}
		}
	}
	return out, nil
}

func (f *fakeCategories) Create(_ context.Context, c model.TestimonyCategory) (model.TestimonyCategory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, x := range f.cats {
		if x.Slug == c.Slug {
			return model.TestimonyCategory{}, repository.ErrDuplicate
		}
		if x.ID >= c.ID {
			c.ID = x.ID
		}
		if x.Order >= c.Order {
			c.Order = x.Order
		}
	}
	c.ID++
	c.Order++
	f.cats = append(f.cats, c)
	return c, nil
}

func (f *fakeCategories) Toggle(_ context.Context, id uint64) (model.TestimonyCategory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.cats {
		if f.cats[i].ID == id {
			f.cats[i].Active = !f.cats[i].Active
			return f.cats[i], nil
		}
	}
	return model.TestimonyCategory{}, repository.ErrNotFound
}

func (f *fakeCategories) Delete(_ context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.cats {
		if c.ID == id {
			f.cats = append(f.cats[:i], f.cats[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeCategories) Count(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cats), nil
}

type resetEntry struct {
	email string
	exp   time.Time
}

type fakeResets struct {
	mu     sync.Mutex
	tokens map[string]resetEntry
}

func (f *fakeResets) Replace(_ context.Context, email, token string, exp time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tokens == nil {
		f.tokens = map[string]resetEntry{}
	}
	for t, e := range f.tokens {
		if e.email == email {
			delete(f.tokens, t)
		}
	}
	f.tokens[token] = resetEntry{email, exp}
	return nil
}

func (f *fakeResets) EmailForToken(_ context.Context, token string, now time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.tokens[token]
	if !ok || !e.exp.After(now) {
		return "", repository.ErrNotFound
	}
	return e.email, nil
}

func (f *fakeResets) Consume(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tokens, token)
	return nil
}

type fakeAdmins struct {
	mu     sync.Mutex
	admins []model.Admin
}

func (f *fakeAdmins) GetByUsername(_ context.Context, username string) (model.Admin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.admins {
		if a.Username == username {
			return a, nil
		}
	}
	return model.Admin{}, repository.ErrNotFound
}

func (f *fakeAdmins) Count(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.admins), nil
}

func (f *fakeAdmins) Create(_ context.Context, a model.Admin) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a.ID = uint64(len(f.admins) + 1)
	f.admins = append(f.admins, a)
	return a.ID, nil
}

type fakePublisher struct {
	mu   sync.Mutex
	sent []queue.TicketRegisteredEvent
	err  error
}

func (f *fakePublisher) PublishTicketRegistered(_ context.Context, ev queue.TicketRegisteredEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, ev)
	return f.err
}

type sentReset struct{ to, name, link string }

type fakeMailer struct{ sent []sentReset }

func (f *fakeMailer) SendPasswordReset(_ context.Context, to, name, link string) error {
	f.sent = append(f.sent, sentReset{to, name, link})
	return nil
}

type fakeKingsChat struct {
	profile kingschat.Profile
	err     error
}

func (f fakeKingsChat) Profile(context.Context, string) (kingschat.Profile, error) {
	return f.profile, f.err
}

func testNotifier(store NotificationStore) *Notifier {
	return NewNotifier(store, zerolog.Nop())
}
