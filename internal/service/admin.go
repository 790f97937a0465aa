package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/crusade-registration/internal/model"
	"github.com/iliyamo/crusade-registration/internal/repository"
	"github.com/iliyamo/crusade-registration/internal/utils"
)

// Credentials of the admin created on an empty admins table.
const (
	DefaultAdminUsername = "admin"
	DefaultAdminPassword = "admin123"
)

const (
	adminUserLimit   = 100
	adminTicketLimit = 100
)

// ErrInvalidAdminLogin is returned for any admin credential failure.
var ErrInvalidAdminLogin = errors.New("invalid username or password")

// Dashboard holds the counters on the admin landing page.
type Dashboard struct {
	Users              int `json:"users"`
	Events             int `json:"events"`
	Tickets            int `json:"tickets"`
	Testimonies        int `json:"testimonies"`
	PendingTestimonies int `json:"pending_testimonies"`
	Categories         int `json:"categories"`
}

// Admin backs the moderation console.
type Admin struct {
	Admins      AdminStore
	Users       UserStore
	Events      EventStore
	Tickets     TicketStore
	Testimonies TestimonyStore
	Categories  CategoryStore
	BcryptCost  int
	Log         zerolog.Logger
}

// Bootstrap creates the default admin when no admin exists.  It reports
// whether one was created.
func (s *Admin) Bootstrap(ctx context.Context) (bool, error) {
	n, err := s.Admins.Count(ctx)
	if err != nil || n > 0 {
		return false, err
	}
	hash, err := utils.HashPassword(DefaultAdminPassword, s.BcryptCost)
	if err != nil {
		return false, err
	}
	_, err = s.Admins.Create(ctx, model.Admin{
		Username:     DefaultAdminUsername,
		PasswordHash: hash,
		Name:         "Administrator",
		Role:         "super_admin",
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	s.Log.Warn().Str("username", DefaultAdminUsername).Msg("default admin created; change its password")
	return true, nil
}

// Login checks admin credentials.
func (s *Admin) Login(ctx context.Context, username, password string) (model.Admin, error) {
	a, err := s.Admins.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, repository.ErrNotFound) {
		return model.Admin{}, ErrInvalidAdminLogin
	}
	if err != nil {
		return model.Admin{}, err
	}
	if !utils.VerifyPassword(a.PasswordHash, password) {
		return model.Admin{}, ErrInvalidAdminLogin
	}
	return a, nil
}

// Dashboard gathers the landing page counters concurrently.
func (s *Admin) Dashboard(ctx context.Context) (Dashboard, error) {
	var d Dashboard
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { d.Users, err = s.Users.Count(gctx); return })
	g.Go(func() (err error) { d.Events, err = s.Events.Count(gctx); return })
	g.Go(func() (err error) { d.Tickets, err = s.Tickets.CountAll(gctx, ""); return })
	g.Go(func() (err error) { d.Testimonies, err = s.Testimonies.CountAll(gctx, ""); return })
	g.Go(func() (err error) {
		d.PendingTestimonies, err = s.Testimonies.CountAll(gctx, model.TestimonyPending)
		return
	})
	g.Go(func() (err error) { d.Categories, err = s.Categories.Count(gctx); return })
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return d, nil
}

// SearchUsers lists users whose name or email contains search.
func (s *Admin) SearchUsers(ctx context.Context, search string) ([]model.User, error) {
	return s.Users.Search(ctx, strings.TrimSpace(search), adminUserLimit)
}

// AdminUserInput is the admin's user form.  An empty Password keeps the
// current one on update.
type AdminUserInput struct {
	FullName string
	Email    string
	Password string
	Phone    string
	Country  string
	City     string
	Church   string
}

// CreateUser adds a user on someone's behalf.
func (s *Admin) CreateUser(ctx context.Context, in AdminUserInput) (model.User, error) {
	hash, err := utils.HashPassword(in.Password, s.BcryptCost)
	if err != nil {
		return model.User{}, err
	}
	id, err := s.Users.Create(ctx, model.User{
		Email:        in.Email,
		PasswordHash: hash,
		FullName:     in.FullName,
		Phone:        in.Phone,
		Country:      in.Country,
		City:         in.City,
		Church:       in.Church,
	})
	if errors.Is(err, repository.ErrEmailExists) {
		return model.User{}, ErrEmailTaken
	}
	if err != nil {
		return model.User{}, err
	}
	return s.Users.GetByID(ctx, id)
}

// UpdateUser overwrites a user's admin-editable fields.
func (s *Admin) UpdateUser(ctx context.Context, id uint64, in AdminUserInput) (model.User, error) {
	u, err := s.Users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, ErrUserNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	u.FullName, u.Email, u.Phone = in.FullName, strings.ToLower(in.Email), in.Phone
	u.Country, u.City, u.Church = in.Country, in.City, in.Church
	if in.Password != "" {
		if u.PasswordHash, err = utils.HashPassword(in.Password, s.BcryptCost); err != nil {
			return model.User{}, err
		}
	}
	err = s.Users.AdminUpdate(ctx, u)
	if errors.Is(err, repository.ErrEmailExists) {
		return model.User{}, ErrEmailTaken
	}
	if err != nil {
		return model.User{}, err
	}
	return s.Users.GetByID(ctx, id)
}

// DeleteUser removes a user with their tickets, staff grants and
// testimonies.
func (s *Admin) DeleteUser(ctx context.Context, id uint64) error {
	err := s.Users.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}

// LatestTickets lists the most recent tickets across all events.
func (s *Admin) LatestTickets(ctx context.Context) ([]model.Ticket, error) {
	return s.Tickets.Latest(ctx, adminTicketLimit)
}
