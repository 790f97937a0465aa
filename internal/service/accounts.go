package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/crusade-registration/internal/kingschat"
	"github.com/iliyamo/crusade-registration/internal/model"
	"github.com/iliyamo/crusade-registration/internal/repository"
	"github.com/iliyamo/crusade-registration/internal/utils"
)

// ResetTokenTTL is how long a password reset token stays valid.
const ResetTokenTTL = time.Hour

// PasswordMailer delivers reset links.
type PasswordMailer interface {
	SendPasswordReset(ctx context.Context, to, name, link string) error
}

// ProfileFetcher exchanges a KingsChat access token for the user's profile.
type ProfileFetcher interface {
	Profile(ctx context.Context, accessToken string) (kingschat.Profile, error)
}

// Accounts handles sign-up, sign-in, password recovery and the user's own
// profile.
type Accounts struct {
	Users       UserStore
	Resets      ResetTokenStore
	Tickets     TicketStore
	Testimonies TestimonyStore
	Tokens      *utils.TokenService
	Mailer      PasswordMailer // optional
	KingsChat   ProfileFetcher
	Notifier    *Notifier
	BcryptCost  int
	AppURL      string
	Log         zerolog.Logger
	Now         func() time.Time
}

// Session is what a successful sign-in returns to the client.
type Session struct {
	User      model.User
	Token     string
	ExpiresIn int64
}

// RegisterInput is the sign-up form.
type RegisterInput struct {
	FullName          string
	Email             string
	Password          string
	Phone             string
	Country           string
	City              string
	Zone              string
	Church            string
	Group             string
	KingsChatUsername string
}

func (a *Accounts) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *Accounts) session(u model.User) (Session, error) {
	tok, err := a.Tokens.Issue(utils.Identity{UserID: u.ID, Email: u.Email})
	if err != nil {
		return Session{}, err
	}
	return Session{User: u, Token: tok, ExpiresIn: a.Tokens.ExpiresIn()}, nil
}

func (a *Accounts) welcome(ctx context.Context, userID uint64, message string) {
	if a.Notifier == nil {
		return
	}
	a.Notifier.Notify(ctx, model.ToUser(userID), model.NotifySystem,
		"Welcome to Rhapsody Crusades!", message, nil)
}

// Register creates an account and signs it in.
func (a *Accounts) Register(ctx context.Context, in RegisterInput) (Session, error) {
	hash, err := utils.HashPassword(in.Password, a.BcryptCost)
	if err != nil {
		return Session{}, err
	}
	u := model.User{
		Email:             strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash:      hash,
		FullName:          in.FullName,
		Phone:             in.Phone,
		Country:           in.Country,
		City:              in.City,
		Zone:              in.Zone,
		Church:            in.Church,
		Group:             in.Group,
		KingsChatUsername: in.KingsChatUsername,
	}
	id, err := a.Users.Create(ctx, u)
	if errors.Is(err, repository.ErrEmailExists) {
		return Session{}, ErrEmailTaken
	}
	if err != nil {
		return Session{}, err
	}
	created, err := a.Users.GetByID(ctx, id)
	if err != nil {
		return Session{}, err
	}
	a.welcome(ctx, id, "Thank you for joining us. Explore upcoming crusades and register for events.")
	return a.session(created)
}

// Login checks an email and password.  Every failure is reported as
// ErrInvalidCredentials.
func (a *Accounts) Login(ctx context.Context, email, password string) (Session, error) {
	u, err := a.Users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, repository.ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return Session{}, ErrInvalidCredentials
	}
	return a.session(u)
}

// ForgotPassword issues a reset token and mails the link.  It returns the
// token, or "" when no account uses email; callers must answer the same
// way in both cases.
func (a *Accounts) ForgotPassword(ctx context.Context, email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := a.Users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	token, err := utils.NewResetToken()
	if err != nil {
		return "", err
	}
	if err := a.Resets.Replace(ctx, email, token, a.now().Add(ResetTokenTTL)); err != nil {
		return "", err
	}

	if a.Mailer != nil {
		link := strings.TrimRight(a.AppURL, "/") + "/reset-password?token=" + url.QueryEscape(token)
		if err := a.Mailer.SendPasswordReset(ctx, email, u.FullName, link); err != nil {
			a.Log.Warn().Err(err).Uint64("user_id", u.ID).Msg("password reset email not sent")
		}
	}
	return token, nil
}

// ResetPassword sets a new password for the account a valid token was
// issued to, then burns the token.
func (a *Accounts) ResetPassword(ctx context.Context, token, password string) error {
	email, err := a.Resets.EmailForToken(ctx, token, a.now())
	if errors.Is(err, repository.ErrNotFound) {
		return ErrInvalidResetToken
	}
	if err != nil {
		return err
	}
	hash, err := utils.HashPassword(password, a.BcryptCost)
	if err != nil {
		return err
	}
	if err := a.Users.SetPassword(ctx, email, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return a.Resets.Consume(ctx, token)
}

// SignInWithKingsChat signs in with a KingsChat access token, linking or
// creating the local account.
func (a *Accounts) SignInWithKingsChat(ctx context.Context, accessToken string) (Session, error) {
	p, err := a.KingsChat.Profile(ctx, accessToken)
	if err != nil {
		a.Log.Info().Err(err).Msg("kingschat profile lookup failed")
		return Session{}, ErrKingsChatAuthFailed
	}
	email := strings.ToLower(strings.TrimSpace(p.Email))

	u, err := a.Users.FindByKingsChat(ctx, p.Username, email)
	switch {
	case err == nil:
		if u.KingsChatUsername == "" {
			if err := a.Users.SetKingsChatUsername(ctx, u.ID, p.Username); err != nil {
				return Session{}, err
			}
			u.KingsChatUsername = p.Username
		}
		return a.session(u)
	case !errors.Is(err, repository.ErrNotFound):
		return Session{}, err
	}

	if email == "" {
		email = strings.ToLower(p.Username) + "@kingschat.user"
	}
	country := p.Country
	if country == "" {
		country = "Unknown"
	}
	secret, err := utils.NewRandomPassword()
	if err != nil {
		return Session{}, err
	}
	hash, err := utils.HashPassword(secret, a.BcryptCost)
	if err != nil {
		return Session{}, err
	}
	id, err := a.Users.Create(ctx, model.User{
		Email:             email,
		PasswordHash:      hash,
		FullName:          p.FullName(),
		Country:           country,
		KingsChatUsername: p.Username,
		Avatar:            p.Avatar,
	})
	if errors.Is(err, repository.ErrEmailExists) {
		return Session{}, ErrEmailTaken
	}
	if err != nil {
		return Session{}, err
	}
	created, err := a.Users.GetByID(ctx, id)
	if err != nil {
		return Session{}, err
	}
	a.welcome(ctx, id, "Thank you for joining us via KingsChat. Explore upcoming crusades and register for events.")
	return a.session(created)
}

// Profile returns the user's own record.
func (a *Accounts) Profile(ctx context.Context, id uint64) (model.User, error) {
	u, err := a.Users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, ErrUserNotFound
	}
	return u, err
}

// UpdateProfile changes the fields set in p.
func (a *Accounts) UpdateProfile(ctx context.Context, id uint64, p model.ProfileUpdate) (model.User, error) {
	u, err := a.Users.UpdateProfile(ctx, id, p)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, ErrUserNotFound
	}
	return u, err
}

// Stats counts the user's tickets and testimonies.
func (a *Accounts) Stats(ctx context.Context, id uint64) (model.UserStats, error) {
	total, used, err := a.Tickets.Stats(ctx, id)
	if err != nil {
		return model.UserStats{}, err
	}
	written, approved, err := a.Testimonies.CountByUser(ctx, id)
	if err != nil {
		return model.UserStats{}, err
	}
	return model.UserStats{
		EventsAttended:      used,
		EventsRegistered:    total,
		TotalRegistrations:  total,
		Testimonies:         written,
		ApprovedTestimonies: approved,
	}, nil
}
