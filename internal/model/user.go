package model

import "time"

// User mirrors a row in the `users` table.  The struct is used internally
// by repositories and services; handlers serialize it through Public() so
// the password hash never leaves the process.
type User struct {
	ID                uint64    // users.id
	Email             string    // users.email (stored lowercased, unique)
	PasswordHash      string    // users.password_hash (bcrypt)
	FullName          string    // users.full_name
	Phone             string    // users.phone
	Country           string    // users.country
	City              string    // users.city
	Zone              string    // users.zone
	Church            string    // users.church
	Group             string    // users.group_name
	KingsChatUsername string    // users.kingschat_username
	Avatar            string    // users.avatar
	CreatedAt         time.Time // users.created_at
	UpdatedAt         time.Time // users.updated_at
}

// PublicUser is the JSON shape of a user's own profile.
type PublicUser struct {
	ID                uint64    `json:"id"`
	Email             string    `json:"email"`
	FullName          string    `json:"full_name"`
	Phone             string    `json:"phone,omitempty"`
	Country           string    `json:"country"`
	City              string    `json:"city,omitempty"`
	Zone              string    `json:"zone,omitempty"`
	Church            string    `json:"church,omitempty"`
	Group             string    `json:"group,omitempty"`
	KingsChatUsername string    `json:"kingschat_username,omitempty"`
	Avatar            string    `json:"avatar,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Public projects the user onto its client-facing representation.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:                u.ID,
		Email:             u.Email,
		FullName:          u.FullName,
		Phone:             u.Phone,
		Country:           u.Country,
		City:              u.City,
		Zone:              u.Zone,
		Church:            u.Church,
		Group:             u.Group,
		KingsChatUsername: u.KingsChatUsername,
		Avatar:            u.Avatar,
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
	}
}

// UserSummary is the reduced view of another user shown to event staff
// (attendee lists, staff lists, QR lookups).
type UserSummary struct {
	ID       uint64 `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Avatar   string `json:"avatar,omitempty"`
	Church   string `json:"church,omitempty"`
	Country  string `json:"country,omitempty"`
}

// Summary projects the user onto a UserSummary.
func (u User) Summary() UserSummary {
	return UserSummary{
		ID:       u.ID,
		FullName: u.FullName,
		Email:    u.Email,
		Avatar:   u.Avatar,
		Church:   u.Church,
		Country:  u.Country,
	}
}

// ProfileUpdate carries the optional fields a user may change on their own
// profile.  A nil pointer leaves the column untouched.
type ProfileUpdate struct {
	FullName          *string
	Phone             *string
	Country           *string
	Zone              *string
	Church            *string
	Group             *string
	KingsChatUsername *string
	Avatar            *string
}

// Admin mirrors a row in the `admins` table.  Admins are a separate
// principal from users and authenticate through a cookie session.
type Admin struct {
	ID           uint64
	Username     string
	PasswordHash string
	Name         string
	Role         string // admin | super_admin
	CreatedAt    time.Time
}

// PasswordReset models a row in `password_resets`.  Tokens are single use
// and expire one hour after issue.
type PasswordReset struct {
	ID        uint64
	Email     string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}
