package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/crusade-registration/internal/model"
)

// UserRepo reads and writes the `users` table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// ErrEmailExists is returned by Create when the email is already taken.
var ErrEmailExists = errors.New("email already exists")

const userColumns = `id, email, password_hash, full_name, COALESCE(phone,''), country, COALESCE(city,''),
	COALESCE(zone,''), COALESCE(church,''), COALESCE(group_name,''), COALESCE(kingschat_username,''),
	COALESCE(avatar,''), created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.Phone, &u.Country, &u.City,
		&u.Zone, &u.Church, &u.Group, &u.KingsChatUsername, &u.Avatar, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	return u, err
}

// Create inserts u (PasswordHash must already be set) and returns its ID.
func (r *UserRepo) Create(ctx context.Context, u model.User) (uint64, error) {
	email := strings.ToLower(strings.TrimSpace(u.Email))
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, full_name, phone, country, city, zone, church, group_name, kingschat_username, avatar)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		email, u.PasswordHash, u.FullName, nullString(u.Phone), u.Country, nullString(u.City), nullString(u.Zone),
		nullString(u.Church), nullString(u.Group), nullString(u.KingsChatUsername), nullString(u.Avatar))
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrEmailExists
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// FindByKingsChat looks a user up by KingsChat username, falling back to
// email when one is supplied.
func (r *UserRepo) FindByKingsChat(ctx context.Context, username, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return scanUser(r.DB.QueryRowContext(ctx,
			"SELECT "+userColumns+" FROM users WHERE kingschat_username=? LIMIT 1", username))
	}
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE kingschat_username=? OR email=? ORDER BY kingschat_username=? DESC LIMIT 1",
		username, email, username))
}

// SetKingsChatUsername backfills the username on an existing account.
func (r *UserRepo) SetKingsChatUsername(ctx context.Context, id uint64, username string) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET kingschat_username=? WHERE id=?", username, id)
	return err
}

// UpdateProfile applies the non-nil fields of p and returns the fresh row.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, p model.ProfileUpdate) (model.User, error) {
	set := []string{}
	args := []any{}
	add := func(col string, v *string) {
		if v != nil {
			set = append(set, col+"=?")
			args = append(args, *v)
		}
	}
	add("full_name", p.FullName)
	add("phone", p.Phone)
	add("country", p.Country)
	add("zone", p.Zone)
	add("church", p.Church)
	add("group_name", p.Group)
	add("kingschat_username", p.KingsChatUsername)
	add("avatar", p.Avatar)

	if len(set) > 0 {
		args = append(args, id)
		if _, err := r.DB.ExecContext(ctx, "UPDATE users SET "+strings.Join(set, ", ")+" WHERE id=?", args...); err != nil {
			return model.User{}, fmt.Errorf("update profile: %w", err)
		}
	}
	return r.GetByID(ctx, id)
}

// SetPassword stores a new bcrypt hash for the account with email.
func (r *UserRepo) SetPassword(ctx context.Context, email, hash string) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET password_hash=? WHERE email=?",
		hash, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Search lists users for the admin panel, newest first.  search matches
// name, email or country.
func (r *UserRepo) Search(ctx context.Context, search string, limit int) ([]model.User, error) {
	q := "SELECT " + userColumns + " FROM users"
	args := []any{}
	if s := strings.TrimSpace(search); s != "" {
		q += " WHERE LOWER(full_name) LIKE ? OR email LIKE ? OR LOWER(country) LIKE ?"
		like := "%" + strings.ToLower(s) + "%"
		args = append(args, like, like, like)
	}
	q += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// AdminUpdate overwrites the admin-editable columns, password hash
// included.
func (r *UserRepo) AdminUpdate(ctx context.Context, u model.User) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET full_name=?, email=?, phone=?, country=?, city=?, church=?, password_hash=? WHERE id=?`,
		u.FullName, strings.ToLower(strings.TrimSpace(u.Email)), nullString(u.Phone), u.Country,
		nullString(u.City), nullString(u.Church), u.PasswordHash, u.ID)
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a user together with their tickets, staff grants and
// testimonies in one transaction.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	for _, q := range []string{
		"DELETE FROM tickets WHERE user_id=?",
		"DELETE FROM event_staff WHERE user_id=?",
		"DELETE FROM testimonies WHERE user_id=?",
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("cascade user %d: %w", id, err)
		}
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Count returns the number of registered users.
func (r *UserRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n)
	return n, err
}

// nullString stores empty optional strings as NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
