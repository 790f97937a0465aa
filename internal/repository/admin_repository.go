package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/crusade-registration/internal/model"
)

// AdminRepo reads and writes the `admins` table.
type AdminRepo struct{ DB *sql.DB }

func NewAdminRepo(db *sql.DB) *AdminRepo { return &AdminRepo{DB: db} }

// GetByUsername fetches an admin by case-insensitive username.
func (r *AdminRepo) GetByUsername(ctx context.Context, username string) (model.Admin, error) {
	var a model.Admin
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, username, password_hash, name, role, created_at FROM admins WHERE username=? LIMIT 1",
		strings.ToLower(strings.TrimSpace(username))).
		Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Name, &a.Role, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return a, ErrNotFound
	}
	return a, err
}

// Count returns the number of admin accounts.
func (r *AdminRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM admins").Scan(&n)
	return n, err
}

// Create inserts an admin; the password hash must already be computed.
func (r *AdminRepo) Create(ctx context.Context, a model.Admin) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO admins (username, password_hash, name, role) VALUES (?,?,?,?)",
		strings.ToLower(strings.TrimSpace(a.Username)), a.PasswordHash, a.Name, a.Role)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}
