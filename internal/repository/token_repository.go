package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// ResetTokenRepo persists password reset tokens.  A new request for an
// email supersedes any earlier token for it.
type ResetTokenRepo struct{ DB *sql.DB }

func NewResetTokenRepo(db *sql.DB) *ResetTokenRepo { return &ResetTokenRepo{DB: db} }

// Replace deletes outstanding tokens for email and stores a new one.
func (r *ResetTokenRepo) Replace(ctx context.Context, email, token string, exp time.Time) error {
	email = strings.ToLower(strings.TrimSpace(email))
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
	if _, err := tx.ExecContext(ctx, "DELETE FROM password_resets WHERE email=?", email); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO password_resets (email, token, expires_at) VALUES (?,?,?)",
		email, token, exp.UTC()); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// EmailForToken returns the email bound to an unexpired token.
func (r *ResetTokenRepo) EmailForToken(ctx context.Context, token string, now time.Time) (string, error) {
	var email string
	err := r.DB.QueryRowContext(ctx,
		"SELECT email FROM password_resets WHERE token=? AND expires_at > ? LIMIT 1",
		token, now.UTC()).Scan(&email)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return email, err
}

// Consume deletes a token once it has been used.
func (r *ResetTokenRepo) Consume(ctx context.Context, token string) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM password_resets WHERE token=?", token)
	return err
}
