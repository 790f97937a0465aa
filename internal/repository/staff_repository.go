package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/crusade-registration/internal/model"
)

// StaffRepo reads and writes `event_staff` grants.
type StaffRepo struct{ DB *sql.DB }

func NewStaffRepo(db *sql.DB) *StaffRepo { return &StaffRepo{DB: db} }

// RoleFor returns the role userID holds on eventID, or ErrNotFound.
func (r *StaffRepo) RoleFor(ctx context.Context, eventID, userID uint64) (model.StaffRole, error) {
	var role model.StaffRole
	err := r.DB.QueryRowContext(ctx,
		"SELECT role FROM event_staff WHERE event_id=? AND user_id=? LIMIT 1", eventID, userID).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return role, err
}

// Add grants a role.  A second grant for the same (event, user) returns
// ErrDuplicate.
func (r *StaffRepo) Add(ctx context.Context, s model.EventStaff) (model.EventStaff, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO event_staff (event_id, user_id, role, added_by) VALUES (?,?,?,?)",
		s.EventID, s.UserID, s.Role, s.AddedBy)
	if err != nil {
		if isDuplicate(err) {
			return model.EventStaff{}, ErrDuplicate
		}
		return model.EventStaff{}, fmt.Errorf("insert staff: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.EventStaff{}, err
	}
	return r.Get(ctx, s.EventID, uint64(id))
}

const staffSelect = `SELECT s.id, s.event_id, s.user_id, s.role, s.added_by, s.created_at,
	u.id, u.full_name, u.email, COALESCE(u.avatar,''), COALESCE(u.church,''), u.country
	FROM event_staff s LEFT JOIN users u ON u.id = s.user_id`

func scanStaff(row rowScanner) (model.EventStaff, error) {
	var (
		s                                    model.EventStaff
		uid                                  sql.NullInt64
		name, email, avatar, church, country sql.NullString
	)
	err := row.Scan(&s.ID, &s.EventID, &s.UserID, &s.Role, &s.AddedBy, &s.CreatedAt,
		&uid, &name, &email, &avatar, &church, &country)
	if errors.Is(err, sql.ErrNoRows) {
		return s, ErrNotFound
	}
	if err != nil {
		return s, err
	}
	if uid.Valid {
		s.User = &model.UserSummary{
			ID:       uint64(uid.Int64),
			FullName: name.String,
			Email:    email.String,
			Avatar:   avatar.String,
			Church:   church.String,
			Country:  country.String,
		}
	}
	return s, nil
}

// Get fetches one grant scoped to its event.
func (r *StaffRepo) Get(ctx context.Context, eventID, staffID uint64) (model.EventStaff, error) {
	return scanStaff(r.DB.QueryRowContext(ctx, staffSelect+" WHERE s.id=? AND s.event_id=?", staffID, eventID))
}

// ListByEvent returns an event's staff with user summaries.
func (r *StaffRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.EventStaff, error) {
	rows, err := r.DB.QueryContext(ctx, staffSelect+" WHERE s.event_id=? ORDER BY s.created_at, s.id", eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.EventStaff{}
	for rows.Next() {
		s, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListByUser returns every grant held by userID.
func (r *StaffRepo) ListByUser(ctx context.Context, userID uint64) ([]model.EventStaff, error) {
	rows, err := r.DB.QueryContext(ctx, staffSelect+" WHERE s.user_id=? ORDER BY s.created_at DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.EventStaff{}
	for rows.Next() {
		s, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// CountByEvent returns the number of staff on eventID.
func (r *StaffRepo) CountByEvent(ctx context.Context, eventID uint64) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM event_staff WHERE event_id=?", eventID).Scan(&n)
	return n, err
}

// Remove deletes a grant scoped to its event.
func (r *StaffRepo) Remove(ctx context.Context, eventID, staffID uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM event_staff WHERE id=? AND event_id=?", staffID, eventID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
