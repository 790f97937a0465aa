package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/iliyamo/crusade-registration/internal/model"
)

// TicketRepo reads and writes the `tickets` table.
type TicketRepo struct{ DB *sql.DB }

func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{DB: db} }

const ticketColumns = `t.id, t.user_id, t.event_id, t.qr_code, t.registration_date, t.status,
	t.checked_in_at, t.checked_in_by, t.created_at, t.updated_at`

func scanTicket(row rowScanner) (model.Ticket, error) {
	var (
		t         model.Ticket
		checkedAt sql.NullTime
		checkedBy sql.NullInt64
	)
	err := row.Scan(&t.ID, &t.UserID, &t.EventID, &t.QRCode, &t.RegistrationDate, &t.Status,
		&checkedAt, &checkedBy, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	if checkedAt.Valid {
		at := checkedAt.Time
		t.CheckedInAt = &at
	}
	if checkedBy.Valid {
		by := uint64(checkedBy.Int64)
		t.CheckedInBy = &by
	}
	return t, nil
}

func scanTickets(rows *sql.Rows) ([]model.Ticket, error) {
	defer rows.Close()
	out := []model.Ticket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Create inserts an active ticket.  The unique indexes on (user_id,
// event_id) and qr_code surface as ErrDuplicate.
func (r *TicketRepo) Create(ctx context.Context, t model.Ticket) (model.Ticket, error) {
	if t.Status == "" {
		t.Status = model.TicketActive
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO tickets (user_id, event_id, qr_code, registration_date, status) VALUES (?,?,?,?,?)",
		t.UserID, t.EventID, t.QRCode, t.RegistrationDate, t.Status)
	if err != nil {
		if isDuplicate(err) {
			return model.Ticket{}, ErrDuplicate
		}
		return model.Ticket{}, fmt.Errorf("insert ticket: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Ticket{}, err
	}
	return r.GetByID(ctx, uint64(id))
}

// Exists reports whether userID already holds a ticket for eventID.
func (r *TicketRepo) Exists(ctx context.Context, userID, eventID uint64) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM tickets WHERE user_id=? AND event_id=? LIMIT 1", userID, eventID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// QRCodeExists reports whether code is already assigned.
func (r *TicketRepo) QRCodeExists(ctx context.Context, code string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx, "SELECT 1 FROM tickets WHERE qr_code=? LIMIT 1", code).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// CountByEvent returns how many tickets reference eventID.
func (r *TicketRepo) CountByEvent(ctx context.Context, eventID uint64) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM tickets WHERE event_id=?", eventID).Scan(&n)
	return n, err
}

// CountByEventStatus counts tickets of eventID in the given status.
func (r *TicketRepo) CountByEventStatus(ctx context.Context, eventID uint64, status model.TicketStatus) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM tickets WHERE event_id=? AND status=?", eventID, status).Scan(&n)
	return n, err
}

// GetByID fetches a ticket by id.
func (r *TicketRepo) GetByID(ctx context.Context, id uint64) (model.Ticket, error) {
	return scanTicket(r.DB.QueryRowContext(ctx, "SELECT "+ticketColumns+" FROM tickets t WHERE t.id=?", id))
}

// GetByQRCode fetches a ticket by its qr code.
func (r *TicketRepo) GetByQRCode(ctx context.Context, code string) (model.Ticket, error) {
	return scanTicket(r.DB.QueryRowContext(ctx, "SELECT "+ticketColumns+" FROM tickets t WHERE t.qr_code=?", code))
}

// GetByRef resolves ref as a numeric id first and as a qr code otherwise.
func (r *TicketRepo) GetByRef(ctx context.Context, ref string) (model.Ticket, error) {
	if id, err := strconv.ParseUint(ref, 10, 64); err == nil {
		t, err := r.GetByID(ctx, id)
		if !errors.Is(err, ErrNotFound) {
			return t, err
		}
	}
	return r.GetByQRCode(ctx, ref)
}

// MarkUsed moves an active ticket to used and stamps the check-in.  It
// returns ErrConflict when the ticket is no longer active.
func (r *TicketRepo) MarkUsed(ctx context.Context, id, by uint64, at time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE tickets SET status='used', checked_in_at=?, checked_in_by=? WHERE id=? AND status='active'",
		at.UTC(), by, id)
	if err != nil {
		return fmt.Errorf("check in ticket %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrConflict
	}
	return nil
}

// ListByUser returns a user's tickets, newest first.
func (r *TicketRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Ticket, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+ticketColumns+" FROM tickets t WHERE t.user_id=? ORDER BY t.created_at DESC, t.id DESC", userID)
	if err != nil {
		return nil, err
	}
	return scanTickets(rows)
}

// AttendeeRow is a ticket joined with its holder.
type AttendeeRow struct {
	Ticket model.Ticket
	User   model.UserSummary
}

// ListAttendees returns one page of an event's tickets with holder
// summaries, plus the total ticket count.
func (r *TicketRepo) ListAttendees(ctx context.Context, eventID uint64, limit, offset int) ([]AttendeeRow, int, error) {
	total, err := r.CountByEvent(ctx, eventID)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+ticketColumns+`, u.id, u.full_name, u.email, COALESCE(u.avatar,''), COALESCE(u.church,''), u.country
		 FROM tickets t JOIN users u ON u.id = t.user_id
		 WHERE t.event_id=? ORDER BY t.created_at DESC, t.id DESC LIMIT ? OFFSET ?`, eventID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []AttendeeRow{}
	for rows.Next() {
		var (
			a         AttendeeRow
			checkedAt sql.NullTime
			checkedBy sql.NullInt64
		)
		t := &a.Ticket
		if err := rows.Scan(&t.ID, &t.UserID, &t.EventID, &t.QRCode, &t.RegistrationDate, &t.Status,
			&checkedAt, &checkedBy, &t.CreatedAt, &t.UpdatedAt,
			&a.User.ID, &a.User.FullName, &a.User.Email, &a.User.Avatar, &a.User.Church, &a.User.Country); err != nil {
			return nil, 0, err
		}
		if checkedAt.Valid {
			at := checkedAt.Time
			t.CheckedInAt = &at
		}
		if checkedBy.Valid {
			by := uint64(checkedBy.Int64)
			t.CheckedInBy = &by
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}

// Latest returns the most recent tickets across all events.
func (r *TicketRepo) Latest(ctx context.Context, limit int) ([]model.Ticket, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+ticketColumns+" FROM tickets t ORDER BY t.created_at DESC, t.id DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	return scanTickets(rows)
}

// Stats returns how many tickets userID holds and how many were used.
func (r *TicketRepo) Stats(ctx context.Context, userID uint64) (total, used int, err error) {
	err = r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(status='used'),0) FROM tickets WHERE user_id=?", userID).
		Scan(&total, &used)
	return
}

// CountAll counts every ticket, optionally restricted to one status.
func (r *TicketRepo) CountAll(ctx context.Context, status model.TicketStatus) (int, error) {
	q := "SELECT COUNT(*) FROM tickets"
	args := []any{}
	if status != "" {
		q += " WHERE status=?"
		args = append(args, status)
	}
	var n int
	err := r.DB.QueryRowContext(ctx, q, args...).Scan(&n)
	return n, err
}
