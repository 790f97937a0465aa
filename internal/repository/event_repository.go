package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/crusade-registration/internal/model"
)

// EventRepo reads and writes locally stored events.
type EventRepo struct{ DB *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{DB: db} }

const eventColumns = `e.id, e.title, e.description, DATE_FORMAT(e.event_date, '%Y-%m-%d'), COALESCE(e.event_time,''),
	e.venue, COALESCE(e.address,''), COALESCE(e.country,''), COALESCE(e.city,''), e.category,
	COALESCE(e.image,''), e.capacity, e.featured, e.created_by, e.created_at, e.updated_at`

func scanEvent(row rowScanner) (model.Event, error) {
	var (
		e         model.Event
		capacity  sql.NullInt64
		createdBy sql.NullInt64
		created   time.Time
		updated   time.Time
	)
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.Date, &e.Time, &e.Venue, &e.Address,
		&e.Country, &e.City, &e.Category, &e.Image, &capacity, &e.Featured, &createdBy, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return e, ErrNotFound
	}
	if err != nil {
		return e, err
	}
	if capacity.Valid {
		c := int(capacity.Int64)
		e.Capacity = &c
	}
	if createdBy.Valid {
		e.Owner = model.OwnedBy(uint64(createdBy.Int64))
	}
	e.CreatedAt, e.UpdatedAt = &created, &updated
	return e, nil
}

func scanEvents(rows *sql.Rows) ([]model.Event, error) {
	defer rows.Close()
	out := []model.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// List returns one page of local events matching f together with the
// number of matching rows.  Ordering is by date, ascending for upcoming
// queries and descending otherwise.
func (r *EventRepo) List(ctx context.Context, f model.EventFilter) ([]model.Event, int, error) {
	where := []string{}
	args := []any{}

	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		where = append(where, "(LOWER(e.title) LIKE ? OR LOWER(e.venue) LIKE ? OR LOWER(COALESCE(e.address,'')) LIKE ?)")
		args = append(args, like, like, like)
	}
	if f.Category != "" {
		where = append(where, "e.category = ?")
		args = append(args, f.Category)
	}
	if f.Upcoming {
		where = append(where, "e.event_date >= ?")
		args = append(args, f.Today)
	}
	if f.Featured {
		where = append(where, "e.featured = 1")
	}

	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM events e WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}

	order := "DESC"
	if f.Upcoming {
		order = "ASC"
	}
	dataSQL := "SELECT " + eventColumns + " FROM events e WHERE " + cond +
		" ORDER BY e.event_date " + order + ", e.id " + order + " LIMIT ? OFFSET ?"
	rows, err := r.DB.QueryContext(ctx, dataSQL, append(args, f.Limit, f.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}
	events, err := scanEvents(rows)
	return events, total, err
}

// Get fetches a single local event.
func (r *EventRepo) Get(ctx context.Context, id uint64) (model.Event, error) {
	return scanEvent(r.DB.QueryRowContext(ctx, "SELECT "+eventColumns+" FROM events e WHERE e.id=?", id))
}

// Exists reports whether a local event with id is stored.
func (r *EventRepo) Exists(ctx context.Context, id uint64) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx, "SELECT 1 FROM events WHERE id=? LIMIT 1", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// Create stores e under the next free id (never below
// model.FirstLocalEventID) and returns the stored row.  A concurrent
// insert that grabs the same id surfaces as ErrDuplicate; callers may retry.
func (r *EventRepo) Create(ctx context.Context, e model.Event) (model.Event, error) {
	var maxID sql.NullInt64
	if err := r.DB.QueryRowContext(ctx, "SELECT MAX(id) FROM events").Scan(&maxID); err != nil {
		return model.Event{}, fmt.Errorf("next event id: %w", err)
	}
	id := model.FirstLocalEventID
	if maxID.Valid && uint64(maxID.Int64)+1 > id {
		id = uint64(maxID.Int64) + 1
	}

	var createdBy any
	if uid, ok := e.Owner.UserID(); ok {
		createdBy = uid
	}
	var capacity any
	if e.Capacity != nil {
		capacity = *e.Capacity
	}
	category := e.Category
	if category == "" {
		category = model.DefaultCategory
	}

	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO events (id, title, description, event_date, event_time, venue, address, country, city, category, image, capacity, featured, created_by)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		id, e.Title, e.Description, e.Date, nullString(e.Time), e.Venue, nullString(e.Address),
		nullString(e.Country), nullString(e.City), category, nullString(e.Image), capacity, e.Featured, createdBy)
	if err != nil {
		if isDuplicate(err) {
			return model.Event{}, ErrDuplicate
		}
		return model.Event{}, fmt.Errorf("insert event: %w", err)
	}
	return r.Get(ctx, id)
}

// Delete removes an event along with its tickets and staff grants.
func (r *EventRepo) Delete(ctx context.Context, id uint64) error {
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

	if _, err := tx.ExecContext(ctx, "DELETE FROM tickets WHERE event_id=?", id); err != nil {
		return fmt.Errorf("delete tickets of event %d: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM event_staff WHERE event_id=?", id); err != nil {
		return fmt.Errorf("delete staff of event %d: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM events WHERE id=?", id)
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

// ListByCreator returns events created by userID, newest date first.
func (r *EventRepo) ListByCreator(ctx context.Context, userID uint64) ([]model.Event, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+eventColumns+" FROM events e WHERE e.created_by=? ORDER BY e.event_date DESC", userID)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

// ListAll returns every local event for the admin panel.
func (r *EventRepo) ListAll(ctx context.Context) ([]model.Event, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+eventColumns+" FROM events e ORDER BY e.event_date DESC")
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

// Count returns the number of local events.
func (r *EventRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM events").Scan(&n)
	return n, err
}
