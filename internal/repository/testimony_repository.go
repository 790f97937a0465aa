package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/crusade-registration/internal/model"
)

// TestimonyRepo reads and writes testimonies and their likes.
type TestimonyRepo struct{ DB *sql.DB }

func NewTestimonyRepo(db *sql.DB) *TestimonyRepo { return &TestimonyRepo{DB: db} }

// TestimonyRow is a testimony joined with the counters listings show.
// EventTitle is empty for events that are not stored locally.
type TestimonyRow struct {
	model.Testimony
	UserName   string
	EventTitle string
	Likes      int
	Liked      bool
}

const testimonyColumns = `t.id, t.user_id, t.title, t.body, t.event_id, t.category_id, COALESCE(t.image,''),
	t.status, t.created_at, t.updated_at`

func scanTestimony(row rowScanner, extra ...any) (model.Testimony, error) {
	var (
		t        model.Testimony
		eventID  sql.NullInt64
		category sql.NullInt64
	)
	dest := append([]any{&t.ID, &t.UserID, &t.Title, &t.Text, &eventID, &category, &t.Image,
		&t.Status, &t.CreatedAt, &t.UpdatedAt}, extra...)
	err := row.Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	if eventID.Valid {
		id := uint64(eventID.Int64)
		t.EventID = &id
	}
	if category.Valid {
		id := uint64(category.Int64)
		t.CategoryID = &id
	}
	return t, nil
}

// filterClause renders the WHERE clause shared by List's count and data
// queries.
func filterClause(f model.TestimonyFilter) (string, []any) {
	where := []string{}
	args := []any{}

	switch {
	case f.Moderation:
		if f.Status != "" {
			where = append(where, "t.status = ?")
			args = append(args, f.Status)
		}
	case f.Mine:
		where = append(where, "t.user_id = ?")
		args = append(args, f.Viewer)
	case f.Viewer != 0:
		where = append(where, "(t.status = 'approved' OR t.user_id = ?)")
		args = append(args, f.Viewer)
	default:
		where = append(where, "t.status = 'approved'")
	}
	if f.EventID != nil {
		where = append(where, "t.event_id = ?")
		args = append(args, *f.EventID)
	}
	if f.CategoryID != nil {
		where = append(where, "t.category_id = ?")
		args = append(args, *f.CategoryID)
	}
	if f.CategorySlug != "" {
		where = append(where, "t.category_id = (SELECT c.id FROM testimony_categories c WHERE c.slug = ?)")
		args = append(args, f.CategorySlug)
	}

	if len(where) == 0 {
		return "1=1", args
	}
	return strings.Join(where, " AND "), args
}

// List returns one page of testimonies matching f, newest first, and the
// total number of matches.
func (r *TestimonyRepo) List(ctx context.Context, f model.TestimonyFilter) ([]TestimonyRow, int, error) {
	cond, args := filterClause(f)

	var total int
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM testimonies t WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count testimonies: %w", err)
	}

	offset := 0
	if f.Page > 1 {
		offset = (f.Page - 1) * f.Limit
	}
	q := "SELECT " + testimonyColumns + `,
			COALESCE(u.full_name,''), COALESCE(e.title,''),
			(SELECT COUNT(*) FROM testimony_likes l WHERE l.testimony_id = t.id),
			EXISTS(SELECT 1 FROM testimony_likes l WHERE l.testimony_id = t.id AND l.user_id = ?)
		FROM testimonies t
		LEFT JOIN users u  ON u.id = t.user_id
		LEFT JOIN events e ON e.id = t.event_id
		WHERE ` + cond + " ORDER BY t.created_at DESC, t.id DESC LIMIT ? OFFSET ?"
	qargs := append([]any{f.Viewer}, args...)
	qargs = append(qargs, f.Limit, offset)

	rows, err := r.DB.QueryContext(ctx, q, qargs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list testimonies: %w", err)
	}
	defer rows.Close()

	out := []TestimonyRow{}
	for rows.Next() {
		var row TestimonyRow
		t, err := scanTestimony(rows, &row.UserName, &row.EventTitle, &row.Likes, &row.Liked)
		if err != nil {
			return nil, 0, err
		}
		row.Testimony = t
		out = append(out, row)
	}
	return out, total, rows.Err()
}

// Get fetches a testimony with counters from viewer's perspective.
func (r *TestimonyRepo) Get(ctx context.Context, id, viewer uint64) (TestimonyRow, error) {
	var row TestimonyRow
	t, err := scanTestimony(r.DB.QueryRowContext(ctx, "SELECT "+testimonyColumns+`,
			COALESCE(u.full_name,''), COALESCE(e.title,''),
			(SELECT COUNT(*) FROM testimony_likes l WHERE l.testimony_id = t.id),
			EXISTS(SELECT 1 FROM testimony_likes l WHERE l.testimony_id = t.id AND l.user_id = ?)
		FROM testimonies t
		LEFT JOIN users u  ON u.id = t.user_id
		LEFT JOIN events e ON e.id = t.event_id
		WHERE t.id = ?`, viewer, id), &row.UserName, &row.EventTitle, &row.Likes, &row.Liked)
	row.Testimony = t
	return row, err
}

// Create stores a pending testimony and returns its id.
func (r *TestimonyRepo) Create(ctx context.Context, t model.Testimony) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO testimonies (user_id, title, body, event_id, category_id, image, status) VALUES (?,?,?,?,?,?,?)",
		t.UserID, t.Title, t.Text, nullID(t.EventID), nullID(t.CategoryID), nullString(t.Image), model.TestimonyPending)
	if err != nil {
		return 0, fmt.Errorf("insert testimony: %w", err)
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}

// Update overwrites the author-editable columns of t.
func (r *TestimonyRepo) Update(ctx context.Context, t model.Testimony) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE testimonies SET title=?, body=?, event_id=?, category_id=?, image=? WHERE id=?",
		t.Title, t.Text, nullID(t.EventID), nullID(t.CategoryID), nullString(t.Image), t.ID)
	return err
}

// SetStatus records a moderation decision.
func (r *TestimonyRepo) SetStatus(ctx context.Context, id uint64, status model.TestimonyStatus) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE testimonies SET status=? WHERE id=?", status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a testimony; likes go with it through the foreign key.
func (r *TestimonyRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM testimonies WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ToggleLike adds userID's like when absent and removes it otherwise.  It
// returns whether the user now likes the testimony and the new count.
func (r *TestimonyRepo) ToggleLike(ctx context.Context, id, userID uint64) (bool, int, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, "DELETE FROM testimony_likes WHERE testimony_id=? AND user_id=?", id, userID)
	if err != nil {
		return false, 0, err
	}
	liked := false
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := tx.ExecContext(ctx,
			"INSERT IGNORE INTO testimony_likes (testimony_id, user_id) VALUES (?,?)", id, userID); err != nil {
			return false, 0, err
		}
		liked = true
	}

	var count int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM testimony_likes WHERE testimony_id=?", id).Scan(&count); err != nil {
		return false, 0, err
	}
	if err := tx.Commit(); err != nil {
		return false, 0, err
	}
	committed = true
	return liked, count, nil
}

// CountByUser returns how many testimonies userID wrote and how many of
// them are approved.
func (r *TestimonyRepo) CountByUser(ctx context.Context, userID uint64) (total, approved int, err error) {
	err = r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(status='approved'),0) FROM testimonies WHERE user_id=?", userID).
		Scan(&total, &approved)
	return
}

// CountAll counts testimonies, optionally restricted to one status.
func (r *TestimonyRepo) CountAll(ctx context.Context, status model.TestimonyStatus) (int, error) {
	q := "SELECT COUNT(*) FROM testimonies"
	args := []any{}
	if status != "" {
		q += " WHERE status=?"
		args = append(args, status)
	}
	var n int
	err := r.DB.QueryRowContext(ctx, q, args...).Scan(&n)
	return n, err
}

func nullID(id *uint64) any {
	if id == nil {
		return nil
	}
	return *id
}
