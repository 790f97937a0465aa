package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/crusade-registration/internal/model"
)

// NotificationRepo stores notifications and per-reader read markers.
type NotificationRepo struct{ DB *sql.DB }

func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{DB: db} }

// visibleTo is the predicate for notifications addressed to ? or broadcast.
const visibleTo = "(n.user_id = ? OR n.user_id IS NULL)"

func encodeData(data map[string]any) (any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Create stores n and returns its id.
func (r *NotificationRepo) Create(ctx context.Context, n model.Notification) (uint64, error) {
	data, err := encodeData(n.Data)
	if err != nil {
		return 0, fmt.Errorf("encode notification data: %w", err)
	}
	var userID any
	if id, ok := n.Recipient.UserID(); ok {
		userID = id
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO notifications (user_id, type, title, message, data) VALUES (?,?,?,?,?)",
		userID, n.Type, n.Title, n.Message, data)
	if err != nil {
		return 0, fmt.Errorf("insert notification: %w", err)
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}

// CreateForLocation addresses a copy of n to every user in country
// and/or city except one.  Empty location arguments are not matched on;
// when both are empty nothing is inserted.  It returns the number of rows
// written.
func (r *NotificationRepo) CreateForLocation(ctx context.Context, n model.Notification, country, city string, exclude uint64) (int64, error) {
	where := []string{"u.id <> ?"}
	args := []any{}
	if country != "" {
		where = append(where, "u.country = ?")
	}
	if city != "" {
		where = append(where, "u.city = ?")
	}
	if len(where) == 1 {
		return 0, nil
	}

	data, err := encodeData(n.Data)
	if err != nil {
		return 0, fmt.Errorf("encode notification data: %w", err)
	}
	args = append(args, n.Type, n.Title, n.Message, data, exclude)
	if country != "" {
		args = append(args, country)
	}
	if city != "" {
		args = append(args, city)
	}

	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO notifications (user_id, type, title, message, data)
		 SELECT u.id, ?, ?, ?, ? FROM users u WHERE `+strings.Join(where, " AND "), args...)
	if err != nil {
		return 0, fmt.Errorf("fan out notification: %w", err)
	}
	return res.RowsAffected()
}

// Get fetches a notification without read state.
func (r *NotificationRepo) Get(ctx context.Context, id uint64) (model.Notification, error) {
	var (
		n      model.Notification
		userID sql.NullInt64
		data   []byte
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, user_id, type, title, message, data, created_at FROM notifications WHERE id=?", id).
		Scan(&n.ID, &userID, &n.Type, &n.Title, &n.Message, &data, &n.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return n, ErrNotFound
	}
	if err != nil {
		return n, err
	}
	if userID.Valid {
		n.Recipient = model.ToUser(uint64(userID.Int64))
	}
	if len(data) > 0 {
		_ = json.Unmarshal(data, &n.Data)
	}
	return n, nil
}

// List returns one page of the notifications userID can see, newest
// first, with the per-reader read flag, plus the total.
func (r *NotificationRepo) List(ctx context.Context, userID uint64, limit, offset int) ([]model.Notification, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM notifications n WHERE "+visibleTo, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx,
		`SELECT n.id, n.user_id, n.type, n.title, n.message, n.data, n.created_at, (rd.user_id IS NOT NULL)
		 FROM notifications n
		 LEFT JOIN notification_reads rd ON rd.notification_id = n.id AND rd.user_id = ?
		 WHERE `+visibleTo+`
		 ORDER BY n.created_at DESC, n.id DESC LIMIT ? OFFSET ?`, userID, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	out := []model.Notification{}
	for rows.Next() {
		var (
			n   model.Notification
			uid sql.NullInt64
			raw []byte
		)
		if err := rows.Scan(&n.ID, &uid, &n.Type, &n.Title, &n.Message, &raw, &n.CreatedAt, &n.Read); err != nil {
			return nil, 0, err
		}
		if uid.Valid {
			n.Recipient = model.ToUser(uint64(uid.Int64))
		}
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &n.Data)
		}
		out = append(out, n)
	}
	return out, total, rows.Err()
}

// UnreadCount counts the notifications userID can see but has not read.
func (r *NotificationRepo) UnreadCount(ctx context.Context, userID uint64) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications n
		 WHERE `+visibleTo+`
		   AND NOT EXISTS (SELECT 1 FROM notification_reads rd WHERE rd.notification_id = n.id AND rd.user_id = ?)`,
		userID, userID).Scan(&n)
	return n, err
}

// MarkRead records that userID read notification id.  Marking twice is
// a no-op.
func (r *NotificationRepo) MarkRead(ctx context.Context, id, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT IGNORE INTO notification_reads (notification_id, user_id) VALUES (?,?)", id, userID)
	return err
}

// MarkAllRead marks every notification visible to userID as read by them.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID uint64) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT IGNORE INTO notification_reads (notification_id, user_id)
		 SELECT n.id, ? FROM notifications n WHERE `+visibleTo, userID, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return res.RowsAffected()
}
