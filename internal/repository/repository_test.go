package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/crusade-registration/internal/model"
)

// newMock returns a sqlmock-backed *sql.DB.  Expectations are verified
// when the test finishes.
func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

var dupErr = &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}

var ticketCols = []string{"id", "user_id", "event_id", "qr_code", "registration_date", "status",
	"checked_in_at", "checked_in_by", "created_at", "updated_at"}

var eventCols = []string{"id", "title", "description", "date", "time", "venue", "address", "country",
	"city", "category", "image", "capacity", "featured", "created_by", "created_at", "updated_at"}

func TestIsDuplicate(t *testing.T) {
	assert.True(t, isDuplicate(dupErr))
	assert.True(t, isDuplicate(fmt.Errorf("wrapped: %w", dupErr)))
	assert.False(t, isDuplicate(&mysql.MySQLError{Number: 1452}))
	assert.False(t, isDuplicate(errors.New("boom")))
	assert.False(t, isDuplicate(nil))
}

func TestTicketCreateDuplicate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTicketRepo(db)

	mock.ExpectExec("INSERT INTO tickets").
		WithArgs(uint64(7), uint64(1001), "abcdef012345", "2025-06-01", model.TicketActive).
		WillReturnError(dupErr)

	_, err := repo.Create(context.Background(), model.Ticket{
		UserID: 7, EventID: 1001, QRCode: "abcdef012345", RegistrationDate: "2025-06-01",
	})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestTicketCreateReadsBack(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTicketRepo(db)
	now := time.Now().UTC()

	mock.ExpectExec("INSERT INTO tickets").WillReturnResult(sqlmock.NewResult(55, 1))
	mock.ExpectQuery("FROM tickets t WHERE t.id=").
		WithArgs(uint64(55)).
		WillReturnRows(sqlmock.NewRows(ticketCols).
			AddRow(55, 7, 1001, "abcdef012345", "2025-06-01", "active", nil, nil, now, now))

	tk, err := repo.Create(context.Background(), model.Ticket{
		UserID: 7, EventID: 1001, QRCode: "abcdef012345", RegistrationDate: "2025-06-01",
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(55), tk.ID)
	assert.Equal(t, model.TicketActive, tk.Status)
	assert.Nil(t, tk.CheckedInAt)
	assert.Nil(t, tk.CheckedInBy)
}

func TestTicketMarkUsed(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTicketRepo(db)
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec("UPDATE tickets SET status='used'").
		WithArgs(at, uint64(3), uint64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.MarkUsed(context.Background(), 9, 3, at))

	// A second check-in finds no active row.
	mock.ExpectExec("UPDATE tickets SET status='used'").
		WithArgs(at, uint64(3), uint64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.MarkUsed(context.Background(), 9, 3, at), ErrConflict)
}

func TestTicketGetByRefFallsBackToQRCode(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTicketRepo(db)
	now := time.Now().UTC()

	// "123456789012" parses as a number but is really a qr code.
	mock.ExpectQuery("WHERE t.id=").WithArgs(uint64(123456789012)).
		WillReturnRows(sqlmock.NewRows(ticketCols))
	mock.ExpectQuery("WHERE t.qr_code=").WithArgs("123456789012").
		WillReturnRows(sqlmock.NewRows(ticketCols).
			AddRow(4, 2, 1000, "123456789012", "2025-06-01", "used", now, 1, now, now))

	tk, err := repo.GetByRef(context.Background(), "123456789012")
	require.NoError(t, err)
	assert.Equal(t, uint64(4), tk.ID)
	require.NotNil(t, tk.CheckedInBy)
	assert.Equal(t, uint64(1), *tk.CheckedInBy)
}

func TestTicketGetByRefNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTicketRepo(db)

	mock.ExpectQuery("WHERE t.qr_code=").WithArgs("nope").WillReturnRows(sqlmock.NewRows(ticketCols))
	_, err := repo.GetByRef(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEventCreateAssignsNextID(t *testing.T) {
	cases := []struct {
		name string
		max  any
		want uint64
	}{
		{"empty table", nil, 1000},
		{"only feed-range ids", int64(12), 1000},
		{"local ids present", int64(1200), 1201},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := newMock(t)
			repo := NewEventRepo(db)
			now := time.Now().UTC()

			mock.ExpectQuery("SELECT MAX").WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(tc.max))
			mock.ExpectExec("INSERT INTO events").
				WithArgs(tc.want, "Lagos Crusade", "desc", "2025-07-01", nil, "Stadium", nil,
					"Nigeria", nil, model.DefaultCategory, nil, nil, false, uint64(5)).
				WillReturnResult(sqlmock.NewResult(0, 1))
			mock.ExpectQuery("FROM events e WHERE e.id=").WithArgs(tc.want).
				WillReturnRows(sqlmock.NewRows(eventCols).AddRow(tc.want, "Lagos Crusade", "desc", "2025-07-01",
					"", "Stadium", "", "Nigeria", "", "Crusade", "", nil, false, 5, now, now))

			ev, err := repo.Create(context.Background(), model.Event{
				Title: "Lagos Crusade", Description: "desc", Date: "2025-07-01", Venue: "Stadium",
				Country: "Nigeria", Owner: model.OwnedBy(5),
			})
			require.NoError(t, err)
			assert.Equal(t, tc.want, ev.ID)
			assert.True(t, ev.Owner.Is(5))
			assert.Nil(t, ev.Capacity)
		})
	}
}

func TestEventScanExternalOwnerAndCapacity(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEventRepo(db)
	now := time.Now().UTC()

	mock.ExpectQuery("FROM events e WHERE e.id=").WithArgs(uint64(1003)).
		WillReturnRows(sqlmock.NewRows(eventCols).AddRow(1003, "t", "d", "2025-07-01", "18:00", "v", "",
			"", "", "Crusade", "", 250, true, nil, now, now))

	ev, err := repo.Get(context.Background(), 1003)
	require.NoError(t, err)
	assert.True(t, ev.Owner.IsExternal())
	require.NotNil(t, ev.Capacity)
	assert.Equal(t, 250, *ev.Capacity)
	assert.True(t, ev.Featured)
}

func TestEventListBuildsPredicates(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEventRepo(db)

	f := model.EventFilter{Search: "Stadium", Category: "Crusade", Upcoming: true, Featured: true,
		Today: "2025-06-01", Page: 2, Limit: 10}

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM events e WHERE \(LOWER\(e.title\) LIKE`).
		WithArgs("%stadium%", "%stadium%", "%stadium%", "Crusade", "2025-06-01").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(11))
	mock.ExpectQuery(`e.featured = 1 ORDER BY e.event_date ASC`).
		WithArgs("%stadium%", "%stadium%", "%stadium%", "Crusade", "2025-06-01", 10, 10).
		WillReturnRows(sqlmock.NewRows(eventCols))

	events, total, err := repo.List(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, 11, total)
	assert.Empty(t, events)
}

func TestEventDeleteCascadesInTransaction(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEventRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM tickets WHERE event_id=").WithArgs(uint64(1001)).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM event_staff WHERE event_id=").WithArgs(uint64(1001)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM events WHERE id=").WithArgs(uint64(1001)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	require.NoError(t, repo.Delete(context.Background(), 1001))
}

func TestEventDeleteRollsBackOnFailure(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEventRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM tickets WHERE event_id=").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM event_staff WHERE event_id=").WillReturnError(errors.New("lock wait timeout"))
	mock.ExpectRollback()
	assert.Error(t, repo.Delete(context.Background(), 1001))
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectExec("INSERT INTO users").WithArgs("a@b.com", "hash", "Ann", sqlmock.AnyArg(), "Ghana",
		sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(dupErr)

	_, err := repo.Create(context.Background(), model.User{Email: "  A@B.com ", PasswordHash: "hash", FullName: "Ann", Country: "Ghana"})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestUserGetByEmailNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery("FROM users WHERE email=").WithArgs("x@y.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	_, err := repo.GetByEmail(context.Background(), "X@Y.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserDeleteCascades(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM tickets WHERE user_id=").WithArgs(uint64(8)).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM event_staff WHERE user_id=").WithArgs(uint64(8)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM testimonies WHERE user_id=").WithArgs(uint64(8)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM users WHERE id=").WithArgs(uint64(8)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()
	assert.ErrorIs(t, repo.Delete(context.Background(), 8), ErrNotFound)
}

func TestResetTokenReplace(t *testing.T) {
	db, mock := newMock(t)
	repo := NewResetTokenRepo(db)
	exp := time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM password_resets WHERE email=").WithArgs("ann@x.com").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO password_resets").WithArgs("ann@x.com", "tok", exp).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	require.NoError(t, repo.Replace(context.Background(), "Ann@X.com", "tok", exp))

	mock.ExpectQuery("SELECT email FROM password_resets").WithArgs("tok", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"email"}))
	_, err := repo.EmailForToken(context.Background(), "tok", exp.Add(time.Minute))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTestimonyToggleLike(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTestimonyRepo(db)

	// First toggle: nothing to delete, so the like is inserted.
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM testimony_likes").WithArgs(uint64(3), uint64(9)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT IGNORE INTO testimony_likes").WithArgs(uint64(3), uint64(9)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT COUNT").WithArgs(uint64(3)).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(5))
	mock.ExpectCommit()

	liked, count, err := repo.ToggleLike(context.Background(), 3, 9)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.Equal(t, 5, count)

	// Second toggle removes it again.
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM testimony_likes").WithArgs(uint64(3), uint64(9)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT COUNT").WithArgs(uint64(3)).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(4))
	mock.ExpectCommit()

	liked, count, err = repo.ToggleLike(context.Background(), 3, 9)
	require.NoError(t, err)
	assert.False(t, liked)
	assert.Equal(t, 4, count)
}

func TestTestimonyFilterClause(t *testing.T) {
	eventID := uint64(1001)

	cond, args := filterClause(model.TestimonyFilter{})
	assert.Equal(t, "t.status = 'approved'", cond)
	assert.Empty(t, args)

	cond, args = filterClause(model.TestimonyFilter{Viewer: 4, EventID: &eventID})
	assert.Equal(t, "(t.status = 'approved' OR t.user_id = ?) AND t.event_id = ?", cond)
	assert.Equal(t, []any{uint64(4), uint64(1001)}, args)

	cond, args = filterClause(model.TestimonyFilter{Viewer: 4, Mine: true, CategorySlug: "healing"})
	assert.Contains(t, cond, "t.user_id = ?")
	assert.Contains(t, cond, "WHERE c.slug = ?")
	assert.Equal(t, []any{uint64(4), "healing"}, args)

	cond, args = filterClause(model.TestimonyFilter{Moderation: true})
	assert.Equal(t, "1=1", cond)
	assert.Empty(t, args)

	cond, _ = filterClause(model.TestimonyFilter{Moderation: true, Status: model.TestimonyPending})
	assert.Equal(t, "t.status = ?", cond)
}

func TestNotificationCreateForLocation(t *testing.T) {
	db, mock := newMock(t)
	repo := NewNotificationRepo(db)
	n := model.Notification{Type: model.NotifyEvent, Title: "New Crusade Near You!", Message: "m",
		Data: map[string]any{"event_id": 1001}}

	// No location means no recipients and no query.
	written, err := repo.CreateForLocation(context.Background(), n, "", "", 1)
	require.NoError(t, err)
	assert.Zero(t, written)

	mock.ExpectExec(`SELECT u.id, \?, \?, \?, \? FROM users u WHERE u.id <> \? AND u.country = \? AND u.city = \?`).
		WithArgs(model.NotifyEvent, "New Crusade Near You!", "m", `{"event_id":1001}`, uint64(1), "Ghana", "Accra").
		WillReturnResult(sqlmock.NewResult(0, 12))
	written, err = repo.CreateForLocation(context.Background(), n, "Ghana", "Accra", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(12), written)
}

func TestNotificationCreateBroadcastHasNullUser(t *testing.T) {
	db, mock := newMock(t)
	repo := NewNotificationRepo(db)

	mock.ExpectExec("INSERT INTO notifications").
		WithArgs(nil, model.NotifySystem, "Hello", "all", nil).
		WillReturnResult(sqlmock.NewResult(31, 1))
	id, err := repo.Create(context.Background(), model.Notification{
		Recipient: model.Broadcast(), Type: model.NotifySystem, Title: "Hello", Message: "all",
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(31), id)
}

func TestNotificationMarkAllRead(t *testing.T) {
	db, mock := newMock(t)
	repo := NewNotificationRepo(db)

	mock.ExpectExec(`INSERT IGNORE INTO notification_reads`).
		WithArgs(uint64(6), uint64(6)).
		WillReturnResult(sqlmock.NewResult(0, 5))
	n, err := repo.MarkAllRead(context.Background(), 6)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
}

func TestStaffAddDuplicate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewStaffRepo(db)

	mock.ExpectExec("INSERT INTO event_staff").
		WithArgs(uint64(1001), uint64(4), model.StaffChecker, uint64(2)).
		WillReturnError(dupErr)
	_, err := repo.Add(context.Background(), model.EventStaff{EventID: 1001, UserID: 4, Role: model.StaffChecker, AddedBy: 2})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestCategoryCreateUsesNextIDAndOrder(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCategoryRepo(db)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT MAX\\(id\\), MAX\\(sort_order\\)").
		WillReturnRows(sqlmock.NewRows([]string{"id", "o"}).AddRow(8, 8))
	mock.ExpectExec("INSERT INTO testimony_categories").
		WithArgs(uint64(9), "Family", "family", nil, "people-outline", "#e91e63", 9, true).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM testimony_categories WHERE id=").WithArgs(uint64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug", "description", "icon", "color", "sort_order", "active", "created_at", "updated_at"}).
			AddRow(9, "Family", "family", "", "people-outline", "#e91e63", 9, true, now, now))

	c, err := repo.Create(context.Background(), model.TestimonyCategory{
		Name: "Family", Slug: "family", Icon: "people-outline", Color: "#e91e63", Active: true,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(9), c.ID)
	assert.Equal(t, 9, c.Order)
}

func TestPlaceholders(t *testing.T) {
	ph, args := placeholders([]uint64{1, 2, 3})
	assert.Equal(t, "?,?,?", ph)
	assert.Equal(t, []any{uint64(1), uint64(2), uint64(3)}, args)
}
