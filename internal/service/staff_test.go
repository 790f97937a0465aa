package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/crusade-registration/internal/model"
)

func newStaff(t *testing.T) (*Staff, *fakeNotes) {
	t.Helper()
	c, events, tickets, notes, users := newCatalog()
	_, err := tickets.Create(context.Background(), model.Ticket{UserID: 3, EventID: 5, QRCode: "abcdefabcdef"})
	require.NoError(t, err)
	return &Staff{Events: events, Staff: c.Staff, Tickets: tickets, Users: users, Notifier: c.Notifier}, notes
}

func TestStaffAddByUserAndByQRCode(t *testing.T) {
	s, notes := newStaff(t)
	ctx := context.Background()

	g, err := s.Add(ctx, 1, 5, StaffTarget{UserID: 2, Role: model.StaffUsher})
	require.NoError(t, err)
	assert.Equal(t, model.StaffUsher, g.Role)
	assert.Equal(t, uint64(1), g.AddedBy)
	require.NotNil(t, g.User)
	assert.Equal(t, uint64(2), g.User.ID)
	assert.Equal(t, []string{"You have been added as staff!"}, notes.titles(2))

	g, err = s.Add(ctx, 1, 5, StaffTarget{QRCode: "abcdefabcdef"})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), g.UserID)
	assert.Equal(t, model.StaffChecker, g.Role, "role defaults to checker")

	list, err := s.List(ctx, 2, 5)
	require.NoError(t, err, "staff may list their colleagues")
	assert.Len(t, list, 2)
}

func TestStaffAddRules(t *testing.T) {
	s, _ := newStaff(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		actor  uint64
		event  uint64
		target StaffTarget
		want   error
	}{
		{"not creator", 2, 5, StaffTarget{UserID: 3}, ErrNotEventCreator},
		{"unknown event", 1, 404, StaffTarget{UserID: 3}, ErrEventNotFound},
		{"no target", 1, 5, StaffTarget{}, ErrStaffTargetRequired},
		{"bad role", 1, 5, StaffTarget{UserID: 3, Role: "bouncer"}, ErrInvalidStaffRole},
		{"unknown qr", 1, 5, StaffTarget{QRCode: "ffffffffffff"}, ErrStaffQRNotFound},
		{"unknown user", 1, 5, StaffTarget{UserID: 77}, ErrUserNotFound},
		{"self", 1, 5, StaffTarget{UserID: 1}, ErrStaffSelf},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Add(ctx, tc.actor, tc.event, tc.target)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, err := s.Add(ctx, 1, 5, StaffTarget{UserID: 3})
	require.NoError(t, err)
	_, err = s.Add(ctx, 1, 5, StaffTarget{UserID: 3})
	assert.ErrorIs(t, err, ErrAlreadyStaff)
}

func TestStaffRemoveCreatorOnly(t *testing.T) {
	s, _ := newStaff(t)
	ctx := context.Background()
	g, err := s.Add(ctx, 1, 5, StaffTarget{UserID: 2})
	require.NoError(t, err)

	assert.ErrorIs(t, s.Remove(ctx, 2, 5, g.ID), ErrNotEventCreator)
	require.NoError(t, s.Remove(ctx, 1, 5, g.ID))
	assert.ErrorIs(t, s.Remove(ctx, 1, 5, g.ID), ErrStaffNotFound)
}

func TestAttendeesRequireCreatorOrStaff(t *testing.T) {
	s, _ := newStaff(t)
	ctx := context.Background()

	_, err := s.Attendees(ctx, 4, 5, 1, 0)
	assert.ErrorIs(t, err, ErrNotCreatorOrStaff)

	page, err := s.Attendees(ctx, 1, 5, 1, 0)
	require.NoError(t, err)
	require.Len(t, page.Attendees, 1)
	require.NotNil(t, page.Attendees[0].User)
	assert.Equal(t, "Abuja Fan", page.Attendees[0].User.FullName)
	assert.Equal(t, model.NewPagination(1, 1, DefaultAttendeeLimit), page.Pagination)
}
