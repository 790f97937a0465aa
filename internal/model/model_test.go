package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to TicketStatus
		ok       bool
	}{
		{TicketActive, TicketUsed, true},
		{TicketActive, TicketCancelled, true},
		{TicketUsed, TicketActive, false},
		{TicketUsed, TicketCancelled, false},
		{TicketCancelled, TicketUsed, false},
		{TicketActive, TicketActive, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, tc.from.CanTransition(tc.to), "%s -> %s", tc.from, tc.to)
	}
	assert.True(t, TicketUsed.Terminal())
	assert.True(t, TicketCancelled.Terminal())
	assert.False(t, TicketActive.Terminal())
}

func TestOwnerUnion(t *testing.T) {
	owned := OwnedBy(42)
	id, ok := owned.UserID()
	assert.True(t, ok)
	assert.Equal(t, uint64(42), id)
	assert.True(t, owned.Is(42))
	assert.False(t, owned.Is(7))

	ext := ExternalOwner()
	assert.True(t, ext.IsExternal())
	assert.False(t, ext.Is(0), "external events are owned by nobody, not user 0")

	b, err := json.Marshal(struct {
		A Owner `json:"a"`
		B Owner `json:"b"`
	}{owned, ext})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":42,"b":"external"}`, string(b))

	var back struct {
		A Owner `json:"a"`
		B Owner `json:"b"`
	}
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, back.A.Is(42))
	assert.True(t, back.B.IsExternal())
}

func TestRecipientUnion(t *testing.T) {
	assert.True(t, Broadcast().Reaches(99))
	assert.True(t, ToUser(5).Reaches(5))
	assert.False(t, ToUser(5).Reaches(6))

	b, err := json.Marshal([]Recipient{ToUser(3), Broadcast()})
	require.NoError(t, err)
	assert.JSONEq(t, `[3,"all"]`, string(b))
}

func TestEventCapped(t *testing.T) {
	limit := 10
	e := Event{Capacity: &limit}
	n, ok := e.Capped()
	assert.True(t, ok)
	assert.Equal(t, 10, n)

	e.External = true
	_, ok = e.Capped()
	assert.False(t, ok, "external events are uncapped")

	_, ok = Event{}.Capped()
	assert.False(t, ok)
}

func TestEventMatchesSearch(t *testing.T) {
	e := Event{Title: "Healing Streams", Venue: "National Stadium", Address: "Lagos"}
	assert.True(t, e.MatchesSearch("stadium"))
	assert.True(t, e.MatchesSearch("LAGOS"))
	assert.True(t, e.MatchesSearch(""))
	assert.False(t, e.MatchesSearch("Accra"))
}

func TestTestimonyViewUsesContent(t *testing.T) {
	v := Testimony{ID: 1, Title: "t", Text: "body", Status: TestimonyPending}.View()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"content":"body"`)
	assert.NotContains(t, string(b), `"text"`)
}

func TestTestimonyVisibility(t *testing.T) {
	pending := Testimony{UserID: 3, Status: TestimonyPending}
	assert.False(t, pending.VisibleTo(0))
	assert.False(t, pending.VisibleTo(4))
	assert.True(t, pending.VisibleTo(3))
	assert.True(t, Testimony{Status: TestimonyApproved}.VisibleTo(0))
	assert.False(t, Testimony{Status: TestimonyApproved}.Editable())
	assert.True(t, Testimony{Status: TestimonyRejected}.Editable())
}

func TestNewPagination(t *testing.T) {
	assert.Equal(t, Pagination{Total: 41, Page: 2, PerPage: 20, TotalPages: 3}, NewPagination(41, 2, 20))
	assert.Equal(t, 0, NewPagination(0, 1, 20).TotalPages)
	assert.Equal(t, 0, NewPagination(5, 1, 0).TotalPages)
}

func TestUserPublicHidesHash(t *testing.T) {
	u := User{ID: 1, Email: "a@b.co", PasswordHash: "secret", Group: "G1"}
	b, err := json.Marshal(u.Public())
	require.NoError(t, err)
	assert.NotContains(t, string(b), "secret")
	assert.Contains(t, string(b), `"group":"G1"`)
}

func TestToday(t *testing.T) {
	loc := time.FixedZone("WAT", 3600)
	assert.Equal(t, "2026-01-01", Today(time.Date(2026, 1, 1, 0, 30, 0, 0, time.UTC).In(loc)))
}
