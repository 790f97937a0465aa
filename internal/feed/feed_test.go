package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/crusade-registration/internal/model"
)

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClientFetchShapes(t *testing.T) {
	item := `{"id":5,"title":"Accra Crusade","description":"d","date":"2025-07-01","venue":"Stadium","city":"Accra"}`
	cases := map[string]string{
		"bare array":       `[` + item + `]`,
		"crusades wrapper": `{"crusades":[` + item + `]}`,
		"data wrapper":     `{"data":[` + item + `]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			srv := serve(t, http.StatusOK, body)
			events, err := NewClient(srv.URL).Fetch(context.Background())
			require.NoError(t, err)
			require.Len(t, events, 1)

			ev := events[0]
			assert.Equal(t, uint64(5), ev.ID)
			assert.Equal(t, "Accra", ev.City)
			assert.True(t, ev.External)
			assert.True(t, ev.Featured)
			assert.True(t, ev.Owner.IsExternal())
			assert.Equal(t, model.DefaultCategory, ev.Category)
			_, capped := ev.Capped()
			assert.False(t, capped)
		})
	}
}

func TestClientFetchErrors(t *testing.T) {
	t.Run("non-200", func(t *testing.T) {
		srv := serve(t, http.StatusBadGateway, `[]`)
		_, err := NewClient(srv.URL).Fetch(context.Background())
		assert.Error(t, err)
	})
	t.Run("object without array", func(t *testing.T) {
		srv := serve(t, http.StatusOK, `{"status":"ok"}`)
		_, err := NewClient(srv.URL).Fetch(context.Background())
		assert.Error(t, err)
	})
	t.Run("timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer srv.Close()
		_, err := NewClient(srv.URL, WithTimeout(20*time.Millisecond)).Fetch(context.Background())
		assert.Error(t, err)
	})
}

type stubFetcher struct {
	events []model.Event
	err    error
	calls  atomic.Int32
}

func (s *stubFetcher) Fetch(context.Context) ([]model.Event, error) {
	s.calls.Add(1)
	return s.events, s.err
}

func TestSourceServesFreshCacheWithoutFetching(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := &stubFetcher{events: []model.Event{{ID: 1}}}
	src := NewSource(f, NewMemoryCache(), WithClock(func() time.Time { return now }))

	assert.Len(t, src.Events(context.Background()), 1)
	assert.Len(t, src.Events(context.Background()), 1)
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestSourceRefetchesAfterTTL(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := &stubFetcher{events: []model.Event{{ID: 1}}}
	src := NewSource(f, NewMemoryCache(), WithTTL(time.Minute), WithClock(func() time.Time { return now }))

	src.Events(context.Background())
	now = now.Add(2 * time.Minute)
	src.Events(context.Background())
	assert.Equal(t, int32(2), f.calls.Load())
}

func TestSourceFallsBackToStaleThenEmpty(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	// Nothing cached and the feed is down: empty, never nil.
	f := &stubFetcher{err: errors.New("down")}
	src := NewSource(f, NewMemoryCache(), WithClock(clock))
	events := src.Events(context.Background())
	assert.NotNil(t, events)
	assert.Empty(t, events)

	// A good fetch followed by an outage serves the stale snapshot.
	cache := NewMemoryCache()
	f = &stubFetcher{events: []model.Event{{ID: 7, External: true}}}
	src = NewSource(f, cache, WithTTL(time.Minute), WithClock(clock))
	require.Len(t, src.Events(context.Background()), 1)

	f.err, f.events = errors.New("down"), nil
	now = now.Add(time.Hour)
	events = src.Events(context.Background())
	require.Len(t, events, 1)
	assert.Equal(t, uint64(7), events[0].ID)

	ev, ok := src.Find(context.Background(), 7)
	assert.True(t, ok)
	assert.True(t, ev.External)
	_, ok = src.Find(context.Background(), 8)
	assert.False(t, ok)
}

func TestEntryFresh(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	e := Entry{FetchedAt: at, TTL: 5 * time.Minute}
	assert.True(t, e.Fresh(at.Add(4*time.Minute)))
	assert.False(t, e.Fresh(at.Add(5*time.Minute)))
	assert.False(t, Entry{}.Fresh(at))
}
