package feed

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/crusade-registration/internal/metrics"
	"github.com/iliyamo/crusade-registration/internal/model"
)

// DefaultTTL is how long a fetched snapshot is served without refetching.
const DefaultTTL = 5 * time.Minute

// Fetcher retrieves the current feed contents.
type Fetcher interface {
	Fetch(ctx context.Context) ([]model.Event, error)
}

// Source serves the feed through a cache.  A fresh cache entry is returned
// as is; otherwise the feed is fetched, and when that fails the last good
// snapshot (or nothing) is served instead.  Source never returns an error:
// the catalog degrades to local events only.
//
// Concurrent callers that find the cache stale each fetch; the last writer
// wins.
type Source struct {
	fetcher Fetcher
	cache   Cache
	ttl     time.Duration
	log     zerolog.Logger
	now     func() time.Time
}

// SourceOption configures a Source.
type SourceOption func(*Source)

// WithTTL overrides DefaultTTL.
func WithTTL(d time.Duration) SourceOption {
	return func(s *Source) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithLogger attaches a logger for fetch failures.
func WithLogger(l zerolog.Logger) SourceOption {
	return func(s *Source) { s.log = l }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) SourceOption {
	return func(s *Source) { s.now = now }
}

func NewSource(f Fetcher, c Cache, opts ...SourceOption) *Source {
	s := &Source{
		fetcher: f,
		cache:   c,
		ttl:     DefaultTTL,
		log:     zerolog.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Events returns the feed's events.
func (s *Source) Events(ctx context.Context) []model.Event {
	entry, ok, err := s.cache.Get(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("feed cache read failed")
		ok = false
	}
	if ok && entry.Fresh(s.now()) {
		metrics.FeedServedTotal.WithLabelValues("fresh").Inc()
		return entry.Events
	}

	events, ferr := s.fetcher.Fetch(ctx)
	if ferr != nil {
		metrics.FeedFetchesTotal.WithLabelValues("error").Inc()
		s.log.Warn().Err(ferr).Bool("stale_available", ok).Msg("feed fetch failed")
		if ok {
			metrics.FeedServedTotal.WithLabelValues("stale").Inc()
			return entry.Events
		}
		metrics.FeedServedTotal.WithLabelValues("empty").Inc()
		return []model.Event{}
	}
	metrics.FeedFetchesTotal.WithLabelValues("success").Inc()
	metrics.FeedServedTotal.WithLabelValues("fetched").Inc()

	if err := s.cache.Set(ctx, Entry{Events: events, FetchedAt: s.now(), TTL: s.ttl}); err != nil {
		s.log.Warn().Err(err).Msg("feed cache write failed")
	}
	return events
}

// Find returns the feed event with id.
func (s *Source) Find(ctx context.Context, id uint64) (model.Event, bool) {
	for _, e := range s.Events(ctx) {
		if e.ID == id {
			return e, true
		}
	}
	return model.Event{}, false
}
