// Package feed fetches the external crusade listing and keeps a cached copy
// of the last good response.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/iliyamo/crusade-registration/internal/model"
)

const (
	// DefaultTimeout bounds a single fetch.
	DefaultTimeout = 10 * time.Second
	// DefaultUserAgent identifies this service to the feed host.
	DefaultUserAgent = "RhapsodyCrusades/1.0"
	// maxBody caps the response size read from the feed.
	maxBody = 8 << 20
)

// Item is one crusade as published by the feed.
type Item struct {
	ID          uint64 `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Time        string `json:"time,omitempty"`
	Venue       string `json:"venue"`
	Address     string `json:"address,omitempty"`
	Country     string `json:"country,omitempty"`
	City        string `json:"city,omitempty"`
	Image       string `json:"image,omitempty"`
}

// Event converts the item to a catalog event.  Feed events are always
// featured, uncapped and owned by no local user.
func (it Item) Event() model.Event {
	return model.Event{
		ID:          it.ID,
		Title:       it.Title,
		Description: it.Description,
		Date:        it.Date,
		Time:        it.Time,
		Venue:       it.Venue,
		Address:     it.Address,
		Country:     it.Country,
		City:        it.City,
		Image:       it.Image,
		Category:    model.DefaultCategory,
		Featured:    true,
		Owner:       model.ExternalOwner(),
		External:    true,
	}
}

// Client fetches the feed over HTTP.
type Client struct {
	httpClient *http.Client
	url        string
	userAgent  string
	limiter    *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRateLimiter throttles outbound fetches.  Without one, fetches are
// unthrottled.
func WithRateLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// NewClient creates a feed client for url.
func NewClient(url string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		url:        url,
		userAgent:  DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch downloads and decodes the feed.  The body may be a bare array or
// an object wrapping the array under "crusades" or "data"; any other shape
// is an error.
func (c *Client) Fetch(ctx context.Context) ([]model.Event, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch feed: unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read feed: %w", err)
	}

	items, err := decode(body)
	if err != nil {
		return nil, err
	}
	events := make([]model.Event, 0, len(items))
	for _, it := range items {
		events = append(events, it.Event())
	}
	return events, nil
}

func decode(body []byte) ([]Item, error) {
	var items []Item
	if err := json.Unmarshal(body, &items); err == nil {
		return items, nil
	}

	var wrapped struct {
		Crusades []Item `json:"crusades"`
		Data     []Item `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}
	switch {
	case wrapped.Crusades != nil:
		return wrapped.Crusades, nil
	case wrapped.Data != nil:
		return wrapped.Data, nil
	}
	return nil, fmt.Errorf("decode feed: no crusade array in response")
}
