// Package kingschat exchanges KingsChat access tokens for profile data.
package kingschat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultURL is the KingsChat profile endpoint.
	DefaultURL     = "https://connect.kingsch.at/api/profile"
	DefaultTimeout = 10 * time.Second
)

// ErrUnauthorized is returned when KingsChat rejects the access token.
var ErrUnauthorized = errors.New("kingschat: access token rejected")

// Profile is the subset of the KingsChat profile used for sign-in.
type Profile struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email,omitempty"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
	Country     string `json:"country,omitempty"`
}

// FullName picks the display name, then first and last name, then the
// username.
func (p Profile) FullName() string {
	if n := strings.TrimSpace(p.DisplayName); n != "" {
		return n
	}
	parts := []string{}
	for _, s := range []string{p.FirstName, p.LastName} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, " ")
	}
	return p.Username
}

// Client calls the profile endpoint.
type Client struct {
	httpClient *http.Client
	url        string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(url string, opts ...Option) *Client {
	if url == "" {
		url = DefaultURL
	}
	c := &Client{httpClient: &http.Client{Timeout: DefaultTimeout}, url: url}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Profile fetches the profile behind accessToken.  Any non-2xx answer is
// reported as ErrUnauthorized.
func (c *Client) Profile(ctx context.Context, accessToken string) (Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Profile{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("kingschat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Profile{}, fmt.Errorf("%w (status %d)", ErrUnauthorized, resp.StatusCode)
	}

	var p Profile
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&p); err != nil {
		return Profile{}, fmt.Errorf("decode kingschat profile: %w", err)
	}
	if p.Username == "" {
		return Profile{}, fmt.Errorf("%w: profile has no username", ErrUnauthorized)
	}
	return p, nil
}
