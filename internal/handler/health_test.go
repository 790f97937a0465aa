package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) PingContext(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/healthz", "")
	require.NoError(t, Health(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestReady(t *testing.T) {
	tests := []struct {
		name   string
		ping   error
		status int
		db     string
	}{
		{"database up", nil, http.StatusOK, "ok"},
		{"database down", errors.New("dial tcp: connection refused"), http.StatusServiceUnavailable, "unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &HealthHandler{DB: pingFunc(func(context.Context) error { return tt.ping })}
			c, rec := newContext(http.MethodGet, "/readyz", "")
			require.NoError(t, h.Ready(c))

			assert.Equal(t, tt.status, rec.Code)
			var body struct {
				Ready  bool              `json:"ready"`
				Checks map[string]string `json:"checks"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.ping == nil, body.Ready)
			assert.Equal(t, tt.db, body.Checks["database"])
			assert.NotContains(t, body.Checks, "redis")
		})
	}
}
