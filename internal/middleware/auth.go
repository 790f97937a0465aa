package middleware

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/crusade-registration/internal/model"
	"github.com/iliyamo/crusade-registration/internal/repository"
	"github.com/iliyamo/crusade-registration/internal/response"
	"github.com/iliyamo/crusade-registration/internal/utils"
)

// AuthMode selects how Authenticate treats requests without a token.
type AuthMode int

const (
	// Required rejects requests without a valid bearer token.
	Required AuthMode = iota
	// Optional lets anonymous requests through.  A token that is present
	// but invalid is still rejected.
	Optional
)

// UserLookup loads the user a token was issued to.
type UserLookup interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// TokenVerifier verifies and refreshes bearer tokens.
type TokenVerifier interface {
	Verify(raw string) (utils.Identity, error)
	RefreshIfNeeded(raw string) (string, bool)
}

const userLookupTimeout = 5 * time.Second

// Authenticate resolves the bearer token to a user and stores it in the
// context.  Tokens close to expiry are reissued through the x-new-token
// response header.
func Authenticate(tokens TokenVerifier, users UserLookup, mode AuthMode, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearer(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				if mode == Optional {
					return next(c)
				}
				return response.Unauthorized(c, "No token provided")
			}

			id, err := tokens.Verify(raw)
			if err != nil {
				return response.Unauthorized(c, "Invalid or expired token")
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), userLookupTimeout)
			defer cancel()
			u, err := users.GetByID(ctx, id.UserID)
			if errors.Is(err, repository.ErrNotFound) {
				return response.Unauthorized(c, "User not found")
			}
			if err != nil {
				log.Error().Err(err).Uint64("user_id", id.UserID).Msg("auth: user lookup failed")
				return response.ServerError(c, "")
			}

			SetUser(c, &u)
			if fresh, ok := tokens.RefreshIfNeeded(raw); ok {
				response.WithNewToken(c, fresh)
			}
			return next(c)
		}
	}
}

// bearer extracts the token from an Authorization header value.
func bearer(h string) (string, bool) {
	const prefix = "Bearer "
	if len(h) < len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	tok := strings.TrimSpace(h[len(prefix):])
	return tok, tok != ""
}
