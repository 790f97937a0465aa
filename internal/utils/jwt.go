package utils // package utils provides token, password and code helpers shared across the service

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating and verifying signed tokens
)

// ErrInvalidToken is returned for every verification failure.  Callers
// never learn whether the signature, issuer, audience or expiry was at
// fault.
var ErrInvalidToken = errors.New("invalid or expired token")

// Identity is the subject carried inside a token.
type Identity struct {
	UserID uint64
	Email  string
}

// tokenClaims is the on-the-wire claim set.  userId is encoded as a string
// so mobile clients that decode the payload see a stable type.
type tokenClaims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 identity tokens bound to a fixed
// issuer and audience, and decides when a token is close enough to expiry
// to be silently reissued.
type TokenService struct {
	secret        []byte
	issuer        string
	audience      string
	ttl           time.Duration
	refreshWindow time.Duration
	now           func() time.Time
}

// TokenOption customises a TokenService.
type TokenOption func(*TokenService)

// WithClock replaces time.Now, which lets tests move through a token's
// lifetime without sleeping.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) { s.now = now }
}

// NewTokenService builds a TokenService.  ttl is the lifetime of issued
// tokens; tokens with less than refreshWindow remaining are reissued by
// RefreshIfNeeded.
func NewTokenService(secret, issuer, audience string, ttl, refreshWindow time.Duration, opts ...TokenOption) *TokenService {
	s := &TokenService{
		secret:        []byte(secret),
		issuer:        issuer,
		audience:      audience,
		ttl:           ttl,
		refreshWindow: refreshWindow,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ExpiresIn is the lifetime of a freshly issued token in seconds, as
// reported to clients next to the token.
func (s *TokenService) ExpiresIn() int64 { return int64(s.ttl / time.Second) }

// Issue signs a token for id.
func (s *TokenService) Issue(id Identity) (string, error) {
	now := s.now().UTC()
	claims := tokenClaims{
		UserID: strconv.FormatUint(id.UserID, 10),
		Email:  id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify checks signature, algorithm, issuer, audience and expiry and
// returns the embedded identity.
func (s *TokenService) Verify(raw string) (Identity, error) {
	claims, err := s.parse(raw)
	if err != nil {
		return Identity{}, err
	}
	uid, err := strconv.ParseUint(claims.UserID, 10, 64)
	if err != nil || uid == 0 {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: uid, Email: claims.Email}, nil
}

// RefreshIfNeeded returns a replacement token when raw is valid but has
// less than the refresh window left.  It returns "", false otherwise,
// including when raw is invalid.
func (s *TokenService) RefreshIfNeeded(raw string) (string, bool) {
	claims, err := s.parse(raw)
	if err != nil || claims.ExpiresAt == nil {
		return "", false
	}
	if claims.ExpiresAt.Time.Sub(s.now()) >= s.refreshWindow {
		return "", false
	}
	uid, err := strconv.ParseUint(claims.UserID, 10, 64)
	if err != nil {
		return "", false
	}
	fresh, err := s.Issue(Identity{UserID: uid, Email: claims.Email})
	if err != nil {
		return "", false
	}
	return fresh, true
}

func (s *TokenService) parse(raw string) (*tokenClaims, error) {
	claims := &tokenClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (interface{}, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
