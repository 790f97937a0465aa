package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/crusade-registration/internal/model"
	"github.com/iliyamo/crusade-registration/internal/response"
)

const (
	// AdminCookie names the admin session cookie.
	AdminCookie = "admin_session"
	// CSRFHeader carries the CSRF token both ways.
	CSRFHeader = "X-CSRF-Token"

	adminSessionMaxAge = 24 * time.Hour

	sessionAdminID   = "admin_id"
	sessionUsername  = "username"
	sessionName      = "name"
	sessionRole      = "role"
	sessionCreatedAt = "created_at"
)

var errNoAdminSession = errors.New("no admin session")

// AdminSessions wraps the cookie store that backs admin logins.
type AdminSessions struct {
	store *sessions.CookieStore
	now   func() time.Time
}

// NewAdminSessions builds a cookie store signed with secret.  secure marks
// the cookie Secure and should be off only for plain-HTTP development.
func NewAdminSessions(secret string, secure bool) *AdminSessions {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(adminSessionMaxAge / time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &AdminSessions{store: store, now: time.Now}
}

// Login binds a to a fresh session cookie.
func (s *AdminSessions) Login(c echo.Context, a model.Admin) error {
	sess, err := s.store.New(c.Request(), AdminCookie)
	if err != nil && sess == nil {
		return err
	}
	sess.Values[sessionAdminID] = a.ID
	sess.Values[sessionUsername] = a.Username
	sess.Values[sessionName] = a.Name
	sess.Values[sessionRole] = a.Role
	sess.Values[sessionCreatedAt] = s.now().Unix()
	return sess.Save(c.Request(), c.Response())
}

// Logout expires the session cookie.
func (s *AdminSessions) Logout(c echo.Context) error {
	sess, _ := s.store.Get(c.Request(), AdminCookie)
	if sess == nil {
		return nil
	}
	sess.Options.MaxAge = -1
	return sess.Save(c.Request(), c.Response())
}

func (s *AdminSessions) admin(c echo.Context) (*model.Admin, error) {
	sess, err := s.store.Get(c.Request(), AdminCookie)
	if err != nil || sess.IsNew {
		return nil, errNoAdminSession
	}
	created, _ := sess.Values[sessionCreatedAt].(int64)
	if s.now().Unix() > created+int64(adminSessionMaxAge/time.Second) {
		return nil, errNoAdminSession
	}
	id, ok := sess.Values[sessionAdminID].(uint64)
	if !ok {
		return nil, errNoAdminSession
	}
	a := &model.Admin{ID: id}
	a.Username, _ = sess.Values[sessionUsername].(string)
	a.Name, _ = sess.Values[sessionName].(string)
	a.Role, _ = sess.Values[sessionRole].(string)
	return a, nil
}

// RequireAdmin rejects requests without a live admin session.
func (s *AdminSessions) RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			a, err := s.admin(c)
			if err != nil {
				return response.Unauthorized(c, "Admin login required")
			}
			c.Set(adminKey, a)
			return next(c)
		}
	}
}

// CSRF protects the admin API.  Safe methods pass and receive the current
// token in the X-CSRF-Token response header; mutating methods must echo it
// back in the same header.  With secure off, requests are treated as plain
// HTTP so the Referer check does not reject local development.
func CSRF(key []byte, secure bool) echo.MiddlewareFunc {
	protect := csrf.Protect(key,
		csrf.Path("/"),
		csrf.Secure(secure),
		csrf.HttpOnly(true),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.RequestHeader(CSRFHeader),
		csrf.ErrorHandler(http.HandlerFunc(csrfFailure)),
	)
	exposeToken := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(CSRFHeader, csrf.Token(r))
			next.ServeHTTP(w, r)
		})
	}
	wrapped := func(next http.Handler) http.Handler { return protect(exposeToken(next)) }

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		h := echo.WrapMiddleware(wrapped)(next)
		return func(c echo.Context) error {
			if !secure {
				c.SetRequest(csrf.PlaintextHTTPRequest(c.Request()))
			}
			return h(c)
		}
	}
}

func csrfFailure(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write([]byte(`{"success":false,"message":"CSRF token validation failed"}`))
}
