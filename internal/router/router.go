package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/crusade-registration/internal/handler"
	"github.com/iliyamo/crusade-registration/internal/metrics"
	"github.com/iliyamo/crusade-registration/internal/middleware"
	"github.com/iliyamo/crusade-registration/internal/response"
)

// Guards bundles the middleware the route groups are assembled from.  A
// nil entry is skipped, which keeps tests free to wire only what they
// exercise.
type Guards struct {
	RequireUser  echo.MiddlewareFunc // bearer token mandatory
	OptionalUser echo.MiddlewareFunc // bearer token resolved when present
	Limiter      echo.MiddlewareFunc // general /api/v1 token bucket
	AuthLimiter  echo.MiddlewareFunc // stricter bucket for /api/v1/auth
	Cache        echo.MiddlewareFunc // response cache for public reads
	RequireAdmin echo.MiddlewareFunc
	CSRF         echo.MiddlewareFunc
}

func chain(mw ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := make([]echo.MiddlewareFunc, 0, len(mw))
	for _, m := range mw {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}

// Handlers groups every HTTP handler the server exposes.
type Handlers struct {
	Health        *handler.HealthHandler
	Auth          *handler.AuthHandler
	Events        *handler.EventHandler
	User          *handler.UserHandler
	Testimonies   *handler.TestimonyHandler
	Notifications *handler.NotificationHandler
	Donations     *handler.DonationHandler
	Admin         *handler.AdminHandler
}

// Setup installs the envelope error handler and the global middleware on
// e.  Metrics sit outermost so the logged status and the recorded one
// agree.
func Setup(e *echo.Echo, log zerolog.Logger) {
	e.HideBanner = true
	e.HTTPErrorHandler = response.HTTPErrorHandler
	e.Use(metrics.Middleware(), middleware.RequestLogger(log))
}

// RegisterRoutes registers routes that do not require authentication:
// liveness, readiness and the Prometheus endpoint.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler) {
	e.GET("/healthz", handler.Health)
	if h != nil {
		e.GET("/readyz", h.Ready)
	}
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
}

// RegisterAll wires every group onto e.
func RegisterAll(e *echo.Echo, h Handlers, g Guards) {
	RegisterRoutes(e, h.Health)
	api := e.Group("/api/v1", chain(g.Limiter)...)
	RegisterAuth(api, h.Auth, g)
	RegisterEvents(api, h.Events, g)
	RegisterUser(api, h.User, g)
	RegisterTestimonies(api, h.Testimonies, g)
	RegisterNotifications(api, h.Notifications, g)
	RegisterDonations(api, h.Donations, g)
	RegisterAdmin(e, h.Admin, g)
}
