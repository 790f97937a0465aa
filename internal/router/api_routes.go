package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/crusade-registration/internal/handler"
)

// RegisterAuth mounts the sign-up and sign-in flows under /api/v1/auth.
// These endpoints are the usual brute force target, so they carry the
// stricter limiter on top of the general one.
func RegisterAuth(api *echo.Group, h *handler.AuthHandler, g Guards) {
	a := api.Group("/auth", chain(g.AuthLimiter)...)
	a.POST("/register", h.Register)
	a.POST("/login", h.Login)
	a.POST("/forgot-password", h.ForgotPassword)
	a.POST("/reset-password", h.ResetPassword)
	a.POST("/kingschat", h.KingsChat)
	a.GET("/kingschat-callback", h.KingsChatCallback)
}

// RegisterEvents mounts the merged catalog and event management.  Reads
// accept an optional token so registration state can be reported.
func RegisterEvents(api *echo.Group, h *handler.EventHandler, g Guards) {
	optional := chain(g.OptionalUser)
	required := chain(g.RequireUser)

	ev := api.Group("/events")
	ev.GET("", h.List, optional...)
	ev.GET("/my-crusades", h.MyCrusades, required...)
	ev.GET("/:id", h.Get, optional...)
	ev.POST("", h.Create, required...)
	ev.DELETE("/:id", h.Delete, required...)
	ev.POST("/:id/register", h.Register, required...)
	ev.GET("/:id/attendees", h.Attendees, required...)
	ev.GET("/:id/staff", h.StaffList, required...)
	ev.POST("/:id/staff", h.AddStaff, required...)
	ev.DELETE("/:id/staff/:staffId", h.RemoveStaff, required...)
}

// RegisterUser mounts the caller's profile, tickets and staff tools.
// Ticket lookup resolves the token itself because verify=true needs it
// while plain lookups do not.
func RegisterUser(api *echo.Group, h *handler.UserHandler, g Guards) {
	u := api.Group("/user")
	u.GET("/tickets/:id", h.Ticket, chain(g.OptionalUser)...)

	auth := u.Group("", chain(g.RequireUser)...)
	auth.GET("/profile", h.Profile)
	auth.PUT("/profile", h.UpdateProfile)
	auth.GET("/tickets", h.ListTickets)
	auth.GET("/tickets/:id/qr.png", h.TicketQR)
	auth.POST("/tickets/:id/checkin", h.CheckInTicket)
	auth.GET("/lookup", h.Lookup)
	auth.GET("/stats", h.Stats)
	auth.GET("/staff-events", h.StaffEvents)
}

// RegisterTestimonies mounts testimonies and the public category list.
// Category reads are anonymous and go through the response cache.
func RegisterTestimonies(api *echo.Group, h *handler.TestimonyHandler, g Guards) {
	optional := chain(g.OptionalUser)
	required := chain(g.RequireUser)

	t := api.Group("/testimonies")
	t.GET("", h.List, optional...)
	t.GET("/:id", h.Get, optional...)
	t.POST("", h.Create, required...)
	t.PUT("/:id", h.Update, required...)
	t.DELETE("/:id", h.Delete, required...)
	t.POST("/:id/like", h.Like, required...)

	cats := api.Group("/testimony-categories", chain(g.Cache)...)
	cats.GET("", h.ListCategories)
	cats.GET("/:id", h.Category)
}

func RegisterNotifications(api *echo.Group, h *handler.NotificationHandler, g Guards) {
	n := api.Group("/notifications", chain(g.RequireUser)...)
	n.GET("", h.List)
	n.PUT("/read", h.MarkRead)
	n.PUT("/read-all", h.MarkAllRead)
}

func RegisterDonations(api *echo.Group, h *handler.DonationHandler, _ Guards) {
	api.POST("/donations/create-payment-intent", h.CreatePaymentIntent)
}
