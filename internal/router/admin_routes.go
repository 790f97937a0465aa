package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/crusade-registration/internal/handler"
)

// RegisterAdmin mounts the moderation console under /admin/api.  CSRF
// covers the whole group; login and the token endpoint sit outside the
// session check.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, g Guards) {
	base := e.Group("/admin/api", chain(g.CSRF)...)
	base.GET("/csrf", h.CSRFToken)
	base.POST("/login", h.Login)
	base.POST("/logout", h.Logout)

	a := base.Group("", chain(g.RequireAdmin)...)
	a.GET("/me", h.Me)
	a.GET("/dashboard", h.Dashboard)

	a.GET("/users", h.ListUsers)
	a.POST("/users", h.CreateUser)
	a.PUT("/users/:id", h.UpdateUser)
	a.DELETE("/users/:id", h.DeleteUser)

	a.GET("/events", h.ListEvents)
	a.DELETE("/events/:id", h.DeleteEvent)

	a.GET("/tickets", h.ListTickets)

	a.GET("/testimonies", h.ListTestimonies)
	a.POST("/testimonies/:id/approve", h.ApproveTestimony)
	a.POST("/testimonies/:id/reject", h.RejectTestimony)
	a.DELETE("/testimonies/:id", h.DeleteTestimony)

	a.GET("/categories", h.ListCategories)
	a.POST("/categories", h.CreateCategory)
	a.POST("/categories/:id/toggle", h.ToggleCategory)
	a.DELETE("/categories/:id", h.DeleteCategory)
}
