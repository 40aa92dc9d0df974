// internal/app/features/notifications/routes.go
package notifications

import "github.com/go-chi/chi/v5"

// Register adds the notification routes to the authenticated /api router.
func Register(r chi.Router, h *Handler) {
	r.Get("/notifications", h.List)
	r.Get("/notifications/unread-count", h.UnreadCount)
	r.Post("/notifications/read-all", h.MarkAllRead)
	r.Delete("/notifications", h.Clear)
	r.Post("/notifications/{notificationID}/read", h.MarkRead)
	r.Delete("/notifications/{notificationID}", h.Delete)
}
