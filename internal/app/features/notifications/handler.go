// internal/app/features/notifications/handler.go
package notifications

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dalemusser/teamhub/internal/app/system/apperr"
	"github.com/dalemusser/teamhub/internal/app/system/auth"
	"github.com/dalemusser/teamhub/internal/app/system/httpjson"
	"github.com/dalemusser/teamhub/internal/app/system/notify"
	"github.com/dalemusser/teamhub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

const (
	defaultLimit = 50
	maxLimit     = 100
)

// Handler serves the caller's own notifications. Every operation is scoped
// to the authenticated user.
type Handler struct {
	Notify *notify.Service
	Log    *zap.Logger
}

func NewHandler(svc *notify.Service, logger *zap.Logger) *Handler {
	return &Handler{Notify: svc, Log: logger}
}

func parseLimit(r *http.Request) int64 {
	n, err := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64)
	if err != nil || n <= 0 {
		return defaultLimit
	}
	if n > maxLimit {
		return maxLimit
	}
	return n
}

// List handles GET /api/notifications.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Notify.List(ctx, u.ID, parseLimit(r))
	if err != nil {
		apperr.Write(w, h.Log, err)
		return
	}
	unread, err := h.Notify.UnreadCount(ctx, u.ID)
	if err != nil {
		apperr.Write(w, h.Log, err)
		return
	}
	httpjson.OK(w, map[string]any{"notifications": list, "unread_count": unread})
}

// UnreadCount handles GET /api/notifications/unread-count.
func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	n, err := h.Notify.UnreadCount(ctx, u.ID)
	if err != nil {
		apperr.Write(w, h.Log, err)
		return
	}
	httpjson.OK(w, map[string]int64{"unread_count": n})
}

// MarkRead handles POST /api/notifications/{notificationID}/read.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	id, err := httpjson.PathID(r, "notificationID", "notification")
	if err != nil {
		apperr.Write(w, h.Log, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Notify.MarkRead(ctx, u.ID, id); err != nil {
		apperr.Write(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkAllRead handles POST /api/notifications/read-all.
func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	n, err := h.Notify.MarkAllRead(ctx, u.ID)
	if err != nil {
		apperr.Write(w, h.Log, apperr.Internal("mark notifications read", err))
		return
	}
	httpjson.OK(w, map[string]int64{"updated": n})
}

// Delete handles DELETE /api/notifications/{notificationID}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	id, err := httpjson.PathID(r, "notificationID", "notification")
	if err != nil {
		apperr.Write(w, h.Log, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Notify.Delete(ctx, u.ID, id); err != nil {
		apperr.Write(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Clear handles DELETE /api/notifications.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	n, err := h.Notify.ClearAll(ctx, u.ID)
	if err != nil {
		apperr.Write(w, h.Log, apperr.Internal("clear notifications", err))
		return
	}
	httpjson.OK(w, map[string]int64{"deleted": n})
}
