// internal/app/features/account/routes.go
package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns the router mounted at /api/auth. requireBearer guards the
// routes that need a signed-in user.
func Routes(h *Handler, requireBearer func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.With(requireBearer).Get("/me", h.Me)
	return r
}
