// internal/app/features/notes/routes.go
package notes

import (
	"github.com/dalemusser/teamhub/internal/app/policy/projectpolicy"
	"github.com/dalemusser/teamhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Register adds the note routes to the authenticated /api router.
func Register(r chi.Router, h *Handler, pol *projectpolicy.Evaluator) {
	r.With(pol.RequireProject(h.Log, "projectID", models.RoleViewer)).Get("/projects/{projectID}/notes", h.List)
	r.With(pol.RequireProject(h.Log, "projectID", models.RoleEditor)).Post("/projects/{projectID}/notes", h.Create)

	editor := h.requireNote(pol, models.RoleEditor)
	r.With(editor).Put("/notes/{noteID}", h.Update)
	r.With(editor).Post("/notes/{noteID}/pin", h.Pin)
	r.With(editor).Post("/notes/{noteID}/archive", h.Archive)
	r.With(editor).Post("/notes/{noteID}/restore", h.Restore)
	r.With(editor).Delete("/notes/{noteID}", h.Delete)
}
