// internal/app/features/projects/routes.go
package projects

import (
	"github.com/dalemusser/teamhub/internal/app/policy/projectpolicy"
	"github.com/dalemusser/teamhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Register adds the project, membership, and invitation routes to the
// authenticated /api router.
func Register(r chi.Router, h *Handler, pol *projectpolicy.Evaluator) {
	viewer := pol.RequireProject(h.Log, "projectID", models.RoleViewer)
	editor := pol.RequireProject(h.Log, "projectID", models.RoleEditor)
	admin := pol.RequireProject(h.Log, "projectID", models.RoleAdmin)

	r.Get("/projects", h.List)
	r.Post("/projects", h.Create)
	r.Get("/invitations", h.Mine)

	r.With(viewer).Get("/projects/{projectID}", h.Get)
	r.With(admin).Delete("/projects/{projectID}", h.Delete)
	r.With(admin).Put("/projects/{projectID}/settings", h.UpdateSettings)
	r.With(editor).Put("/projects/{projectID}/content", h.UpdateContent)

	r.With(admin).Post("/projects/{projectID}/invitations", h.Invite)
	r.Post("/projects/{projectID}/invitations/{invitationID}/respond", h.Respond)

	r.With(admin).Put("/projects/{projectID}/members/{userID}/role", h.ChangeRole)
	r.With(viewer).Delete("/projects/{projectID}/members/{userID}", h.RemoveMember)
}
