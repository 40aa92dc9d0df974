// internal/app/features/tasks/routes.go
package tasks

import (
	"github.com/dalemusser/teamhub/internal/app/policy/projectpolicy"
	"github.com/dalemusser/teamhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Register adds the task routes to the authenticated /api router. Deletion
// is reachable by editors and finished only by admins.
func Register(r chi.Router, h *Handler, pol *projectpolicy.Evaluator) {
	r.With(pol.RequireProject(h.Log, "projectID", models.RoleViewer)).Get("/projects/{projectID}/tasks", h.List)
	r.With(pol.RequireProject(h.Log, "projectID", models.RoleEditor)).Post("/projects/{projectID}/tasks", h.Create)

	viewer := pol.RequireTask(h.Log, "taskID", models.RoleViewer)
	editor := pol.RequireTask(h.Log, "taskID", models.RoleEditor)

	r.With(viewer).Get("/tasks/{taskID}", h.Get)
	r.With(editor).Put("/tasks/{taskID}", h.Update)
	r.With(editor).Post("/tasks/{taskID}/comments", h.Comment)
	r.With(editor).Post("/tasks/{taskID}/archive", h.Archive)
	r.With(editor).Delete("/tasks/{taskID}", h.Delete)
}
