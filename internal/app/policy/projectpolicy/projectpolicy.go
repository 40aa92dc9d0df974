// internal/app/policy/projectpolicy/projectpolicy.go
package projectpolicy

import (
	"context"

	"github.com/dalemusser/teamhub/internal/app/system/apperr"
	"github.com/dalemusser/teamhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProjectSource loads projects by id. A missing project is apperr NotFound.
type ProjectSource interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Project, error)
}

// TaskSource loads tasks by id. A missing task is apperr NotFound.
type TaskSource interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Task, error)
}

// Access is the outcome of a successful authorization.
type Access struct {
	Project   *models.Project
	UserID    primitive.ObjectID
	Role      models.Role
	IsCreator bool
}

// IsAdmin reports whether the resolved role is admin.
func (a Access) IsAdmin() bool { return a.Role == models.RoleAdmin }

// TaskAccess is Access resolved through a task.
type TaskAccess struct {
	Access
	Task *models.Task
}

// Evaluator decides whether a user may act on a project. It has no side effects.
type Evaluator struct {
	projects ProjectSource
	tasks    TaskSource
}

func New(projects ProjectSource, tasks TaskSource) *Evaluator {
	return &Evaluator{projects: projects, tasks: tasks}
}

// Authorize loads the project and checks userID's member entry against required.
func (e *Evaluator) Authorize(ctx context.Context, userID, projectID primitive.ObjectID, required models.Role) (Access, error) {
	p, err := e.projects.GetByID(ctx, projectID)
	if err != nil {
		return Access{}, err
	}
	return Check(p, userID, required)
}

// AuthorizeTask resolves the task first, so a missing task is NotFound no
// matter who asks, then authorizes against the owning project.
func (e *Evaluator) AuthorizeTask(ctx context.Context, userID, taskID primitive.ObjectID, required models.Role) (TaskAccess, error) {
	t, err := e.tasks.GetByID(ctx, taskID)
	if err != nil {
		return TaskAccess{}, err
	}
	a, err := e.Authorize(ctx, userID, t.ProjectID, required)
	if err != nil {
		return TaskAccess{}, err
	}
	return TaskAccess{Access: a, Task: t}, nil
}

// Check is the membership and rank comparison on an already-loaded project.
func Check(p *models.Project, userID primitive.ObjectID, required models.Role) (Access, error) {
	m, ok := p.FindMember(userID)
	if !ok {
		return Access{}, apperr.NotMember()
	}
	if !m.Role.AtLeast(required) {
		return Access{}, apperr.InsufficientRole(required, m.Role)
	}
	return Access{
		Project:   p,
		UserID:    userID,
		Role:      m.Role,
		IsCreator: p.Creator == userID,
	}, nil
}

// RequireAdminToDelete is the terminal gate of task deletion. Reaching the
// delete takes editor; finishing it takes admin, and an editor is told so
// with its own message rather than a generic insufficient-role error.
func RequireAdminToDelete(a Access) error {
	if a.Role != models.RoleAdmin {
		return apperr.AdminOnly("only project admins can delete tasks")
	}
	return nil
}

type ctxKey struct{}

// WithAccess attaches a resolved Access to ctx.
func WithAccess(ctx context.Context, a Access) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

// AccessFrom returns the Access attached by WithAccess.
func AccessFrom(ctx context.Context) (Access, bool) {
	a, ok := ctx.Value(ctxKey{}).(Access)
	return a, ok
}

type taskCtxKey struct{}

// WithTaskAccess attaches a resolved TaskAccess (and its Access) to ctx.
func WithTaskAccess(ctx context.Context, ta TaskAccess) context.Context {
	ctx = WithAccess(ctx, ta.Access)
	return context.WithValue(ctx, taskCtxKey{}, ta)
}

// TaskAccessFrom returns the TaskAccess attached by WithTaskAccess.
func TaskAccessFrom(ctx context.Context) (TaskAccess, bool) {
	ta, ok := ctx.Value(taskCtxKey{}).(TaskAccess)
	return ta, ok
}
