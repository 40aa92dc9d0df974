package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/teamhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Calling it again on the same request adds to the existing route context.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, _ := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if rctx == nil {
		rctx = chi.NewRouteContext()
		r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	}
	rctx.URLParams.Add(key, value)
	return r
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts a user. The password hash is a placeholder; use
// CreateUserWithPassword when the test logs in.
func (f *Fixtures) CreateUser(ctx context.Context, name, username string) models.User {
	f.t.Helper()
	return f.CreateUserWithPassword(ctx, name, username, "$2a$10$placeholderplaceholderplaceholderplaceholderpl")
}

// CreateUserWithPassword inserts a user with the given bcrypt hash.
func (f *Fixtures) CreateUserWithPassword(ctx context.Context, name, username, hash string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:           primitive.NewObjectID(),
		Name:         name,
		Username:     username,
		UsernameCI:   text.Fold(username),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// CreateProject inserts a project owned by creator with the default settings.
// Extra members are added with the given roles.
func (f *Fixtures) CreateProject(ctx context.Context, name string, creator primitive.ObjectID, members map[primitive.ObjectID]models.Role) models.Project {
	f.t.Helper()

	now := time.Now().UTC()
	p := models.Project{
		ID:      primitive.NewObjectID(),
		Name:    name,
		Creator: creator,
		Members: []models.Member{{
			MemberID: primitive.NewObjectID(),
			UserID:   creator,
			Role:     models.RoleAdmin,
			JoinedAt: now,
		}},
		Invitations: []models.Invitation{},
		Settings:    models.ProjectSettings{DoingColumnLimit: models.DefaultDoingColumnLimit},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for uid, role := range members {
		p.Members = append(p.Members, models.Member{
			MemberID: primitive.NewObjectID(),
			UserID:   uid,
			Role:     role,
			JoinedAt: now,
		})
	}
	if _, err := f.db.Collection("projects").InsertOne(ctx, p); err != nil {
		f.t.Fatalf("failed to create test project: %v", err)
	}
	return p
}

// CreateTask inserts a task in column for the project.
func (f *Fixtures) CreateTask(ctx context.Context, projectID, createdBy primitive.ObjectID, title, column string) models.Task {
	f.t.Helper()

	now := time.Now().UTC()
	task := models.Task{
		ID:         primitive.NewObjectID(),
		ProjectID:  projectID,
		Title:      title,
		Column:     column,
		Priority:   models.PriorityMedium,
		AssignedTo: []primitive.ObjectID{},
		Comments:   []models.Comment{},
		CreatedBy:  createdBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := f.db.Collection("tasks").InsertOne(ctx, task); err != nil {
		f.t.Fatalf("failed to create test task: %v", err)
	}
	return task
}

// CreateNote inserts a note for the project.
func (f *Fixtures) CreateNote(ctx context.Context, projectID, createdBy primitive.ObjectID, title string, tags ...string) models.Note {
	f.t.Helper()

	now := time.Now().UTC()
	if tags == nil {
		tags = []string{}
	}
	n := models.Note{
		ID:        primitive.NewObjectID(),
		ProjectID: projectID,
		Title:     title,
		Tags:      tags,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("notes").InsertOne(ctx, n); err != nil {
		f.t.Fatalf("failed to create test note: %v", err)
	}
	return n
}

// CreateNotification inserts a notification created at the given time.
func (f *Fixtures) CreateNotification(ctx context.Context, userID primitive.ObjectID, typ string, createdAt time.Time) models.Notification {
	f.t.Helper()

	n := models.Notification{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Type:      typ,
		Title:     "Test " + typ,
		Message:   "test notification",
		CreatedAt: createdAt,
	}
	if _, err := f.db.Collection("notifications").InsertOne(ctx, n); err != nil {
		f.t.Fatalf("failed to create test notification: %v", err)
	}
	return n
}
