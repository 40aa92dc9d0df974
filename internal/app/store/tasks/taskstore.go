// internal/app/store/tasks/taskstore.go
package taskstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/teamhub/internal/app/system/apperr"
	"github.com/dalemusser/teamhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("tasks")}
}

// Update carries the optional fields of a task edit. Nil fields are left unchanged.
type Update struct {
	Title       *string
	Description *string
	Column      *string
	Priority    *string
	AssignedTo  *[]primitive.ObjectID
	DueDate     **time.Time
}

// Empty reports whether the update changes nothing.
func (u Update) Empty() bool {
	return u.Title == nil && u.Description == nil && u.Column == nil &&
		u.Priority == nil && u.AssignedTo == nil && u.DueDate == nil
}

// Create inserts t, filling in id, timestamps and empty slices.
func (s *Store) Create(ctx context.Context, t models.Task) (models.Task, error) {
	now := time.Now().UTC()
	t.ID = primitive.NewObjectID()
	t.Title = strings.TrimSpace(t.Title)
	if t.Column == "" {
		t.Column = models.ColumnTodo
	}
	if t.Priority == "" {
		t.Priority = models.PriorityMedium
	}
	if t.AssignedTo == nil {
		t.AssignedTo = []primitive.ObjectID{}
	}
	if t.Comments == nil {
		t.Comments = []models.Comment{}
	}
	t.CreatedAt = now
	t.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, t); err != nil {
		return models.Task{}, err
	}
	return t, nil
}

// GetByID loads a task. A missing task is apperr NotFound.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Task, error) {
	var t models.Task
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("task")
		}
		return nil, err
	}
	return &t, nil
}

// ListByProject returns the project's tasks ordered by creation time.
func (s *Store) ListByProject(ctx context.Context, projectID primitive.ObjectID, includeArchived bool) ([]models.Task, error) {
	filter := bson.M{"project_id": projectID}
	if !includeArchived {
		filter["is_archived"] = false
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Task
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountInColumn counts non-archived tasks of a project in column, optionally
// leaving out one task (the one being moved).
func (s *Store) CountInColumn(ctx context.Context, projectID primitive.ObjectID, column string, exclude *primitive.ObjectID) (int64, error) {
	filter := bson.M{
		"project_id":  projectID,
		"column":      column,
		"is_archived": false,
	}
	if exclude != nil {
		filter["_id"] = bson.M{"$ne": *exclude}
	}
	return s.c.CountDocuments(ctx, filter)
}

// Apply writes u to the task and returns the updated document.
func (s *Store) Apply(ctx context.Context, id primitive.ObjectID, u Update) (*models.Task, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if u.Title != nil {
		set["title"] = strings.TrimSpace(*u.Title)
	}
	if u.Description != nil {
		set["description"] = *u.Description
	}
	if u.Column != nil {
		set["column"] = *u.Column
	}
	if u.Priority != nil {
		set["priority"] = *u.Priority
	}
	if u.AssignedTo != nil {
		assigned := *u.AssignedTo
		if assigned == nil {
			assigned = []primitive.ObjectID{}
		}
		set["assigned_to"] = assigned
	}
	if u.DueDate != nil {
		set["due_date"] = *u.DueDate
	}
	return s.findOneAndSet(ctx, id, bson.M{"$set": set})
}

// AddComment appends a comment and returns the updated task.
func (s *Store) AddComment(ctx context.Context, id primitive.ObjectID, c models.Comment) (*models.Task, error) {
	if c.CommentID.IsZero() {
		c.CommentID = primitive.NewObjectID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	return s.findOneAndSet(ctx, id, bson.M{
		"$push": bson.M{"comments": c},
		"$set":  bson.M{"updated_at": c.CreatedAt},
	})
}

// SetArchived archives or restores a task.
func (s *Store) SetArchived(ctx context.Context, id primitive.ObjectID, archived bool) (*models.Task, error) {
	return s.findOneAndSet(ctx, id, bson.M{"$set": bson.M{
		"is_archived": archived,
		"updated_at":  time.Now().UTC(),
	}})
}

// Delete removes a task.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound("task")
	}
	return nil
}

// DeleteByProject removes every task of a project and returns how many went.
func (s *Store) DeleteByProject(ctx context.Context, projectID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"project_id": projectID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (s *Store) findOneAndSet(ctx context.Context, id primitive.ObjectID, update bson.M) (*models.Task, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var t models.Task
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&t); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("task")
		}
		return nil, err
	}
	return &t, nil
}
