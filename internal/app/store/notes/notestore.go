// internal/app/store/notes/notestore.go
package notestore

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
	return &Store{c: db.Collection("notes")}
}

// ListFilter narrows ListByProject.
type ListFilter struct {
	Tag      string // exact tag match, blank for any
	Archived bool   // list archived notes instead of active ones
}

// NormalizeTags trims, lowercases and de-duplicates tags, preserving order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func (s *Store) Create(ctx context.Context, n models.Note) (models.Note, error) {
	now := time.Now().UTC()
	n.ID = primitive.NewObjectID()
	n.Title = strings.TrimSpace(n.Title)
	n.Tags = NormalizeTags(n.Tags)
	n.CreatedAt = now
	n.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, n); err != nil {
		return models.Note{}, err
	}
	return n, nil
}

// GetByID loads a note. A missing note is apperr NotFound.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Note, error) {
	var n models.Note
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&n); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("note")
		}
		return nil, err
	}
	return &n, nil
}

// ListByProject returns notes pinned first, then most recently updated.
func (s *Store) ListByProject(ctx context.Context, projectID primitive.ObjectID, f ListFilter) ([]models.Note, error) {
	filter := bson.M{"project_id": projectID, "is_archived": f.Archived}
	if tag := strings.ToLower(strings.TrimSpace(f.Tag)); tag != "" {
		filter["tags"] = tag
	}
	opts := options.Find().SetSort(bson.D{
		{Key: "is_pinned", Value: -1},
		{Key: "updated_at", Value: -1},
	})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Note
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update replaces title, content and tags.
func (s *Store) Update(ctx context.Context, id, editor primitive.ObjectID, title, content string, tags []string) (*models.Note, error) {
	return s.set(ctx, id, editor, bson.M{
		"title":   strings.TrimSpace(title),
		"content": content,
		"tags":    NormalizeTags(tags),
	})
}

// TogglePin flips is_pinned.
func (s *Store) TogglePin(ctx context.Context, id, editor primitive.ObjectID) (*models.Note, error) {
	n, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.set(ctx, id, editor, bson.M{"is_pinned": !n.IsPinned})
}

// SetArchived archives or restores a note. Archiving also unpins.
func (s *Store) SetArchived(ctx context.Context, id, editor primitive.ObjectID, archived bool) (*models.Note, error) {
	fields := bson.M{"is_archived": archived}
	if archived {
		fields["is_pinned"] = false
	}
	return s.set(ctx, id, editor, fields)
}

func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound("note")
	}
	return nil
}

// DeleteByProject removes every note of a project.
func (s *Store) DeleteByProject(ctx context.Context, projectID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"project_id": projectID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (s *Store) set(ctx context.Context, id, editor primitive.ObjectID, fields bson.M) (*models.Note, error) {
	fields["updated_by"] = editor
	fields["updated_at"] = time.Now().UTC()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var n models.Note
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": fields}, opts).Decode(&n); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("note")
		}
		return nil, err
	}
	return &n, nil
}
