// internal/app/store/projects/projectstore.go
package projectstore

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

// Store persists project documents. Members and invitations are embedded
// arrays and are only ever mutated through the sub-document operations below.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("projects")}
}

// Create inserts a project whose creator is its first and only admin member.
func (s *Store) Create(ctx context.Context, name, description string, creator primitive.ObjectID) (models.Project, error) {
	now := time.Now().UTC()
	p := models.Project{
		ID:          primitive.NewObjectID(),
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		Creator:     creator,
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
	if _, err := s.c.InsertOne(ctx, p); err != nil {
		return models.Project{}, err
	}
	return p, nil
}

// GetByID loads a project. A missing project is apperr NotFound.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Project, error) {
	var p models.Project
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("project")
		}
		return nil, err
	}
	return &p, nil
}

// ListForUser returns the projects userID is a member of, most recently updated first.
func (s *Store) ListForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Project, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	cur, err := s.c.Find(ctx, bson.M{"members.user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Project
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListWithPendingInvitation returns projects holding a pending invitation for userID.
func (s *Store) ListWithPendingInvitation(ctx context.Context, userID primitive.ObjectID) ([]models.Project, error) {
	filter := bson.M{"invitations": bson.M{"$elemMatch": bson.M{
		"user_id": userID,
		"status":  models.InvitationPending,
	}}}
	cur, err := s.c.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Project
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MemberIDs returns the user ids of the project's current members.
func (s *Store) MemberIDs(ctx context.Context, projectID primitive.ObjectID) ([]primitive.ObjectID, error) {
	var p models.Project
	opts := options.FindOne().SetProjection(bson.M{"members.user_id": 1})
	if err := s.c.FindOne(ctx, bson.M{"_id": projectID}, opts).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("project")
		}
		return nil, err
	}
	return p.MemberIDs(), nil
}

// UpdateSettings replaces the project settings.
func (s *Store) UpdateSettings(ctx context.Context, id primitive.ObjectID, settings models.ProjectSettings) error {
	return s.update(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"settings":   settings,
		"updated_at": time.Now().UTC(),
	}})
}

// UpdateDetails sets the name and description.
func (s *Store) UpdateDetails(ctx context.Context, id primitive.ObjectID, name, description string) error {
	return s.update(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"name":        strings.TrimSpace(name),
		"description": strings.TrimSpace(description),
		"updated_at":  time.Now().UTC(),
	}})
}

// UpdateContent replaces the project's free-text content.
func (s *Store) UpdateContent(ctx context.Context, id primitive.ObjectID, content string) error {
	return s.update(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"content":    content,
		"updated_at": time.Now().UTC(),
	}})
}

// AddMember appends a member entry. The filter skips users who are already
// members, so a repeated call never produces a second entry.
func (s *Store) AddMember(ctx context.Context, projectID primitive.ObjectID, m models.Member) error {
	if m.MemberID.IsZero() {
		m.MemberID = primitive.NewObjectID()
	}
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": projectID, "members.user_id": bson.M{"$ne": m.UserID}},
		bson.M{
			"$push": bson.M{"members": m},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		})
	return err
}

// RemoveMember pulls the member entry for userID.
func (s *Store) RemoveMember(ctx context.Context, projectID, userID primitive.ObjectID) error {
	return s.update(ctx, bson.M{"_id": projectID}, bson.M{
		"$pull": bson.M{"members": bson.M{"user_id": userID}},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
}

// SetMemberRole changes one member's role. Concurrent calls are last-write-wins.
func (s *Store) SetMemberRole(ctx context.Context, projectID, userID primitive.ObjectID, role models.Role) error {
	return s.update(ctx,
		bson.M{"_id": projectID, "members.user_id": userID},
		bson.M{"$set": bson.M{"members.$.role": role, "updated_at": time.Now().UTC()}})
}

// AddInvitation appends an invitation entry. Duplicate-pending detection is
// the caller's check; there is no uniqueness constraint here.
func (s *Store) AddInvitation(ctx context.Context, projectID primitive.ObjectID, inv models.Invitation) error {
	return s.update(ctx, bson.M{"_id": projectID}, bson.M{
		"$push": bson.M{"invitations": inv},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
}

// TransitionInvitation moves a pending invitation to status. It reports false
// when the invitation was no longer pending, which lets two racing responses
// resolve to exactly one winner.
func (s *Store) TransitionInvitation(ctx context.Context, projectID, invitationID primitive.ObjectID, status models.InvitationStatus) (bool, error) {
	now := time.Now().UTC()
	res, err := s.c.UpdateOne(ctx,
		bson.M{
			"_id": projectID,
			"invitations": bson.M{"$elemMatch": bson.M{
				"invitation_id": invitationID,
				"status":        models.InvitationPending,
			}},
		},
		bson.M{"$set": bson.M{
			"invitations.$.status":       status,
			"invitations.$.responded_at": now,
			"updated_at":                 now,
		}})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

// Delete removes the project document only. See DeleteCascade for tasks and notes.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound("project")
	}
	return nil
}

func (s *Store) update(ctx context.Context, filter, update bson.M) error {
	res, err := s.c.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("project")
	}
	return nil
}
