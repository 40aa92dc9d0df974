// internal/domain/models/note.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Note is a tagged free-text document attached to a project.
type Note struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProjectID  primitive.ObjectID `bson:"project_id" json:"project_id"`
	Title      string             `bson:"title" json:"title"`
	Content    string             `bson:"content" json:"content"`
	Tags       []string           `bson:"tags" json:"tags"`
	IsPinned   bool               `bson:"is_pinned" json:"is_pinned"`
	IsArchived bool               `bson:"is_archived" json:"is_archived"`

	CreatedBy primitive.ObjectID  `bson:"created_by" json:"created_by"`
	UpdatedBy *primitive.ObjectID `bson:"updated_by,omitempty" json:"updated_by,omitempty"`
	CreatedAt time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time           `bson:"updated_at" json:"updated_at"`
}
