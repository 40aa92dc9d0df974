// internal/domain/models/task.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Kanban columns.
const (
	ColumnTodo  = "todo"
	ColumnDoing = "doing"
	ColumnDone  = "done"
)

// Columns lists the board columns in display order.
var Columns = []string{ColumnTodo, ColumnDoing, ColumnDone}

// IsValidColumn reports whether c is a known column.
func IsValidColumn(c string) bool {
	return c == ColumnTodo || c == ColumnDoing || c == ColumnDone
}

// Task priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// IsValidPriority reports whether p is a known priority.
func IsValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Task is a card on a project's board.
type Task struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	ProjectID   primitive.ObjectID   `bson:"project_id" json:"project_id"`
	Title       string               `bson:"title" json:"title"`
	Description string               `bson:"description,omitempty" json:"description,omitempty"`
	Column      string               `bson:"column" json:"column"`
	Priority    string               `bson:"priority" json:"priority"`
	AssignedTo  []primitive.ObjectID `bson:"assigned_to" json:"assigned_to"`
	DueDate     *time.Time           `bson:"due_date,omitempty" json:"due_date,omitempty"`
	Comments    []Comment            `bson:"comments" json:"comments"`
	IsArchived  bool                 `bson:"is_archived" json:"is_archived"`

	CreatedBy primitive.ObjectID `bson:"created_by" json:"created_by"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// Comment is a remark left on a task.
type Comment struct {
	CommentID primitive.ObjectID `bson:"comment_id" json:"comment_id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	Text      string             `bson:"text" json:"text"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
