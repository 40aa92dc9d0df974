// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is an account that can own and join projects.
//
// NOTE:
//   - Project membership is not stored on User. It lives in the
//     members array embedded on each project document.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Username     string             `bson:"username" json:"username"`
	UsernameCI   string             `bson:"username_ci" json:"-"` // folded for unique lookups
	PasswordHash string             `bson:"password_hash" json:"-"`

	IsOnline bool       `bson:"is_online" json:"is_online"`
	LastSeen *time.Time `bson:"last_seen,omitempty" json:"last_seen,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// PublicUser is the identity attached to real-time events so recipients can
// render who performed an action.
type PublicUser struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// Public returns the user's public identity fields.
func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID.Hex(), Name: u.Name, Username: u.Username}
}
