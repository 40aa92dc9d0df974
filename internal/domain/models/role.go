// internal/domain/models/role.go
package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

// Role is a project member's permission level. Roles are totally ordered:
// every entitlement check is "member role at least required role".
type Role int

const (
	RoleUnknown Role = iota
	RoleViewer
	RoleEditor
	RoleAdmin
)

var roleNames = map[Role]string{
	RoleViewer: "viewer",
	RoleEditor: "editor",
	RoleAdmin:  "admin",
}

// ParseRole converts a role name (case-insensitive) to a Role.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "viewer":
		return RoleViewer, nil
	case "editor":
		return RoleEditor, nil
	case "admin":
		return RoleAdmin, nil
	}
	return RoleUnknown, fmt.Errorf("unknown role %q", s)
}

// String returns the lowercase role name, or "unknown".
func (r Role) String() string {
	if n, ok := roleNames[r]; ok {
		return n
	}
	return "unknown"
}

// Valid reports whether r is one of viewer, editor, admin.
func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

// AtLeast reports whether r ranks at or above required.
// An invalid role never satisfies anything.
func (r Role) AtLeast(required Role) bool {
	return r.Valid() && r >= required
}

func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *Role) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// MarshalBSONValue stores the role by name so documents stay readable in the shell.
func (r Role) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if !r.Valid() {
		return 0, nil, fmt.Errorf("cannot store invalid role %d", int(r))
	}
	return bsontype.String, bsoncore.AppendString(nil, r.String()), nil
}

func (r *Role) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	if t != bsontype.String {
		return fmt.Errorf("role: unexpected BSON type %s", t)
	}
	s, _, ok := bsoncore.ReadString(data)
	if !ok {
		return fmt.Errorf("role: malformed BSON string")
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
