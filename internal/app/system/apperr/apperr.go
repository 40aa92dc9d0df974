// Package apperr defines the error kinds every operation resolves to and
// how each kind is rendered over HTTP.
//
// Kinds:
//   - NotFound: the referenced entity is absent
//   - Forbidden: authenticated but not entitled (not a member, insufficient role, or a rule)
//   - Conflict: duplicate or already-processed state
//   - ValidationFailed: field-level input rejection, reported as a list
//   - LimitExceeded: the doing-column cap, carries the numeric limit
//   - Unauthorized: missing or invalid credential
//   - RateLimited: too many attempts from one client or for one account
//   - Internal: anything unexpected (store or auth failure)
package apperr

import (
	"errors"
	"fmt"

	"github.com/dalemusser/teamhub/internal/domain/models"
)

// Kind is the stable, machine-checkable error category.
type Kind string

const (
	KindNotFound         Kind = "NOT_FOUND"
	KindForbidden        Kind = "FORBIDDEN"
	KindConflict         Kind = "CONFLICT"
	KindValidationFailed Kind = "VALIDATION_FAILED"
	KindLimitExceeded    Kind = "LIMIT_EXCEEDED"
	KindUnauthorized     Kind = "UNAUTHORIZED"
	KindRateLimited      Kind = "RATE_LIMITED"
	KindInternal         Kind = "INTERNAL_ERROR"
)

// Forbidden reasons.
const (
	ReasonNotMember        = "not_member"
	ReasonInsufficientRole = "insufficient_role"
	ReasonAdminOnly        = "admin_only"
	ReasonNotOwner         = "not_owner"
)

// FieldError is a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the concrete error type carried through the application.
type Error struct {
	Kind    Kind
	Message string

	// Forbidden detail.
	Reason   string
	Required models.Role
	Actual   models.Role

	// ValidationFailed detail.
	Fields []FieldError

	// LimitExceeded detail.
	Limit int

	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind so callers can write errors.Is(err, apperr.ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Reason == "" || t.Reason == e.Reason)
}

// Sentinels for errors.Is comparisons.
var (
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrForbidden        = &Error{Kind: KindForbidden}
	ErrNotMember        = &Error{Kind: KindForbidden, Reason: ReasonNotMember}
	ErrInsufficientRole = &Error{Kind: KindForbidden, Reason: ReasonInsufficientRole}
	ErrAdminOnly        = &Error{Kind: KindForbidden, Reason: ReasonAdminOnly}
	ErrConflict         = &Error{Kind: KindConflict}
	ErrValidation       = &Error{Kind: KindValidationFailed}
	ErrLimitExceeded    = &Error{Kind: KindLimitExceeded}
	ErrUnauthorized     = &Error{Kind: KindUnauthorized}
	ErrRateLimited      = &Error{Kind: KindRateLimited}
	ErrInternal         = &Error{Kind: KindInternal}
)

// NotFound reports a missing entity, e.g. NotFound("project").
func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

// Forbidden is a generic entitlement failure.
func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

// NotMember is returned when the caller has no member entry in the project.
func NotMember() *Error {
	return &Error{
		Kind:    KindForbidden,
		Reason:  ReasonNotMember,
		Message: "access denied: you are not a member of this project",
	}
}

// InsufficientRole names both the required and the actual role.
func InsufficientRole(required, actual models.Role) *Error {
	return &Error{
		Kind:     KindForbidden,
		Reason:   ReasonInsufficientRole,
		Required: required,
		Actual:   actual,
		Message:  fmt.Sprintf("access denied: requires %s role, you have %s", required, actual),
	}
}

// AdminOnly is a terminal gate failure for an operation only admins may finish.
func AdminOnly(msg string) *Error {
	return &Error{Kind: KindForbidden, Reason: ReasonAdminOnly, Required: models.RoleAdmin, Message: msg}
}

// NotOwner is returned when a user touches another user's record.
func NotOwner(msg string) *Error {
	return &Error{Kind: KindForbidden, Reason: ReasonNotOwner, Message: msg}
}

// Conflict reports duplicate or already-processed state.
func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

// Validation collects field errors. Message summarizes the first field.
func Validation(fields ...FieldError) *Error {
	msg := "validation failed"
	if len(fields) > 0 {
		msg = fields[0].Field + ": " + fields[0].Message
	}
	return &Error{Kind: KindValidationFailed, Message: msg, Fields: fields}
}

// LimitExceeded reports the doing-column cap.
func LimitExceeded(limit int) *Error {
	return &Error{
		Kind:    KindLimitExceeded,
		Limit:   limit,
		Message: fmt.Sprintf("the doing column is limited to %d tasks", limit),
	}
}

// Unauthorized reports a missing or invalid credential.
func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

// RateLimited reports a throttled client.
func RateLimited(msg string) *Error {
	return &Error{Kind: KindRateLimited, Message: msg}
}

// Internal wraps an unexpected failure. The wrapped error is logged, never shown.
func Internal(op string, err error) *Error {
	return &Error{Kind: KindInternal, Message: op, Err: err}
}

// As extracts an *Error from err. Unknown errors are treated as Internal.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal("internal error", err)
}

// KindOf returns the kind of err, or "" for nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	return As(err).Kind
}
