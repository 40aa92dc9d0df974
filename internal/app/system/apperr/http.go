package apperr

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// Status maps a Kind to its HTTP status code.
func Status(k Kind) int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindValidationFailed:
		return http.StatusBadRequest
	case KindLimitExceeded:
		return http.StatusUnprocessableEntity
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

type body struct {
	Error        string       `json:"error"`
	Message      string       `json:"message"`
	Reason       string       `json:"reason,omitempty"`
	RequiredRole string       `json:"required_role,omitempty"`
	ActualRole   string       `json:"actual_role,omitempty"`
	Fields       []FieldError `json:"fields,omitempty"`
	Limit        int          `json:"limit,omitempty"`
}

// Write renders err as JSON. Internal errors are logged with their cause
// and shown to the client only as a generic message.
func Write(w http.ResponseWriter, log *zap.Logger, err error) {
	e := As(err)
	b := body{Error: string(e.Kind), Message: e.Message, Reason: e.Reason, Fields: e.Fields, Limit: e.Limit}
	if e.Required.Valid() {
		b.RequiredRole = e.Required.String()
	}
	if e.Actual.Valid() {
		b.ActualRole = e.Actual.String()
	}
	if e.Kind == KindInternal {
		if log != nil {
			log.Error("internal error", zap.String("op", e.Message), zap.Error(e.Err))
		}
		b.Message = "internal server error"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(Status(e.Kind))
	_ = json.NewEncoder(w).Encode(b)
}
