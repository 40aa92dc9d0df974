// Package httpjson holds the request and response helpers shared by the API
// handlers.
package httpjson

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dalemusser/teamhub/internal/app/system/apperr"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxBodyBytes caps request bodies.
const MaxBodyBytes = 1 << 20

// Write renders v as JSON with the given status.
func Write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// OK is Write with 200.
func OK(w http.ResponseWriter, v any) { Write(w, http.StatusOK, v) }

// Created is Write with 201.
func Created(w http.ResponseWriter, v any) { Write(w, http.StatusCreated, v) }

// Decode reads a JSON body into v. A malformed or oversized body is a
// validation failure; an empty body leaves v untouched.
func Decode(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apperr.Validation(apperr.FieldError{Field: "body", Message: "malformed JSON body"})
	}
	return nil
}

// PathID parses the chi URL parameter param as an ObjectID. A malformed id
// cannot name anything, so it reports NotFound(what).
func PathID(r *http.Request, param, what string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, param))
	if err != nil {
		return primitive.NilObjectID, apperr.NotFound(what)
	}
	return id, nil
}

// ParseIDs converts hex strings into ObjectIDs, failing on the first bad one
// with a validation error on field.
func ParseIDs(field string, hexes []string) ([]primitive.ObjectID, error) {
	ids := make([]primitive.ObjectID, 0, len(hexes))
	for _, h := range hexes {
		id, err := primitive.ObjectIDFromHex(h)
		if err != nil {
			return nil, apperr.Validation(apperr.FieldError{Field: field, Message: "invalid id " + h})
		}
		ids = append(ids, id)
	}
	return ids, nil
}
