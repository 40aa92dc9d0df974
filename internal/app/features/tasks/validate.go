package tasks

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dalemusser/teamhub/internal/app/system/apperr"
	"github.com/dalemusser/teamhub/internal/app/system/httpjson"
	"github.com/dalemusser/teamhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func validateTitle(title string) []apperr.FieldError {
	n := utf8.RuneCountInString(strings.TrimSpace(title))
	if n == 0 {
		return []apperr.FieldError{{Field: "title", Message: "is required"}}
	}
	if n > maxTitleLength {
		return []apperr.FieldError{{Field: "title", Message: fmt.Sprintf("must be at most %d characters", maxTitleLength)}}
	}
	return nil
}

func validateColumnAndPriority(column, priority string) []apperr.FieldError {
	var out []apperr.FieldError
	if !models.IsValidColumn(column) {
		out = append(out, apperr.FieldError{Field: "column", Message: "must be todo, doing, or done"})
	}
	if !models.IsValidPriority(priority) {
		out = append(out, apperr.FieldError{Field: "priority", Message: "must be low, medium, high, or urgent"})
	}
	return out
}

// resolveAssignees parses assignee ids and requires each to be a project member.
func resolveAssignees(p *models.Project, hexes []string) ([]primitive.ObjectID, []apperr.FieldError) {
	ids, err := httpjson.ParseIDs("assigned_to", hexes)
	if err != nil {
		return nil, apperr.As(err).Fields
	}
	ids = dedupe(ids)
	for _, id := range ids {
		if !p.IsMember(id) {
			return nil, []apperr.FieldError{{Field: "assigned_to", Message: "every assignee must be a project member"}}
		}
	}
	return ids, nil
}

// newlyAssigned returns the ids in next that are not in prev.
func newlyAssigned(prev, next []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]bool, len(prev))
	for _, id := range prev {
		seen[id] = true
	}
	var out []primitive.ObjectID
	for _, id := range next {
		if !seen[id] {
			out = append(out, id)
		}
	}
	return out
}

func dedupe(ids []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]bool, len(ids))
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// keepMembers drops ids that are no longer project members.
func keepMembers(p *models.Project, ids []primitive.ObjectID) []primitive.ObjectID {
	out := ids[:0]
	for _, id := range ids {
		if p.IsMember(id) {
			out = append(out, id)
		}
	}
	return out
}
