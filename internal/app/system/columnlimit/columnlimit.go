// Package columnlimit guards the doing column's work-in-progress cap.
//
// The count and the write that follows it are separate operations, so two
// concurrent requests can both pass and leave the column one over the limit
// until a task moves out. That overshoot is accepted.
package columnlimit

import (
	"context"
	"fmt"

	"github.com/dalemusser/teamhub/internal/app/system/apperr"
	"github.com/dalemusser/teamhub/internal/app/system/metrics"
	"github.com/dalemusser/teamhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Counter counts non-archived tasks of a project in a column, optionally
// leaving one task out.
type Counter interface {
	CountInColumn(ctx context.Context, projectID primitive.ObjectID, column string, exclude *primitive.ObjectID) (int64, error)
}

type Guard struct {
	tasks Counter
}

func New(tasks Counter) *Guard {
	return &Guard{tasks: tasks}
}

// Check fails with LimitExceeded when placing a task into doing would reach
// past the project's limit. taskID is nil for a new task; from is the task's
// current column and is ignored for new tasks.
func (g *Guard) Check(ctx context.Context, p *models.Project, taskID *primitive.ObjectID, from, to string) error {
	if to != models.ColumnDoing {
		return nil
	}
	if taskID != nil && from == models.ColumnDoing {
		return nil
	}
	n, err := g.tasks.CountInColumn(ctx, p.ID, models.ColumnDoing, taskID)
	if err != nil {
		return apperr.Internal("count doing tasks", err)
	}
	limit := p.DoingLimit()
	if n >= int64(limit) {
		metrics.ColumnLimitRejections.Inc()
		return apperr.LimitExceeded(limit)
	}
	return nil
}

// ValidateLimit checks a doing-column limit from a settings update.
func ValidateLimit(n int) error {
	if n < models.MinDoingColumnLimit || n > models.MaxDoingColumnLimit {
		return apperr.Validation(apperr.FieldError{
			Field:   "doing_column_limit",
			Message: fmt.Sprintf("must be between %d and %d", models.MinDoingColumnLimit, models.MaxDoingColumnLimit),
		})
	}
	return nil
}
