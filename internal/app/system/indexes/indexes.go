// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup (and by store tests). Every collection set is
reconciled independently and problems are aggregated so that startup can fail
fast with the full picture.
*/
func EnsureAll(ctx context.Context, db *mongo.Database, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	sets := []struct {
		coll   string
		models []mongo.IndexModel
	}{
		{"users", userIndexes()},
		{"projects", projectIndexes()},
		{"tasks", taskIndexes()},
		{"notes", noteIndexes()},
		{"notifications", notificationIndexes()},
	}

	var problems []string
	for _, s := range sets {
		if err := ensureIndexSet(ctx, log, db.Collection(s.coll), s.models); err != nil {
			problems = append(problems, s.coll+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Reconcile a desired index set against what the collection already has      */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func sameBoolPtr(a, b *bool) bool {
	return (a != nil && *a) == (b != nil && *b)
}

func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	if mongo.IsDuplicateKeyError(err) {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

func listBySig(ctx context.Context, coll *mongo.Collection, log *zap.Logger) map[string]existingIndex {
	out := map[string]existingIndex{}
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return out
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			log.Warn("failed to decode existing index",
				zap.String("collection", coll.Name()), zap.Error(err))
			continue
		}
		out[keySig(idx.Key)] = idx
	}
	return out
}

func ensureIndexSet(ctx context.Context, log *zap.Logger, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string

	existing := listBySig(ctx, coll, log)
	for _, m := range models {
		var name string
		var unique *bool
		if m.Options != nil {
			if m.Options.Name != nil {
				name = *m.Options.Name
			}
			unique = m.Options.Unique
		}
		sig := keySig(m.Keys.(bson.D))
		start := time.Now()
		fields := []zap.Field{
			zap.String("collection", coll.Name()),
			zap.String("name", name),
			zap.String("keys", sig),
			zap.Bool("unique", unique != nil && *unique),
		}

		ex, found := existing[sig]
		switch {
		case found && sameBoolPtr(unique, ex.Unique) && (name == "" || ex.Name == name):
			log.Debug("reusing existing index", fields...)
			continue
		case found:
			// Same keys under another name, or unique flag changed: drop and recreate.
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				log.Warn("drop existing index failed", append(fields, zap.Error(err))...)
				errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), name, err))
				continue
			}
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if isDuplicateKeyErr(err) && unique != nil && *unique {
				errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present)", coll.Name(), name))
			} else {
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), name, err))
			}
			log.Warn("index ensure failed", append(fields, zap.Error(err))...)
			continue
		}
		log.Info("index ensured", append(fields, zap.Duration("took", time.Since(start)))...)
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

func userIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		// Login and invitation lookups are by folded username.
		{
			Keys:    bson.D{{Key: "username_ci", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_users_usernameci"),
		},
	}
}

func projectIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		// "My projects" list.
		{
			Keys:    bson.D{{Key: "members.user_id", Value: 1}, {Key: "updated_at", Value: -1}},
			Options: options.Index().SetName("idx_projects_member_updated"),
		},
		// Pending invitations for a user.
		{
			Keys: bson.D{
				{Key: "invitations.user_id", Value: 1},
				{Key: "invitations.status", Value: 1},
			},
			Options: options.Index().SetName("idx_projects_invitee_status"),
		},
	}
}

func taskIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		// Board listing and the doing-column count.
		{
			Keys: bson.D{
				{Key: "project_id", Value: 1},
				{Key: "column", Value: 1},
				{Key: "is_archived", Value: 1},
			},
			Options: options.Index().SetName("idx_tasks_project_column_archived"),
		},
		{
			Keys:    bson.D{{Key: "assigned_to", Value: 1}},
			Options: options.Index().SetName("idx_tasks_assigned"),
		},
	}
}

func noteIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "project_id", Value: 1},
				{Key: "is_archived", Value: 1},
				{Key: "is_pinned", Value: -1},
				{Key: "updated_at", Value: -1},
			},
			Options: options.Index().SetName("idx_notes_project_archived_pinned_updated"),
		},
		{
			Keys:    bson.D{{Key: "project_id", Value: 1}, {Key: "tags", Value: 1}},
			Options: options.Index().SetName("idx_notes_project_tags"),
		},
	}
}

func notificationIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		// Per-user list, newest first.
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_notifications_user_created"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "is_read", Value: 1}},
			Options: options.Index().SetName("idx_notifications_user_read"),
		},
		// Retention sweep.
		{
			Keys:    bson.D{{Key: "created_at", Value: 1}},
			Options: options.Index().SetName("idx_notifications_created"),
		},
	}
}
