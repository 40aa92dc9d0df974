package projectstore

import (
	"context"

	"github.com/dalemusser/teamhub/internal/app/system/txn"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DeleteCascade removes a project together with its tasks and notes.
//
// On deployments with transactions the three deletes commit together.
// Otherwise the child collections are cleared concurrently and the project
// document is removed last, so a partial failure leaves the project visible
// and the delete can be retried.
func DeleteCascade(ctx context.Context, db *mongo.Database, log *zap.Logger, id primitive.ObjectID) error {
	projects := New(db)
	byProject := bson.M{"project_id": id}

	inTxn := func(ctx context.Context) error {
		if _, err := db.Collection("tasks").DeleteMany(ctx, byProject); err != nil {
			return err
		}
		if _, err := db.Collection("notes").DeleteMany(ctx, byProject); err != nil {
			return err
		}
		return projects.Delete(ctx, id)
	}

	plain := func(ctx context.Context) error {
		g, gctx := errgroup.WithContext(ctx)
		for _, coll := range []string{"tasks", "notes"} {
			coll := coll
			g.Go(func() error {
				_, err := db.Collection(coll).DeleteMany(gctx, byProject)
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		return projects.Delete(ctx, id)
	}

	return txn.Run(ctx, db.Client(), log, "project delete cascade", inTxn, plain)
}
