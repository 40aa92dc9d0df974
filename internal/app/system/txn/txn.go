// Package txn runs multi-collection writes inside a MongoDB transaction when
// the deployment supports one, and falls back to plain writes when it does not
// (standalone servers and some DocumentDB versions).
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Run executes fn inside a transaction. If transactions are not supported,
// fallback runs instead with the plain context. fallback may be nil, in which
// case fn is retried outside a transaction.
func Run(ctx context.Context, client *mongo.Client, log *zap.Logger, op string,
	fn func(ctx context.Context) error, fallback func(ctx context.Context) error) error {
	if fallback == nil {
		fallback = fn
	}
	if client == nil {
		return fallback(ctx)
	}

	sess, err := client.StartSession()
	if err != nil {
		if IsNotSupported(err) {
			log.Debug("transactions unavailable, running without", zap.String("op", op))
			return fallback(ctx)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		log.Info("transaction not supported by deployment, running without",
			zap.String("op", op), zap.Error(err))
		return fallback(ctx)
	}
	return err
}

var notSupportedCodes = map[int32]bool{
	20:  true, // IllegalOperation: transaction numbers require a replica set member
	51:  true,
	263: true, // OperationNotSupportedInTransaction
}

var notSupportedHints = []string{
	"transaction",
	"replica set",
	"session",
	"not supported",
	"illegal operation",
}

// IsNotSupported reports whether err means the server cannot run transactions.
// Besides known command codes, it requires at least two hint phrases in the
// message so an ordinary "transaction failed" is not mistaken for lack of support.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && notSupportedCodes[ce.Code] {
		return true
	}
	msg := strings.ToLower(err.Error())
	hits := 0
	for _, h := range notSupportedHints {
		if strings.Contains(msg, h) {
			hits++
		}
	}
	return hits >= 2
}
