package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

// maxTxnAttempts bounds retries on transient transaction conflicts before
// ErrStoreContention is surfaced. Domain conflicts (slot taken, stale
// snapshot, balance floor) are never retried here.
const maxTxnAttempts = 3

// RunTxn executes fn inside a session transaction on the given client,
// retrying transient conflicts up to maxTxnAttempts with linear backoff.
func RunTxn(ctx context.Context, client *mongo.Client, fn func(mongo.SessionContext) error) error {
	sess, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	for attempt := 1; ; attempt++ {
		err = mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
			if err := sc.StartTransaction(); err != nil {
				return err
			}
			if err := fn(sc); err != nil {
				_ = sc.AbortTransaction(sc)
				return err
			}
			return sc.CommitTransaction(sc)
		})
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return err
		}
		if attempt >= maxTxnAttempts {
			return ErrStoreContention
		}
		time.Sleep(time.Duration(attempt) * 50 * time.Millisecond)
	}
}

func isTransient(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.HasErrorLabel("TransientTransactionError") ||
			cmdErr.HasErrorLabel("UnknownTransactionCommitResult")
	}
	return false
}
