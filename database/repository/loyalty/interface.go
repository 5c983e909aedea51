package loyaltyRepo

import (
	"context"

	"garagehub/models"
)

// LoyaltyRepository is the append-only points ledger. Entries are never
// mutated or deleted; the user's cached balance is maintained in the same
// atomic unit as each insert so the two can never disagree at rest.
type LoyaltyRepository interface {
	// Append inserts the transaction and adjusts the user's cached balance
	// atomically. When tx.AppointmentID is set and an appointment credit
	// already references it, Append is a no-op and reports false. A
	// negative delta that would drive the balance below zero fails with
	// repository.ErrInsufficientBalance and persists nothing.
	Append(ctx context.Context, tx *models.LoyaltyTransaction) (bool, error)

	// ListByUser returns the user's ledger entries, newest first.
	ListByUser(ctx context.Context, userID string) ([]models.LoyaltyTransaction, error)

	// SumByUser derives the balance from the ledger itself, bypassing the
	// cache. Used for audits and the balance endpoint's verify mode.
	SumByUser(ctx context.Context, userID string) (int64, error)
}
