package transaction

import "context"

type Repository interface {
	Create(ctx context.Context, t *Transaction) error
	// FindByID loads the transaction together with its items.
	FindByID(ctx context.Context, id string) (*Transaction, error)
	// Update persists every scalar field except ChargeAttempts, which only
	// moves through the two methods below.
	Update(ctx context.Context, t *Transaction) error
	UpdateItem(ctx context.Context, item *Item) error
	IncrementChargeAttempts(ctx context.Context, id string) (int, error)
	// RecordChargeFailure appends msg to the failure log, marks the
	// transaction failed and raises ChargeAttempts to at least attempts.
	// The counter uses max semantics so a replay never double counts.
	RecordChargeFailure(ctx context.Context, id string, attempts int, msg string) error
}
