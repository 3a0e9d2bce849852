package ledger

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, e *Entry) error
	FindByID(ctx context.Context, id string) (*Entry, error)
	// ListByTransaction returns entries oldest first.
	ListByTransaction(ctx context.Context, transactionID string) ([]Entry, error)
	// LatestPayment returns the most recently created capture entry.
	LatestPayment(ctx context.Context, transactionID string) (*Entry, error)
	// ListUpdatedSince returns entries carrying a remote transaction id that
	// were updated at or after since.
	ListUpdatedSince(ctx context.Context, since time.Time) ([]Entry, error)
	UpdateRemoteStatus(ctx context.Context, id string, status RemoteStatus) error
}
