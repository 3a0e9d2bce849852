// Package inventory is the line-item collaborator of the orchestrator. It
// tracks fulfilled and returned quantities per item and prices returns.
package inventory

import (
	"context"

	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/failure"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/transaction"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/infra/logging"
)

type LineItems struct {
	Logger logging.Logger
}

// Fulfill marks every item of t as fully fulfilled. An item that was
// already fulfilled or returned is a Conflict unless bypassGuards is set,
// in which case it is topped up. Nothing is written when a guard fails.
func (l *LineItems) Fulfill(ctx context.Context, repo transaction.Repository, t *transaction.Transaction, bypassGuards bool) error {
	if !bypassGuards {
		for _, it := range t.Items {
			if it.FulfilledQuantity > 0 || it.ReturnedQuantity > 0 {
				return failure.Newf(failure.Conflict, "item %d of transaction %s was already fulfilled", it.ID, t.ID)
			}
		}
	}

	for i := range t.Items {
		it := &t.Items[i]
		if it.FulfilledQuantity >= it.Quantity {
			continue
		}
		it.FulfilledQuantity = it.Quantity
		if err := repo.UpdateItem(ctx, it); err != nil {
			return err
		}
	}
	return nil
}

// Return applies lines to the items of t and returns the refund they are
// worth. Nothing is written unless every line is valid.
func (l *LineItems) Return(ctx context.Context, repo transaction.Repository, t *transaction.Transaction, lines []transaction.ReturnLine) (int64, error) {
	if len(lines) == 0 {
		return 0, failure.New(failure.BadInput, "no items to return")
	}

	pending := make(map[int64]int, len(lines))
	for _, line := range lines {
		it, ok := t.Item(line.ItemID)
		if !ok {
			return 0, failure.Newf(failure.BadInput, "item %d is not part of transaction %s", line.ItemID, t.ID)
		}
		if line.Quantity <= 0 {
			return 0, failure.Newf(failure.BadInput, "item %d: return quantity must be positive", line.ItemID)
		}
		pending[line.ItemID] += line.Quantity
		if !line.Force && pending[line.ItemID] > it.ReturnableQuantity() {
			return 0, failure.Newf(failure.BadInput, "item %d: only %d left to return", line.ItemID, it.ReturnableQuantity())
		}
	}

	var refund int64
	for _, line := range lines {
		it, _ := t.Item(line.ItemID)
		it.ReturnedQuantity += line.Quantity
		refund += it.UnitPrice * int64(line.Quantity)

		if err := repo.UpdateItem(ctx, it); err != nil {
			return 0, err
		}

		l.logger().Info("item returned", map[string]any{
			"transaction-id": t.ID,
			"item-id":        it.ID,
			"sku":            it.SKU,
			"quantity":       line.Quantity,
			"restock":        line.Restock,
		})
	}

	return refund, nil
}

// Reverse undoes fulfillment of every item, as a void does.
func (l *LineItems) Reverse(ctx context.Context, repo transaction.Repository, t *transaction.Transaction) error {
	for i := range t.Items {
		it := &t.Items[i]
		if it.FulfilledQuantity == 0 {
			continue
		}
		it.FulfilledQuantity = 0
		it.ReturnedQuantity = 0
		if err := repo.UpdateItem(ctx, it); err != nil {
			return err
		}
	}
	return nil
}

func (l *LineItems) logger() logging.Logger {
	if l.Logger == nil {
		return logging.Nop{}
	}
	return l.Logger
}
