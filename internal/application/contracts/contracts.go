// Package contracts holds the ports the application layer needs from
// persistence and async dispatch.
package contracts

import (
	"context"

	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/credit"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/customer"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/event"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/ledger"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/transaction"
)

type EventRecorder interface {
	Record(ctx context.Context, evt event.Event) error
}

// Repos bundles every repository that takes part in a unit of work.
type Repos struct {
	Customers      customer.Repository
	PaymentMethods customer.PaymentMethodRepository
	Transactions   transaction.Repository
	Ledger         ledger.Repository
	StoreCredit    credit.Repository
	Events         EventRecorder
}

// Store gives access to repositories either directly or inside a unit of
// work. WithinTx commits when fn returns nil and rolls back otherwise,
// including when fn panics.
type Store interface {
	Repos() Repos
	WithinTx(ctx context.Context, fn func(ctx context.Context, r Repos) error) error
}
